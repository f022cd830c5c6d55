package main

import (
	"fmt"

	"hyperlab/internal/registry"
)

// builtinProcesses registers the two processes used throughout the
// specification's own examples (return_n, return_inverse) plus one
// general-purpose arithmetic step (sum). Populating the ProcessRegistry from a
// plugin directory, a config-driven import list, or any other discovery
// mechanism is explicitly a host concern (§4.5, §9) — this function is
// illustrative wiring for the CLI, not the registry population mechanism
// itself.
func builtinProcesses() *registry.Registry[registry.Process] {
	reg := registry.New[registry.Process]()

	reg.Register("return_n", registry.Process{
		Params: []string{"n"},
		Func: func(sources []any, params map[string]any) (any, error) {
			return params["n"], nil
		},
	})

	reg.Register("return_inverse", registry.Process{
		Func: func(sources []any, params map[string]any) (any, error) {
			n, ok := sources[0].(float64)
			if !ok {
				return nil, fmt.Errorf("return_inverse: expected numeric input, got %T", sources[0])
			}
			return -n, nil
		},
	})

	reg.Register("sum", registry.Process{
		Func: func(sources []any, params map[string]any) (any, error) {
			var total float64
			for _, s := range sources {
				n, ok := s.(float64)
				if !ok {
					return nil, fmt.Errorf("sum: expected numeric input, got %T", s)
				}
				total += n
			}
			return total, nil
		},
	})

	return reg
}

// builtinOutputs mirrors builtinProcesses for the OutputRegistry. Output
// rendering (tables, plots) is out of scope; this registers a single
// pass-through sink so the CLI has something to dispatch to.
func builtinOutputs() *registry.Registry[registry.OutputFunc] {
	reg := registry.New[registry.OutputFunc]()
	reg.Register("print", func(value any) error {
		fmt.Println(value)
		return nil
	})
	return reg
}
