package planner

import (
	"errors"
	"testing"

	"hyperlab/internal/cache"
	"hyperlab/internal/registry"
)

func newTestProcesses() *registry.Registry[registry.Process] {
	reg := registry.New[registry.Process]()
	reg.Register("return_n", registry.Process{
		Params: []string{"n"},
		Func: func(sources []any, params map[string]any) (any, error) {
			return params["n"], nil
		},
	})
	reg.Register("return_inverse", registry.Process{
		Params: []string{},
		Func: func(sources []any, params map[string]any) (any, error) {
			return -sources[0].(float64), nil
		},
	})
	reg.Register("bar", registry.Process{
		Params: []string{},
		Func: func(sources []any, params map[string]any) (any, error) {
			return sources[0], nil
		},
	})
	return reg
}

func simpleConfig() Config {
	return Config{
		Sources: map[string]string{"zero": "value:0"},
		Experiments: map[string]Experiment{
			"e1": {
				Structure: map[string]ProcessSpec{
					"neg": {Function: "return_inverse", Sources: []string{"zero"}, Results: []string{"neg"}},
				},
				Results: []string{"neg"},
			},
		},
	}
}

func TestPlan_Determinism(t *testing.T) {
	store, err := cache.Open(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	procs := newTestProcesses()

	rows1, err := Plan(simpleConfig(), store, procs)
	if err != nil {
		t.Fatalf("Plan 1: %v", err)
	}

	store2, err := cache.Open(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	rows2, err := Plan(simpleConfig(), store2, procs)
	if err != nil {
		t.Fatalf("Plan 2: %v", err)
	}

	if len(rows1) != len(rows2) || len(rows1) == 0 {
		t.Fatalf("expected matching non-empty plans, got %d and %d rows", len(rows1), len(rows2))
	}
	for i := range rows1 {
		if rows1[i].ResultHashes[0] != rows2[i].ResultHashes[0] {
			t.Errorf("row %d: expected identical result hash across runs, got %q != %q",
				i, rows1[i].ResultHashes[0], rows2[i].ResultHashes[0])
		}
	}
}

func TestPlan_UnknownProcess(t *testing.T) {
	store, _ := cache.Open(t.TempDir(), nil)
	cfg := simpleConfig()
	e1 := cfg.Experiments["e1"]
	e1.Structure["neg"] = ProcessSpec{Function: "does_not_exist", Sources: []string{"zero"}, Results: []string{"neg"}}
	cfg.Experiments["e1"] = e1

	_, err := Plan(cfg, store, newTestProcesses())
	if err == nil {
		t.Fatal("expected UnknownProcessError")
	}
	if !errors.Is(err, ErrUnknownProcess) {
		t.Errorf("expected ErrUnknownProcess, got %v", err)
	}
}

func TestPlan_Cyclic(t *testing.T) {
	store, _ := cache.Open(t.TempDir(), nil)
	cfg := Config{
		Sources: map[string]string{},
		Experiments: map[string]Experiment{
			"e1": {
				Structure: map[string]ProcessSpec{
					"a": {Function: "bar", Sources: []string{"b_out"}, Results: []string{"a_out"}},
					"b": {Function: "bar", Sources: []string{"a_out"}, Results: []string{"b_out"}},
				},
				Results: []string{"a_out"},
			},
		},
	}
	_, err := Plan(cfg, store, newTestProcesses())
	if err == nil {
		t.Fatal("expected CyclicError")
	}
	if !errors.Is(err, ErrCyclic) {
		t.Errorf("expected ErrCyclic, got %v", err)
	}
}

func TestPlan_StructureOverrideChangesHash(t *testing.T) {
	store, _ := cache.Open(t.TempDir(), nil)
	procs := newTestProcesses()
	procs.Register("baz", registry.Process{
		Params: []string{},
		Func: func(sources []any, params map[string]any) (any, error) {
			return sources[0], nil
		},
	})

	base := Config{
		Sources: map[string]string{"zero": "value:0"},
		Experiments: map[string]Experiment{
			"e1": {
				Structure: map[string]ProcessSpec{
					"foo": {Function: "bar", Sources: []string{"zero"}, Results: []string{"out"}},
				},
				Results: []string{"out"},
			},
		},
	}

	rowsBase, err := Plan(base, store, procs)
	if err != nil {
		t.Fatalf("Plan base: %v", err)
	}

	overridden := base
	overridden.Experiments = map[string]Experiment{
		"e1": {
			Structure: base.Experiments["e1"].Structure,
			Results:   []string{"out"},
			Parameters: map[string]any{
				"foo.FUNCTION": "baz",
			},
		},
	}
	rowsOverridden, err := Plan(overridden, store, procs)
	if err != nil {
		t.Fatalf("Plan overridden: %v", err)
	}

	if rowsBase[0].ResultHashes[0] == rowsOverridden[0].ResultHashes[0] {
		t.Error("expected structure override to change the result hash")
	}
	if rowsOverridden[0].FunctionName != "baz" {
		t.Errorf("expected overridden function name %q, got %q", "baz", rowsOverridden[0].FunctionName)
	}
}

func TestPlan_DuplicateSourceHashesCollapse(t *testing.T) {
	store, _ := cache.Open(t.TempDir(), nil)
	cfg := Config{
		Sources: map[string]string{
			"a": "value:0",
			"b": "value:0",
		},
		Experiments: map[string]Experiment{
			"e1": {
				Structure: map[string]ProcessSpec{
					"p": {Function: "bar", Sources: []string{"a"}, Results: []string{"out"}},
					"q": {Function: "bar", Sources: []string{"b"}, Results: []string{"out2"}},
				},
				Results: []string{"out", "out2"},
			},
		},
	}
	rows, err := Plan(cfg, store, newTestProcesses())
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if rows[0].SourceHashes[0] != rows[1].SourceHashes[0] {
		t.Errorf("expected duplicate-valued sources to resolve to the same hash")
	}
}

func TestPlan_ControlTrialAlwaysPresent(t *testing.T) {
	store, _ := cache.Open(t.TempDir(), nil)
	cfg := simpleConfig()
	rows, err := Plan(cfg, store, newTestProcesses())
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	found := false
	for _, r := range rows {
		if r.Trial == controlTrial {
			found = true
		}
	}
	if !found {
		t.Error("expected a control trial row even with no trials declared")
	}
}
