package depgraph

import (
	"errors"
	"fmt"
)

// ErrStructural is the sentinel wrapped by every StructuralError, for
// errors.Is() checks that don't care about the specific violation kind.
var ErrStructural = errors.New("structural error")

// StructuralError reports a duplicate ID, dangling edge, or self-reference
// found by Validate, or a cycle found by TopoSort.
type StructuralError struct {
	Kind string // "duplicate_id", "dangling_edge", "self_reference", "cycle"
	Msg  string
}

func (e *StructuralError) Error() string {
	if e == nil {
		return ""
	}
	if e.Msg == "" {
		return ErrStructural.Error()
	}
	return fmt.Sprintf("%s: %s", ErrStructural.Error(), e.Msg)
}

func (e *StructuralError) Unwrap() error { return ErrStructural }
