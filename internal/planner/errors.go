package planner

import (
	"errors"
	"fmt"
)

// ErrSourceNotFound is the sentinel wrapped by SourceNotFoundError.
var ErrSourceNotFound = errors.New("source not found")

// SourceNotFoundError reports a configured source that cannot be resolved
// to a hash.
type SourceNotFoundError struct {
	Label string
	Ref   string
}

func (e *SourceNotFoundError) Error() string {
	return fmt.Sprintf("%s: %q (%s)", ErrSourceNotFound.Error(), e.Label, e.Ref)
}

func (e *SourceNotFoundError) Unwrap() error { return ErrSourceNotFound }

// ErrUnknownProcess is the sentinel wrapped by UnknownProcessError.
var ErrUnknownProcess = errors.New("unknown process")

// UnknownProcessError reports a process name absent from the ProcessRegistry.
type UnknownProcessError struct {
	Experiment string
	Process    string
	Function   string
}

func (e *UnknownProcessError) Error() string {
	return fmt.Sprintf("%s: %q (experiment %q, function %q)",
		ErrUnknownProcess.Error(), e.Process, e.Experiment, e.Function)
}

func (e *UnknownProcessError) Unwrap() error { return ErrUnknownProcess }

// ErrCyclic is the sentinel wrapped by CyclicError.
var ErrCyclic = errors.New("cyclic")

// CyclicError reports a structure whose dependency graph is not a DAG.
type CyclicError struct {
	Experiment string
	Trial      string
	Msg        string
}

func (e *CyclicError) Error() string {
	return fmt.Sprintf("%s: experiment %q, trial %q: %s", ErrCyclic.Error(), e.Experiment, e.Trial, e.Msg)
}

func (e *CyclicError) Unwrap() error { return ErrCyclic }
