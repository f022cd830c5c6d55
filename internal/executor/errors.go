package executor

import (
	"errors"
	"fmt"
)

// ErrMissingInput is the sentinel wrapped by MissingInputError.
var ErrMissingInput = errors.New("missing input")

// MissingInputError reports a source hash the plan claimed would exist but
// is absent at execution time — a planner bug, surfaced rather than
// swallowed (§4.4 step 3a).
type MissingInputError struct {
	Experiment, Trial, Process string
	Hash                       string
}

func (e *MissingInputError) Error() string {
	return fmt.Sprintf("%s: %s (%s/%s.%s)", ErrMissingInput.Error(), e.Hash, e.Experiment, e.Trial, e.Process)
}

func (e *MissingInputError) Unwrap() error { return ErrMissingInput }

// ErrArity is the sentinel wrapped by ArityError.
var ErrArity = errors.New("arity error")

// ArityError reports a process return value whose shape disagrees with its
// declared results (§4.4 step 3c).
type ArityError struct {
	Experiment, Trial, Process string
	Declared, Got              int
}

func (e *ArityError) Error() string {
	return fmt.Sprintf("%s: %s/%s.%s: declared %d results, got %d",
		ErrArity.Error(), e.Experiment, e.Trial, e.Process, e.Declared, e.Got)
}

func (e *ArityError) Unwrap() error { return ErrArity }

// ErrUnknownProcess mirrors planner.ErrUnknownProcess for the case where a
// row's function name is no longer registered at execution time (the
// registry passed to the executor differs from the one used to plan).
var ErrUnknownProcess = errors.New("unknown process")

// UnknownProcessError reports a plan row whose function name is absent
// from the registry handed to the executor.
type UnknownProcessError struct {
	Process, Function string
}

func (e *UnknownProcessError) Error() string {
	return fmt.Sprintf("%s: %q (function %q)", ErrUnknownProcess.Error(), e.Process, e.Function)
}

func (e *UnknownProcessError) Unwrap() error { return ErrUnknownProcess }
