package executor

import "context"

// Observer receives notifications around a run and around each row. Hooks
// are optional, synchronous, and must not panic or alter scheduling — they
// exist for logging and progress reporting, not control flow.
type Observer interface {
	BeforeRun(ctx context.Context, rowCount int)
	AfterRun(ctx context.Context, err error)
	BeforeRow(ctx context.Context, row RowRef)
	AfterRow(ctx context.Context, row RowRef, state RowState, err error)
}

// RowRef identifies a plan row for observer callbacks without exposing the
// full Row (params, hashes) an observer has no business mutating.
type RowRef struct {
	Experiment, Trial, Process string
}

// NopObserver implements Observer with no-op methods. New installs it, and
// Run falls back to it when the Executor's Observer field is nil.
type NopObserver struct{}

func (NopObserver) BeforeRun(context.Context, int)                   {}
func (NopObserver) AfterRun(context.Context, error)                  {}
func (NopObserver) BeforeRow(context.Context, RowRef)                {}
func (NopObserver) AfterRow(context.Context, RowRef, RowState, error) {}
