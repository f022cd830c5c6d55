// Package executor consumes a planner.Row table and runs it to completion:
// for each row not already satisfied by the cache, it loads inputs,
// invokes the registered process, and commits outputs back to the cache
// with their provenance label (§4.4).
package executor

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"hyperlab/internal/cache"
	"hyperlab/internal/planner"
	"hyperlab/internal/registry"
)

// RowState is the per-row state machine §4.4 specifies:
// Planned -> (has_run?) -> Skipped | Running -> Committed. Transitions
// happen one row at a time; nothing here is concurrent (§5).
type RowState int

const (
	Planned RowState = iota
	Skipped
	Running
	Committed
)

func (s RowState) String() string {
	switch s {
	case Planned:
		return "planned"
	case Skipped:
		return "skipped"
	case Running:
		return "running"
	case Committed:
		return "committed"
	default:
		return "unknown"
	}
}

// Executor runs a plan table against a cache and a process registry.
type Executor struct {
	Store     *cache.Store
	Processes *registry.Registry[registry.Process]
	Logger    *zap.Logger
	Observer  Observer
}

// New returns an Executor with sane defaults for Logger and Observer.
func New(store *cache.Store, processes *registry.Registry[registry.Process]) *Executor {
	return &Executor{
		Store:     store,
		Processes: processes,
		Logger:    zap.NewNop(),
		Observer:  NopObserver{},
	}
}

// Run executes rows in (experiment, trial, order) and returns the final
// state of every row, in that same order. It never invokes a process whose
// declared result hashes are all already present in the cache (§4.4 step
// 3, the idempotence and upstream-reuse invariants in §8).
func (e *Executor) Run(ctx context.Context, rows []planner.Row) ([]RowState, error) {
	logger := e.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	observer := e.Observer
	if observer == nil {
		observer = NopObserver{}
	}

	if err := e.Store.Sync(); err != nil {
		return nil, fmt.Errorf("executor: sync before run: %w", err)
	}

	ordered := make([]planner.Row, len(rows))
	copy(ordered, rows)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Experiment != ordered[j].Experiment {
			return ordered[i].Experiment < ordered[j].Experiment
		}
		if ordered[i].Trial != ordered[j].Trial {
			return ordered[i].Trial < ordered[j].Trial
		}
		return ordered[i].Order < ordered[j].Order
	})

	states := make([]RowState, len(ordered))
	for i := range states {
		states[i] = Planned
	}

	observer.BeforeRun(ctx, len(ordered))

	for i, row := range ordered {
		ref := RowRef{Experiment: row.Experiment, Trial: row.Trial, Process: row.Name}

		if e.hasRun(row) {
			states[i] = Skipped
			logger.Debug("executor: row skipped",
				zap.String("experiment", row.Experiment), zap.String("trial", row.Trial), zap.String("process", row.Name))
			observer.BeforeRow(ctx, ref)
			observer.AfterRow(ctx, ref, Skipped, nil)
			continue
		}

		observer.BeforeRow(ctx, ref)
		states[i] = Running

		if err := e.runRow(row); err != nil {
			observer.AfterRow(ctx, ref, Running, err)
			observer.AfterRun(ctx, err)
			return states, err
		}

		states[i] = Committed
		logger.Debug("executor: row committed",
			zap.String("experiment", row.Experiment), zap.String("trial", row.Trial), zap.String("process", row.Name))
		observer.AfterRow(ctx, ref, Committed, nil)
	}

	if err := e.renamePass(ordered); err != nil {
		observer.AfterRun(ctx, err)
		return states, err
	}

	observer.AfterRun(ctx, nil)
	return states, nil
}

// hasRun is the derived field from §3: true iff every declared result hash
// is already present in the cache.
func (e *Executor) hasRun(row planner.Row) bool {
	for _, h := range row.ResultHashes {
		if !e.Store.Has(h) {
			return false
		}
	}
	return true
}

func (e *Executor) runRow(row planner.Row) error {
	proc, ok := e.Processes.Get(row.FunctionName)
	if !ok {
		return &UnknownProcessError{Process: row.Name, Function: row.FunctionName}
	}

	sources := make([]any, len(row.SourceHashes))
	for i, h := range row.SourceHashes {
		v, err := e.Store.Get(h)
		if _, missing := err.(*cache.NotFoundError); missing {
			return &MissingInputError{Experiment: row.Experiment, Trial: row.Trial, Process: row.Name, Hash: h}
		}
		if err != nil {
			return fmt.Errorf("executor: %s/%s.%s: loading input %s: %w", row.Experiment, row.Trial, row.Name, h, err)
		}
		sources[i] = v
	}

	result, err := proc.Func(sources, row.Params)
	if err != nil {
		return fmt.Errorf("executor: %s/%s.%s: %w", row.Experiment, row.Trial, row.Name, err)
	}

	values, err := interpretResult(row, result)
	if err != nil {
		return err
	}

	label := fmt.Sprintf("%s.%s.%s", row.Experiment, row.Trial, row.Name)
	for i, h := range row.ResultHashes {
		if err := e.Store.Put(h, values[i], label, nil); err != nil {
			return fmt.Errorf("executor: committing result %q: %w", row.ResultNames[i], err)
		}
	}
	return nil
}

// interpretResult applies §4.4 step 3c: a single declared result takes the
// raw return value directly; multiple declared results require an ordered
// sequence of matching length.
func interpretResult(row planner.Row, result any) ([]any, error) {
	if len(row.ResultNames) == 1 {
		return []any{result}, nil
	}

	values, ok := result.([]any)
	if !ok || len(values) != len(row.ResultNames) {
		got := -1
		if ok {
			got = len(values)
		}
		return nil, &ArityError{
			Experiment: row.Experiment,
			Trial:      row.Trial,
			Process:    row.Name,
			Declared:   len(row.ResultNames),
			Got:        got,
		}
	}
	return values, nil
}

// renamePass implements §4.4 step 4: after all rows commit, rename any
// object whose on-disk filename doesn't yet match its canonical name.
func (e *Executor) renamePass(rows []planner.Row) error {
	for _, row := range rows {
		for _, h := range row.ResultHashes {
			meta, ok := e.Store.Metadata().Get(h)
			if !ok {
				continue
			}
			canonical := cache.CanonicalFilename(h, meta.Sources)
			if meta.Filename == canonical {
				continue
			}
			if err := e.Store.Rename(h, canonical); err != nil {
				return fmt.Errorf("executor: renaming %s: %w", h, err)
			}
		}
	}
	return nil
}
