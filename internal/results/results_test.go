package results

import (
	"context"
	"testing"

	"hyperlab/internal/cache"
	"hyperlab/internal/executor"
	"hyperlab/internal/planner"
	"hyperlab/internal/registry"
)

func TestExtract_OnlyFlaggedRows(t *testing.T) {
	store, err := cache.Open(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	procs := registry.New[registry.Process]()
	procs.Register("pair", registry.Process{
		Func: func(sources []any, params map[string]any) (any, error) {
			return []any{1.0, 2.0}, nil
		},
	})

	cfg := planner.Config{
		Experiments: map[string]planner.Experiment{
			"lab": {
				Structure: map[string]planner.ProcessSpec{
					"p": {Function: "pair", Results: []string{"lo", "hi"}},
				},
				Results: []string{"hi"},
			},
		},
	}

	rows, err := planner.Plan(cfg, store, procs)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	ex := executor.New(store, procs)
	if _, err := ex.Run(context.Background(), rows); err != nil {
		t.Fatalf("Run: %v", err)
	}

	extracted, err := Extract(rows, store)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(extracted) != 1 {
		t.Fatalf("expected exactly one surfaced result, got %d", len(extracted))
	}
	if extracted[0].ResultName != "hi" || extracted[0].Value != float64(2) {
		t.Errorf("expected hi=2, got %+v", extracted[0])
	}
}
