// Package results extracts the surfaced outputs of a completed run (§4.6).
package results

import (
	"fmt"

	"hyperlab/internal/cache"
	"hyperlab/internal/planner"
)

// Row is one surfaced result: a (experiment, trial, process, result name,
// hash) tuple plus its lazily materialized value.
type Row struct {
	Experiment string
	Trial      string
	Process    string
	ResultName string
	Hash       string
	Value      any
}

// Extract walks the plan table and, for every row flagged as an experiment
// result, reads its value back from the cache. Ordering follows the plan
// table's own row order, which in turn is (experiment, trial, order) —
// stable and reproducible across runs.
func Extract(rows []planner.Row, store *cache.Store) ([]Row, error) {
	var out []Row
	for _, row := range rows {
		for i, flagged := range row.ResultsFlags {
			if !flagged {
				continue
			}
			hash := row.ResultHashes[i]
			value, err := store.Get(hash)
			if err != nil {
				return nil, fmt.Errorf("results: %s/%s.%s.%s: %w",
					row.Experiment, row.Trial, row.Name, row.ResultNames[i], err)
			}
			out = append(out, Row{
				Experiment: row.Experiment,
				Trial:      row.Trial,
				Process:    row.Name,
				ResultName: row.ResultNames[i],
				Hash:       hash,
				Value:      value,
			})
		}
	}
	return out, nil
}
