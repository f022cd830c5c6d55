// Command hyperlab is the thin outer shell around the planner, executor
// and cache: it resolves a config path and a cache directory (from flags
// or environment, per §6), builds the plan, runs it, and prints surfaced
// results. Config-sugar lowering, scaffolding, plotting and progress
// display remain out of scope (§1) — this is wiring, not a reimplementation
// of those concerns.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"hyperlab/internal/cache"
	"hyperlab/internal/depgraph"
	"hyperlab/internal/executor"
	"hyperlab/internal/planner"
	"hyperlab/internal/results"
)

// Exit codes mirror §7's "User-visible behavior": one non-zero code per
// failure phase (config/cache loading, planning, execution), the cache left
// recoverable. The error kind itself is printed by printKindedError.
const (
	exitSuccess = 0
	exitUsage   = 2
	exitPlan    = 3
	exitExec    = 4
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	v := viper.New()
	v.SetEnvPrefix("HYPERLAB")
	v.AutomaticEnv()
	v.SetDefault("config", "hyperlab.yaml")
	v.SetDefault("cache_dir", ".hyperlab-cache")

	root := &cobra.Command{
		Use:           "hyperlab",
		Short:         "Plan and run hyperparameter experiment DAGs against a content-addressed cache",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("config", "", "path to a pre-lowered config document")
	root.PersistentFlags().String("cache-dir", "", "cache directory")
	v.BindPFlag("config", root.PersistentFlags().Lookup("config"))
	v.BindPFlag("cache_dir", root.PersistentFlags().Lookup("cache-dir"))

	var exitCode int

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Plan and execute every unresolved process, then print surfaced results",
		RunE: func(cmd *cobra.Command, _ []string) error {
			exitCode = doRun(v)
			if exitCode != exitSuccess {
				return fmt.Errorf("exit %d", exitCode)
			}
			return nil
		},
	}

	planCmd := &cobra.Command{
		Use:   "plan",
		Short: "Print the plan table without executing anything",
		RunE: func(cmd *cobra.Command, _ []string) error {
			exitCode = doPlan(v)
			if exitCode != exitSuccess {
				return fmt.Errorf("exit %d", exitCode)
			}
			return nil
		},
	}

	root.AddCommand(runCmd, planCmd)
	root.SetArgs(args)

	if err := root.Execute(); err != nil {
		if exitCode != exitSuccess {
			return exitCode
		}
		fmt.Fprintln(os.Stderr, err)
		return exitUsage
	}
	return exitCode
}

func doPlan(v *viper.Viper) int {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	cfg, store, err := loadAndOpen(v, logger)
	if err != nil {
		printKindedError(err)
		return exitUsage
	}

	rows, err := planner.Plan(cfg, store, builtinProcesses())
	if err != nil {
		printKindedError(err)
		return exitPlan
	}

	for _, row := range rows {
		fmt.Printf("%s/%s.%s\torder=%d\tresults=%v\n", row.Experiment, row.Trial, row.Name, row.Order, row.ResultNames)
	}
	return exitSuccess
}

func doRun(v *viper.Viper) int {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	cfg, store, err := loadAndOpen(v, logger)
	if err != nil {
		printKindedError(err)
		return exitUsage
	}

	processes := builtinProcesses()
	rows, err := planner.Plan(cfg, store, processes)
	if err != nil {
		printKindedError(err)
		return exitPlan
	}

	ex := executor.New(store, processes)
	ex.Logger = logger
	if _, err := ex.Run(context.Background(), rows); err != nil {
		printKindedError(err)
		return exitExec
	}

	extracted, err := results.Extract(rows, store)
	if err != nil {
		printKindedError(err)
		return exitExec
	}

	outputs := builtinOutputs()
	sink, _ := outputs.Get("print")
	for _, r := range extracted {
		fmt.Printf("%s/%s.%s.%s = ", r.Experiment, r.Trial, r.Process, r.ResultName)
		if err := sink(r.Value); err != nil {
			printKindedError(err)
			return exitExec
		}
	}
	return exitSuccess
}

func loadAndOpen(v *viper.Viper, logger *zap.Logger) (planner.Config, *cache.Store, error) {
	cfg, err := loadConfig(v.GetString("config"))
	if err != nil {
		return planner.Config{}, nil, err
	}
	store, err := cache.Open(v.GetString("cache_dir"), logger)
	if err != nil {
		return planner.Config{}, nil, err
	}
	return cfg, store, nil
}

// printKindedError prints "<kind>: <message>" per §7; the kind is derived
// from whichever sentinel the error wraps.
func printKindedError(err error) {
	kind := "error"
	switch {
	case errors.Is(err, planner.ErrSourceNotFound):
		kind = "SourceNotFound"
	case errors.Is(err, planner.ErrUnknownProcess):
		kind = "UnknownProcess"
	case errors.Is(err, planner.ErrCyclic):
		kind = "Cyclic"
	case errors.Is(err, depgraph.ErrStructural):
		kind = "Cyclic"
	case errors.Is(err, executor.ErrMissingInput):
		kind = "MissingInput"
	case errors.Is(err, executor.ErrArity):
		kind = "ArityError"
	case errors.Is(err, executor.ErrUnknownProcess):
		kind = "UnknownProcess"
	case errors.Is(err, cache.ErrNotFound):
		kind = "NotFound"
	case errors.Is(err, cache.ErrCorruptObject):
		kind = "CorruptObject"
	}
	fmt.Fprintf(os.Stderr, "%s: %v\n", kind, err)
}
