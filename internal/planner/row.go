package planner

// Row is one process instance in the flat plan table (§3 ProcessInstance).
// has_run is intentionally not a field here: it is derived from the cache
// at execution time, not a property the planner can know in isolation.
type Row struct {
	Experiment string
	Trial      string
	Name       string

	FunctionName string
	Params       map[string]any

	SourceNames  []string
	SourceHashes []string

	ResultNames  []string
	ResultHashes []string
	ResultsFlags []bool

	// StructureHash is a hash of the trial's dependency graph shape (node
	// names and edges only, not params or source content). It lets a host
	// detect that a trial's wiring changed between two plans even when no
	// individual process's result hash did.
	StructureHash string

	Order int
}
