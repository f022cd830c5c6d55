// Package planner resolves a normalized Config into a flat, ordered plan
// table: one Row per process instance, each carrying resolved function
// reference, specialized parameters, and content hashes for every input
// and output (§4.3). The planner is a pure function of its inputs plus
// whatever the CacheStore already knows about declared sources — it
// invokes no process function itself.
package planner

// Config is the fully lowered configuration the planner consumes.
// Sugar such as `"foo: a,b -> x,y"` is lowered by the host before reaching
// this package; lowering itself is out of scope here.
type Config struct {
	// Sources maps a source label to a reference of the form
	// "hash:<digest>", "file:<filename>", or "value:<literal>".
	Sources map[string]string
	// Experiments maps an experiment name to its definition.
	Experiments map[string]Experiment
	// Parameters is the global parameter dict applied under every trial;
	// trial-specific overrides win over these.
	Parameters map[string]any
}

// Experiment is one DAG of processes plus its trials and surfaced results.
type Experiment struct {
	Structure  map[string]ProcessSpec
	Results    []string
	Trials     map[string]map[string]any
	Parameters map[string]any
}

// ProcessSpec declares one process node within an experiment's structure.
// Function defaults to the process's own name when empty.
type ProcessSpec struct {
	Function string
	Sources  []string
	Results  []string
}
