package planner

import (
	"sort"
	"strconv"
	"strings"

	"hyperlab/internal/cache"
	"hyperlab/internal/depgraph"
	"hyperlab/internal/registry"
)

const controlTrial = "control"

// Plan resolves cfg into a flat, ordered plan table (§4.3). store is used
// only for source resolution (keys_by, and ingesting "value:" literals);
// Plan never invokes a process function itself — that is the executor's
// job.
func Plan(cfg Config, store *cache.Store, processes *registry.Registry[registry.Process]) ([]Row, error) {
	sourceHashes, err := resolveSources(cfg.Sources, store)
	if err != nil {
		return nil, err
	}

	var rows []Row

	expNames := sortedKeys(cfg.Experiments)
	for _, expName := range expNames {
		exp := cfg.Experiments[expName]
		trialNames := trialNamesFor(exp)

		for _, trialName := range trialNames {
			trialRows, err := planTrial(expName, trialName, exp, cfg.Parameters, sourceHashes, processes)
			if err != nil {
				return nil, err
			}
			rows = append(rows, trialRows...)
		}
	}

	return rows, nil
}

// resolveSources implements §4.3 step 1: hash:/file:/value: resolution.
func resolveSources(sources map[string]string, store *cache.Store) (map[string]string, error) {
	resolved := make(map[string]string, len(sources))
	for _, label := range sortedKeys(sources) {
		ref := sources[label]
		kind, rest, ok := strings.Cut(ref, ":")
		if !ok {
			return nil, &SourceNotFoundError{Label: label, Ref: ref}
		}
		switch kind {
		case "hash":
			resolved[label] = rest
		case "file":
			hashes := store.KeysBy("filename", rest)
			if len(hashes) == 0 {
				return nil, &SourceNotFoundError{Label: label, Ref: ref}
			}
			resolved[label] = hashes[0]
		case "value":
			literal := parseLiteral(rest)
			h := valueHash(literal)
			if err := store.Put(h, literal, label, nil); err != nil {
				return nil, err
			}
			resolved[label] = h
		default:
			return nil, &SourceNotFoundError{Label: label, Ref: ref}
		}
	}
	return resolved, nil
}

// parseLiteral interprets the text after "value:" as a number or boolean
// where possible, falling back to the literal string. The parsed value is
// both what valueHash canonicalizes and what a process receives, so
// "value:1" and "value:1.0" resolve to the same hash.
func parseLiteral(s string) any {
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	if b, err := strconv.ParseBool(s); err == nil {
		return b
	}
	return s
}

// trialNamesFor returns every trial name for exp plus the synthetic
// "control" trial, sorted for deterministic iteration. control always has
// empty overrides regardless of what the config declares under that name
// (§9: "the synthetic trial control always exists and has no overrides").
func trialNamesFor(exp Experiment) []string {
	set := make(map[string]bool, len(exp.Trials)+1)
	set[controlTrial] = true
	for name := range exp.Trials {
		set[name] = true
	}
	names := make([]string, 0, len(set))
	for n := range set {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func planTrial(
	expName, trialName string,
	exp Experiment,
	globalParams map[string]any,
	sourceHashes map[string]string,
	processes *registry.Registry[registry.Process],
) ([]Row, error) {
	var overrides map[string]any
	if trialName == controlTrial {
		overrides = map[string]any{}
	} else {
		overrides = exp.Trials[trialName]
	}

	merged := mergeParams(globalParams, exp.Parameters, overrides)

	// 2a: structure override. Applied before anything else interprets params.
	// Only the three recognized structure fields are consumed here; any
	// other "<proc>.<field>" key (a per-process parameter override) is left
	// in remaining for 2c to pick up.
	structure := copyStructure(exp.Structure)
	remaining := make(map[string]any, len(merged))
	for key, val := range merged {
		proc, field, ok := splitStructureFieldKey(key, structure)
		if !ok {
			remaining[key] = val
			continue
		}
		spec := structure[proc]
		switch field {
		case "SOURCES":
			spec.Sources = toStringList(val)
		case "FUNCTION":
			if s, ok := val.(string); ok {
				spec.Function = s
			}
		case "RESULTS":
			spec.Results = toStringList(val)
		}
		structure[proc] = spec
	}

	// 2b: function resolution.
	funcNames := make(map[string]string, len(structure))
	procs := make(map[string]registry.Process, len(structure))
	for _, name := range sortedKeys(structure) {
		spec := structure[name]
		fn := spec.Function
		if fn == "" {
			fn = name
		}
		p, ok := processes.Get(fn)
		if !ok {
			return nil, &UnknownProcessError{Experiment: expName, Process: name, Function: fn}
		}
		funcNames[name] = fn
		procs[name] = p
	}

	// 2c continued: split remaining params into global values and
	// per-process overrides ("<proc>.<param>").
	globalVals := map[string]any{}
	perProcessOverrides := map[string]map[string]any{}
	for key, val := range remaining {
		proc, field, ok := splitProcessOverrideKey(key, structure)
		if ok {
			if perProcessOverrides[proc] == nil {
				perProcessOverrides[proc] = map[string]any{}
			}
			perProcessOverrides[proc][field] = val
			continue
		}
		globalVals[key] = val
	}

	// 2d: topological order.
	g := &depgraph.Graph{}
	for _, name := range sortedKeys(structure) {
		g.AddNode(name)
	}
	producer := make(map[string]string, len(structure))
	for _, name := range sortedKeys(structure) {
		for _, r := range structure[name].Results {
			producer[r] = name
		}
	}
	for _, name := range sortedKeys(structure) {
		for _, src := range structure[name].Sources {
			if p, ok := producer[src]; ok {
				g.AddEdge(p, name)
			}
		}
	}
	if err := depgraph.Validate(g); err != nil {
		return nil, &CyclicError{Experiment: expName, Trial: trialName, Msg: err.Error()}
	}
	order, err := depgraph.TopoSort(g)
	if err != nil {
		return nil, &CyclicError{Experiment: expName, Trial: trialName, Msg: err.Error()}
	}
	structureHash, err := depgraph.ComputeHash(g)
	if err != nil {
		return nil, err
	}

	// 2e/2f: hash derivation and result flagging, walking the topological
	// order so every source a process needs has already been assigned a
	// hash.
	labelToHash := make(map[string]string, len(sourceHashes)+len(structure))
	for k, v := range sourceHashes {
		labelToHash[k] = v
	}

	rows := make([]Row, 0, len(order))
	for idx, name := range order {
		spec := structure[name]

		params := specializeParams(procs[name].Params, globalVals, perProcessOverrides[name])

		srcHashes := make([]string, len(spec.Sources))
		for i, s := range spec.Sources {
			h, ok := labelToHash[s]
			if !ok {
				return nil, &SourceNotFoundError{Label: s, Ref: "unresolved source or result label"}
			}
			srcHashes[i] = h
		}

		base := baseDigest(funcNames[name], srcHashes, params)

		resultHashes := make([]string, len(spec.Results))
		resultsFlags := make([]bool, len(spec.Results))
		for i, r := range spec.Results {
			h := resultHash(base, r)
			resultHashes[i] = h
			labelToHash[r] = h
			resultsFlags[i] = contains(exp.Results, r)
		}

		rows = append(rows, Row{
			Experiment:    expName,
			Trial:         trialName,
			Name:          name,
			FunctionName:  funcNames[name],
			Params:        params,
			SourceNames:   spec.Sources,
			SourceHashes:  srcHashes,
			ResultNames:   spec.Results,
			ResultHashes:  resultHashes,
			ResultsFlags:  resultsFlags,
			StructureHash: structureHash,
			Order:         idx,
		})
	}

	return rows, nil
}

// structureOverrideFields are the recognized "<proc>.<FIELD>" names that 2a
// rewrites the structure itself with (spec.md: "SOURCES, FUNCTION, RESULTS").
// Any other dotted key is a per-process parameter override, not a structure
// override.
var structureOverrideFields = map[string]bool{
	"SOURCES":  true,
	"FUNCTION": true,
	"RESULTS":  true,
}

// splitDotKey reports whether key has the form "<proc>.<field>" where proc
// names an existing process in structure, regardless of what field is.
func splitDotKey(key string, structure map[string]ProcessSpec) (proc, field string, ok bool) {
	dot := strings.IndexByte(key, '.')
	if dot < 0 {
		return "", "", false
	}
	proc = key[:dot]
	field = key[dot+1:]
	if _, exists := structure[proc]; !exists {
		return "", "", false
	}
	return proc, field, true
}

// splitStructureFieldKey is splitDotKey narrowed to the three recognized
// structure-override fields (2a). A key like "a.n" is not a structure
// override even though "a" is a process name — it must fall through to
// splitProcessOverrideKey (2c) instead.
func splitStructureFieldKey(key string, structure map[string]ProcessSpec) (proc, field string, ok bool) {
	proc, field, ok = splitDotKey(key, structure)
	if !ok || !structureOverrideFields[field] {
		return "", "", false
	}
	return proc, field, true
}

// splitProcessOverrideKey is splitDotKey used for per-process parameter
// overrides (2c): any field name is accepted, since it names a parameter,
// not a structure field.
func splitProcessOverrideKey(key string, structure map[string]ProcessSpec) (proc, field string, ok bool) {
	return splitDotKey(key, structure)
}

func specializeParams(declared []string, globalVals map[string]any, overrides map[string]any) map[string]any {
	allowed := make(map[string]bool, len(declared))
	for _, d := range declared {
		allowed[d] = true
	}

	params := make(map[string]any, len(declared))
	for _, name := range declared {
		if v, ok := globalVals[name]; ok {
			params[name] = v
		}
	}
	// A process only ever sees the parameter names it advertised at
	// registration (§9 dynamic-signature introspection) — an override for
	// a name it never declared is dropped, not passed through.
	for name, v := range overrides {
		if allowed[name] {
			params[name] = v
		}
	}
	return params
}

func mergeParams(layers ...map[string]any) map[string]any {
	out := make(map[string]any)
	for _, layer := range layers {
		for k, v := range layer {
			out[k] = v
		}
	}
	return out
}

func copyStructure(structure map[string]ProcessSpec) map[string]ProcessSpec {
	out := make(map[string]ProcessSpec, len(structure))
	for name, spec := range structure {
		out[name] = ProcessSpec{
			Function: spec.Function,
			Sources:  append([]string(nil), spec.Sources...),
			Results:  append([]string(nil), spec.Results...),
		}
	}
	return out
}

func toStringList(v any) []string {
	switch val := v.(type) {
	case []string:
		return val
	case []any:
		out := make([]string, 0, len(val))
		for _, e := range val {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
