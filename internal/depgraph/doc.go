// Package depgraph provides the dependency-graph primitives shared by the
// planner: structural validation (duplicate IDs, dangling edges, cycles),
// canonical normalization, deterministic hashing, and topological ordering.
//
// A Graph here is a generic node/edge skeleton keyed by string ID; it does
// not carry process parameters or outputs. The planner builds one of these
// per experiment/trial sub-plan to validate its shape, to derive a stable
// execution order, and to hash its wiring into Row.StructureHash.
package depgraph
