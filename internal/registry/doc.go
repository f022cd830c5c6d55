// Package registry holds the explicit process and output name-to-callable
// maps the planner and executor resolve against. Population is the host's
// responsibility — there is no import-time global registration here, only
// an ordinary map the host builds before calling the planner.
package registry
