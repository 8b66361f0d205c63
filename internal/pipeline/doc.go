// Package pipeline executes one job step: it resolves the step's processors,
// pre-checks all of them, then feeds the frame through each in order.
//
// The runner keeps no processor state between steps; it looks processors up
// in the registry every time and asks the registry to release processors the
// current step does not use.
package pipeline
