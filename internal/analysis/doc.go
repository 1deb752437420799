// Package analysis summarises integration results.
//
//   - [Summarize]: per-component min, max, mean and standard deviation
//   - [NewPhasePortrait]: 2D projection of a trajectory, rendered with [PhasePortrait.ASCII]
//   - [NewPoincareSection]: interpolated crossings of a threshold
//
// Everything works on a finished [integrators.Result]; nothing here
// re-integrates.
package analysis
