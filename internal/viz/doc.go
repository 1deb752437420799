// Package viz renders integration results in the terminal.
//
//   - [PlotComponent] and [PlotSteps]: asciigraph line plots
//   - [StatusBadge]: coloured integration status
//   - [Browser]: Bubble Tea program for paging through a trajectory
//
// # Browser key bindings
//
//	tab / shift+tab - next / previous component
//	left / right    - pan the time window
//	+ / -           - zoom in / out
//	p               - toggle phase portrait against the next component
//	t               - cycle colour themes
//	q               - quit
package viz
