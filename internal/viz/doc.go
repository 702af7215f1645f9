// Package viz renders runs in the terminal.
//
// [Graph] and [Graphs] draw asciigraph line charts for one-shot output,
// [Canvas] is a braille dot canvas used for phase planes, and [Viewer] is a
// Bubble Tea program for browsing a stored trajectory.
//
// # Key Bindings
//
//	Tab   - Next channel (speed, current, voltage, current_ref)
//	+ -   - Zoom the time window in and out
//	← →   - Pan the time window
//	0     - Show the whole run
//	P     - Toggle the current/speed phase plane
//	?     - Show help
//	Q     - Quit
package viz
