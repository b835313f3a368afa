// Package viz renders a gas system in the terminal.
//
// The live view is a Bubble Tea model that applies one update per frame:
//
//   - [Model]: box wireframe with particles, or a P-V trace, plus charts
//   - [App]: process picker and parameter editor in front of [Model]
//   - [Canvas]: Braille dot canvas used by both views and by SVG export
//
// # Key Bindings
//
//	Space - Pause/Resume
//	R     - Reset to a fresh system
//	V     - Toggle box / P-V view
//	C     - Cycle the chart field
//	S     - Snapshot the canvas
//	T     - Cycle color themes
//	?     - Show help overlay
package viz
