// Package viz draws the double pendulum in the terminal.
//
//   - [Model]: Bubble Tea program that steps the pendulum once per frame
//   - [Canvas]: Braille-based pixel canvas for high-fidelity rendering
//   - Theme selection with 3 built-in color schemes
//
// Each frame measures the wall time since the previous one and feeds it to
// the stepper as dt. A model built with [NewFollowModel] does not step at
// all; it draws whatever snapshot a separate physics loop published last.
//
// # Key Bindings
//
//	Space - Pause/Resume simulation
//	R     - Reset to initial state
//	+/-   - More/less damping
//	T     - Cycle color themes
//	?     - Show help overlay
//	Q     - Quit
package viz
