// Package viz renders system trees and running simulations in the terminal.
//
//   - [RenderTree]: static view of a context tree with its sources, cache
//     entries and prerequisites
//   - [Monitor]: Bubble Tea program stepping a model live with an energy
//     chart and cache traffic
//
// # Monitor Key Bindings
//
//	Space - Pause/Resume simulation
//	R     - Reset to initial state
//	C     - Toggle caching
//	Tab   - Cycle parameters
//	Up/K  - Increase parameter (+5%)
//	Down/J - Decrease parameter (-5%)
//	Q     - Quit
package viz
