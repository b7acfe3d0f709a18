// Package physics builds mechanical models as system trees.
//
// Each model declares its state, parameters and input ports on a
// [framework.System] and exposes its intermediate quantities as cache
// entries with explicit prerequisites:
//
//   - [Pendulum]: damped pendulum driven by a torque input
//   - [SpringMass]: damped oscillator driven by a force input
//   - [Bank]: a diagram of independent spring-mass leaves with a
//     root-level total energy entry
//
// Contexts must be allocated through [Model.AllocateContext] so that
// diagram-level entries are wired to their subcontexts.
//
// # Energy
//
// Every model caches its energy. Reading it twice without touching the
// state costs one computation:
//
//	m := physics.NewPendulum()
//	ctx := m.AllocateContext()
//	e, _ := m.Energy(ctx)
package physics
