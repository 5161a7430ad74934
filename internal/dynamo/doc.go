// Package dynamo provides the numerical primitives the reference engine
// integrates with.
//
// The package defines the small vocabulary shared by the engine and the
// integrators:
//
//   - [State]: flat vector of generalized positions followed by velocities
//   - [System]: interface for ODE systems (dX/dt = f(X, u, t))
//   - [Integrator]: fixed-step numerical integrator
//
// # Example
//
//	integ := integrators.NewRK4()
//	sim, err := physics.New(scene, integ)
//	next := integ.Step(sim, x, u, t, dt)
//
// # Thread Safety
//
// Integrators keep scratch buffers between calls and are NOT thread-safe.
// Each engine instance owns its own integrator.
package dynamo
