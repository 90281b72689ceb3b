// Package pendulum implements the physics core of the double pendulum.
//
// The model is two equal-length links with the masses folded into the
// single ratio k = g/L:
//
//   - [Accelerations]: closed-form equations of motion
//   - [Step]: explicit Euler update followed by per-tick velocity damping
//   - [Stepper]: binds constants and damping for repeated stepping
//   - [Layout]: maps angles to screen-space pivots and bobs
//
// # Example
//
//	c := pendulum.NewConstants(9.81, 3.7)
//	st := pendulum.NewStepper(c, pendulum.DefaultDamping)
//	x := pendulum.State{Phi: 2.7, Psi: 2.2}
//	for range ticks {
//	    x = st.Step(x, dt)
//	}
//
// # Damping
//
// Forward Euler gains energy on this system. Step multiplies both angular
// velocities by a constant factor after every update. The factor is applied
// per call and is not scaled by dt, so its strength depends on the tick rate.
//
// # Thread Safety
//
// Everything here is a pure function of its arguments. State is a value
// type; hand copies across goroutines.
package pendulum
