// Package analysis characterizes double pendulum trajectories.
//
//   - [PowerSpectrum]: windowed magnitude spectrum of an angle series
//   - [DominantFrequency]: strongest oscillation frequency in hertz
//   - [LyapunovExponent]: largest Lyapunov exponent via trajectory separation
//   - [LyapunovByComponent]: the same estimate offset along each component
//   - [PhasePortraitFromStates]: 2D phase space projection of a trajectory
//   - [GeneratePoincareSection]: section of phase space at a crossing
//   - [EnergySweep]: Poincaré values as the starting angle grows
//
// # Chaos Detection
//
// A positive largest Lyapunov exponent indicates chaotic dynamics:
//
//	lambda := analysis.LyapunovExponent(st, x0, dt, duration, 1e-8)
//	if lambda > 0 {
//	    // released high enough to tumble
//	}
//
// Damping pulls every trajectory toward rest, so over long windows the
// estimate drifts negative. Use short windows or [pendulum.NoDamping] to
// study the conservative dynamics.
package analysis
