// Package analysis inspects recorded traces.
//
//   - [DominantFrequency]: strongest oscillation in a sampled column
//   - [Spectrum]: one-sided amplitude spectrum
//   - [NewPortrait]: pairs two columns into a phase portrait
//
// Traces are sampled once per rendered frame, so the sample rate is the
// frame rate of the run, not the physics rate.
package analysis
