// Package scheduler reconciles the display's variable callback clock with
// the engine's fixed integration step.
package scheduler

// DefaultDriftMs is the largest lag, in milliseconds, the accumulator will
// try to catch up on. Anything larger (a stalled host, a backgrounded
// window) snaps the simulation clock forward instead of bursting steps.
const DefaultDriftMs = 35.0

// Accumulator tracks simulation time in milliseconds against callback
// timestamps.
type Accumulator struct {
	tSim    float64
	driftMs float64
	snaps   int
}

func New(driftMs float64) *Accumulator {
	if driftMs <= 0 {
		driftMs = DefaultDriftMs
	}
	return &Accumulator{driftMs: driftMs}
}

// Advance runs step until the simulation clock reaches tNow. dt is the
// engine timestep in seconds. It returns the number of steps taken.
//
// Post-condition for dt > 0: tSim >= tNow and tSim-tNow < dt*1000.
func (a *Accumulator) Advance(tNow, dt float64, step func()) int {
	if dt <= 0 {
		return 0
	}
	if tNow-a.tSim > a.driftMs {
		a.tSim = tNow
		a.snaps++
	}
	stepMs := dt * 1000.0
	n := 0
	for a.tSim < tNow {
		step()
		a.tSim += stepMs
		n++
	}
	return n
}

// Now returns the simulation clock in milliseconds.
func (a *Accumulator) Now() float64 { return a.tSim }

// Seconds returns the simulation clock in seconds.
func (a *Accumulator) Seconds() float64 { return a.tSim / 1000.0 }

// Snaps counts drift recoveries since construction.
func (a *Accumulator) Snaps() int { return a.snaps }

// Reset moves the clock to tMs without stepping.
func (a *Accumulator) Reset(tMs float64) { a.tSim = tMs }
