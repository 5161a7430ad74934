package session

import (
	"github.com/go-gl/mathgl/mgl64"
)

// Command is a user control applied at the start of the next frame.
type Command interface {
	apply(s *Session)
}

// SetPaused pauses or resumes stepping.
type SetPaused struct{ Paused bool }

// TogglePause flips the paused flag.
type TogglePause struct{}

// Reset restores the initial state of the loaded scene.
type Reset struct{}

// Reload loads Scene, or reloads the current scene when Scene is empty.
type Reload struct{ Scene string }

// SetNoiseRate sets the noise correlation time in seconds.
type SetNoiseRate struct{ Rate float64 }

// SetNoiseStd sets the stationary noise deviation. Zero disables noise.
type SetNoiseStd struct{ Std float64 }

// BeginDrag grabs Body at the render-frame point Hit.
type BeginDrag struct {
	Body int
	Hit  mgl64.Vec3
}

// MoveDrag sets the pointer target in the render frame.
type MoveDrag struct{ Current mgl64.Vec3 }

// NudgeDrag shifts the pointer target by Delta.
type NudgeDrag struct{ Delta mgl64.Vec3 }

// EndDrag releases the grabbed body.
type EndDrag struct{}

func (c SetPaused) apply(s *Session) { s.paused = c.Paused }
func (TogglePause) apply(s *Session) { s.paused = !s.paused }

func (Reset) apply(s *Session) {
	if s.sim == nil {
		return
	}
	s.sim.ResetData()
	s.sim.Forward()
	s.log.WithField("scene", s.scene).Info("reset")
}

func (c Reload) apply(s *Session) {
	name := c.Scene
	if name == "" {
		name = s.scene
	}
	if err := s.load(name); err != nil {
		s.log.WithError(err).WithField("scene", name).Error("reload failed")
	}
}

func (c SetNoiseRate) apply(s *Session) {
	if c.Rate >= 0 {
		s.params.Rate = c.Rate
	}
}

func (c SetNoiseStd) apply(s *Session) {
	if c.Std >= 0 {
		s.params.Std = c.Std
	}
}

func (c BeginDrag) apply(s *Session) {
	if err := s.drag.Begin(s.view, c.Body, c.Hit); err != nil {
		s.log.WithError(err).WithField("body", c.Body).Debug("drag rejected")
	}
}

func (c MoveDrag) apply(s *Session)  { s.drag.Move(c.Current) }
func (c NudgeDrag) apply(s *Session) { s.drag.Nudge(c.Delta) }
func (EndDrag) apply(s *Session)     { s.drag.End() }
