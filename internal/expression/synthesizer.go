package expression

import (
	"fmt"
	"sync/atomic"

	"github.com/ayusman/islpose/internal/face"
	"github.com/ayusman/islpose/internal/pose"
)

// Config holds synthesizer settings.
type Config struct {
	Enabled bool `yaml:"enabled"`
}

// DefaultConfig returns a Config with expressions enabled.
func DefaultConfig() Config {
	return Config{Enabled: true}
}

// Synthesizer adds gloss-dependent facial expressions to poses. It may be
// switched on and off while in use.
type Synthesizer struct {
	enabled atomic.Bool
}

// NewSynthesizer creates a Synthesizer.
func NewSynthesizer(cfg Config) *Synthesizer {
	s := &Synthesizer{}
	s.enabled.Store(cfg.Enabled)
	return s
}

// Enabled reports whether Synthesize modifies poses.
func (s *Synthesizer) Enabled() bool {
	return s.enabled.Load()
}

// SetEnabled switches synthesis on or off for later calls.
func (s *Synthesizer) SetEnabled(enabled bool) {
	s.enabled.Store(enabled)
}

// StrategyFor selects the landmark strategy when landmarks are available and
// the procedural one otherwise.
func StrategyFor(lm *face.Landmarks) Strategy {
	if lm != nil {
		return &LandmarkStrategy{Landmarks: lm}
	}
	return ProceduralStrategy{}
}

// Synthesize returns a copy of p whose FACE component encodes the expression
// for gloss. The FACE component is appended when missing and overwritten in
// place otherwise. Non-facial points are never modified. When expressions
// are disabled p itself is returned.
func (s *Synthesizer) Synthesize(p *pose.Pose, gloss string, lm *face.Landmarks) (*pose.Pose, error) {
	if !s.Enabled() {
		return p, nil
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}

	out := p.Clone()
	if err := ensureFace(out); err != nil {
		return nil, err
	}

	start, err := out.Header.StartIndex(face.ComponentName)
	if err != nil {
		return nil, err
	}

	if err := StrategyFor(lm).Apply(out, start, gloss); err != nil {
		return nil, fmt.Errorf("synthesize %q: %w", gloss, err)
	}
	return out, nil
}

// ensureFace appends the FACE component if the header lacks it and checks
// the layout of an existing one.
func ensureFace(p *pose.Pose) error {
	if existing := p.Header.Component(face.ComponentName); existing != nil {
		if len(existing.Points) != face.NumPoints {
			return fmt.Errorf("%w: %s has %d points, want %d",
				pose.ErrStructuralMismatch, face.ComponentName, len(existing.Points), face.NumPoints)
		}
		return nil
	}

	c := face.Component()
	if dims := p.Body.Dims(); dims < len(c.PointFormat) {
		c.PointFormat = c.PointFormat[:dims]
	}
	return pose.AddComponent(p.Header, p.Body, c)
}
