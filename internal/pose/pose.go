// Package pose provides the skeletal pose data model: a header describing
// named anatomical components and a body holding per-frame, per-person point
// coordinates with a parallel confidence array.
package pose

import (
	"errors"
	"fmt"
)

// VisibilityThreshold is the reference confidence at or below which a point
// is treated as absent for drawing and derived geometry.
const VisibilityThreshold = 0.2

var (
	// ErrStructuralMismatch is returned when the body's point axis disagrees
	// with the header's component listing.
	ErrStructuralMismatch = errors.New("structural mismatch")

	// ErrDuplicateComponent is returned when adding a component whose name
	// already exists in the header.
	ErrDuplicateComponent = errors.New("duplicate component")

	// ErrComponentNotFound is returned when a named component is absent.
	ErrComponentNotFound = errors.New("component not found")
)

// Visible reports whether a confidence value is above the given threshold.
func Visible(conf, threshold float64) bool {
	return conf > threshold
}

// Pose is a header plus a body. A Pose is owned by a single pipeline stage at
// a time and is not safe for concurrent mutation.
type Pose struct {
	Header *Header
	Body   *Body
}

// New creates a Pose and validates that header and body agree.
func New(h *Header, b *Body) (*Pose, error) {
	p := &Pose{Header: h, Body: b}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Validate checks that the data and confidence point axes match the total
// number of points declared by the header's components.
func (p *Pose) Validate() error {
	if p == nil || p.Header == nil || p.Body == nil {
		return fmt.Errorf("%w: missing header or body", ErrStructuralMismatch)
	}

	want := p.Header.TotalPoints()
	frames, people, points, dims := p.Body.Shape()
	if points != want {
		return fmt.Errorf("%w: body has %d points, header declares %d", ErrStructuralMismatch, points, want)
	}
	if len(p.Body.data) != frames*people*points*dims {
		return fmt.Errorf("%w: data length %d does not match shape", ErrStructuralMismatch, len(p.Body.data))
	}
	if len(p.Body.conf) != frames*people*points {
		return fmt.Errorf("%w: confidence length %d does not match shape", ErrStructuralMismatch, len(p.Body.conf))
	}
	return nil
}

// Clone returns a deep copy of the pose.
func (p *Pose) Clone() *Pose {
	return &Pose{
		Header: p.Header.Clone(),
		Body:   p.Body.Clone(),
	}
}

// WithComponent returns a copy of the pose with c appended to its header and
// the body grown to match. The receiver is left untouched.
func (p *Pose) WithComponent(c *Component) (*Pose, error) {
	if p.Header.ComponentIndex(c.Name) >= 0 {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateComponent, c.Name)
	}

	clone := p.Clone()
	if err := AddComponent(clone.Header, clone.Body, c); err != nil {
		return nil, err
	}
	return clone, nil
}

// AddComponent appends c to the header and grows the body's point axis by
// len(c.Points). New coordinates are zero and new confidences are 1.0.
// Existing points keep their indices and values. On error neither header nor
// body is modified.
func AddComponent(h *Header, b *Body, c *Component) error {
	if c == nil {
		return fmt.Errorf("add component: nil component")
	}
	if h.ComponentIndex(c.Name) >= 0 {
		return fmt.Errorf("%w: %s", ErrDuplicateComponent, c.Name)
	}
	if b.points != h.TotalPoints() {
		return fmt.Errorf("%w: body has %d points, header declares %d", ErrStructuralMismatch, b.points, h.TotalPoints())
	}
	if err := c.validate(); err != nil {
		return err
	}

	b.growPoints(len(c.Points), 1.0)
	h.Components = append(h.Components, c)
	return nil
}

// SliceTime returns a copy of the pose restricted to the frames between
// startMS and endMS. endMS <= 0 means the end of the pose.
func (p *Pose) SliceTime(startMS, endMS int) (*Pose, error) {
	fps := p.Body.FPS
	frames := p.Body.Frames()

	from := 0
	if startMS > 0 {
		from = int(float64(startMS) * fps / 1000)
	}
	to := frames
	if endMS > 0 {
		to = int(float64(endMS) * fps / 1000)
	}
	from = min(from, frames)
	to = min(max(to, from), frames)

	body, err := p.Body.SliceFrames(from, to)
	if err != nil {
		return nil, err
	}
	return &Pose{Header: p.Header.Clone(), Body: body}, nil
}
