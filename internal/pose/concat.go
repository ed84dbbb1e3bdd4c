package pose

import (
	"errors"
	"fmt"
)

// ErrNoPoses is returned when concatenating an empty sequence.
var ErrNoPoses = errors.New("no poses to concatenate")

// Concatenate joins poses into one timeline. All inputs must share the same
// component layout, people count and channel count; frame counts are summed.
// The header and fps of the first pose are used for the result.
func Concatenate(poses []*Pose) (*Pose, error) {
	if len(poses) == 0 {
		return nil, ErrNoPoses
	}

	first := poses[0]
	if err := first.Validate(); err != nil {
		return nil, fmt.Errorf("pose 0: %w", err)
	}

	frames := 0
	for i, p := range poses {
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("pose %d: %w", i, err)
		}
		if err := sameLayout(first, p); err != nil {
			return nil, fmt.Errorf("pose %d: %w", i, err)
		}
		frames += p.Body.frames
	}

	fb := first.Body
	data := make([]float64, 0, frames*fb.people*fb.points*fb.dims)
	conf := make([]float64, 0, frames*fb.people*fb.points)
	for _, p := range poses {
		data = append(data, p.Body.data...)
		conf = append(conf, p.Body.conf...)
	}

	body, err := NewBodyFromSlices(fb.FPS, frames, fb.people, fb.points, fb.dims, data, conf)
	if err != nil {
		return nil, err
	}
	return New(first.Header.Clone(), body)
}

func sameLayout(a, b *Pose) error {
	an, bn := a.Header.ComponentNames(), b.Header.ComponentNames()
	if len(an) != len(bn) {
		return fmt.Errorf("%w: %d components, want %d", ErrStructuralMismatch, len(bn), len(an))
	}
	for i := range an {
		if an[i] != bn[i] {
			return fmt.Errorf("%w: component %d is %s, want %s", ErrStructuralMismatch, i, bn[i], an[i])
		}
		if len(a.Header.Components[i].Points) != len(b.Header.Components[i].Points) {
			return fmt.Errorf("%w: component %s point count differs", ErrStructuralMismatch, an[i])
		}
	}
	if a.Body.people != b.Body.people || a.Body.dims != b.Body.dims {
		return fmt.Errorf("%w: people/channels differ", ErrStructuralMismatch)
	}
	return nil
}
