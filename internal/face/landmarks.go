package face

import (
	"errors"
	"fmt"

	"github.com/ayusman/islpose/internal/detector"
)

// ErrDetectionUnavailable is returned when no face was found in a frame.
// Callers treat it as "expressions unavailable", not as a fatal error.
var ErrDetectionUnavailable = errors.New("no face landmarks detected")

// MeshIndices maps each group to the face mesh landmark indices it is built
// from, in component order.
var MeshIndices = [NumGroups][]int{
	LeftEye:      {33, 133, 157, 158, 159, 160, 161, 246},
	RightEye:     {362, 263, 386, 387, 388, 389, 390, 466},
	LeftEyebrow:  {70, 63, 105, 66, 107},
	RightEyebrow: {300, 293, 334, 296, 336},
	MouthOuter:   {61, 185, 40, 39, 37, 0, 267, 269, 270, 409, 291, 375, 321, 405, 314, 17, 84, 181},
	MouthInner:   {78, 191, 80, 81, 82, 13, 312, 311, 310, 415, 308, 324, 318, 402, 317, 14, 87, 178},
}

// Landmarks holds the 3D points of every facial group.
type Landmarks struct {
	Groups [NumGroups][]detector.Point3D `json:"groups"`
}

// FromMesh selects the facial subset from a detected face mesh.
func FromMesh(mesh *detector.FaceMesh) (*Landmarks, error) {
	if mesh == nil || len(mesh.Points) == 0 {
		return nil, ErrDetectionUnavailable
	}

	lm := &Landmarks{}
	for _, g := range Groups() {
		points := make([]detector.Point3D, len(MeshIndices[g]))
		for i, idx := range MeshIndices[g] {
			p, ok := mesh.Point(idx)
			if !ok {
				return nil, fmt.Errorf("face mesh has %d landmarks, need index %d", len(mesh.Points), idx)
			}
			points[i] = p
		}
		lm.Groups[g] = points
	}
	return lm, nil
}

// Clone returns a deep copy of the landmarks.
func (l *Landmarks) Clone() *Landmarks {
	if l == nil {
		return nil
	}
	out := &Landmarks{}
	for g := range l.Groups {
		out.Groups[g] = append([]detector.Point3D(nil), l.Groups[g]...)
	}
	return out
}

// Validate checks that every group holds the number of points its spec requires.
func (l *Landmarks) Validate() error {
	for _, g := range Groups() {
		if got, want := len(l.Groups[g]), g.Spec().Len; got != want {
			return fmt.Errorf("landmarks %s: %d points, want %d", g, got, want)
		}
	}
	return nil
}

// Flatten returns all points in component order.
func (l *Landmarks) Flatten() []detector.Point3D {
	out := make([]detector.Point3D, 0, NumPoints)
	for _, g := range Groups() {
		out = append(out, l.Groups[g]...)
	}
	return out
}

// AverageLandmarks averages several snapshots point by point into one.
// All inputs must be valid.
func AverageLandmarks(samples []*Landmarks) (*Landmarks, error) {
	if len(samples) == 0 {
		return nil, ErrDetectionUnavailable
	}
	for i, s := range samples {
		if err := s.Validate(); err != nil {
			return nil, fmt.Errorf("sample %d: %w", i, err)
		}
	}

	n := float64(len(samples))
	averaged := &Landmarks{}
	for _, g := range Groups() {
		points := make([]detector.Point3D, g.Spec().Len)
		for i := range points {
			var sumX, sumY, sumZ float64
			for _, s := range samples {
				sumX += s.Groups[g][i].X
				sumY += s.Groups[g][i].Y
				sumZ += s.Groups[g][i].Z
			}
			points[i] = detector.Point3D{X: sumX / n, Y: sumY / n, Z: sumZ / n}
		}
		averaged.Groups[g] = points
	}
	return averaged, nil
}
