package expression

import (
	"fmt"

	"github.com/ayusman/islpose/internal/face"
	"github.com/ayusman/islpose/internal/pose"
)

// Offsets on the y channel. Negative moves up.
const (
	QuestionBrowDelta = -0.02
	QuestionEyeDelta  = -0.01
	HappyMouthDelta   = -0.015
	SadMouthDelta     = 0.015
	AngryBrowDelta    = 0.02
	AngryEyeDelta     = 0.005
)

// Mouth corner range shared by both mouth rings.
const (
	mouthCornerStart = 8
	mouthCornerEnd   = 11
)

// Adjust returns a copy of lm with keyword offsets applied for gloss. The
// input is not modified.
//
// Question words raise the eyebrows and widen the eyes. "happy" curves the
// mouth corners up, otherwise "sad" curves them down. "angry" lowers the
// eyebrows and narrows the eyes whatever the mouth rule did.
func Adjust(lm *face.Landmarks, gloss string) *face.Landmarks {
	if lm == nil {
		return nil
	}
	out := lm.Clone()

	if isQuestion(gloss) {
		shiftY(out, face.LeftEyebrow, 0, -1, QuestionBrowDelta)
		shiftY(out, face.RightEyebrow, 0, -1, QuestionBrowDelta)
		shiftY(out, face.LeftEye, 0, -1, QuestionEyeDelta)
		shiftY(out, face.RightEye, 0, -1, QuestionEyeDelta)
	}

	switch {
	case hasKeyword(gloss, "happy"):
		shiftY(out, face.MouthOuter, mouthCornerStart, mouthCornerEnd, HappyMouthDelta)
		shiftY(out, face.MouthInner, mouthCornerStart, mouthCornerEnd, HappyMouthDelta)
	case hasKeyword(gloss, "sad"):
		shiftY(out, face.MouthOuter, mouthCornerStart, mouthCornerEnd, SadMouthDelta)
		shiftY(out, face.MouthInner, mouthCornerStart, mouthCornerEnd, SadMouthDelta)
	}

	if hasKeyword(gloss, "angry") {
		shiftY(out, face.LeftEyebrow, 0, -1, AngryBrowDelta)
		shiftY(out, face.RightEyebrow, 0, -1, AngryBrowDelta)
		shiftY(out, face.LeftEye, 0, -1, AngryEyeDelta)
		shiftY(out, face.RightEye, 0, -1, AngryEyeDelta)
	}

	return out
}

// shiftY adds delta to the y of points [from, to) of group g. to < 0 means
// the end of the group.
func shiftY(lm *face.Landmarks, g face.Group, from, to int, delta float64) {
	points := lm.Groups[g]
	if to < 0 || to > len(points) {
		to = len(points)
	}
	for i := from; i < to; i++ {
		points[i].Y += delta
	}
}

// LandmarkStrategy writes a detected landmark snapshot, adjusted for the
// gloss, into every frame and person.
type LandmarkStrategy struct {
	Landmarks *face.Landmarks
}

// Apply implements Strategy.
func (s *LandmarkStrategy) Apply(p *pose.Pose, start int, gloss string) error {
	if s.Landmarks == nil {
		return fmt.Errorf("landmark strategy: %w", face.ErrDetectionUnavailable)
	}
	if err := s.Landmarks.Validate(); err != nil {
		return fmt.Errorf("landmark strategy: %w", err)
	}

	points := Adjust(s.Landmarks, gloss).Flatten()

	b := p.Body
	for f := 0; f < b.Frames(); f++ {
		for person := 0; person < b.People(); person++ {
			for i, pt := range points {
				setFacePoint(b, f, person, start+i, pt.X, pt.Y, pt.Z)
			}
		}
	}
	return nil
}
