package expression

import (
	"math"
	"strings"

	"github.com/ayusman/islpose/internal/face"
	"github.com/ayusman/islpose/internal/pose"
)

// Procedural face parameters in normalized coordinates.
const (
	NeutralEyeY  = 0.5
	QuestionEyeY = 0.7
	BrowOffsetY  = 0.1

	NeutralMouthY = 0.3
	HappyMouthY   = 0.4
	SadMouthY     = 0.2

	leftFeatureX  = 0.3
	rightFeatureX = 0.7
	featureStepX  = 0.1

	mouthCenterX = 0.5
	outerRadiusX = 0.2
	outerRadiusY = 0.1
	innerRadiusX = 0.1
	innerRadiusY = 0.05
)

// ProceduralStrategy generates a parametric face when no landmarks were
// detected. The output depends only on the gloss.
type ProceduralStrategy struct{}

// Apply implements Strategy.
func (ProceduralStrategy) Apply(p *pose.Pose, start int, gloss string) error {
	geometry := proceduralFace(gloss)

	b := p.Body
	for f := 0; f < b.Frames(); f++ {
		for person := 0; person < b.People(); person++ {
			for i, pt := range geometry {
				setFacePoint(b, f, person, start+i, pt[0], pt[1], 0)
			}
		}
	}
	return nil
}

// proceduralFace returns x,y for all FACE points in component order.
func proceduralFace(gloss string) [][2]float64 {
	eyeY := NeutralEyeY
	if strings.Contains(gloss, "?") {
		eyeY = QuestionEyeY
	}
	browY := eyeY + BrowOffsetY

	mouthY := NeutralMouthY
	switch {
	case hasKeyword(gloss, "happy"):
		mouthY = HappyMouthY
	case hasKeyword(gloss, "sad"):
		mouthY = SadMouthY
	}

	out := make([][2]float64, 0, face.NumPoints)
	line := func(n int, x0, y float64) {
		for i := 0; i < n; i++ {
			out = append(out, [2]float64{x0 + featureStepX*float64(i), y})
		}
	}
	ring := func(n int, rx, ry float64) {
		for i := 0; i < n; i++ {
			angle := 2 * math.Pi * float64(i) / float64(n)
			out = append(out, [2]float64{mouthCenterX + rx*math.Cos(angle), mouthY + ry*math.Sin(angle)})
		}
	}

	line(face.LeftEye.Spec().Len, leftFeatureX, eyeY)
	line(face.RightEye.Spec().Len, rightFeatureX, eyeY)
	line(face.LeftEyebrow.Spec().Len, leftFeatureX, browY)
	line(face.RightEyebrow.Spec().Len, rightFeatureX, browY)
	ring(face.MouthOuter.Spec().Len, outerRadiusX, outerRadiusY)
	ring(face.MouthInner.Spec().Len, innerRadiusX, innerRadiusY)

	return out
}
