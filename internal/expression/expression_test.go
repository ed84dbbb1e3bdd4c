package expression

import (
	"bytes"
	"errors"
	"fmt"
	"image/color"
	"math"
	"testing"

	"github.com/ayusman/islpose/internal/detector"
	"github.com/ayusman/islpose/internal/face"
	"github.com/ayusman/islpose/internal/pose"
)

const epsilon = 1e-12

// newBodyPose returns a pose with one POSE_BODY component whose points carry
// distinct values.
func newBodyPose(t *testing.T, frames, people, points, dims int) *pose.Pose {
	t.Helper()

	c := &pose.Component{Name: "POSE_BODY", PointFormat: []string{"x", "y", "z"}[:dims]}
	for i := 0; i < points; i++ {
		c.Points = append(c.Points, fmt.Sprintf("body_%d", i))
		c.Colors = append(c.Colors, color.RGBA{R: 255, A: 255})
	}
	h := &pose.Header{
		Version:    pose.FormatVersion,
		Dimensions: pose.Dimensions{Width: 640, Height: 480},
		Components: []*pose.Component{c},
	}

	b := pose.NewBody(25, frames, people, points, dims)
	for f := 0; f < frames; f++ {
		for p := 0; p < people; p++ {
			for i := 0; i < points; i++ {
				for ch := 0; ch < dims; ch++ {
					b.Set(f, p, i, ch, float64(f*100+p*10+i)+float64(ch)/10)
				}
				b.SetConfidence(f, p, i, 0.75)
			}
		}
	}

	ps, err := pose.New(h, b)
	if err != nil {
		t.Fatalf("pose.New() error = %v", err)
	}
	return ps
}

func baseLandmarks(t *testing.T) *face.Landmarks {
	t.Helper()
	mesh := detector.SyntheticFaceMesh()
	lm, err := face.FromMesh(&mesh)
	if err != nil {
		t.Fatalf("FromMesh() error = %v", err)
	}
	return lm
}

func assertShift(t *testing.T, base, got *face.Landmarks, g face.Group, from, to int, want float64) {
	t.Helper()
	for i := from; i < to; i++ {
		if d := got.Groups[g][i].Y - base.Groups[g][i].Y; math.Abs(d-want) > epsilon {
			t.Errorf("%s[%d]: expected y shift %v, got %v", g, i, want, d)
		}
	}
}

func TestAdjust_QuestionWords(t *testing.T) {
	base := baseLandmarks(t)
	neutral := Adjust(base, "cat")
	question := Adjust(base, "What is this?")

	assertShift(t, neutral, question, face.LeftEyebrow, 0, 5, -0.02)
	assertShift(t, neutral, question, face.RightEyebrow, 0, 5, -0.02)
	assertShift(t, neutral, question, face.LeftEye, 0, 8, -0.01)
	assertShift(t, neutral, question, face.RightEye, 0, 8, -0.01)
	assertShift(t, neutral, question, face.MouthOuter, 0, 18, 0)

	for _, gloss := range []string{"WHERE", "when", "Who", "why", "HOW-MANY"} {
		t.Run(gloss, func(t *testing.T) {
			assertShift(t, base, Adjust(base, gloss), face.LeftEyebrow, 0, 5, -0.02)
		})
	}
}

func TestAdjust_Mouth(t *testing.T) {
	base := baseLandmarks(t)

	tests := []struct {
		gloss string
		shift float64
	}{
		{"I am happy", -0.015},
		{"I am sad", 0.015},
		{"I am tired", 0},
		{"HAPPY and SAD", -0.015},
	}
	for _, tt := range tests {
		t.Run(tt.gloss, func(t *testing.T) {
			got := Adjust(base, tt.gloss)
			for _, g := range []face.Group{face.MouthOuter, face.MouthInner} {
				assertShift(t, base, got, g, 8, 11, tt.shift)
				assertShift(t, base, got, g, 0, 8, 0)
				assertShift(t, base, got, g, 11, 18, 0)
			}
			if tt.shift < 0 && got.Groups[face.MouthOuter][9].Y >= base.Groups[face.MouthOuter][9].Y {
				t.Error("expected mouth corner above baseline")
			}
			if tt.shift > 0 && got.Groups[face.MouthOuter][9].Y <= base.Groups[face.MouthOuter][9].Y {
				t.Error("expected mouth corner below baseline")
			}
		})
	}
}

func TestAdjust_AngryIsIndependent(t *testing.T) {
	base := baseLandmarks(t)

	got := Adjust(base, "happy but angry")
	assertShift(t, base, got, face.MouthOuter, 8, 11, -0.015)
	assertShift(t, base, got, face.LeftEyebrow, 0, 5, 0.02)
	assertShift(t, base, got, face.RightEye, 0, 8, 0.005)

	combined := Adjust(base, "why angry")
	assertShift(t, base, combined, face.LeftEyebrow, 0, 5, 0)
	assertShift(t, base, combined, face.LeftEye, 0, 8, -0.005)
}

func TestAdjust_DoesNotModifyInput(t *testing.T) {
	base := baseLandmarks(t)
	before := base.Clone()

	Adjust(base, "what happy angry")

	for _, g := range face.Groups() {
		for i := range base.Groups[g] {
			if base.Groups[g][i] != before.Groups[g][i] {
				t.Fatalf("%s[%d] modified", g, i)
			}
		}
	}
	if Adjust(nil, "what") != nil {
		t.Error("expected nil for nil landmarks")
	}
}

func TestSynthesize_AddsFace(t *testing.T) {
	in := newBodyPose(t, 3, 1, 10, 3)
	s := NewSynthesizer(DefaultConfig())

	out, err := s.Synthesize(in, "cat", nil)
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}

	if got := out.Body.DataShape(); got != [4]int{3, 1, 72, 3} {
		t.Errorf("expected data shape [3 1 72 3], got %v", got)
	}
	if got := out.Header.ComponentNames(); len(got) != 2 || got[1] != face.ComponentName {
		t.Errorf("expected FACE appended, got %v", got)
	}
	if in.Header.ComponentIndex(face.ComponentName) >= 0 || in.Body.Points() != 10 {
		t.Error("input pose was modified")
	}

	for f := 0; f < 3; f++ {
		for i := 0; i < 10; i++ {
			for ch := 0; ch < 3; ch++ {
				if out.Body.At(f, 0, i, ch) != in.Body.At(f, 0, i, ch) {
					t.Fatalf("body point %d changed in frame %d", i, f)
				}
			}
		}
		if c := out.Body.Confidence(f, 0, 10); c != 1.0 {
			t.Errorf("expected facial confidence 1.0, got %v", c)
		}
	}
}

func TestSynthesize_ProceduralValues(t *testing.T) {
	s := NewSynthesizer(DefaultConfig())

	tests := []struct {
		gloss  string
		eyeY   float64
		mouthY float64
	}{
		{"cat", NeutralEyeY, NeutralMouthY},
		{"cat?", QuestionEyeY, NeutralMouthY},
		{"Happy", NeutralEyeY, HappyMouthY},
		{"sad?", QuestionEyeY, SadMouthY},
	}
	for _, tt := range tests {
		t.Run(tt.gloss, func(t *testing.T) {
			out, err := s.Synthesize(newBodyPose(t, 2, 2, 4, 3), tt.gloss, nil)
			if err != nil {
				t.Fatalf("Synthesize() error = %v", err)
			}
			start := 4
			b := out.Body

			if got := b.Point(1, 1, start+2); math.Abs(got[0]-0.5) > epsilon || got[1] != tt.eyeY || got[2] != 0 {
				t.Errorf("left_eye_3: expected (0.5, %v, 0), got %v", tt.eyeY, got)
			}
			if got := b.At(0, 0, start+16, 1); math.Abs(got-(tt.eyeY+BrowOffsetY)) > epsilon {
				t.Errorf("left_eyebrow_1: expected y %v, got %v", tt.eyeY+BrowOffsetY, got)
			}
			// Angle 0 sits on the right of each ring.
			if x, y := b.At(0, 0, start+26, 0), b.At(0, 0, start+26, 1); math.Abs(x-0.7) > epsilon || y != tt.mouthY {
				t.Errorf("mouth_outer_1: expected (0.7, %v), got (%v, %v)", tt.mouthY, x, y)
			}
			if x := b.At(0, 0, start+44, 0); math.Abs(x-0.6) > epsilon {
				t.Errorf("mouth_inner_1: expected x 0.6, got %v", x)
			}
			// Index 9 is the half turn.
			if y := b.At(0, 0, start+26+9, 1); math.Abs(y-tt.mouthY) > 1e-9 {
				t.Errorf("mouth_outer_10: expected y %v, got %v", tt.mouthY, y)
			}
		})
	}
}

func TestSynthesize_Idempotent(t *testing.T) {
	s := NewSynthesizer(DefaultConfig())
	in := newBodyPose(t, 2, 1, 5, 3)

	first, err := s.Synthesize(in, "where happy?", nil)
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	second, err := s.Synthesize(in, "where happy?", nil)
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	if !equalFloats(first.Body.Data(), second.Body.Data()) {
		t.Error("procedural synthesis is not deterministic")
	}

	again, err := s.Synthesize(first, "where happy?", nil)
	if err != nil {
		t.Fatalf("Synthesize() on synthesized pose error = %v", err)
	}
	if again.Body.Points() != first.Body.Points() {
		t.Errorf("expected FACE overwritten in place, got %d points", again.Body.Points())
	}
	if !equalFloats(first.Body.Data(), again.Body.Data()) {
		t.Error("re-synthesis changed facial coordinates")
	}
}

func TestSynthesize_OverwritesExistingFace(t *testing.T) {
	s := NewSynthesizer(DefaultConfig())
	withFace, err := newBodyPose(t, 1, 1, 3, 3).WithComponent(face.Component())
	if err != nil {
		t.Fatalf("WithComponent() error = %v", err)
	}
	withFace.Body.SetConfidence(0, 0, 3, 0.1)

	out, err := s.Synthesize(withFace, "cat", nil)
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	if out.Body.Points() != 3+face.NumPoints {
		t.Errorf("expected %d points, got %d", 3+face.NumPoints, out.Body.Points())
	}
	if out.Body.At(0, 0, 3, 1) != NeutralEyeY {
		t.Errorf("expected overwritten eye y, got %v", out.Body.At(0, 0, 3, 1))
	}
	if out.Body.Confidence(0, 0, 3) != 0.1 {
		t.Error("expected existing facial confidence kept")
	}

	t.Run("wrong FACE layout", func(t *testing.T) {
		bad, err := newBodyPose(t, 1, 1, 3, 3).WithComponent(&pose.Component{
			Name: face.ComponentName, Points: []string{"nose"}, PointFormat: []string{"x", "y", "z"},
		})
		if err != nil {
			t.Fatalf("WithComponent() error = %v", err)
		}
		if _, err := s.Synthesize(bad, "cat", nil); !errors.Is(err, pose.ErrStructuralMismatch) {
			t.Errorf("expected ErrStructuralMismatch, got %v", err)
		}
	})
}

func TestSynthesize_Landmarks(t *testing.T) {
	s := NewSynthesizer(DefaultConfig())
	lm := baseLandmarks(t)

	out, err := s.Synthesize(newBodyPose(t, 2, 2, 4, 3), "what", lm)
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}

	want := Adjust(lm, "what").Flatten()
	for f := 0; f < 2; f++ {
		for p := 0; p < 2; p++ {
			for i, pt := range want {
				got := out.Body.Point(f, p, 4+i)
				if got[0] != pt.X || got[1] != pt.Y || got[2] != pt.Z {
					t.Fatalf("frame %d person %d point %d: expected %+v, got %v", f, p, i, pt, got)
				}
			}
		}
	}

	t.Run("invalid landmarks", func(t *testing.T) {
		bad := lm.Clone()
		bad.Groups[face.MouthInner] = nil
		if _, err := s.Synthesize(newBodyPose(t, 1, 1, 2, 3), "what", bad); err == nil {
			t.Error("expected error for incomplete landmarks")
		}
	})
}

func TestSynthesize_TwoChannelBody(t *testing.T) {
	s := NewSynthesizer(DefaultConfig())

	out, err := s.Synthesize(newBodyPose(t, 1, 1, 2, 2), "cat", nil)
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	if got := out.Header.Component(face.ComponentName).PointFormat; len(got) != 2 {
		t.Errorf("expected x,y point format, got %v", got)
	}

	var buf bytes.Buffer
	if err := out.Write(&buf); err != nil {
		t.Errorf("Write() error = %v", err)
	}
}

func TestSynthesize_Disabled(t *testing.T) {
	s := NewSynthesizer(Config{Enabled: false})
	in := newBodyPose(t, 1, 1, 2, 3)

	out, err := s.Synthesize(in, "what", nil)
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	if out != in {
		t.Error("expected the input pose to be returned")
	}
	if s.Enabled() {
		t.Error("expected Enabled() false")
	}

	s.SetEnabled(true)
	out, err = s.Synthesize(in, "what", nil)
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	if out.Header.Component(face.ComponentName) == nil {
		t.Error("expected FACE after re-enabling")
	}
}

func TestStrategyFor(t *testing.T) {
	if _, ok := StrategyFor(nil).(ProceduralStrategy); !ok {
		t.Error("expected procedural strategy without landmarks")
	}
	if _, ok := StrategyFor(&face.Landmarks{}).(*LandmarkStrategy); !ok {
		t.Error("expected landmark strategy with landmarks")
	}
}

func equalFloats(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
