package assemble

import (
	"context"
	"errors"
	"fmt"
	"image/color"
	"strings"
	"sync"
	"testing"

	"github.com/ayusman/islpose/internal/anonymize"
	"github.com/ayusman/islpose/internal/expression"
	"github.com/ayusman/islpose/internal/face"
	"github.com/ayusman/islpose/internal/lookup"
	"github.com/ayusman/islpose/internal/pose"
)

func newBodyPose(t *testing.T, frames int, x float64) *pose.Pose {
	t.Helper()

	h := &pose.Header{
		Version:    pose.FormatVersion,
		Dimensions: pose.Dimensions{Width: 100, Height: 100},
		Components: []*pose.Component{{
			Name:        "POSE_BODY",
			Points:      []string{"left", "right"},
			Limbs:       [][2]int{{0, 1}},
			Colors:      []color.RGBA{{R: 255, A: 255}, {G: 255, A: 255}},
			PointFormat: []string{"x", "y", "z"},
		}},
	}
	b := pose.NewBody(25, frames, 1, 2, 3)
	for f := 0; f < frames; f++ {
		b.SetPoint(f, 0, 0, x, 10, 0)
		b.SetPoint(f, 0, 1, x+1, 10, 0)
		b.SetConfidence(f, 0, 0, 1)
		b.SetConfidence(f, 0, 1, 1)
	}
	p, err := pose.New(h, b)
	if err != nil {
		t.Fatalf("pose.New() error = %v", err)
	}
	return p
}

type fakeLookup struct {
	poses map[string]*pose.Pose
	err   error
}

func (l *fakeLookup) LookupSequence(ctx context.Context, glosses []string, spoken, signed, source string) ([]*pose.Pose, error) {
	if l.err != nil {
		return nil, l.err
	}
	out := make([]*pose.Pose, 0, len(glosses))
	for _, g := range glosses {
		p, ok := l.poses[g]
		if !ok {
			return nil, fmt.Errorf("%w: %q", lookup.ErrLookupMiss, g)
		}
		out = append(out, p)
	}
	return out, nil
}

// fakeAnonymizer shifts x by a fixed offset and records calls.
type fakeAnonymizer struct {
	mu        sync.Mutex
	removes   int
	transfers int
	refs      []*pose.Pose
	err       error
}

func (a *fakeAnonymizer) shift(p *pose.Pose, dx float64) *pose.Pose {
	frames, people, points, _ := p.Body.Shape()
	for f := 0; f < frames; f++ {
		for person := 0; person < people; person++ {
			for pt := 0; pt < points; pt++ {
				p.Body.Set(f, person, pt, 0, p.Body.At(f, person, pt, 0)+dx)
			}
		}
	}
	return p
}

func (a *fakeAnonymizer) RemoveAppearance(ctx context.Context, p *pose.Pose) (*pose.Pose, error) {
	a.mu.Lock()
	a.removes++
	a.mu.Unlock()
	if a.err != nil {
		return nil, a.err
	}
	return a.shift(p, 1000), nil
}

func (a *fakeAnonymizer) TransferAppearance(ctx context.Context, p, ref *pose.Pose) (*pose.Pose, error) {
	a.mu.Lock()
	a.transfers++
	a.refs = append(a.refs, ref)
	a.mu.Unlock()
	if a.err != nil {
		return nil, a.err
	}
	return a.shift(p, 2000), nil
}

func newAssembler(t *testing.T, an anonymize.Anonymizer) (*Assembler, *fakeLookup) {
	t.Helper()

	l := &fakeLookup{poses: map[string]*pose.Pose{
		"HELLO": newBodyPose(t, 2, 10),
		"WORLD": newBodyPose(t, 3, 20),
		"HAPPY": newBodyPose(t, 1, 30),
	}}
	return New(l, an, nil), l
}

func TestGlossToPose(t *testing.T) {
	a, l := newAssembler(t, nil)

	p, err := a.GlossToPose(context.Background(), Request{
		Glosses:           []string{"HELLO", "WORLD", "HELLO"},
		SpokenLanguage:    "en",
		SignedLanguage:    "ins",
		EnableExpressions: true,
	})
	if err != nil {
		t.Fatalf("GlossToPose() error = %v", err)
	}

	if got := p.Body.Frames(); got != 7 {
		t.Errorf("expected 7 frames, got %d", got)
	}
	if p.Header.Component(face.ComponentName) == nil {
		t.Fatal("expected FACE component")
	}
	if got := p.Body.Points(); got != 2+face.NumPoints {
		t.Errorf("expected %d points, got %d", 2+face.NumPoints, got)
	}

	// Frame order follows gloss order.
	wantX := []float64{10, 10, 20, 20, 20, 10, 10}
	for f, want := range wantX {
		if got := p.Body.At(f, 0, 0, 0); got != want {
			t.Errorf("frame %d: expected x %v, got %v", f, want, got)
		}
	}

	if l.poses["HELLO"].Header.Component(face.ComponentName) != nil {
		t.Error("lookup pose was modified")
	}
}

func TestGlossToPose_ExpressionsDisabled(t *testing.T) {
	a, _ := newAssembler(t, nil)

	p, err := a.GlossToPose(context.Background(), Request{Glosses: []string{"HELLO"}})
	if err != nil {
		t.Fatalf("GlossToPose() error = %v", err)
	}
	if p.Header.Component(face.ComponentName) != nil {
		t.Error("expected no FACE component")
	}

	a.Synthesizer = expression.NewSynthesizer(expression.Config{Enabled: false})
	p, err = a.GlossToPose(context.Background(), Request{Glosses: []string{"HELLO"}, EnableExpressions: true})
	if err != nil {
		t.Fatalf("GlossToPose() error = %v", err)
	}
	if p.Header.Component(face.ComponentName) != nil {
		t.Error("disabled synthesizer should not add FACE")
	}
}

func TestGlossToPose_Errors(t *testing.T) {
	a, _ := newAssembler(t, nil)
	ctx := context.Background()

	t.Run("empty", func(t *testing.T) {
		if _, err := a.GlossToPose(ctx, Request{}); !errors.Is(err, ErrEmptyGlosses) {
			t.Errorf("expected ErrEmptyGlosses, got %v", err)
		}
	})

	t.Run("lookup miss", func(t *testing.T) {
		_, err := a.GlossToPose(ctx, Request{Glosses: []string{"HELLO", "UNKNOWN"}})
		if !errors.Is(err, lookup.ErrLookupMiss) {
			t.Errorf("expected ErrLookupMiss, got %v", err)
		}
	})

	t.Run("anonymizer missing", func(t *testing.T) {
		_, err := a.GlossToPose(ctx, Request{Glosses: []string{"HELLO"}, Anonymize: AnonymizeRemove})
		if !errors.Is(err, anonymize.ErrOptionalDependencyMissing) {
			t.Fatalf("expected ErrOptionalDependencyMissing, got %v", err)
		}
		if !strings.Contains(err.Error(), "please install") {
			t.Errorf("expected install hint, got %v", err)
		}
	})

	t.Run("layout mismatch", func(t *testing.T) {
		withFace, err := newBodyPose(t, 1, 0).WithComponent(face.Component())
		if err != nil {
			t.Fatalf("WithComponent() error = %v", err)
		}
		a, l := newAssembler(t, nil)
		l.poses["FACED"] = withFace
		_, err = a.GlossToPose(ctx, Request{Glosses: []string{"HELLO", "FACED"}})
		if !errors.Is(err, pose.ErrStructuralMismatch) {
			t.Errorf("expected ErrStructuralMismatch, got %v", err)
		}
	})

	t.Run("cancelled", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		if _, err := a.GlossToPose(cctx, Request{Glosses: []string{"HELLO"}}); !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})
}

func TestGlossToPose_Anonymize(t *testing.T) {
	ctx := context.Background()

	t.Run("remove", func(t *testing.T) {
		an := &fakeAnonymizer{}
		a, _ := newAssembler(t, an)
		p, err := a.GlossToPose(ctx, Request{Glosses: []string{"HELLO", "WORLD"}, Anonymize: AnonymizeRemove})
		if err != nil {
			t.Fatalf("GlossToPose() error = %v", err)
		}
		if an.removes != 2 || an.transfers != 0 {
			t.Errorf("expected 2 removes, got %d removes %d transfers", an.removes, an.transfers)
		}
		if got := p.Body.At(0, 0, 0, 0); got != 1010 {
			t.Errorf("expected anonymized x 1010, got %v", got)
		}
	})

	t.Run("transfer", func(t *testing.T) {
		an := &fakeAnonymizer{}
		a, _ := newAssembler(t, an)
		ref := newBodyPose(t, 1, 0)
		p, err := a.GlossToPose(ctx, Request{
			Glosses:   []string{"HELLO", "WORLD", "HAPPY"},
			Anonymize: AnonymizeTransfer,
			Reference: ref,
		})
		if err != nil {
			t.Fatalf("GlossToPose() error = %v", err)
		}
		if an.transfers != 3 {
			t.Errorf("expected 3 transfers, got %d", an.transfers)
		}
		for _, r := range an.refs {
			if r != ref {
				t.Error("transfer received a different reference")
			}
		}
		if got := p.Body.At(5, 0, 0, 0); got != 2030 {
			t.Errorf("expected anonymized x 2030, got %v", got)
		}
	})

	t.Run("transfer without reference", func(t *testing.T) {
		a, _ := newAssembler(t, &fakeAnonymizer{})
		_, err := a.GlossToPose(ctx, Request{Glosses: []string{"HELLO"}, Anonymize: AnonymizeTransfer})
		if !errors.Is(err, ErrMissingReference) {
			t.Errorf("expected ErrMissingReference, got %v", err)
		}
	})

	t.Run("anonymizer error", func(t *testing.T) {
		boom := errors.New("boom")
		a, _ := newAssembler(t, &fakeAnonymizer{err: boom})
		a.Workers = 1
		_, err := a.GlossToPose(ctx, Request{Glosses: []string{"HELLO", "WORLD"}, Anonymize: AnonymizeRemove})
		if !errors.Is(err, boom) {
			t.Errorf("expected boom, got %v", err)
		}
	})
}

func TestParseAnonymizeMode(t *testing.T) {
	tests := []struct {
		in      string
		want    AnonymizeMode
		wantErr bool
	}{
		{"", AnonymizeNone, false},
		{"none", AnonymizeNone, false},
		{"remove", AnonymizeRemove, false},
		{"transfer", AnonymizeTransfer, false},
		{"blur", AnonymizeNone, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseAnonymizeMode(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseAnonymizeMode(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseAnonymizeMode(%q) = %v, want %v", tt.in, got, tt.want)
			}
			if !tt.wantErr && tt.in != "" && got.String() != tt.in {
				t.Errorf("String() = %q, want %q", got.String(), tt.in)
			}
		})
	}
}
