// Package assemble turns a gloss sequence into one continuous pose: each
// gloss is looked up, given a facial expression, optionally anonymized and
// the results are concatenated in order.
package assemble

import (
	"context"
	"errors"
	"fmt"
	"log"

	"golang.org/x/sync/errgroup"

	"github.com/ayusman/islpose/internal/anonymize"
	"github.com/ayusman/islpose/internal/expression"
	"github.com/ayusman/islpose/internal/face"
	"github.com/ayusman/islpose/internal/lookup"
	"github.com/ayusman/islpose/internal/pose"
)

var (
	// ErrEmptyGlosses is returned for a request without glosses.
	ErrEmptyGlosses = errors.New("empty gloss sequence")

	// ErrMissingReference is returned when appearance transfer is requested
	// without a reference pose.
	ErrMissingReference = errors.New("appearance transfer requires a reference pose")
)

// AnonymizeMode selects what happens to signer appearance.
type AnonymizeMode int

const (
	// AnonymizeNone keeps the looked up appearance.
	AnonymizeNone AnonymizeMode = iota
	// AnonymizeRemove replaces appearance with a neutral one.
	AnonymizeRemove
	// AnonymizeTransfer replaces appearance with the request's reference.
	AnonymizeTransfer
)

// String returns the mode name used in configs and the HTTP API.
func (m AnonymizeMode) String() string {
	switch m {
	case AnonymizeRemove:
		return "remove"
	case AnonymizeTransfer:
		return "transfer"
	default:
		return "none"
	}
}

// ParseAnonymizeMode parses a mode name. The empty string means none.
func ParseAnonymizeMode(s string) (AnonymizeMode, error) {
	switch s {
	case "", "none":
		return AnonymizeNone, nil
	case "remove":
		return AnonymizeRemove, nil
	case "transfer":
		return AnonymizeTransfer, nil
	}
	return AnonymizeNone, fmt.Errorf("unknown anonymize mode %q", s)
}

// Request describes one gloss sequence to assemble.
type Request struct {
	Glosses        []string
	SpokenLanguage string
	SignedLanguage string
	// Source restricts lookup to entries under a path prefix.
	Source            string
	Anonymize         AnonymizeMode
	Reference         *pose.Pose
	EnableExpressions bool
}

// Assembler wires lookup, expression synthesis and anonymization together.
// Anonymizer and Landmarks may be nil.
type Assembler struct {
	Lookup      lookup.Lookup
	Synthesizer *expression.Synthesizer
	Anonymizer  anonymize.Anonymizer
	Landmarks   *face.Landmarks

	// Workers bounds per-gloss concurrency. Zero means one worker per gloss.
	Workers int
}

// New creates an Assembler with expressions enabled by default.
func New(l lookup.Lookup, a anonymize.Anonymizer, lm *face.Landmarks) *Assembler {
	return &Assembler{
		Lookup:      l,
		Synthesizer: expression.NewSynthesizer(expression.DefaultConfig()),
		Anonymizer:  a,
		Landmarks:   lm,
	}
}

// GlossToPose assembles the poses for req.Glosses into a single pose.
func (a *Assembler) GlossToPose(ctx context.Context, req Request) (*pose.Pose, error) {
	if len(req.Glosses) == 0 {
		return nil, ErrEmptyGlosses
	}
	if req.Anonymize != AnonymizeNone && a.Anonymizer == nil {
		return nil, fmt.Errorf("%w: anonymize %s requested; %s",
			anonymize.ErrOptionalDependencyMissing, req.Anonymize, anonymize.InstallHint)
	}
	if req.Anonymize == AnonymizeTransfer && req.Reference == nil {
		return nil, ErrMissingReference
	}

	poses, err := a.Lookup.LookupSequence(ctx, req.Glosses, req.SpokenLanguage, req.SignedLanguage, req.Source)
	if err != nil {
		return nil, err
	}
	if len(poses) != len(req.Glosses) {
		return nil, fmt.Errorf("lookup returned %d poses for %d glosses", len(poses), len(req.Glosses))
	}

	switch req.Anonymize {
	case AnonymizeRemove:
		log.Println("Removing appearance...")
	case AnonymizeTransfer:
		log.Println("Transferring appearance...")
	}

	out := make([]*pose.Pose, len(poses))
	g, gctx := errgroup.WithContext(ctx)
	if a.Workers > 0 {
		g.SetLimit(a.Workers)
	}
	for i := range poses {
		g.Go(func() error {
			p, err := a.process(gctx, poses[i].Clone(), req.Glosses[i], req)
			if err != nil {
				return fmt.Errorf("gloss %d %q: %w", i, req.Glosses[i], err)
			}
			out[i] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return pose.Concatenate(out)
}

// process runs the per-gloss stages on a pose owned by the calling worker.
func (a *Assembler) process(ctx context.Context, p *pose.Pose, gloss string, req Request) (*pose.Pose, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var err error
	if req.EnableExpressions && a.Synthesizer != nil {
		if p, err = a.Synthesizer.Synthesize(p, gloss, a.Landmarks); err != nil {
			return nil, err
		}
	}

	switch req.Anonymize {
	case AnonymizeRemove:
		p, err = a.Anonymizer.RemoveAppearance(ctx, p)
	case AnonymizeTransfer:
		p, err = a.Anonymizer.TransferAppearance(ctx, p, req.Reference)
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}
