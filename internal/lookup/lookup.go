// Package lookup resolves glosses to pose files through a lexicon index.
package lookup

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ayusman/islpose/internal/pose"
)

// ErrLookupMiss is returned when a gloss has no entry in the lexicon.
var ErrLookupMiss = errors.New("no pose found for gloss")

// Lookup resolves a gloss sequence to one pose per gloss, in input order.
type Lookup interface {
	LookupSequence(ctx context.Context, glosses []string, spoken, signed, source string) ([]*pose.Pose, error)
}

// Entry is one row of the lexicon index. StartMS and EndMS select a segment
// of the pose file; EndMS 0 means the whole file.
type Entry struct {
	Path           string
	SpokenLanguage string
	SignedLanguage string
	StartMS        int
	EndMS          int
	Words          string
	Glosses        string
	Priority       int
}

// Index finds the best entry for a gloss.
type Index interface {
	Find(ctx context.Context, gloss, spoken, signed, source string) (Entry, error)
}

// StandardizeWord lowercases a word and replaces underscores with spaces.
func StandardizeWord(word string) string {
	return strings.ReplaceAll(strings.ToLower(word), "_", " ")
}

// PoseLookup reads pose files named by an Index. Relative paths are
// resolved against Root.
type PoseLookup struct {
	Index Index
	Root  string
}

// NewPoseLookup creates a PoseLookup.
func NewPoseLookup(index Index, root string) *PoseLookup {
	return &PoseLookup{Index: index, Root: root}
}

// LookupSequence implements Lookup. The first gloss without an entry fails
// the whole sequence with ErrLookupMiss.
func (l *PoseLookup) LookupSequence(ctx context.Context, glosses []string, spoken, signed, source string) ([]*pose.Pose, error) {
	poses := make([]*pose.Pose, 0, len(glosses))
	for _, gloss := range glosses {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		p, err := l.lookupOne(ctx, gloss, spoken, signed, source)
		if err != nil {
			return nil, err
		}
		poses = append(poses, p)
	}
	return poses, nil
}

func (l *PoseLookup) lookupOne(ctx context.Context, gloss, spoken, signed, source string) (*pose.Pose, error) {
	entry, err := l.Index.Find(ctx, gloss, spoken, signed, source)
	if err != nil {
		return nil, err
	}

	p, err := l.readPose(entry.Path)
	if err != nil {
		return nil, fmt.Errorf("gloss %q: %w", gloss, err)
	}

	if entry.StartMS > 0 || entry.EndMS > 0 {
		return p.SliceTime(entry.StartMS, entry.EndMS)
	}
	return p, nil
}

func (l *PoseLookup) readPose(path string) (*pose.Pose, error) {
	if !filepath.IsAbs(path) {
		path = filepath.Join(l.Root, path)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open pose: %w", err)
	}
	defer f.Close()

	p, err := pose.Read(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return p, nil
}

// missError wraps ErrLookupMiss with the gloss and language pair.
func missError(gloss, spoken, signed string) error {
	return fmt.Errorf("%w: %q (%s -> %s)", ErrLookupMiss, gloss, spoken, signed)
}
