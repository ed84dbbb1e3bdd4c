package lookup

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/ayusman/islpose/internal/store"
)

// StoreIndex is an Index backed by the SQLite lexicon table.
type StoreIndex struct {
	repo *store.LexiconRepository
}

// NewStoreIndex creates an index over a lexicon repository.
func NewStoreIndex(repo *store.LexiconRepository) *StoreIndex {
	return &StoreIndex{repo: repo}
}

// Find implements Index.
func (s *StoreIndex) Find(ctx context.Context, gloss, spoken, signed, source string) (Entry, error) {
	if err := ctx.Err(); err != nil {
		return Entry{}, err
	}

	e, err := s.repo.FindBest(StandardizeWord(gloss), gloss, spoken, signed, source)
	if errors.Is(err, store.ErrNotFound) {
		return Entry{}, missError(gloss, spoken, signed)
	}
	if err != nil {
		return Entry{}, err
	}
	return FromStore(e), nil
}

// NewStoreLookup creates a PoseLookup that resolves glosses through the
// lexicon table and reads pose files under root.
func NewStoreLookup(repo *store.LexiconRepository, root string) *PoseLookup {
	return NewPoseLookup(NewStoreIndex(repo), root)
}

// FromStore converts a stored lexicon row.
func FromStore(e *store.LexiconEntry) Entry {
	return Entry{
		Path:           e.Path,
		SpokenLanguage: e.SpokenLanguage,
		SignedLanguage: e.SignedLanguage,
		StartMS:        e.StartMS,
		EndMS:          e.EndMS,
		Words:          e.Words,
		Glosses:        e.Glosses,
		Priority:       e.Priority,
	}
}

// ToStore converts an index row into a new lexicon row with a fresh ID.
// Words are standardized and glosses upper-cased the way StoreIndex
// queries them.
func ToStore(e Entry) *store.LexiconEntry {
	return &store.LexiconEntry{
		ID:             uuid.New().String(),
		Path:           e.Path,
		SpokenLanguage: e.SpokenLanguage,
		SignedLanguage: e.SignedLanguage,
		StartMS:        e.StartMS,
		EndMS:          e.EndMS,
		Words:          StandardizeWord(e.Words),
		Glosses:        strings.ToUpper(e.Glosses),
		Priority:       e.Priority,
	}
}

// ImportEntries writes index rows into the lexicon table.
func ImportEntries(repo *store.LexiconRepository, entries []Entry) (int, error) {
	rows := make([]*store.LexiconEntry, len(entries))
	for i, e := range entries {
		rows[i] = ToStore(e)
	}
	return repo.Import(rows)
}
