package store

import (
	"database/sql"
	"errors"
	"strings"
	"time"
)

// ErrNotFound is returned when a requested resource does not exist.
var ErrNotFound = errors.New("not found")

// LexiconEntry maps a word and its gloss to a segment of a pose file.
type LexiconEntry struct {
	ID             string    `json:"id"`
	Path           string    `json:"path"`
	SpokenLanguage string    `json:"spoken_language"`
	SignedLanguage string    `json:"signed_language"`
	StartMS        int       `json:"start"`
	EndMS          int       `json:"end"`
	Words          string    `json:"words"`
	Glosses        string    `json:"glosses"`
	Priority       int       `json:"priority"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// LexiconRepository provides CRUD operations for lexicon entries.
type LexiconRepository struct {
	db *sql.DB
}

// Lexicon returns the lexicon repository for this store.
func (s *Store) Lexicon() *LexiconRepository {
	return &LexiconRepository{db: s.db}
}

const lexiconColumns = `id, path, spoken_language, signed_language, start_ms, end_ms, words, glosses, priority, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (*LexiconEntry, error) {
	e := &LexiconEntry{}
	err := row.Scan(&e.ID, &e.Path, &e.SpokenLanguage, &e.SignedLanguage, &e.StartMS, &e.EndMS,
		&e.Words, &e.Glosses, &e.Priority, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return e, nil
}

// Create inserts a new lexicon entry into the database.
func (r *LexiconRepository) Create(e *LexiconEntry) error {
	now := time.Now()
	e.CreatedAt = now
	e.UpdatedAt = now

	_, err := r.db.Exec(
		`INSERT INTO lexicon (`+lexiconColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Path, e.SpokenLanguage, e.SignedLanguage, e.StartMS, e.EndMS,
		e.Words, e.Glosses, e.Priority, e.CreatedAt, e.UpdatedAt,
	)
	return err
}

// GetByID retrieves a lexicon entry by its ID.
func (r *LexiconRepository) GetByID(id string) (*LexiconEntry, error) {
	e, err := scanEntry(r.db.QueryRow(
		`SELECT `+lexiconColumns+` FROM lexicon WHERE id = ?`, id,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return e, nil
}

// List retrieves all lexicon entries ordered by words.
func (r *LexiconRepository) List() ([]*LexiconEntry, error) {
	rows, err := r.db.Query(`SELECT ` + lexiconColumns + ` FROM lexicon ORDER BY words, priority`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*LexiconEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return entries, nil
}

// FindBest returns the entry in the given language pair with the lowest
// priority whose words equal word or whose glosses equal gloss after
// upper-casing. A non-empty source restricts matches to paths that start
// with it literally.
func (r *LexiconRepository) FindBest(word, gloss, spoken, signed, source string) (*LexiconEntry, error) {
	e, err := scanEntry(r.db.QueryRow(
		`SELECT `+lexiconColumns+` FROM lexicon
		 WHERE (words = ? OR glosses = ?)
		   AND spoken_language = ? AND signed_language = ?
		   AND (? = '' OR substr(path, 1, length(?)) = ?)
		 ORDER BY priority, path
		 LIMIT 1`,
		strings.ToLower(word), strings.ToUpper(gloss), spoken, signed, source, source, source,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return e, nil
}

// Update updates an existing lexicon entry in the database.
func (r *LexiconRepository) Update(e *LexiconEntry) error {
	e.UpdatedAt = time.Now()

	result, err := r.db.Exec(
		`UPDATE lexicon SET path = ?, spoken_language = ?, signed_language = ?, start_ms = ?, end_ms = ?,
		 words = ?, glosses = ?, priority = ?, updated_at = ?
		 WHERE id = ?`,
		e.Path, e.SpokenLanguage, e.SignedLanguage, e.StartMS, e.EndMS,
		e.Words, e.Glosses, e.Priority, e.UpdatedAt, e.ID,
	)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

// Delete removes a lexicon entry from the database by its ID.
func (r *LexiconRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM lexicon WHERE id = ?`, id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

// Import inserts entries in a single transaction. An entry whose path,
// languages and segment already exist replaces the stored words, glosses
// and priority and keeps its ID. It returns the number of rows written.
func (r *LexiconRepository) Import(entries []*LexiconEntry) (int, error) {
	tx, err := r.db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(
		`INSERT INTO lexicon (` + lexiconColumns + `)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(path, spoken_language, signed_language, start_ms, end_ms)
		 DO UPDATE SET words = excluded.words, glosses = excluded.glosses,
		   priority = excluded.priority, updated_at = excluded.updated_at`,
	)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	now := time.Now()
	for _, e := range entries {
		e.CreatedAt = now
		e.UpdatedAt = now
		if _, err := stmt.Exec(e.ID, e.Path, e.SpokenLanguage, e.SignedLanguage, e.StartMS, e.EndMS,
			e.Words, e.Glosses, e.Priority, e.CreatedAt, e.UpdatedAt); err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return len(entries), nil
}
