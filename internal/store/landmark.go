package store

import (
	"database/sql"
	"encoding/json"
	"time"
)

// LandmarkSample is one recorded facial landmark snapshot for a signer.
type LandmarkSample struct {
	ID          int64           `json:"id"`
	Signer      string          `json:"signer"`
	SampleIndex int             `json:"sample_index"`
	Data        json.RawMessage `json:"data"`
	CreatedAt   time.Time       `json:"created_at"`
}

// LandmarkRepository stores facial landmark samples.
type LandmarkRepository struct {
	db *sql.DB
}

// Landmarks returns the landmark repository for this store.
func (s *Store) Landmarks() *LandmarkRepository {
	return &LandmarkRepository{db: s.db}
}

// Replace stores the samples for a signer in a single transaction,
// discarding any recorded before.
func (r *LandmarkRepository) Replace(signer string, samples []json.RawMessage) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM landmark_samples WHERE signer = ?`, signer); err != nil {
		return err
	}

	stmt, err := tx.Prepare(`INSERT INTO landmark_samples (signer, sample_index, data) VALUES (?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, data := range samples {
		if _, err := stmt.Exec(signer, i, string(data)); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// GetBySigner retrieves all samples for a signer in recording order.
func (r *LandmarkRepository) GetBySigner(signer string) ([]LandmarkSample, error) {
	rows, err := r.db.Query(
		`SELECT id, signer, sample_index, data, created_at
		 FROM landmark_samples
		 WHERE signer = ?
		 ORDER BY sample_index`,
		signer,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var samples []LandmarkSample
	for rows.Next() {
		var s LandmarkSample
		var data string
		if err := rows.Scan(&s.ID, &s.Signer, &s.SampleIndex, &data, &s.CreatedAt); err != nil {
			return nil, err
		}
		s.Data = json.RawMessage(data)
		samples = append(samples, s)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return samples, nil
}

// DeleteBySigner removes all samples for a signer.
func (r *LandmarkRepository) DeleteBySigner(signer string) error {
	_, err := r.db.Exec(`DELETE FROM landmark_samples WHERE signer = ?`, signer)
	return err
}
