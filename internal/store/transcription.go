package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"voice-capture-service/internal/models"
)

// SaveTranscription durably writes a transcription record and flips the
// ingest to processed, in one transaction.
//
// The write is idempotent per ingest id: if a record already exists for the
// ingest, its id is returned unchanged and nothing is written. This tolerates
// retried delivery of the same segment, e.g. a client resending after a
// dropped acknowledgment.
func (s *Store) SaveTranscription(ctx context.Context, rec *models.TranscriptionRecord) (string, bool, error) {
	if rec.IngestID == "" {
		return "", false, errors.New("store: ingest id is required")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", false, fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback()

	var existingID string
	err = tx.QueryRowContext(ctx, `SELECT id FROM transcriptions WHERE ingest_id = ?`, rec.IngestID).Scan(&existingID)
	switch {
	case err == nil:
		return existingID, false, nil
	case !errors.Is(err, sql.ErrNoRows):
		return "", false, fmt.Errorf("store: query transcription: %w", err)
	}

	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	var segments any
	if len(rec.Segments) > 0 {
		b, err := json.Marshal(rec.Segments)
		if err != nil {
			return "", false, fmt.Errorf("store: marshal segments: %w", err)
		}
		segments = string(b)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO transcriptions (id, ingest_id, text, language, language_probability, duration, segments, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, rec.ID, rec.IngestID, rec.Text, rec.Language, rec.LanguageProbability, rec.Duration, segments, rec.CreatedAt.UnixMilli())
	if err != nil {
		return "", false, fmt.Errorf("store: insert transcription: %w", err)
	}

	if err := setStatusTx(ctx, tx, rec.IngestID, models.IngestStatusProcessed, ""); err != nil {
		return "", false, err
	}

	if err := tx.Commit(); err != nil {
		return "", false, fmt.Errorf("store: commit: %w", err)
	}
	return rec.ID, true, nil
}

// GetTranscription loads the transcription record for an ingest id.
func (s *Store) GetTranscription(ctx context.Context, ingestID string) (models.TranscriptionRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, ingest_id, text, language, language_probability, duration, segments, created_at
		FROM transcriptions WHERE ingest_id = ?
	`, ingestID)

	var rec models.TranscriptionRecord
	var segments sql.NullString
	var createdAt int64
	if err := row.Scan(&rec.ID, &rec.IngestID, &rec.Text, &rec.Language, &rec.LanguageProbability,
		&rec.Duration, &segments, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.TranscriptionRecord{}, ErrNotFound
		}
		return models.TranscriptionRecord{}, fmt.Errorf("store: get transcription: %w", err)
	}

	if segments.Valid {
		if err := json.Unmarshal([]byte(segments.String), &rec.Segments); err != nil {
			return models.TranscriptionRecord{}, fmt.Errorf("store: unmarshal segments: %w", err)
		}
	}
	rec.CreatedAt = time.UnixMilli(createdAt).UTC()
	return rec, nil
}
