package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"voice-capture-service/internal/models"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("store: not found")

// UpsertArtifact records a new ingest artifact in pending status. If a row
// with the same id already exists it is left untouched, so re-submission of
// an id never resets an already-terminal artifact.
func (s *Store) UpsertArtifact(ctx context.Context, a *models.IngestArtifact) error {
	if a.ID == "" {
		return errors.New("store: artifact id is required")
	}
	if a.Status == "" {
		a.Status = models.IngestStatusPending
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO ingests (id, filename, storage_path, size_bytes, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, a.ID, a.Filename, a.StoragePath, a.SizeBytes, string(a.Status), a.CreatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("store: upsert artifact: %w", err)
	}
	return nil
}

// GetArtifact loads one ingest artifact by id.
func (s *Store) GetArtifact(ctx context.Context, id string) (models.IngestArtifact, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, filename, storage_path, size_bytes, status, error_message, created_at, processed_at
		FROM ingests WHERE id = ?
	`, id)

	var a models.IngestArtifact
	var status string
	var errMsg sql.NullString
	var createdAt int64
	var processedAt sql.NullInt64
	if err := row.Scan(&a.ID, &a.Filename, &a.StoragePath, &a.SizeBytes, &status, &errMsg, &createdAt, &processedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.IngestArtifact{}, ErrNotFound
		}
		return models.IngestArtifact{}, fmt.Errorf("store: get artifact: %w", err)
	}

	a.Status = models.IngestStatus(status)
	a.ErrorMessage = errMsg.String
	a.CreatedAt = time.UnixMilli(createdAt).UTC()
	if processedAt.Valid {
		t := time.UnixMilli(processedAt.Int64).UTC()
		a.ProcessedAt = &t
	}
	return a, nil
}

// setStatusTx transitions an artifact's status inside tx, enforcing the
// state machine. Terminal statuses also stamp processed_at.
func setStatusTx(ctx context.Context, tx *sql.Tx, id string, to models.IngestStatus, errMsg string) error {
	var current string
	if err := tx.QueryRowContext(ctx, `SELECT status FROM ingests WHERE id = ?`, id).Scan(&current); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("store: read status: %w", err)
	}

	if err := models.ValidateTransition(models.IngestStatus(current), to); err != nil {
		return err
	}

	var msg any
	if errMsg != "" {
		msg = errMsg
	}
	var processedAt any
	if to.IsTerminal() {
		processedAt = time.Now().UTC().UnixMilli()
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE ingests SET status = ?, error_message = ?, processed_at = ? WHERE id = ?
	`, string(to), msg, processedAt, id); err != nil {
		return fmt.Errorf("store: update status: %w", err)
	}
	return nil
}

// SetStatus transitions an artifact to the given status.
func (s *Store) SetStatus(ctx context.Context, id string, to models.IngestStatus, errMsg string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := setStatusTx(ctx, tx, id, to, errMsg); err != nil {
		return err
	}
	return tx.Commit()
}

// MarkFiltered transitions an artifact to filtered with the rejection reason.
func (s *Store) MarkFiltered(ctx context.Context, id string, reason models.FilterReason) error {
	return s.SetStatus(ctx, id, models.IngestStatusFiltered, string(reason))
}

// MarkError transitions an artifact to error with a failure message.
func (s *Store) MarkError(ctx context.Context, id string, msg string) error {
	return s.SetStatus(ctx, id, models.IngestStatusError, msg)
}
