// Package integrity provides the append-only, per-ingest hash-linked audit log.
//
// Each appended event carries a SHA-256 digest of its stage payload and the
// digest of the immediately preceding event for the same ingest id. Verify
// replays the chain and detects any altered, missing, or reordered event.
// This is tamper evidence, not tamper prevention: a sufficiently privileged
// writer can still corrupt the store directly.
package integrity

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/google/uuid"

	"voice-capture-service/internal/models"
)

// Stage labels recorded by the ingest pipeline.
const (
	StageReceived           = "received"
	StageTranscriptionSaved = "transcription_saved"
)

const lockStripes = 64

// Chain appends and verifies integrity events on a shared database handle.
//
// Appending is "read last hash, then insert". Concurrent appends for the
// same ingest id would fork the chain, so each append holds a striped
// per-ingest-id mutex around a single transaction.
type Chain struct {
	db    *sql.DB
	locks [lockStripes]sync.Mutex
}

// New creates a Chain on top of the given database. The schema must already
// contain the integrity_events table.
func New(db *sql.DB) *Chain {
	return &Chain{db: db}
}

func (c *Chain) lockFor(ingestID string) *sync.Mutex {
	h := fnv.New32a()
	h.Write([]byte(ingestID))
	return &c.locks[h.Sum32()%lockStripes]
}

// Append records one stage event for an ingest id, linking it to the most
// recent event for the same id.
func (c *Chain) Append(ctx context.Context, ingestID, stage string, payload []byte, metadata map[string]string) (models.IntegrityEvent, error) {
	if ingestID == "" {
		return models.IntegrityEvent{}, errors.New("integrity: ingest id is required")
	}
	if stage == "" {
		return models.IntegrityEvent{}, errors.New("integrity: stage is required")
	}

	mu := c.lockFor(ingestID)
	mu.Lock()
	defer mu.Unlock()

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return models.IntegrityEvent{}, fmt.Errorf("integrity: begin tx: %w", err)
	}
	defer tx.Rollback()

	var prevHash sql.NullString
	err = tx.QueryRowContext(ctx, `
		SELECT content_hash FROM integrity_events
		WHERE ingest_id = ? ORDER BY seq DESC LIMIT 1
	`, ingestID).Scan(&prevHash)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return models.IntegrityEvent{}, fmt.Errorf("integrity: query head: %w", err)
	}

	ev := models.IntegrityEvent{
		ID:          uuid.NewString(),
		IngestID:    ingestID,
		Stage:       stage,
		ContentHash: hashPayload(payload),
		PrevHash:    prevHash.String,
		Metadata:    metadata,
		CreatedAt:   time.Now().UTC(),
	}

	var metaJSON any
	if len(metadata) > 0 {
		b, err := json.Marshal(metadata)
		if err != nil {
			return models.IntegrityEvent{}, fmt.Errorf("integrity: marshal metadata: %w", err)
		}
		metaJSON = string(b)
	}
	var prev any
	if prevHash.Valid {
		prev = prevHash.String
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO integrity_events (id, ingest_id, stage, content_hash, prev_hash, metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, ev.ID, ev.IngestID, ev.Stage, ev.ContentHash, prev, metaJSON, ev.CreatedAt.UnixMilli())
	if err != nil {
		return models.IntegrityEvent{}, fmt.Errorf("integrity: insert event: %w", err)
	}
	if seq, err := res.LastInsertId(); err == nil {
		ev.Seq = seq
	}

	if err := tx.Commit(); err != nil {
		return models.IntegrityEvent{}, fmt.Errorf("integrity: commit: %w", err)
	}
	return ev, nil
}

// Events returns all events for an ingest id in creation order.
func (c *Chain) Events(ctx context.Context, ingestID string) ([]models.IntegrityEvent, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT seq, id, ingest_id, stage, content_hash, prev_hash, metadata, created_at
		FROM integrity_events WHERE ingest_id = ? ORDER BY seq
	`, ingestID)
	if err != nil {
		return nil, fmt.Errorf("integrity: query events: %w", err)
	}
	defer rows.Close()

	var out []models.IntegrityEvent
	for rows.Next() {
		var ev models.IntegrityEvent
		var prev, meta sql.NullString
		var createdAt int64
		if err := rows.Scan(&ev.Seq, &ev.ID, &ev.IngestID, &ev.Stage, &ev.ContentHash, &prev, &meta, &createdAt); err != nil {
			return nil, fmt.Errorf("integrity: scan event: %w", err)
		}
		ev.PrevHash = prev.String
		if meta.Valid {
			if err := json.Unmarshal([]byte(meta.String), &ev.Metadata); err != nil {
				return nil, fmt.Errorf("integrity: unmarshal metadata: %w", err)
			}
		}
		ev.CreatedAt = time.UnixMilli(createdAt).UTC()
		out = append(out, ev)
	}
	return out, rows.Err()
}

// Verify replays the chain for an ingest id and checks every link.
// The first event must have no prev hash; each later event's prev hash must
// equal the preceding event's content hash.
func (c *Chain) Verify(ctx context.Context, ingestID string) (bool, []models.IntegrityEvent, error) {
	events, err := c.Events(ctx, ingestID)
	if err != nil {
		return false, nil, err
	}

	for i, ev := range events {
		if i == 0 {
			if ev.PrevHash != "" {
				return false, events, nil
			}
			continue
		}
		if ev.PrevHash != events[i-1].ContentHash {
			return false, events, nil
		}
	}
	return true, events, nil
}

// IngestIDs lists every ingest id that has at least one chain event.
func (c *Chain) IngestIDs(ctx context.Context) ([]string, error) {
	rows, err := c.db.QueryContext(ctx, `SELECT DISTINCT ingest_id FROM integrity_events ORDER BY ingest_id`)
	if err != nil {
		return nil, fmt.Errorf("integrity: query ingest ids: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("integrity: scan id: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func hashPayload(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}
