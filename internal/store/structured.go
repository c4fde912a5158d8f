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

// SaveStructuredEvent persists the enrichment output for a transcription.
func (s *Store) SaveStructuredEvent(ctx context.Context, ev *models.StructuredEvent) error {
	if ev.TranscriptionID == "" {
		return errors.New("store: transcription id is required")
	}
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}

	emotions, err := marshalJSONList(ev.Emotions)
	if err != nil {
		return fmt.Errorf("store: marshal emotions: %w", err)
	}
	topics, err := marshalJSONList(ev.Topics)
	if err != nil {
		return fmt.Errorf("store: marshal topics: %w", err)
	}
	domains, err := marshalJSONList(ev.Domains)
	if err != nil {
		return fmt.Errorf("store: marshal domains: %w", err)
	}
	var tasks any
	if len(ev.Tasks) > 0 {
		b, err := json.Marshal(ev.Tasks)
		if err != nil {
			return fmt.Errorf("store: marshal tasks: %w", err)
		}
		tasks = string(b)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO structured_events (
			id, transcription_id, summary, emotions, topics, domains, tasks,
			urgency, sentiment, enrichment_confidence, enrichment_model,
			enrichment_latency_ms, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, ev.ID, ev.TranscriptionID, ev.Summary, emotions, topics, domains, tasks,
		ev.Urgency, ev.Sentiment, ev.EnrichmentConfidence, ev.EnrichmentModel,
		ev.EnrichmentLatencyMs, ev.CreatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("store: insert structured event: %w", err)
	}
	return nil
}

// GetStructuredEvent loads the enrichment output for a transcription id.
func (s *Store) GetStructuredEvent(ctx context.Context, transcriptionID string) (models.StructuredEvent, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, transcription_id, summary, emotions, topics, domains, tasks,
		       urgency, sentiment, enrichment_confidence, enrichment_model,
		       enrichment_latency_ms, created_at
		FROM structured_events WHERE transcription_id = ?
	`, transcriptionID)

	var ev models.StructuredEvent
	var emotions, topics, domains, tasks sql.NullString
	var createdAt int64
	if err := row.Scan(&ev.ID, &ev.TranscriptionID, &ev.Summary, &emotions, &topics, &domains, &tasks,
		&ev.Urgency, &ev.Sentiment, &ev.EnrichmentConfidence, &ev.EnrichmentModel,
		&ev.EnrichmentLatencyMs, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.StructuredEvent{}, ErrNotFound
		}
		return models.StructuredEvent{}, fmt.Errorf("store: get structured event: %w", err)
	}

	if err := unmarshalJSONList(emotions, &ev.Emotions); err != nil {
		return models.StructuredEvent{}, err
	}
	if err := unmarshalJSONList(topics, &ev.Topics); err != nil {
		return models.StructuredEvent{}, err
	}
	if err := unmarshalJSONList(domains, &ev.Domains); err != nil {
		return models.StructuredEvent{}, err
	}
	if tasks.Valid {
		if err := json.Unmarshal([]byte(tasks.String), &ev.Tasks); err != nil {
			return models.StructuredEvent{}, fmt.Errorf("store: unmarshal tasks: %w", err)
		}
	}
	ev.CreatedAt = time.UnixMilli(createdAt).UTC()
	return ev, nil
}

func marshalJSONList(list []string) (any, error) {
	if len(list) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(list)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func unmarshalJSONList(col sql.NullString, dst *[]string) error {
	if !col.Valid {
		return nil
	}
	if err := json.Unmarshal([]byte(col.String), dst); err != nil {
		return fmt.Errorf("store: unmarshal list: %w", err)
	}
	return nil
}
