package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"voice-capture-service/internal/models"
)

// AddSpeakerProfile enrolls a voice reference for the speaker gate.
func (s *Store) AddSpeakerProfile(ctx context.Context, p *models.SpeakerProfile) error {
	if len(p.Signature) == 0 {
		return errors.New("store: profile signature is required")
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}

	sig, err := json.Marshal(p.Signature)
	if err != nil {
		return fmt.Errorf("store: marshal signature: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO speaker_profiles (id, label, signature, created_at)
		VALUES (?, ?, ?, ?)
	`, p.ID, p.Label, string(sig), p.CreatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("store: insert profile: %w", err)
	}
	return nil
}

// ListSpeakerProfiles returns all enrolled voice references.
func (s *Store) ListSpeakerProfiles(ctx context.Context) ([]models.SpeakerProfile, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, label, signature, created_at FROM speaker_profiles ORDER BY created_at
	`)
	if err != nil {
		return nil, fmt.Errorf("store: list profiles: %w", err)
	}
	defer rows.Close()

	var out []models.SpeakerProfile
	for rows.Next() {
		var p models.SpeakerProfile
		var sig string
		var createdAt int64
		if err := rows.Scan(&p.ID, &p.Label, &sig, &createdAt); err != nil {
			return nil, fmt.Errorf("store: scan profile: %w", err)
		}
		if err := json.Unmarshal([]byte(sig), &p.Signature); err != nil {
			return nil, fmt.Errorf("store: unmarshal signature: %w", err)
		}
		p.CreatedAt = time.UnixMilli(createdAt).UTC()
		out = append(out, p)
	}
	return out, rows.Err()
}
