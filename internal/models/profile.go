package models

import "time"

// SpeakerProfile is one enrolled voice reference for the speaker gate.
// Signature is a coarse per-band energy fingerprint of enrollment audio.
type SpeakerProfile struct {
	ID        string    `json:"id"`
	Label     string    `json:"label"`
	Signature []float64 `json:"signature"`
	CreatedAt time.Time `json:"created_at"`
}
