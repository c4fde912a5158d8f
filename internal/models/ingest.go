// Package models defines the data structures persisted and exchanged by the service.
package models

import (
	"errors"
	"fmt"
	"time"
)

// IngestStatus represents the lifecycle state of an ingest artifact.
type IngestStatus string

const (
	// IngestStatusPending - artifact stored, pipeline not yet finished.
	IngestStatusPending IngestStatus = "pending"
	// IngestStatusFiltered - rejected by a gate or filter (terminal).
	IngestStatusFiltered IngestStatus = "filtered"
	// IngestStatusProcessed - transcription persisted (terminal).
	IngestStatusProcessed IngestStatus = "processed"
	// IngestStatusError - pipeline failed (terminal).
	IngestStatusError IngestStatus = "error"
)

// IsTerminal returns true if no further status transition is allowed.
func (s IngestStatus) IsTerminal() bool {
	switch s {
	case IngestStatusFiltered, IngestStatusProcessed, IngestStatusError:
		return true
	default:
		return false
	}
}

// ErrTerminalStatus is returned when a transition out of a terminal status is attempted.
var ErrTerminalStatus = errors.New("ingest status is terminal")

// ValidateTransition enforces the allowed ingest status edges:
//
//	pending → filtered | processed | error
//
// Terminal states accept no further transitions; a fresh submission must
// create a new ingest id instead.
func ValidateTransition(from, to IngestStatus) error {
	if from == to {
		return nil
	}
	if from.IsTerminal() {
		return fmt.Errorf("%w: %s -> %s", ErrTerminalStatus, from, to)
	}
	if from == IngestStatusPending && to.IsTerminal() {
		return nil
	}
	return fmt.Errorf("invalid ingest transition: %s -> %s", from, to)
}

// FilterReason classifies why a segment was rejected before persistence.
type FilterReason string

const (
	FilterReasonNotSpeech           FilterReason = "not_speech"
	FilterReasonNotUserSpeaker      FilterReason = "not_user_speaker"
	FilterReasonNoise               FilterReason = "noise"
	FilterReasonUnsupportedLanguage FilterReason = "unsupported_language"
	FilterReasonPIIBlocked          FilterReason = "pii_blocked"
)

// IngestArtifact is one submitted audio segment and its lifecycle state.
type IngestArtifact struct {
	ID           string       `json:"id"`
	Filename     string       `json:"filename"`
	StoragePath  string       `json:"storage_path"`
	SizeBytes    int64        `json:"size_bytes"`
	Status       IngestStatus `json:"status"`
	ErrorMessage string       `json:"error_message,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
	ProcessedAt  *time.Time   `json:"processed_at,omitempty"`
}

// IntegrityEvent is one entry in the per-ingest hash chain.
//
// For a given ingest id, ordering events by Seq, each event's PrevHash must
// equal the prior event's ContentHash; the first event's PrevHash is empty.
// A broken link signals tampering or a missing event.
type IntegrityEvent struct {
	ID          string            `json:"id"`
	IngestID    string            `json:"ingest_id"`
	Seq         int64             `json:"seq"`
	Stage       string            `json:"stage"`
	ContentHash string            `json:"content_hash"`
	PrevHash    string            `json:"prev_hash,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
}
