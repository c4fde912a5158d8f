// Package transcribe defines the contract for transcription engines.
package transcribe

import (
	"context"
	"fmt"

	"voice-capture-service/internal/models"
)

// Result is the engine output for one audio file.
type Result struct {
	Text                string
	Language            string
	LanguageProbability float64
	Duration            float64
	Segments            []models.TranscriptSegment
}

// Error is the typed failure surfaced by an engine. The pipeline does not
// retry it; a caller-level resubmission with the same ingest id relies on
// idempotent persistence instead.
type Error struct {
	Provider string
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("transcription failed (%s): %v", e.Provider, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Engine transcribes one stored audio file. languageHint may be empty.
type Engine interface {
	Transcribe(ctx context.Context, path string, languageHint string) (Result, error)
}
