// Package mock provides a transcription engine for running the service
// without cloud credentials. It returns scripted results in order, then
// repeats the last one.
package mock

import (
	"context"
	"sync"

	"voice-capture-service/internal/models"
	"voice-capture-service/internal/transcribe"
)

// DefaultResults provides sample transcripts for simulation.
var DefaultResults = []transcribe.Result{
	{
		Text:                "let's meet tomorrow at nine",
		Language:            "en",
		LanguageProbability: 0.95,
		Duration:            2.0,
		Segments:            []models.TranscriptSegment{{Start: 0, End: 2.0, Text: "let's meet tomorrow at nine"}},
	},
	{
		Text:                "не забудь купить продукты вечером",
		Language:            "ru",
		LanguageProbability: 0.92,
		Duration:            2.4,
		Segments:            []models.TranscriptSegment{{Start: 0, End: 2.4, Text: "не забудь купить продукты вечером"}},
	},
	{
		Text:                "remind me to call the bank on friday",
		Language:            "en",
		LanguageProbability: 0.9,
		Duration:            2.8,
		Segments:            []models.TranscriptSegment{{Start: 0, End: 2.8, Text: "remind me to call the bank on friday"}},
	},
}

// Engine implements transcribe.Engine with scripted responses.
type Engine struct {
	mu      sync.Mutex
	results []transcribe.Result
	next    int

	// Err, when set, is returned for every call instead of a result.
	Err error
}

// New creates an engine serving the given results, or DefaultResults when
// none are provided.
func New(results ...transcribe.Result) *Engine {
	if len(results) == 0 {
		results = DefaultResults
	}
	return &Engine{results: results}
}

// Transcribe implements transcribe.Engine.
func (e *Engine) Transcribe(_ context.Context, _ string, _ string) (transcribe.Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.Err != nil {
		return transcribe.Result{}, &transcribe.Error{Provider: "mock", Err: e.Err}
	}

	r := e.results[e.next]
	if e.next < len(e.results)-1 {
		e.next++
	}
	return r, nil
}
