package models

import "time"

// TranscriptSegment is one timed span of recognized speech, as reported by
// the transcription engine.
type TranscriptSegment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// TranscriptionRecord is accepted ASR output for one ingest artifact.
// At most one record exists per ingest id.
type TranscriptionRecord struct {
	ID                  string              `json:"id"`
	IngestID            string              `json:"ingest_id"`
	Text                string              `json:"text"`
	Language            string              `json:"language"`
	LanguageProbability float64             `json:"language_probability"`
	Duration            float64             `json:"duration"`
	Segments            []TranscriptSegment `json:"segments,omitempty"`
	CreatedAt           time.Time           `json:"created_at"`
}

// TranscriptFinalEvent is the Kafka payload published when a transcription
// becomes durable.
type TranscriptFinalEvent struct {
	EventType       string  `json:"eventType"`
	IngestID        string  `json:"ingestId"`
	TranscriptionID string  `json:"transcriptionId"`
	Text            string  `json:"text"`
	Language        string  `json:"language"`
	Confidence      float64 `json:"confidence"`
	DurationSec     float64 `json:"durationSec"`
	Timestamp       int64   `json:"timestamp"`
}

// StructuredEventMessage is the Kafka payload published after enrichment
// completes (fully or degraded).
type StructuredEventMessage struct {
	EventType       string   `json:"eventType"`
	TranscriptionID string   `json:"transcriptionId"`
	StructuredID    string   `json:"structuredId"`
	Summary         string   `json:"summary,omitempty"`
	Domains         []string `json:"domains,omitempty"`
	Topics          []string `json:"topics,omitempty"`
	Urgency         string   `json:"urgency"`
	Sentiment       string   `json:"sentiment"`
	Confidence      float64  `json:"confidence"`
	Timestamp       int64    `json:"timestamp"`
}
