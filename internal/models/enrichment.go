package models

import "time"

// TaskPriority levels for extracted action items.
const (
	TaskPriorityHigh   = "high"
	TaskPriorityNormal = "normal"
	TaskPriorityLow    = "low"
)

// ExtractedTask is one action-item-like statement pulled out of a transcript.
type ExtractedTask struct {
	Text     string `json:"text"`
	Priority string `json:"priority"`
	Deadline string `json:"deadline,omitempty"`
}

// StructuredEvent is the enrichment output derived from one transcription.
//
// It is always created once a TranscriptionRecord exists, even when the
// external analyzer is unavailable; in that case only the locally derived
// fields (domains, sentiment, tasks) are populated.
type StructuredEvent struct {
	ID                   string          `json:"id"`
	TranscriptionID      string          `json:"transcription_id"`
	Summary              string          `json:"summary,omitempty"`
	Emotions             []string        `json:"emotions,omitempty"`
	Topics               []string        `json:"topics,omitempty"`
	Domains              []string        `json:"domains,omitempty"`
	Tasks                []ExtractedTask `json:"tasks,omitempty"`
	Urgency              string          `json:"urgency"`
	Sentiment            string          `json:"sentiment"`
	EnrichmentConfidence float64         `json:"enrichment_confidence"`
	EnrichmentModel      string          `json:"enrichment_model,omitempty"`
	EnrichmentLatencyMs  int64           `json:"enrichment_latency_ms"`
	CreatedAt            time.Time       `json:"created_at"`
}
