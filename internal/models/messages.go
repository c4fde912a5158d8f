package models

// Wire messages exchanged over the WebSocket ingest endpoint.
//
// The client sends raw binary audio frames or an AudioEnvelope; the server
// replies with exactly one of the typed messages below per segment stage.

// Server message type values.
const (
	MessageTypeReceived      = "received"
	MessageTypeTranscription = "transcription"
	MessageTypeFiltered      = "filtered"
	MessageTypeError         = "error"
)

// AudioEnvelope is the JSON alternative to a binary audio frame.
type AudioEnvelope struct {
	Type string `json:"type"`
	Data string `json:"data"` // base64-encoded audio bytes
}

// ReceivedMessage acknowledges storage of a segment before processing runs.
type ReceivedMessage struct {
	Type     string `json:"type"`
	ID       string `json:"id"`
	Filename string `json:"filename"`
	Size     int64  `json:"size"`
}

// TranscriptionMessage carries the accepted transcript back to the client.
// DeleteAudio signals the client may discard its local copy now that the
// server-side text is durable.
type TranscriptionMessage struct {
	Type        string  `json:"type"`
	ID          string  `json:"id"`
	Text        string  `json:"text"`
	Language    string  `json:"language"`
	Confidence  float64 `json:"confidence"`
	DeleteAudio bool    `json:"delete_audio"`
}

// FilteredMessage reports a gate or filter rejection.
type FilteredMessage struct {
	Type        string       `json:"type"`
	ID          string       `json:"id"`
	Reason      FilterReason `json:"reason"`
	DeleteAudio bool         `json:"delete_audio"`
}

// ErrorMessage reports a terminal pipeline failure for one segment.
type ErrorMessage struct {
	Type        string `json:"type"`
	ID          string `json:"id"`
	Error       string `json:"error"`
	DeleteAudio bool   `json:"delete_audio"`
}
