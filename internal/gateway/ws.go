package gateway

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"voice-capture-service/internal/models"
	"voice-capture-service/internal/observability/metrics"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  32 * 1024,
	WriteBufferSize: 32 * 1024,
	// Clients are native apps, not browsers; no origin policy to enforce.
	CheckOrigin: func(*http.Request) bool { return true },
}

// wsSession serves one WebSocket connection. Segments on a connection are
// processed strictly in order; different connections are independent.
type wsSession struct {
	conn     *websocket.Conn
	pipeline *Pipeline
	logger   zerolog.Logger
	metrics  *metrics.Metrics

	writeMu sync.Mutex
}

// handleWS upgrades the connection and runs the segment loop.
func (g *Gateway) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.logger.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	s := &wsSession{
		conn:     conn,
		pipeline: g.pipeline,
		logger:   g.logger.With().Str("remote", conn.RemoteAddr().String()).Logger(),
		metrics:  metrics.DefaultMetrics,
	}
	s.metrics.ConnectionsActive.Inc()
	defer s.metrics.ConnectionsActive.Dec()
	defer conn.Close()

	s.logger.Info().Msg("WebSocket connection opened")
	s.run()
	s.logger.Info().Msg("WebSocket connection closed")
}

func (s *wsSession) run() {
	for {
		msgType, payload, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				return
			}
			s.logger.Warn().Err(err).Msg("WebSocket read error")
			return
		}

		var data []byte
		switch msgType {
		case websocket.BinaryMessage:
			data = payload
		case websocket.TextMessage:
			var env models.AudioEnvelope
			if err := json.Unmarshal(payload, &env); err != nil || env.Type != "audio" {
				s.send(models.ErrorMessage{Type: models.MessageTypeError, Error: "expected binary frame or audio envelope"})
				continue
			}
			decoded, err := base64.StdEncoding.DecodeString(env.Data)
			if err != nil {
				s.send(models.ErrorMessage{Type: models.MessageTypeError, Error: "invalid base64 audio data"})
				continue
			}
			data = decoded
		default:
			continue
		}

		s.handleSegment(data)
	}
}

// handleSegment runs one segment through the pipeline. The synchronous
// stages use a detached context: a client disconnect mid-segment must not
// leave a half-written integrity chain or an orphaned audio file, so the
// in-flight segment always runs to completion.
func (s *wsSession) handleSegment(data []byte) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	artifact, err := s.pipeline.Ingest(ctx, "", "", "", data)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Segment rejected at ingest")
		s.send(models.ErrorMessage{Type: models.MessageTypeError, Error: err.Error()})
		return
	}

	// Acknowledge receipt before the expensive stages run.
	s.send(models.ReceivedMessage{
		Type:     models.MessageTypeReceived,
		ID:       artifact.ID,
		Filename: artifact.Filename,
		Size:     artifact.SizeBytes,
	})

	outcome := s.pipeline.Process(ctx, artifact, data)

	switch outcome.Kind {
	case OutcomeProcessed:
		s.send(models.TranscriptionMessage{
			Type:        models.MessageTypeTranscription,
			ID:          artifact.ID,
			Text:        outcome.Transcription.Text,
			Language:    outcome.Transcription.Language,
			Confidence:  outcome.Transcription.LanguageProbability,
			DeleteAudio: true,
		})
		// Enrichment starts only after the response is on the wire.
		s.pipeline.EnqueueEnrichment(outcome.Transcription)
	case OutcomeFiltered:
		s.send(models.FilteredMessage{
			Type:        models.MessageTypeFiltered,
			ID:          artifact.ID,
			Reason:      outcome.Reason,
			DeleteAudio: true,
		})
	case OutcomeError:
		s.send(models.ErrorMessage{
			Type:        models.MessageTypeError,
			ID:          artifact.ID,
			Error:       outcome.Err,
			DeleteAudio: true,
		})
	}
}

// send writes one JSON message. Write failures are logged, not fatal: the
// pipeline result is already durable whether or not the client hears back.
func (s *wsSession) send(msg any) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	if err := s.conn.WriteJSON(msg); err != nil {
		s.logger.Warn().Err(err).Msg("WebSocket write failed")
	}
}
