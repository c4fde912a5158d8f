// Package gateway accepts audio segments over WebSocket or single-shot
// upload and drives each one through the admission, transcription, and
// persistence stages.
package gateway

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"voice-capture-service/internal/audio"
	"voice-capture-service/internal/config"
	"voice-capture-service/internal/enrich"
	"voice-capture-service/internal/events"
	"voice-capture-service/internal/gate"
	"voice-capture-service/internal/integrity"
	"voice-capture-service/internal/models"
	"voice-capture-service/internal/observability/metrics"
	"voice-capture-service/internal/privacy"
	"voice-capture-service/internal/store"
	"voice-capture-service/internal/textfilter"
	"voice-capture-service/internal/transcribe"
)

// ValidationError rejects an upload before any ingest id is created.
type ValidationError struct {
	Check   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed (%s): %s", e.Check, e.Message)
}

// OutcomeKind classifies the terminal pipeline result for one segment.
type OutcomeKind string

const (
	OutcomeProcessed OutcomeKind = "processed"
	OutcomeFiltered  OutcomeKind = "filtered"
	OutcomeError     OutcomeKind = "error"
)

// Outcome is what the caller is told about one segment.
type Outcome struct {
	Kind          OutcomeKind
	Reason        models.FilterReason
	Err           string
	Transcription *models.TranscriptionRecord
}

// Pipeline wires the per-segment processing stages together. All stages are
// synchronous except enrichment, which is enqueued by the transport handler
// after the client response has been written.
type Pipeline struct {
	cfg         *config.Config
	store       *store.Store
	chain       *integrity.Chain
	speechGate  *gate.SpeechGate
	speakerGate *gate.SpeakerGate
	filter      *textfilter.Filter
	redactor    *privacy.Redactor
	engine      transcribe.Engine
	enricher    *enrich.Worker
	publisher   *events.Publisher
	metrics     *metrics.Metrics
	logger      zerolog.Logger

	allowedTypes map[string]bool
}

// NewPipeline constructs the pipeline from explicitly injected dependencies.
func NewPipeline(
	cfg *config.Config,
	st *store.Store,
	chain *integrity.Chain,
	speechGate *gate.SpeechGate,
	speakerGate *gate.SpeakerGate,
	filter *textfilter.Filter,
	redactor *privacy.Redactor,
	engine transcribe.Engine,
	enricher *enrich.Worker,
	publisher *events.Publisher,
	logger zerolog.Logger,
) *Pipeline {
	allowed := make(map[string]bool, len(cfg.AllowedContentTypes))
	for _, ct := range cfg.AllowedContentTypes {
		allowed[ct] = true
	}
	return &Pipeline{
		cfg:          cfg,
		store:        st,
		chain:        chain,
		speechGate:   speechGate,
		speakerGate:  speakerGate,
		filter:       filter,
		redactor:     redactor,
		engine:       engine,
		enricher:     enricher,
		publisher:    publisher,
		metrics:      metrics.DefaultMetrics,
		logger:       logger.With().Str("component", "pipeline").Logger(),
		allowedTypes: allowed,
	}
}

// Ingest validates a segment and makes it durable: raw bytes on disk, a
// pending artifact row, and a "received" integrity event. Validation
// failures happen before any persistence; no ingest id is created for them.
func (p *Pipeline) Ingest(ctx context.Context, id, filename, contentType string, data []byte) (*models.IngestArtifact, error) {
	if int64(len(data)) > p.cfg.MaxUploadBytes {
		p.metrics.IngestRejected.WithLabelValues("size").Inc()
		return nil, &ValidationError{Check: "size", Message: fmt.Sprintf("payload is %d bytes, limit is %d", len(data), p.cfg.MaxUploadBytes)}
	}
	if contentType != "" && !p.allowedTypes[contentType] {
		p.metrics.IngestRejected.WithLabelValues("content_type").Inc()
		return nil, &ValidationError{Check: "content_type", Message: "unsupported content type: " + contentType}
	}
	if !audio.HasMagic(data) {
		p.metrics.IngestRejected.WithLabelValues("signature").Inc()
		return nil, &ValidationError{Check: "signature", Message: "byte signature does not match a WAV container"}
	}

	if id == "" {
		id = uuid.NewString()
	}
	if filename == "" {
		filename = id + ".wav"
	}

	if err := os.MkdirAll(p.cfg.StorageDir, 0o755); err != nil {
		return nil, fmt.Errorf("gateway: create storage dir: %w", err)
	}
	path := filepath.Join(p.cfg.StorageDir, id+".wav")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return nil, fmt.Errorf("gateway: write audio: %w", err)
	}

	artifact := &models.IngestArtifact{
		ID:          id,
		Filename:    filename,
		StoragePath: path,
		SizeBytes:   int64(len(data)),
		Status:      models.IngestStatusPending,
	}
	if err := p.store.UpsertArtifact(ctx, artifact); err != nil {
		os.Remove(path)
		return nil, err
	}

	if _, err := p.chain.Append(ctx, id, integrity.StageReceived, data, map[string]string{
		"filename": filename,
		"size":     strconv.Itoa(len(data)),
	}); err != nil {
		return nil, err
	}
	p.metrics.IntegrityEventsAppended.Inc()
	p.metrics.IngestsTotal.Inc()
	p.metrics.IngestBytes.Add(float64(len(data)))

	return artifact, nil
}

// Process runs the synchronous stages for one stored segment: speech gate,
// speaker gate, transcription, noise/language filter, privacy policy, and
// the idempotent persistence step. The raw audio file is deleted on every
// exit path; no segment's audio outlives its own pipeline run.
func (p *Pipeline) Process(ctx context.Context, artifact *models.IngestArtifact, data []byte) Outcome {
	defer os.Remove(artifact.StoragePath)

	logger := p.logger.With().Str("ingestId", artifact.ID).Logger()

	if verdict := p.speechGate.Check(data); !verdict.Pass {
		logger.Info().
			Float64("speechRatio", verdict.SpeechRatio).
			Float64("highFreqRatio", verdict.HighFreqRatio).
			Msg("Segment rejected by speech gate")
		return p.filtered(ctx, artifact, models.FilterReasonNotSpeech)
	}

	if v := p.speakerGate.Check(ctx, data); !v.IsUser {
		logger.Info().Float64("confidence", v.Confidence).Str("method", v.Method).
			Msg("Segment rejected by speaker gate")
		return p.filtered(ctx, artifact, models.FilterReasonNotUserSpeaker)
	}

	start := time.Now()
	result, err := p.engine.Transcribe(ctx, artifact.StoragePath, p.cfg.TranscribeLanguage)
	p.metrics.TranscriptionLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		p.metrics.TranscriptionErrors.Inc()
		logger.Error().Err(err).Msg("Transcription failed")
		return p.failed(ctx, artifact, err)
	}

	if verdict := p.filter.Check(result.Text, result.Language, result.LanguageProbability); !verdict.Pass {
		logger.Info().Str("reason", string(verdict.Reason)).Str("detail", verdict.Detail).
			Msg("Transcript rejected by noise/language filter")
		return p.filtered(ctx, artifact, verdict.Reason)
	}

	redaction := p.redactor.Apply(result.Text)
	p.metrics.PIIFindings.WithLabelValues(redaction.Reason).Add(float64(redaction.PIICount))
	if !redaction.Allowed {
		logger.Info().Int("piiCount", redaction.PIICount).Msg("Transcript blocked by privacy policy")
		return p.filtered(ctx, artifact, models.FilterReasonPIIBlocked)
	}

	rec := &models.TranscriptionRecord{
		IngestID:            artifact.ID,
		Text:                redaction.Text,
		Language:            result.Language,
		LanguageProbability: result.LanguageProbability,
		Duration:            result.Duration,
		Segments:            result.Segments,
	}
	transcriptionID, created, err := p.store.SaveTranscription(ctx, rec)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to persist transcription")
		return p.failed(ctx, artifact, err)
	}
	rec.ID = transcriptionID

	if created {
		if _, err := p.chain.Append(ctx, artifact.ID, integrity.StageTranscriptionSaved, []byte(rec.Text), map[string]string{
			"transcription_id": transcriptionID,
			"language":         rec.Language,
		}); err != nil {
			logger.Error().Err(err).Msg("Failed to append integrity event")
		} else {
			p.metrics.IntegrityEventsAppended.Inc()
		}

		ev := models.TranscriptFinalEvent{
			EventType:       "voice.transcript.final",
			IngestID:        artifact.ID,
			TranscriptionID: transcriptionID,
			Text:            rec.Text,
			Language:        rec.Language,
			Confidence:      rec.LanguageProbability,
			DurationSec:     rec.Duration,
			Timestamp:       time.Now().UnixMilli(),
		}
		if err := p.publisher.PublishTranscript(ctx, artifact.ID, ev); err != nil {
			logger.Error().Err(err).Msg("Failed to publish transcript event")
		}
	}

	p.metrics.IngestsByOutcome.WithLabelValues(string(models.IngestStatusProcessed)).Inc()
	logger.Info().Str("transcriptionId", transcriptionID).Bool("created", created).
		Str("language", rec.Language).Msg("Segment processed")
	return Outcome{Kind: OutcomeProcessed, Transcription: rec}
}

// EnqueueEnrichment hands a persisted transcription to the enrichment pool.
// Called by transports only after the client response has been written.
func (p *Pipeline) EnqueueEnrichment(rec *models.TranscriptionRecord) {
	if rec == nil {
		return
	}
	p.enricher.Enqueue(*rec)
}

func (p *Pipeline) filtered(ctx context.Context, artifact *models.IngestArtifact, reason models.FilterReason) Outcome {
	if err := p.store.MarkFiltered(ctx, artifact.ID, reason); err != nil {
		p.logger.Error().Err(err).Str("ingestId", artifact.ID).Msg("Failed to mark artifact filtered")
	}
	p.metrics.GateRejections.WithLabelValues(string(reason)).Inc()
	p.metrics.IngestsByOutcome.WithLabelValues(string(models.IngestStatusFiltered)).Inc()
	return Outcome{Kind: OutcomeFiltered, Reason: reason}
}

func (p *Pipeline) failed(ctx context.Context, artifact *models.IngestArtifact, cause error) Outcome {
	if err := p.store.MarkError(ctx, artifact.ID, cause.Error()); err != nil {
		p.logger.Error().Err(err).Str("ingestId", artifact.ID).Msg("Failed to mark artifact errored")
	}
	p.metrics.IngestsByOutcome.WithLabelValues(string(models.IngestStatusError)).Inc()
	return Outcome{Kind: OutcomeError, Err: cause.Error()}
}
