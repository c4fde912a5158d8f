package enrich

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"voice-capture-service/internal/config"
	"voice-capture-service/internal/events"
	"voice-capture-service/internal/models"
	"voice-capture-service/internal/observability/metrics"
)

// EventStore persists enrichment output.
type EventStore interface {
	SaveStructuredEvent(ctx context.Context, ev *models.StructuredEvent) error
}

// ErrNoAnalyzer marks the external analyzer capability as absent. Enrichment
// then degrades to locally derived fields without burning retry attempts.
var ErrNoAnalyzer = errors.New("enrich: no analyzer configured")

// Worker runs enrichment on a bounded pool, strictly off the response path.
//
// Jobs are submitted after the client has already been answered. The queue
// is bounded: under bursty ingestion, excess jobs are dropped and counted
// rather than spawning unbounded background work. A dropped enrichment never
// affects the already-terminal ingest status.
type Worker struct {
	store      EventStore
	analyzer   Analyzer
	classifier *Classifier
	publisher  *events.Publisher
	metrics    *metrics.Metrics
	logger     zerolog.Logger

	attempts    int
	backoffBase time.Duration
	model       string
	workers     int

	queue    chan models.TranscriptionRecord
	wg       sync.WaitGroup
	stopOnce sync.Once

	mu      sync.RWMutex
	stopped bool
}

// NewWorker builds the pool from configuration. The analyzer may be nil.
func NewWorker(cfg *config.Config, store EventStore, analyzer Analyzer, classifier *Classifier,
	publisher *events.Publisher, logger zerolog.Logger) *Worker {
	return &Worker{
		store:       store,
		analyzer:    analyzer,
		classifier:  classifier,
		publisher:   publisher,
		metrics:     metrics.DefaultMetrics,
		logger:      logger.With().Str("component", "enrich_worker").Logger(),
		attempts:    cfg.EnrichAttempts,
		backoffBase: cfg.EnrichBackoffBase,
		model:       cfg.EnrichModel,
		workers:     cfg.EnrichWorkers,
		queue:       make(chan models.TranscriptionRecord, cfg.EnrichQueueSize),
	}
}

// Start launches the worker goroutines.
func (w *Worker) Start() {
	for i := 0; i < w.workers; i++ {
		w.wg.Add(1)
		go func() {
			defer w.wg.Done()
			for rec := range w.queue {
				w.metrics.EnrichQueueDepth.Set(float64(len(w.queue)))
				w.handle(rec)
			}
		}()
	}
	w.logger.Info().Int("workers", w.workers).Int("queueSize", cap(w.queue)).Msg("Enrichment pool started")
}

// Enqueue submits one transcription for enrichment. It never blocks: when
// the queue is full, or the pool is already stopping, the job is dropped and
// counted, and false is returned.
func (w *Worker) Enqueue(rec models.TranscriptionRecord) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.stopped {
		w.metrics.EnrichDropped.Inc()
		return false
	}

	select {
	case w.queue <- rec:
		w.metrics.EnrichQueueDepth.Set(float64(len(w.queue)))
		return true
	default:
		w.metrics.EnrichDropped.Inc()
		w.logger.Warn().Str("transcriptionId", rec.ID).Msg("Enrichment queue full, job dropped")
		return false
	}
}

// QueueDepth returns the current number of queued jobs.
func (w *Worker) QueueDepth() int {
	return len(w.queue)
}

// Stop drains the queue and waits for in-flight jobs to finish. Enqueue
// calls arriving after Stop are counted as drops.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() {
		w.mu.Lock()
		w.stopped = true
		w.mu.Unlock()
		close(w.queue)
	})
	w.wg.Wait()
}

func (w *Worker) handle(rec models.TranscriptionRecord) {
	ctx := context.Background()

	ev := w.Enrich(ctx, rec)
	if err := w.store.SaveStructuredEvent(ctx, ev); err != nil {
		w.logger.Error().Err(err).Str("transcriptionId", rec.ID).Msg("Failed to persist structured event")
		return
	}

	msg := models.StructuredEventMessage{
		EventType:       "voice.event.structured",
		TranscriptionID: ev.TranscriptionID,
		StructuredID:    ev.ID,
		Summary:         ev.Summary,
		Domains:         ev.Domains,
		Topics:          ev.Topics,
		Urgency:         ev.Urgency,
		Sentiment:       ev.Sentiment,
		Confidence:      ev.EnrichmentConfidence,
		Timestamp:       time.Now().UnixMilli(),
	}
	if err := w.publisher.PublishStructured(ctx, ev.TranscriptionID, msg); err != nil {
		w.logger.Error().Err(err).Str("transcriptionId", rec.ID).Msg("Failed to publish structured event")
	}
}

// Enrich produces the structured event for one transcription. The locally
// derived fields are always populated; analyzer output is merged in when the
// external call eventually succeeds.
func (w *Worker) Enrich(ctx context.Context, rec models.TranscriptionRecord) *models.StructuredEvent {
	start := time.Now()

	ev := &models.StructuredEvent{
		TranscriptionID: rec.ID,
		Domains:         w.classifier.Classify(rec.Text),
		Tasks:           ExtractTasks(rec.Text),
		Sentiment:       Sentiment(rec.Text),
		Urgency:         UrgencyNormal,
		EnrichmentModel: w.model,
	}

	analysis, err := w.analyzeWithRetry(ctx, rec.Text)
	if err != nil {
		// Degrade gracefully: keep the locally derived fields.
		w.metrics.EnrichDegraded.Inc()
		if !errors.Is(err, ErrNoAnalyzer) {
			w.logger.Error().Err(err).Str("transcriptionId", rec.ID).
				Int("attempts", w.attempts).Msg("Analyzer exhausted retries, keeping local enrichment")
		}
	} else {
		ev.Summary = analysis.Summary
		ev.Topics = analysis.Topics
		ev.Emotions = analysis.Emotions
		if analysis.Urgency != "" {
			ev.Urgency = analysis.Urgency
		}
		ev.Tasks = mergeActions(ev.Tasks, analysis.Actions)
	}

	ev.EnrichmentConfidence = Confidence(ev)
	ev.EnrichmentLatencyMs = time.Since(start).Milliseconds()

	w.metrics.EnrichLatency.Observe(time.Since(start).Seconds())
	return ev
}

// analyzeWithRetry calls the external analyzer with exponential backoff
// between attempts (base, 2x, 4x, ...). It runs on a pool goroutine, so the
// blocking waits never touch the connection-serving path.
func (w *Worker) analyzeWithRetry(ctx context.Context, text string) (Analysis, error) {
	if w.analyzer == nil {
		return Analysis{}, ErrNoAnalyzer
	}

	var lastErr error
	for attempt := 1; attempt <= w.attempts; attempt++ {
		if attempt > 1 {
			delay := w.backoffBase << (attempt - 2)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return Analysis{}, ctx.Err()
			}
		}

		w.metrics.EnrichAttempts.Inc()
		analysis, err := w.analyzer.Analyze(ctx, text)
		if err == nil {
			return analysis, nil
		}
		w.metrics.EnrichFailures.Inc()
		lastErr = err
		w.logger.Warn().Err(err).Int("attempt", attempt).Msg("Analyzer call failed")
	}
	return Analysis{}, lastErr
}

// mergeActions appends analyzer-reported actions that local extraction
// missed, at normal priority.
func mergeActions(tasks []models.ExtractedTask, actions []string) []models.ExtractedTask {
	seen := make(map[string]bool, len(tasks))
	for _, t := range tasks {
		seen[strings.ToLower(t.Text)] = true
	}
	for _, a := range actions {
		if a == "" || seen[strings.ToLower(a)] {
			continue
		}
		tasks = append(tasks, models.ExtractedTask{Text: a, Priority: models.TaskPriorityNormal})
	}
	return tasks
}

// Confidence weights the signals present in an enrichment result, capped at 1.
func Confidence(ev *models.StructuredEvent) float64 {
	var c float64
	if len(ev.Summary) > 0 {
		c += 0.3
	}
	if n := len(ev.Topics); n > 0 {
		c += 0.1 * float64(min(n, 2))
	}
	if len(ev.Emotions) > 0 {
		c += 0.15
	}
	if ev.Urgency != UrgencyNormal && ev.Urgency != "" {
		c += 0.15
	}
	if n := len(ev.Tasks); n > 0 {
		c += 0.1 * float64(min(n, 2))
	}
	if c > 1.0 {
		c = 1.0
	}
	return c
}
