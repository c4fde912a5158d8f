package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// Gateway exposes the ingest API over HTTP and WebSocket.
type Gateway struct {
	pipeline *Pipeline
	logger   zerolog.Logger
	maxBody  int64
}

// New constructs the gateway around a pipeline.
func New(pipeline *Pipeline, logger zerolog.Logger) *Gateway {
	return &Gateway{
		pipeline: pipeline,
		logger:   logger.With().Str("component", "gateway").Logger(),
		maxBody:  pipeline.cfg.MaxUploadBytes + 1,
	}
}

// Router constructs the HTTP router for the service.
func (g *Gateway) Router() http.Handler {
	r := chi.NewRouter()

	// Basic middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	// Health endpoints
	r.Get("/v1/liveness", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/v1/readiness", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	// API routes
	r.Route("/v1", func(r chi.Router) {
		r.Post("/ingest", g.handleIngest)
		r.Get("/ws", g.handleWS)
	})

	return r
}

// handleIngest is the single-shot upload endpoint. It acknowledges storage
// synchronously; transcription runs afterwards, decoupled from the response.
func (g *Gateway) handleIngest(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(io.LimitReader(r.Body, g.maxBody))
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}

	id := r.URL.Query().Get("id")
	filename := r.URL.Query().Get("filename")
	contentType := r.Header.Get("Content-Type")

	artifact, err := g.pipeline.Ingest(r.Context(), id, filename, contentType, data)
	if err != nil {
		var vErr *ValidationError
		if errors.As(err, &vErr) {
			writeJSON(w, http.StatusBadRequest, map[string]any{
				"status": "rejected",
				"check":  vErr.Check,
				"error":  vErr.Message,
			})
			return
		}
		g.logger.Error().Err(err).Msg("Ingest failed")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"status":   "received",
		"id":       artifact.ID,
		"filename": artifact.Filename,
		"size":     artifact.SizeBytes,
	})

	// Processing continues after the acknowledgment, detached from the
	// request context so a dropped client never truncates the pipeline.
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		outcome := g.pipeline.Process(ctx, artifact, data)
		if outcome.Kind == OutcomeProcessed {
			g.pipeline.EnqueueEnrichment(outcome.Transcription)
		}
	}()
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
