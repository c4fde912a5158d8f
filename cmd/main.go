package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"voice-capture-service/internal/app"
	"voice-capture-service/internal/config"
	"voice-capture-service/internal/enrich"
	"voice-capture-service/internal/events"
	"voice-capture-service/internal/gate"
	"voice-capture-service/internal/gateway"
	"voice-capture-service/internal/integrity"
	"voice-capture-service/internal/observability"
	"voice-capture-service/internal/privacy"
	"voice-capture-service/internal/store"
	"voice-capture-service/internal/textfilter"
	"voice-capture-service/internal/transcribe"
	transcribegoogle "voice-capture-service/internal/transcribe/google"
	transcribemock "voice-capture-service/internal/transcribe/mock"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// Logger is not configured yet at this point.
		println("config error:", err.Error())
		os.Exit(1)
	}

	application := app.New(cfg)
	logger := application.Logger
	if err := application.Start(); err != nil {
		logger.Fatal().Err(err).Msg("Application start failed")
	}
	defer application.Shutdown()

	st, err := store.Open(cfg.DBPath)
	if err != nil {
		logger.Fatal().Err(err).Str("path", cfg.DBPath).Msg("Failed to open database")
	}
	defer st.Close()

	chain := integrity.New(st.DB())

	// Kafka publisher with separate topics for transcripts and enrichment output
	publisher := events.New(&events.Config{
		Enabled:         cfg.KafkaEnabled,
		Brokers:         cfg.KafkaBrokers,
		TopicTranscript: cfg.KafkaTopicTranscript,
		TopicStructured: cfg.KafkaTopicStructured,
		Principal:       cfg.KafkaPrincipal,
	})
	defer publisher.Close()

	var engine transcribe.Engine
	switch cfg.TranscribeProvider {
	case "google":
		g, err := transcribegoogle.New(context.Background())
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to create Google transcription engine")
		}
		defer g.Close()
		engine = g
	default:
		logger.Warn().Msg("Using mock transcription engine")
		engine = transcribemock.New()
	}

	classifier, err := enrich.NewClassifier(cfg.DomainTablePath)
	if err != nil {
		logger.Fatal().Err(err).Str("path", cfg.DomainTablePath).Msg("Failed to load domain table")
	}

	// No external analyzer is wired by default; enrichment degrades to the
	// locally derived fields. See enrich.Analyzer for the contract.
	var analyzer enrich.Analyzer

	enricher := enrich.NewWorker(cfg, st, analyzer, classifier, publisher, logger)
	enricher.Start()
	defer enricher.Stop()

	speechGate := gate.NewSpeechGate(cfg, logger)
	speakerGate := gate.NewSpeakerGate(cfg, &gate.SignatureVerifier{}, st, logger)
	filter := textfilter.New(cfg, logger)
	redactor := privacy.New(cfg.PrivacyMode, privacy.RegexDetector{}, logger)

	pipeline := gateway.NewPipeline(cfg, st, chain, speechGate, speakerGate, filter, redactor,
		engine, enricher, publisher, logger)
	gw := gateway.New(pipeline, logger)

	obsServer := observability.NewServer(cfg.ObservabilityAddr)
	obsServer.Start()

	server := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      gw.Router(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info().Str("port", cfg.HTTPPort).Msg("Voice capture service started")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("HTTP serve failed")
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	logger.Info().Msg("Shutting down HTTP server")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("HTTP shutdown error")
	}
	if err := obsServer.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("Observability shutdown error")
	}
}
