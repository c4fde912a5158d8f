// Package config loads service configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the full configuration for the voice capture service.
type Config struct {
	// HTTP / WebSocket gateway
	HTTPPort          string
	ObservabilityAddr string

	// Storage
	StorageDir string
	DBPath     string

	// Upload validation
	MaxUploadBytes      int64
	AllowedContentTypes []string

	// Speech gate
	SpeechGateEnabled  bool
	SpeechBandLowHz    float64
	SpeechBandHighHz   float64
	EnergyThreshold    float64
	HighFreqThreshold  float64
	HighFreqCutoffHz   float64

	// Speaker gate
	SpeakerGateEnabled  bool
	AmplitudeThreshold  float64
	SimilarityThreshold float64

	// Noise / language filter
	MinWords           int
	MinLanguageProb    float64
	AllowedLanguages   []string
	HallucinationFile  string

	// Privacy
	PrivacyMode string

	// Transcription
	TranscribeProvider string
	TranscribeLanguage string

	// Enrichment
	EnrichWorkers     int
	EnrichQueueSize   int
	EnrichAttempts    int
	EnrichBackoffBase time.Duration
	EnrichModel       string
	DomainTablePath   string

	// Kafka
	KafkaEnabled         bool
	KafkaBrokers         []string
	KafkaTopicTranscript string
	KafkaTopicStructured string
	KafkaPrincipal       string
}

// Load builds a Config from defaults, an optional .env file, and environment
// variables, in that order of precedence.
func Load() (*Config, error) {
	cfg := &Config{
		HTTPPort:          "8080",
		ObservabilityAddr: ":9090",

		StorageDir: "./data/audio",
		DBPath:     "./data/voice-capture.db",

		MaxUploadBytes:      10 * 1024 * 1024,
		AllowedContentTypes: []string{"audio/wav", "audio/x-wav", "audio/wave", "application/octet-stream"},

		SpeechGateEnabled: true,
		SpeechBandLowHz:   300,
		SpeechBandHighHz:  3400,
		EnergyThreshold:   0.5,
		HighFreqThreshold: 0.3,
		HighFreqCutoffHz:  4000,

		SpeakerGateEnabled:  false,
		AmplitudeThreshold:  0.01,
		SimilarityThreshold: 0.75,

		MinWords:         2,
		MinLanguageProb:  0.5,
		AllowedLanguages: []string{"ru", "kk", "en"},

		PrivacyMode: "audit",

		TranscribeProvider: "mock",
		TranscribeLanguage: "",

		EnrichWorkers:     2,
		EnrichQueueSize:   64,
		EnrichAttempts:    3,
		EnrichBackoffBase: 2 * time.Second,
		EnrichModel:       "local",

		KafkaEnabled:         false,
		KafkaTopicTranscript: "transcripts.final",
		KafkaTopicStructured: "events.structured",
		KafkaPrincipal:       "svc-voice-capture",
	}

	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to load .env file: %w", err)
		}
	}

	cfg.HTTPPort = getEnv("HTTP_PORT", cfg.HTTPPort)
	cfg.ObservabilityAddr = getEnv("OBSERVABILITY_ADDR", cfg.ObservabilityAddr)
	cfg.StorageDir = getEnv("STORAGE_DIR", cfg.StorageDir)
	cfg.DBPath = getEnv("DB_PATH", cfg.DBPath)

	cfg.MaxUploadBytes = getInt64("MAX_UPLOAD_BYTES", cfg.MaxUploadBytes)
	if v := getEnv("ALLOWED_CONTENT_TYPES", ""); v != "" {
		cfg.AllowedContentTypes = splitList(v)
	}

	cfg.SpeechGateEnabled = getBool("FILTER_MUSIC", cfg.SpeechGateEnabled)
	cfg.SpeechBandLowHz = getFloat("SPEECH_BAND_LOW_HZ", cfg.SpeechBandLowHz)
	cfg.SpeechBandHighHz = getFloat("SPEECH_BAND_HIGH_HZ", cfg.SpeechBandHighHz)
	cfg.EnergyThreshold = getFloat("ENERGY_THRESHOLD", cfg.EnergyThreshold)
	cfg.HighFreqThreshold = getFloat("HIGH_FREQ_THRESHOLD", cfg.HighFreqThreshold)
	cfg.HighFreqCutoffHz = getFloat("HIGH_FREQ_CUTOFF_HZ", cfg.HighFreqCutoffHz)

	cfg.SpeakerGateEnabled = getBool("SPEAKER_VERIFICATION", cfg.SpeakerGateEnabled)
	cfg.AmplitudeThreshold = getFloat("AMPLITUDE_THRESHOLD", cfg.AmplitudeThreshold)
	cfg.SimilarityThreshold = getFloat("SIMILARITY_THRESHOLD", cfg.SimilarityThreshold)

	cfg.MinWords = getInt("MIN_WORDS", cfg.MinWords)
	cfg.MinLanguageProb = getFloat("MIN_LANGUAGE_PROB", cfg.MinLanguageProb)
	if v := getEnv("ALLOWED_LANGUAGES", ""); v != "" {
		cfg.AllowedLanguages = splitList(v)
	}
	cfg.HallucinationFile = getEnv("HALLUCINATION_FILE", cfg.HallucinationFile)

	cfg.PrivacyMode = getEnv("PRIVACY_MODE", cfg.PrivacyMode)

	cfg.TranscribeProvider = getEnv("TRANSCRIBE_PROVIDER", cfg.TranscribeProvider)
	cfg.TranscribeLanguage = getEnv("TRANSCRIBE_LANGUAGE", cfg.TranscribeLanguage)

	cfg.EnrichWorkers = getInt("ENRICH_WORKERS", cfg.EnrichWorkers)
	cfg.EnrichQueueSize = getInt("ENRICH_QUEUE_SIZE", cfg.EnrichQueueSize)
	cfg.EnrichAttempts = getInt("ENRICH_ATTEMPTS", cfg.EnrichAttempts)
	if v := getEnv("ENRICH_BACKOFF_BASE", ""); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.EnrichBackoffBase = d
		}
	}
	cfg.EnrichModel = getEnv("ENRICH_MODEL", cfg.EnrichModel)
	cfg.DomainTablePath = getEnv("DOMAIN_TABLE_PATH", cfg.DomainTablePath)

	cfg.KafkaEnabled = getBool("KAFKA_ENABLED", cfg.KafkaEnabled)
	if v := getEnv("KAFKA_BROKERS", ""); v != "" {
		cfg.KafkaBrokers = splitList(v)
	}
	cfg.KafkaTopicTranscript = getEnv("KAFKA_TOPIC_TRANSCRIPT", cfg.KafkaTopicTranscript)
	cfg.KafkaTopicStructured = getEnv("KAFKA_TOPIC_STRUCTURED", cfg.KafkaTopicStructured)
	cfg.KafkaPrincipal = getEnv("KAFKA_PRINCIPAL", cfg.KafkaPrincipal)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("MAX_UPLOAD_BYTES must be positive, got %d", c.MaxUploadBytes)
	}
	if c.EnrichWorkers <= 0 {
		return fmt.Errorf("ENRICH_WORKERS must be positive, got %d", c.EnrichWorkers)
	}
	if c.EnrichQueueSize <= 0 {
		return fmt.Errorf("ENRICH_QUEUE_SIZE must be positive, got %d", c.EnrichQueueSize)
	}
	if c.EnrichAttempts <= 0 {
		return fmt.Errorf("ENRICH_ATTEMPTS must be positive, got %d", c.EnrichAttempts)
	}
	if c.SpeechBandLowHz >= c.SpeechBandHighHz {
		return fmt.Errorf("speech band is inverted: %.0f..%.0f Hz", c.SpeechBandLowHz, c.SpeechBandHighHz)
	}
	switch c.TranscribeProvider {
	case "mock", "google":
	default:
		return fmt.Errorf("invalid transcribe provider: %s (must be mock or google)", c.TranscribeProvider)
	}
	return nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getInt64(key string, def int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return def
}

func getFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
