// Package textfilter rejects ASR output that is noise rather than speech:
// hallucinated stock phrases, too-short fragments, low-confidence language
// detection, and languages outside the configured allow-list.
package textfilter

import (
	"bufio"
	"os"
	"strings"

	"github.com/rs/zerolog"

	"voice-capture-service/internal/config"
	"voice-capture-service/internal/models"
)

// defaultHallucinations are stock phrases ASR engines emit for silence or
// music. Matching is exact after normalization.
var defaultHallucinations = []string{
	"thank you",
	"thank you for watching",
	"thanks for watching",
	"please subscribe",
	"bye",
	"you",
	"спасибо за просмотр",
	"продолжение следует",
	"субтитры сделал dimatorzok",
	"до встречи",
	"пока",
	"рақмет",
	"көріскенше",
}

// Verdict is the filter outcome for one transcription result.
type Verdict struct {
	Pass   bool
	Reason models.FilterReason
	Detail string
}

// Filter applies the noise and language admission rules.
type Filter struct {
	minWords        int
	minLanguageProb float64
	allowed         map[string]bool
	hallucinations  map[string]bool
	logger          zerolog.Logger
}

// New builds a Filter from configuration. If cfg.HallucinationFile is set,
// its lines extend the default phrase set.
func New(cfg *config.Config, logger zerolog.Logger) *Filter {
	f := &Filter{
		minWords:        cfg.MinWords,
		minLanguageProb: cfg.MinLanguageProb,
		allowed:         make(map[string]bool, len(cfg.AllowedLanguages)),
		hallucinations:  make(map[string]bool, len(defaultHallucinations)),
		logger:          logger.With().Str("component", "textfilter").Logger(),
	}
	for _, lang := range cfg.AllowedLanguages {
		f.allowed[strings.ToLower(lang)] = true
	}
	for _, phrase := range defaultHallucinations {
		f.hallucinations[normalize(phrase)] = true
	}
	if cfg.HallucinationFile != "" {
		if err := f.loadPhrases(cfg.HallucinationFile); err != nil {
			f.logger.Warn().Err(err).Str("path", cfg.HallucinationFile).
				Msg("Failed to load hallucination phrases, using defaults only")
		}
	}
	return f
}

func (f *Filter) loadPhrases(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		if line := normalize(scanner.Text()); line != "" {
			f.hallucinations[line] = true
		}
	}
	return scanner.Err()
}

// Check applies the admission rules in order. Hallucination matches are
// rejected regardless of the engine's confidence score.
func (f *Filter) Check(text, language string, languageProb float64) Verdict {
	normalized := normalize(text)

	if normalized == "" {
		return Verdict{Reason: models.FilterReasonNoise, Detail: "empty text"}
	}
	if f.hallucinations[normalized] {
		return Verdict{Reason: models.FilterReasonNoise, Detail: "hallucination phrase"}
	}
	if words := len(strings.Fields(normalized)); words < f.minWords {
		return Verdict{Reason: models.FilterReasonNoise, Detail: "below minimum word count"}
	}
	if languageProb < f.minLanguageProb {
		return Verdict{Reason: models.FilterReasonUnsupportedLanguage, Detail: "language probability too low"}
	}
	if !f.allowed[strings.ToLower(language)] {
		return Verdict{Reason: models.FilterReasonUnsupportedLanguage, Detail: "language not allowed: " + language}
	}
	return Verdict{Pass: true}
}

// normalize lowercases (Unicode-aware), trims whitespace, and strips
// trailing sentence punctuation so "Thank you." matches "thank you".
func normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.TrimRight(s, ".!?…")
}
