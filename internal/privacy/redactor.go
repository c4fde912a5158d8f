// Package privacy applies the configured PII policy to accepted transcripts.
package privacy

import (
	"github.com/rs/zerolog"
)

// Mode selects what happens when PII is found in a transcript.
type Mode string

const (
	// ModeStrict discards the whole transcript when any PII is found.
	ModeStrict Mode = "strict"
	// ModeMask rewrites matched spans with redaction placeholders.
	ModeMask Mode = "mask"
	// ModeAudit passes text through unmodified; findings are counted only.
	ModeAudit Mode = "audit"
)

// NormalizeMode maps configuration strings onto a policy mode. Unknown or
// unset values fall back to audit.
func NormalizeMode(s string) Mode {
	switch Mode(s) {
	case ModeStrict, ModeMask, ModeAudit:
		return Mode(s)
	default:
		return ModeAudit
	}
}

// Reason codes reported with every redaction result.
const (
	ReasonNoPII            = "no_pii"
	ReasonPIIBlocked       = "pii_blocked"
	ReasonPIIMasked        = "pii_masked"
	ReasonPIIDetectedAudit = "pii_detected_audit"
)

// Finding is one detected PII span.
type Finding struct {
	Type  string
	Start int
	End   int
	Match string
}

// Detector locates and masks PII in free text.
type Detector interface {
	Detect(text string) []Finding
	Mask(text string) string
}

// Result is the policy outcome for one transcript.
type Result struct {
	Allowed  bool
	Text     string
	PIICount int
	Reason   string
}

// Redactor applies the configured mode using a pluggable Detector.
type Redactor struct {
	mode     Mode
	detector Detector
	logger   zerolog.Logger
}

// New builds a Redactor. A nil detector disables detection: every transcript
// passes through unchanged with a no_pii result.
func New(mode string, detector Detector, logger zerolog.Logger) *Redactor {
	m := NormalizeMode(mode)
	l := logger.With().Str("component", "privacy").Logger()
	if Mode(mode) != m {
		l.Warn().Str("configured", mode).Str("effective", string(m)).Msg("Unknown privacy mode normalized")
	}
	return &Redactor{mode: m, detector: detector, logger: l}
}

// Mode returns the effective policy mode.
func (r *Redactor) Mode() Mode {
	return r.mode
}

// Apply runs detection and the mode policy over one transcript.
func (r *Redactor) Apply(text string) Result {
	if r.detector == nil {
		return Result{Allowed: true, Text: text, Reason: ReasonNoPII}
	}

	findings := r.detector.Detect(text)
	if len(findings) == 0 {
		return Result{Allowed: true, Text: text, Reason: ReasonNoPII}
	}

	switch r.mode {
	case ModeStrict:
		return Result{Allowed: false, PIICount: len(findings), Reason: ReasonPIIBlocked}
	case ModeMask:
		return Result{Allowed: true, Text: r.detector.Mask(text), PIICount: len(findings), Reason: ReasonPIIMasked}
	default: // audit
		return Result{Allowed: true, Text: text, PIICount: len(findings), Reason: ReasonPIIDetectedAudit}
	}
}
