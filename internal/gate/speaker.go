package gate

import (
	"context"

	"github.com/rs/zerolog"

	"voice-capture-service/internal/audio"
	"voice-capture-service/internal/config"
	"voice-capture-service/internal/models"
)

// Verification is the result of comparing a segment against enrolled profiles.
type Verification struct {
	IsUser     bool
	Confidence float64
	Method     string
}

// Verifier compares a decoded segment against enrolled voice references.
type Verifier interface {
	Compare(ctx context.Context, pcm audio.PCM, profiles []models.SpeakerProfile,
		amplitudeThreshold, similarityThreshold float64) (Verification, error)
}

// ProfileSource lists the enrolled voice references.
type ProfileSource interface {
	ListSpeakerProfiles(ctx context.Context) ([]models.SpeakerProfile, error)
}

// SpeakerGate rejects segments not attributable to the enrolled owner.
// It runs before transcription so non-owner audio never pays ASR cost.
type SpeakerGate struct {
	enabled             bool
	amplitudeThreshold  float64
	similarityThreshold float64
	verifier            Verifier
	profiles            ProfileSource
	logger              zerolog.Logger
}

// NewSpeakerGate builds the gate from configuration.
func NewSpeakerGate(cfg *config.Config, verifier Verifier, profiles ProfileSource, logger zerolog.Logger) *SpeakerGate {
	return &SpeakerGate{
		enabled:             cfg.SpeakerGateEnabled,
		amplitudeThreshold:  cfg.AmplitudeThreshold,
		similarityThreshold: cfg.SimilarityThreshold,
		verifier:            verifier,
		profiles:            profiles,
		logger:              logger.With().Str("component", "speaker_gate").Logger(),
	}
}

// Check verifies segment ownership. The capability is checked once up front:
// a disabled gate, missing verifier, absent profiles, or a verification
// failure all pass the segment through as verified.
func (g *SpeakerGate) Check(ctx context.Context, data []byte) Verification {
	if !g.enabled || g.verifier == nil || g.profiles == nil {
		return Verification{IsUser: true, Method: "gate_disabled"}
	}

	profiles, err := g.profiles.ListSpeakerProfiles(ctx)
	if err != nil {
		g.logger.Warn().Err(err).Msg("Profile lookup failed, passing segment through")
		return Verification{IsUser: true, Method: "profiles_unavailable"}
	}
	if len(profiles) == 0 {
		// Not an error: nothing enrolled means nothing to compare against.
		return Verification{IsUser: true, Method: "no_profiles"}
	}

	pcm, err := audio.Decode(data)
	if err != nil {
		g.logger.Warn().Err(err).Msg("Audio decode failed, passing segment through")
		return Verification{IsUser: true, Method: "decode_failed"}
	}

	v, err := g.verifier.Compare(ctx, pcm, profiles, g.amplitudeThreshold, g.similarityThreshold)
	if err != nil {
		g.logger.Warn().Err(err).Msg("Speaker verification failed, passing segment through")
		return Verification{IsUser: true, Method: "verification_failed"}
	}

	g.logger.Debug().
		Bool("isUser", v.IsUser).
		Float64("confidence", v.Confidence).
		Str("method", v.Method).
		Msg("Speaker gate verdict")
	return v
}

// SignatureVerifier is the built-in Verifier: it compares coarse per-band
// energy fingerprints with cosine similarity. A segment quieter than the
// amplitude threshold cannot be compared and is treated as verified.
type SignatureVerifier struct {
	Bands int
}

// Compare implements Verifier.
func (sv *SignatureVerifier) Compare(_ context.Context, pcm audio.PCM, profiles []models.SpeakerProfile,
	amplitudeThreshold, similarityThreshold float64) (Verification, error) {

	if audio.PeakAmplitude(pcm) < amplitudeThreshold {
		return Verification{IsUser: true, Confidence: 0, Method: "amplitude_below_threshold"}, nil
	}

	bands := sv.Bands
	if bands <= 0 {
		bands = 8
	}
	sig := audio.Signature(pcm, bands)

	var best float64
	for _, p := range profiles {
		if sim := audio.CosineSimilarity(sig, p.Signature); sim > best {
			best = sim
		}
	}

	return Verification{
		IsUser:     best >= similarityThreshold,
		Confidence: best,
		Method:     "energy_signature",
	}, nil
}
