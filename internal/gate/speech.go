// Package gate implements the admission filters that run before the
// expensive transcription call: the energy-based speech gate and the
// configuration-gated speaker gate.
//
// Both gates fail open. When a gate cannot make a confident decision
// (disabled, undecodable audio, no enrolled profile) the segment passes
// through; false rejection of real speech is considered worse than
// occasionally transcribing noise.
package gate

import (
	"github.com/rs/zerolog"

	"voice-capture-service/internal/audio"
	"voice-capture-service/internal/config"
)

// SpeechVerdict is the outcome of the speech gate for one segment.
type SpeechVerdict struct {
	Pass          bool
	SpeechRatio   float64
	HighFreqRatio float64
	Reason        string
}

// SpeechGate rejects segments whose spectral shape does not look like
// speech, before any transcription cost is paid.
type SpeechGate struct {
	enabled           bool
	bandLow           float64
	bandHigh          float64
	energyThreshold   float64
	highFreqThreshold float64
	highFreqCutoff    float64
	logger            zerolog.Logger
}

// NewSpeechGate builds the gate from configuration.
func NewSpeechGate(cfg *config.Config, logger zerolog.Logger) *SpeechGate {
	return &SpeechGate{
		enabled:           cfg.SpeechGateEnabled,
		bandLow:           cfg.SpeechBandLowHz,
		bandHigh:          cfg.SpeechBandHighHz,
		energyThreshold:   cfg.EnergyThreshold,
		highFreqThreshold: cfg.HighFreqThreshold,
		highFreqCutoff:    cfg.HighFreqCutoffHz,
		logger:            logger.With().Str("component", "speech_gate").Logger(),
	}
}

// Check computes the speech-band and high-frequency energy ratios for a raw
// audio segment and applies the admission rule:
//
//	pass iff speech_ratio >= energy_threshold AND high_freq_ratio <= high_freq_threshold
//
// A disabled gate or an undecodable segment always passes.
func (g *SpeechGate) Check(data []byte) SpeechVerdict {
	if !g.enabled {
		return SpeechVerdict{Pass: true, Reason: "gate_disabled"}
	}

	pcm, err := audio.Decode(data)
	if err != nil {
		// Fail open: availability over precision.
		g.logger.Warn().Err(err).Msg("Audio decode failed, passing segment through")
		return SpeechVerdict{Pass: true, Reason: "decode_failed"}
	}

	total := audio.TotalEnergy(pcm)
	if total == 0 {
		return SpeechVerdict{Pass: false, Reason: "silent"}
	}

	speechRatio := audio.BandEnergy(pcm, g.bandLow, g.bandHigh) / total
	highFreqRatio := audio.BandEnergy(pcm, g.highFreqCutoff, float64(pcm.SampleRate)/2) / total

	v := SpeechVerdict{
		SpeechRatio:   speechRatio,
		HighFreqRatio: highFreqRatio,
	}
	v.Pass = speechRatio >= g.energyThreshold && highFreqRatio <= g.highFreqThreshold
	if !v.Pass {
		v.Reason = "not_speech"
	}

	g.logger.Debug().
		Bool("pass", v.Pass).
		Float64("speechRatio", speechRatio).
		Float64("highFreqRatio", highFreqRatio).
		Msg("Speech gate verdict")
	return v
}
