package gate

import (
	"testing"

	"github.com/rs/zerolog"

	"voice-capture-service/internal/audio"
	"voice-capture-service/internal/config"
)

func speechCfg() *config.Config {
	return &config.Config{
		SpeechGateEnabled: true,
		SpeechBandLowHz:   300,
		SpeechBandHighHz:  3400,
		EnergyThreshold:   0.5,
		HighFreqThreshold: 0.3,
		HighFreqCutoffHz:  4000,
	}
}

func wavTone(freq float64) []byte {
	return audio.EncodeWAV(audio.Tone(freq, 0.8, 2.0, 16000), 16000)
}

func TestSpeechGate_SpeechBandTonePasses(t *testing.T) {
	g := NewSpeechGate(speechCfg(), zerolog.Nop())

	v := g.Check(wavTone(1000))
	if !v.Pass {
		t.Fatalf("1kHz tone should pass: speechRatio=%f highFreqRatio=%f", v.SpeechRatio, v.HighFreqRatio)
	}
	if v.SpeechRatio < 0.5 {
		t.Errorf("speechRatio = %f, want >= 0.5", v.SpeechRatio)
	}
}

func TestSpeechGate_HighFrequencyNoiseRejected(t *testing.T) {
	g := NewSpeechGate(speechCfg(), zerolog.Nop())

	v := g.Check(wavTone(6000))
	if v.Pass {
		t.Fatalf("6kHz tone should be rejected: speechRatio=%f highFreqRatio=%f", v.SpeechRatio, v.HighFreqRatio)
	}
	if v.Reason != "not_speech" {
		t.Errorf("reason = %q, want not_speech", v.Reason)
	}
}

func TestSpeechGate_DisabledAlwaysPasses(t *testing.T) {
	cfg := speechCfg()
	cfg.SpeechGateEnabled = false
	g := NewSpeechGate(cfg, zerolog.Nop())

	if v := g.Check(wavTone(6000)); !v.Pass {
		t.Error("disabled gate should pass everything")
	}
}

func TestSpeechGate_FailsOpenOnDecodeError(t *testing.T) {
	g := NewSpeechGate(speechCfg(), zerolog.Nop())

	v := g.Check([]byte("RIFFxxxxWAVEgarbage"))
	if !v.Pass {
		t.Error("undecodable audio should fail open")
	}
	if v.Reason != "decode_failed" {
		t.Errorf("reason = %q, want decode_failed", v.Reason)
	}
}

func TestSpeechGate_SilenceRejected(t *testing.T) {
	g := NewSpeechGate(speechCfg(), zerolog.Nop())

	silent := audio.EncodeWAV(make([]float64, 16000), 16000)
	if v := g.Check(silent); v.Pass {
		t.Error("pure silence should be rejected")
	}
}
