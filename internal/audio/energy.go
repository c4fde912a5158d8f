package audio

import "math"

// Spectral energy estimation for the admission gates. The gates only need
// coarse band ratios, so the spectrum is sampled with Goertzel at fixed
// frequency steps instead of a full FFT.

const binStepHz = 100.0

// goertzelPower returns signal power at a single frequency.
func goertzelPower(samples []float64, sampleRate int, freq float64) float64 {
	if len(samples) == 0 {
		return 0
	}
	omega := 2 * math.Pi * freq / float64(sampleRate)
	coeff := 2 * math.Cos(omega)

	var s0, s1, s2 float64
	for _, x := range samples {
		s0 = x + coeff*s1 - s2
		s2 = s1
		s1 = s0
	}
	return s1*s1 + s2*s2 - coeff*s1*s2
}

// BandEnergy returns the summed spectral power between lo and hi Hz.
// Bounds beyond Nyquist are clamped.
func BandEnergy(p PCM, lo, hi float64) float64 {
	nyquist := float64(p.SampleRate) / 2
	if hi > nyquist {
		hi = nyquist
	}
	if lo < binStepHz {
		lo = binStepHz
	}

	var total float64
	for f := lo; f <= hi; f += binStepHz {
		total += goertzelPower(p.Samples, p.SampleRate, f)
	}
	return total
}

// TotalEnergy returns the summed spectral power across the usable spectrum.
func TotalEnergy(p PCM) float64 {
	return BandEnergy(p, binStepHz, float64(p.SampleRate)/2)
}

// PeakAmplitude returns the maximum absolute sample value.
func PeakAmplitude(p PCM) float64 {
	var peak float64
	for _, s := range p.Samples {
		if a := math.Abs(s); a > peak {
			peak = a
		}
	}
	return peak
}

// Signature computes a coarse per-band energy fingerprint, normalized so the
// bands sum to 1. Used for speaker profile enrollment and comparison.
func Signature(p PCM, bands int) []float64 {
	if bands <= 0 {
		bands = 8
	}
	nyquist := float64(p.SampleRate) / 2
	width := nyquist / float64(bands)

	sig := make([]float64, bands)
	var total float64
	for i := 0; i < bands; i++ {
		lo := float64(i) * width
		hi := lo + width
		e := BandEnergy(p, lo, hi)
		sig[i] = e
		total += e
	}
	if total > 0 {
		for i := range sig {
			sig[i] /= total
		}
	}
	return sig
}

// CosineSimilarity compares two equal-length vectors; mismatched lengths
// score zero.
func CosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
