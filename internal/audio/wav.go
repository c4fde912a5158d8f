// Package audio decodes WAV containers into PCM buffers for the gates.
package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// riffMagic and waveMagic are the container signature bytes checked before
// any persistence happens.
var (
	riffMagic = []byte("RIFF")
	waveMagic = []byte("WAVE")
)

// ErrNotWAV is returned when the byte signature does not match a WAV container.
var ErrNotWAV = errors.New("audio: not a WAV container")

// PCM is a decoded, mono, normalized audio buffer.
type PCM struct {
	SampleRate int
	Samples    []float64 // normalized to [-1, 1]
}

// Duration returns the buffer length in seconds.
func (p PCM) Duration() float64 {
	if p.SampleRate == 0 {
		return 0
	}
	return float64(len(p.Samples)) / float64(p.SampleRate)
}

// HasMagic reports whether data starts with the WAV container signature.
func HasMagic(data []byte) bool {
	return len(data) >= 12 &&
		string(data[0:4]) == string(riffMagic) &&
		string(data[8:12]) == string(waveMagic)
}

// Decode parses a 16-bit PCM WAV file into a normalized mono buffer.
// Multi-channel input is downmixed by averaging.
func Decode(data []byte) (PCM, error) {
	if !HasMagic(data) {
		return PCM{}, ErrNotWAV
	}

	var (
		sampleRate    int
		numChannels   int
		bitsPerSample int
		audioFormat   int
		raw           []byte
	)

	// Walk RIFF chunks; fmt and data may appear in any order and other
	// chunks (LIST, fact) may be interleaved.
	offset := 12
	for offset+8 <= len(data) {
		chunkID := string(data[offset : offset+4])
		chunkSize := int(binary.LittleEndian.Uint32(data[offset+4 : offset+8]))
		body := offset + 8
		if body+chunkSize > len(data) {
			chunkSize = len(data) - body
		}

		switch chunkID {
		case "fmt ":
			if chunkSize < 16 {
				return PCM{}, fmt.Errorf("audio: fmt chunk too short: %d bytes", chunkSize)
			}
			audioFormat = int(binary.LittleEndian.Uint16(data[body : body+2]))
			numChannels = int(binary.LittleEndian.Uint16(data[body+2 : body+4]))
			sampleRate = int(binary.LittleEndian.Uint32(data[body+4 : body+8]))
			bitsPerSample = int(binary.LittleEndian.Uint16(data[body+14 : body+16]))
		case "data":
			raw = data[body : body+chunkSize]
		}

		// Chunks are word-aligned
		offset = body + chunkSize
		if chunkSize%2 == 1 {
			offset++
		}
	}

	if sampleRate == 0 || raw == nil {
		return PCM{}, errors.New("audio: missing fmt or data chunk")
	}
	if audioFormat != 1 || bitsPerSample != 16 {
		return PCM{}, fmt.Errorf("audio: unsupported format: format=%d bits=%d", audioFormat, bitsPerSample)
	}
	if numChannels <= 0 {
		return PCM{}, fmt.Errorf("audio: invalid channel count: %d", numChannels)
	}

	frameSize := 2 * numChannels
	frames := len(raw) / frameSize
	samples := make([]float64, frames)
	for i := 0; i < frames; i++ {
		var sum float64
		for ch := 0; ch < numChannels; ch++ {
			off := i*frameSize + ch*2
			s := int16(binary.LittleEndian.Uint16(raw[off : off+2]))
			sum += float64(s) / 32768.0
		}
		samples[i] = sum / float64(numChannels)
	}

	return PCM{SampleRate: sampleRate, Samples: samples}, nil
}
