// Package google provides a Google Cloud Speech-to-Text transcription engine.
package google

import (
	"context"
	"os"
	"strings"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"

	"voice-capture-service/internal/audio"
	"voice-capture-service/internal/models"
	"voice-capture-service/internal/transcribe"
)

// languageCodes maps short language hints to BCP-47 codes.
var languageCodes = map[string]string{
	"en": "en-US",
	"ru": "ru-RU",
	"kk": "kk-KZ",
}

// Engine implements transcribe.Engine using batch recognition.
type Engine struct {
	client *speech.Client
}

// New creates a new Google engine.
// Requires GOOGLE_APPLICATION_CREDENTIALS environment variable to be set.
func New(ctx context.Context) (*Engine, error) {
	c, err := speech.NewClient(ctx)
	if err != nil {
		return nil, err
	}
	return &Engine{client: c}, nil
}

// Close releases the underlying client.
func (e *Engine) Close() error {
	return e.client.Close()
}

// Transcribe implements transcribe.Engine. The stored WAV file is sent as a
// single batch Recognize request.
func (e *Engine) Transcribe(ctx context.Context, path string, languageHint string) (transcribe.Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return transcribe.Result{}, &transcribe.Error{Provider: "google", Err: err}
	}

	pcm, err := audio.Decode(data)
	if err != nil {
		return transcribe.Result{}, &transcribe.Error{Provider: "google", Err: err}
	}

	langCode := "en-US"
	hint := strings.ToLower(languageHint)
	if code, ok := languageCodes[hint]; ok {
		langCode = code
	} else if languageHint != "" {
		langCode = languageHint
	}

	resp, err := e.client.Recognize(ctx, &speechpb.RecognizeRequest{
		Config: &speechpb.RecognitionConfig{
			Encoding:        speechpb.RecognitionConfig_LINEAR16,
			SampleRateHertz: int32(pcm.SampleRate),
			LanguageCode:    langCode,
		},
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{Content: data},
		},
	})
	if err != nil {
		return transcribe.Result{}, &transcribe.Error{Provider: "google", Err: err}
	}

	var (
		parts      []string
		segments   []models.TranscriptSegment
		confidence float64
		count      int
		cursor     float64
	)
	for _, result := range resp.Results {
		if len(result.Alternatives) == 0 {
			continue
		}
		alt := result.Alternatives[0]
		parts = append(parts, alt.Transcript)
		confidence += float64(alt.Confidence)
		count++

		end := cursor
		if len(alt.Words) > 0 {
			last := alt.Words[len(alt.Words)-1]
			end = last.EndTime.AsDuration().Seconds()
		}
		segments = append(segments, models.TranscriptSegment{
			Start: cursor,
			End:   end,
			Text:  alt.Transcript,
		})
		cursor = end
	}
	if count > 0 {
		confidence /= float64(count)
	}

	shortLang := langCode
	if i := strings.Index(langCode, "-"); i > 0 {
		shortLang = langCode[:i]
	}

	return transcribe.Result{
		Text:                strings.TrimSpace(strings.Join(parts, " ")),
		Language:            shortLang,
		LanguageProbability: confidence,
		Duration:            pcm.Duration(),
		Segments:            segments,
	}, nil
}
