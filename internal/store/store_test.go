package store_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"voice-capture-service/internal/models"
	. "voice-capture-service/internal/store"
	"voice-capture-service/internal/testutil"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return New(testutil.OpenTestDB(t))
}

func seedArtifact(t *testing.T, s *Store, id string) {
	t.Helper()
	err := s.UpsertArtifact(context.Background(), &models.IngestArtifact{
		ID:          id,
		Filename:    id + ".wav",
		StoragePath: "/tmp/" + id + ".wav",
		SizeBytes:   1024,
	})
	if err != nil {
		t.Fatalf("seed artifact: %v", err)
	}
}

func TestUpsertArtifactDefaults(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedArtifact(t, s, "ing-1")

	a, err := s.GetArtifact(ctx, "ing-1")
	if err != nil {
		t.Fatalf("get artifact: %v", err)
	}
	if a.Status != models.IngestStatusPending {
		t.Errorf("status = %q, want pending", a.Status)
	}
	if a.CreatedAt.IsZero() {
		t.Error("created_at not stamped")
	}
	if a.ProcessedAt != nil {
		t.Error("processed_at set on pending artifact")
	}
}

func TestUpsertArtifactDoesNotResetExisting(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedArtifact(t, s, "ing-1")

	if err := s.MarkFiltered(ctx, "ing-1", models.FilterReasonNotSpeech); err != nil {
		t.Fatalf("mark filtered: %v", err)
	}

	// Resubmission of the same id must not touch the terminal row.
	err := s.UpsertArtifact(ctx, &models.IngestArtifact{ID: "ing-1", Filename: "other.wav"})
	if err != nil {
		t.Fatalf("re-upsert: %v", err)
	}

	a, err := s.GetArtifact(ctx, "ing-1")
	if err != nil {
		t.Fatalf("get artifact: %v", err)
	}
	if a.Status != models.IngestStatusFiltered {
		t.Errorf("status = %q, want filtered", a.Status)
	}
	if a.Filename != "ing-1.wav" {
		t.Errorf("filename = %q, want original", a.Filename)
	}
	if a.ErrorMessage != string(models.FilterReasonNotSpeech) {
		t.Errorf("error message = %q, want filter reason", a.ErrorMessage)
	}
}

func TestSetStatusRejectsTerminalRegression(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedArtifact(t, s, "ing-1")

	if err := s.MarkError(ctx, "ing-1", "transcription failed"); err != nil {
		t.Fatalf("mark error: %v", err)
	}

	err := s.SetStatus(ctx, "ing-1", models.IngestStatusProcessed, "")
	if !errors.Is(err, models.ErrTerminalStatus) {
		t.Errorf("transition from terminal returned %v, want ErrTerminalStatus", err)
	}

	a, err := s.GetArtifact(ctx, "ing-1")
	if err != nil {
		t.Fatalf("get artifact: %v", err)
	}
	if a.Status != models.IngestStatusError {
		t.Errorf("status = %q, want error preserved", a.Status)
	}
	if a.ProcessedAt == nil {
		t.Error("processed_at not stamped on terminal transition")
	}
}

func TestSetStatusUnknownArtifact(t *testing.T) {
	s := newTestStore(t)
	err := s.SetStatus(context.Background(), "nope", models.IngestStatusProcessed, "")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}

func TestSaveTranscriptionIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedArtifact(t, s, "ing-1")

	rec := &models.TranscriptionRecord{
		IngestID:            "ing-1",
		Text:                "let's meet tomorrow at 9am",
		Language:            "en",
		LanguageProbability: 0.93,
		Duration:            2.0,
		Segments: []models.TranscriptSegment{
			{Start: 0, End: 2.0, Text: "let's meet tomorrow at 9am"},
		},
	}
	id, created, err := s.SaveTranscription(ctx, rec)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if !created {
		t.Fatal("first save not reported as created")
	}
	if id == "" {
		t.Fatal("save returned empty id")
	}

	a, err := s.GetArtifact(ctx, "ing-1")
	if err != nil {
		t.Fatalf("get artifact: %v", err)
	}
	if a.Status != models.IngestStatusProcessed {
		t.Errorf("status = %q, want processed", a.Status)
	}

	// Replay the same segment: same record id back, nothing new written.
	again, created, err := s.SaveTranscription(ctx, &models.TranscriptionRecord{
		IngestID: "ing-1",
		Text:     "different text from a retry",
		Language: "en",
	})
	if err != nil {
		t.Fatalf("replay save: %v", err)
	}
	if created {
		t.Error("replay reported as created")
	}
	if again != id {
		t.Errorf("replay id = %q, want %q", again, id)
	}

	got, err := s.GetTranscription(ctx, "ing-1")
	if err != nil {
		t.Fatalf("get transcription: %v", err)
	}
	if got.Text != rec.Text {
		t.Errorf("text = %q, want original kept", got.Text)
	}
	if len(got.Segments) != 1 || got.Segments[0].End != 2.0 {
		t.Errorf("segments not round-tripped: %+v", got.Segments)
	}
}

func TestSaveTranscriptionRequiresIngest(t *testing.T) {
	s := newTestStore(t)
	_, _, err := s.SaveTranscription(context.Background(), &models.TranscriptionRecord{})
	if err == nil {
		t.Error("save without ingest id did not fail")
	}
}

func TestStructuredEventRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedArtifact(t, s, "ing-1")

	trID, _, err := s.SaveTranscription(ctx, &models.TranscriptionRecord{
		IngestID: "ing-1",
		Text:     "call the bank about the invoice",
		Language: "en",
	})
	if err != nil {
		t.Fatalf("save transcription: %v", err)
	}

	ev := &models.StructuredEvent{
		TranscriptionID:      trID,
		Summary:              "call the bank about the invoice",
		Emotions:             []string{"neutral"},
		Topics:               []string{"finance"},
		Domains:              []string{"finance"},
		Tasks:                []models.ExtractedTask{{Text: "call the bank", Priority: models.TaskPriorityNormal}},
		Urgency:              "normal",
		Sentiment:            "neutral",
		EnrichmentConfidence: 0.55,
		EnrichmentModel:      "local",
		EnrichmentLatencyMs:  12,
	}
	if err := s.SaveStructuredEvent(ctx, ev); err != nil {
		t.Fatalf("save structured event: %v", err)
	}

	got, err := s.GetStructuredEvent(ctx, trID)
	if err != nil {
		t.Fatalf("get structured event: %v", err)
	}
	if got.Summary != ev.Summary || got.Urgency != "normal" || got.Sentiment != "neutral" {
		t.Errorf("scalar fields not round-tripped: %+v", got)
	}
	if len(got.Domains) != 1 || got.Domains[0] != "finance" {
		t.Errorf("domains = %v", got.Domains)
	}
	if len(got.Tasks) != 1 || got.Tasks[0].Text != "call the bank" {
		t.Errorf("tasks = %+v", got.Tasks)
	}
	if got.EnrichmentConfidence != 0.55 {
		t.Errorf("confidence = %v", got.EnrichmentConfidence)
	}

	if _, err := s.GetStructuredEvent(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing event returned %v, want ErrNotFound", err)
	}
}

func TestSpeakerProfiles(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.AddSpeakerProfile(ctx, &models.SpeakerProfile{
		Label:     "owner",
		Signature: []float64{0.1, 0.9, 0.2},
		CreatedAt: time.Now().UTC(),
	}); err != nil {
		t.Fatalf("add profile: %v", err)
	}

	profiles, err := s.ListSpeakerProfiles(ctx)
	if err != nil {
		t.Fatalf("list profiles: %v", err)
	}
	if len(profiles) != 1 {
		t.Fatalf("got %d profiles, want 1", len(profiles))
	}
	if profiles[0].Label != "owner" {
		t.Errorf("label = %q", profiles[0].Label)
	}
	if len(profiles[0].Signature) != 3 || profiles[0].Signature[1] != 0.9 {
		t.Errorf("signature not round-tripped: %v", profiles[0].Signature)
	}
}
