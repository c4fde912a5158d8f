package enrich

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"voice-capture-service/internal/config"
	"voice-capture-service/internal/events"
	"voice-capture-service/internal/models"
)

type fakeAnalyzer struct {
	mu       sync.Mutex
	calls    int
	failures int
	result   Analysis
}

func (f *fakeAnalyzer) Analyze(ctx context.Context, text string) (Analysis, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.calls <= f.failures {
		return Analysis{}, errors.New("analyzer unavailable")
	}
	return f.result, nil
}

func (f *fakeAnalyzer) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeEventStore struct {
	mu    sync.Mutex
	saved []*models.StructuredEvent
}

func (f *fakeEventStore) SaveStructuredEvent(ctx context.Context, ev *models.StructuredEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved = append(f.saved, ev)
	return nil
}

func (f *fakeEventStore) events() []*models.StructuredEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*models.StructuredEvent(nil), f.saved...)
}

func testWorkerConfig() *config.Config {
	return &config.Config{
		EnrichWorkers:     1,
		EnrichQueueSize:   2,
		EnrichAttempts:    3,
		EnrichBackoffBase: time.Millisecond,
		EnrichModel:       "local",
	}
}

func newTestWorker(t *testing.T, store EventStore, analyzer Analyzer) *Worker {
	t.Helper()
	classifier, err := NewClassifier("")
	if err != nil {
		t.Fatalf("classifier: %v", err)
	}
	pub := events.New(&events.Config{Enabled: false})
	return NewWorker(testWorkerConfig(), store, analyzer, classifier, pub, zerolog.Nop())
}

func TestEnrichRetriesUntilSuccess(t *testing.T) {
	analyzer := &fakeAnalyzer{
		failures: 2,
		result: Analysis{
			Summary:  "plan the meeting",
			Topics:   []string{"planning"},
			Emotions: []string{"calm"},
			Urgency:  UrgencyHigh,
		},
	}
	w := newTestWorker(t, &fakeEventStore{}, analyzer)

	ev := w.Enrich(context.Background(), models.TranscriptionRecord{
		ID:   "tr-1",
		Text: "let's meet tomorrow at 9am",
	})

	if got := analyzer.callCount(); got != 3 {
		t.Errorf("analyzer called %d times, want 3", got)
	}
	if ev.Summary != "plan the meeting" {
		t.Errorf("summary = %q, want analyzer output after retries", ev.Summary)
	}
	if ev.Urgency != UrgencyHigh {
		t.Errorf("urgency = %q, want high", ev.Urgency)
	}
	if len(ev.Domains) == 0 || ev.Domains[0] != "work" {
		t.Errorf("domains = %v, want local classification kept", ev.Domains)
	}
}

func TestEnrichDegradesWhenRetriesExhausted(t *testing.T) {
	analyzer := &fakeAnalyzer{failures: 100}
	w := newTestWorker(t, &fakeEventStore{}, analyzer)

	ev := w.Enrich(context.Background(), models.TranscriptionRecord{
		ID:   "tr-1",
		Text: "don't forget to call the bank tomorrow",
	})

	if got := analyzer.callCount(); got != 3 {
		t.Errorf("analyzer called %d times, want all 3 attempts", got)
	}
	if ev.Summary != "" {
		t.Errorf("summary = %q, want empty without analyzer", ev.Summary)
	}
	// Local enrichment must survive the analyzer outage.
	if len(ev.Domains) == 0 {
		t.Error("no domains despite local classifier")
	}
	if len(ev.Tasks) == 0 {
		t.Error("no tasks despite action marker in text")
	}
	if ev.Sentiment != SentimentNeutral {
		t.Errorf("sentiment = %q", ev.Sentiment)
	}
	if ev.Urgency != UrgencyNormal {
		t.Errorf("urgency = %q, want normal default", ev.Urgency)
	}
}

func TestEnrichWithoutAnalyzer(t *testing.T) {
	w := newTestWorker(t, &fakeEventStore{}, nil)

	ev := w.Enrich(context.Background(), models.TranscriptionRecord{
		ID:   "tr-1",
		Text: "надо срочно позвонить врачу завтра",
	})

	if ev.Summary != "" {
		t.Errorf("summary = %q", ev.Summary)
	}
	if len(ev.Tasks) != 1 {
		t.Fatalf("tasks = %+v, want one", ev.Tasks)
	}
	if ev.Tasks[0].Priority != models.TaskPriorityHigh {
		t.Errorf("priority = %q, want high for urgent marker", ev.Tasks[0].Priority)
	}
	if ev.Tasks[0].Deadline == "" {
		t.Error("deadline marker not attached")
	}
}

func TestWorkerPersistsStructuredEvent(t *testing.T) {
	store := &fakeEventStore{}
	w := newTestWorker(t, store, &fakeAnalyzer{result: Analysis{Summary: "short note"}})
	w.Start()

	if ok := w.Enqueue(models.TranscriptionRecord{ID: "tr-1", Text: "buy groceries tonight"}); !ok {
		t.Fatal("enqueue rejected with empty queue")
	}
	w.Stop()

	saved := store.events()
	if len(saved) != 1 {
		t.Fatalf("got %d persisted events, want 1", len(saved))
	}
	ev := saved[0]
	if ev.TranscriptionID != "tr-1" {
		t.Errorf("transcription id = %q", ev.TranscriptionID)
	}
	if ev.Summary != "short note" {
		t.Errorf("summary = %q", ev.Summary)
	}
	if ev.EnrichmentConfidence <= 0 {
		t.Error("confidence not computed")
	}
}

func TestEnqueueDropsWhenQueueFull(t *testing.T) {
	// Workers never started: the queue fills and stays full.
	w := newTestWorker(t, &fakeEventStore{}, nil)

	if !w.Enqueue(models.TranscriptionRecord{ID: "a"}) {
		t.Fatal("first enqueue rejected")
	}
	if !w.Enqueue(models.TranscriptionRecord{ID: "b"}) {
		t.Fatal("second enqueue rejected")
	}
	if w.Enqueue(models.TranscriptionRecord{ID: "c"}) {
		t.Error("enqueue on full queue did not report a drop")
	}
	if got := w.QueueDepth(); got != 2 {
		t.Errorf("queue depth = %d, want 2", got)
	}
}

func TestEnqueueAfterStop(t *testing.T) {
	w := newTestWorker(t, &fakeEventStore{}, nil)
	w.Start()
	w.Stop()

	if w.Enqueue(models.TranscriptionRecord{ID: "late"}) {
		t.Error("enqueue accepted after stop")
	}
}

func TestClassifierMatchesKeywordsAcrossLanguages(t *testing.T) {
	c, err := NewClassifier("")
	if err != nil {
		t.Fatalf("classifier: %v", err)
	}

	cases := []struct {
		text string
		want []string
	}{
		{"let's meet tomorrow at 9am", []string{"work"}},
		{"надо оплатить счет в банке", []string{"finance"}},
		{"доктор сказал купить таблетки", []string{"health", "shopping"}},
		{"just thinking out loud", nil},
	}
	for _, tc := range cases {
		got := c.Classify(tc.text)
		if len(got) != len(tc.want) {
			t.Errorf("Classify(%q) = %v, want %v", tc.text, got, tc.want)
			continue
		}
		for i := range got {
			if got[i] != tc.want[i] {
				t.Errorf("Classify(%q) = %v, want %v", tc.text, got, tc.want)
				break
			}
		}
	}
}

func TestClassifierYAMLOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "domains.yaml")
	if err := os.WriteFile(path, []byte("gardening:\n  - tomato\n  - seeds\n"), 0o644); err != nil {
		t.Fatalf("write override: %v", err)
	}

	c, err := NewClassifier(path)
	if err != nil {
		t.Fatalf("classifier: %v", err)
	}
	if got := c.Classify("plant the tomato seeds"); len(got) != 1 || got[0] != "gardening" {
		t.Errorf("Classify = %v, want [gardening]", got)
	}
	if got := c.Classify("let's meet tomorrow"); len(got) != 0 {
		t.Errorf("default table leaked through override: %v", got)
	}
}

func TestSentiment(t *testing.T) {
	cases := []struct {
		text string
		want string
	}{
		{"this is great, I am happy", SentimentPositive},
		{"ужасно устал, все плохо", SentimentNegative},
		{"the package arrived on tuesday", SentimentNeutral},
	}
	for _, tc := range cases {
		if got := Sentiment(tc.text); got != tc.want {
			t.Errorf("Sentiment(%q) = %q, want %q", tc.text, got, tc.want)
		}
	}
}

func TestConfidenceWeighting(t *testing.T) {
	empty := &models.StructuredEvent{Urgency: UrgencyNormal}
	if got := Confidence(empty); got != 0 {
		t.Errorf("empty event confidence = %v, want 0", got)
	}

	full := &models.StructuredEvent{
		Summary:  "s",
		Topics:   []string{"a", "b", "c"},
		Emotions: []string{"calm"},
		Urgency:  UrgencyHigh,
		Tasks: []models.ExtractedTask{
			{Text: "one"}, {Text: "two"}, {Text: "three"},
		},
	}
	if got := Confidence(full); got != 1.0 {
		t.Errorf("full event confidence = %v, want capped at 1.0", got)
	}

	partial := &models.StructuredEvent{
		Summary: "s",
		Urgency: UrgencyNormal,
	}
	if got := Confidence(partial); got != 0.3 {
		t.Errorf("summary-only confidence = %v, want 0.3", got)
	}
}

func TestMergeActionsDedupes(t *testing.T) {
	local := []models.ExtractedTask{{Text: "Call the bank", Priority: models.TaskPriorityHigh}}
	merged := mergeActions(local, []string{"call the bank", "send the report", ""})
	if len(merged) != 2 {
		t.Fatalf("got %d tasks, want 2", len(merged))
	}
	if merged[0].Priority != models.TaskPriorityHigh {
		t.Error("local task priority lost in merge")
	}
	if merged[1].Text != "send the report" || merged[1].Priority != models.TaskPriorityNormal {
		t.Errorf("merged task = %+v", merged[1])
	}
}
