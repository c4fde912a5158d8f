package enrich

import "context"

// Urgency labels reported by the analyzer. UrgencyNormal is the default and
// contributes nothing to the confidence heuristic.
const (
	UrgencyLow    = "low"
	UrgencyNormal = "normal"
	UrgencyHigh   = "high"
)

// Analysis is the external collaborator's output for one transcript.
type Analysis struct {
	Summary  string
	Topics   []string
	Emotions []string
	Actions  []string
	Urgency  string
}

// Analyzer is the external enrichment collaborator. Calls may be slow and
// may fail; the worker owns retries, the collaborator does not retry itself.
type Analyzer interface {
	Analyze(ctx context.Context, text string) (Analysis, error)
}
