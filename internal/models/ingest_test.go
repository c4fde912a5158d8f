package models

import (
	"errors"
	"testing"
)

func TestValidateTransition_FromPending(t *testing.T) {
	for _, to := range []IngestStatus{IngestStatusFiltered, IngestStatusProcessed, IngestStatusError} {
		if err := ValidateTransition(IngestStatusPending, to); err != nil {
			t.Errorf("pending -> %s should be allowed: %v", to, err)
		}
	}
}

func TestValidateTransition_TerminalStatesAreFinal(t *testing.T) {
	terminals := []IngestStatus{IngestStatusFiltered, IngestStatusProcessed, IngestStatusError}
	for _, from := range terminals {
		for _, to := range []IngestStatus{IngestStatusPending, IngestStatusFiltered, IngestStatusProcessed, IngestStatusError} {
			if from == to {
				// Same-status transition is a no-op, not a violation.
				if err := ValidateTransition(from, to); err != nil {
					t.Errorf("%s -> %s (no-op) should be allowed: %v", from, to, err)
				}
				continue
			}
			err := ValidateTransition(from, to)
			if err == nil {
				t.Errorf("%s -> %s should be rejected", from, to)
			}
			if !errors.Is(err, ErrTerminalStatus) {
				t.Errorf("%s -> %s should wrap ErrTerminalStatus, got %v", from, to, err)
			}
		}
	}
}

func TestValidateTransition_NoRegressionToPending(t *testing.T) {
	if err := ValidateTransition(IngestStatusProcessed, IngestStatusPending); err == nil {
		t.Error("processed -> pending should be rejected")
	}
}

func TestIsTerminal(t *testing.T) {
	if IngestStatusPending.IsTerminal() {
		t.Error("pending should not be terminal")
	}
	for _, s := range []IngestStatus{IngestStatusFiltered, IngestStatusProcessed, IngestStatusError} {
		if !s.IsTerminal() {
			t.Errorf("%s should be terminal", s)
		}
	}
}
