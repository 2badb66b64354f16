package usecase

import (
	"strings"
	"testing"
)

func TestDefaultConfirmationPhrase_IncludesRetentionMonths(t *testing.T) {
	phrase := DefaultConfirmationPhrase(18)
	if !strings.Contains(phrase, "18 months") {
		t.Fatalf("expected phrase to mention 18 months, got %q", phrase)
	}
}

func TestArchiveSummary_ReportsEveryTable(t *testing.T) {
	counts := map[string]int64{
		"batches":             3,
		"sales":               10,
		"inventory_movements": 25,
		"expenses":            2,
		"staff_payments":      1,
	}
	summary := archiveSummary(counts)
	for _, want := range []string{"3 batches", "10 sales", "25 movements", "2 expenses", "1 staff payments"} {
		if !strings.Contains(summary, want) {
			t.Errorf("expected summary to contain %q, got %q", want, summary)
		}
	}
}
