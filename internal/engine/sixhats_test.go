package engine

import (
	"testing"

	"github.com/triage-ai/warden/internal/action"
	"github.com/triage-ai/warden/internal/config"
)

func classify(t *testing.T, a *action.Action) RiskAssessment {
	t.Helper()
	return NewClassifier(config.Default().Risk).Classify(a)
}

func TestSixHats_SafeActionProceeds(t *testing.T) {
	a := testAction(action.CategoryContent, func(a *action.Action) {
		a.Metadata.Reversible = true
		a.Metadata.EstimatedValue = 5
		a.Metadata.Urgency = action.UrgencyLow
	})
	ra := classify(t, a)

	got := SixHats(a, &ra)
	if got.Consensus != "proceed" && got.Consensus != "strong_proceed" {
		t.Fatalf("expected proceed consensus for safe action, got %q", got.Consensus)
	}
	if len(got.Hats) != 6 {
		t.Fatalf("expected 6 hats, got %d", len(got.Hats))
	}
}

func TestSixHats_CriticalActionStops(t *testing.T) {
	a := testAction(action.CategoryTrading, func(a *action.Action) {
		a.Type = "announce_trade"
		a.Metadata.EstimatedValue = 50_000
		a.Metadata.Urgency = action.UrgencyCritical
	})
	ra := classify(t, a)
	if ra.Level != RiskCritical {
		t.Fatalf("setup: expected critical assessment, got %s", ra.Level)
	}

	got := SixHats(a, &ra)
	if got.Consensus != "stop" {
		t.Fatalf("expected stop consensus, got %q", got.Consensus)
	}
}

func TestSixHats_Deterministic(t *testing.T) {
	a := testAction(action.CategoryBuild, func(a *action.Action) {
		a.Metadata.EstimatedValue = 300
	})
	ra := classify(t, a)

	first := SixHats(a, &ra)
	for i := 0; i < 5; i++ {
		got := SixHats(a, &ra)
		if got.Score != first.Score || got.Consensus != first.Consensus {
			t.Fatalf("six hats not deterministic: %v/%q vs %v/%q",
				got.Score, got.Consensus, first.Score, first.Consensus)
		}
	}
}

func TestSixHats_WeightsSumToOne(t *testing.T) {
	var sum float64
	for _, w := range hatWeights {
		sum += w
	}
	if sum < 0.999 || sum > 1.001 {
		t.Fatalf("hat weights should sum to 1.0, got %v", sum)
	}
}

func TestConsensus_Rules(t *testing.T) {
	mk := func(verdicts ...HatVerdict) []HatResult {
		hats := make([]HatResult, len(verdicts))
		for i, v := range verdicts {
			hats[i] = HatResult{Verdict: v}
		}
		return hats
	}

	tests := []struct {
		name string
		hats []HatResult
		want string
	}{
		{"any stop", mk(HatProceed, HatProceed, HatStop, HatProceed, HatProceed, HatProceed), "stop"},
		{"three cautions", mk(HatCaution, HatCaution, HatCaution, HatProceed, HatProceed, HatProceed), "stop"},
		{"five proceeds", mk(HatProceed, HatProceed, HatProceed, HatProceed, HatProceed, HatReview), "strong_proceed"},
		{"four proceeds", mk(HatProceed, HatProceed, HatProceed, HatProceed, HatReview, HatReview), "proceed"},
		{"two cautions", mk(HatCaution, HatCaution, HatProceed, HatReview, HatReview, HatReview), "caution"},
		{"mixed", mk(HatProceed, HatCaution, HatReview, HatReview, HatReview, HatReview), "mixed"},
	}
	for _, tt := range tests {
		if got := consensus(tt.hats); got != tt.want {
			t.Fatalf("%s: expected %q, got %q", tt.name, tt.want, got)
		}
	}
}
