package engine

import (
	"testing"

	"github.com/triage-ai/warden/internal/action"
	"github.com/triage-ai/warden/internal/config"
)

func testAction(cat action.Category, mutate func(*action.Action)) *action.Action {
	a := &action.Action{
		ID:          "act-1",
		Type:        "generic_op",
		Engine:      "test-engine",
		Category:    cat,
		Description: "test action",
		Metadata: action.Metadata{
			Urgency: action.UrgencyNormal,
		},
	}
	if mutate != nil {
		mutate(a)
	}
	return a
}

func TestClassify_Deterministic(t *testing.T) {
	c := NewClassifier(config.Default().Risk)
	a := testAction(action.CategoryTrading, func(a *action.Action) {
		a.Metadata.EstimatedValue = 5000
	})

	first := c.Classify(a)
	for i := 0; i < 10; i++ {
		got := c.Classify(a)
		if got.Score != first.Score {
			t.Fatalf("score changed across calls: %v vs %v", got.Score, first.Score)
		}
		if got.Level != first.Level {
			t.Fatalf("level changed across calls: %v vs %v", got.Level, first.Level)
		}
	}
}

func TestClassify_HighValueIrreversibleTrade(t *testing.T) {
	c := NewClassifier(config.Default().Risk)
	a := testAction(action.CategoryTrading, func(a *action.Action) {
		a.Metadata.EstimatedValue = 5000
		a.Metadata.Reversible = false
	})

	got := c.Classify(a)
	if got.Level != RiskHigh && got.Level != RiskCritical {
		t.Fatalf("expected high or critical, got %s (score %.1f)", got.Level, got.Score)
	}
}

func TestClassify_ReversibleLowValueContent(t *testing.T) {
	c := NewClassifier(config.Default().Risk)
	a := testAction(action.CategoryContent, func(a *action.Action) {
		a.Metadata.Reversible = true
		a.Metadata.Urgency = action.UrgencyLow
	})

	got := c.Classify(a)
	if got.Level != RiskSafe {
		t.Fatalf("expected safe, got %s (score %.1f)", got.Level, got.Score)
	}
	if got.Recommendation != OutcomeAutoExecute {
		t.Fatalf("expected auto_execute recommendation, got %s", got.Recommendation)
	}
}

func TestClassify_FinancialBuckets(t *testing.T) {
	c := NewClassifier(config.Default().Risk)

	tests := []struct {
		value float64
		want  float64
	}{
		{0, 5},
		{10, 5},
		{50, 20},
		{500, 40},
		{5000, 70},
		{50_000, 100},
	}
	for _, tt := range tests {
		a := testAction(action.CategoryTrading, func(a *action.Action) {
			a.Metadata.EstimatedValue = tt.value
		})
		got := c.Classify(a)
		if got.Factors[0].Name != "financial" {
			t.Fatalf("expected financial factor first, got %s", got.Factors[0].Name)
		}
		if got.Factors[0].Value != tt.want {
			t.Fatalf("value %.0f: expected bucket %v, got %v", tt.value, tt.want, got.Factors[0].Value)
		}
	}
}

func TestClassify_FinancialExceededFlag(t *testing.T) {
	c := NewClassifier(config.Default().Risk)
	a := testAction(action.CategoryTrading, func(a *action.Action) {
		a.Metadata.EstimatedValue = 5000
	})
	got := c.Classify(a)
	if !got.Factors[0].Exceeded {
		t.Fatal("expected financial factor exceeded above major threshold")
	}
}

func TestClassify_SafeAllowList(t *testing.T) {
	c := NewClassifier(config.Default().Risk)
	a := testAction(action.CategoryConfiguration, func(a *action.Action) {
		a.Type = "health_check"
	})
	got := c.Classify(a)
	if got.Recommendation != OutcomeAutoExecute {
		t.Fatalf("allow-listed type should auto_execute, got %s", got.Recommendation)
	}
}

func TestClassify_DangerousDenyList(t *testing.T) {
	c := NewClassifier(config.Default().Risk)
	a := testAction(action.CategoryConfiguration, func(a *action.Action) {
		a.Type = "key_rotation"
		a.Metadata.Reversible = true
		a.Metadata.Urgency = action.UrgencyLow
	})
	got := c.Classify(a)
	if got.Recommendation != OutcomeEscalate {
		t.Fatalf("deny-listed type should escalate even at low risk, got %s", got.Recommendation)
	}
}

func TestClassify_PublicVisibility(t *testing.T) {
	c := NewClassifier(config.Default().Risk)
	a := testAction(action.CategoryContent, func(a *action.Action) {
		a.Type = "publish_blog_post"
	})
	got := c.Classify(a)

	var visibility *RiskFactor
	for i := range got.Factors {
		if got.Factors[i].Name == "visibility" {
			visibility = &got.Factors[i]
		}
	}
	if visibility == nil {
		t.Fatal("missing visibility factor")
	}
	if visibility.Value != 60 || !visibility.Exceeded {
		t.Fatalf("expected public visibility 60/exceeded, got %v/%v", visibility.Value, visibility.Exceeded)
	}
}

func TestClassify_MissingValueConstraint(t *testing.T) {
	c := NewClassifier(config.Default().Risk)
	a := testAction(action.CategoryBuild, nil)
	got := c.Classify(a)
	if len(got.Constraints) == 0 {
		t.Fatal("expected a constraint noting the missing estimated value")
	}
}

func TestLevelForScore_Boundaries(t *testing.T) {
	th := config.LevelThresholds{Low: 20, Medium: 40, High: 60, Critical: 80}

	tests := []struct {
		score float64
		want  RiskLevel
	}{
		{0, RiskSafe},
		{19.9, RiskSafe},
		{20, RiskLow},
		{40, RiskMedium},
		{60, RiskHigh},
		{80, RiskCritical},
		{100, RiskCritical},
	}
	for _, tt := range tests {
		if got := levelForScore(tt.score, th); got != tt.want {
			t.Fatalf("score %.1f: expected %s, got %s", tt.score, tt.want, got)
		}
	}
}
