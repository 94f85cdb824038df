package engine

import (
	"fmt"

	"github.com/triage-ai/warden/internal/action"
)

// HatVerdict is one perspective's verdict on an action.
type HatVerdict int

const (
	HatProceed HatVerdict = iota + 1
	HatCaution
	HatStop
	HatReview
)

// String returns the lowercase verdict name.
func (v HatVerdict) String() string {
	switch v {
	case HatProceed:
		return "proceed"
	case HatCaution:
		return "caution"
	case HatStop:
		return "stop"
	case HatReview:
		return "review"
	default:
		return "unspecified"
	}
}

// HatResult is the output of one perspective.
type HatResult struct {
	Name    string     `json:"name"`
	Verdict HatVerdict `json:"-"`
	Outcome string     `json:"verdict"`
	Score   float64    `json:"score"` // 0-100, higher is more favorable
	Points  []string   `json:"points"`
}

// SixHatsResult is the combined qualitative consensus. It is advisory
// input surfaced alongside the automated decision, not itself gating.
type SixHatsResult struct {
	Hats      []HatResult `json:"hats"`
	Consensus string      `json:"consensus"`
	Score     float64     `json:"score"`
}

// Fixed weights for the overall score.
var hatWeights = map[string]float64{
	"caution":      0.25,
	"facts":        0.20,
	"process":      0.20,
	"benefits":     0.15,
	"intuition":    0.10,
	"alternatives": 0.10,
}

// SixHats evaluates an action from six independent perspectives, each
// seeded from the action metadata and the already-computed risk
// assessment. No risk is recomputed here.
func SixHats(a *action.Action, ra *RiskAssessment) SixHatsResult {
	hats := []HatResult{
		factsHat(a, ra),
		intuitionHat(ra),
		cautionHat(a, ra),
		benefitsHat(a, ra),
		alternativesHat(a, ra),
		processHat(a, ra),
	}

	var score float64
	for _, h := range hats {
		score += hatWeights[h.Name] * h.Score
	}

	return SixHatsResult{
		Hats:      hats,
		Consensus: consensus(hats),
		Score:     score,
	}
}

// consensus folds the six verdicts into one label. Any stop, or three or
// more cautions, stops; five proceeds is a strong proceed; four is a
// proceed; the residual splits into caution or mixed.
func consensus(hats []HatResult) string {
	var proceeds, cautions int
	for _, h := range hats {
		switch h.Verdict {
		case HatStop:
			return "stop"
		case HatProceed:
			proceeds++
		case HatCaution:
			cautions++
		}
	}
	switch {
	case cautions >= 3:
		return "stop"
	case proceeds >= 5:
		return "strong_proceed"
	case proceeds >= 4:
		return "proceed"
	case cautions >= 2:
		return "caution"
	default:
		return "mixed"
	}
}

// factsHat weighs what is actually known about the action.
func factsHat(a *action.Action, ra *RiskAssessment) HatResult {
	points := []string{
		fmt.Sprintf("risk score %.1f (%s)", ra.Score, ra.LevelName),
		fmt.Sprintf("estimated value $%.2f", a.Metadata.EstimatedValue),
	}

	flagged := 0
	for _, f := range ra.Factors {
		if f.Exceeded {
			flagged++
			points = append(points, "flagged: "+f.Reason)
		}
	}

	score := 100 - 15*float64(flagged)
	if score < 0 {
		score = 0
	}

	verdict := HatProceed
	switch {
	case flagged >= 3:
		verdict = HatReview
	case flagged >= 1:
		verdict = HatCaution
	}

	return result("facts", verdict, score, points)
}

// intuitionHat is a gut read off the computed level alone.
func intuitionHat(ra *RiskAssessment) HatResult {
	switch ra.Level {
	case RiskSafe:
		return result("intuition", HatProceed, 90, []string{"feels routine"})
	case RiskLow:
		return result("intuition", HatProceed, 75, []string{"low concern"})
	case RiskMedium:
		return result("intuition", HatCaution, 55, []string{"uneasy about the middle ground"})
	case RiskHigh:
		return result("intuition", HatCaution, 35, []string{"this feels risky"})
	default:
		return result("intuition", HatStop, 10, []string{"strong misgivings"})
	}
}

// cautionHat explores the worst case.
func cautionHat(a *action.Action, ra *RiskAssessment) HatResult {
	var points []string

	if !a.Metadata.Reversible {
		points = append(points, "no rollback if this goes wrong")
		if ra.Level >= RiskHigh {
			points = append(points, "irreversible at high risk is the worst case")
			return result("caution", HatStop, 10, points)
		}
		return result("caution", HatCaution, 40, points)
	}

	if ra.Level >= RiskHigh {
		points = append(points, "recoverable but the downside is large")
		return result("caution", HatCaution, 45, points)
	}

	points = append(points, "downside is bounded and recoverable")
	return result("caution", HatProceed, 85, points)
}

// benefitsHat looks for the upside of acting now.
func benefitsHat(a *action.Action, ra *RiskAssessment) HatResult {
	var points []string
	score := 60.0

	if a.Metadata.Urgency >= action.UrgencyHigh {
		score += 20
		points = append(points, "acting now captures time-sensitive value")
	}
	if a.Metadata.Reversible {
		score += 15
		points = append(points, "cheap to try, cheap to undo")
	}
	if len(points) == 0 {
		points = append(points, "no particular upside to acting immediately")
		score = 50
	}

	verdict := HatProceed
	if ra.Level >= RiskHigh && !a.Metadata.Reversible {
		verdict = HatCaution
		score -= 25
	}
	return result("benefits", verdict, score, points)
}

// alternativesHat asks whether a safer path exists.
func alternativesHat(a *action.Action, ra *RiskAssessment) HatResult {
	if a.Metadata.Reversible {
		return result("alternatives", HatProceed, 80,
			[]string{"rollback path makes this the safe alternative already"})
	}
	if ra.Level >= RiskHigh {
		return result("alternatives", HatReview, 40,
			[]string{"consider a staged or reversible variant first"})
	}
	return result("alternatives", HatCaution, 55,
		[]string{"a dry-run variant may exist"})
}

// processHat checks whether the decision process itself is sound.
func processHat(a *action.Action, ra *RiskAssessment) HatResult {
	if a.Metadata.Urgency == action.UrgencyCritical && !a.Metadata.Reversible {
		return result("process", HatReview, 40,
			[]string{"critical urgency is pressuring an irreversible call"})
	}
	if len(ra.Constraints) > 0 {
		return result("process", HatCaution, 60,
			[]string{"assessment carries constraints: incomplete telemetry"})
	}
	return result("process", HatProceed, 85,
		[]string{"inputs complete, factors consistent"})
}

func result(name string, v HatVerdict, score float64, points []string) HatResult {
	return HatResult{Name: name, Verdict: v, Outcome: v.String(), Score: score, Points: points}
}
