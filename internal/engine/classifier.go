// Package engine scores proposed actions and tool pipelines into weighted
// multi-factor risk assessments.
package engine

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/triage-ai/warden/internal/action"
	"github.com/triage-ai/warden/internal/config"
)

// unknownCategoryRisk is the base risk assumed when a category has no
// entry in the lookup table.
const unknownCategoryRisk = 50

// Classifier scores a single action across five weighted risk factors.
// Classification is deterministic for a given (action, config) pair and
// has no side effects.
type Classifier struct {
	mu  sync.RWMutex
	cfg config.RiskConfig
}

// NewClassifier creates a Classifier with the given config.
func NewClassifier(cfg config.RiskConfig) *Classifier {
	return &Classifier{cfg: cfg}
}

// SetConfig swaps the scoring config. In-flight classifications keep
// the config they started with.
func (c *Classifier) SetConfig(cfg config.RiskConfig) {
	c.mu.Lock()
	c.cfg = cfg
	c.mu.Unlock()
}

// Classify computes the weighted risk assessment for an action.
func (c *Classifier) Classify(a *action.Action) RiskAssessment {
	c.mu.RLock()
	defer c.mu.RUnlock()

	factors := []RiskFactor{
		c.financialFactor(a),
		c.reversibilityFactor(a),
		c.categoryFactor(a),
		c.urgencyFactor(a),
		c.visibilityFactor(a),
	}

	var score float64
	for _, f := range factors {
		score += f.Weight * f.Value
	}

	level := levelForScore(score, c.cfg.Thresholds)
	recommendation := c.recommend(a, level)

	var constraints []string
	if a.Metadata.EstimatedValue == 0 {
		constraints = append(constraints, "estimated value not provided; financial factor assumes $0")
	}

	return RiskAssessment{
		ActionID:       a.ID,
		Level:          level,
		LevelName:      level.String(),
		Score:          score,
		Factors:        factors,
		Recommendation: recommendation,
		Recommended:    recommendation.String(),
		Constraints:    constraints,
		Timestamp:      time.Now().UTC(),
	}
}

func (c *Classifier) financialFactor(a *action.Action) RiskFactor {
	value := a.Metadata.EstimatedValue
	ft := c.cfg.Financial

	var raw float64
	switch {
	case value <= ft.Minor:
		raw = 5
	case value <= ft.Moderate:
		raw = 20
	case value <= ft.Major:
		raw = 40
	case value <= ft.Severe:
		raw = 70
	default:
		raw = 100
	}

	return RiskFactor{
		Name:      "financial",
		Weight:    c.cfg.Weights.Financial,
		Value:     raw,
		Threshold: ft.Major,
		Exceeded:  value > ft.Major,
		Reason:    fmt.Sprintf("estimated value $%.2f", value),
	}
}

func (c *Classifier) reversibilityFactor(a *action.Action) RiskFactor {
	raw := 80.0
	reason := "action is irreversible"
	if a.Metadata.Reversible {
		raw = 10
		reason = "action can be rolled back"
	}
	return RiskFactor{
		Name:      "reversibility",
		Weight:    c.cfg.Weights.Reversibility,
		Value:     raw,
		Threshold: 80,
		Exceeded:  !a.Metadata.Reversible,
		Reason:    reason,
	}
}

func (c *Classifier) categoryFactor(a *action.Action) RiskFactor {
	name := a.Category.String()
	raw, ok := c.cfg.CategoryBaseRisk[name]
	if !ok {
		raw = unknownCategoryRisk
	}
	return RiskFactor{
		Name:      "category",
		Weight:    c.cfg.Weights.Category,
		Value:     raw,
		Threshold: 70,
		Exceeded:  raw >= 70,
		Reason:    fmt.Sprintf("base risk for %s category", name),
	}
}

func (c *Classifier) urgencyFactor(a *action.Action) RiskFactor {
	var raw float64
	switch a.Metadata.Urgency {
	case action.UrgencyLow:
		raw = 10
	case action.UrgencyHigh:
		raw = 60
	case action.UrgencyCritical:
		raw = 90
	default:
		raw = 30
	}
	return RiskFactor{
		Name:      "urgency",
		Weight:    c.cfg.Weights.Urgency,
		Value:     raw,
		Threshold: 90,
		Exceeded:  a.Metadata.Urgency == action.UrgencyCritical,
		Reason:    fmt.Sprintf("urgency is %s", a.Metadata.Urgency),
	}
}

func (c *Classifier) visibilityFactor(a *action.Action) RiskFactor {
	public := false
	actionType := strings.ToLower(a.Type)
	for _, kw := range c.cfg.PublicKeywords {
		if strings.Contains(actionType, kw) {
			public = true
			break
		}
	}

	raw := 20.0
	reason := "action is internal"
	if public {
		raw = 60
		reason = "action is publicly visible"
	}
	return RiskFactor{
		Name:      "visibility",
		Weight:    c.cfg.Weights.Visibility,
		Value:     raw,
		Threshold: 60,
		Exceeded:  public,
		Reason:    reason,
	}
}

// recommend picks the recommendation for the action. Allow-listed action
// types auto-execute, deny-listed types escalate, everything else follows
// the level default.
func (c *Classifier) recommend(a *action.Action, level RiskLevel) Outcome {
	for _, t := range c.cfg.SafeActionTypes {
		if a.Type == t {
			return OutcomeAutoExecute
		}
	}
	for _, t := range c.cfg.DangerousActionTypes {
		if a.Type == t {
			return OutcomeEscalate
		}
	}
	return defaultOutcomeForLevel(level)
}

// levelForScore maps a 0-100 score to a level via the four ascending
// thresholds.
func levelForScore(score float64, t config.LevelThresholds) RiskLevel {
	switch {
	case score >= t.Critical:
		return RiskCritical
	case score >= t.High:
		return RiskHigh
	case score >= t.Medium:
		return RiskMedium
	case score >= t.Low:
		return RiskLow
	default:
		return RiskSafe
	}
}

// defaultOutcomeForLevel is the level-based recommendation used when no
// allow/deny list matches.
func defaultOutcomeForLevel(level RiskLevel) Outcome {
	switch level {
	case RiskSafe, RiskLow:
		return OutcomeAutoExecute
	case RiskMedium, RiskHigh:
		return OutcomeQueueApproval
	default:
		return OutcomeEscalate
	}
}
