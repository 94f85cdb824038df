package engine

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/triage-ai/warden/internal/config"
)

// PipelineStep is one typed step in a tool pipeline.
type PipelineStep struct {
	ID        string         `json:"id"`
	Tool      string         `json:"tool"`
	Inputs    map[string]any `json:"inputs,omitempty"`
	DependsOn []string       `json:"depends_on,omitempty"`
	Condition string         `json:"condition,omitempty"`
	TimeoutMs int            `json:"timeout_ms,omitempty"`
}

// Pipeline is an ordered list of tool steps with optional dependency
// edges forming a DAG.
type Pipeline struct {
	ID           string         `json:"id"`
	Steps        []PipelineStep `json:"steps"`
	DeclaredRisk string         `json:"declared_risk,omitempty"` // self-declared level, optional
}

// ToolRiskLookup resolves a tool name to its base risk score. The second
// return reports whether the tool is known.
type ToolRiskLookup func(tool string) (float64, bool)

// escalateStepRisk is the per-step score at or above which the
// recommendation escalates regardless of the overall level.
const escalateStepRisk = 90

// PipelineClassifier scores a multi-step tool pipeline.
type PipelineClassifier struct {
	cfg    config.PipelineConfig
	lookup ToolRiskLookup
}

// NewPipelineClassifier creates a PipelineClassifier. A nil lookup falls
// back to the configured static tool-risk table.
func NewPipelineClassifier(cfg config.PipelineConfig, lookup ToolRiskLookup) *PipelineClassifier {
	if lookup == nil {
		table := cfg.ToolRisk
		lookup = func(tool string) (float64, bool) {
			score, ok := table[tool]
			return score, ok
		}
	}
	return &PipelineClassifier{cfg: cfg, lookup: lookup}
}

// Classify computes the weighted risk assessment for a pipeline.
func (c *PipelineClassifier) Classify(p *Pipeline, thresholds config.LevelThresholds) PipelineRiskAssessment {
	stepRisks := c.resolveStepRisks(p)

	factors := []RiskFactor{
		c.toolRiskFactor(p, stepRisks),
		c.combinationFactor(p),
		c.complexityFactor(p),
		c.dataFlowFactor(p),
		c.declaredFactor(p),
	}

	var score float64
	for _, f := range factors {
		score += f.Weight * f.Value
	}

	level := levelForScore(score, thresholds)
	recommendation := c.recommend(p, stepRisks, level)

	return PipelineRiskAssessment{
		PipelineID:     p.ID,
		Level:          level,
		LevelName:      level.String(),
		Score:          score,
		Factors:        factors,
		StepRisks:      stepRisks,
		Recommendation: recommendation,
		Recommended:    recommendation.String(),
		Timestamp:      time.Now().UTC(),
	}
}

func (c *PipelineClassifier) resolveStepRisks(p *Pipeline) []StepRisk {
	risks := make([]StepRisk, 0, len(p.Steps))
	for _, s := range p.Steps {
		score, ok := c.lookup(s.Tool)
		if !ok {
			score = c.cfg.DefaultToolRisk
		}
		risks = append(risks, StepRisk{StepID: s.ID, Tool: s.Tool, Score: score})
	}
	return risks
}

// toolRiskFactor combines per-step base risk as
// 0.6*weightedAverage + 0.4*max. The weighted average discounts step i
// by 1/(i+1) and divides by ln(stepCount+1) so long pipelines do not
// grow without bound.
func (c *PipelineClassifier) toolRiskFactor(p *Pipeline, risks []StepRisk) RiskFactor {
	if len(risks) == 0 {
		return RiskFactor{
			Name:      "cumulative_tool_risk",
			Weight:    c.cfg.Weights.ToolRisk,
			Value:     0,
			Threshold: escalateStepRisk,
			Reason:    "pipeline has no steps",
		}
	}

	var sum, maxRisk float64
	for i, r := range risks {
		sum += r.Score / float64(i+1)
		if r.Score > maxRisk {
			maxRisk = r.Score
		}
	}
	avg := sum / math.Log(float64(len(risks))+1)
	if avg > 100 {
		avg = 100
	}
	combined := 0.6*avg + 0.4*maxRisk

	return RiskFactor{
		Name:      "cumulative_tool_risk",
		Weight:    c.cfg.Weights.ToolRisk,
		Value:     combined,
		Threshold: escalateStepRisk,
		Exceeded:  maxRisk >= escalateStepRisk,
		Reason:    fmt.Sprintf("%d steps, max step risk %.0f", len(risks), maxRisk),
	}
}

// combinationFactor checks the pipeline's tool set against the configured
// dangerous combinations.
func (c *PipelineClassifier) combinationFactor(p *Pipeline) RiskFactor {
	tools := make(map[string]bool, len(p.Steps))
	for _, s := range p.Steps {
		tools[s.Tool] = true
	}

	var matched []string
	for _, combo := range c.cfg.DangerousCombinations {
		all := len(combo) > 0
		for _, tool := range combo {
			if !tools[tool] {
				all = false
				break
			}
		}
		if all {
			matched = append(matched, strings.Join(combo, " + "))
		}
	}

	raw := 10.0
	reason := "no dangerous tool combinations"
	if n := len(matched); n > 0 {
		raw = math.Min(100, 55+35*float64(n))
		sort.Strings(matched)
		reason = "dangerous combination: " + strings.Join(matched, "; ")
	}

	return RiskFactor{
		Name:      "dangerous_combinations",
		Weight:    c.cfg.Weights.Combinations,
		Value:     raw,
		Threshold: 55,
		Exceeded:  len(matched) > 0,
		Reason:    reason,
	}
}

// complexityFactor scores structural complexity: step count, conditions,
// dependency depth, and the review-threshold bump.
func (c *PipelineClassifier) complexityFactor(p *Pipeline) RiskFactor {
	n := len(p.Steps)

	raw := 10 + math.Min(float64(5*n), 30)

	hasCondition := false
	for _, s := range p.Steps {
		if s.Condition != "" {
			hasCondition = true
			break
		}
	}
	if hasCondition {
		raw += 15
	}

	depth := dependencyDepth(p.Steps)
	if depth > 3 {
		raw += 20
	}
	if c.cfg.ReviewStepThreshold > 0 && n > c.cfg.ReviewStepThreshold {
		raw += 15
	}

	return RiskFactor{
		Name:      "complexity",
		Weight:    c.cfg.Weights.Complexity,
		Value:     raw,
		Threshold: 50,
		Exceeded:  raw >= 50,
		Reason:    fmt.Sprintf("%d steps, dependency depth %d", n, depth),
	}
}

// dataFlowFactor keyword-scans each step's serialized inputs against the
// sensitive-term list.
func (c *PipelineClassifier) dataFlowFactor(p *Pipeline) RiskFactor {
	matches := 0
	for _, s := range p.Steps {
		if len(s.Inputs) == 0 {
			continue
		}
		raw, err := json.Marshal(s.Inputs)
		if err != nil {
			continue
		}
		serialized := strings.ToLower(string(raw))
		for _, term := range c.cfg.SensitiveTerms {
			if strings.Contains(serialized, term) {
				matches++
			}
		}
	}

	raw := 10.0
	reason := "no sensitive terms in step inputs"
	if matches > 0 {
		raw = math.Min(100, 20+20*float64(matches))
		reason = fmt.Sprintf("%d sensitive term matches in step inputs", matches)
	}

	return RiskFactor{
		Name:      "data_flow",
		Weight:    c.cfg.Weights.DataFlow,
		Value:     raw,
		Threshold: 60,
		Exceeded:  raw >= 60,
		Reason:    reason,
	}
}

// declaredFactor maps the pipeline's self-declared risk level to a score.
// A pipeline that declares nothing is assumed medium.
func (c *PipelineClassifier) declaredFactor(p *Pipeline) RiskFactor {
	var raw float64
	switch p.DeclaredRisk {
	case "safe":
		raw = 10
	case "low":
		raw = 25
	case "high":
		raw = 75
	case "critical":
		raw = 95
	default:
		raw = 50
	}

	reason := "pipeline declares risk " + p.DeclaredRisk
	if p.DeclaredRisk == "" {
		reason = "no declared risk, assuming medium"
	}

	return RiskFactor{
		Name:      "declared_risk",
		Weight:    c.cfg.Weights.Declared,
		Value:     raw,
		Threshold: 75,
		Exceeded:  raw >= 75,
		Reason:    reason,
	}
}

func (c *PipelineClassifier) recommend(p *Pipeline, risks []StepRisk, level RiskLevel) Outcome {
	for _, r := range risks {
		if r.Score >= escalateStepRisk {
			return OutcomeEscalate
		}
	}
	if p.DeclaredRisk == "safe" && level != RiskCritical {
		return OutcomeAutoExecute
	}
	return defaultOutcomeForLevel(level)
}

// dependencyDepth is the longest path in the step DAG: a step with no
// dependencies has depth 0, otherwise 1 + max depth over its deps.
// Unknown dependency ids are ignored; cycles terminate at depth 0 for
// the re-entered step.
func dependencyDepth(steps []PipelineStep) int {
	byID := make(map[string]*PipelineStep, len(steps))
	for i := range steps {
		byID[steps[i].ID] = &steps[i]
	}

	memo := make(map[string]int, len(steps))
	visiting := make(map[string]bool, len(steps))

	var depth func(id string) int
	depth = func(id string) int {
		if d, ok := memo[id]; ok {
			return d
		}
		step, ok := byID[id]
		if !ok || visiting[id] {
			return 0
		}
		visiting[id] = true
		d := 0
		for _, dep := range step.DependsOn {
			if dd := 1 + depth(dep); dd > d {
				d = dd
			}
		}
		visiting[id] = false
		memo[id] = d
		return d
	}

	maxDepth := 0
	for _, s := range steps {
		if d := depth(s.ID); d > maxDepth {
			maxDepth = d
		}
	}
	return maxDepth
}
