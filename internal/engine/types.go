package engine

import "time"

// RiskLevel represents the overall risk classification of an action.
type RiskLevel int

const (
	RiskSafe RiskLevel = iota + 1
	RiskLow
	RiskMedium
	RiskHigh
	RiskCritical
)

// String returns the lowercase risk level name.
func (l RiskLevel) String() string {
	switch l {
	case RiskSafe:
		return "safe"
	case RiskLow:
		return "low"
	case RiskMedium:
		return "medium"
	case RiskHigh:
		return "high"
	case RiskCritical:
		return "critical"
	default:
		return "unspecified"
	}
}

// ParseRiskLevel maps a level string to its RiskLevel. Unknown strings
// map to RiskMedium, the neutral assumption for undeclared risk.
func ParseRiskLevel(s string) RiskLevel {
	switch s {
	case "safe":
		return RiskSafe
	case "low":
		return RiskLow
	case "medium":
		return RiskMedium
	case "high":
		return RiskHigh
	case "critical":
		return RiskCritical
	default:
		return RiskMedium
	}
}

// Outcome represents the recommended or final routing verdict for an action.
type Outcome int

const (
	OutcomeAutoExecute Outcome = iota + 1
	OutcomeQueueApproval
	OutcomeEscalate
	OutcomeReject
)

// String returns the snake_case outcome name.
func (o Outcome) String() string {
	switch o {
	case OutcomeAutoExecute:
		return "auto_execute"
	case OutcomeQueueApproval:
		return "queue_approval"
	case OutcomeEscalate:
		return "escalate"
	case OutcomeReject:
		return "reject"
	default:
		return "unspecified"
	}
}

// RiskFactor is the output of a single weighted scoring factor.
type RiskFactor struct {
	Name      string  `json:"name"`
	Weight    float64 `json:"weight"`
	Value     float64 `json:"value"`     // raw 0-100 factor score before weighting
	Threshold float64 `json:"threshold"` // value at or above which the factor is flagged
	Exceeded  bool    `json:"exceeded"`
	Reason    string  `json:"reason"`
}

// RiskAssessment is the scored output of classifying a single action.
// Pure function of (action, config); never mutated after creation.
type RiskAssessment struct {
	ActionID       string       `json:"action_id"`
	Level          RiskLevel    `json:"-"`
	LevelName      string       `json:"level"`
	Score          float64      `json:"score"` // 0-100 weighted sum
	Factors        []RiskFactor `json:"factors"`
	Recommendation Outcome      `json:"-"`
	Recommended    string       `json:"recommendation"`
	Constraints    []string     `json:"constraints,omitempty"`
	Timestamp      time.Time    `json:"timestamp"`
}

// StepRisk holds the resolved base risk for one pipeline step.
type StepRisk struct {
	StepID string  `json:"step_id"`
	Tool   string  `json:"tool"`
	Score  float64 `json:"score"`
}

// PipelineRiskAssessment is the scored output of classifying a tool pipeline.
type PipelineRiskAssessment struct {
	PipelineID     string       `json:"pipeline_id"`
	Level          RiskLevel    `json:"-"`
	LevelName      string       `json:"level"`
	Score          float64      `json:"score"`
	Factors        []RiskFactor `json:"factors"`
	StepRisks      []StepRisk   `json:"step_risks"`
	Recommendation Outcome      `json:"-"`
	Recommended    string       `json:"recommendation"`
	Timestamp      time.Time    `json:"timestamp"`
}
