// Package registry resolves per-tool risk scores used by pipeline
// classification. Scores live in Postgres with a TTL cache in front;
// a static table backed by configuration serves as fallback.
package registry

import "context"

// ToolRisk is one tool's registered risk profile.
type ToolRisk struct {
	Tool        string  `json:"tool"`
	Score       float64 `json:"score"`
	Description string  `json:"description,omitempty"`
}

// RiskRegistry resolves a tool name to its risk profile. A nil result
// with a nil error means the tool is unregistered; callers fall back to
// the configured default score.
type RiskRegistry interface {
	GetToolRisk(ctx context.Context, tool string) (*ToolRisk, error)
}

// StaticRegistry serves scores from an in-memory table. Used when no
// database is configured and as the fallback when lookups fail.
type StaticRegistry struct {
	scores map[string]float64
}

func NewStaticRegistry(scores map[string]float64) *StaticRegistry {
	return &StaticRegistry{scores: scores}
}

func (r *StaticRegistry) GetToolRisk(_ context.Context, tool string) (*ToolRisk, error) {
	score, ok := r.scores[tool]
	if !ok {
		return nil, nil
	}
	return &ToolRisk{Tool: tool, Score: score}, nil
}
