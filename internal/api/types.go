package api

import (
	"time"

	"github.com/triage-ai/warden/internal/engine"
	"github.com/triage-ai/warden/internal/queue"
)

// --- POST /v1/actions ---

// MetadataReq is the optional action metadata block.
type MetadataReq struct {
	EstimatedValue float64 `json:"estimated_value,omitempty"`
	Reversible     bool    `json:"reversible,omitempty"`
	Urgency        string  `json:"urgency,omitempty"`
	LinesChanged   int     `json:"lines_changed,omitempty"`
	FilesChanged   int     `json:"files_changed,omitempty"`
}

// RouteActionReq is the JSON body for POST /v1/actions.
type RouteActionReq struct {
	ID          string         `json:"id,omitempty"`
	Type        string         `json:"type"`
	Engine      string         `json:"engine,omitempty"`
	Category    string         `json:"category"`
	Description string         `json:"description,omitempty"`
	Metadata    MetadataReq    `json:"metadata"`
	Params      map[string]any `json:"params,omitempty"`
}

// RouteActionResp wraps the decision with the advisory consensus.
type RouteActionResp struct {
	Decision  *engine.Decision     `json:"decision"`
	Consensus engine.SixHatsResult `json:"consensus"`
	LatencyMs float64              `json:"latency_ms"`
}

// --- POST /v1/pipelines ---

// PipelineStepReq is one step of a submitted pipeline.
type PipelineStepReq struct {
	ID        string         `json:"id"`
	Tool      string         `json:"tool"`
	Inputs    map[string]any `json:"inputs,omitempty"`
	DependsOn []string       `json:"depends_on,omitempty"`
	Condition string         `json:"condition,omitempty"`
	TimeoutMs int            `json:"timeout_ms,omitempty"`
}

// ClassifyPipelineReq is the JSON body for POST /v1/pipelines.
type ClassifyPipelineReq struct {
	ID           string            `json:"id,omitempty"`
	Steps        []PipelineStepReq `json:"steps"`
	DeclaredRisk string            `json:"declared_risk,omitempty"`
}

// --- Approvals ---

// ResolveReq is the body for approve/reject calls.
type ResolveReq struct {
	Reviewer string `json:"reviewer"`
	Feedback string `json:"feedback,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

// BatchReq is the body for POST /v1/approvals/batch.
type BatchReq struct {
	Operation string       `json:"operation"` // "approve", "reject", "approve_all_safe", "reject_older_than"
	Filter    queue.Filter `json:"filter"`
	Reviewer  string       `json:"reviewer"`
	Feedback  string       `json:"feedback,omitempty"`
	Reason    string       `json:"reason,omitempty"`
	OlderThan string       `json:"older_than,omitempty"` // Go duration, reject_older_than only
}

// --- Execution reports ---

// ExecutionReq is the body for POST /v1/decisions/{id}/result.
type ExecutionReq struct {
	Status string `json:"status"` // "success", "failure", "rollback"
	Detail string `json:"detail,omitempty"`
}

// --- Client provisioning ---

// CreateClientReq is the JSON body for POST /api/warden/clients.
type CreateClientReq struct {
	Name string `json:"name"`
	Role string `json:"role"` // "agent" or "reviewer"
}

// CreateClientResp includes the plaintext API key (shown once).
type CreateClientResp struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	APIKey       string    `json:"api_key"`
	APIKeyPrefix string    `json:"api_key_prefix"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

// ClientResp omits the plaintext key.
type ClientResp struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	APIKeyPrefix string     `json:"api_key_prefix"`
	Role         string     `json:"role"`
	CreatedAt    time.Time  `json:"created_at"`
	RevokedAt    *time.Time `json:"revoked_at,omitempty"`
}

// RotateKeyResp includes the new plaintext API key (shown once).
type RotateKeyResp struct {
	APIKey       string `json:"api_key"`
	APIKeyPrefix string `json:"api_key_prefix"`
}

// ToolRiskReq is the body for PUT /api/warden/tools/{tool_name}.
type ToolRiskReq struct {
	Score       float64 `json:"score"`
	Description string  `json:"description,omitempty"`
}

// ErrorResp is a standard error response body.
type ErrorResp struct {
	Detail string `json:"detail"`
}
