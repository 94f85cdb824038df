package engine

import (
	"time"

	"github.com/triage-ai/warden/internal/action"
)

// Decision is the authoritative verdict for one routed action. It is
// created exactly once per route call; only a queued decision's outcome
// may later change, through an approval-queue approve or reject.
type Decision struct {
	ID                string          `json:"id"`
	ActionID          string          `json:"actionId"`
	Action            *action.Action  `json:"action"`
	Assessment        *RiskAssessment `json:"assessment"`
	Outcome           Outcome         `json:"outcome"`
	Reason            string          `json:"reason"`
	Violations        []string        `json:"violations,omitempty"`
	Warnings          []string        `json:"warnings,omitempty"`
	Consensus         *SixHatsResult  `json:"consensus,omitempty"`
	RollbackAvailable bool            `json:"rollbackAvailable"`
	Timestamp         time.Time       `json:"timestamp"`
	ApprovedBy        string          `json:"approvedBy,omitempty"`
	ApprovedAt        *time.Time      `json:"approvedAt,omitempty"`
}
