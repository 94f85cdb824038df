// Package api exposes the governance engine over HTTP.
package api

import (
	"net/http"

	"github.com/triage-ai/warden/internal/action"
	"github.com/triage-ai/warden/internal/audit"
	"github.com/triage-ai/warden/internal/auth"
	"github.com/triage-ai/warden/internal/config"
	"github.com/triage-ai/warden/internal/engine"
	"github.com/triage-ai/warden/internal/queue"
	"github.com/triage-ai/warden/internal/router"
	"github.com/triage-ai/warden/internal/storage"
	"github.com/triage-ai/warden/internal/store"
	"go.uber.org/zap"
)

// Dependencies holds shared state injected into all HTTP handlers.
type Dependencies struct {
	Router     *router.Router
	Pipeline   *engine.PipelineClassifier
	Queue      *queue.Queue
	Audit      *audit.Log
	Validator  *action.Validator // nil when no schemas configured
	Thresholds config.LevelThresholds
	Auth       auth.Authenticator
	Store      *store.Store // nil without Postgres
	Writer     storage.EventWriter
	Logger     *zap.Logger
}

// NewRouter builds the HTTP mux with all routes wired up.
func NewRouter(deps *Dependencies) http.Handler {
	mux := http.NewServeMux()

	// Decision path (auth required via Bearer wsk_ token)
	mux.HandleFunc("POST /v1/actions", deps.authMiddleware(deps.handleRouteAction))
	mux.HandleFunc("POST /v1/pipelines", deps.authMiddleware(deps.handleClassifyPipeline))
	mux.HandleFunc("POST /v1/decisions/{decision_id}/result", deps.authMiddleware(deps.handleExecutionResult))

	// Approval queue (reviewer role required for mutations)
	mux.HandleFunc("GET /v1/approvals", deps.authMiddleware(deps.handleListApprovals))
	mux.HandleFunc("GET /v1/approvals/summary", deps.authMiddleware(deps.handleApprovalSummary))
	mux.HandleFunc("POST /v1/approvals/{request_id}/approve", deps.requireReviewer(deps.handleApprove))
	mux.HandleFunc("POST /v1/approvals/{request_id}/reject", deps.requireReviewer(deps.handleReject))
	mux.HandleFunc("POST /v1/approvals/batch", deps.requireReviewer(deps.handleBatch))

	// Audit chain
	mux.HandleFunc("GET /v1/audit", deps.authMiddleware(deps.handleAuditQuery))
	mux.HandleFunc("GET /v1/audit/export", deps.authMiddleware(deps.handleAuditExport))
	mux.HandleFunc("GET /v1/audit/verify", deps.authMiddleware(deps.handleAuditVerify))

	// Client provisioning (no auth — operator surface, fronted elsewhere)
	mux.HandleFunc("POST /api/warden/clients", deps.handleCreateClient)
	mux.HandleFunc("GET /api/warden/clients", deps.handleListClients)
	mux.HandleFunc("POST /api/warden/clients/{client_id}/rotate-key", deps.handleRotateKey)
	mux.HandleFunc("DELETE /api/warden/clients/{client_id}", deps.handleRevokeClient)
	mux.HandleFunc("PUT /api/warden/tools/{tool_name}", deps.handleUpsertToolRisk)

	// Health check
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	return corsMiddleware(requestLogging(mux, deps.Logger))
}
