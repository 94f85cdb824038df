package api

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/triage-ai/warden/internal/action"
	"github.com/triage-ai/warden/internal/engine"
	"github.com/triage-ai/warden/internal/storage"
	"go.uber.org/zap"
)

// handleRouteAction implements POST /v1/actions.
// Auth middleware has already validated the Bearer token and injected the client.
func (d *Dependencies) handleRouteAction(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req RouteActionReq
	if err := readJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResp{Detail: "Invalid JSON body"})
		return
	}
	if req.Type == "" {
		writeJSON(w, http.StatusBadRequest, ErrorResp{Detail: "type is required"})
		return
	}
	category, ok := action.ParseCategory(req.Category)
	if !ok {
		writeJSON(w, http.StatusBadRequest, ErrorResp{Detail: "unknown category: " + req.Category})
		return
	}

	client := clientFromContext(r.Context())
	if client == nil {
		writeJSON(w, http.StatusInternalServerError, ErrorResp{Detail: "missing client context"})
		return
	}

	a := &action.Action{
		ID:          req.ID,
		Type:        req.Type,
		Engine:      req.Engine,
		Category:    category,
		Description: req.Description,
		Metadata: action.Metadata{
			EstimatedValue: req.Metadata.EstimatedValue,
			Reversible:     req.Metadata.Reversible,
			Urgency:        action.ParseUrgency(req.Metadata.Urgency),
			LinesChanged:   req.Metadata.LinesChanged,
			FilesChanged:   req.Metadata.FilesChanged,
		},
		Params:    req.Params,
		CreatedAt: time.Now().UTC(),
	}
	if a.ID == "" {
		a.ID = uuid.New().String()
	}

	decision := d.Router.Route(a)

	// Advisory schema validation surfaces as constraints, never as a block.
	if d.Validator != nil {
		if constraints := d.Validator.Validate(a); len(constraints) > 0 {
			decision.Assessment.Constraints = append(decision.Assessment.Constraints, constraints...)
		}
	}

	latencyMs := float64(time.Since(start)) / float64(time.Millisecond)

	// Fire-and-forget: write decision event to analytics storage
	d.writeDecisionEvent(decision, client.ClientID, float32(latencyMs))

	resp := RouteActionResp{
		Decision:  decision,
		LatencyMs: latencyMs,
	}
	if decision.Consensus != nil {
		resp.Consensus = *decision.Consensus
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleExecutionResult implements POST /v1/decisions/{decision_id}/result.
// Engine adapters report back what happened after an auto-execute or
// approval so usage counters and the audit trail stay accurate.
func (d *Dependencies) handleExecutionResult(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("decision_id")

	var req ExecutionReq
	if err := readJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResp{Detail: "Invalid JSON body"})
		return
	}

	decision := d.Router.GetDecision(id)
	if decision == nil {
		writeJSON(w, http.StatusNotFound, ErrorResp{Detail: "Decision not found."})
		return
	}

	switch req.Status {
	case "success":
		d.Router.RecordExecution(decision)
	case "failure":
		d.Router.RecordExecutionFailure(decision, req.Detail)
	case "rollback":
		d.Router.RecordRollback(decision, req.Detail)
	default:
		writeJSON(w, http.StatusBadRequest, ErrorResp{Detail: "status must be 'success', 'failure' or 'rollback'"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "recorded"})
}

// writeDecisionEvent flattens a decision into a storage event and hands
// it to the async writer. Never blocks the request path.
func (d *Dependencies) writeDecisionEvent(dec *engine.Decision, clientID string, latencyMs float32) {
	if d.Writer == nil {
		return
	}

	ev := &storage.DecisionEvent{
		DecisionID:     dec.ID,
		ActionID:       dec.ActionID,
		ClientID:       clientID,
		Timestamp:      dec.Timestamp,
		ActionType:     dec.Action.Type,
		Category:       dec.Action.Category.String(),
		Engine:         dec.Action.Engine,
		Description:    storage.TruncateDescription(dec.Action.Description, storage.DescriptionPreviewLength),
		EstimatedValue: dec.Action.Metadata.EstimatedValue,
		Reversible:     dec.Action.Metadata.Reversible,
		Urgency:        dec.Action.Metadata.Urgency.String(),
		RiskLevel:      dec.Assessment.LevelName,
		RiskScore:      dec.Assessment.Score,
		Outcome:        dec.Outcome.String(),
		Reason:         dec.Reason,
		Violations:     dec.Violations,
		Warnings:       dec.Warnings,
		LatencyMs:      latencyMs,
	}
	if dec.Consensus != nil {
		ev.Consensus = dec.Consensus.Consensus
	}
	for _, f := range dec.Assessment.Factors {
		ev.FactorNames = append(ev.FactorNames, f.Name)
		ev.FactorValues = append(ev.FactorValues, f.Value)
		ev.FactorExceeded = append(ev.FactorExceeded, f.Exceeded)
	}

	d.Writer.Write(ev)
	d.Logger.Debug("decision event queued",
		zap.String("decision_id", dec.ID),
		zap.String("outcome", ev.Outcome))
}
