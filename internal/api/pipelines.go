package api

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/triage-ai/warden/internal/engine"
)

// handleClassifyPipeline implements POST /v1/pipelines. Pipelines are
// scored and get a recommendation; execution gating stays with the
// per-action route path.
func (d *Dependencies) handleClassifyPipeline(w http.ResponseWriter, r *http.Request) {
	var req ClassifyPipelineReq
	if err := readJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResp{Detail: "Invalid JSON body"})
		return
	}
	if len(req.Steps) == 0 {
		writeJSON(w, http.StatusBadRequest, ErrorResp{Detail: "steps is required"})
		return
	}
	for i, s := range req.Steps {
		if s.Tool == "" {
			writeJSON(w, http.StatusBadRequest, ErrorResp{Detail: "every step needs a tool"})
			return
		}
		if s.ID == "" {
			req.Steps[i].ID = uuid.New().String()
		}
	}

	p := &engine.Pipeline{
		ID:           req.ID,
		DeclaredRisk: req.DeclaredRisk,
	}
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	for _, s := range req.Steps {
		p.Steps = append(p.Steps, engine.PipelineStep{
			ID:        s.ID,
			Tool:      s.Tool,
			Inputs:    s.Inputs,
			DependsOn: s.DependsOn,
			Condition: s.Condition,
			TimeoutMs: s.TimeoutMs,
		})
	}

	assessment := d.Pipeline.Classify(p, d.Thresholds)
	writeJSON(w, http.StatusOK, assessment)
}
