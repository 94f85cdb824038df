package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/triage-ai/warden/internal/queue"
)

// filterFromQuery builds a queue.Filter from list query parameters.
func filterFromQuery(category, level, engine, minScore, maxScore, minAge string) (queue.Filter, error) {
	f := queue.Filter{Category: category, Level: level, Engine: engine}

	if minScore != "" {
		v, err := strconv.ParseFloat(minScore, 64)
		if err != nil {
			return f, errors.New("min_score must be a number")
		}
		f.MinScore = v
	}
	if maxScore != "" {
		v, err := strconv.ParseFloat(maxScore, 64)
		if err != nil {
			return f, errors.New("max_score must be a number")
		}
		f.MaxScore = v
	}
	if minAge != "" {
		v, err := time.ParseDuration(minAge)
		if err != nil {
			return f, errors.New("min_age must be a duration like 30m or 2h")
		}
		f.MinAge = v
	}
	return f, nil
}

// handleListApprovals implements GET /v1/approvals. Returns pending
// requests in priority order, optionally filtered via query params.
func (d *Dependencies) handleListApprovals(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if len(q) == 0 {
		writeJSON(w, http.StatusOK, d.Queue.GetPending())
		return
	}

	f, err := filterFromQuery(q.Get("category"), q.Get("level"), q.Get("engine"),
		q.Get("min_score"), q.Get("max_score"), q.Get("min_age"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResp{Detail: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, d.Queue.FilterPending(f))
}

// handleApprovalSummary implements GET /v1/approvals/summary.
func (d *Dependencies) handleApprovalSummary(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, d.Queue.GetSummary())
}

// handleApprove implements POST /v1/approvals/{request_id}/approve.
func (d *Dependencies) handleApprove(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("request_id")

	var req ResolveReq
	if err := readJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResp{Detail: "Invalid JSON body"})
		return
	}
	reviewer := req.Reviewer
	if reviewer == "" {
		if client := clientFromContext(r.Context()); client != nil {
			reviewer = client.Name
		}
	}

	resolved := d.Queue.Approve(id, reviewer, req.Feedback)
	if resolved == nil {
		writeJSON(w, http.StatusNotFound, ErrorResp{Detail: "Approval request not found."})
		return
	}
	writeJSON(w, http.StatusOK, resolved)
}

// handleReject implements POST /v1/approvals/{request_id}/reject.
func (d *Dependencies) handleReject(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("request_id")

	var req ResolveReq
	if err := readJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResp{Detail: "Invalid JSON body"})
		return
	}
	reason := req.Reason
	if reason == "" {
		reason = "rejected by reviewer"
	}
	reviewer := req.Reviewer
	if reviewer == "" {
		if client := clientFromContext(r.Context()); client != nil {
			reviewer = client.Name
		}
	}

	resolved := d.Queue.Reject(id, reason, reviewer)
	if resolved == nil {
		writeJSON(w, http.StatusNotFound, ErrorResp{Detail: "Approval request not found."})
		return
	}
	writeJSON(w, http.StatusOK, resolved)
}

// handleBatch implements POST /v1/approvals/batch.
func (d *Dependencies) handleBatch(w http.ResponseWriter, r *http.Request) {
	var req BatchReq
	if err := readJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResp{Detail: "Invalid JSON body"})
		return
	}
	reviewer := req.Reviewer
	if reviewer == "" {
		if client := clientFromContext(r.Context()); client != nil {
			reviewer = client.Name
		}
	}

	switch req.Operation {
	case "approve":
		writeJSON(w, http.StatusOK, d.Queue.ApproveFiltered(req.Filter, reviewer, req.Feedback))
	case "reject":
		reason := req.Reason
		if reason == "" {
			reason = "bulk rejected by reviewer"
		}
		writeJSON(w, http.StatusOK, d.Queue.RejectFiltered(req.Filter, reason, reviewer))
	case "approve_all_safe":
		writeJSON(w, http.StatusOK, d.Queue.ApproveAllSafe(reviewer))
	case "reject_older_than":
		age, err := time.ParseDuration(req.OlderThan)
		if err != nil || age <= 0 {
			writeJSON(w, http.StatusBadRequest, ErrorResp{Detail: "older_than must be a positive duration"})
			return
		}
		writeJSON(w, http.StatusOK, d.Queue.RejectOlderThan(age, reviewer))
	default:
		writeJSON(w, http.StatusBadRequest, ErrorResp{Detail: "operation must be 'approve', 'reject', 'approve_all_safe' or 'reject_older_than'"})
	}
}
