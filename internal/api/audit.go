package api

import (
	"net/http"
	"strconv"
)

// defaultAuditLimit caps unbounded audit queries.
const defaultAuditLimit = 200

// handleAuditQuery implements GET /v1/audit. Filters: type, action_id,
// limit (most recent entries win).
func (d *Dependencies) handleAuditQuery(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	limit := defaultAuditLimit
	if raw := q.Get("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 {
			writeJSON(w, http.StatusBadRequest, ErrorResp{Detail: "limit must be a positive integer"})
			return
		}
		limit = v
	}

	entries := d.Audit.Query(q.Get("type"), q.Get("action_id"), limit)
	writeJSON(w, http.StatusOK, entries)
}

// handleAuditExport implements GET /v1/audit/export. Returns the whole
// chain as a JSON document suitable for offline verification.
func (d *Dependencies) handleAuditExport(w http.ResponseWriter, r *http.Request) {
	raw, err := d.Audit.Export()
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, ErrorResp{Detail: "Failed to export audit log"})
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(raw) //nolint:errcheck
}

// handleAuditVerify implements GET /v1/audit/verify. Walks the hash
// chain and reports the first broken link, if any. Read-only: a broken
// chain is diagnosed, never repaired.
func (d *Dependencies) handleAuditVerify(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, d.Audit.VerifyIntegrity())
}
