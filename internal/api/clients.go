package api

import (
	"database/sql"
	"net/http"

	"github.com/triage-ai/warden/internal/store"
	"go.uber.org/zap"
)

// requireStore guards client provisioning routes when the server runs
// without Postgres.
func (d *Dependencies) requireStore(w http.ResponseWriter) bool {
	if d.Store == nil {
		writeJSON(w, http.StatusServiceUnavailable, ErrorResp{Detail: "Client provisioning requires a database"})
		return false
	}
	return true
}

func (d *Dependencies) handleCreateClient(w http.ResponseWriter, r *http.Request) {
	if !d.requireStore(w) {
		return
	}

	var req CreateClientReq
	if err := readJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResp{Detail: "Invalid JSON body"})
		return
	}
	if req.Name == "" || len(req.Name) > 255 {
		writeJSON(w, http.StatusBadRequest, ErrorResp{Detail: "name must be 1-255 characters"})
		return
	}
	if req.Role == "" {
		req.Role = "agent"
	}
	if req.Role != "agent" && req.Role != "reviewer" {
		writeJSON(w, http.StatusBadRequest, ErrorResp{Detail: "role must be 'agent' or 'reviewer'"})
		return
	}

	client, plainKey, err := d.Store.CreateClient(r.Context(), req.Name, req.Role)
	if err != nil {
		d.Logger.Error("failed to create client", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, ErrorResp{Detail: "Failed to create client"})
		return
	}

	writeJSON(w, http.StatusCreated, CreateClientResp{
		ID:           client.ID,
		Name:         client.Name,
		APIKey:       plainKey,
		APIKeyPrefix: client.APIKeyPrefix,
		Role:         client.Role,
		CreatedAt:    client.CreatedAt,
	})
}

func (d *Dependencies) handleListClients(w http.ResponseWriter, r *http.Request) {
	if !d.requireStore(w) {
		return
	}

	clients, err := d.Store.ListClients(r.Context())
	if err != nil {
		d.Logger.Error("failed to list clients", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, ErrorResp{Detail: "Failed to list clients"})
		return
	}

	resp := make([]ClientResp, 0, len(clients))
	for _, c := range clients {
		resp = append(resp, clientToResp(c))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (d *Dependencies) handleRotateKey(w http.ResponseWriter, r *http.Request) {
	if !d.requireStore(w) {
		return
	}

	id := r.PathValue("client_id")
	client, plainKey, err := d.Store.RotateAPIKey(r.Context(), id)
	if err == sql.ErrNoRows {
		writeJSON(w, http.StatusNotFound, ErrorResp{Detail: "Client not found."})
		return
	}
	if err != nil {
		d.Logger.Error("failed to rotate api key", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, ErrorResp{Detail: "Failed to rotate API key"})
		return
	}

	writeJSON(w, http.StatusOK, RotateKeyResp{
		APIKey:       plainKey,
		APIKeyPrefix: client.APIKeyPrefix,
	})
}

func (d *Dependencies) handleRevokeClient(w http.ResponseWriter, r *http.Request) {
	if !d.requireStore(w) {
		return
	}

	id := r.PathValue("client_id")
	err := d.Store.RevokeClient(r.Context(), id)
	if err == sql.ErrNoRows {
		writeJSON(w, http.StatusNotFound, ErrorResp{Detail: "Client not found."})
		return
	}
	if err != nil {
		d.Logger.Error("failed to revoke client", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, ErrorResp{Detail: "Failed to revoke client"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleUpsertToolRisk writes a tool's risk profile for pipeline
// scoring. The registry cache picks it up on its next TTL refresh.
func (d *Dependencies) handleUpsertToolRisk(w http.ResponseWriter, r *http.Request) {
	if !d.requireStore(w) {
		return
	}

	tool := r.PathValue("tool_name")

	var req ToolRiskReq
	if err := readJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResp{Detail: "Invalid JSON body"})
		return
	}
	if req.Score < 0 || req.Score > 100 {
		writeJSON(w, http.StatusBadRequest, ErrorResp{Detail: "score must be 0-100"})
		return
	}

	if err := d.Store.UpsertToolRisk(r.Context(), tool, req.Score, req.Description); err != nil {
		d.Logger.Error("failed to upsert tool risk", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, ErrorResp{Detail: "Failed to save tool risk"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "saved"})
}

func clientToResp(c *store.Client) ClientResp {
	return ClientResp{
		ID:           c.ID,
		Name:         c.Name,
		APIKeyPrefix: c.APIKeyPrefix,
		Role:         c.Role,
		CreatedAt:    c.CreatedAt,
		RevokedAt:    c.RevokedAt,
	}
}
