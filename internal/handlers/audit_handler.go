package handlers

import (
	"net/http"
	"strconv"

	"letterflow/internal/repository"
)

// AuditHandler exposes the audit trail to administrators.
type AuditHandler struct {
	auditRepo *repository.AuditRepository
}

// NewAuditHandler creates a new audit handler
func NewAuditHandler(auditRepo *repository.AuditRepository) *AuditHandler {
	return &AuditHandler{auditRepo: auditRepo}
}

// List returns the most recent audit entries
// @Summary List audit logs
// @Tags Audit
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Maximum entries (default 100)"
// @Success 200 {array} models.AuditLog
// @Router /admin/audit [get]
func (h *AuditHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 && parsed <= 1000 {
			limit = parsed
		}
	}

	logs, err := h.auditRepo.ListRecent(r.Context(), limit)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, logs)
}
