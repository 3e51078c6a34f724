package handlers

import (
	"net/http"

	"letterflow/internal/aggregate"
	"letterflow/internal/directory"
	"letterflow/internal/middleware"
	"letterflow/internal/repository"
)

// DashboardHandler serves read-only rollups over the letter collection.
type DashboardHandler struct {
	letters *repository.LetterRepository
	dir     *directory.Directory
}

// NewDashboardHandler creates a new dashboard handler
func NewDashboardHandler(letters *repository.LetterRepository, dir *directory.Directory) *DashboardHandler {
	return &DashboardHandler{letters: letters, dir: dir}
}

// Stats returns the overall rollup plus the caller's personal one
// @Summary Dashboard statistics
// @Description Counts by status, department and calendar day, plus per-user
// @Description sent/received figures. A self-addressed letter counts once as
// @Description sent and once as received.
// @Tags Dashboard
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.DashboardStats
// @Router /dashboard/stats [get]
func (h *DashboardHandler) Stats(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetUser(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, ErrMsgUnauthorized)
		return
	}

	letters, err := h.letters.GetAllLetters(r.Context())
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	users, err := h.dir.Snapshot(r.Context())
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, aggregate.Dashboard(letters, users, actor.Email))
}

// Overall returns only the organization-wide rollup
// @Summary Overall statistics
// @Tags Dashboard
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.OverallStats
// @Router /dashboard/overall [get]
func (h *DashboardHandler) Overall(w http.ResponseWriter, r *http.Request) {
	letters, err := h.letters.GetAllLetters(r.Context())
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	users, err := h.dir.Snapshot(r.Context())
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, aggregate.Overall(letters, users))
}
