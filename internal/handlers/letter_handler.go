package handlers

import (
	"encoding/json"
	"net/http"

	"letterflow/internal/directory"
	"letterflow/internal/lifecycle"
	"letterflow/internal/middleware"
	"letterflow/internal/models"
	"letterflow/internal/repository"
	"letterflow/pkg/validator"
)

// LetterHandler handles letter lifecycle requests
type LetterHandler struct {
	letters *lifecycle.Service
	repo    *repository.LetterRepository
	auditMw *middleware.AuditMiddleware
}

// NewLetterHandler creates a new letter handler
func NewLetterHandler(letters *lifecycle.Service, repo *repository.LetterRepository, auditMw *middleware.AuditMiddleware) *LetterHandler {
	return &LetterHandler{letters: letters, repo: repo, auditMw: auditMw}
}

// Create composes a new letter
// @Summary Create letter
// @Tags Letters
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body lifecycle.CreateInput true "Letter fields"
// @Success 201 {object} models.Letter
// @Failure 400 {object} map[string]string "Missing fields"
// @Failure 404 {object} map[string]string "Unknown department"
// @Router /letters [post]
func (h *LetterHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetUser(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, ErrMsgUnauthorized)
		return
	}

	var req lifecycle.CreateInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrMsgInvalidRequestBody)
		return
	}
	if err := validator.ValidateStruct(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	letter, err := h.letters.Create(r.Context(), actor, req)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	_ = h.auditMw.LogAction(r, AuditActionLetterCreate, "letters", "Created letter "+letter.ID)
	respondWithJSON(w, http.StatusCreated, letter)
}

// List returns the caller's letters, filtered by box
// @Summary List letters
// @Description box selects the view: inbox (received, not archived), sent,
// @Description archived, tasks (assigned copies addressed to the caller) or
// @Description all. status optionally narrows by lifecycle status.
// @Tags Letters
// @Produce json
// @Security BearerAuth
// @Param box query string false "inbox | sent | archived | tasks | all"
// @Param status query string false "Lifecycle status filter"
// @Success 200 {array} models.Letter
// @Router /letters [get]
func (h *LetterHandler) List(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetUser(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, ErrMsgUnauthorized)
		return
	}

	filters := repository.LetterFilters{ParticipantEmail: actor.Email}
	if status := r.URL.Query().Get("status"); status != "" {
		s := models.Status(status)
		if !s.Valid() {
			respondWithError(w, http.StatusBadRequest, "Unknown status")
			return
		}
		filters.Status = s
	}

	box := r.URL.Query().Get("box")
	archived := box == "archived"
	if box != "all" {
		filters.Archived = &archived
	}
	switch box {
	case "tasks":
		filters.TasksOnly = true
	case "inbox", "sent":
		// Assigned copies live in the tasks box, not the mail boxes.
		filters.LettersOnly = true
	}

	letters, err := h.repo.ListLetters(r.Context(), filters)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, filterBox(letters, actor.Email, box))
}

// filterBox narrows participant letters to the requested view. inbox keeps
// letters addressed or CC'd to the caller, sent keeps the ones they wrote.
func filterBox(letters []models.Letter, email, box string) []models.Letter {
	switch box {
	case "inbox":
		out := letters[:0]
		for _, l := range letters {
			if !directory.SameEmail(l.FromEmail, email) || directory.SameEmail(l.ToEmail, email) {
				out = append(out, l)
			}
		}
		return out
	case "sent":
		out := letters[:0]
		for _, l := range letters {
			if directory.SameEmail(l.FromEmail, email) {
				out = append(out, l)
			}
		}
		return out
	default:
		return letters
	}
}

// Get returns one letter by id
// @Summary Get letter
// @Tags Letters
// @Produce json
// @Security BearerAuth
// @Param id path string true "Letter ID"
// @Success 200 {object} models.Letter
// @Failure 404 {object} map[string]string "Unknown letter"
// @Router /letters/{id} [get]
func (h *LetterHandler) Get(w http.ResponseWriter, r *http.Request) {
	letter, err := h.letters.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, letter)
}

// Approve approves a pending letter
// @Summary Approve letter
// @Description The caller must belong to the letter's approval candidate
// @Description set. On an assigned copy, the assignee approves the original
// @Description letter on behalf of the chain.
// @Tags Letters
// @Produce json
// @Security BearerAuth
// @Param id path string true "Letter ID"
// @Success 200 {object} lifecycle.Transition
// @Failure 403 {object} map[string]string "Not a candidate"
// @Failure 409 {object} map[string]string "Wrong state or lost race"
// @Router /letters/{id}/approve [post]
func (h *LetterHandler) Approve(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetUser(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, ErrMsgUnauthorized)
		return
	}

	transition, err := h.letters.Approve(r.Context(), actor, r.PathValue("id"))
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	_ = h.auditMw.LogAction(r, AuditActionApprove, "letters", "Approved letter "+transition.LetterID)
	respondWithJSON(w, http.StatusOK, transition)
}

// RejectRequest carries the mandatory rejection reason.
type RejectRequest struct {
	Reason string `json:"reason" validate:"required"`
}

// Reject rejects a pending letter with a reason
// @Summary Reject letter
// @Tags Letters
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Letter ID"
// @Param request body RejectRequest true "Rejection reason"
// @Success 200 {object} lifecycle.Transition
// @Failure 400 {object} map[string]string "Missing reason"
// @Failure 409 {object} map[string]string "Wrong state or lost race"
// @Router /letters/{id}/reject [post]
func (h *LetterHandler) Reject(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetUser(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, ErrMsgUnauthorized)
		return
	}

	var req RejectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrMsgInvalidRequestBody)
		return
	}

	transition, err := h.letters.Reject(r.Context(), actor, r.PathValue("id"), req.Reason)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	_ = h.auditMw.LogAction(r, AuditActionReject, "letters", "Rejected letter "+transition.LetterID)
	respondWithJSON(w, http.StatusOK, transition)
}

// AssignRequest names the delegate and the mandatory instruction comment.
type AssignRequest struct {
	RecipientID string `json:"recipient_id" validate:"required"`
	Comment     string `json:"comment" validate:"required"`
}

// Assign delegates a letter to a recipient
// @Summary Assign letter
// @Description Moves the source letter to assigned and creates a derived
// @Description copy for the recipient carrying the assigner's provenance.
// @Tags Letters
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Letter ID"
// @Param request body AssignRequest true "Recipient and comment"
// @Success 200 {object} lifecycle.Transition
// @Failure 403 {object} map[string]string "Caller may not assign"
// @Failure 409 {object} map[string]string "Wrong state or lost race"
// @Router /letters/{id}/assign [post]
func (h *LetterHandler) Assign(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetUser(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, ErrMsgUnauthorized)
		return
	}

	var req AssignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrMsgInvalidRequestBody)
		return
	}

	transition, err := h.letters.Assign(r.Context(), actor, r.PathValue("id"), req.RecipientID, req.Comment)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	_ = h.auditMw.LogAction(r, AuditActionAssign, "letters", "Assigned letter "+transition.LetterID)
	respondWithJSON(w, http.StatusOK, transition)
}

// ProgressRequest reports a status step with a mandatory comment.
type ProgressRequest struct {
	Status  string `json:"status" validate:"required"`
	Comment string `json:"comment" validate:"required"`
}

// Progress advances an assigned copy and appends to its progress log
// @Summary Report progress
// @Tags Letters
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Letter ID"
// @Param request body ProgressRequest true "New status and comment"
// @Success 200 {object} lifecycle.Transition
// @Failure 403 {object} map[string]string "Not the assignee"
// @Router /letters/{id}/progress [post]
func (h *LetterHandler) Progress(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetUser(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, ErrMsgUnauthorized)
		return
	}

	var req ProgressRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrMsgInvalidRequestBody)
		return
	}

	transition, err := h.letters.Progress(r.Context(), actor, r.PathValue("id"), models.Status(req.Status), req.Comment)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, transition)
}

// ProgressLog returns the progress history of an assigned copy
// @Summary Progress log
// @Tags Letters
// @Produce json
// @Security BearerAuth
// @Param id path string true "Letter ID"
// @Success 200 {array} models.ProgressEntry
// @Router /letters/{id}/progress [get]
func (h *LetterHandler) ProgressLog(w http.ResponseWriter, r *http.Request) {
	entries, err := h.letters.ProgressLog(r.Context(), r.PathValue("id"))
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, entries)
}

// Archive moves a letter out of the active boxes without touching its status
// @Summary Archive letter
// @Tags Letters
// @Produce json
// @Security BearerAuth
// @Param id path string true "Letter ID"
// @Success 200 {object} lifecycle.Transition
// @Router /letters/{id}/archive [post]
func (h *LetterHandler) Archive(w http.ResponseWriter, r *http.Request) {
	h.setArchived(w, r, true)
}

// Restore brings an archived letter back, resuming its previous status
// @Summary Restore letter
// @Tags Letters
// @Produce json
// @Security BearerAuth
// @Param id path string true "Letter ID"
// @Success 200 {object} lifecycle.Transition
// @Router /letters/{id}/restore [post]
func (h *LetterHandler) Restore(w http.ResponseWriter, r *http.Request) {
	h.setArchived(w, r, false)
}

func (h *LetterHandler) setArchived(w http.ResponseWriter, r *http.Request, archived bool) {
	actor, ok := middleware.GetUser(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, ErrMsgUnauthorized)
		return
	}

	transition, err := h.letters.SetArchived(r.Context(), actor, r.PathValue("id"), archived)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, transition)
}

// StarRequest flips the starred flag.
type StarRequest struct {
	Starred bool `json:"starred"`
}

// Star sets or clears the starred flag
// @Summary Star letter
// @Tags Letters
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Letter ID"
// @Param request body StarRequest true "Starred flag"
// @Success 200 {object} map[string]string "Updated"
// @Router /letters/{id}/star [post]
func (h *LetterHandler) Star(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetUser(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, ErrMsgUnauthorized)
		return
	}

	var req StarRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrMsgInvalidRequestBody)
		return
	}

	if err := h.letters.SetStarred(r.Context(), actor, r.PathValue("id"), req.Starred); err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"message": "Letter updated"})
}

// MarkRead clears the unread flag
// @Summary Mark letter read
// @Tags Letters
// @Produce json
// @Security BearerAuth
// @Param id path string true "Letter ID"
// @Success 200 {object} map[string]string "Updated"
// @Router /letters/{id}/read [post]
func (h *LetterHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetUser(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, ErrMsgUnauthorized)
		return
	}

	if err := h.letters.MarkRead(r.Context(), actor, r.PathValue("id")); err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"message": "Letter marked read"})
}
