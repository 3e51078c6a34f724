package handlers

import (
	"encoding/json"
	"net/http"

	"letterflow/internal/directory"
	"letterflow/internal/middleware"
	"letterflow/internal/routing"
)

// RoutingHandler answers "who can this letter go to" questions at compose
// time. The sets it returns are recomputed from the live directory on every
// call; the lifecycle guards recompute them again at action time.
type RoutingHandler struct {
	dir *directory.Directory
}

// NewRoutingHandler creates a new routing handler
func NewRoutingHandler(dir *directory.Directory) *RoutingHandler {
	return &RoutingHandler{dir: dir}
}

// Approvers returns the approval candidates for the caller's position
// @Summary Approval candidates
// @Tags Routing
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.User
// @Router /routing/approvers [get]
func (h *RoutingHandler) Approvers(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetUser(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, ErrMsgUnauthorized)
		return
	}

	users, err := h.dir.Snapshot(r.Context())
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	candidates := routing.ApprovalCandidates(routing.PositionOf(actor), users)
	respondWithJSON(w, http.StatusOK, candidates)
}

// Assignees returns the delegation candidates for the caller's position
// @Summary Delegation candidates
// @Tags Routing
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.User
// @Router /routing/assignees [get]
func (h *RoutingHandler) Assignees(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetUser(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, ErrMsgUnauthorized)
		return
	}

	users, err := h.dir.Snapshot(r.Context())
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	candidates := routing.DelegationCandidates(routing.PositionOf(actor), users)
	respondWithJSON(w, http.StatusOK, candidates)
}

// ExpandCCRequest maps selected tree node labels to their depth.
type ExpandCCRequest struct {
	Nodes map[string]int `json:"nodes"`
}

// ExpandCC resolves selected tree nodes to the employee names they cover
// @Summary Expand CC selection
// @Description Resolve checked department nodes into the names of the
// @Description employees who will be carbon-copied. The whole selection is
// @Description recomputed on every call, so unchecking a node never leaves
// @Description stale names behind.
// @Tags Routing
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body ExpandCCRequest true "Selected nodes with depths"
// @Success 200 {object} map[string][]string
// @Router /routing/cc/expand [post]
func (h *RoutingHandler) ExpandCC(w http.ResponseWriter, r *http.Request) {
	var req ExpandCCRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrMsgInvalidRequestBody)
		return
	}

	users, err := h.dir.Snapshot(r.Context())
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, routing.ExpandCC(req.Nodes, users))
}
