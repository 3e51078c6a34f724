package handlers

import (
	"encoding/json"
	"net/http"

	"letterflow/internal/middleware"
	"letterflow/internal/service"
	"letterflow/pkg/validator"
)

// UserHandler handles user administration requests
type UserHandler struct {
	userService *service.UserService
	auditMw     *middleware.AuditMiddleware
}

// NewUserHandler creates a new user handler
func NewUserHandler(userService *service.UserService, auditMw *middleware.AuditMiddleware) *UserHandler {
	return &UserHandler{userService: userService, auditMw: auditMw}
}

// List returns all users in the directory
// @Summary List users
// @Tags Users
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.User
// @Router /users [get]
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.userService.List(r.Context())
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, users)
}

// Get returns one user by id
// @Summary Get user
// @Tags Users
// @Produce json
// @Security BearerAuth
// @Param id path string true "User ID"
// @Success 200 {object} models.User
// @Failure 404 {object} map[string]string "Unknown user"
// @Router /users/{id} [get]
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, err := h.userService.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, user)
}

// Create creates a new user account
// @Summary Create user
// @Tags Users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body service.CreateUserInput true "User details"
// @Success 201 {object} models.User
// @Failure 400 {object} map[string]string "Invalid role or department"
// @Router /admin/users [post]
func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req service.CreateUserInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrMsgInvalidRequestBody)
		return
	}
	if err := validator.ValidateStruct(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.userService.Create(r.Context(), req)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	_ = h.auditMw.LogAction(r, AuditActionUserCreate, "users", "Created user "+user.Email)
	respondWithJSON(w, http.StatusCreated, user)
}

// Update applies profile changes to a user
// @Summary Update user
// @Tags Users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "User ID"
// @Param request body service.UpdateUserInput true "Changed fields"
// @Success 200 {object} models.User
// @Router /admin/users/{id} [patch]
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req service.UpdateUserInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrMsgInvalidRequestBody)
		return
	}

	user, err := h.userService.Update(r.Context(), r.PathValue("id"), req)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	_ = h.auditMw.LogAction(r, AuditActionUserUpdate, "users", "Updated user "+user.Email)
	respondWithJSON(w, http.StatusOK, user)
}

// UpdateProfile applies the authenticated user's own profile changes
// @Summary Update own profile
// @Tags Users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body service.ProfileInput true "Changed fields"
// @Success 200 {object} models.User
// @Router /users/profile [patch]
func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, ErrMsgUnauthorized)
		return
	}

	var req service.ProfileInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrMsgInvalidRequestBody)
		return
	}

	user, err := h.userService.UpdateProfile(r.Context(), userID, req)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, user)
}

// Deactivate disables a user account
// @Summary Deactivate user
// @Tags Users
// @Produce json
// @Security BearerAuth
// @Param id path string true "User ID"
// @Success 200 {object} map[string]string "Deactivated"
// @Router /admin/users/{id}/deactivate [post]
func (h *UserHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	if err := h.userService.Deactivate(r.Context(), r.PathValue("id")); err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"message": "User deactivated"})
}

// Reactivate re-enables a user account
// @Summary Reactivate user
// @Tags Users
// @Produce json
// @Security BearerAuth
// @Param id path string true "User ID"
// @Success 200 {object} map[string]string "Reactivated"
// @Router /admin/users/{id}/reactivate [post]
func (h *UserHandler) Reactivate(w http.ResponseWriter, r *http.Request) {
	if err := h.userService.Reactivate(r.Context(), r.PathValue("id")); err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"message": "User reactivated"})
}
