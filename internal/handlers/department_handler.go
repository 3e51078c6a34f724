package handlers

import (
	"net/http"

	"letterflow/internal/department"
)

// DepartmentHandler serves the organizational tree.
type DepartmentHandler struct {
	tree *department.Tree
}

// NewDepartmentHandler creates a new department handler
func NewDepartmentHandler(tree *department.Tree) *DepartmentHandler {
	return &DepartmentHandler{tree: tree}
}

// Tree returns the full organizational hierarchy
// @Summary Organizational tree
// @Tags Departments
// @Produce json
// @Security BearerAuth
// @Success 200 {array} department.Node
// @Router /departments [get]
func (h *DepartmentHandler) Tree(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, h.tree.Roots())
}

// Children returns the child labels under a path. An empty path yields the
// top-level departments.
// @Summary Department children
// @Tags Departments
// @Produce json
// @Security BearerAuth
// @Param path query string false "Parent path, '>'-delimited"
// @Success 200 {array} string
// @Failure 404 {object} map[string]string "Unknown path"
// @Router /departments/children [get]
func (h *DepartmentHandler) Children(w http.ResponseWriter, r *http.Request) {
	path := department.ParsePath(r.URL.Query().Get("path"))

	children := h.tree.Children(path)
	if children == nil && path.Depth() > 0 {
		respondWithError(w, http.StatusNotFound, "Unknown department path")
		return
	}

	respondWithJSON(w, http.StatusOK, children)
}

// Validate reports whether a path names a real department
// @Summary Validate department path
// @Tags Departments
// @Produce json
// @Security BearerAuth
// @Param path query string true "Path to check, '>'-delimited"
// @Success 200 {object} map[string]interface{} "Validity and depth"
// @Router /departments/validate [get]
func (h *DepartmentHandler) Validate(w http.ResponseWriter, r *http.Request) {
	path := department.ParsePath(r.URL.Query().Get("path"))

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"path":  path.String(),
		"valid": h.tree.IsValid(path),
		"depth": path.Depth(),
	})
}
