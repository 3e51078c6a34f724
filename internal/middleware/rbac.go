package middleware

import (
	"net/http"

	"letterflow/internal/models"
)

// RBACMiddleware handles role-based access control. Roles live directly on
// the user record loaded by AuthMiddleware, so no extra queries are needed.
type RBACMiddleware struct{}

// NewRBACMiddleware creates a new RBAC middleware
func NewRBACMiddleware() *RBACMiddleware {
	return &RBACMiddleware{}
}

// RequireRole checks if the user has one of the required roles
func (m *RBACMiddleware) RequireRole(roles ...models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := GetUser(r)
			if !ok {
				respondWithError(w, http.StatusUnauthorized, "User not authenticated")
				return
			}

			for _, role := range roles {
				if user.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}

			respondWithError(w, http.StatusForbidden, "Insufficient permissions")
		})
	}
}

// RequireAdmin checks that the user holds the admin role
func (m *RBACMiddleware) RequireAdmin(next http.Handler) http.Handler {
	return m.RequireRole(models.RoleAdmin)(next)
}

// RequireTopLevel checks that the user holds one of the apex roles
func (m *RBACMiddleware) RequireTopLevel(next http.Handler) http.Handler {
	return m.RequireRole(models.TopLevelRoles...)(next)
}
