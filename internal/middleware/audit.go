package middleware

import (
	"net/http"

	"letterflow/internal/models"
	"letterflow/internal/repository"
)

// AuditMiddleware records security-relevant actions in the audit log.
type AuditMiddleware struct {
	auditRepo *repository.AuditRepository
}

// NewAuditMiddleware creates a new audit middleware
func NewAuditMiddleware(auditRepo *repository.AuditRepository) *AuditMiddleware {
	return &AuditMiddleware{auditRepo: auditRepo}
}

// Log records an audit entry after the wrapped handler runs. Write failures
// are ignored so auditing never blocks a request.
func (m *AuditMiddleware) Log(action, resource string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r)

			entry := &models.AuditLog{
				Action:    action,
				Resource:  resource,
				IPAddress: getIP(r),
				UserAgent: r.UserAgent(),
			}
			if id, ok := GetUserID(r); ok {
				entry.UserID = &id
			}
			if email, ok := GetUserEmail(r); ok {
				entry.UserEmail = &email
			}

			_ = m.auditRepo.Create(r.Context(), entry)
		})
	}
}

// LogAction records a one-off audit entry outside the middleware chain.
func (m *AuditMiddleware) LogAction(r *http.Request, action, resource, details string) error {
	entry := &models.AuditLog{
		Action:    action,
		Resource:  resource,
		Details:   details,
		IPAddress: getIP(r),
		UserAgent: r.UserAgent(),
	}
	if id, ok := GetUserID(r); ok {
		entry.UserID = &id
	}
	if email, ok := GetUserEmail(r); ok {
		entry.UserEmail = &email
	}

	return m.auditRepo.Create(r.Context(), entry)
}
