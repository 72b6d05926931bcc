package middleware

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/edutok-api/internal/domain"
)

// Role groups gated by the router.
var (
	NotificationProducers = []string{domain.RoleAdmin, domain.RoleTeacher, domain.RoleService}
	Operators             = []string{domain.RoleAdmin}
)

// RequireRole lets a request through only when the caller's role claim is in
// roles. It must run after Auth; without claims the caller is unauthorized.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	allowed := make(map[string]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := ClaimsFromContext(r.Context())
			if !ok {
				writeJSONError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			if _, ok := allowed[claims.Role]; !ok {
				slog.Debug("role denied", "user_id", claims.UserID, "role", claims.Role, "path", r.URL.Path)
				writeJSONError(w, http.StatusForbidden, fmt.Sprintf("role %q may not access this resource", claims.Role))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
