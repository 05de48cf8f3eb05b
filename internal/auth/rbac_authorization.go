package auth

import (
	"log/slog"
	"net/http"

	"github.com/frahmantamala/permission-management/internal/transport"
)

// RBACAuthorization turns the role predicates into chi middleware.
type RBACAuthorization struct {
	*transport.BaseHandler
}

func NewRBACAuthorization(logger *slog.Logger) *RBACAuthorization {
	return &RBACAuthorization{BaseHandler: transport.NewBaseHandler(logger)}
}

func (ra *RBACAuthorization) check(next http.Handler, rule string, allow func(p *Principal) error) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, _ := PrincipalFromContext(r.Context())
		if err := allow(p); err != nil {
			attrs := []any{"rule", rule, "path", r.URL.Path}
			if p != nil {
				attrs = append(attrs, "user_id", p.UserID, "role", p.Role)
			}
			ra.Logger.WarnContext(r.Context(), "access denied", attrs...)
			ra.WriteAppError(w, r, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (ra *RBACAuthorization) RequireAuthenticated() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return ra.check(next, "authenticated", RequireAuthenticated)
	}
}

func (ra *RBACAuthorization) RequireRole(role Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return ra.check(next, "role:"+string(role), func(p *Principal) error {
			return RequireRole(p, role)
		})
	}
}

func (ra *RBACAuthorization) RequireAnyRole(roles ...Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return ra.check(next, "any_role", func(p *Principal) error {
			return RequireAnyRole(p, roles...)
		})
	}
}

// RequireElevated admits teachers and directors.
func (ra *RBACAuthorization) RequireElevated() func(http.Handler) http.Handler {
	return ra.RequireAnyRole(ElevatedRoles...)
}
