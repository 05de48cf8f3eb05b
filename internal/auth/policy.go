package auth

import (
	"github.com/frahmantamala/permission-management/internal"
)

// The checks below are pure predicates over the principal and a resource
// descriptor. Every protected route composes exactly one of them.

func RequireAuthenticated(p *Principal) error {
	if p == nil || p.UserID <= 0 || !p.Role.Valid() {
		return internal.NewUnauthorizedError("Authentication required", internal.ErrCodeTokenMissing)
	}
	return nil
}

func RequireRole(p *Principal, role Role) error {
	if err := RequireAuthenticated(p); err != nil {
		return err
	}
	if p.Role != role {
		return internal.ErrInsufficientRole
	}
	return nil
}

func RequireAnyRole(p *Principal, roles ...Role) error {
	if err := RequireAuthenticated(p); err != nil {
		return err
	}
	if !hasRole(p.Role, roles) {
		return internal.ErrInsufficientRole
	}
	return nil
}

// RequireOwnershipOrElevated allows the resource owner or any of the elevated roles.
func RequireOwnershipOrElevated(p *Principal, ownerID int64, elevated ...Role) error {
	if err := RequireAuthenticated(p); err != nil {
		return err
	}
	if p.UserID == ownerID || hasRole(p.Role, elevated) {
		return nil
	}
	return internal.ErrNotOwner
}

func hasRole(role Role, roles []Role) bool {
	for _, r := range roles {
		if role == r {
			return true
		}
	}
	return false
}
