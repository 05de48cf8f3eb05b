package auth

import (
	"net/http"
)

// RequireOwnerOrElevated admits the user whose id is in the URL parameter
// param, or any elevated role. Used for /usuarios/{id} routes where the
// resource owner is the path itself.
func (ra *RBACAuthorization) RequireOwnerOrElevated(param string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ownerID, err := ra.IDParam(r, param)
			if err != nil {
				ra.WriteAppError(w, r, err)
				return
			}
			ra.check(next, "owner_or_elevated", func(p *Principal) error {
				return RequireOwnershipOrElevated(p, ownerID, ElevatedRoles...)
			}).ServeHTTP(w, r)
		})
	}
}
