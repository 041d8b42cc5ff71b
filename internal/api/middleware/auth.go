package middleware

import (
	"context"
	"errors"
	"net/http"

	"courses_sheet_api/internal/common"
	"courses_sheet_api/internal/common/security"
	"courses_sheet_api/internal/domain/model"

	"github.com/go-chi/jwtauth/v5"
)

type contextKey string

const principalCtxKey contextKey = "principal"

// Authenticator requires a valid bearer token and attaches the verified
// Principal to the request context. Missing and invalid credentials both
// reject with 401, with distinct messages.
func Authenticator(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, claims, err := jwtauth.FromContext(r.Context())

		if err != nil {
			// jwtauth also nils the token on failed verification, so the
			// error kind is the only way to tell "absent" from "invalid".
			if errors.Is(err, jwtauth.ErrNoTokenFound) {
				common.RespondWithError(w, http.StatusUnauthorized, "Authorization token required")
			} else {
				common.RespondWithError(w, http.StatusUnauthorized, "Invalid token: "+err.Error())
			}
			return
		}
		if token == nil {
			common.RespondWithError(w, http.StatusUnauthorized, "Invalid token")
			return
		}

		userID, err := security.GetUserIDFromClaims(claims)
		if err != nil {
			common.RespondWithError(w, http.StatusUnauthorized, "Invalid token claims: "+err.Error())
			return
		}
		role, err := security.GetUserRoleFromClaims(claims)
		if err != nil {
			common.RespondWithError(w, http.StatusUnauthorized, "Invalid token claims: "+err.Error())
			return
		}

		principal := model.Principal{ID: userID, Role: role}
		ctx := context.WithValue(r.Context(), principalCtxKey, principal)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// AdminOnly layers a role gate over Authenticator. Insufficient role is 403,
// distinct from the credential failures above.
func AdminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal, ok := PrincipalFromContext(r.Context())
		if !ok || !principal.IsAdmin() {
			common.RespondWithError(w, http.StatusForbidden, "Admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func PrincipalFromContext(ctx context.Context) (model.Principal, bool) {
	principal, ok := ctx.Value(principalCtxKey).(model.Principal)
	return principal, ok
}

// OptionalPrincipal returns the principal for a valid bearer token on an
// otherwise-public route, or nil when the token is missing or invalid.
func OptionalPrincipal(ctx context.Context) *model.Principal {
	token, claims, err := jwtauth.FromContext(ctx)
	if err != nil || token == nil {
		return nil
	}
	userID, err := security.GetUserIDFromClaims(claims)
	if err != nil {
		return nil
	}
	role, err := security.GetUserRoleFromClaims(claims)
	if err != nil {
		return nil
	}
	return &model.Principal{ID: userID, Role: role}
}
