package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/AnshRaj112/plant-journal-backend/internal/apperrors"
	"github.com/AnshRaj112/plant-journal-backend/internal/auth"
	"github.com/AnshRaj112/plant-journal-backend/internal/logging"
)

// TokenVerifier resolves a bearer token to the admin identity.
type TokenVerifier interface {
	Verify(token string) (string, error)
}

type adminKey struct{}

// RequireAdmin rejects requests without a valid admin bearer token before
// the handler reads the body.
func RequireAdmin(v TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			adminID, err := v.Verify(auth.BearerToken(r.Header.Get("Authorization")))
			if err != nil {
				kind := apperrors.AuthInvalid
				var aerr *apperrors.AuthError
				if errors.As(err, &aerr) {
					kind = aerr.Kind
				}
				logging.Ctx(r.Context()).Debug().Err(err).Str("path", r.URL.Path).Msg("admin token rejected")
				writeJSONMessage(w, http.StatusUnauthorized, apperrors.AuthMessage(kind))
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), adminKey{}, adminID)))
		})
	}
}

// AdminID returns the authenticated admin identity, if any.
func AdminID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(adminKey{}).(string)
	return id, ok
}
