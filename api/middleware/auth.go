package middleware

import (
	"errors"
	"net/http"

	"github.com/neighbridge/neighbridge-backend/api/responses"
	"github.com/neighbridge/neighbridge-backend/pkg/auth"
	"github.com/neighbridge/neighbridge-backend/pkg/config"
	pkgerrors "github.com/neighbridge/neighbridge-backend/pkg/errors"
	"github.com/neighbridge/neighbridge-backend/pkg/logger"
)

// Auth verifies the bearer token and puts the caller's identity on the request context.
func Auth(cfg config.JWTConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	verifier := auth.NewVerifier(cfg)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			raw, err := auth.BearerToken(r.Header.Get("Authorization"))
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			claims, err := verifier.Verify(raw)
			if err != nil {
				msg := "invalid token"
				if errors.Is(err, auth.ErrTokenExpired) {
					msg = "token expired"
				}
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, msg))
				return
			}

			identity := claims.Identity()
			ctx = WithIdentity(ctx, identity)
			ctx = logg.WithActorRole(logg.WithUserID(ctx, identity.UserID.String()), string(identity.Role))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
