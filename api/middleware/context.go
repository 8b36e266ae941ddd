package middleware

import (
	"context"

	"github.com/google/uuid"

	"github.com/neighbridge/neighbridge-backend/pkg/auth"
	"github.com/neighbridge/neighbridge-backend/pkg/enums"
)

type identityKey struct{}

// WithIdentity stores the verified caller on ctx.
func WithIdentity(ctx context.Context, id auth.Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFromContext returns the verified caller, if the request was authenticated.
func IdentityFromContext(ctx context.Context) (auth.Identity, bool) {
	if ctx == nil {
		return auth.Identity{}, false
	}
	id, ok := ctx.Value(identityKey{}).(auth.Identity)
	if !ok || id.UserID == uuid.Nil {
		return auth.Identity{}, false
	}
	return id, true
}

// ActorFromContext returns the authenticated user id.
func ActorFromContext(ctx context.Context) (uuid.UUID, bool) {
	id, ok := IdentityFromContext(ctx)
	return id.UserID, ok
}

// UserIDFromContext is the caller id as a string, or "" for anonymous requests.
func UserIDFromContext(ctx context.Context) string {
	if id, ok := IdentityFromContext(ctx); ok {
		return id.UserID.String()
	}
	return ""
}

func RoleFromContext(ctx context.Context) enums.UserRole {
	id, _ := IdentityFromContext(ctx)
	return id.Role
}
