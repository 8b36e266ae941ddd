package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/neighbridge/neighbridge-backend/pkg/enums"
)

// Claims is the identity the upstream identity provider signs into every access token.
type Claims struct {
	UserID uuid.UUID      `json:"user_id"`
	Role   enums.UserRole `json:"role"`
	jwt.RegisteredClaims
}

// Identity is what request handlers need from a verified token.
type Identity struct {
	UserID  uuid.UUID
	Role    enums.UserRole
	TokenID string
}

func (c *Claims) Identity() Identity {
	return Identity{UserID: c.UserID, Role: c.Role, TokenID: c.ID}
}

// IsPlatformAdmin reports whether the token grants platform administration.
func (c *Claims) IsPlatformAdmin() bool {
	return c != nil && c.Role.AtLeast(enums.UserRoleAdmin)
}
