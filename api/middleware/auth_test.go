package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neighbridge/neighbridge-backend/pkg/auth"
	"github.com/neighbridge/neighbridge-backend/pkg/config"
	"github.com/neighbridge/neighbridge-backend/pkg/enums"
	"github.com/neighbridge/neighbridge-backend/pkg/types"
)

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{Secret: "secret", Issuer: "issuer", ExpirationMinutes: 60}
}

func serveAuth(t *testing.T, header string, inner http.HandlerFunc) *httptest.ResponseRecorder {
	t.Helper()
	if inner == nil {
		inner = func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) }
	}
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	resp := httptest.NewRecorder()
	Auth(testJWTConfig(), nil)(inner).ServeHTTP(resp, req)
	return resp
}

func errorMessage(t *testing.T, resp *httptest.ResponseRecorder) string {
	t.Helper()
	var env types.ErrorEnvelope
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &env))
	return env.Error.Message
}

func TestAuthRejections(t *testing.T) {
	expired, err := auth.Sign(testJWTConfig(), time.Now().Add(-2*time.Hour), auth.Grant{UserID: uuid.New()})
	require.NoError(t, err)

	cases := map[string]struct {
		header  string
		message string
	}{
		"missing":   {header: "", message: "missing credentials"},
		"no token":  {header: "Bearer   ", message: "missing credentials"},
		"malformed": {header: "Bearer invalid", message: "invalid token"},
		"expired":   {header: "Bearer " + expired, message: "token expired"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			resp := serveAuth(t, tc.header, func(http.ResponseWriter, *http.Request) {
				t.Fatal("handler must not run")
			})
			assert.Equal(t, http.StatusUnauthorized, resp.Code)
			assert.Equal(t, tc.message, errorMessage(t, resp))
		})
	}
}

func TestAuthAllowsValidToken(t *testing.T) {
	userID := uuid.New()
	tok := mintTestToken(t, testJWTConfig(), userID, enums.UserRoleModerator)

	var got auth.Identity
	var actor uuid.UUID
	resp := serveAuth(t, "Bearer "+tok, func(w http.ResponseWriter, r *http.Request) {
		got, _ = IdentityFromContext(r.Context())
		actor, _ = ActorFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, userID, got.UserID)
	assert.Equal(t, userID, actor)
	assert.Equal(t, enums.UserRoleModerator, got.Role)
	assert.NotEmpty(t, got.TokenID)
}

func TestAnonymousContext(t *testing.T) {
	ctx := httptest.NewRequest(http.MethodGet, "/", nil).Context()
	_, ok := ActorFromContext(ctx)
	assert.False(t, ok)
	assert.Empty(t, UserIDFromContext(ctx))
	assert.Equal(t, enums.UserRole(""), RoleFromContext(ctx))

	_, ok = ActorFromContext(WithIdentity(ctx, auth.Identity{Role: enums.UserRoleAdmin}))
	assert.False(t, ok, "an identity without a user id is anonymous")
}

func TestRequireRole(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })

	cases := []struct {
		guard func(http.Handler) http.Handler
		role  enums.UserRole
		want  int
	}{
		{RequirePlatformAdmin(nil), enums.UserRoleAdmin, http.StatusNoContent},
		{RequirePlatformAdmin(nil), enums.UserRoleModerator, http.StatusForbidden},
		{RequirePlatformAdmin(nil), enums.UserRoleUser, http.StatusForbidden},
		{RequirePlatformAdmin(nil), "", http.StatusForbidden},
		{RequireRole(nil, enums.UserRoleModerator), enums.UserRoleAdmin, http.StatusNoContent},
		{RequireRole(nil, enums.UserRoleModerator), enums.UserRoleModerator, http.StatusNoContent},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req = req.WithContext(WithIdentity(req.Context(), auth.Identity{UserID: uuid.New(), Role: tc.role}))
		resp := httptest.NewRecorder()
		tc.guard(ok).ServeHTTP(resp, req)
		assert.Equal(t, tc.want, resp.Code, "role %q", tc.role)
	}
}

func mintTestToken(t *testing.T, cfg config.JWTConfig, userID uuid.UUID, role enums.UserRole) string {
	t.Helper()
	tok, err := auth.Sign(cfg, time.Now(), auth.Grant{UserID: userID, Role: role})
	require.NoError(t, err)
	return tok
}
