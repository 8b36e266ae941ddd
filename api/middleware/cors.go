package middleware

import (
	"net/http"
	"slices"

	"github.com/go-chi/cors"

	"github.com/neighbridge/neighbridge-backend/pkg/config"
)

var devOrigins = []string{"http://localhost:3000", "http://localhost:5173"}

// Headers browser clients need to read retry and replay state.
var exposedHeaders = []string{requestIDHeader, "Retry-After", "X-RateLimit-Limit", "X-RateLimit-Remaining", replayedHeader}

// CORS applies the configured origin allow-list. Dev falls back to local
// frontends; other environments with no list allow no cross-origin callers.
// A "*" entry disables credentials, which browsers refuse to combine with it.
func CORS(app config.AppConfig) func(http.Handler) http.Handler {
	origins := app.CORSOrigins
	if len(origins) == 0 && app.IsDev() {
		origins = devOrigins
	}
	opts := cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", idempotencyHeader, requestIDHeader},
		ExposedHeaders:   exposedHeaders,
		AllowCredentials: !slices.Contains(origins, "*"),
		MaxAge:           600,
	}
	if len(origins) == 0 {
		// An empty list means "allow all" to the cors package.
		opts.AllowOriginFunc = func(*http.Request, string) bool { return false }
	}
	return cors.New(opts).Handler
}
