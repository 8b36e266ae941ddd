package middleware

import (
	"net/http"
	"regexp"

	"github.com/google/uuid"

	"github.com/neighbridge/neighbridge-backend/api/responses"
	"github.com/neighbridge/neighbridge-backend/pkg/logger"
)

const requestIDHeader = "X-Request-Id"

// Upstream ids are trusted only when they look like an id; anything else is replaced.
var requestIDPattern = regexp.MustCompile(`^[A-Za-z0-9._-]{8,64}$`)

func RequestID(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqID := r.Header.Get(requestIDHeader)
			if !requestIDPattern.MatchString(reqID) {
				reqID = uuid.NewString()
			}
			w.Header().Set(requestIDHeader, reqID)

			ctx := responses.WithRequestID(r.Context(), reqID)
			next.ServeHTTP(w, r.WithContext(logg.WithRequestID(ctx, reqID)))
		})
	}
}
