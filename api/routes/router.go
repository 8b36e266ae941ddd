package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/neighbridge/neighbridge-backend/api/controllers"
	communitycontrollers "github.com/neighbridge/neighbridge-backend/api/controllers/communities"
	locationcontrollers "github.com/neighbridge/neighbridge-backend/api/controllers/locations"
	"github.com/neighbridge/neighbridge-backend/api/middleware"
	"github.com/neighbridge/neighbridge-backend/internal/communities"
	"github.com/neighbridge/neighbridge-backend/internal/locations"
	"github.com/neighbridge/neighbridge-backend/pkg/config"
	"github.com/neighbridge/neighbridge-backend/pkg/db"
	"github.com/neighbridge/neighbridge-backend/pkg/logger"
	"github.com/neighbridge/neighbridge-backend/pkg/metrics"
)

// Store is the redis surface the HTTP layer needs for rate limiting and idempotency.
type Store interface {
	Ping(ctx context.Context) error
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
	IdempotencyKey(scope, key string) string
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	store Store,
	gatherer prometheus.Gatherer,
	httpMetrics *metrics.HTTPMetrics,
	communityService communities.Service,
	locationService locations.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Metrics(httpMetrics),
		middleware.CORS(cfg.App),
	)

	communityPolicy := middleware.NewRateLimitPolicy(
		"community",
		cfg.RateLimit.CommunityWindow,
		cfg.RateLimit.CommunityLimit,
	)

	deps := map[string]controllers.Pinger{}
	if dbP != nil {
		deps["db"] = dbP
	}
	if store != nil {
		deps["redis"] = store
	}
	limiter := middleware.RateLimit(communityPolicy, store, logg)
	idempotent := middleware.Idempotency(store, logg)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps))
	})
	r.Method(http.MethodGet, "/metrics", metrics.Handler(gatherer))

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.Route("/communities", func(r chi.Router) {
			r.Use(limiter)

			r.With(idempotent).Post("/", communitycontrollers.Create(communityService, logg))
			r.Get("/", communitycontrollers.List(communityService, logg))
			r.Get("/nearby", communitycontrollers.Nearby(communityService, logg))
			r.Get("/mine", communitycontrollers.Mine(communityService, logg))

			r.Route("/{communityId}", func(r chi.Router) {
				r.Get("/", communitycontrollers.Detail(communityService, logg))
				r.Get("/role", communitycontrollers.Role(communityService, logg))
				r.With(idempotent).Post("/join", communitycontrollers.Join(communityService, logg))
				r.Delete("/leave", communitycontrollers.Leave(communityService, logg))
				r.Get("/requests", communitycontrollers.PendingRequests(communityService, logg))
				r.Post("/requests/{membershipId}", communitycontrollers.DecideRequest(communityService, logg))
				r.Post("/members/{membershipId}/promote", communitycontrollers.Promote(communityService, logg))
			})
		})

		r.Route("/users", func(r chi.Router) {
			r.Get("/me/location", locationcontrollers.Get(locationService, logg))
			r.Put("/me/location", locationcontrollers.Update(locationService, logg))
			r.Get("/nearby", locationcontrollers.Nearby(locationService, logg))
		})

		r.Route("/admin/communities/{communityId}", func(r chi.Router) {
			r.Use(middleware.RequirePlatformAdmin(logg))
			r.Post("/suspend", communitycontrollers.AdminSuspend(communityService, logg))
			r.Post("/activate", communitycontrollers.AdminActivate(communityService, logg))
		})
	})

	return r
}
