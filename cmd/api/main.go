package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/neighbridge/neighbridge-backend/api/routes"
	"github.com/neighbridge/neighbridge-backend/internal/communities"
	"github.com/neighbridge/neighbridge-backend/internal/events"
	"github.com/neighbridge/neighbridge-backend/internal/locations"
	"github.com/neighbridge/neighbridge-backend/internal/memberships"
	"github.com/neighbridge/neighbridge-backend/pkg/config"
	"github.com/neighbridge/neighbridge-backend/pkg/db"
	"github.com/neighbridge/neighbridge-backend/pkg/geo"
	"github.com/neighbridge/neighbridge-backend/pkg/logger"
	"github.com/neighbridge/neighbridge-backend/pkg/maps"
	"github.com/neighbridge/neighbridge-backend/pkg/metrics"
	"github.com/neighbridge/neighbridge-backend/pkg/migrate"
	"github.com/neighbridge/neighbridge-backend/pkg/pubsub"
	"github.com/neighbridge/neighbridge-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	communityMetrics := metrics.NewCommunityMetrics(registry)
	httpMetrics := metrics.NewHTTPMetrics(registry)

	publisher := events.NewPublisher(nil, logg)
	if cfg.PubSub.Enabled {
		pubsubClient, err := pubsub.NewClient(context.Background(), cfg.GCP, cfg.PubSub, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to bootstrap pubsub", err)
			os.Exit(1)
		}
		defer func() {
			if err := pubsubClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing pubsub", err)
			}
		}()
		publisher = events.NewPublisher(pubsubClient.CommunityPublisher(), logg)
	}

	communityParams := communities.ServiceParams{
		Events:               publisher,
		Metrics:              communityMetrics,
		Logger:               logg,
		Tx:                   dbClient,
		JoinApprovalRequired: cfg.Geo.JoinApprovalRequired,
		JoinRequiresLocation: cfg.Geo.JoinRequiresLocation,
		NearbyMaxDistance:    cfg.Geo.NearbyMaxDistance,
		NearbyLimit:          cfg.Geo.NearbyLimit,
	}

	if cfg.Geocoder.Enabled {
		geocoder, err := maps.NewClient(cfg.Geocoder.UserAgent,
			maps.WithBaseURL(cfg.Geocoder.BaseURL),
			maps.WithMinInterval(cfg.Geocoder.MinInterval),
			maps.WithHTTPClient(&http.Client{Timeout: cfg.Geocoder.Timeout}),
			maps.WithCache(maps.NewRedisCache(redisClient, cfg.Geocoder.CacheTTL)),
		)
		if err != nil {
			logg.Error(context.Background(), "failed to create geocoder", err)
			os.Exit(1)
		}
		communityParams.Geocoder = geocoder
	}

	locationService, err := locations.NewService(locations.ServiceParams{
		Repo:       locations.NewRepository(dbClient.DB()),
		Fallback:   geo.Coordinate{Latitude: cfg.Geo.FallbackLatitude, Longitude: cfg.Geo.FallbackLongitude},
		UsePostGIS: cfg.Geo.UsePostGIS(),
		Logger:     logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create location service", err)
		os.Exit(1)
	}

	communityRegistry, err := communities.NewRegistry(communities.RegistryParams{
		Repo:                 communities.NewRepository(dbClient.DB()),
		UsePostGIS:           cfg.Geo.UsePostGIS(),
		DiscoveryFallbackAll: cfg.Geo.DiscoveryFallbackAll,
		Metrics:              communityMetrics,
		Logger:               logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create community registry", err)
		os.Exit(1)
	}

	ledger, err := memberships.NewLedger(memberships.LedgerParams{
		Repo:    memberships.NewRepository(dbClient.DB()),
		Tx:      dbClient,
		Counter: communityRegistry,
		Logger:  logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create membership ledger", err)
		os.Exit(1)
	}

	communityParams.Registry = communityRegistry
	communityParams.Ledger = ledger
	communityParams.Locations = locationService
	communityService, err := communities.NewService(communityParams)
	if err != nil {
		logg.Error(context.Background(), "failed to create community service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	id := os.Getenv("DYNO")
	if id == "" {
		id = "local"
	}
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":       cfg.App.Env,
		"addr":      addr,
		"instance":  id,
		"proximity": cfg.Geo.ProximityStrategy,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			registry,
			httpMetrics,
			communityService,
			locationService,
		),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
