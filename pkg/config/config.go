package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"go.uber.org/multierr"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	RateLimit    RateLimitConfig
	FeatureFlags FeatureFlagsConfig
	Geo          GeoConfig
	Geocoder     GeocoderConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Cron         CronConfig
}

// Load reads the environment and reports every invalid setting at once.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	err := multierr.Combine(
		c.DB.ensureDSN(),
		c.Geo.validate(),
		c.RateLimit.validate(),
		c.Cron.validate(),
	)
	if c.PubSub.Enabled && strings.TrimSpace(c.GCP.ProjectID) == "" {
		err = multierr.Append(err, fmt.Errorf("%s is required when %s is true", EnvGCPProjectID, EnvPubSubEnabled))
	}
	if c.JWT.Leeway < 0 {
		err = multierr.Append(err, errors.New("jwt leeway must not be negative"))
	}
	return err
}

type AppConfig struct {
	Env          string   `envconfig:"NEIGHBRIDGE_APP_ENV" required:"true"`
	Port         string   `envconfig:"NEIGHBRIDGE_APP_PORT" required:"true"`
	LogLevel     string   `envconfig:"NEIGHBRIDGE_LOG_LEVEL" default:"info"`
	LogWarnStack bool     `envconfig:"NEIGHBRIDGE_LOG_WARN_STACK" default:"false"`
	CORSOrigins  []string `envconfig:"NEIGHBRIDGE_CORS_ORIGINS"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"NEIGHBRIDGE_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"NEIGHBRIDGE_DB_DSN"`
	Driver string `envconfig:"NEIGHBRIDGE_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"NEIGHBRIDGE_DB_HOST"`
	LegacyPort     int    `envconfig:"NEIGHBRIDGE_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"NEIGHBRIDGE_DB_USER"`
	LegacyPassword string `envconfig:"NEIGHBRIDGE_DB_PASSWORD"`
	LegacyName     string `envconfig:"NEIGHBRIDGE_DB_NAME"`
	LegacySSLMode  string `envconfig:"NEIGHBRIDGE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"NEIGHBRIDGE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"NEIGHBRIDGE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"NEIGHBRIDGE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"NEIGHBRIDGE_DB_CONN_MAX_IDLE_TIME" default:"10m"`

	SlowQueryThreshold time.Duration `envconfig:"NEIGHBRIDGE_DB_SLOW_QUERY_THRESHOLD" default:"500ms"`
	TxMaxAttempts      int           `envconfig:"NEIGHBRIDGE_DB_TX_MAX_ATTEMPTS" default:"3"`
}

type RedisConfig struct {
	URL          string        `envconfig:"NEIGHBRIDGE_REDIS_URL" required:"true"`
	Address      string        `envconfig:"NEIGHBRIDGE_REDIS_ADDR"`
	Password     string        `envconfig:"NEIGHBRIDGE_REDIS_PASSWORD"`
	DB           int           `envconfig:"NEIGHBRIDGE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"NEIGHBRIDGE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"NEIGHBRIDGE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"NEIGHBRIDGE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"NEIGHBRIDGE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"NEIGHBRIDGE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string        `envconfig:"NEIGHBRIDGE_JWT_SECRET" required:"true"`
	Issuer            string        `envconfig:"NEIGHBRIDGE_JWT_ISSUER" required:"true"`
	ExpirationMinutes int           `envconfig:"NEIGHBRIDGE_JWT_EXPIRATION_MINUTES" default:"60"`
	Audience          string        `envconfig:"NEIGHBRIDGE_JWT_AUDIENCE"`
	Leeway            time.Duration `envconfig:"NEIGHBRIDGE_JWT_LEEWAY" default:"30s"`
}

// RateLimitConfig bounds how often one user may hit the mutating community routes.
type RateLimitConfig struct {
	CommunityWindow time.Duration `envconfig:"NEIGHBRIDGE_RATE_LIMIT_COMMUNITY_WINDOW" default:"1m"`
	CommunityLimit  int64         `envconfig:"NEIGHBRIDGE_RATE_LIMIT_COMMUNITY_LIMIT" default:"20"`
}

func (r RateLimitConfig) validate() error {
	if r.CommunityLimit <= 0 || r.CommunityWindow <= 0 {
		return errors.New("rate limit window and limit must be positive")
	}
	return nil
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"NEIGHBRIDGE_AUTO_MIGRATE" default:"false"`
}

const maxNearbyLimit = 200

// GeoConfig holds proximity and membership policy knobs.
type GeoConfig struct {
	FallbackLatitude     float64 `envconfig:"NEIGHBRIDGE_GEO_FALLBACK_LAT" default:"40.7128"`
	FallbackLongitude    float64 `envconfig:"NEIGHBRIDGE_GEO_FALLBACK_LNG" default:"-74.0060"`
	ProximityStrategy    string  `envconfig:"NEIGHBRIDGE_GEO_PROXIMITY_STRATEGY" default:"bbox"`
	DiscoveryFallbackAll bool    `envconfig:"NEIGHBRIDGE_GEO_DISCOVERY_FALLBACK_ALL" default:"false"`
	NearbyMaxDistance    float64 `envconfig:"NEIGHBRIDGE_GEO_NEARBY_MAX_DISTANCE_METERS" default:"10000"`
	NearbyLimit          int     `envconfig:"NEIGHBRIDGE_GEO_NEARBY_LIMIT" default:"50"`
	JoinApprovalRequired bool    `envconfig:"NEIGHBRIDGE_GEO_JOIN_APPROVAL_REQUIRED" default:"true"`
	JoinRequiresLocation bool    `envconfig:"NEIGHBRIDGE_GEO_JOIN_REQUIRES_LOCATION" default:"false"`
}

func (g GeoConfig) validate() error {
	var err error
	switch strings.ToLower(strings.TrimSpace(g.ProximityStrategy)) {
	case ProximityStrategyBBox, ProximityStrategyPostGIS:
	default:
		err = multierr.Append(err, fmt.Errorf("%s must be one of %q or %q", EnvGeoProximityStrategy, ProximityStrategyBBox, ProximityStrategyPostGIS))
	}
	if g.FallbackLatitude < -90 || g.FallbackLatitude > 90 || g.FallbackLongitude < -180 || g.FallbackLongitude > 180 {
		err = multierr.Append(err, fmt.Errorf("fallback location (%v, %v) is out of range", g.FallbackLatitude, g.FallbackLongitude))
	}
	if g.NearbyMaxDistance <= 0 {
		err = multierr.Append(err, errors.New("nearby max distance must be positive"))
	}
	if g.NearbyLimit < 1 || g.NearbyLimit > maxNearbyLimit {
		err = multierr.Append(err, fmt.Errorf("nearby limit must be between 1 and %d", maxNearbyLimit))
	}
	return err
}

// UsePostGIS reports whether proximity queries run on the geography column.
func (g GeoConfig) UsePostGIS() bool {
	return strings.EqualFold(strings.TrimSpace(g.ProximityStrategy), ProximityStrategyPostGIS)
}

type GeocoderConfig struct {
	Enabled     bool          `envconfig:"NEIGHBRIDGE_GEOCODER_ENABLED" default:"true"`
	BaseURL     string        `envconfig:"NEIGHBRIDGE_GEOCODER_BASE_URL" default:"https://nominatim.openstreetmap.org"`
	UserAgent   string        `envconfig:"NEIGHBRIDGE_GEOCODER_USER_AGENT" default:"NeighBridge-App/1.0"`
	MinInterval time.Duration `envconfig:"NEIGHBRIDGE_GEOCODER_MIN_INTERVAL" default:"1s"`
	Timeout     time.Duration `envconfig:"NEIGHBRIDGE_GEOCODER_TIMEOUT" default:"5s"`
	CacheTTL    time.Duration `envconfig:"NEIGHBRIDGE_GEOCODER_CACHE_TTL" default:"24h"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"NEIGHBRIDGE_GCP_PROJECT_ID"`
	ApplicationCredentials string `envconfig:"NEIGHBRIDGE_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	Enabled        bool   `envconfig:"NEIGHBRIDGE_PUBSUB_ENABLED" default:"false"`
	CommunityTopic string `envconfig:"NEIGHBRIDGE_PUBSUB_COMMUNITY_TOPIC" default:"nb-community-events"`
	// OrderedDelivery keys messages by community so consumers see one
	// community's events in commit order.
	OrderedDelivery bool `envconfig:"NEIGHBRIDGE_PUBSUB_ORDERED_DELIVERY" default:"true"`

	BatchDelay       time.Duration `envconfig:"NEIGHBRIDGE_PUBSUB_BATCH_DELAY" default:"10ms"`
	BatchMaxMessages int           `envconfig:"NEIGHBRIDGE_PUBSUB_BATCH_MAX_MESSAGES" default:"100"`
	PublishTimeout   time.Duration `envconfig:"NEIGHBRIDGE_PUBSUB_PUBLISH_TIMEOUT" default:"10s"`
}

type CronConfig struct {
	Interval           time.Duration `envconfig:"NEIGHBRIDGE_CRON_INTERVAL" default:"15m"`
	ReconcileEvery     time.Duration `envconfig:"NEIGHBRIDGE_CRON_RECONCILE_EVERY" default:"1h"`
	ReconcileBatchSize int           `envconfig:"NEIGHBRIDGE_CRON_RECONCILE_BATCH_SIZE" default:"500"`
}

func (c CronConfig) validate() error {
	if c.Interval <= 0 {
		return errors.New("cron interval must be positive")
	}
	if c.ReconcileEvery < 0 || c.ReconcileBatchSize < 0 {
		return errors.New("cron reconcile settings must not be negative")
	}
	return nil
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
