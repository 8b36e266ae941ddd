package config

// EnvPrefix namespaces every variable read by Load.
const EnvPrefix = "NEIGHBRIDGE"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	ProximityStrategyBBox    = "bbox"
	ProximityStrategyPostGIS = "postgis"
)

const (
	EnvAppEnv   = "NEIGHBRIDGE_APP_ENV"
	EnvPort     = "NEIGHBRIDGE_APP_PORT"
	EnvLogLevel = "NEIGHBRIDGE_LOG_LEVEL"

	EnvDBDSN  = "NEIGHBRIDGE_DB_DSN"
	EnvDBHost = "NEIGHBRIDGE_DB_HOST"
	EnvDBUser = "NEIGHBRIDGE_DB_USER"
	EnvDBName = "NEIGHBRIDGE_DB_NAME"

	EnvRedisURL = "NEIGHBRIDGE_REDIS_URL"

	EnvJWTSecret  = "NEIGHBRIDGE_JWT_SECRET"
	EnvJWTIssuer  = "NEIGHBRIDGE_JWT_ISSUER"
	EnvJWTExpMins = "NEIGHBRIDGE_JWT_EXPIRATION_MINUTES"

	EnvGeoFallbackLat       = "NEIGHBRIDGE_GEO_FALLBACK_LAT"
	EnvGeoFallbackLng       = "NEIGHBRIDGE_GEO_FALLBACK_LNG"
	EnvGeoProximityStrategy = "NEIGHBRIDGE_GEO_PROXIMITY_STRATEGY"
	EnvGeoFallbackAll       = "NEIGHBRIDGE_GEO_DISCOVERY_FALLBACK_ALL"
	EnvGeoApprovalRequired  = "NEIGHBRIDGE_GEO_JOIN_APPROVAL_REQUIRED"

	EnvGCPProjectID  = "NEIGHBRIDGE_GCP_PROJECT_ID"
	EnvPubSubEnabled = "NEIGHBRIDGE_PUBSUB_ENABLED"
	EnvPubSubTopic   = "NEIGHBRIDGE_PUBSUB_COMMUNITY_TOPIC"

	EnvMigrationsDir = "NEIGHBRIDGE_MIGRATIONS_DIR"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
