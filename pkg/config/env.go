package config

const (
	EnvPrefix = "STOREFRONT"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv   = "STOREFRONT_APP_ENV"
	EnvPort     = "STOREFRONT_APP_PORT"
	EnvLogLevel = "STOREFRONT_LOG_LEVEL"

	EnvDBDSN    = "STOREFRONT_DB_DSN"
	EnvDBDriver = "STOREFRONT_DB_DRIVER"
	EnvDBHost   = "STOREFRONT_DB_HOST"
	EnvDBUser   = "STOREFRONT_DB_USER"
	EnvDBName   = "STOREFRONT_DB_NAME"

	EnvRedisURL = "STOREFRONT_REDIS_URL"

	EnvJWTSecret               = "STOREFRONT_JWT_SECRET"
	EnvJWTIssuer               = "STOREFRONT_JWT_ISSUER"
	EnvJWTExpMins              = "STOREFRONT_JWT_EXPIRATION_MINUTES"
	EnvRefreshTokenTTLMinutes  = "STOREFRONT_REFRESH_TOKEN_TTL_MINUTES"
	EnvSupportEmail            = "STOREFRONT_SUPPORT_EMAIL"
	EnvLocationTTL             = "STOREFRONT_LOCATION_TTL"
	EnvCORSOrigins             = "STOREFRONT_CORS_ORIGINS"
	EnvStripeEnv               = "STOREFRONT_STRIPE_ENV"
	EnvPayPalMode              = "STOREFRONT_PAYPAL_MODE"
	EnvEuPagoAPIKey            = "STOREFRONT_EUPAGO_API_KEY"
	EnvAuthRateLimitLoginEmail = "STOREFRONT_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
