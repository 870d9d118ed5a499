package utils

// Environment variables and defaults used to resolve the endpoint and the
// transport settings.
const (
	EnvInternalEndpoint = "GRAPHQL_INTERNAL_ENDPOINT"
	EnvPublicEndpoint   = "GRAPHQL_PUBLIC_ENDPOINT"
	EnvTimeout          = "TASKSYNC_TIMEOUT"
	EnvRetryCount       = "TASKSYNC_RETRY_COUNT"
	EnvCacheSize        = "TASKSYNC_CACHE_SIZE"
	EnvDebug            = "TASKSYNC_DEBUG"

	DefaultEndpoint   = "http://localhost:8080/query"
	DefaultTimeout    = "10s"
	DefaultRetryCount = 0
	DefaultCacheSize  = 128

	// SessionCookieName is the cookie the endpoint uses for the login session.
	SessionCookieName = "bff_session"
	// Uncategorized is shown for tasks without a category.
	Uncategorized = "uncategorized"
)

// Configuration keys, shared by viper and the CLI flags.
const (
	KeyEndpoint   = "endpoint"
	KeyTimeout    = "timeout"
	KeyRetryCount = "retry-count"
	KeyCacheSize  = "cache-size"
	KeyDebug      = "debug"
)
