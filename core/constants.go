package core

import "time"

// Environment variable names used by the runtime. Config.LoadFromEnv reads
// EnvNamespace, EnvLogLevel and EnvLogFormat; the others are read by the
// packages and commands that need them.
const (
	EnvLogLevel     = "SENTINEL_LOG_LEVEL"
	EnvLogFormat    = "SENTINEL_LOG_FORMAT"
	EnvRedisURL     = "SENTINEL_REDIS_URL"
	EnvNamespace    = "SENTINEL_NAMESPACE"
	EnvSentinelRoot = "SENTINEL_ROOT"
	EnvOracleModel  = "SENTINEL_ORACLE_MODEL"
)

// DefaultNamespace prefixes every durable key (Redis, file) this runtime
// writes, mirroring the teacher's "gomind" service-mesh namespace.
const DefaultNamespace = "sentinel"

// DefaultOracleTimeout bounds a single oracle call end to end (spec §5).
const DefaultOracleTimeout = 60 * time.Second
