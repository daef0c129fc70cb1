// Package config loads the orchestrator's environment-driven
// configuration once at process start into an immutable Config,
// using a getEnv(key, default) helper generalized to typed parsing with the clamp-to-minimum rules this orchestrator
// requires.
package config

import (
	"os"
	"strconv"
	"strings"
)

// Config is the fully-resolved, immutable process configuration.
type Config struct {
	HTTPPort int

	ParamSpaceMax       int
	ConcurrencyLimitMax int
	TopNLimit           int
	MaxRetries          int
	RetryBaseSeconds    int

	DatabaseDSN        string
	OrchestratorSecret string

	ObsEnabled        bool
	ObsMetricsEnabled bool
	ObsOutput         string
	ObsLogFile        string
	WorkerComponent   string

	RedisAddr string
}

// FromEnv resolves Config from the process environment, applying the
// defaults and clamps this orchestrator requires.
func FromEnv() Config {
	return Config{
		HTTPPort: clampMin(getEnvInt("OPT_HTTP_PORT", 8080), 1),

		ParamSpaceMax:       clampMin(getEnvInt("OPT_PARAM_SPACE_MAX", 500), 1),
		ConcurrencyLimitMax: clampMin(getEnvInt("OPT_CONCURRENCY_LIMIT_MAX", 16), 1),
		TopNLimit:           clampMin(getEnvInt("OPT_TOP_N_LIMIT", 5), 1),
		MaxRetries:          clampMin(getEnvInt("OPT_MAX_RETRIES", 5), 0),
		RetryBaseSeconds:    clampMin(getEnvInt("OPT_RETRY_BASE_SECONDS", 2), 1),

		DatabaseDSN:        os.Getenv("OPTIMIZATION_DB_DSN"),
		OrchestratorSecret: os.Getenv("OPTIMIZATION_ORCHESTRATOR_SECRET"),

		ObsEnabled:        getEnvBool("OBS_ENABLED", true),
		ObsMetricsEnabled: getEnvBool("OBS_METRICS_ENABLED", true),
		ObsOutput:         getEnvString("OBS_OUTPUT", "stdout"),
		ObsLogFile:        os.Getenv("OBS_LOG_FILE"),
		WorkerComponent:   getEnvString("WORKER_COMPONENT", "optimizer"),

		RedisAddr: os.Getenv("OPT_REDIS_ADDR"),
	}
}

// PersistenceEnabled reports whether a relational store is configured.
func (c Config) PersistenceEnabled() bool { return c.DatabaseDSN != "" }

// SharedSecretEnabled reports whether the shared-secret gate is active.
func (c Config) SharedSecretEnabled() bool { return c.OrchestratorSecret != "" }

// RateLimiterEnabled reports whether the optional Redis-backed admin
// rate limiter should be wired in.
func (c Config) RateLimiterEnabled() bool { return c.RedisAddr != "" }

func getEnvString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvBool(key string, fallback bool) bool {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	return !strings.EqualFold(raw, "false")
}

func clampMin(v, min int) int {
	if v < min {
		return min
	}
	return v
}
