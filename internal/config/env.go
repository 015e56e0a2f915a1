package config

import (
	"os"
	"strconv"
	"time"
)

func applyEnv(cfg *Config) {
	cfg.Daemon.Port = getEnvInt("SCRIBE_PORT", cfg.Daemon.Port)
	cfg.Daemon.Bind = getEnv("SCRIBE_BIND", cfg.Daemon.Bind)
	cfg.Daemon.LogLevel = getEnv("SCRIBE_LOG_LEVEL", cfg.Daemon.LogLevel)
	cfg.Daemon.LogFile = getEnv("SCRIBE_LOG_FILE", cfg.Daemon.LogFile)

	cfg.Storage.Driver = getEnv("SCRIBE_STORAGE_DRIVER", cfg.Storage.Driver)
	cfg.Storage.Path = getEnv("SCRIBE_STORAGE_PATH", cfg.Storage.Path)
	cfg.Storage.DSN = getEnv("SCRIBE_DATABASE_URL", cfg.Storage.DSN)
	cfg.Storage.Breaker.OpenTimeout = getEnvDuration("SCRIBE_BREAKER_OPEN_TIMEOUT", cfg.Storage.Breaker.OpenTimeout)
	cfg.Storage.MaintainAt = getEnv("SCRIBE_MAINTAIN_AT", cfg.Storage.MaintainAt)

	cfg.Progress.AtomicXP = getEnvBool("SCRIBE_ATOMIC_XP", cfg.Progress.AtomicXP)

	cfg.Auth.Mode = getEnv("SCRIBE_AUTH_MODE", cfg.Auth.Mode)
	cfg.Auth.Secret = getEnv("SCRIBE_AUTH_SECRET", cfg.Auth.Secret)

	cfg.Events.Enabled = getEnvBool("SCRIBE_EVENTS_ENABLED", cfg.Events.Enabled)
	cfg.Events.URL = getEnv("SCRIBE_RABBITMQ_URL", cfg.Events.URL)
	cfg.Events.Queue = getEnv("SCRIBE_EVENTS_QUEUE", cfg.Events.Queue)

	cfg.MCP.LearnerID = getEnv("SCRIBE_LEARNER_ID", cfg.MCP.LearnerID)

	cfg.RateLimit.VerifyPerSecond = getEnvInt("SCRIBE_VERIFY_RATE", cfg.RateLimit.VerifyPerSecond)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
