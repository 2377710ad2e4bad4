// Package config provides configuration for jvcli commands and servers.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds the settings shared by commands, the dashboard, and the
// studio server.
type Config struct {
	// RegistryURL is the package registry endpoint.
	RegistryURL string
	// PlatformURL is the base URL of the Jivas server.
	PlatformURL string
	// StudioURL is where a running studio is expected.
	StudioURL string
	// Environment names the deployment environment ("development" enables
	// auto-login in the dashboard).
	Environment string
	// Email and Password are operator credentials for the platform.
	Email    string
	Password string
	// DashboardListen is the dashboard listen address.
	DashboardListen string
	// StudioListen is the studio listen address.
	StudioListen string
	// SessionSecret signs dashboard session tokens.
	SessionSecret string
	// SessionTTL is how long a dashboard session stays valid.
	SessionTTL time.Duration
	// Debug enables debug logging.
	Debug bool
}

// FromEnv creates a Config from environment variables.
func FromEnv() *Config {
	return &Config{
		RegistryURL:     getEnv("JVCLI_REGISTRY_URL", "https://api.jivas.com"),
		PlatformURL:     getEnv("JIVAS_BASE_URL", "http://localhost:8000"),
		StudioURL:       getEnv("JIVAS_STUDIO_URL", "http://localhost:8989"),
		Environment:     getEnv("JIVAS_ENVIRONMENT", ""),
		Email:           getEnv("JIVAS_USER", ""),
		Password:        getEnv("JIVAS_PASSWORD", ""),
		DashboardListen: getEnv("JVCLI_CLIENT_LISTEN", ":8501"),
		StudioListen:    getEnv("JVCLI_STUDIO_LISTEN", ":8989"),
		SessionSecret:   getEnv("JVCLI_SESSION_SECRET", ""),
		SessionTTL:      getEnvDuration("JVCLI_SESSION_TTL", 12*time.Hour),
		Debug:           getEnvBool("JVCLI_DEBUG", false),
	}
}

// Development reports whether the environment is set up for local
// development.
func (c *Config) Development() bool {
	return c.Environment == "development"
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}
