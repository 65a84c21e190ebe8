// Package config loads and validates process configuration from the environment.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
)

// Config holds validated environment configuration.
type Config struct {
	// Listen port (defaults to 5080)
	Port string

	// Optional variables with defaults
	LogLevel        string
	DevelopmentMode bool
	AllowedOrigins  string

	// Space catalog / robot secrets
	SpaceCatalogPath string
	RobotSecretsDir  string
	StaticAssetsDir  string

	// Rate limits
	RateLimitWsConnect string
}

// ValidateEnv validates all required environment variables and returns a Config object.
// Returns an error if any required variable is missing or invalid.
func ValidateEnv() (*Config, error) {
	cfg := &Config{}
	var errs []string

	// PORT (defaults to 5080; must be a valid port number)
	cfg.Port = getEnvOrDefault("PORT", "5080")
	if port, err := strconv.Atoi(cfg.Port); err != nil || port < 1 || port > 65535 {
		errs = append(errs, fmt.Sprintf("PORT must be a valid port number between 1 and 65535 (got '%s')", cfg.Port))
	}

	// Required: SPACE_CATALOG_PATH
	cfg.SpaceCatalogPath = os.Getenv("SPACE_CATALOG_PATH")
	if cfg.SpaceCatalogPath == "" {
		errs = append(errs, "SPACE_CATALOG_PATH is required")
	}

	// Required: ROBOT_SECRETS_DIR
	cfg.RobotSecretsDir = os.Getenv("ROBOT_SECRETS_DIR")
	if cfg.RobotSecretsDir == "" {
		errs = append(errs, "ROBOT_SECRETS_DIR is required")
	}

	cfg.StaticAssetsDir = getEnvOrDefault("STATIC_ASSETS_DIR", "./public")

	// Optional: LOG_LEVEL (defaults to "info"), consumed by logging.Initialize
	cfg.LogLevel = getEnvOrDefault("LOG_LEVEL", "info")

	cfg.DevelopmentMode = os.Getenv("DEVELOPMENT_MODE") == "true"
	cfg.AllowedOrigins = getEnvOrDefault("ALLOWED_ORIGINS", "http://localhost:3000")

	cfg.RateLimitWsConnect = getEnvOrDefault("WS_CONNECT_RATE", "20-M")

	if len(errs) > 0 {
		return nil, fmt.Errorf("environment validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	logValidatedConfig(cfg)

	return cfg, nil
}

// logValidatedConfig logs the validated configuration with secret paths redacted.
func logValidatedConfig(cfg *Config) {
	slog.Info("environment configuration validated",
		"port", cfg.Port,
		"log_level", cfg.LogLevel,
		"development_mode", cfg.DevelopmentMode,
		"space_catalog_path", cfg.SpaceCatalogPath,
		"robot_secrets_dir", redactPath(cfg.RobotSecretsDir),
		"ws_connect_rate", cfg.RateLimitWsConnect,
	)
}

// getEnvOrDefault returns the value of the environment variable or a default value if not set.
func getEnvOrDefault(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// redactPath avoids leaking the full filesystem layout of the secrets directory in logs.
func redactPath(path string) string {
	if path == "" {
		return ""
	}
	return "***"
}
