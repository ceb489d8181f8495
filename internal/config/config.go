package config

import (
	"os"
	"strconv"

	"permcluster/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	Stat     StatConfig
	Paths    PathConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	URL     string
	Host    string
	Port    int
	Name    string
	User    string
	SSLMode string
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port string
}

// StatConfig holds the permutation test defaults
type StatConfig struct {
	// DefaultSamples is the permutation count used when a request does not
	// specify one.
	DefaultSamples int
	// Seed makes permutation runs reproducible.
	Seed int64
	// PMin is the default cluster-forming probability threshold.
	PMin float64
}

// PathConfig holds file system paths
type PathConfig struct {
	// ReportDir receives exported cluster tables.
	ReportDir string
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	config := &Config{
		Database: DatabaseConfig{
			URL:     os.Getenv("DATABASE_URL"),
			Host:    getEnvOrDefault("DB_HOST", "localhost"),
			Port:    getEnvIntOrDefault("DB_PORT", 5432),
			Name:    getEnvOrDefault("DB_NAME", "permcluster"),
			User:    getEnvOrDefault("DB_USER", ""),
			SSLMode: getEnvOrDefault("SSL_MODE", "disable"),
		},
		Server: ServerConfig{
			Port: getEnvOrDefault("SERVER_PORT", "8080"),
		},
		Stat: StatConfig{
			DefaultSamples: getEnvIntOrDefault("STAT_SAMPLES", 1000),
			Seed:           int64(getEnvIntOrDefault("STAT_SEED", 0)),
			PMin:           getEnvFloatOrDefault("STAT_PMIN", 0.1),
		},
		Paths: PathConfig{
			ReportDir: getEnvOrDefault("REPORT_DIR", "./reports"),
		},
	}

	if err := validate(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}
	return config, nil
}

func validate(c *Config) error {
	if c.Stat.DefaultSamples <= 0 {
		return errors.ConfigInvalid("STAT_SAMPLES must be positive")
	}
	if c.Stat.PMin <= 0 || c.Stat.PMin >= 1 {
		return errors.ConfigInvalid("STAT_PMIN must be in (0, 1)")
	}
	if c.Server.Port == "" {
		return errors.ConfigInvalid("SERVER_PORT must not be empty")
	}
	return nil
}

func getEnvOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvIntOrDefault(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getEnvFloatOrDefault(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}
