package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
// All environment variables are read here and nowhere else.
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	// Database
	Database DatabaseConfig

	// Redis
	Redis RedisConfig

	// ECB Data Portal
	ECB ECBConfig

	// Analysis defaults
	Analysis AnalysisConfig

	// Logging
	LogLevel  string
	LogFormat string
}

// DatabaseConfig holds PostgreSQL configuration.
type DatabaseConfig struct {
	URL     string
	Enabled bool

	// Connection pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// RedisConfig holds Redis configuration.
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
}

// ECBConfig holds ECB Data Portal API configuration.
type ECBConfig struct {
	BaseURL        string
	RequestTimeout time.Duration
	RatePerSecond  float64 // polite ceiling for the public API
}

// AnalysisConfig holds default parameters of the PCA/stress engine.
// Values mirror the reference configuration of the scenario model.
type AnalysisConfig struct {
	NComponents              int     // retained components for scoring
	ReconstructionComponents int     // components used when rebuilding curves
	UnitDays                 int     // shock horizon in trading days
	TrailMonths              int     // rolling quantile window in units
	QuantileUp               float64 // upper stress quantile
	QuantileDown             float64 // lower stress quantile
	MinObservations          int     // minimum rows required to fit PCA
	MaxRangeDays             int     // widest allowed request window
}

// Load reads configuration from environment variables.
// This is the only function that calls os.Getenv().
func Load() (*Config, error) {
	loadEnvFile()

	cfg := &Config{
		Port: getEnv("PORT", "8090"),
		Env:  getEnv("ENV", "development"),

		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			Enabled:         getEnvAsBool("DATABASE_ENABLED", false),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 10),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 2),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
		},

		ECB: ECBConfig{
			BaseURL:        getEnv("ECB_BASE_URL", "https://data-api.ecb.europa.eu/service/data"),
			RequestTimeout: getEnvAsDuration("ECB_REQUEST_TIMEOUT", "30s"),
			RatePerSecond:  getEnvAsFloat("ECB_RATE_PER_SECOND", 2.0),
		},

		Analysis: AnalysisConfig{
			NComponents:              getEnvAsInt("PCA_N_COMPONENTS", 5),
			ReconstructionComponents: getEnvAsInt("PCA_RECONSTRUCTION_COMPONENTS", 4),
			UnitDays:                 getEnvAsInt("STRESS_UNIT_DAYS", 30),
			TrailMonths:              getEnvAsInt("STRESS_TRAIL_MONTHS", 24),
			QuantileUp:               getEnvAsFloat("STRESS_QUANTILE_UP", 0.995),
			QuantileDown:             getEnvAsFloat("STRESS_QUANTILE_DOWN", 0.005),
			MinObservations:          getEnvAsInt("MIN_OBSERVATIONS", 30),
			MaxRangeDays:             getEnvAsInt("MAX_RANGE_DAYS", 3650),
		},

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks if required configuration values are set.
func (c *Config) validate() error {
	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	if c.Database.Enabled && c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required when DATABASE_ENABLED=true")
	}

	a := c.Analysis
	if a.NComponents < 1 {
		return fmt.Errorf("PCA_N_COMPONENTS must be >= 1")
	}
	if a.ReconstructionComponents < 1 {
		return fmt.Errorf("PCA_RECONSTRUCTION_COMPONENTS must be >= 1")
	}
	if a.UnitDays < 1 || a.TrailMonths < 1 {
		return fmt.Errorf("STRESS_UNIT_DAYS and STRESS_TRAIL_MONTHS must be >= 1")
	}
	if a.QuantileUp <= 0 || a.QuantileUp >= 1 {
		return fmt.Errorf("STRESS_QUANTILE_UP must be in (0, 1)")
	}
	if a.QuantileDown <= 0 || a.QuantileDown >= 1 {
		return fmt.Errorf("STRESS_QUANTILE_DOWN must be in (0, 1)")
	}

	return nil
}

// Helper functions (private, only used within this file)

// loadEnvFile tries to load .env from multiple locations.
func loadEnvFile() {
	paths := []string{
		".env",
	}

	// Also try relative to executable
	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}
