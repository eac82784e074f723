package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	ServerPort string
	ServerHost string

	// Database configuration
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// Redis configuration
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int
	RedisURL      string

	// Admin auth
	JWTSecret         string
	AdminPasswordHash string

	// Report artifact storage: "local" or "s3"
	FileStore string
	ReportDir string
	S3Bucket  string
	AWSRegion string

	// Recommendation provider chain, e.g. "deepseek,gemini"
	AIProviders string

	// Retention knobs
	ReportTTL      time.Duration
	ReaperInterval time.Duration
	ReaperGrace    time.Duration
}

// LoadConfig builds the configuration from environment variables, falling
// back to Docker secrets for the sensitive values outside CI.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		ServerPort: getEnv("SERVER_PORT", "8080"),
		ServerHost: getEnv("SERVER_HOST", "0.0.0.0"),

		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getValue("DB_USER", "db_user", "postgres"),
		DBPassword: getValue("DB_PASSWORD", "db_password", ""),
		DBName:     getEnv("DB_NAME", "vitalis"),
		DBSSLMode:  getEnv("DB_SSL_MODE", "disable"),

		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getValue("REDIS_PASSWORD", "redis_password", ""),
		RedisURL:      getEnv("REDIS_URL", ""),

		JWTSecret:         getValue("JWT_SECRET", "jwt_secret", ""),
		AdminPasswordHash: getValue("ADMIN_PASSWORD_HASH", "admin_password_hash", ""),

		FileStore: getEnv("FILE_STORE", "local"),
		ReportDir: getEnv("REPORT_DIR", "data/reports"),
		S3Bucket:  getEnv("S3_BUCKET_NAME", "vitalis-reports"),
		AWSRegion: getEnv("AWS_REGION", "us-east-1"),

		AIProviders: getEnv("AI_PROVIDERS", ""),

		ReportTTL:      hoursEnv("REPORT_TTL_HOURS", 24),
		ReaperInterval: minutesEnv("REAPER_INTERVAL_MINUTES", 60),
		ReaperGrace:    hoursEnv("REAPER_GRACE_HOURS", 24),
	}

	if db := os.Getenv("REDIS_DB"); db != "" {
		n, err := strconv.Atoi(db)
		if err != nil {
			return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
		}
		cfg.RedisDB = n
	}

	if err := ValidateConfig(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// getEnv reads an environment variable with a default.
func getEnv(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}

// getValue reads a sensitive value from the environment first, then from a
// Docker secret file, then falls back.
func getValue(envVar, secretName, fallback string) string {
	if v := os.Getenv(envVar); v != "" {
		return v
	}
	if v := readSecret(secretName); v != "" {
		return v
	}
	return fallback
}

// readSecret reads a Docker secret from the secrets directory
func readSecret(name string) string {
	secretsDir := os.Getenv("SECRETS_DIR")
	if secretsDir == "" {
		secretsDir = "/run/secrets"
	}
	if data, err := os.ReadFile(filepath.Join(secretsDir, name)); err == nil {
		return strings.TrimSpace(string(data))
	}
	return ""
}

func hoursEnv(name string, fallback int) time.Duration {
	if v := os.Getenv(name); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return time.Duration(n) * time.Hour
		}
	}
	return time.Duration(fallback) * time.Hour
}

func minutesEnv(name string, fallback int) time.Duration {
	if v := os.Getenv(name); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return time.Duration(n) * time.Minute
		}
	}
	return time.Duration(fallback) * time.Minute
}
