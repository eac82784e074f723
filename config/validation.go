package config

import (
	"fmt"
	"strings"
)

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateConfig checks the configuration for the current environment.
// Production refuses to start without the secrets; development and test run
// with defaults so local setups stay frictionless.
func ValidateConfig(cfg *Config) error {
	var problems []string

	if cfg.FileStore != "local" && cfg.FileStore != "s3" {
		problems = append(problems, fmt.Sprintf("FILE_STORE must be \"local\" or \"s3\", got %q", cfg.FileStore))
	}
	if cfg.FileStore == "s3" && cfg.S3Bucket == "" {
		problems = append(problems, "S3_BUCKET_NAME is required when FILE_STORE=s3")
	}
	if cfg.ReportTTL <= 0 {
		problems = append(problems, "report TTL must be positive")
	}
	if cfg.ReaperInterval <= 0 {
		problems = append(problems, "reaper interval must be positive")
	}

	if IsProduction() {
		if cfg.JWTSecret == "" {
			problems = append(problems, "jwt_secret is required in production")
		}
		if cfg.AdminPasswordHash == "" {
			problems = append(problems, "admin_password_hash is required in production")
		}
		if cfg.DBPassword == "" {
			problems = append(problems, "db_password is required in production")
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("%s", strings.Join(problems, "; "))
	}
	return nil
}
