package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port         string
	DatabaseFile string
	LogLevel     string

	// S3
	S3Endpoint        string
	S3AccessKeyID     string
	S3SecretAccessKey string
	S3BucketName      string
	S3UseSSL          bool

	// Judgment service
	OpenAIAPIKey string
	OpenAIModel  string

	// Notifications
	MailchimpAPIKey    string
	MailchimpFromEmail string
	TeamEmail          string

	// Pipeline policy. These are product decisions surfaced as configuration,
	// not derived from measurement.
	MinTextChars      int
	AssessMaxAttempts int
	AssessBackoffBase time.Duration
	AssessRetryBudget time.Duration
	MaxFileSize       int64
}

func Load() (*Config, error) {
	cfg := &Config{
		Port:               getEnv("PORT", "8080"),
		DatabaseFile:       getEnv("DATABASE_FILE", "data/proposals.db"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		S3Endpoint:         getEnv("S3_ENDPOINT", "localhost:9000"),
		S3AccessKeyID:      getEnv("S3_ACCESS_KEY_ID", "minioadmin"),
		S3SecretAccessKey:  getEnv("S3_SECRET_ACCESS_KEY", "minioadmin"),
		S3BucketName:       getEnv("S3_BUCKET_NAME", "proposals"),
		S3UseSSL:           getEnv("S3_USE_SSL", "false") == "true",
		OpenAIAPIKey:       getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:        getEnv("OPENAI_MODEL", "gpt-4o"),
		MailchimpAPIKey:    getEnv("MAILCHIMP_API_KEY", ""),
		MailchimpFromEmail: getEnv("MAILCHIMP_FROM_EMAIL", "proposals@writeitgreat.com"),
		TeamEmail:          getEnv("TEAM_EMAIL", "team@writeitgreat.com"),
		MinTextChars:       getEnvInt("MIN_TEXT_CHARS", 500),
		AssessMaxAttempts:  getEnvInt("ASSESS_MAX_ATTEMPTS", 3),
		AssessBackoffBase:  getEnvDuration("ASSESS_BACKOFF_BASE", time.Second),
		AssessRetryBudget:  getEnvDuration("ASSESS_RETRY_BUDGET", 2*time.Minute),
		MaxFileSize:        50 * 1024 * 1024,
	}

	if cfg.OpenAIAPIKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is required")
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
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
