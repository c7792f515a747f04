// Package config reads the handlers' settings from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"telegram-phone-checker/internal/models"
)

// Environment variable names
const (
	EnvFile              = "ENV_FILE"
	EnvLogLevel          = "LOG_LEVEL"
	EnvAWSProfile        = "AWS_PROFILE"
	EnvKVTable           = "KV_TABLE"
	EnvArchiveBucket     = "ARCHIVE_BUCKET"
	EnvGoogleCredentials = "GOOGLE_CREDENTIALS"
	EnvSessionPath       = "TELEGRAM_SESSION_PATH"
	EnvDailyLimit        = "DAILY_LIMIT"
	EnvLockTTL           = "LOCK_TTL"
	EnvTimezone          = "TIMEZONE"
	EnvFunctionName      = "AWS_LAMBDA_FUNCTION_NAME"
)

// Defaults
const (
	DefaultLogLevel    = "info"
	DefaultSessionPath = "/tmp/session.json"
	DefaultLockTTL     = 2 * time.Hour
	DefaultTimezone    = "UTC"
)

// Config holds everything the handlers read from the environment
type Config struct {
	LogLevel            string
	AWSProfile          string
	KVTable             string
	ArchiveBucket       string
	GoogleCredentials   string
	TelegramSessionPath string
	DailyLimit          int
	LockTTL             time.Duration
	Location            *time.Location
	FunctionName        string
}

// Load reads the configuration from the environment, after loading ENV_FILE
// if it is set
func Load() (*Config, error) {
	if path := os.Getenv(EnvFile); path != "" {
		if err := LoadEnvFile(path); err != nil {
			return nil, err
		}
	}

	cfg := &Config{
		LogLevel:            getEnv(EnvLogLevel, DefaultLogLevel),
		AWSProfile:          os.Getenv(EnvAWSProfile),
		KVTable:             os.Getenv(EnvKVTable),
		ArchiveBucket:       os.Getenv(EnvArchiveBucket),
		GoogleCredentials:   os.Getenv(EnvGoogleCredentials),
		TelegramSessionPath: getEnv(EnvSessionPath, DefaultSessionPath),
		DailyLimit:          models.DefaultDailyLimit,
		LockTTL:             DefaultLockTTL,
		FunctionName:        os.Getenv(EnvFunctionName),
	}

	if raw := os.Getenv(EnvDailyLimit); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			return nil, fmt.Errorf("%s must be a positive integer, got %q", EnvDailyLimit, raw)
		}
		cfg.DailyLimit = limit
	}

	if raw := os.Getenv(EnvLockTTL); raw != "" {
		ttl, err := time.ParseDuration(raw)
		if err != nil || ttl <= 0 {
			return nil, fmt.Errorf("%s must be a positive duration, got %q", EnvLockTTL, raw)
		}
		cfg.LockTTL = ttl
	}

	location, err := time.LoadLocation(getEnv(EnvTimezone, DefaultTimezone))
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", EnvTimezone, err)
	}
	cfg.Location = location

	return cfg, nil
}

// LoadEnvFile loads variables from a .env file without overriding ones already set
func LoadEnvFile(path string) error {
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}

// Require fails when any of the named variables is empty
func (c *Config) Require(names ...string) error {
	values := map[string]string{
		EnvKVTable: c.KVTable,
	}

	var missing []string
	for _, name := range names {
		if strings.TrimSpace(values[name]) == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("required environment variables not set: %s", strings.Join(missing, ", "))
	}
	return nil
}

// GoogleCredentialsJSON returns the service-account key. GOOGLE_CREDENTIALS may
// hold the JSON itself or a path to the key file.
func (c *Config) GoogleCredentialsJSON() ([]byte, error) {
	raw := strings.TrimSpace(c.GoogleCredentials)
	if raw == "" {
		return nil, fmt.Errorf("%s is not set", EnvGoogleCredentials)
	}
	if strings.HasPrefix(raw, "{") {
		return []byte(raw), nil
	}

	data, err := os.ReadFile(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s file: %w", EnvGoogleCredentials, err)
	}
	return data, nil
}

// ArchiveEnabled reports whether result batches are archived to S3
func (c *Config) ArchiveEnabled() bool {
	return c.ArchiveBucket != ""
}

func getEnv(name, fallback string) string {
	if value := os.Getenv(name); value != "" {
		return value
	}
	return fallback
}
