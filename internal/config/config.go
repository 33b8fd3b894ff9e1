package config

import (
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server configuration
	Port string
	Mode string

	// Database configuration
	DatabaseURL string
	SQLitePath  string

	// Redis configuration, empty disables login throttling
	RedisURL string

	// Token configuration
	SecretKey          string
	AccessTokenExpire  time.Duration
	RefreshTokenExpire time.Duration
	ResetTokenExpire   time.Duration

	// Login throttling
	LoginMaxAttempts int
	LoginLockout     time.Duration

	// Billing
	InvoiceDueDays int

	// Brevo email configuration
	BrevoAPIKey    string
	BrevoFromEmail string
	BrevoFromName  string

	// External user directory
	DirectorySyncURL    string
	DirectorySyncSecret string

	// Seed administrator
	AdminEmail    string
	AdminPassword string

	// Logging
	LogLevel  string
	LogFormat string
}

const devSecretKey = "subtrack-dev-secret-change-me"

// Load reads .env (when present) and the environment into a Config
func Load() (*Config, error) {
	// Ignore error if .env file doesn't exist
	_ = godotenv.Load()

	cfg := &Config{
		Port:                getEnv("PORT", "8080"),
		Mode:                getEnv("GIN_MODE", "debug"),
		DatabaseURL:         getEnv("DATABASE_URL", ""),
		SQLitePath:          getEnv("SQLITE_PATH", "subtrack.db"),
		RedisURL:            getEnv("REDIS_URL", ""),
		SecretKey:           getEnv("SECRET_KEY", ""),
		AccessTokenExpire:   time.Duration(getEnvInt("ACCESS_TOKEN_EXPIRE_MINUTES", 30)) * time.Minute,
		RefreshTokenExpire:  time.Duration(getEnvInt("REFRESH_TOKEN_EXPIRE_DAYS", 7)) * 24 * time.Hour,
		ResetTokenExpire:    time.Duration(getEnvInt("RESET_TOKEN_EXPIRE_MINUTES", 60)) * time.Minute,
		LoginMaxAttempts:    getEnvInt("LOGIN_MAX_ATTEMPTS", 5),
		LoginLockout:        time.Duration(getEnvInt("LOGIN_LOCKOUT_MINUTES", 15)) * time.Minute,
		InvoiceDueDays:      getEnvInt("INVOICE_DUE_DAYS", 30),
		BrevoAPIKey:         getEnv("BREVO_API_KEY", ""),
		BrevoFromEmail:      getEnv("BREVO_FROM_EMAIL", ""),
		BrevoFromName:       getEnv("BREVO_FROM_NAME", "SubTrack Billing"),
		DirectorySyncURL:    getEnv("DIRECTORY_SYNC_URL", ""),
		DirectorySyncSecret: getEnv("DIRECTORY_SYNC_SECRET", ""),
		AdminEmail:          getEnv("ADMIN_EMAIL", "admin@subtrack.com"),
		AdminPassword:       getEnv("ADMIN_PASSWORD", "Admin@123!"),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
		LogFormat:           getEnv("LOG_FORMAT", "json"),
	}

	if cfg.SecretKey == "" {
		if cfg.IsRelease() {
			return nil, errors.New("SECRET_KEY must be set in release mode")
		}
		cfg.SecretKey = devSecretKey
	}

	return cfg, nil
}

// IsRelease reports whether gin runs in release mode
func (c *Config) IsRelease() bool {
	return c.Mode == "release"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
