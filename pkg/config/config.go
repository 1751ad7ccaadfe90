package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config represents the application configuration
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Chat     ChatConfig
	Hash     HashConfig
	Log      LogConfig
	Metrics  MetricsConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port string
	Env  string
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
	LogLevel        string
}

// ChatConfig holds chat-platform-related configuration
type ChatConfig struct {
	Platform          string
	BaseURL           string
	AdminUserID       string
	AdminToken        string
	InternalAccessKey string
	DefaultTenantCode string
	RequestTimeout    time.Duration
}

// HashConfig holds credential-derivation configuration
type HashConfig struct {
	UsernameSalt   string
	UsernameLength int
	PasswordSalt   string
	PasswordLength int
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string
}

// MetricsConfig holds metrics-related configuration
type MetricsConfig struct {
	Prefix string
}

// Load loads the application configuration from environment variables
func Load() (*Config, error) {
	// Load environment variables from .env file if it exists
	_ = godotenv.Load()

	return &Config{
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "3001"),
			Env:  getEnv("APP_ENV", "development"),
		},
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnv("DB_PORT", "5432"),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", "postgres"),
			Name:            getEnv("DB_NAME", "chat_db"),
			SSLMode:         getEnv("DB_SSL_MODE", "disable"),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 10),
			MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 100),
			ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 1*time.Hour),
			LogLevel:        getEnv("DB_LOG_LEVEL", "info"),
		},
		Chat: ChatConfig{
			Platform:          getEnv("CHAT_PLATFORM", "rocketchat"),
			BaseURL:           getEnv("CHAT_PLATFORM_URL", "http://localhost:3000"),
			AdminUserID:       getEnv("CHAT_PLATFORM_ADMIN_USER_ID", ""),
			AdminToken:        getEnv("CHAT_PLATFORM_ADMIN_TOKEN", ""),
			InternalAccessKey: getEnv("INTERNAL_ACCESS_TOKEN", ""),
			DefaultTenantCode: getEnv("DEFAULT_TENANT_CODE", "default"),
			RequestTimeout:    getEnvAsDuration("CHAT_REQUEST_TIMEOUT", 10*time.Second),
		},
		Hash: HashConfig{
			UsernameSalt:   getEnv("USERNAME_HASH_SALT", ""),
			UsernameLength: getEnvAsInt("USERNAME_HASH_LENGTH", 8),
			PasswordSalt:   getEnv("PASSWORD_HASH_SALT", ""),
			PasswordLength: getEnvAsInt("PASSWORD_HASH_LENGTH", 12),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Metrics: MetricsConfig{
			Prefix: getEnv("METRICS_PREFIX", "chatbridge"),
		},
	}, nil
}

// Validate checks that every secret the service cannot run without is present.
// Called once at boot; a failure here is fatal.
func (c *Config) Validate() error {
	if c.Hash.UsernameSalt == "" {
		return fmt.Errorf("configuration error: USERNAME_HASH_SALT is required")
	}
	if c.Hash.PasswordSalt == "" {
		return fmt.Errorf("configuration error: PASSWORD_HASH_SALT is required")
	}
	if c.Chat.AdminUserID == "" || c.Chat.AdminToken == "" {
		return fmt.Errorf("configuration error: CHAT_PLATFORM_ADMIN_USER_ID and CHAT_PLATFORM_ADMIN_TOKEN are required")
	}
	if c.Chat.InternalAccessKey == "" {
		return fmt.Errorf("configuration error: INTERNAL_ACCESS_TOKEN is required")
	}
	return nil
}

// Helper functions to get environment variables with defaults
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
