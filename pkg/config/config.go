package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config represents the application configuration
type Config struct {
	Server   ServerConfig
	Registry RegistryConfig
	TenantDB TenantDBConfig
	JWT      JWTConfig
	Log      LogConfig
	Metrics  MetricsConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port string
	Env  string
}

// RegistryConfig holds the central registry database configuration
type RegistryConfig struct {
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

// TenantDBConfig holds tenant provisioning configuration.
// OperatorUser/OperatorPassword are the server-level credentials used to
// issue CREATE DATABASE; when empty the tenant's own credentials are used.
type TenantDBConfig struct {
	DefaultHost      string
	DefaultPort      int
	DefaultUser      string
	OperatorUser     string
	OperatorPassword string
	AdminDatabase    string
	SSLMode          string
	OpTimeout        time.Duration
}

// JWTConfig holds JWT-related configuration
type JWTConfig struct {
	SigningKey     string
	ExpirationTime time.Duration
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
			Port: getEnv("SERVER_PORT", "8086"),
			Env:  getEnv("APP_ENV", "development"),
		},
		Registry: RegistryConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnv("DB_PORT", "5432"),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", "postgres"),
			Name:            getEnv("DB_NAME", "tenant_registry"),
			SSLMode:         getEnv("DB_SSL_MODE", "disable"),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 10),
			MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 100),
			ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 1*time.Hour),
			LogLevel:        getEnv("DB_LOG_LEVEL", "info"),
		},
		TenantDB: TenantDBConfig{
			DefaultHost:      getEnv("TENANT_DB_HOST", "localhost"),
			DefaultPort:      getEnvAsInt("TENANT_DB_PORT", 5432),
			DefaultUser:      getEnv("TENANT_DB_USER", "postgres"),
			OperatorUser:     getEnv("TENANT_DB_OPERATOR_USER", ""),
			OperatorPassword: getEnv("TENANT_DB_OPERATOR_PASSWORD", ""),
			AdminDatabase:    getEnv("TENANT_DB_ADMIN_DATABASE", "postgres"),
			SSLMode:          getEnv("TENANT_DB_SSL_MODE", "disable"),
			OpTimeout:        getEnvAsDuration("TENANT_DB_OP_TIMEOUT", 30*time.Second),
		},
		JWT: JWTConfig{
			SigningKey:     getEnv("JWT_SIGNING_KEY", "tenantservicesecretkey"),
			ExpirationTime: getEnvAsDuration("JWT_EXPIRATION_HOURS", 24*time.Hour),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Metrics: MetricsConfig{
			Prefix: getEnv("METRICS_PREFIX", "tenant"),
		},
	}, nil
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
