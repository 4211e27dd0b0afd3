package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// DatabaseConfig holds PostgreSQL connection settings. The same server hosts
// the shared registry database and every tenant database.
type DatabaseConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	RegistryDB      string
	AdminDB         string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// RegistryDSN returns the connection string for the shared tenant registry.
func (c *DatabaseConfig) RegistryDSN() string {
	return c.DSNFor(c.RegistryDB)
}

// AdminDSN returns the connection string for the maintenance database used
// when issuing CREATE DATABASE statements.
func (c *DatabaseConfig) AdminDSN() string {
	return c.DSNFor(c.AdminDB)
}

// DSNFor returns the connection string for an arbitrary database on the
// configured server.
func (c *DatabaseConfig) DSNFor(dbName string) string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, dbName, c.SSLMode)
}

// RedisConfig holds registry cache settings. An empty Addr disables caching.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port        string
	MetricsPort string
	Env         string
}

// JWTConfig holds admin token settings.
type JWTConfig struct {
	SigningKey      string
	ExpirationHours int
}

// AdminConfig holds the credentials accepted by the login endpoint.
type AdminConfig struct {
	Email    string
	Password string
}

// FBRConfig holds external e-invoicing gateway settings.
type FBRConfig struct {
	BaseURL string
	Timeout time.Duration
}

// Config holds all service configuration.
type Config struct {
	ServiceName    string
	DB             DatabaseConfig
	Redis          RedisConfig
	Server         ServerConfig
	JWT            JWTConfig
	Admin          AdminConfig
	FBR            FBRConfig
	TokenKey       string
	ResolveTimeout time.Duration
	LogLevel       string
}

// Load reads configuration from the environment, with a .env file as an
// optional source.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		// .env file is optional
		fmt.Fprintf(os.Stderr, "no .env file found, using environment variables\n")
	}

	cfg := &Config{
		ServiceName: getEnv("SERVICE_NAME", "invoicing-backend"),
		DB: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnv("DB_PORT", "5432"),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", "postgres"),
			RegistryDB:      getEnv("DB_REGISTRY_NAME", "invoicing_registry"),
			AdminDB:         getEnv("DB_ADMIN_NAME", "postgres"),
			SSLMode:         getEnv("DB_SSL_MODE", "disable"),
			MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 20),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
			ConnMaxIdleTime: getEnvAsDuration("DB_CONN_MAX_IDLE_TIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Server: ServerConfig{
			Port:        getEnv("SERVER_PORT", "8080"),
			MetricsPort: getEnv("METRICS_PORT", "8081"),
			Env:         getEnv("APP_ENV", "development"),
		},
		JWT: JWTConfig{
			SigningKey:      getEnv("JWT_SIGNING_KEY", "defaultsecretkey"),
			ExpirationHours: getEnvAsInt("JWT_EXPIRATION_HOURS", 24),
		},
		Admin: AdminConfig{
			Email:    getEnv("ADMIN_EMAIL", "admin@localhost"),
			Password: getEnv("ADMIN_PASSWORD", ""),
		},
		FBR: FBRConfig{
			BaseURL: getEnv("FBR_BASE_URL", "https://gw.fbr.gov.pk"),
			Timeout: getEnvAsDuration("FBR_TIMEOUT", 30*time.Second),
		},
		TokenKey:       getEnv("TOKEN_ENCRYPTION_KEY", ""),
		ResolveTimeout: getEnvAsDuration("TENANT_RESOLVE_TIMEOUT", 10*time.Second),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
	}

	if len(cfg.TokenKey) != 32 {
		return nil, fmt.Errorf("TOKEN_ENCRYPTION_KEY must be exactly 32 bytes, got %d", len(cfg.TokenKey))
	}
	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, err := strconv.Atoi(getEnv(key, "")); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, err := time.ParseDuration(getEnv(key, "")); err == nil {
		return value
	}
	return defaultValue
}
