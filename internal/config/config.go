package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/Lixing-Zhang/furniture-store/backend/internal/models"
	"github.com/Lixing-Zhang/furniture-store/backend/internal/money"
)

// Config holds all configuration for the application
// Following 12-factor app principles, all config is loaded from environment variables
type Config struct {
	Server   ServerConfig
	Auth     AuthConfig
	Coupon   CouponConfig
	Pricing  PricingConfig
	Store    StoreConfig
	LogLevel string
}

type ServerConfig struct {
	Port            string
	Host            string
	ReadTimeout     int
	WriteTimeout    int
	ShutdownTimeout int
}

// AuthConfig maps API keys to the actor they authenticate as
type AuthConfig struct {
	APIKeys map[string]models.Actor
}

// CouponConfig lists coupon files or URLs. When empty the demo coupons are seeded.
type CouponConfig struct {
	Sources []string
}

// PricingConfig holds shipping settings in cents
type PricingConfig struct {
	FreeShippingThresholdCents int64
	ShippingFeeCents           int64
}

// StoreConfig selects and configures the order store
type StoreConfig struct {
	Driver         string // memory or postgres
	DBHost         string
	DBPort         int
	DBUser         string
	DBPassword     string
	DBName         string
	MigrationsPath string
}

const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

const defaultAPIKeys = "custtest:CUSTOMER:customer-1,oakworkstest:VENDOR:oakworks,admintest:ADMIN:admin"

// Load reads configuration from environment variables, after applying a
// .env file from the working directory if there is one. Variables already
// set in the environment take precedence over the file.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env file: %w", err)
	}

	apiKeys, err := ParseAPIKeys(getEnv("API_KEYS", defaultAPIKeys))
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	threshold, err := getEnvAsCents("FREE_SHIPPING_THRESHOLD", 10000)
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	fee, err := getEnvAsCents("SHIPPING_FEE", 2000)
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnv("PORT", "8080"),
			Host:            getEnv("HOST", "0.0.0.0"),
			ReadTimeout:     getEnvAsInt("READ_TIMEOUT", 15),
			WriteTimeout:    getEnvAsInt("WRITE_TIMEOUT", 15),
			ShutdownTimeout: getEnvAsInt("SHUTDOWN_TIMEOUT", 30),
		},
		Auth: AuthConfig{
			APIKeys: apiKeys,
		},
		Coupon: CouponConfig{
			Sources: getEnvAsSlice("COUPON_SOURCES", nil),
		},
		Pricing: PricingConfig{
			FreeShippingThresholdCents: threshold,
			ShippingFeeCents:           fee,
		},
		Store: StoreConfig{
			Driver:         strings.ToLower(getEnv("ORDER_STORE", StoreMemory)),
			DBHost:         getEnv("DB_HOST", "localhost"),
			DBPort:         getEnvAsInt("DB_PORT", 5432),
			DBUser:         getEnv("DB_USER", "postgres"),
			DBPassword:     getEnv("DB_PASSWORD", ""),
			DBName:         getEnv("DB_NAME", "furniture_store"),
			MigrationsPath: getEnv("MIGRATIONS_PATH", "internal/repository/migrations"),
		},
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("PORT is required")
	}

	if len(c.Auth.APIKeys) == 0 {
		return fmt.Errorf("at least one API key must be configured")
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.LogLevel)
	}

	if c.Pricing.FreeShippingThresholdCents < 0 || c.Pricing.ShippingFeeCents < 0 {
		return fmt.Errorf("shipping threshold and fee must not be negative")
	}

	switch c.Store.Driver {
	case StoreMemory:
	case StorePostgres:
		if c.Store.DBHost == "" || c.Store.DBName == "" || c.Store.DBUser == "" {
			return fmt.Errorf("DB_HOST, DB_NAME and DB_USER are required for the postgres order store")
		}
	default:
		return fmt.Errorf("invalid order store: %s (must be memory or postgres)", c.Store.Driver)
	}

	return nil
}

// ParseAPIKeys reads a comma-separated list of key:role:actorId entries.
func ParseAPIKeys(value string) (map[string]models.Actor, error) {
	keys := make(map[string]models.Actor)
	for _, entry := range strings.Split(value, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		parts := strings.Split(entry, ":")
		if len(parts) != 3 || parts[0] == "" || parts[2] == "" {
			return nil, fmt.Errorf("API key entry %q must be key:role:actorId", entry)
		}

		role := models.Role(strings.ToUpper(parts[1]))
		switch role {
		case models.RoleCustomer, models.RoleVendor, models.RoleAdmin:
		default:
			return nil, fmt.Errorf("API key entry %q has unknown role %q", entry, parts[1])
		}

		if _, dup := keys[parts[0]]; dup {
			return nil, fmt.Errorf("API key %q is configured twice", parts[0])
		}
		keys[parts[0]] = models.Actor{ID: parts[2], Role: role}
	}
	return keys, nil
}

// Helper functions for reading environment variables

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

func getEnvAsCents(key string, defaultValue int64) (int64, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue, nil
	}
	cents, err := money.Parse(valueStr)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return cents, nil
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var values []string
	for _, v := range strings.Split(valueStr, ",") {
		if v = strings.TrimSpace(v); v != "" {
			values = append(values, v)
		}
	}
	return values
}
