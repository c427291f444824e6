package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"

	// ProductionAPIURL is the hosted service used when nothing else is set
	// in production.
	ProductionAPIURL = "https://biblioflow-production-022b.up.railway.app"
	// DevelopmentAPIURL is the local service used outside production.
	DevelopmentAPIURL = "http://localhost:5000"

	StorageSQLite = "sqlite"
	StorageRedis  = "redis"
)

// Config holds all application configuration
type Config struct {
	Env         string
	APIURL      string
	HTTPTimeout time.Duration
	Ownership   string
	LogLevel    string
	Storage     StorageConfig
	Session     SessionConfig
}

// StorageConfig selects where local state lives
type StorageConfig struct {
	Driver        string
	Path          string
	RedisAddr     string
	RedisPassword string
}

// SessionConfig holds session signing configuration
type SessionConfig struct {
	Secret string
	TTL    time.Duration
}

// Load reads configuration from the environment.
func Load() (*Config, error) {
	timeout, err := getEnvAsDuration("BIBLIOFLOW_HTTP_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}
	ttl, err := getEnvAsDuration("BIBLIOFLOW_SESSION_TTL", 30*24*time.Hour)
	if err != nil {
		return nil, err
	}

	return &Config{
		Env:         getEnv("BIBLIOFLOW_ENV", EnvDevelopment),
		APIURL:      getEnv("BIBLIOFLOW_API_URL", ""),
		HTTPTimeout: timeout,
		Ownership:   getEnv("BIBLIOFLOW_OWNERSHIP", "id"),
		LogLevel:    getEnv("BIBLIOFLOW_LOG_LEVEL", "info"),
		Storage: StorageConfig{
			Driver:        getEnv("BIBLIOFLOW_STORAGE", StorageSQLite),
			Path:          getEnv("BIBLIOFLOW_DB", defaultDBPath()),
			RedisAddr:     getEnv("BIBLIOFLOW_REDIS_ADDR", "localhost:6379"),
			RedisPassword: getEnv("BIBLIOFLOW_REDIS_PASSWORD", ""),
		},
		Session: SessionConfig{
			Secret: getEnv("BIBLIOFLOW_SESSION_SECRET", ""),
			TTL:    ttl,
		},
	}, nil
}

// APIBase resolves the single service origin: an explicit URL wins, then
// the hosted service in production, then the local one.
func (c *Config) APIBase() string {
	if c.APIURL != "" {
		return strings.TrimRight(c.APIURL, "/")
	}
	if c.Env == EnvProduction {
		return ProductionAPIURL
	}
	return DevelopmentAPIURL
}

// Validate reports every bad value at once.
func (c *Config) Validate() error {
	var errs []error
	if c.Env != EnvDevelopment && c.Env != EnvProduction {
		errs = append(errs, fmt.Errorf("env: must be %q or %q, got %q", EnvDevelopment, EnvProduction, c.Env))
	}
	if c.APIURL != "" {
		u, err := url.Parse(c.APIURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errs = append(errs, fmt.Errorf("api url: %q is not an http(s) URL", c.APIURL))
		}
	}
	if c.HTTPTimeout <= 0 {
		errs = append(errs, errors.New("http timeout: must be positive"))
	}
	if c.Session.TTL <= 0 {
		errs = append(errs, errors.New("session ttl: must be positive"))
	}
	switch c.Ownership {
	case "id", "legacy":
	default:
		errs = append(errs, fmt.Errorf("ownership: must be \"id\" or \"legacy\", got %q", c.Ownership))
	}
	switch c.Storage.Driver {
	case StorageSQLite:
		if c.Storage.Path == "" {
			errs = append(errs, errors.New("storage: sqlite path is empty"))
		}
	case StorageRedis:
		if c.Storage.RedisAddr == "" {
			errs = append(errs, errors.New("storage: redis address is empty"))
		}
	default:
		errs = append(errs, fmt.Errorf("storage: unknown driver %q", c.Storage.Driver))
	}
	return errors.Join(errs...)
}

func defaultDBPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "biblioflow.db"
	}
	return filepath.Join(dir, "biblioflow", "biblioflow.db")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}
