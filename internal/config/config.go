// Package config loads service settings from defaults, an optional YAML
// file, an optional .env file and the process environment, in that order.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Storage drivers.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
)

type Config struct {
	HTTP    HTTPConfig    `yaml:"http"`
	Storage StorageConfig `yaml:"storage"`
	Redis   RedisConfig   `yaml:"redis"`
	Cache   CacheConfig   `yaml:"cache"`
	NATS    NATSConfig    `yaml:"nats"`
	Log     LogConfig     `yaml:"log"`
}

type HTTPConfig struct {
	Addr            string        `yaml:"addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type StorageConfig struct {
	// Driver is one of memory, sqlite, postgres, redis.
	Driver       string `yaml:"driver"`
	SQLitePath   string `yaml:"sqlite_path"`
	DatabaseURL  string `yaml:"database_url"`
	SeedExamples bool   `yaml:"seed_examples"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

// CacheConfig controls the read-through cache in front of the backend.
// A zero TTL keeps entries until they change.
type CacheConfig struct {
	Enabled bool          `yaml:"enabled"`
	TTL     time.Duration `yaml:"ttl"`
}

type NATSConfig struct {
	Enabled    bool   `yaml:"enabled"`
	URL        string `yaml:"url"`
	ClusterID  string `yaml:"cluster_id"`
	ClientID   string `yaml:"client_id"`
	Subject    string `yaml:"subject"`
	Durable    string `yaml:"durable"`
	QueueGroup string `yaml:"queue_group"`
}

type LogConfig struct {
	Env   string `yaml:"env"`
	Level string `yaml:"level"`
}

// Default returns settings that run the service with the seeded in-memory
// backend and no broker.
func Default() Config {
	return Config{
		HTTP: HTTPConfig{Addr: ":8080", ShutdownTimeout: 5 * time.Second},
		Storage: StorageConfig{
			Driver:       DriverMemory,
			SQLitePath:   "catalog.db",
			SeedExamples: true,
		},
		Redis: RedisConfig{Addr: "localhost:6379", Prefix: "catalog"},
		NATS: NATSConfig{
			URL:        "nats://localhost:4223",
			ClusterID:  "catalog-cluster",
			Subject:    "devices",
			Durable:    "catalog-durable",
			QueueGroup: "catalog-workers",
		},
		Log: LogConfig{Env: "dev", Level: "info"},
	}
}

// LoadDotEnv loads the given .env files; missing files are skipped.
func LoadDotEnv(files ...string) error {
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("config: loading %s: %w", f, err)
		}
	}
	return nil
}

// Load builds the configuration. An empty path skips the YAML file.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: reading %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parsing %s: %w", path, err)
		}
	}
	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	cfg.Storage.Driver = strings.ToLower(strings.TrimSpace(cfg.Storage.Driver))
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	setString(&cfg.HTTP.Addr, "HTTP_ADDR")
	setString(&cfg.Storage.Driver, "STORAGE_DRIVER")
	setString(&cfg.Storage.SQLitePath, "SQLITE_PATH")
	setString(&cfg.Storage.DatabaseURL, "DATABASE_URL")
	setString(&cfg.Redis.Addr, "REDIS_ADDR")
	setString(&cfg.Redis.Password, "REDIS_PASSWORD")
	setString(&cfg.Redis.Prefix, "REDIS_PREFIX")
	setString(&cfg.NATS.URL, "NATS_URL")
	setString(&cfg.NATS.ClusterID, "STAN_CLUSTER_ID")
	setString(&cfg.NATS.ClientID, "STAN_CLIENT_ID")
	setString(&cfg.NATS.Subject, "STAN_SUBJECT")
	setString(&cfg.NATS.Durable, "STAN_DURABLE")
	setString(&cfg.Log.Env, "LOG_ENV")
	setString(&cfg.Log.Level, "LOG_LEVEL")

	var errs []error
	errs = append(errs,
		setDuration(&cfg.HTTP.ShutdownTimeout, "HTTP_SHUTDOWN_TIMEOUT"),
		setInt(&cfg.Redis.DB, "REDIS_DB"),
		setBool(&cfg.Storage.SeedExamples, "SEED_EXAMPLES"),
		setBool(&cfg.Cache.Enabled, "CACHE_ENABLED"),
		setDuration(&cfg.Cache.TTL, "CACHE_TTL"),
		setBool(&cfg.NATS.Enabled, "NATS_ENABLED"),
	)
	return errors.Join(errs...)
}

// Validate rejects unknown drivers, drivers without a location and a
// non-expiring cache in front of a backend other instances can write to.
func (c Config) Validate() error {
	switch c.Storage.Driver {
	case DriverMemory:
	case DriverSQLite:
		if c.Storage.SQLitePath == "" {
			return errors.New("config: sqlite driver needs SQLITE_PATH")
		}
	case DriverPostgres:
		if c.Storage.DatabaseURL == "" {
			return errors.New("config: postgres driver needs DATABASE_URL")
		}
	case DriverRedis:
		if c.Redis.Addr == "" {
			return errors.New("config: redis driver needs REDIS_ADDR")
		}
	default:
		return fmt.Errorf("config: unknown storage driver %q", c.Storage.Driver)
	}
	shared := c.Storage.Driver == DriverPostgres || c.Storage.Driver == DriverRedis
	if c.Cache.Enabled && shared && c.Cache.TTL <= 0 {
		return fmt.Errorf("config: cache in front of %s needs a positive CACHE_TTL", c.Storage.Driver)
	}
	if c.NATS.Enabled && (c.NATS.URL == "" || c.NATS.ClusterID == "" || c.NATS.Subject == "") {
		return errors.New("config: nats needs NATS_URL, STAN_CLUSTER_ID and STAN_SUBJECT")
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setBool(dst *bool, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("config: %s: %w", key, err)
	}
	*dst = b
	return nil
}

func setInt(dst *int, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("config: %s: %w", key, err)
	}
	*dst = n
	return nil
}

func setDuration(dst *time.Duration, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("config: %s: %w", key, err)
	}
	*dst = d
	return nil
}
