package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the crimecluster server.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Worker   WorkerConfig
}

type ServerConfig struct {
	Port           int
	Env            string
	RequestsPerMin int
}

type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	URL string
}

// WorkerConfig drives the polling job worker and the expiry sweeper.
type WorkerConfig struct {
	PollInterval  time.Duration
	SweepInterval time.Duration
	ExpireAfter   time.Duration
	LockTTL       time.Duration
}

// Load reads configuration from environment variables and returns a validated
// Config. Returns an error with a descriptive message if any required value
// is missing or invalid.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:           envInt("CRIMECLUSTER_PORT", 8080),
			Env:            envString("CRIMECLUSTER_ENV", "development"),
			RequestsPerMin: envInt("CRIMECLUSTER_REQUESTS_PER_MIN", 60),
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    envInt("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: envDuration("DATABASE_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			URL: os.Getenv("REDIS_URL"),
		},
		Worker: WorkerConfig{
			PollInterval:  envDuration("WORKER_POLL_INTERVAL", 15*time.Second),
			SweepInterval: envDuration("WORKER_SWEEP_INTERVAL", 5*time.Minute),
			ExpireAfter:   envDuration("WORKER_EXPIRE_AFTER", 6*time.Hour),
			LockTTL:       envDuration("WORKER_LOCK_TTL", time.Minute),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Redis.URL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}

	if c.Worker.PollInterval <= 0 {
		return fmt.Errorf("WORKER_POLL_INTERVAL must be positive, got %s", c.Worker.PollInterval)
	}
	if c.Worker.SweepInterval <= 0 {
		return fmt.Errorf("WORKER_SWEEP_INTERVAL must be positive, got %s", c.Worker.SweepInterval)
	}
	if c.Worker.ExpireAfter <= 0 {
		return fmt.Errorf("WORKER_EXPIRE_AFTER must be positive, got %s", c.Worker.ExpireAfter)
	}
	if c.Worker.LockTTL < 2*c.Worker.PollInterval {
		return fmt.Errorf("WORKER_LOCK_TTL (%s) must be at least twice WORKER_POLL_INTERVAL (%s)",
			c.Worker.LockTTL, c.Worker.PollInterval)
	}

	return nil
}

func envString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
