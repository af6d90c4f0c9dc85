package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the NI-REST server and worker.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Worker   WorkerConfig
	Importer ImporterConfig
}

type ServerConfig struct {
	Port int
	Env  string
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

type WorkerConfig struct {
	// ProbeTimeout bounds the per-dispatch broker/worker availability check.
	// Job execution itself is never subject to a timeout.
	ProbeTimeout time.Duration
	// HeartbeatTTL is how long a worker's liveness key survives without
	// renewal. Heartbeats are renewed at a third of this interval.
	HeartbeatTTL time.Duration
	Concurrency  int
}

type ImporterConfig struct {
	// Binary is the network-importer executable invoked per job.
	Binary string
}

// Load reads configuration from environment variables and returns a validated Config.
// Returns an error with a descriptive message if any required value is missing or invalid.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port: envInt("NIREST_PORT", 8080),
			Env:  envString("NIREST_ENV", "development"),
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
			ProbeTimeout: envDuration("NIREST_PROBE_TIMEOUT", 2*time.Second),
			HeartbeatTTL: envDuration("NIREST_WORKER_HEARTBEAT_TTL", 15*time.Second),
			Concurrency:  envInt("NIREST_WORKER_CONCURRENCY", 2),
		},
		Importer: ImporterConfig{
			Binary: envString("NIREST_IMPORTER_BINARY", "network-importer"),
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

	if c.Worker.ProbeTimeout <= 0 {
		return fmt.Errorf("NIREST_PROBE_TIMEOUT must be positive, got %s", c.Worker.ProbeTimeout)
	}

	if c.Worker.Concurrency < 1 {
		return fmt.Errorf("NIREST_WORKER_CONCURRENCY must be at least 1, got %d", c.Worker.Concurrency)
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
