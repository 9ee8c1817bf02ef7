// Package config loads the service configuration: YAML file, then a .env
// file, then MMVALUE_* environment variables, each layer overriding the last.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/sawpanic/mmvalue/internal/config/tuning"
	"github.com/sawpanic/mmvalue/internal/config/weights"
)

// EnvPrefix prefixes every environment override
const EnvPrefix = "MMVALUE_"

// Config is the complete service configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Cache     CacheConfig     `yaml:"cache"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Backoff   BackoffConfig   `yaml:"backoff"`
	Paths     PathsConfig     `yaml:"paths"`
	LogLevel  string          `yaml:"log_level"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Host           string        `yaml:"host"`
	Port           int           `yaml:"port"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	IdleTimeout    time.Duration `yaml:"idle_timeout"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// Addr returns host:port
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// CacheConfig selects the result cache backend
type CacheConfig struct {
	Backend   string        `yaml:"backend"` // "memory", "redis" or "none"
	RedisAddr string        `yaml:"redis_addr"`
	RedisDB   int           `yaml:"redis_db"`
	Prefix    string        `yaml:"prefix"`
	TTL       time.Duration `yaml:"ttl"`
	OpTimeout time.Duration `yaml:"op_timeout"`
}

// RateLimitConfig is the per-client token bucket of the API
type RateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

// BackoffConfig bounds start-up retries against Redis
type BackoffConfig struct {
	Initial    time.Duration `yaml:"initial"`
	Max        time.Duration `yaml:"max"`
	MaxElapsed time.Duration `yaml:"max_elapsed"`
}

// PathsConfig points at the optional tuning and weights files
type PathsConfig struct {
	Tuning  string `yaml:"tuning"`
	Weights string `yaml:"weights"`
}

// Default returns local-only defaults with an in-memory cache
func Default() Config {
	return Config{
		Server: ServerConfig{
			Host:           "127.0.0.1",
			Port:           8080,
			ReadTimeout:    10 * time.Second,
			WriteTimeout:   10 * time.Second,
			IdleTimeout:    60 * time.Second,
			RequestTimeout: 5 * time.Second,
		},
		Cache: CacheConfig{
			Backend:   "memory",
			RedisAddr: "localhost:6379",
			Prefix:    "mmvalue:",
			TTL:       15 * time.Minute,
			OpTimeout: 500 * time.Millisecond,
		},
		RateLimit: RateLimitConfig{RPS: 10, Burst: 20},
		Backoff: BackoffConfig{
			Initial:    200 * time.Millisecond,
			Max:        5 * time.Second,
			MaxElapsed: 30 * time.Second,
		},
		Paths: PathsConfig{
			Tuning:  tuning.DefaultConfigPath(),
			Weights: weights.DefaultConfigPath(),
		},
		LogLevel: "info",
	}
}

// Load reads path (a missing file keeps the defaults), the .env file in the
// working directory if present, then MMVALUE_* overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			log.Debug().Str("path", path).Msg("No config file, using defaults")
		case err != nil:
			return nil, fmt.Errorf("failed to read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		}
	}

	if err := godotenv.Load(); err != nil {
		log.Debug().Msg(".env file not found, relying on actual environment variables")
	}

	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

func applyEnv(cfg *Config) error {
	str := func(key string, dst *string) {
		if v, ok := os.LookupEnv(EnvPrefix + key); ok && v != "" {
			*dst = v
		}
	}
	var firstErr error
	num := func(key string, set func(string) error) {
		if v, ok := os.LookupEnv(EnvPrefix + key); ok && v != "" {
			if err := set(v); err != nil && firstErr == nil {
				firstErr = fmt.Errorf("%s%s: %w", EnvPrefix, key, err)
			}
		}
	}

	str("HOST", &cfg.Server.Host)
	num("PORT", func(v string) (err error) { cfg.Server.Port, err = strconv.Atoi(v); return })
	str("CACHE_BACKEND", &cfg.Cache.Backend)
	str("REDIS_ADDR", &cfg.Cache.RedisAddr)
	num("REDIS_DB", func(v string) (err error) { cfg.Cache.RedisDB, err = strconv.Atoi(v); return })
	num("CACHE_TTL", func(v string) (err error) { cfg.Cache.TTL, err = time.ParseDuration(v); return })
	num("RATE_LIMIT_RPS", func(v string) (err error) { cfg.RateLimit.RPS, err = strconv.ParseFloat(v, 64); return })
	num("RATE_LIMIT_BURST", func(v string) (err error) { cfg.RateLimit.Burst, err = strconv.Atoi(v); return })
	str("TUNING_FILE", &cfg.Paths.Tuning)
	str("WEIGHTS_FILE", &cfg.Paths.Weights)
	str("LOG_LEVEL", &cfg.LogLevel)

	return firstErr
}

// Validate ensures the configuration is usable
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.RequestTimeout <= 0 {
		return fmt.Errorf("server request_timeout must be positive, got %s", c.Server.RequestTimeout)
	}

	switch c.Cache.Backend {
	case "memory", "none":
	case "redis":
		if c.Cache.RedisAddr == "" {
			return fmt.Errorf("cache redis_addr cannot be empty with the redis backend")
		}
	default:
		return fmt.Errorf("unknown cache backend %q", c.Cache.Backend)
	}
	if c.Cache.TTL < 0 {
		return fmt.Errorf("cache ttl cannot be negative, got %s", c.Cache.TTL)
	}

	if c.RateLimit.RPS <= 0 {
		return fmt.Errorf("rate_limit rps must be positive, got %g", c.RateLimit.RPS)
	}
	if c.RateLimit.Burst < 1 {
		return fmt.Errorf("rate_limit burst must be at least 1, got %d", c.RateLimit.Burst)
	}

	if c.Backoff.Initial <= 0 || c.Backoff.Max < c.Backoff.Initial {
		return fmt.Errorf("backoff max (%s) must be >= initial (%s) > 0", c.Backoff.Max, c.Backoff.Initial)
	}
	return nil
}
