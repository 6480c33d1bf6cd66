package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	platformstrings "causeway/pkg/platform/strings"
)

// IDBackend names the store persistent ids are reserved from.
type IDBackend string

const (
	IDBackendMemory   IDBackend = "memory"
	IDBackendRedis    IDBackend = "redis"
	IDBackendPostgres IDBackend = "postgres"
)

// Server captures process level configuration.
type Server struct {
	Addr      string
	LogLevel  slog.Level
	LogFormat string

	IDBackend   IDBackend
	IDBatchSize int
	StrictRemap bool
	// IDFloor, when set, raises the counters of IDSequences at startup.
	IDFloor     int64
	IDSequences []string

	Redis       RedisConfig
	DatabaseURL string
}

// RedisConfig holds connection settings for the redis id allocator.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DefaultConfig is the configuration used when no environment is set.
func DefaultConfig() Server {
	return Server{
		Addr:        ":8080",
		LogLevel:    slog.LevelInfo,
		LogFormat:   "json",
		IDBackend:   IDBackendMemory,
		IDBatchSize: 50,
		Redis: RedisConfig{
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
	}
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() (Server, error) {
	cfg := DefaultConfig()

	if addr := os.Getenv("CAUSEWAY_ADDR"); addr != "" {
		cfg.Addr = addr
	}
	if level := os.Getenv("CAUSEWAY_LOG_LEVEL"); level != "" {
		if err := cfg.LogLevel.UnmarshalText([]byte(level)); err != nil {
			return Server{}, fmt.Errorf("CAUSEWAY_LOG_LEVEL: %w", err)
		}
	}
	if format := os.Getenv("CAUSEWAY_LOG_FORMAT"); format != "" {
		cfg.LogFormat = strings.ToLower(format)
	}
	if backend := os.Getenv("CAUSEWAY_ID_BACKEND"); backend != "" {
		cfg.IDBackend = IDBackend(strings.ToLower(backend))
	}

	var err error
	if cfg.IDBatchSize, err = intEnv("CAUSEWAY_ID_BATCH_SIZE", cfg.IDBatchSize); err != nil {
		return Server{}, err
	}
	cfg.StrictRemap = os.Getenv("CAUSEWAY_STRICT_REMAP") == "true"
	if raw := os.Getenv("CAUSEWAY_ID_FLOOR"); raw != "" {
		if cfg.IDFloor, err = strconv.ParseInt(raw, 10, 64); err != nil {
			return Server{}, fmt.Errorf("CAUSEWAY_ID_FLOOR: %w", err)
		}
	}
	if raw := os.Getenv("CAUSEWAY_ID_SEQUENCES"); raw != "" {
		cfg.IDSequences = platformstrings.DedupeAndTrim(strings.Split(raw, ","))
	}

	cfg.Redis.URL = os.Getenv("REDIS_URL")
	if cfg.Redis.PoolSize, err = intEnv("REDIS_POOL_SIZE", cfg.Redis.PoolSize); err != nil {
		return Server{}, err
	}
	if cfg.Redis.MinIdleConns, err = intEnv("REDIS_MIN_IDLE_CONNS", cfg.Redis.MinIdleConns); err != nil {
		return Server{}, err
	}
	if cfg.Redis.DialTimeout, err = durationEnv("REDIS_DIAL_TIMEOUT", cfg.Redis.DialTimeout); err != nil {
		return Server{}, err
	}
	cfg.DatabaseURL = os.Getenv("DATABASE_URL")

	return cfg, cfg.Validate()
}

// Validate rejects combinations the server cannot start with.
func (s Server) Validate() error {
	var errs []error
	if s.Addr == "" {
		errs = append(errs, errors.New("address is required"))
	}
	if s.LogFormat != "json" && s.LogFormat != "text" {
		errs = append(errs, fmt.Errorf("unknown log format %q", s.LogFormat))
	}
	if s.IDBatchSize <= 0 {
		errs = append(errs, fmt.Errorf("id batch size must be positive, got %d", s.IDBatchSize))
	}
	if s.IDFloor < 0 {
		errs = append(errs, fmt.Errorf("id floor must not be negative, got %d", s.IDFloor))
	}
	if s.IDFloor > 0 && len(s.IDSequences) == 0 {
		errs = append(errs, errors.New("CAUSEWAY_ID_SEQUENCES is required with an id floor"))
	}
	switch s.IDBackend {
	case IDBackendMemory:
	case IDBackendRedis:
		if s.Redis.URL == "" {
			errs = append(errs, errors.New("REDIS_URL is required for the redis id backend"))
		}
	case IDBackendPostgres:
		if s.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for the postgres id backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown id backend %q", s.IDBackend))
	}
	return errors.Join(errs...)
}

func intEnv(key string, fallback int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}
