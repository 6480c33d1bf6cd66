package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	for _, key := range []string{
		"CAUSEWAY_ADDR", "CAUSEWAY_LOG_LEVEL", "CAUSEWAY_LOG_FORMAT", "CAUSEWAY_ID_BACKEND",
		"CAUSEWAY_ID_BATCH_SIZE", "CAUSEWAY_STRICT_REMAP", "CAUSEWAY_ID_FLOOR", "CAUSEWAY_ID_SEQUENCES",
		"REDIS_URL", "REDIS_POOL_SIZE", "REDIS_MIN_IDLE_CONNS", "REDIS_DIAL_TIMEOUT", "DATABASE_URL",
	} {
		t.Setenv(key, "")
	}

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("CAUSEWAY_ADDR", ":9090")
	t.Setenv("CAUSEWAY_LOG_LEVEL", "debug")
	t.Setenv("CAUSEWAY_LOG_FORMAT", "TEXT")
	t.Setenv("CAUSEWAY_ID_BACKEND", "redis")
	t.Setenv("CAUSEWAY_ID_BATCH_SIZE", "200")
	t.Setenv("CAUSEWAY_STRICT_REMAP", "true")
	t.Setenv("CAUSEWAY_ID_FLOOR", "5000")
	t.Setenv("CAUSEWAY_ID_SEQUENCES", "Invoice, Customer,,Invoice")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("REDIS_DIAL_TIMEOUT", "250ms")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Addr)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, IDBackendRedis, cfg.IDBackend)
	assert.Equal(t, 200, cfg.IDBatchSize)
	assert.True(t, cfg.StrictRemap)
	assert.Equal(t, int64(5000), cfg.IDFloor)
	assert.Equal(t, []string{"Invoice", "Customer"}, cfg.IDSequences)
	assert.Equal(t, 250*time.Millisecond, cfg.Redis.DialTimeout)
}

func TestFromEnvRejectsMalformedValues(t *testing.T) {
	t.Run("batch size", func(t *testing.T) {
		t.Setenv("CAUSEWAY_ID_BATCH_SIZE", "many")
		_, err := FromEnv()
		assert.ErrorContains(t, err, "CAUSEWAY_ID_BATCH_SIZE")
	})
	t.Run("id floor", func(t *testing.T) {
		t.Setenv("CAUSEWAY_ID_FLOOR", "1e3")
		_, err := FromEnv()
		assert.ErrorContains(t, err, "CAUSEWAY_ID_FLOOR")
	})
	t.Run("log level", func(t *testing.T) {
		t.Setenv("CAUSEWAY_LOG_LEVEL", "loud")
		_, err := FromEnv()
		assert.ErrorContains(t, err, "CAUSEWAY_LOG_LEVEL")
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Server)
		wantErr string
	}{
		{name: "defaults are valid", mutate: func(*Server) {}},
		{name: "empty address", mutate: func(s *Server) { s.Addr = "" }, wantErr: "address is required"},
		{name: "unknown log format", mutate: func(s *Server) { s.LogFormat = "xml" }, wantErr: "unknown log format"},
		{name: "zero batch", mutate: func(s *Server) { s.IDBatchSize = 0 }, wantErr: "batch size must be positive"},
		{name: "redis without url", mutate: func(s *Server) { s.IDBackend = IDBackendRedis }, wantErr: "REDIS_URL"},
		{name: "postgres without url", mutate: func(s *Server) { s.IDBackend = IDBackendPostgres }, wantErr: "DATABASE_URL"},
		{name: "negative floor", mutate: func(s *Server) { s.IDFloor = -1 }, wantErr: "must not be negative"},
		{name: "floor without sequences", mutate: func(s *Server) { s.IDFloor = 10 }, wantErr: "CAUSEWAY_ID_SEQUENCES"},
		{name: "unknown backend", mutate: func(s *Server) { s.IDBackend = "etcd" }, wantErr: "unknown id backend"},
		{
			name: "postgres with url",
			mutate: func(s *Server) {
				s.IDBackend = IDBackendPostgres
				s.DatabaseURL = "postgres://localhost/causeway"
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}
