package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"causeway/internal/identity/generator"
	idmetrics "causeway/internal/identity/metrics"
	memorystore "causeway/internal/identity/store/memory"
	pgstore "causeway/internal/identity/store/postgres"
	redisstore "causeway/internal/identity/store/redis"
	"causeway/internal/inject"
	"causeway/internal/metamodel"
	"causeway/internal/objectcache/factory"
	"causeway/internal/objectcache/handler"
	ocmetrics "causeway/internal/objectcache/metrics"
	"causeway/internal/objectcache/service"
	"causeway/internal/persistence"
	"causeway/internal/persistence/store"
	"causeway/internal/platform/config"
	"causeway/internal/platform/httpserver"
	"causeway/internal/platform/logger"
	"causeway/internal/platform/postgres"
	"causeway/internal/platform/redis"
	"causeway/pkg/platform/httputil"
)

// main wires the id allocator, the session manager and the diagnostics
// server. Domain types register with the metamodel on first use.
func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	alloc, closeAlloc, err := buildAllocator(ctx, cfg, log)
	if err != nil {
		log.Error("id allocator unavailable", "backend", string(cfg.IDBackend), "error", err)
		os.Exit(1)
	}
	defer closeAlloc()
	if err := seedAllocator(ctx, alloc, cfg, log); err != nil {
		log.Error("seed id sequences", "error", err)
		os.Exit(1)
	}

	gen, err := generator.NewSequential(alloc,
		generator.WithLogger(log),
		generator.WithMetrics(idmetrics.New(nil)),
		generator.WithBatchSize(int64(cfg.IDBatchSize)),
	)
	if err != nil {
		log.Error("build id generator", "error", err)
		os.Exit(1)
	}

	manager, err := persistence.NewManager(
		store.NewInMemory(),
		metamodel.NewRegistry(),
		factory.Default{},
		gen,
		inject.New(),
		persistence.WithLogger(log),
		persistence.WithCacheOptions(
			service.WithMetrics(ocmetrics.New(nil)),
			service.WithStrictRemap(cfg.StrictRemap),
		),
	)
	if err != nil {
		log.Error("build session manager", "error", err)
		os.Exit(1)
	}
	defer manager.CloseAll(context.Background())

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())
	handler.New(manager, log).Register(r)

	srv := httpserver.New(cfg.Addr, r)
	go func() {
		log.Info("starting causeway", "addr", cfg.Addr, "id_backend", string(cfg.IDBackend))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
}

func buildAllocator(ctx context.Context, cfg config.Server, log *slog.Logger) (generator.Allocator, func(), error) {
	switch cfg.IDBackend {
	case config.IDBackendRedis:
		client, err := redis.New(ctx, cfg.Redis)
		if err != nil {
			return nil, nil, err
		}
		return redisstore.New(client.Client), func() { _ = client.Close() }, nil
	case config.IDBackendPostgres:
		db, err := postgres.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		alloc := pgstore.New(db)
		if err := alloc.EnsureSchema(ctx); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		return alloc, func() { _ = db.Close() }, nil
	default:
		log.Warn("persistent ids are process local", "backend", string(cfg.IDBackend))
		return memorystore.New(), func() {}, nil
	}
}

// seeder is implemented by every allocator backend.
type seeder interface {
	Seed(ctx context.Context, floor int64, sequences ...string) error
}

// seedAllocator raises the configured sequences to the id floor, so ids
// issued before a migration are never handed out again.
func seedAllocator(ctx context.Context, alloc generator.Allocator, cfg config.Server, log *slog.Logger) error {
	if cfg.IDFloor <= 0 {
		return nil
	}
	sd, ok := alloc.(seeder)
	if !ok {
		return fmt.Errorf("backend %s cannot be seeded", cfg.IDBackend)
	}
	if err := sd.Seed(ctx, cfg.IDFloor, cfg.IDSequences...); err != nil {
		return err
	}
	log.Info("id sequences seeded", "floor", cfg.IDFloor, "sequences", cfg.IDSequences)
	return nil
}
