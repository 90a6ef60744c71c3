// cmd/server/main.go
package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"mediatheque/internal/api"
	"mediatheque/internal/journal"
	"mediatheque/internal/lifecycle"
	"mediatheque/internal/platform/config"
	"mediatheque/internal/platform/httpserver"
	"mediatheque/internal/platform/logger"
	"mediatheque/internal/platform/telemetry"
	"mediatheque/internal/recordstore"
)

func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	log := logger.New(cfg.LogLevel)
	slog.SetDefault(log)

	if err := run(cfg, log); err != nil {
		log.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Server, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, cfg.OTLPEndpoint, cfg.ServiceName)
	if err != nil {
		return err
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			log.Warn("tracer shutdown failed", "error", err)
		}
	}()

	backend, err := openBackend(ctx, cfg)
	if err != nil {
		return err
	}
	store := recordstore.NewStore(backend)
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := store.Close(closeCtx); err != nil {
			log.Warn("store close failed", "error", err)
		}
	}()
	log.Info("record store ready", "backend", cfg.StoreBackend, "database", cfg.MongoDatabase)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	opts := []lifecycle.Option{
		lifecycle.WithLogger(log),
		lifecycle.WithMetrics(lifecycle.NewMetrics(reg)),
	}
	if cfg.JournalDSN != "" {
		db, err := sql.Open("postgres", cfg.JournalDSN)
		if err != nil {
			return err
		}
		defer db.Close()

		j := journal.New(db)
		if err := j.EnsureSchema(ctx); err != nil {
			return err
		}
		opts = append(opts, lifecycle.WithJournal(j))
		log.Info("journal enabled")
	}

	svc := lifecycle.NewService(store, opts...)
	router := api.NewRouter(api.NewHandler(svc, log), log, api.RouterConfig{
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
		Gatherer:       reg,
		Metrics:        api.NewMetrics(reg),
	})

	srv := httpserver.New(cfg.Addr, router)
	errCh := make(chan error, 1)
	go func() {
		log.Info("starting mediatheque api", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func openBackend(ctx context.Context, cfg config.Server) (recordstore.Backend, error) {
	if cfg.StoreBackend == config.BackendMemory {
		return recordstore.NewMemoryBackend(), nil
	}
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return recordstore.OpenMongo(connectCtx, cfg.MongoURI, cfg.MongoDatabase)
}
