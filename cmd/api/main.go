package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/geocoder89/userreg/internal/config"
	"github.com/geocoder89/userreg/internal/db"
	httpx "github.com/geocoder89/userreg/internal/http"
	"github.com/geocoder89/userreg/internal/observability"
	"github.com/geocoder89/userreg/internal/repo/memory"
	"github.com/geocoder89/userreg/internal/repo/postgres"
	"github.com/geocoder89/userreg/internal/security"
	"github.com/geocoder89/userreg/web"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	// Load the config set up
	cfg := config.Load()

	// start up the observability logger
	log := observability.NewLogger(cfg.Env)
	slog.SetDefault(log)

	tracing := false
	if cfg.OTelEndpoint != "" {
		shutdownTracer, err := observability.InitTracer(context.Background(), observability.TracerConfig{
			ServiceName: "userreg-api",
			Environment: cfg.Env,
			Endpoint:    cfg.OTelEndpoint,
			SampleRatio: cfg.OTelSampleRatio,
		})
		if err != nil {
			log.Error("tracer init failed", "err", err)
		} else {
			tracing = true
			defer func() {
				ctx, cancel := config.WithTimeout(5 * time.Second)
				defer cancel()
				_ = shutdownTracer(ctx)
			}()
		}
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	prom := observability.NewProm(reg)

	store, closeStore, err := openStore(cfg, prom, log)
	if err != nil {
		log.Error("store init failed", "driver", cfg.StoreDriver, "err", err)
		os.Exit(1)
	}
	defer closeStore()

	static, err := staticFiles(cfg.StaticDir)
	if err != nil {
		log.Error("static dir unusable", "dir", cfg.StaticDir, "err", err)
		os.Exit(1)
	}

	router := httpx.NewRouter(log, httpx.Deps{
		Store:    store,
		Hasher:   security.NewHasher(cfg.BcryptCost, cfg.HashConcurrency),
		Prom:     prom,
		Gatherer: reg,
		Tracing:  tracing,
		Static:   static,
		OpenAPI:  web.OpenAPISpec,
	}, cfg)

	// server set up
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("Server starting", "port", cfg.Port, "env", cfg.Env, "store", cfg.StoreDriver)
		err := srv.ListenAndServe()

		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Graceful shutdown

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Info("server shutting down")
	case err := <-serverErr:
		log.Error("server failed", "err", err)
		closeStore()
		os.Exit(1)
	}

	shutdownCh := make(chan struct{})

	go func() {
		defer close(shutdownCh)

		ctx, cancel := config.WithTimeout(10 * time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Error("graceful shutdown failed", "err", err)
		}
	}()

	select {
	case <-shutdownCh:
		log.Info("shutdown complete")

	case <-time.After(12 * time.Second):
		log.Error("shutdown timed out")
	}
}

func openStore(cfg config.Config, prom *observability.Prom, log *slog.Logger) (httpx.Store, func(), error) {
	switch cfg.StoreDriver {
	case config.StoreDriverMemory:
		log.Warn("using in-memory store, data is lost on restart")
		return memory.NewUsersRepo(), func() {}, nil

	case config.StoreDriverPostgres:
		if cfg.DBURL == "" {
			return nil, nil, errors.New("no database configured: set DATABASE_URL or DB_* variables")
		}

		pool, err := db.NewPool(cfg.DBURL, db.PoolOptions{
			MaxConns:    cfg.DBMaxConns,
			InsecureTLS: cfg.DBInsecureTLS,
		})
		if err != nil {
			return nil, nil, err
		}

		if cfg.DBAutoSchema {
			ctx, cancel := config.WithTimeout(10 * time.Second)
			defer cancel()

			if err := db.EnsureUsersTable(ctx, pool); err != nil {
				pool.Close()
				return nil, nil, err
			}
			log.Info("users table ensured")
		}

		return postgres.NewUsersRepo(pool, prom), pool.Close, nil
	}

	return nil, nil, fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
}

func staticFiles(dir string) (fs.FS, error) {
	if dir == "" {
		return web.Static(), nil
	}

	info, err := os.Stat(dir)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", dir)
	}

	return os.DirFS(dir), nil
}
