// Package main provides the trust data hub server entry point. The hub
// manages versioned reference datasets (administrative divisions, roads,
// POIs), validates and publishes snapshots, and serves namespace-isolated
// queries and validation evidence.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/golang/glog"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/addressgov/trust-data-hub/pkg/audit"
	"github.com/addressgov/trust-data-hub/pkg/hub"
	"github.com/addressgov/trust-data-hub/pkg/hub/ingest"
	"github.com/addressgov/trust-data-hub/pkg/tenancy"
)

func main() {
	var (
		listenAddr    string
		databaseType  string
		databaseDSN   string
		bootstrapPath string
		tenancyMode   string
		fetchTimeout  time.Duration
	)

	flag.StringVar(&listenAddr, "listen", ":8080", "Address to listen on")
	flag.StringVar(&databaseType, "db-type", "postgres", "Database type (postgres, mysql or sqlite)")
	flag.StringVar(&databaseDSN, "db-dsn", "", "Database connection string (empty runs the in-memory store)")
	flag.StringVar(&bootstrapPath, "bootstrap", "", "Path to a bootstrap sources YAML file")
	flag.StringVar(&tenancyMode, "tenancy-mode", "namespace", "Tenancy mode (single or namespace)")
	flag.DurationVar(&fetchTimeout, "fetch-timeout", 20*time.Second, "HTTP fetch timeout for remote sources")
	flag.Parse()

	// Initialize glog for backwards compatibility
	_ = flag.Set("logtostderr", "true")

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if databaseDSN == "" {
		databaseDSN = os.Getenv("TRUSTHUB_DATABASE_DSN")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	var (
		meta    hub.MetaStore
		index   hub.IndexStore
		backend string
	)
	if databaseDSN == "" {
		logger.Warn("no database DSN configured, running with the in-memory store; data will not survive restarts")
		mem := hub.NewMemoryStore()
		meta, index, backend = mem, mem, hub.BackendMemory
	} else {
		gormDB, err := openDatabase(databaseType, databaseDSN)
		if err != nil {
			glog.Fatalf("Failed to connect to database: %v", err)
		}
		metaStore, err := hub.NewGormMetaStore(gormDB)
		if err != nil {
			glog.Fatalf("Failed to set up meta store: %v", err)
		}
		indexStore, err := hub.NewGormIndexStore(gormDB)
		if err != nil {
			glog.Fatalf("Failed to set up index store: %v", err)
		}
		meta, index, backend = metaStore, indexStore, databaseType
		logger.Info("connected to database", "type", databaseType)
	}

	fetcher := ingest.NewFetcher(fetchTimeout)
	repo := hub.NewRepository(meta, index, fetcher, backend, logger)

	if bootstrapPath != "" {
		cfg, err := hub.LoadBootstrapConfig(bootstrapPath)
		if err != nil {
			glog.Fatalf("Failed to load bootstrap config: %v", err)
		}
		if err := repo.ApplyBootstrap(ctx, cfg); err != nil {
			glog.Fatalf("Failed to apply bootstrap config: %v", err)
		}
		logger.Info("registered bootstrap sources", "count", len(cfg.Sources))
	}

	retentionCfg := audit.RetentionConfigFromEnv()
	if retentionCfg.Enabled {
		worker := audit.NewRetentionWorker(repo, retentionCfg.RetentionDays, logger)
		go worker.Run(ctx)
	}

	router := chi.NewRouter()
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", tenancy.NamespaceHeader, tenancy.ActorHeader},
	}))
	router.Handle("/metrics", promhttp.Handler())
	router.Group(func(r chi.Router) {
		r.Use(tenancy.NewMiddleware(tenancy.TenancyMode(tenancyMode)))
		r.Mount("/api/v1", hub.NewRouter(repo))
	})

	logger.Info("trust data hub ready",
		"listen", listenAddr,
		"backend", backend,
		"tenancyMode", tenancyMode,
	)

	httpServer := &http.Server{
		Addr:    listenAddr,
		Handler: router,
	}

	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			glog.Fatalf("HTTP server error: %v", err)
		}
	}()

	<-ctx.Done()

	logger.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", "error", err)
	}

	logger.Info("trust data hub stopped")
}

func openDatabase(dbType, dsn string) (*gorm.DB, error) {
	cfg := &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	}
	switch dbType {
	case "postgres":
		return gorm.Open(postgres.Open(dsn), cfg)
	case "mysql":
		return gorm.Open(mysql.Open(dsn), cfg)
	case "sqlite":
		return gorm.Open(sqlite.Open(dsn), cfg)
	default:
		return nil, fmt.Errorf("unsupported database type %q (expected postgres, mysql or sqlite)", dbType)
	}
}
