package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/remedystack/remedy-engine/internal/advisory"
	"github.com/remedystack/remedy-engine/internal/api"
	"github.com/remedystack/remedy-engine/internal/catalog"
	"github.com/remedystack/remedy-engine/internal/config"
	"github.com/remedystack/remedy-engine/internal/engine"
	"github.com/remedystack/remedy-engine/internal/metrics"
	"github.com/remedystack/remedy-engine/internal/store"
	"github.com/remedystack/remedy-engine/internal/utils"
	"github.com/remedystack/remedy-engine/internal/workflow"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Error("failed to load config", slog.String("path", configPath), slog.Any("error", err))
		os.Exit(1)
	}

	logger := utils.NewLogger(cfg.Logging.Level, cfg.Logging.JSON)
	logger.Info("starting remedy-engine", slog.String("address", cfg.Server.Address))

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		logger.Error("failed to register metrics", slog.Any("error", err))
		os.Exit(1)
	}

	var stateStore store.Store
	switch cfg.Store.Backend {
	case "", "memory":
		stateStore = store.NewMemoryStore()
	case "sqlite":
		sqliteStore, err := store.NewSQLiteStore(cfg.Store.DSN)
		if err != nil {
			logger.Error("failed to open sqlite store", slog.Any("error", err))
			os.Exit(1)
		}
		stateStore = sqliteStore
	default:
		logger.Error("unknown store backend", slog.String("backend", cfg.Store.Backend))
		os.Exit(1)
	}
	defer stateStore.Close()

	playbooks, err := catalog.Load(cfg.Catalog.Path, logger)
	if err != nil {
		logger.Error("failed to load playbook catalog", slog.Any("error", err))
		os.Exit(1)
	}

	var reranker advisory.Reranker
	if cfg.Advisory.Enabled && cfg.Advisory.BaseURL != "" {
		reranker = advisory.NewHTTPReranker(cfg.Advisory.BaseURL, cfg.Advisory.Path, cfg.Advisory.Timeout)
		logger.Info("advisory re-ranking enabled", slog.String("base_url", cfg.Advisory.BaseURL))
	}

	ranker := engine.NewRanker(playbooks, reranker, cfg.Advisory.TopN, logger)
	wfEngine := workflow.New(stateStore, playbooks, ranker, cfg.Workflow, logger)

	server := api.NewServer(cfg.Server.Address, wfEngine, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var metricsServer *http.Server
	if cfg.Server.MetricsAddress != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsServer = &http.Server{
			Addr:         cfg.Server.MetricsAddress,
			Handler:      mux,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 15 * time.Second,
		}
		go func() {
			logger.Info("metrics server listening", slog.String("address", cfg.Server.MetricsAddress))
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server exited", slog.Any("error", err))
				stop()
			}
		}()
	}

	go func() {
		if serveErr := server.Start(); serveErr != nil {
			logger.Error("api server exited", slog.Any("error", serveErr))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("api server shutdown", slog.Any("error", err))
	}

	if metricsServer != nil {
		metricsCtx, cancelMetrics := context.WithTimeout(context.Background(), 5*time.Second)
		if err := metricsServer.Shutdown(metricsCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics server shutdown", slog.Any("error", err))
		}
		cancelMetrics()
	}

	// Give remaining goroutines time to finish logging
	time.Sleep(100 * time.Millisecond)
	logger.Info("remedy-engine stopped")
}
