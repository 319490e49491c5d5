// Package main runs the risk monitor dashboard: an HTTP API serving
// point-in-time snapshot views, position health, archived summaries,
// and governance passthroughs, plus a Prometheus metrics endpoint.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"lending-risk-monitor/internal/config"
	"lending-risk-monitor/internal/evcache"
	"lending-risk-monitor/internal/indexer"
	"lending-risk-monitor/internal/observability"
	"lending-risk-monitor/internal/server"
	"lending-risk-monitor/internal/snapshot"
	"lending-risk-monitor/internal/storage"
	chstore "lending-risk-monitor/internal/storage/clickhouse"
	"lending-risk-monitor/internal/storage/memory"
	"lending-risk-monitor/internal/storage/migrations"
	pgstore "lending-risk-monitor/internal/storage/postgres"
	"lending-risk-monitor/pkg/logger"

	"github.com/rs/zerolog"
)

func main() {
	configPath := flag.String("config", "", "path to yaml config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{Level: cfg.LogLevel, Pretty: cfg.LogPretty})
	logger.SetGlobalLogger(log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client := indexer.NewClient(cfg.IndexerBaseURL, cfg.IndexerAPIKey)
	cache := evcache.New(client, log, evcache.WithTTL(cfg.CacheTTL))

	orch := snapshot.New(snapshot.Options{
		Source:         client,
		Cache:          cache,
		AmountDecimals: int32(cfg.AmountDecimals),
		PageSize:       cfg.PageSize,
		MaxPages:       cfg.MaxPages,
		Concurrency:    cfg.Concurrency,
		Logger:         log,
	})

	archive, series, cleanup, err := setupStores(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to set up stores")
	}
	defer cleanup()

	srv := server.New(server.Config{
		Port:         cfg.Port,
		Log:          log,
		Orchestrator: orch,
		Cache:        cache,
		Indexer:      client,
		Archive:      archive,
		Series:       series,
	})

	// Metrics on a separate listener so the API port stays clean.
	var metricsSrv *http.Server
	if cfg.MetricsAddr != "" {
		metricsSrv = &http.Server{Addr: cfg.MetricsAddr, Handler: observability.Handler()}
		go func() {
			log.Info().Str("addr", cfg.MetricsAddr).Msg("Starting metrics server")
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error().Err(err).Msg("Metrics server failed")
			}
		}()
	}

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("HTTP server failed")
			cancel()
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("Received signal, initiating graceful shutdown")
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server shutdown failed")
	}
	if metricsSrv != nil {
		_ = metricsSrv.Shutdown(shutdownCtx)
	}
	log.Info().Msg("Shutdown complete")
}

// setupStores wires the optional persistence layer. With no DSNs and
// use_memory unset the dashboard runs without archive endpoints.
func setupStores(ctx context.Context, cfg *config.Config, log zerolog.Logger) (storage.SummaryArchiveStore, storage.RangeSeriesStore, func(), error) {
	cleanup := func() {}

	if cfg.UseMemory {
		log.Info().Msg("Using in-memory stores")
		return memory.NewSummaryArchiveStore(), memory.NewRangeSeriesStore(), cleanup, nil
	}

	var (
		archive storage.SummaryArchiveStore
		series  storage.RangeSeriesStore
		pool    *pgstore.Pool
		conn    *chstore.Conn
	)

	if cfg.PostgresDSN != "" {
		var err error
		pool, err = pgstore.NewPool(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, nil, cleanup, fmt.Errorf("connect postgres: %w", err)
		}
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, cleanup, fmt.Errorf("postgres migrations: %w", err)
		}
		archive = pgstore.NewSummaryArchiveStore(pool)
		log.Info().Msg("Summary archive backed by PostgreSQL")
	}

	if cfg.ClickhouseDSN != "" {
		var err error
		conn, err = migrations.RunClickhouseMigrations(ctx, cfg.ClickhouseDSN)
		if err != nil {
			if pool != nil {
				pool.Close()
			}
			return nil, nil, cleanup, fmt.Errorf("clickhouse migrations: %w", err)
		}
		series = chstore.NewRangeSeriesStore(conn)
		log.Info().Msg("Summary series backed by ClickHouse")
	}

	cleanup = func() {
		if pool != nil {
			pool.Close()
		}
		if conn != nil {
			_ = conn.Close()
		}
	}
	return archive, series, cleanup, nil
}
