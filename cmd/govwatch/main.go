// Package main watches governance parameter changes: it polls the
// indexer's gov-set event feeds on a schedule, delivers webhook
// notifications for new events, and persists per-event-type watermarks
// so restarts never re-notify.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"lending-risk-monitor/internal/config"
	"lending-risk-monitor/internal/domain"
	"lending-risk-monitor/internal/governance"
	"lending-risk-monitor/internal/indexer"
	"lending-risk-monitor/internal/observability"
	"lending-risk-monitor/internal/scheduler"
	"lending-risk-monitor/internal/storage/memory"
	"lending-risk-monitor/internal/storage/migrations"
	pgstore "lending-risk-monitor/internal/storage/postgres"
	"lending-risk-monitor/pkg/logger"
)

// pollJob adapts the governance poller to the scheduler.
type pollJob struct {
	poller *governance.Poller
}

func (j *pollJob) Name() string { return "governance-poll" }

func (j *pollJob) Run(ctx context.Context) error {
	result := j.poller.Poll(ctx)
	if len(result.Errors) > 0 {
		observability.RecordGovPoll("error")
		return fmt.Errorf("%d poll targets failed, first: %s", len(result.Errors), result.Errors[0])
	}
	observability.RecordGovPoll("ok")
	return nil
}

func main() {
	configPath := flag.String("config", "", "path to yaml config file")
	once := flag.Bool("once", false, "run a single poll cycle and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if cfg.GovWebhookURL == "" {
		fmt.Fprintln(os.Stderr, "Error: GOV_WEBHOOK_URL is required")
		os.Exit(1)
	}

	log := logger.New(logger.Config{Level: cfg.LogLevel, Pretty: cfg.LogPretty})
	logger.SetGlobalLogger(log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client := indexer.NewClient(cfg.IndexerBaseURL, cfg.IndexerAPIKey)
	notifier := governance.NewWebhookNotifier(cfg.GovWebhookURL, log)

	store, cleanup, err := setupStateStore(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to set up state store")
	}
	defer cleanup()

	if cfg.GovStartBlock > 0 {
		if err := seedWatermarks(ctx, store, cfg.GovStartBlock); err != nil {
			log.Fatal().Err(err).Msg("Failed to seed watermarks")
		}
	}

	poller := governance.NewPoller(governance.PollerOptions{
		Source:   client,
		Store:    store,
		Notifier: notifier,
		Logger:   log,
	})

	job := &pollJob{poller: poller}

	if *once {
		if err := job.Run(ctx); err != nil {
			log.Error().Err(err).Msg("Poll cycle had failures")
			os.Exit(1)
		}
		return
	}

	sched := scheduler.New(ctx, log)
	if err := sched.AddJob(cfg.GovSchedule, job); err != nil {
		log.Fatal().Err(err).Str("schedule", cfg.GovSchedule).Msg("Invalid schedule")
	}
	sched.Start()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	log.Info().Str("signal", sig.String()).Msg("Received signal, stopping")

	cancel()
	sched.Stop()
	log.Info().Msg("Shutdown complete")
}

// seedWatermarks raises unset watermarks to startBlock so a fresh
// deployment does not replay the whole governance history.
func seedWatermarks(ctx context.Context, store governance.StateStore, startBlock int64) error {
	for _, et := range domain.AllGovEventTypes {
		last, err := store.LastSeen(ctx, et)
		if err != nil {
			return err
		}
		if last == 0 {
			if err := store.SetLastSeen(ctx, et, startBlock); err != nil {
				return err
			}
		}
	}
	return nil
}

// setupStateStore picks the watermark store: PostgreSQL when a DSN is
// configured, otherwise an in-memory store that re-notifies from the
// start block on every restart.
func setupStateStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) (governance.StateStore, func(), error) {
	cleanup := func() {}

	if cfg.PostgresDSN == "" || cfg.UseMemory {
		log.Warn().Msg("Using in-memory watermarks; restarts will re-notify old events")
		return memory.NewGovStateStore(), cleanup, nil
	}

	pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, cleanup, fmt.Errorf("connect postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, cleanup, fmt.Errorf("postgres migrations: %w", err)
	}
	log.Info().Msg("Watermarks backed by PostgreSQL")
	return pgstore.NewGovStateStore(pool), func() { pool.Close() }, nil
}
