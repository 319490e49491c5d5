// Package main is the one-shot snapshot CLI. It reconstructs the vault
// universe at a target block (or a block range), writes markdown and
// CSV reports, and optionally archives the summaries.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"lending-risk-monitor/internal/config"
	"lending-risk-monitor/internal/evcache"
	"lending-risk-monitor/internal/indexer"
	"lending-risk-monitor/internal/report"
	"lending-risk-monitor/internal/risk"
	"lending-risk-monitor/internal/snapshot"
	chstore "lending-risk-monitor/internal/storage/clickhouse"
	"lending-risk-monitor/internal/storage/migrations"
	pgstore "lending-risk-monitor/internal/storage/postgres"
	"lending-risk-monitor/pkg/logger"
)

func main() {
	configPath := flag.String("config", "", "path to yaml config file")
	block := flag.Int64("block", 0, "target block for a single snapshot")
	compareWith := flag.Int64("compare-with", 0, "second block to compare against (requires --block)")
	start := flag.Int64("start", 0, "range start block")
	end := flag.Int64("end", 0, "range end block")
	step := flag.Int64("step", 0, "range step in blocks")
	outputDir := flag.String("output-dir", "output", "output directory for generated files")
	archive := flag.Bool("archive", false, "archive summaries to PostgreSQL (uses POSTGRES_DSN)")
	series := flag.Bool("series", false, "write range summaries to ClickHouse (uses CLICKHOUSE_DSN)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{Level: cfg.LogLevel, Pretty: cfg.LogPretty})

	isRange := *start > 0 || *end > 0 || *step > 0
	if *block <= 0 && !isRange {
		fmt.Fprintln(os.Stderr, "Error: either --block or --start/--end/--step is required")
		os.Exit(1)
	}
	if isRange && (*start <= 0 || *end <= 0 || *step <= 0 || *end < *start) {
		fmt.Fprintln(os.Stderr, "Error: --start, --end, and --step must all be positive with end >= start")
		os.Exit(1)
	}

	ctx := context.Background()

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

	if err := os.MkdirAll(*outputDir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "Error creating output directory: %v\n", err)
		os.Exit(1)
	}

	switch {
	case *block > 0 && *compareWith > 0:
		err = runCompare(ctx, orch, *block, *compareWith, *outputDir)
	case *block > 0:
		err = runSingle(ctx, cfg, orch, *block, *outputDir, *archive)
	default:
		err = runRange(ctx, cfg, orch, *start, *end, *step, *outputDir, *series)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runSingle(ctx context.Context, cfg *config.Config, orch *snapshot.Orchestrator, block int64, outputDir string, archive bool) error {
	snap := orch.CreateSnapshotAtBlock(ctx, block)
	summary := snapshot.Summarize(snap)

	mdPath := filepath.Join(outputDir, fmt.Sprintf("snapshot_%d.md", block))
	if err := os.WriteFile(mdPath, []byte(report.RenderSnapshotMarkdown(snap, summary)), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", mdPath, err)
	}

	points := risk.Points(snap.VaultSnapshots)
	csvPath := filepath.Join(outputDir, fmt.Sprintf("health_%d.csv", block))
	if err := os.WriteFile(csvPath, []byte(report.RenderHealthCSV(points)), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", csvPath, err)
	}

	fmt.Printf("Snapshot at block %d: %d/%d vaults valued, %s total assets\n",
		block, summary.SuccessfulSnapshots, summary.TotalVaultsDiscovered,
		report.FormatUSD(summary.TotalAssetsUSD))
	fmt.Printf("Wrote %s and %s\n", mdPath, csvPath)

	if !archive {
		return nil
	}
	if cfg.PostgresDSN == "" {
		return fmt.Errorf("--archive requires POSTGRES_DSN")
	}
	pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pool.Close()
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		return fmt.Errorf("postgres migrations: %w", err)
	}
	if err := pgstore.NewSummaryArchiveStore(pool).Insert(ctx, summary); err != nil {
		return fmt.Errorf("archive summary: %w", err)
	}
	fmt.Printf("Archived summary for block %d\n", block)
	return nil
}

func runCompare(ctx context.Context, orch *snapshot.Orchestrator, blockA, blockB int64, outputDir string) error {
	cmp := orch.CompareBlocks(ctx, blockA, blockB)

	path := filepath.Join(outputDir, fmt.Sprintf("compare_%d_%d.md", blockA, blockB))
	if err := os.WriteFile(path, []byte(report.RenderComparisonMarkdown(cmp)), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if !cmp.Success {
		return fmt.Errorf("comparison failed: %s", cmp.Error)
	}
	fmt.Printf("Compared blocks %d and %d: assets %+.2f%%, wrote %s\n",
		blockA, blockB, cmp.Deltas.PercentageAssetsChange, path)
	return nil
}

func runRange(ctx context.Context, cfg *config.Config, orch *snapshot.Orchestrator, start, end, step int64, outputDir string, series bool) error {
	rs := orch.RangeSummary(ctx, start, end, step)

	path := filepath.Join(outputDir, fmt.Sprintf("range_%d_%d.csv", start, end))
	if err := os.WriteFile(path, []byte(report.RenderSummariesCSV(rs.Summaries)), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	fmt.Printf("Range sweep %d..%d step %d: %d summaries, %d errors, wrote %s\n",
		start, end, step, len(rs.Summaries), len(rs.Errors), path)
	for _, e := range rs.Errors {
		fmt.Fprintf(os.Stderr, "  warning: %s\n", e)
	}

	if !series {
		return nil
	}
	if cfg.ClickhouseDSN == "" {
		return fmt.Errorf("--series requires CLICKHOUSE_DSN")
	}
	conn, err := migrations.RunClickhouseMigrations(ctx, cfg.ClickhouseDSN)
	if err != nil {
		return fmt.Errorf("clickhouse migrations: %w", err)
	}
	defer conn.Close()
	if err := chstore.NewRangeSeriesStore(conn).InsertBatch(ctx, rs.Summaries); err != nil {
		return fmt.Errorf("insert series batch: %w", err)
	}
	fmt.Printf("Inserted %d summaries into the series store\n", len(rs.Summaries))
	return nil
}
