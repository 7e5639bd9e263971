package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "golang.org/x/crypto/x509roots/fallback" // Embed CA certs for scratch container

	azdoadapter "github.com/ericfisherdev/devpulse/internal/adapter/driven/azdo"
	sqliteadapter "github.com/ericfisherdev/devpulse/internal/adapter/driven/sqlite"
	"github.com/ericfisherdev/devpulse/internal/application"
	"github.com/ericfisherdev/devpulse/internal/config"
	"github.com/ericfisherdev/devpulse/internal/domain/model"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	once := flag.Bool("once", false, "run a single ingestion cycle and exit")
	flag.Parse()

	// 1. Load configuration (fail fast on missing required env vars).
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	slog.Info("config loaded",
		"organization", cfg.Organization,
		"api_base_url", cfg.APIBaseURL,
		"db_path", cfg.DBPath,
		"ingest_interval", cfg.IngestInterval,
		"exclude_projects", cfg.ExcludeProjects,
	)

	// 2. Setup signal-based context (SIGINT, SIGTERM).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Open database (dual reader/writer with WAL mode).
	db, err := sqliteadapter.NewDB(cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()
	slog.Info("database opened", "path", cfg.DBPath)

	// 4. Run migrations on writer connection.
	if err := sqliteadapter.RunMigrations(db.Writer); err != nil {
		return err
	}
	slog.Info("migrations complete")

	// 5. Wire adapters.
	prStore := sqliteadapter.NewPRRepo(db)
	runStore := sqliteadapter.NewCIRunRepo(db)
	metricsStore := sqliteadapter.NewMetricsRepo(db)

	limiter := azdoadapter.NewRateLimiter(cfg.RequestsPerMinute)
	client := azdoadapter.NewClient(cfg.APIBaseURL, cfg.Organization, cfg.AccessToken, limiter, cfg.MaxRetries, cfg.RequestTimeout)

	// 6. Create services.
	flakySvc := application.NewFlakyService(runStore, slog.Default())
	ingestSvc := application.NewIngestService(client, prStore, runStore, flakySvc, cfg.ExcludeProjects, slog.Default())
	metricsSvc := application.NewMetricsService(metricsStore)

	// 7. Run ingestion: one cycle immediately, then on the configured interval.
	runCycle(ctx, ingestSvc, metricsSvc)
	if *once {
		return nil
	}

	ticker := time.NewTicker(cfg.IngestInterval)
	defer ticker.Stop()

	slog.Info("devpulse started", "ingest_interval", cfg.IngestInterval)

	for {
		select {
		case <-ctx.Done():
			slog.Info("shutting down")
			return nil
		case <-ticker.C:
			runCycle(ctx, ingestSvc, metricsSvc)
		}
	}
}

func runCycle(ctx context.Context, ingestSvc *application.IngestService, metricsSvc *application.MetricsService) {
	start := time.Now()

	prResult, err := ingestSvc.IngestPullRequests(ctx)
	if err != nil {
		slog.Error("pull request ingestion aborted", "error", err)
	}

	buildResult, err := ingestSvc.IngestBuilds(ctx)
	if err != nil {
		slog.Error("build ingestion aborted", "error", err)
	}

	slog.Info("ingestion cycle complete",
		"duration", time.Since(start).Round(time.Millisecond),
		"pr_success", prResult.Success,
		"build_success", buildResult.Success,
		"inserted", prResult.Inserted+buildResult.Inserted,
		"updated", prResult.Updated+buildResult.Updated,
		"skipped", prResult.Skipped+buildResult.Skipped,
		"flaky_detected", buildResult.FlakyRunsDetected,
	)

	logMetricsSnapshot(ctx, metricsSvc)
}

// logMetricsSnapshot logs a trailing 30-day organization-wide summary after
// each cycle so operators see metric movement without querying the database.
func logMetricsSnapshot(ctx context.Context, metricsSvc *application.MetricsService) {
	now := time.Now().UTC()
	window := model.Window{Start: now.Add(-30 * 24 * time.Hour), End: now}

	freq, err := metricsSvc.DeploymentFrequency(ctx, window, "")
	if err != nil {
		slog.Warn("metrics snapshot failed", "metric", "deployment_frequency", "error", err)
		return
	}
	cfr, err := metricsSvc.ChangeFailureRate(ctx, window, "")
	if err != nil {
		slog.Warn("metrics snapshot failed", "metric", "change_failure_rate", "error", err)
		return
	}
	flaky, err := metricsSvc.FlakyTestRate(ctx, window, "")
	if err != nil {
		slog.Warn("metrics snapshot failed", "metric", "flaky_test_rate", "error", err)
		return
	}

	slog.Info("30d metrics snapshot",
		"deployments", freq.Count,
		"change_failure_pct", cfr.Percentage,
		"flaky_run_pct", flaky.Percentage,
		"ci_runs", flaky.TotalRuns,
	)
}
