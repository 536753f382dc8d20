package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/cryptodash/market-ingestor-go/api"
	"github.com/cryptodash/market-ingestor-go/coingecko"
	"github.com/cryptodash/market-ingestor-go/config"
	sync_handlers "github.com/cryptodash/market-ingestor-go/handlers"
	"github.com/cryptodash/market-ingestor-go/limiter"
	"github.com/cryptodash/market-ingestor-go/logger"
	"github.com/cryptodash/market-ingestor-go/models"
	"github.com/cryptodash/market-ingestor-go/store"
)

const defaultUniverseLimit = 200

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) < 1 {
		printUsage()
		return 2
	}
	job := args[0]

	limit := defaultUniverseLimit
	if len(args) > 1 {
		n, err := strconv.Atoi(args[1])
		if err != nil || n <= 0 {
			fmt.Fprintf(os.Stderr, "invalid universe size %q\n", args[1])
			return 2
		}
		limit = n
	}

	cfg := config.Load()
	log := logger.New(cfg.LogLevel, cfg.LogFormat)
	ctx := context.Background()

	st, err := store.New(ctx, cfg.DatabaseURL())
	if err != nil {
		log.Error("store connection failed", "error", err)
		return 1
	}
	defer st.Close()

	if err := st.InitSchema(ctx); err != nil {
		log.Error("schema init failed", "error", err)
		return 1
	}

	switch job {
	case "assets", "historical":
		return runJob(ctx, job, limit, cfg, st, log)
	case "serve":
		return runServer(ctx, cfg, st, log)
	default:
		printUsage()
		return 2
	}
}

// runJob executes one ingestion pass. Per-entity failures are expected and
// leave the exit code at zero; only the job's fatal path is non-zero.
func runJob(ctx context.Context, job string, limit int, cfg config.Config, st *store.Store, log *slog.Logger) int {
	client := coingecko.NewClient(cfg.APIBaseURL, cfg.APIKey, cfg.APITimeout)
	rl := limiter.NewRateLimiter(cfg.MaxRequestsPerWindow, cfg.WindowDuration, cfg.MinRequestInterval)
	retry := limiter.NewRetryPolicy(rl, cfg.MaxRetries, cfg.BaseDelay)

	sr := models.SyncRun{
		ID:            uuid.New(),
		Job:           job,
		UniverseLimit: limit,
		StartedAt:     time.Now().UTC(),
	}
	if err := st.RecordSyncRun(ctx, sr); err != nil {
		log.Warn("sync run audit write failed", "error", err)
	}

	log.Info("starting ingestion job", "job", job, "universe", limit, "run_id", sr.ID)

	var sum sync_handlers.Summary
	var err error
	switch job {
	case "assets":
		sum, err = sync_handlers.NewAssetSync(client, st, retry, log).Run(ctx, limit)
	case "historical":
		hs := sync_handlers.NewHistoricalSync(client, st, retry, log,
			cfg.SeriesEpochStart, cfg.SkipThreshold, cfg.DensityThreshold)
		hs.Progress = true
		sum, err = hs.Run(ctx, limit)
	}

	finished := time.Now().UTC()
	sr.FinishedAt = &finished
	sr.Processed = sum.Processed
	sr.Skipped = sum.Skipped
	sr.Errored = sum.Errored
	if auditErr := st.FinishSyncRun(ctx, sr); auditErr != nil {
		log.Warn("sync run audit update failed", "error", auditErr)
	}

	if err != nil {
		log.Error("ingestion job failed", "job", job, "error", err)
		return 1
	}

	log.Info("ingestion job finished", "job", job,
		"processed", sum.Processed, "skipped", sum.Skipped, "errored", sum.Errored,
		"duration", finished.Sub(sr.StartedAt).Round(time.Second).String())
	return 0
}

// runServer exposes the read API until interrupted. A missing redis is a
// warning, not a failure: the endpoints just run uncached.
func runServer(ctx context.Context, cfg config.Config, st *store.Store, log *slog.Logger) int {
	cache, err := api.NewCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.CacheTTL)
	if err != nil {
		log.Warn("redis unavailable, serving uncached", "error", err)
		cache = nil
	} else {
		defer cache.Close()
	}

	srv := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      api.NewServer(st, cache, log).Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("read API listening", "addr", cfg.ListenAddr)
		errCh <- srv.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			return 1
		}
	case <-sigCh:
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("shutdown error", "error", err)
			return 1
		}
	}
	return 0
}

func printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  market-ingestor assets [limit]      sync asset metadata for the top [limit] assets")
	fmt.Println("  market-ingestor historical [limit]  backfill daily history for [limit] active assets")
	fmt.Println("  market-ingestor serve               serve the read API")
}
