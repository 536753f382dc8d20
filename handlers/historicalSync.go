package sync_handlers

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/shopspring/decimal"

	"github.com/cryptodash/market-ingestor-go/coingecko"
	"github.com/cryptodash/market-ingestor-go/limiter"
	"github.com/cryptodash/market-ingestor-go/models"
)

type rangeAPI interface {
	GetHistoricalRange(ctx context.Context, id string, from, to time.Time) (*coingecko.HistoricalRange, error)
}

type historyStore interface {
	QueryActiveAssets(ctx context.Context, limit int) ([]models.ActiveAsset, error)
	GetLastTimestamp(ctx context.Context, assetID string) (*time.Time, error)
	InsertHistoricalRows(ctx context.Context, rows []models.HistoricalPoint) (int64, error)
	GetVerificationStats(ctx context.Context) ([]models.DensityStat, error)
}

// HistoricalSync extends the daily series for every active asset, resuming
// each from the latest timestamp already in the store.
type HistoricalSync struct {
	api   rangeAPI
	store historyStore
	retry *limiter.RetryPolicy
	log   *slog.Logger

	epochStart       time.Time
	skipThreshold    time.Duration
	densityThreshold float64

	// Progress draws a terminal bar across the asset universe.
	Progress bool

	now func() time.Time
}

func NewHistoricalSync(api rangeAPI, store historyStore, retry *limiter.RetryPolicy, log *slog.Logger,
	epochStart time.Time, skipThreshold time.Duration, densityThreshold float64) *HistoricalSync {
	return &HistoricalSync{
		api:              api,
		store:            store,
		retry:            retry,
		log:              log,
		epochStart:       epochStart,
		skipThreshold:    skipThreshold,
		densityThreshold: densityThreshold,
		now:              time.Now,
	}
}

// Run backfills up to universeLimit active assets in rank order. Only a
// failed universe query is fatal; per-asset failures are logged, counted
// and skipped. A density audit runs after the loop.
func (j *HistoricalSync) Run(ctx context.Context, universeLimit int) (Summary, error) {
	assets, err := j.store.QueryActiveAssets(ctx, universeLimit)
	if err != nil {
		return Summary{}, fmt.Errorf("query active assets: %w", err)
	}

	var bar *progressbar.ProgressBar
	if j.Progress {
		bar = progressbar.Default(int64(len(assets)), "backfilling")
	}

	var sum Summary
	for _, asset := range assets {
		if err := j.syncAsset(ctx, asset, &sum); err != nil {
			j.log.Error("historical sync failed", "asset", asset.AssetID, "error", err)
			sum.Errored++
		}
		if bar != nil {
			bar.Add(1)
		}
	}

	j.log.Info("historical sync finished",
		"processed", sum.Processed, "skipped", sum.Skipped, "errored", sum.Errored)

	if _, err := j.Verify(ctx); err != nil {
		j.log.Error("density verification failed", "error", err)
	}
	return sum, nil
}

func (j *HistoricalSync) syncAsset(ctx context.Context, asset models.ActiveAsset, sum *Summary) error {
	last, err := j.store.GetLastTimestamp(ctx, asset.AssetID)
	if err != nil {
		return fmt.Errorf("resume point: %w", err)
	}

	// Truncate to the start of the current UTC day so a partial
	// in-progress day is never ingested.
	toDate := j.now().UTC().Truncate(24 * time.Hour)
	fromDate := j.epochStart
	if last != nil {
		if toDate.Sub(*last) < j.skipThreshold {
			sum.Skipped++
			return nil
		}
		fromDate = *last
	}

	rng, err := limiter.Execute(j.retry, func() (*coingecko.HistoricalRange, error) {
		return j.api.GetHistoricalRange(ctx, asset.CoingeckoID, fromDate, toDate)
	})
	if err != nil {
		return fmt.Errorf("fetch range [%s, %s]: %w",
			fromDate.Format("2006-01-02"), toDate.Format("2006-01-02"), err)
	}

	rows := buildRows(asset.AssetID, rng)
	inserted, err := j.store.InsertHistoricalRows(ctx, rows)
	if err != nil {
		return fmt.Errorf("insert rows: %w", err)
	}

	sum.Processed++
	j.log.Info("asset backfilled", "asset", asset.AssetID,
		"from", fromDate.Format("2006-01-02"), "to", toDate.Format("2006-01-02"),
		"rows", inserted)
	return nil
}

// buildRows aligns the three parallel series by index. An index where any
// series lacks a value produces no row: a point carries all three metrics
// or none.
func buildRows(assetID string, rng *coingecko.HistoricalRange) []models.HistoricalPoint {
	n := len(rng.Prices)
	if len(rng.MarketCaps) < n {
		n = len(rng.MarketCaps)
	}
	if len(rng.Volumes) < n {
		n = len(rng.Volumes)
	}

	rows := make([]models.HistoricalPoint, 0, n)
	for i := 0; i < n; i++ {
		if len(rng.Prices[i]) < 2 || len(rng.MarketCaps[i]) < 2 || len(rng.Volumes[i]) < 2 {
			continue
		}
		rows = append(rows, models.HistoricalPoint{
			AssetID:      assetID,
			Timestamp:    time.UnixMilli(int64(rng.Prices[i][0])).UTC(),
			PriceUSD:     decimal.NewFromFloat(rng.Prices[i][1]),
			MarketCapUSD: decimal.NewFromFloat(rng.MarketCaps[i][1]),
			Volume24hUSD: decimal.NewFromFloat(rng.Volumes[i][1]),
		})
	}
	return rows
}
