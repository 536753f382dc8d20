package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/cryptodash/market-ingestor-go/models"
)

// GetLastTimestamp returns the latest stored observation time for an asset,
// or nil when none exists. This derived value is the resume point for the
// historical backfill; there is no separate cursor that could drift from
// the written rows.
func (s *Store) GetLastTimestamp(ctx context.Context, assetID string) (*time.Time, error) {
	var ts *time.Time
	err := s.pool.QueryRow(ctx,
		`SELECT MAX(ts) FROM historical_data_points WHERE asset_id = $1`, assetID).Scan(&ts)
	if err != nil {
		return nil, fmt.Errorf("last timestamp for %s: %w", assetID, err)
	}
	return ts, nil
}

// InsertHistoricalRows bulk-inserts daily points. Duplicate (asset_id, ts)
// pairs from an overlapping re-run are skipped silently; the returned count
// covers only rows actually written.
func (s *Store) InsertHistoricalRows(ctx context.Context, rows []models.HistoricalPoint) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}
	for _, r := range rows {
		batch.Queue(
			`INSERT INTO historical_data_points (asset_id, ts, price_usd, market_cap_usd, volume_24h_usd)
			 VALUES ($1, $2, $3, $4, $5)
			 ON CONFLICT (asset_id, ts) DO NOTHING`,
			r.AssetID, r.Timestamp, r.PriceUSD, r.MarketCapUSD, r.Volume24hUSD,
		)
	}

	results := s.pool.SendBatch(ctx, batch)
	defer results.Close()

	var inserted int64
	for range rows {
		tag, err := results.Exec()
		if err != nil {
			return inserted, fmt.Errorf("insert historical rows: %w", err)
		}
		inserted += tag.RowsAffected()
	}
	return inserted, nil
}

// GetHistory returns the stored daily series for one asset within [from, to].
func (s *Store) GetHistory(ctx context.Context, assetID string, from, to time.Time) ([]models.HistoricalPoint, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT asset_id, ts, price_usd, market_cap_usd, volume_24h_usd, created_at
		 FROM historical_data_points
		 WHERE asset_id = $1 AND ts >= $2 AND ts <= $3
		 ORDER BY ts`, assetID, from, to)
	if err != nil {
		return nil, fmt.Errorf("history for %s: %w", assetID, err)
	}
	defer rows.Close()

	var points []models.HistoricalPoint
	for rows.Next() {
		var p models.HistoricalPoint
		if err := rows.Scan(&p.AssetID, &p.Timestamp, &p.PriceUSD, &p.MarketCapUSD, &p.Volume24hUSD, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan historical point: %w", err)
		}
		points = append(points, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history for %s: %w", assetID, err)
	}
	return points, nil
}

// GetVerificationStats returns per-asset record counts and date spans for
// the post-run density audit.
func (s *Store) GetVerificationStats(ctx context.Context) ([]models.DensityStat, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT asset_id, COUNT(*), MIN(ts), MAX(ts)
		 FROM historical_data_points
		 GROUP BY asset_id
		 ORDER BY asset_id`)
	if err != nil {
		return nil, fmt.Errorf("verification stats: %w", err)
	}
	defer rows.Close()

	var stats []models.DensityStat
	for rows.Next() {
		var st models.DensityStat
		if err := rows.Scan(&st.AssetID, &st.TotalRecords, &st.EarliestDate, &st.LatestDate); err != nil {
			return nil, fmt.Errorf("scan verification stat: %w", err)
		}
		stats = append(stats, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate verification stats: %w", err)
	}
	return stats, nil
}

// RecordSyncRun writes the audit row for a starting run.
func (s *Store) RecordSyncRun(ctx context.Context, run models.SyncRun) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO sync_runs (id, job, universe_limit, started_at)
		 VALUES ($1, $2, $3, $4)`,
		run.ID, run.Job, run.UniverseLimit, run.StartedAt)
	if err != nil {
		return fmt.Errorf("record sync run: %w", err)
	}
	return nil
}

// FinishSyncRun stamps the end of a run with its counters.
func (s *Store) FinishSyncRun(ctx context.Context, run models.SyncRun) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE sync_runs
		 SET finished_at = $2, processed = $3, skipped = $4, errored = $5
		 WHERE id = $1`,
		run.ID, run.FinishedAt, run.Processed, run.Skipped, run.Errored)
	if err != nil {
		return fmt.Errorf("finish sync run: %w", err)
	}
	return nil
}
