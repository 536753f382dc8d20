package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// HistoricalPoint is one daily observation for an asset. (AssetID,
// Timestamp) is unique in the store; rows are append-only and always carry
// all three metrics.
type HistoricalPoint struct {
	AssetID      string          `db:"asset_id" json:"asset_id"`
	Timestamp    time.Time       `db:"ts" json:"timestamp"`
	PriceUSD     decimal.Decimal `db:"price_usd" json:"price_usd"`
	MarketCapUSD decimal.Decimal `db:"market_cap_usd" json:"market_cap_usd"`
	Volume24hUSD decimal.Decimal `db:"volume_24h_usd" json:"volume_24h_usd"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
}

// DensityStat is one row of the post-run verification query.
type DensityStat struct {
	AssetID      string    `db:"asset_id"`
	TotalRecords int64     `db:"total_records"`
	EarliestDate time.Time `db:"earliest_date"`
	LatestDate   time.Time `db:"latest_date"`
}

// SyncRun records one pipeline invocation for operator visibility.
type SyncRun struct {
	ID            uuid.UUID  `db:"id"`
	Job           string     `db:"job"`
	UniverseLimit int        `db:"universe_limit"`
	StartedAt     time.Time  `db:"started_at"`
	FinishedAt    *time.Time `db:"finished_at"`
	Processed     int        `db:"processed"`
	Skipped       int        `db:"skipped"`
	Errored       int        `db:"errored"`
}
