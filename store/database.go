package store

import (
	"context"
	"errors"
	"fmt"

	pgxdecimal "github.com/jackc/pgx-shopspring-decimal"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrAssetNotFound = errors.New("asset not found in store")

// Store owns the connection pool. The pipeline holds exactly one Store for
// its whole lifetime.
type Store struct {
	pool *pgxpool.Pool
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	poolConfig, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database config: %w", err)
	}

	poolConfig.MaxConns = 5
	// Register shopspring decimal for numeric columns
	poolConfig.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		pgxdecimal.Register(conn.TypeMap())
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	s.pool.Close()
}

const schema = `
CREATE TABLE IF NOT EXISTS assets (
	asset_id           TEXT PRIMARY KEY,
	symbol             TEXT NOT NULL,
	coingecko_id       TEXT NOT NULL,
	pyth_price_feed_id TEXT,
	name               TEXT,
	market_cap_rank    INT,
	description        TEXT,
	homepage_url       TEXT,
	image_url          TEXT,
	genesis_date       DATE,
	categories         TEXT[],
	github_stars       INT,
	github_forks       INT,
	twitter_followers  INT,
	reddit_subscribers INT,
	circulating_supply NUMERIC,
	total_supply       NUMERIC,
	max_supply         NUMERIC,
	is_active          BOOLEAN NOT NULL DEFAULT TRUE,
	created_at         TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at         TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS historical_data_points (
	asset_id       TEXT NOT NULL REFERENCES assets(asset_id),
	ts             TIMESTAMPTZ NOT NULL,
	price_usd      NUMERIC NOT NULL,
	market_cap_usd NUMERIC NOT NULL,
	volume_24h_usd NUMERIC NOT NULL,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (asset_id, ts)
);

CREATE TABLE IF NOT EXISTS sync_runs (
	id             UUID PRIMARY KEY,
	job            TEXT NOT NULL,
	universe_limit INT NOT NULL,
	started_at     TIMESTAMPTZ NOT NULL,
	finished_at    TIMESTAMPTZ,
	processed      INT NOT NULL DEFAULT 0,
	skipped        INT NOT NULL DEFAULT 0,
	errored        INT NOT NULL DEFAULT 0
);
`

// InitSchema creates the tables on a fresh database. Safe to call on every
// startup.
func (s *Store) InitSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("initialize schema: %w", err)
	}
	return nil
}
