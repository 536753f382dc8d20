package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/cryptodash/market-ingestor-go/models"
)

// Merge rules for the asset upsert. mergeCoalesce means an incoming NULL
// never clobbers a stored value while an incoming non-NULL always wins;
// insertOnly columns are written on first sighting and never updated
// (is_active in particular: deactivation is an administrative action the
// pipeline must not undo).
type mergeRule int

const (
	mergeKey mergeRule = iota
	mergeCoalesce
	mergeInsertOnly
)

type assetColumn struct {
	name string
	rule mergeRule
	arg  func(a models.Asset) any
}

var assetColumns = []assetColumn{
	{"asset_id", mergeKey, func(a models.Asset) any { return a.AssetID }},
	{"symbol", mergeCoalesce, func(a models.Asset) any { return a.Symbol }},
	{"coingecko_id", mergeCoalesce, func(a models.Asset) any { return a.CoingeckoID }},
	{"pyth_price_feed_id", mergeCoalesce, func(a models.Asset) any { return a.PythPriceFeedID }},
	{"name", mergeCoalesce, func(a models.Asset) any { return a.Name }},
	{"market_cap_rank", mergeCoalesce, func(a models.Asset) any { return a.MarketCapRank }},
	{"description", mergeCoalesce, func(a models.Asset) any { return a.Description }},
	{"homepage_url", mergeCoalesce, func(a models.Asset) any { return a.HomepageURL }},
	{"image_url", mergeCoalesce, func(a models.Asset) any { return a.ImageURL }},
	{"genesis_date", mergeCoalesce, func(a models.Asset) any { return a.GenesisDate }},
	{"categories", mergeCoalesce, func(a models.Asset) any {
		if len(a.Categories) == 0 {
			return nil
		}
		return a.Categories
	}},
	{"github_stars", mergeCoalesce, func(a models.Asset) any { return a.GithubStars }},
	{"github_forks", mergeCoalesce, func(a models.Asset) any { return a.GithubForks }},
	{"twitter_followers", mergeCoalesce, func(a models.Asset) any { return a.TwitterFollowers }},
	{"reddit_subscribers", mergeCoalesce, func(a models.Asset) any { return a.RedditSubscribers }},
	{"circulating_supply", mergeCoalesce, func(a models.Asset) any { return a.CirculatingSupply }},
	{"total_supply", mergeCoalesce, func(a models.Asset) any { return a.TotalSupply }},
	{"max_supply", mergeCoalesce, func(a models.Asset) any { return a.MaxSupply }},
	{"is_active", mergeInsertOnly, func(a models.Asset) any { return a.IsActive }},
}

var assetUpsertSQL = buildAssetUpsertSQL(assetColumns)

func buildAssetUpsertSQL(columns []assetColumn) string {
	names := make([]string, 0, len(columns))
	placeholders := make([]string, 0, len(columns))
	updates := make([]string, 0, len(columns))

	for i, col := range columns {
		names = append(names, col.name)
		placeholders = append(placeholders, fmt.Sprintf("$%d", i+1))
		if col.rule == mergeCoalesce {
			updates = append(updates, fmt.Sprintf("%s = COALESCE(EXCLUDED.%s, assets.%s)", col.name, col.name, col.name))
		}
	}
	updates = append(updates, "updated_at = now()")

	return fmt.Sprintf(
		"INSERT INTO assets (%s) VALUES (%s) ON CONFLICT (asset_id) DO UPDATE SET %s",
		strings.Join(names, ", "),
		strings.Join(placeholders, ", "),
		strings.Join(updates, ", "),
	)
}

// UpsertAsset inserts a newly sighted asset or merge-updates an existing
// one keyed on asset_id.
func (s *Store) UpsertAsset(ctx context.Context, asset models.Asset) error {
	args := make([]any, 0, len(assetColumns))
	for _, col := range assetColumns {
		args = append(args, col.arg(asset))
	}
	if _, err := s.pool.Exec(ctx, assetUpsertSQL, args...); err != nil {
		return fmt.Errorf("upsert asset %s: %w", asset.AssetID, err)
	}
	return nil
}

// QueryActiveAssets returns up to limit active assets ordered by market-cap
// rank, unranked assets last.
func (s *Store) QueryActiveAssets(ctx context.Context, limit int) ([]models.ActiveAsset, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT asset_id, coingecko_id
		 FROM assets
		 WHERE is_active
		 ORDER BY market_cap_rank ASC NULLS LAST, asset_id
		 LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query active assets: %w", err)
	}
	defer rows.Close()

	var assets []models.ActiveAsset
	for rows.Next() {
		var a models.ActiveAsset
		if err := rows.Scan(&a.AssetID, &a.CoingeckoID); err != nil {
			return nil, fmt.Errorf("scan active asset: %w", err)
		}
		assets = append(assets, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate active assets: %w", err)
	}
	return assets, nil
}

const assetSelect = `
	SELECT asset_id, symbol, coingecko_id, pyth_price_feed_id, name,
	       market_cap_rank, description, homepage_url, image_url,
	       genesis_date, categories, github_stars, github_forks,
	       twitter_followers, reddit_subscribers, circulating_supply,
	       total_supply, max_supply, is_active, created_at, updated_at
	FROM assets`

// ListAssets returns active assets for the read API, rank order.
func (s *Store) ListAssets(ctx context.Context, limit int) ([]models.Asset, error) {
	rows, err := s.pool.Query(ctx,
		assetSelect+` WHERE is_active ORDER BY market_cap_rank ASC NULLS LAST, asset_id LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list assets: %w", err)
	}
	defer rows.Close()

	var assets []models.Asset
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, err
		}
		assets = append(assets, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate assets: %w", err)
	}
	return assets, nil
}

// GetAsset returns one asset by its canonical id.
func (s *Store) GetAsset(ctx context.Context, assetID string) (*models.Asset, error) {
	rows, err := s.pool.Query(ctx, assetSelect+` WHERE asset_id = $1`, assetID)
	if err != nil {
		return nil, fmt.Errorf("get asset %s: %w", assetID, err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("get asset %s: %w", assetID, err)
		}
		return nil, fmt.Errorf("asset %s: %w", assetID, ErrAssetNotFound)
	}
	a, err := scanAsset(rows)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func scanAsset(row pgx.Rows) (models.Asset, error) {
	var a models.Asset
	err := row.Scan(
		&a.AssetID, &a.Symbol, &a.CoingeckoID, &a.PythPriceFeedID, &a.Name,
		&a.MarketCapRank, &a.Description, &a.HomepageURL, &a.ImageURL,
		&a.GenesisDate, &a.Categories, &a.GithubStars, &a.GithubForks,
		&a.TwitterFollowers, &a.RedditSubscribers, &a.CirculatingSupply,
		&a.TotalSupply, &a.MaxSupply, &a.IsActive, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return a, ErrAssetNotFound
		}
		return a, fmt.Errorf("scan asset: %w", err)
	}
	return a, nil
}
