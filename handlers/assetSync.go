package sync_handlers

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cryptodash/market-ingestor-go/coingecko"
	"github.com/cryptodash/market-ingestor-go/limiter"
	"github.com/cryptodash/market-ingestor-go/models"
)

// Summary is what a job run reports back to the runner. Entity-level
// failures land in Errored and never abort the run.
type Summary struct {
	Processed int
	Skipped   int
	Errored   int
}

type assetAPI interface {
	ListTopAssets(ctx context.Context, limit int) ([]coingecko.MarketAsset, error)
	GetAssetDetail(ctx context.Context, id string) (*coingecko.AssetDetail, error)
}

type assetStore interface {
	UpsertAsset(ctx context.Context, asset models.Asset) error
}

// AssetSync populates and refreshes the assets table from the upstream
// ranked listing.
type AssetSync struct {
	api   assetAPI
	store assetStore
	retry *limiter.RetryPolicy
	log   *slog.Logger
}

func NewAssetSync(api assetAPI, store assetStore, retry *limiter.RetryPolicy, log *slog.Logger) *AssetSync {
	return &AssetSync{api: api, store: store, retry: retry, log: log}
}

// Run fetches the top limit assets and upserts each one's metadata. Only a
// failed ranked-list fetch is fatal; per-asset failures are logged and
// skipped.
func (j *AssetSync) Run(ctx context.Context, limit int) (Summary, error) {
	list, err := limiter.Execute(j.retry, func() ([]coingecko.MarketAsset, error) {
		return j.api.ListTopAssets(ctx, limit)
	})
	if err != nil {
		return Summary{}, fmt.Errorf("fetch ranked asset list: %w", err)
	}

	var sum Summary
	for _, market := range list {
		detail, err := limiter.Execute(j.retry, func() (*coingecko.AssetDetail, error) {
			return j.api.GetAssetDetail(ctx, market.ID)
		})
		if err != nil {
			j.log.Error("asset detail fetch failed", "asset", market.ID, "error", err)
			sum.Errored++
			continue
		}

		asset := mapAsset(market, detail)
		if err := j.store.UpsertAsset(ctx, asset); err != nil {
			j.log.Error("asset store write failed", "asset", asset.AssetID, "error", err)
			sum.Errored++
			continue
		}
		sum.Processed++
	}

	j.log.Info("asset sync finished", "processed", sum.Processed, "errored", sum.Errored)
	return sum, nil
}

func mapAsset(market coingecko.MarketAsset, detail *coingecko.AssetDetail) models.Asset {
	symbol := detail.Symbol
	if symbol == "" {
		symbol = market.Symbol
	}

	asset := models.Asset{
		AssetID:       strings.ToUpper(symbol),
		Symbol:        symbol,
		CoingeckoID:   detail.ID,
		Name:          firstNonEmpty(detail.Name, market.Name),
		MarketCapRank: detail.MarketCapRank,
		Description:   nonEmpty(detail.Description.En),
		ImageURL:      firstNonEmpty(detail.Image.Large, market.Image),
		IsActive:      true,
	}
	if asset.CoingeckoID == "" {
		asset.CoingeckoID = market.ID
	}
	if asset.MarketCapRank == nil {
		asset.MarketCapRank = market.MarketCapRank
	}
	for _, homepage := range detail.Links.Homepage {
		if homepage != "" {
			asset.HomepageURL = &homepage
			break
		}
	}
	if detail.GenesisDate != nil {
		if genesis, err := time.Parse("2006-01-02", *detail.GenesisDate); err == nil {
			asset.GenesisDate = &genesis
		}
	}
	for _, category := range detail.Categories {
		if category != "" {
			asset.Categories = append(asset.Categories, category)
		}
	}
	if md := detail.MarketData; md != nil {
		asset.CirculatingSupply = decimalPtr(md.CirculatingSupply)
		asset.TotalSupply = decimalPtr(md.TotalSupply)
		asset.MaxSupply = decimalPtr(md.MaxSupply)
	}
	if dd := detail.DeveloperData; dd != nil {
		asset.GithubStars = dd.Stars
		asset.GithubForks = dd.Forks
	}
	if cd := detail.CommunityData; cd != nil {
		asset.TwitterFollowers = cd.TwitterFollowers
		asset.RedditSubscribers = cd.RedditSubscribers
	}
	return asset
}

func nonEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func firstNonEmpty(values ...string) *string {
	for _, v := range values {
		if v != "" {
			return &v
		}
	}
	return nil
}

func decimalPtr(f *float64) *decimal.Decimal {
	if f == nil {
		return nil
	}
	d := decimal.NewFromFloat(*f)
	return &d
}
