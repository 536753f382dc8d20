package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Asset is one tracked crypto asset. AssetID is the uppercased trading
// symbol and never changes after the first sighting; everything descriptive
// is nullable because upstream detail responses are frequently partial.
type Asset struct {
	AssetID         string  `db:"asset_id" json:"asset_id"`
	Symbol          string  `db:"symbol" json:"symbol"`
	CoingeckoID     string  `db:"coingecko_id" json:"coingecko_id"`
	PythPriceFeedID *string `db:"pyth_price_feed_id" json:"pyth_price_feed_id,omitempty"`

	Name              *string          `db:"name" json:"name,omitempty"`
	MarketCapRank     *int             `db:"market_cap_rank" json:"market_cap_rank,omitempty"`
	Description       *string          `db:"description" json:"description,omitempty"`
	HomepageURL       *string          `db:"homepage_url" json:"homepage_url,omitempty"`
	ImageURL          *string          `db:"image_url" json:"image_url,omitempty"`
	GenesisDate       *time.Time       `db:"genesis_date" json:"genesis_date,omitempty"`
	Categories        []string         `db:"categories" json:"categories,omitempty"`
	GithubStars       *int             `db:"github_stars" json:"github_stars,omitempty"`
	GithubForks       *int             `db:"github_forks" json:"github_forks,omitempty"`
	TwitterFollowers  *int             `db:"twitter_followers" json:"twitter_followers,omitempty"`
	RedditSubscribers *int             `db:"reddit_subscribers" json:"reddit_subscribers,omitempty"`
	CirculatingSupply *decimal.Decimal `db:"circulating_supply" json:"circulating_supply,omitempty"`
	TotalSupply       *decimal.Decimal `db:"total_supply" json:"total_supply,omitempty"`
	MaxSupply         *decimal.Decimal `db:"max_supply" json:"max_supply,omitempty"`

	IsActive  bool      `db:"is_active" json:"is_active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// ActiveAsset is the slice of Asset the historical job needs per entity.
type ActiveAsset struct {
	AssetID     string `db:"asset_id" json:"asset_id"`
	CoingeckoID string `db:"coingecko_id" json:"coingecko_id"`
}
