package coingecko

// MarketAsset is one entry of the ranked markets listing. Only the fields
// the pipeline persists or needs for addressing are decoded.
type MarketAsset struct {
	ID            string   `json:"id"`
	Symbol        string   `json:"symbol"`
	Name          string   `json:"name"`
	MarketCapRank *int     `json:"market_cap_rank"`
	CurrentPrice  *float64 `json:"current_price"`
	MarketCap     *float64 `json:"market_cap"`
	Image         string   `json:"image"`
}

// AssetDetail is the rich per-coin response. Upstream nests aggressively;
// the structs below mirror only the curated subset that ends up in the
// assets table.
type AssetDetail struct {
	ID          string `json:"id"`
	Symbol      string `json:"symbol"`
	Name        string `json:"name"`
	Description struct {
		En string `json:"en"`
	} `json:"description"`
	Links struct {
		Homepage []string `json:"homepage"`
	} `json:"links"`
	Image struct {
		Large string `json:"large"`
	} `json:"image"`
	GenesisDate   *string  `json:"genesis_date"`
	Categories    []string `json:"categories"`
	MarketCapRank *int     `json:"market_cap_rank"`
	MarketData    *struct {
		CirculatingSupply *float64 `json:"circulating_supply"`
		TotalSupply       *float64 `json:"total_supply"`
		MaxSupply         *float64 `json:"max_supply"`
	} `json:"market_data"`
	DeveloperData *struct {
		Stars *int `json:"stars"`
		Forks *int `json:"forks"`
	} `json:"developer_data"`
	CommunityData *struct {
		TwitterFollowers  *int `json:"twitter_followers"`
		RedditSubscribers *int `json:"reddit_subscribers"`
	} `json:"community_data"`
}

// HistoricalRange carries three parallel series of [epochMillis, value]
// pairs aligned by index. Upstream pagination is internal to the endpoint;
// callers treat the range as one logical fetch.
type HistoricalRange struct {
	Prices     [][]float64 `json:"prices"`
	MarketCaps [][]float64 `json:"market_caps"`
	Volumes    [][]float64 `json:"total_volumes"`
}
