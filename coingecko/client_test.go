package coingecko

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, "test-key", 5*time.Second)
}

func TestListTopAssets(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/coins/markets", r.URL.Path)
		assert.Equal(t, "usd", r.URL.Query().Get("vs_currency"))
		assert.Equal(t, "market_cap_desc", r.URL.Query().Get("order"))
		assert.Equal(t, "2", r.URL.Query().Get("per_page"))
		assert.Equal(t, "test-key", r.Header.Get("x-cg-demo-api-key"))
		w.Write([]byte(`[
			{"id":"bitcoin","symbol":"btc","name":"Bitcoin","market_cap_rank":1},
			{"id":"ethereum","symbol":"eth","name":"Ethereum","market_cap_rank":2}
		]`))
	})

	assets, err := client.ListTopAssets(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, assets, 2)
	assert.Equal(t, "bitcoin", assets[0].ID)
	assert.Equal(t, "btc", assets[0].Symbol)
	require.NotNil(t, assets[1].MarketCapRank)
	assert.Equal(t, 2, *assets[1].MarketCapRank)
}

func TestGetAssetDetail(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/coins/bitcoin", r.URL.Path)
		w.Write([]byte(`{
			"id":"bitcoin","symbol":"btc","name":"Bitcoin",
			"genesis_date":"2009-01-03",
			"categories":["Layer 1"],
			"links":{"homepage":["https://bitcoin.org"]},
			"image":{"large":"https://img/btc.png"},
			"market_data":{"circulating_supply":19700000,"max_supply":21000000},
			"developer_data":{"stars":70000,"forks":35000},
			"community_data":{"twitter_followers":6000000}
		}`))
	})

	detail, err := client.GetAssetDetail(context.Background(), "bitcoin")
	require.NoError(t, err)
	assert.Equal(t, "Bitcoin", detail.Name)
	require.NotNil(t, detail.GenesisDate)
	assert.Equal(t, "2009-01-03", *detail.GenesisDate)
	require.NotNil(t, detail.MarketData)
	require.NotNil(t, detail.MarketData.MaxSupply)
	assert.Equal(t, float64(21000000), *detail.MarketData.MaxSupply)
	require.NotNil(t, detail.DeveloperData)
	assert.Equal(t, 70000, *detail.DeveloperData.Stars)
}

func TestGetHistoricalRange(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/coins/bitcoin/market_chart/range", r.URL.Path)
		assert.NotEmpty(t, r.URL.Query().Get("from"))
		assert.NotEmpty(t, r.URL.Query().Get("to"))
		w.Write([]byte(`{
			"prices":[[1700000000000,37000.5],[1700086400000,37500.1]],
			"market_caps":[[1700000000000,720000000000],[1700086400000,730000000000]],
			"total_volumes":[[1700000000000,18000000000],[1700086400000,19000000000]]
		}`))
	})

	from := time.Unix(1_699_900_000, 0)
	to := time.Unix(1_700_100_000, 0)
	rng, err := client.GetHistoricalRange(context.Background(), "bitcoin", from, to)
	require.NoError(t, err)
	require.Len(t, rng.Prices, 2)
	require.Len(t, rng.MarketCaps, 2)
	require.Len(t, rng.Volumes, 2)
	assert.Equal(t, 37000.5, rng.Prices[0][1])
}

func TestRateLimitClassification(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := client.ListTopAssets(context.Background(), 10)
	require.ErrorIs(t, err, ErrRateLimited)
}

func TestOtherStatusesAreNotRateLimited(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "server error", http.StatusInternalServerError)
	})

	_, err := client.GetAssetDetail(context.Background(), "bitcoin")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrRateLimited)
}
