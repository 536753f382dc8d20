package sync_handlers

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/cryptodash/market-ingestor-go/coingecko"
	"github.com/cryptodash/market-ingestor-go/models"
)

var (
	testEpoch = time.Date(2013, 4, 28, 0, 0, 0, 0, time.UTC)
	// 07:30 UTC so truncation to the day boundary matters
	testNow    = time.Date(2024, 5, 10, 7, 30, 0, 0, time.UTC)
	testToDate = time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)
)

func newTestHistoricalSync(api *MockMarketAPI, st *MockStore) *HistoricalSync {
	job := NewHistoricalSync(api, st, testRetry(), testLogger(), testEpoch, 24*time.Hour, 0.9)
	job.now = func() time.Time { return testNow }
	return job
}

func rangeOfDays(start time.Time, days int) *coingecko.HistoricalRange {
	rng := &coingecko.HistoricalRange{}
	for i := 0; i < days; i++ {
		ts := float64(start.AddDate(0, 0, i).UnixMilli())
		rng.Prices = append(rng.Prices, []float64{ts, 100 + float64(i)})
		rng.MarketCaps = append(rng.MarketCaps, []float64{ts, 1000 + float64(i)})
		rng.Volumes = append(rng.Volumes, []float64{ts, 10 + float64(i)})
	}
	return rng
}

func TestHistoricalSyncFatalOnUniverseFailure(t *testing.T) {
	mockAPI := new(MockMarketAPI)
	mockStore := new(MockStore)
	mockStore.On("QueryActiveAssets", mock.Anything, 5).Return(nil, errors.New("connection reset"))

	_, err := newTestHistoricalSync(mockAPI, mockStore).Run(context.Background(), 5)

	require.Error(t, err)
	mockAPI.AssertNotCalled(t, "GetHistoricalRange", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestHistoricalSyncSkipBoundary(t *testing.T) {
	cases := []struct {
		name      string
		lastAge   time.Duration
		wantFetch bool
	}{
		{"23 hours old is current", 23 * time.Hour, false},
		{"25 hours old needs a fetch", 25 * time.Hour, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			mockAPI := new(MockMarketAPI)
			mockStore := new(MockStore)

			last := testToDate.Add(-tc.lastAge)
			mockStore.On("QueryActiveAssets", mock.Anything, 1).
				Return([]models.ActiveAsset{{AssetID: "BTC", CoingeckoID: "bitcoin"}}, nil)
			mockStore.On("GetLastTimestamp", mock.Anything, "BTC").Return(&last, nil)
			mockStore.On("GetVerificationStats", mock.Anything).Return([]models.DensityStat{}, nil)

			if tc.wantFetch {
				mockAPI.On("GetHistoricalRange", mock.Anything, "bitcoin", last, testToDate).
					Return(rangeOfDays(last, 2), nil)
				mockStore.On("InsertHistoricalRows", mock.Anything, mock.Anything).Return(int64(2), nil)
			}

			sum, err := newTestHistoricalSync(mockAPI, mockStore).Run(context.Background(), 1)
			require.NoError(t, err)

			if tc.wantFetch {
				assert.Equal(t, 1, sum.Processed)
				assert.Equal(t, 0, sum.Skipped)
				mockAPI.AssertExpectations(t)
			} else {
				assert.Equal(t, 0, sum.Processed)
				assert.Equal(t, 1, sum.Skipped)
				mockAPI.AssertNotCalled(t, "GetHistoricalRange", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
			}
		})
	}
}

func TestHistoricalSyncSecondRunIsIdempotent(t *testing.T) {
	mockAPI := new(MockMarketAPI)
	mockStore := new(MockStore)

	// Every asset's checkpoint already sits at toDate, as after a completed
	// run with no day boundary crossed since.
	assets := []models.ActiveAsset{
		{AssetID: "BTC", CoingeckoID: "bitcoin"},
		{AssetID: "ETH", CoingeckoID: "ethereum"},
	}
	checkpoint := testToDate
	mockStore.On("QueryActiveAssets", mock.Anything, 2).Return(assets, nil)
	mockStore.On("GetLastTimestamp", mock.Anything, mock.Anything).Return(&checkpoint, nil)
	mockStore.On("GetVerificationStats", mock.Anything).Return([]models.DensityStat{}, nil)

	sum, err := newTestHistoricalSync(mockAPI, mockStore).Run(context.Background(), 2)

	require.NoError(t, err)
	assert.Equal(t, 2, sum.Skipped)
	assert.Equal(t, 0, sum.Processed)
	mockStore.AssertNotCalled(t, "InsertHistoricalRows", mock.Anything, mock.Anything)
}

func TestHistoricalSyncFirstBackfillStartsAtEpoch(t *testing.T) {
	mockAPI := new(MockMarketAPI)
	mockStore := new(MockStore)

	mockStore.On("QueryActiveAssets", mock.Anything, 1).
		Return([]models.ActiveAsset{{AssetID: "BTC", CoingeckoID: "bitcoin"}}, nil)
	mockStore.On("GetLastTimestamp", mock.Anything, "BTC").Return(nil, nil)
	mockAPI.On("GetHistoricalRange", mock.Anything, "bitcoin", testEpoch, testToDate).
		Return(rangeOfDays(testEpoch, 3), nil)
	mockStore.On("InsertHistoricalRows", mock.Anything, mock.Anything).Return(int64(3), nil)
	mockStore.On("GetVerificationStats", mock.Anything).Return([]models.DensityStat{}, nil)

	sum, err := newTestHistoricalSync(mockAPI, mockStore).Run(context.Background(), 1)

	require.NoError(t, err)
	assert.Equal(t, 1, sum.Processed)
	mockAPI.AssertExpectations(t)
}

func TestHistoricalSyncEntityErrorDoesNotAbort(t *testing.T) {
	mockAPI := new(MockMarketAPI)
	mockStore := new(MockStore)

	assets := []models.ActiveAsset{
		{AssetID: "BTC", CoingeckoID: "bitcoin"},
		{AssetID: "ETH", CoingeckoID: "ethereum"},
	}
	mockStore.On("QueryActiveAssets", mock.Anything, 2).Return(assets, nil)
	mockStore.On("GetLastTimestamp", mock.Anything, mock.Anything).Return(nil, nil)
	mockAPI.On("GetHistoricalRange", mock.Anything, "bitcoin", mock.Anything, mock.Anything).
		Return(nil, errors.New("bad gateway"))
	mockAPI.On("GetHistoricalRange", mock.Anything, "ethereum", mock.Anything, mock.Anything).
		Return(rangeOfDays(testEpoch, 2), nil)
	mockStore.On("InsertHistoricalRows", mock.Anything, mock.Anything).Return(int64(2), nil)
	mockStore.On("GetVerificationStats", mock.Anything).Return([]models.DensityStat{}, nil)

	sum, err := newTestHistoricalSync(mockAPI, mockStore).Run(context.Background(), 2)

	require.NoError(t, err)
	assert.Equal(t, 1, sum.Processed)
	assert.Equal(t, 1, sum.Errored)
}

func TestBuildRowsDropsIncompleteIndexes(t *testing.T) {
	rng := rangeOfDays(testEpoch, 5)
	rng.Volumes = rng.Volumes[:4] // last volume missing

	rows := buildRows("BTC", rng)

	require.Len(t, rows, 4, "a row needs all three metrics")
	assert.Equal(t, "BTC", rows[0].AssetID)
	assert.Equal(t, testEpoch, rows[0].Timestamp)
	assert.Equal(t, "100", rows[0].PriceUSD.String())
	assert.Equal(t, "1000", rows[0].MarketCapUSD.String())
	assert.Equal(t, "10", rows[0].Volume24hUSD.String())
}

func TestBuildRowsDropsMalformedPairs(t *testing.T) {
	rng := rangeOfDays(testEpoch, 3)
	rng.MarketCaps[1] = []float64{float64(testEpoch.UnixMilli())} // value missing

	rows := buildRows("BTC", rng)

	require.Len(t, rows, 2)
}
