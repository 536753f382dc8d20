package sync_handlers

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/cryptodash/market-ingestor-go/models"
)

func TestDensityReportFlagsSparseAssets(t *testing.T) {
	earliest := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	latest := earliest.AddDate(0, 0, 20)

	stats := []models.DensityStat{
		{AssetID: "BTC", TotalRecords: 10, EarliestDate: earliest, LatestDate: latest},
		{AssetID: "ETH", TotalRecords: 20, EarliestDate: earliest, LatestDate: latest},
	}

	report := BuildDensityReport(stats, 0.9)

	require.Len(t, report.Assets, 2)
	assert.True(t, report.Assets[0].UnderDense, "10 records over 20 days is 0.5/day")
	assert.InDelta(t, 0.5, report.Assets[0].AvgRecordsPerDay, 0.001)
	assert.False(t, report.Assets[1].UnderDense, "20 records over 20 days is 1.0/day")
	assert.Equal(t, 1, report.UnderDense)
}

func TestDensityReportGuardsZeroSpan(t *testing.T) {
	day := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	stats := []models.DensityStat{
		{AssetID: "BTC", TotalRecords: 1, EarliestDate: day, LatestDate: day},
	}

	report := BuildDensityReport(stats, 0.9)

	require.Len(t, report.Assets, 1)
	assert.False(t, report.Assets[0].UnderDense)
	assert.Equal(t, float64(1), report.Assets[0].AvgRecordsPerDay)
}

func TestVerifyLogsAndReturnsReport(t *testing.T) {
	mockAPI := new(MockMarketAPI)
	mockStore := new(MockStore)

	earliest := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	mockStore.On("GetVerificationStats", mock.Anything).Return([]models.DensityStat{
		{AssetID: "BTC", TotalRecords: 5, EarliestDate: earliest, LatestDate: earliest.AddDate(0, 0, 10)},
	}, nil)

	report, err := newTestHistoricalSync(mockAPI, mockStore).Verify(context.Background())

	require.NoError(t, err)
	require.Len(t, report.Assets, 1)
	assert.True(t, report.Assets[0].UnderDense)
}
