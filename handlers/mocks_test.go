package sync_handlers

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/cryptodash/market-ingestor-go/coingecko"
	"github.com/cryptodash/market-ingestor-go/limiter"
	"github.com/cryptodash/market-ingestor-go/models"
)

// MockMarketAPI is a mock upstream client covering both job interfaces.
type MockMarketAPI struct {
	mock.Mock
}

func (m *MockMarketAPI) ListTopAssets(ctx context.Context, limit int) ([]coingecko.MarketAsset, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]coingecko.MarketAsset), args.Error(1)
}

func (m *MockMarketAPI) GetAssetDetail(ctx context.Context, id string) (*coingecko.AssetDetail, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*coingecko.AssetDetail), args.Error(1)
}

func (m *MockMarketAPI) GetHistoricalRange(ctx context.Context, id string, from, to time.Time) (*coingecko.HistoricalRange, error) {
	args := m.Called(ctx, id, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*coingecko.HistoricalRange), args.Error(1)
}

// MockStore is a mock store covering both job interfaces.
type MockStore struct {
	mock.Mock
}

func (m *MockStore) UpsertAsset(ctx context.Context, asset models.Asset) error {
	args := m.Called(ctx, asset)
	return args.Error(0)
}

func (m *MockStore) QueryActiveAssets(ctx context.Context, limit int) ([]models.ActiveAsset, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.ActiveAsset), args.Error(1)
}

func (m *MockStore) GetLastTimestamp(ctx context.Context, assetID string) (*time.Time, error) {
	args := m.Called(ctx, assetID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*time.Time), args.Error(1)
}

func (m *MockStore) InsertHistoricalRows(ctx context.Context, rows []models.HistoricalPoint) (int64, error) {
	args := m.Called(ctx, rows)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockStore) GetVerificationStats(ctx context.Context) ([]models.DensityStat, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.DensityStat), args.Error(1)
}

func testRetry() *limiter.RetryPolicy {
	return limiter.NewRetryPolicy(limiter.NewRateLimiter(1_000_000, time.Hour, 0), 0, time.Millisecond)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
