package market

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"btc-trading-bot-go/internal/binance"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

// MockRestClient is a mock implementation of the RestClientInterface.
type MockRestClient struct {
	mock.Mock
}

func (m *MockRestClient) GetServerTime() (int64, error) {
	args := m.Called()
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockRestClient) GetTickerPrice(symbol string) (float64, error) {
	args := m.Called(symbol)
	return args.Get(0).(float64), args.Error(1)
}

func (m *MockRestClient) GetKlines(symbol, interval string, limit int) ([]binance.Kline, error) {
	args := m.Called(symbol, interval, limit)
	return args.Get(0).([]binance.Kline), args.Error(1)
}

func (m *MockRestClient) GetBalances() (map[string]float64, error) {
	args := m.Called()
	return args.Get(0).(map[string]float64), args.Error(1)
}

func (m *MockRestClient) CreateOrder(symbol, side string, quantity float64) (*binance.CreateOrderResponse, error) {
	args := m.Called(symbol, side, quantity)
	return args.Get(0).(*binance.CreateOrderResponse), args.Error(1)
}

func makeKlines(n int, startMs int64, stepMs int64) []binance.Kline {
	klines := make([]binance.Kline, n)
	for i := range klines {
		klines[i] = binance.Kline{
			OpenTime: startMs + int64(i)*stepMs,
			Open:     100,
			High:     101,
			Low:      99,
			Close:    100,
			Volume:   1,
		}
	}
	return klines
}

func TestBinanceFeed_Latest(t *testing.T) {
	mockClient := new(MockRestClient)
	mockClient.On("GetKlines", "BTCUSDT", "5m", 400).
		Return(makeKlines(3, 1700000000000, 300000), nil)

	feed := NewBinanceFeed(mockClient, zap.NewNop(), "BTCUSDT", "5m", 400)
	candles, err := feed.Latest(context.Background())

	assert.NoError(t, err)
	assert.Len(t, candles, 3)
	assert.True(t, candles[1].OpenTime.After(candles[0].OpenTime))
	mockClient.AssertExpectations(t)
}

func TestBinanceFeed_LatestError(t *testing.T) {
	mockClient := new(MockRestClient)
	mockClient.On("GetKlines", "BTCUSDT", "5m", 400).
		Return([]binance.Kline{}, errors.New("network down"))

	feed := NewBinanceFeed(mockClient, zap.NewNop(), "BTCUSDT", "5m", 400)
	_, err := feed.Latest(context.Background())

	assert.Error(t, err)
}

func TestBinanceFeed_HourlyTrend(t *testing.T) {
	t.Run("Up", func(t *testing.T) {
		klines := makeKlines(20, 1700000000000, 3600000)
		klines[19].Close = 200 // well above the SMA of flat closes

		mockClient := new(MockRestClient)
		mockClient.On("GetKlines", "BTCUSDT", "1h", 20).Return(klines, nil)

		feed := NewBinanceFeed(mockClient, zap.NewNop(), "BTCUSDT", "5m", 400)
		trend, err := feed.HourlyTrend(context.Background())

		assert.NoError(t, err)
		assert.Equal(t, TrendUp, trend)
	})

	t.Run("InsufficientDataIsFlat", func(t *testing.T) {
		mockClient := new(MockRestClient)
		mockClient.On("GetKlines", "BTCUSDT", "1h", 20).
			Return(makeKlines(5, 1700000000000, 3600000), nil)

		feed := NewBinanceFeed(mockClient, zap.NewNop(), "BTCUSDT", "5m", 400)
		trend, err := feed.HourlyTrend(context.Background())

		assert.NoError(t, err)
		assert.Equal(t, TrendFlat, trend)
	})
}

func TestIntervalDuration(t *testing.T) {
	d, ok := IntervalDuration("5m")
	assert.True(t, ok)
	assert.Equal(t, 5*time.Minute, d)

	_, ok = IntervalDuration("42x")
	assert.False(t, ok)
}

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.csv")
	assert.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadCSV(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		path := writeCSV(t, "timestamp,open,high,low,close,volume\n"+
			"1700000000000,100,110,95,105,12.5\n"+
			"1700000060000,105,115,104,112,8\n")

		candles, err := LoadCSV(path)

		assert.NoError(t, err)
		assert.Len(t, candles, 2)
		assert.Equal(t, 105.0, candles[0].Close)
	})

	t.Run("BadHeader", func(t *testing.T) {
		path := writeCSV(t, "time,open,high,low,close,volume\n1700000000000,1,1,1,1,1\n")

		_, err := LoadCSV(path)

		assert.Error(t, err)
	})

	t.Run("OutOfOrderTimestamps", func(t *testing.T) {
		path := writeCSV(t, "timestamp,open,high,low,close,volume\n"+
			"1700000060000,1,1,1,1,1\n"+
			"1700000000000,1,1,1,1,1\n")

		_, err := LoadCSV(path)

		assert.Error(t, err)
	})

	t.Run("Empty", func(t *testing.T) {
		path := writeCSV(t, "timestamp,open,high,low,close,volume\n")

		_, err := LoadCSV(path)

		assert.Error(t, err)
	})

	t.Run("MalformedRowMidFile", func(t *testing.T) {
		// A wrong-field-count row between valid rows must abort the load,
		// never yield the truncated prefix.
		path := writeCSV(t, "timestamp,open,high,low,close,volume\n"+
			"1700000000000,100,110,95,105,12.5\n"+
			"1700000060000,105,115\n"+
			"1700000120000,105,115,104,112,8\n")

		candles, err := LoadCSV(path)

		assert.Error(t, err)
		assert.Nil(t, candles)
	})

	t.Run("BadQuotingMidFile", func(t *testing.T) {
		path := writeCSV(t, "timestamp,open,high,low,close,volume\n"+
			"1700000000000,100,110,95,105,12.5\n"+
			"1700000060000,\"105,115,104,112,8\n")

		candles, err := LoadCSV(path)

		assert.Error(t, err)
		assert.Nil(t, candles)
	})

	t.Run("UnparseableNumber", func(t *testing.T) {
		path := writeCSV(t, "timestamp,open,high,low,close,volume\n"+
			"1700000000000,100,110,95,abc,12.5\n")

		_, err := LoadCSV(path)

		assert.Error(t, err)
	})
}

func TestFilterSince(t *testing.T) {
	cutoff := time.UnixMilli(1700000060000).UTC()
	candles := []Candle{
		{OpenTime: time.UnixMilli(1700000000000).UTC()},
		{OpenTime: time.UnixMilli(1700000060000).UTC()},
		{OpenTime: time.UnixMilli(1700000120000).UTC()},
	}

	out := FilterSince(candles, cutoff)

	assert.Len(t, out, 2)
	assert.Equal(t, cutoff, out[0].OpenTime)
}
