package market

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func newTestLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestGetTopVolumeCoins_FiltersAndSorts(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/ticker/24hr", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			{"symbol": "BTCUSDT", "quoteVolume": "900"},
			{"symbol": "ETHBTC", "quoteVolume": "9999"},
			{"symbol": "ETHUSDT", "quoteVolume": "1500"},
			{"symbol": "DEADUSDT", "quoteVolume": "0"},
			{"symbol": "SOLUSDT", "quoteVolume": "300"}
		]`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, newTestLogger())
	tickers := c.GetTopVolumeCoins(context.Background(), 2)

	assert.Len(t, tickers, 2)
	assert.Equal(t, "ETHUSDT", tickers[0].Symbol)
	assert.Equal(t, "BTCUSDT", tickers[1].Symbol)
}

func TestGetTopVolumeCoins_EmptyOnServerError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, newTestLogger())
	tickers := c.GetTopVolumeCoins(context.Background(), 10)

	assert.NotNil(t, tickers)
	assert.Empty(t, tickers)
}

func TestGet24hrStats(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "BTCUSDT", r.URL.Query().Get("symbol"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"symbol": "BTCUSDT", "lastPrice": "50000.00", "priceChangePercent": "2.5"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, newTestLogger())
	ticker := c.Get24hrStats(context.Background(), "btcusdt")

	assert.NotNil(t, ticker)
	assert.Equal(t, "50000.00", ticker.LastPrice)
}

func TestGet24hrStats_NilOnFailure(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, newTestLogger())
	assert.Nil(t, c.Get24hrStats(context.Background(), "BTCUSDT"))
}

func TestGetKlines_ParsesPositionalArrays(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/klines", r.URL.Path)
		assert.Equal(t, "1h", r.URL.Query().Get("interval"))
		w.Header().Set("Content-Type", "application/json")
		// Open time in ms, then string OHLCV, then fields the mapper ignores.
		w.Write([]byte(`[
			[1700000000000, "100.5", "105.0", "99.0", "104.2", "1234.5", 1700003599999, "0", 10, "0", "0", "0"],
			[1700003600000, "104.2", "106.0", "103.0", "105.1", "987.6", 1700007199999, "0", 10, "0", "0", "0"]
		]`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, newTestLogger())
	candles := c.GetKlines(context.Background(), "BTCUSDT", "1h", 2)

	assert.Len(t, candles, 2)
	assert.Equal(t, int64(1700000000), candles[0].OpenTime)
	assert.Equal(t, 100.5, candles[0].Open)
	assert.Equal(t, 105.0, candles[0].High)
	assert.Equal(t, 99.0, candles[0].Low)
	assert.Equal(t, 104.2, candles[0].Close)
	assert.Equal(t, 1234.5, candles[0].Volume)
	assert.Equal(t, int64(1700003600), candles[1].OpenTime)
}

func TestGetKlines_SkipsMalformedRows(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			[1700000000000, "100", "101", "99", "100.5", "10"],
			["bad", "100", "101", "99", "100.5", "10"],
			[1700003600000, "100"]
		]`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, newTestLogger())
	candles := c.GetKlines(context.Background(), "BTCUSDT", "1h", 10)

	assert.Len(t, candles, 1)
}

func TestGetOrderBook(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/depth", r.URL.Path)
		assert.Equal(t, "20", r.URL.Query().Get("limit"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"lastUpdateId": 42, "bids": [["50000.0", "1.5"]], "asks": [["50001.0", "0.7"]]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, newTestLogger())
	book := c.GetOrderBook(context.Background(), "BTCUSDT", 20)

	assert.Equal(t, int64(42), book.LastUpdateID)
	assert.Equal(t, [2]string{"50000.0", "1.5"}, book.Bids[0])
	assert.Equal(t, [2]string{"50001.0", "0.7"}, book.Asks[0])
}

func TestGetOrderBook_EmptySentinelOnFailure(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, newTestLogger())
	book := c.GetOrderBook(context.Background(), "BTCUSDT", 20)

	assert.NotNil(t, book.Bids)
	assert.NotNil(t, book.Asks)
	assert.Empty(t, book.Bids)
	assert.Empty(t, book.Asks)
}

func TestPing(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/ping", r.URL.Path)
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, newTestLogger())
	assert.NoError(t, c.Ping(context.Background()))
	assert.Equal(t, "market_api", c.Name())
}

func TestPing_ErrorOnBadStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, newTestLogger())
	err := c.Ping(context.Background())
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}
