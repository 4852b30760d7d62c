package market

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"

	"tradewatch/pkg/models"
	"tradewatch/pkg/utils"
)

// Client wraps the exchange REST endpoints. Transport failures are absorbed
// at this boundary and converted to empty-result sentinels so rendering code
// never branches on fetch errors.
type Client struct {
	client      *resty.Client
	logger      *logrus.Logger
	rateLimiter *RateLimiter
}

func NewClient(baseURL string, logger *logrus.Logger) *Client {
	client := resty.New()
	client.SetBaseURL(baseURL)
	client.SetTimeout(30 * time.Second)
	client.SetRetryCount(3)
	client.SetRetryWaitTime(1 * time.Second)

	return &Client{
		client:      client,
		logger:      logger,
		rateLimiter: NewRateLimiter(10),
	}
}

// GetTopVolumeCoins returns the USDT quote pairs with positive quote volume,
// sorted descending by quote volume, truncated to limit. Returns an empty
// slice on any failure.
func (c *Client) GetTopVolumeCoins(ctx context.Context, limit int) []Ticker {
	c.rateLimiter.Wait()

	resp, err := c.client.R().SetContext(ctx).Get("/ticker/24hr")
	if err != nil {
		c.logger.WithError(err).Error("Failed to fetch 24hr tickers")
		return []Ticker{}
	}
	if resp.IsError() {
		c.logger.WithField("status", resp.StatusCode()).Error("Ticker request returned non-OK status")
		return []Ticker{}
	}

	var tickers []Ticker
	if err := json.Unmarshal(resp.Body(), &tickers); err != nil {
		c.logger.WithError(err).Error("Failed to unmarshal tickers")
		return []Ticker{}
	}

	filtered := make([]Ticker, 0, len(tickers))
	for _, ticker := range tickers {
		if !strings.HasSuffix(ticker.Symbol, "USDT") {
			continue
		}
		quoteVolume, err := utils.ParseFloat(ticker.QuoteVolume)
		if err != nil || quoteVolume <= 0 {
			continue
		}
		filtered = append(filtered, ticker)
	}

	sort.Slice(filtered, func(i, j int) bool {
		vi, _ := utils.ParseFloat(filtered[i].QuoteVolume)
		vj, _ := utils.ParseFloat(filtered[j].QuoteVolume)
		return vi > vj
	})

	if limit > 0 && len(filtered) > limit {
		filtered = filtered[:limit]
	}

	c.logger.WithField("ticker_count", len(filtered)).Debug("Fetched top volume coins")
	return filtered
}

// Get24hrStats returns the rolling statistics for one symbol, or nil on failure.
func (c *Client) Get24hrStats(ctx context.Context, symbol string) *Ticker {
	c.rateLimiter.Wait()

	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParam("symbol", strings.ToUpper(symbol)).
		Get("/ticker/24hr")
	if err != nil {
		c.logger.WithError(err).WithField("symbol", symbol).Error("Failed to fetch 24hr stats")
		return nil
	}
	if resp.IsError() {
		c.logger.WithFields(logrus.Fields{
			"symbol": symbol,
			"status": resp.StatusCode(),
		}).Error("24hr stats request returned non-OK status")
		return nil
	}

	var ticker Ticker
	if err := json.Unmarshal(resp.Body(), &ticker); err != nil {
		c.logger.WithError(err).Error("Failed to unmarshal 24hr stats")
		return nil
	}

	return &ticker
}

// GetKlines fetches up to limit OHLCV candles, mapping the raw positional
// arrays into named records. Returns an empty slice on failure.
func (c *Client) GetKlines(ctx context.Context, symbol, interval string, limit int) []models.Candle {
	c.rateLimiter.Wait()

	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"symbol":   strings.ToUpper(symbol),
			"interval": interval,
			"limit":    strconv.Itoa(limit),
		}).
		Get("/klines")
	if err != nil {
		c.logger.WithError(err).WithField("symbol", symbol).Error("Failed to fetch klines")
		return []models.Candle{}
	}
	if resp.IsError() {
		c.logger.WithFields(logrus.Fields{
			"symbol": symbol,
			"status": resp.StatusCode(),
		}).Error("Kline request returned non-OK status")
		return []models.Candle{}
	}

	var rawKlines [][]json.RawMessage
	if err := json.Unmarshal(resp.Body(), &rawKlines); err != nil {
		c.logger.WithError(err).Error("Failed to unmarshal klines")
		return []models.Candle{}
	}

	candles := make([]models.Candle, 0, len(rawKlines))
	for _, raw := range rawKlines {
		if len(raw) < 6 {
			continue
		}

		candle, err := parseRawKline(raw)
		if err != nil {
			c.logger.WithError(err).Debug("Skipping malformed kline row")
			continue
		}
		candles = append(candles, candle)
	}

	return candles
}

// parseRawKline maps one positional kline array: open time in milliseconds
// followed by string-encoded open/high/low/close/volume.
func parseRawKline(raw []json.RawMessage) (models.Candle, error) {
	var openTime int64
	if err := json.Unmarshal(raw[0], &openTime); err != nil {
		return models.Candle{}, fmt.Errorf("bad open time: %w", err)
	}

	fields := make([]float64, 5)
	for i := 0; i < 5; i++ {
		var s string
		if err := json.Unmarshal(raw[i+1], &s); err != nil {
			return models.Candle{}, fmt.Errorf("bad kline field %d: %w", i+1, err)
		}
		value, err := utils.ParseFloat(s)
		if err != nil {
			return models.Candle{}, fmt.Errorf("bad kline field %d: %w", i+1, err)
		}
		fields[i] = value
	}

	return models.Candle{
		OpenTime: openTime / 1000,
		Open:     fields[0],
		High:     fields[1],
		Low:      fields[2],
		Close:    fields[3],
		Volume:   fields[4],
	}, nil
}

// GetOrderBook fetches bid/ask levels. Returns empty books on failure.
func (c *Client) GetOrderBook(ctx context.Context, symbol string, limit int) OrderBook {
	c.rateLimiter.Wait()

	empty := OrderBook{Bids: [][2]string{}, Asks: [][2]string{}}

	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"symbol": strings.ToUpper(symbol),
			"limit":  strconv.Itoa(limit),
		}).
		Get("/depth")
	if err != nil {
		c.logger.WithError(err).WithField("symbol", symbol).Error("Failed to fetch order book")
		return empty
	}
	if resp.IsError() {
		c.logger.WithFields(logrus.Fields{
			"symbol": symbol,
			"status": resp.StatusCode(),
		}).Error("Order book request returned non-OK status")
		return empty
	}

	var book OrderBook
	if err := json.Unmarshal(resp.Body(), &book); err != nil {
		c.logger.WithError(err).Error("Failed to unmarshal order book")
		return empty
	}
	if book.Bids == nil {
		book.Bids = [][2]string{}
	}
	if book.Asks == nil {
		book.Asks = [][2]string{}
	}

	return book
}

// Name identifies the client in health reports.
func (c *Client) Name() string { return "market_api" }

// Ping checks exchange reachability. Unlike the data fetchers it returns the
// error, since health reporting needs the failure rather than a sentinel.
func (c *Client) Ping(ctx context.Context) error {
	resp, err := c.client.R().SetContext(ctx).Get("/ping")
	if err != nil {
		return fmt.Errorf("market api unreachable: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("market api ping returned status %d", resp.StatusCode())
	}
	return nil
}
