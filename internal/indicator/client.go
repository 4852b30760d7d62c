package indicator

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
)

// PointType selects the aggregate kind of a point-series query.
type PointType string

const (
	TypeTradeAgg        PointType = "TRADE_AGG"
	TypeOpenInterestAgg PointType = "OPEN_INTEREST_AGG"
	TypeLiquidationAgg  PointType = "LIQUIDATION_AGG"
)

// PointSide filters a trade aggregate to one side of the tape.
type PointSide string

const (
	SideBuy  PointSide = "BUY"
	SideSell PointSide = "SELL"
)

// Interval names accepted by the analytics API.
type Interval string

const (
	IntervalMinute         Interval = "MINUTE"
	IntervalFiveMinutes    Interval = "FIVE_MINUTES"
	IntervalFifteenMinutes Interval = "FIFTEEN_MINUTES"
	IntervalHour           Interval = "HOUR"
	IntervalFourHours      Interval = "FOUR_HOURS"
	IntervalDay            Interval = "DAY"
	IntervalWeek           Interval = "WEEK"
)

// IntervalForTimeframe maps a chart timeframe string to the interval name
// the analytics API accepts. Unknown timeframes resolve to HOUR.
func IntervalForTimeframe(timeframe string) Interval {
	switch timeframe {
	case "1m":
		return IntervalMinute
	case "5m":
		return IntervalFiveMinutes
	case "15m":
		return IntervalFifteenMinutes
	case "1h":
		return IntervalHour
	case "4h":
		return IntervalFourHours
	case "1d":
		return IntervalDay
	case "1w":
		return IntervalWeek
	default:
		return IntervalHour
	}
}

// Timestamp is the nested second/nanosecond representation the API returns.
type Timestamp struct {
	Seconds     int64 `json:"seconds"`
	Nanoseconds int64 `json:"nanoseconds"`
}

// PointData is one time-bucketed sample. Fields are sparsely populated
// depending on the aggregate type.
type PointData struct {
	Timestamp    Timestamp `json:"timestamp"`
	Open         float64   `json:"open,omitempty"`
	High         float64   `json:"high,omitempty"`
	Low          float64   `json:"low,omitempty"`
	Close        float64   `json:"close,omitempty"`
	Volume       float64   `json:"volume,omitempty"`
	Liquidations float64   `json:"liquidations,omitempty"`
	OIClose      float64   `json:"oiClose,omitempty"`
}

type pointSeries struct {
	Points []PointData `json:"points"`
}

type pointsResponse struct {
	Series []pointSeries `json:"series"`
}

// Query describes one point-series request.
type Query struct {
	Type      PointType
	Coin      string
	Interval  Interval
	From      int64
	Side      PointSide // empty means unsided
}

// Source fetches one point series. The concrete client is a thin
// pass-through; fallback policy is layered on separately (see fallback.go).
type Source interface {
	FetchSeries(ctx context.Context, q Query) ([]PointData, error)
}

// Client calls the third-party analytics REST API.
type Client struct {
	client *resty.Client
	apiKey string
	logger *logrus.Logger
}

func NewClient(baseURL, apiKey string, logger *logrus.Logger) *Client {
	client := resty.New()
	client.SetBaseURL(baseURL)
	client.SetTimeout(30 * time.Second)

	return &Client{
		client: client,
		apiKey: apiKey,
		logger: logger,
	}
}

func (c *Client) FetchSeries(ctx context.Context, q Query) ([]PointData, error) {
	req := c.client.R().
		SetContext(ctx).
		SetHeader("x-kiyotaka-key", c.apiKey).
		SetQueryParam("type", string(q.Type)).
		SetQueryParam("exchange", "BINANCE").
		SetQueryParam("coin", q.Coin).
		SetQueryParam("interval", string(q.Interval)).
		SetQueryParam("from", strconv.FormatInt(q.From, 10))
	if q.Side != "" {
		req.SetQueryParam("side", string(q.Side))
	}

	resp, err := req.Get("/points")
	if err != nil {
		return nil, fmt.Errorf("points request failed: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("points request returned status %d", resp.StatusCode())
	}

	var parsed pointsResponse
	if err := json.Unmarshal(resp.Body(), &parsed); err != nil {
		return nil, fmt.Errorf("failed to unmarshal points response: %w", err)
	}

	if len(parsed.Series) == 0 {
		return []PointData{}, nil
	}
	return parsed.Series[0].Points, nil
}

// Data bundles the four series backing the indicator panel.
type Data struct {
	BuyTrades    []PointData
	SellTrades   []PointData
	OpenInterest []PointData
	Liquidations []PointData
}

// Service issues the four sub-queries of one indicator refresh.
type Service struct {
	source Source
	logger *logrus.Logger
}

func NewService(source Source, logger *logrus.Logger) *Service {
	return &Service{
		source: source,
		logger: logger,
	}
}

// CoinFromSymbol strips the USDT quote suffix ("BTCUSDT" -> "BTC").
func CoinFromSymbol(symbol string) string {
	return strings.TrimSuffix(strings.ToUpper(symbol), "USDT")
}

// GetIndicatorData gathers buy volume, sell volume, open interest, and
// liquidations for one symbol/interval/time-window. The four requests run
// concurrently and every branch completes: per-branch failures were already
// converted to fallback data by the source decorator, so the join itself
// never fails. Buy and sell are separate queries because the upstream API
// does not accept multi-valued side filters.
func (s *Service) GetIndicatorData(ctx context.Context, symbol string, interval Interval, startTime int64) Data {
	coin := CoinFromSymbol(symbol)

	base := Query{Coin: coin, Interval: interval, From: startTime}

	queries := []Query{
		{Type: TypeTradeAgg, Side: SideBuy},
		{Type: TypeTradeAgg, Side: SideSell},
		{Type: TypeOpenInterestAgg},
		{Type: TypeLiquidationAgg},
	}
	results := make([][]PointData, len(queries))

	var wg sync.WaitGroup
	for i, q := range queries {
		q.Coin = base.Coin
		q.Interval = base.Interval
		q.From = base.From

		wg.Add(1)
		go func(i int, q Query) {
			defer wg.Done()
			points, err := s.source.FetchSeries(ctx, q)
			if err != nil {
				// Sources without a fallback decorator can still fail;
				// render an empty panel section rather than blocking.
				s.logger.WithError(err).WithFields(logrus.Fields{
					"type": q.Type,
					"side": q.Side,
				}).Warn("Indicator series unavailable")
				points = []PointData{}
			}
			results[i] = points
		}(i, q)
	}
	wg.Wait()

	return Data{
		BuyTrades:    results[0],
		SellTrades:   results[1],
		OpenInterest: results[2],
		Liquidations: results[3],
	}
}
