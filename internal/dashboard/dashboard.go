package dashboard

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"tradewatch/internal/chart"
	"tradewatch/internal/config"
	"tradewatch/internal/indicator"
	"tradewatch/internal/market"
	"tradewatch/internal/store"
	"tradewatch/pkg/models"
	"tradewatch/pkg/utils"
)

const klineHistoryLimit = 500

// Dashboard drives the live view: it owns the selected (symbol, timeframe)
// renderer, keeps the store fed from market streams, and schedules the
// periodic indicator and order-book refreshes.
type Dashboard struct {
	cfg        *config.Config
	store      *store.Store
	marketAPI  *market.Client
	streams    *market.StreamDialer
	indicators *indicator.Service
	cron       *cron.Cron
	logger     *logrus.Logger

	mu            sync.Mutex
	renderer      *chart.Renderer
	tickerSub     *market.Subscription
	orderBook     market.OrderBook
	indicatorData indicator.Data
	rsi           []indicator.Point
}

func New(cfg *config.Config, st *store.Store, marketAPI *market.Client, streams *market.StreamDialer, indicators *indicator.Service, logger *logrus.Logger) *Dashboard {
	return &Dashboard{
		cfg:        cfg,
		store:      st,
		marketAPI:  marketAPI,
		streams:    streams,
		indicators: indicators,
		cron:       cron.New(cron.WithSeconds()),
		logger:     logger,
	}
}

// Start performs the initial loads, opens the shared ticker stream, selects
// the default view, and schedules the recurring refreshes.
func (d *Dashboard) Start(ctx context.Context) error {
	d.store.FetchAssets(ctx)
	d.store.FetchActiveTrades(ctx)
	d.store.FetchTradeHistory(ctx)
	d.store.FetchSignals(ctx)
	d.store.FetchAlerts(ctx)
	d.store.FetchP2P(ctx, 0)

	sub, err := d.streams.SubscribeTickers(d.cfg.SupportedSymbols, func(ev market.TickerEvent) {
		price, _ := utils.ParseFloat(ev.LastPrice)
		change, _ := utils.ParseFloat(ev.PriceChangePercent)
		d.store.UpdateAssetPrice(ctx, ev.Symbol, price, change)
	})
	if err != nil {
		return fmt.Errorf("subscribing ticker stream: %w", err)
	}
	d.mu.Lock()
	d.tickerSub = sub
	d.mu.Unlock()

	if err := d.SelectView(ctx, d.cfg.SelectedAsset, "1h"); err != nil {
		d.logger.WithError(err).Error("Failed to load initial chart view")
	}

	indicatorSpec := fmt.Sprintf("@every %s", d.cfg.IndicatorInterval)
	if _, err := d.cron.AddFunc(indicatorSpec, func() {
		d.refreshIndicators(ctx)
	}); err != nil {
		return fmt.Errorf("scheduling indicator refresh: %w", err)
	}

	// Asset list refresh hourly; streamed tickers keep prices live in between.
	if _, err := d.cron.AddFunc("0 0 * * * *", func() {
		d.store.FetchAssets(ctx)
	}); err != nil {
		return fmt.Errorf("scheduling asset refresh: %w", err)
	}

	d.cron.Start()
	go d.pollOrderBook(ctx)

	d.logger.Info("Dashboard started")
	return nil
}

// SelectView switches the chart to a (symbol, timeframe) pair. The previous
// renderer and its kline stream are torn down; history, markers, indicators
// and the live subscription are rebuilt for the new pair.
func (d *Dashboard) SelectView(ctx context.Context, symbol, timeframe string) error {
	renderer := chart.NewRenderer(symbol, timeframe, d.logger)

	candles := d.marketAPI.GetKlines(ctx, symbol, timeframe, klineHistoryLimit)
	renderer.SetHistory(candles)
	renderer.SetMarkers(chart.SyncMarkers(d.store.ActiveTrades(), d.store.TradeHistory(), symbol, timeframe))

	sub, err := d.streams.SubscribeKline(symbol, timeframe, func(ev market.KlineEvent) {
		renderer.ApplyCandle(candleFromKline(ev.Kline))
	})
	if err != nil {
		return fmt.Errorf("subscribing kline stream for %s@%s: %w", symbol, timeframe, err)
	}
	renderer.AttachStream(sub)

	d.mu.Lock()
	previous := d.renderer
	d.renderer = renderer
	d.mu.Unlock()

	if previous != nil {
		if err := previous.Close(); err != nil {
			d.logger.WithError(err).Warn("Failed to close previous chart view")
		}
	}

	d.refreshIndicators(ctx)
	return nil
}

// Renderer returns the current chart view.
func (d *Dashboard) Renderer() *chart.Renderer {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.renderer
}

func (d *Dashboard) OrderBook() market.OrderBook {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.orderBook
}

func (d *Dashboard) IndicatorData() indicator.Data {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.indicatorData
}

func (d *Dashboard) RSI() []indicator.Point {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]indicator.Point, len(d.rsi))
	copy(out, d.rsi)
	return out
}

// OnTableChange is the realtime listener callback: it relists the changed
// table and, for trade tables, resyncs the chart markers.
func (d *Dashboard) OnTableChange(ctx context.Context, table string) {
	switch table {
	case "p2p_opportunities":
		d.store.FetchP2P(ctx, 0)
	case "active_trades":
		d.store.FetchActiveTrades(ctx)
	case "trade_history":
		d.store.FetchTradeHistory(ctx)
	case "signals":
		d.store.FetchSignals(ctx)
	case "alerts":
		d.store.FetchAlerts(ctx)
	default:
		d.logger.WithField("table", table).Warn("Change notification for unknown table")
		return
	}

	if table == "active_trades" || table == "trade_history" {
		d.mu.Lock()
		renderer := d.renderer
		d.mu.Unlock()
		if renderer != nil {
			renderer.SetMarkers(chart.SyncMarkers(
				d.store.ActiveTrades(), d.store.TradeHistory(),
				renderer.Symbol(), renderer.Timeframe()))
		}
	}
}

// refreshIndicators refetches the analytics series and recomputes RSI for
// the current view.
func (d *Dashboard) refreshIndicators(ctx context.Context) {
	d.mu.Lock()
	renderer := d.renderer
	d.mu.Unlock()
	if renderer == nil {
		return
	}

	candles := renderer.Candles()
	if len(candles) == 0 {
		return
	}

	data := d.indicators.GetIndicatorData(ctx, renderer.Symbol(), indicator.IntervalForTimeframe(renderer.Timeframe()), candles[0].OpenTime)

	times := make([]int64, len(candles))
	for i, c := range candles {
		times[i] = c.OpenTime
	}
	rsi := indicator.RSIPoints(times, indicator.RSI(renderer.ClosePrices(), 14))

	d.mu.Lock()
	d.indicatorData = data
	d.rsi = rsi
	d.mu.Unlock()
}

// pollOrderBook refreshes depth for the current view on a short fixed
// interval until the context is cancelled.
func (d *Dashboard) pollOrderBook(ctx context.Context) {
	ticker := time.NewTicker(d.cfg.OrderBookInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.mu.Lock()
			renderer := d.renderer
			d.mu.Unlock()
			if renderer == nil {
				continue
			}

			book := d.marketAPI.GetOrderBook(ctx, renderer.Symbol(), d.cfg.OrderBookDepth)
			d.mu.Lock()
			d.orderBook = book
			d.mu.Unlock()
		}
	}
}

// Stop tears down the scheduler, streams and the current view.
func (d *Dashboard) Stop() {
	d.cron.Stop()

	d.mu.Lock()
	tickerSub := d.tickerSub
	renderer := d.renderer
	d.tickerSub = nil
	d.renderer = nil
	d.mu.Unlock()

	if tickerSub != nil {
		if err := tickerSub.Close(); err != nil {
			d.logger.WithError(err).Warn("Failed to close ticker stream")
		}
	}
	if renderer != nil {
		if err := renderer.Close(); err != nil {
			d.logger.WithError(err).Warn("Failed to close chart view")
		}
	}

	d.logger.Info("Dashboard stopped")
}

func candleFromKline(k market.KlinePayload) models.Candle {
	open, _ := utils.ParseFloat(k.Open)
	high, _ := utils.ParseFloat(k.High)
	low, _ := utils.ParseFloat(k.Low)
	closePrice, _ := utils.ParseFloat(k.Close)
	volume, _ := utils.ParseFloat(k.Volume)

	return models.Candle{
		OpenTime: k.StartTime / 1000,
		Open:     open,
		High:     high,
		Low:      low,
		Close:    closePrice,
		Volume:   volume,
	}
}
