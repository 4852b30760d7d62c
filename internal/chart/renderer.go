package chart

import (
	"sync"

	"github.com/sirupsen/logrus"

	"tradewatch/pkg/models"
)

// Renderer owns the candle series and markers for one (symbol, timeframe)
// view. It must be recreated, not reused, when the timeframe changes: both
// the historical load and the live subscription are keyed by it.
type Renderer struct {
	symbol    string
	timeframe string
	logger    *logrus.Logger

	mu           sync.Mutex
	candles      []models.Candle
	index        map[int64]int // open time -> position in candles
	markers      []models.Marker
	currentPrice float64

	stream interface{ Close() error }
}

func NewRenderer(symbol, timeframe string, logger *logrus.Logger) *Renderer {
	return &Renderer{
		symbol:    symbol,
		timeframe: timeframe,
		logger:    logger,
		index:     make(map[int64]int),
	}
}

func (r *Renderer) Symbol() string    { return r.symbol }
func (r *Renderer) Timeframe() string { return r.timeframe }

// SetHistory replaces the full series with fetched candles and records the
// last close as the displayed current price.
func (r *Renderer) SetHistory(candles []models.Candle) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.candles = make([]models.Candle, len(candles))
	copy(r.candles, candles)
	r.index = make(map[int64]int, len(candles))
	for i, c := range r.candles {
		r.index[c.OpenTime] = i
	}

	if len(r.candles) > 0 {
		r.currentPrice = r.candles[len(r.candles)-1].Close
	}

	r.logger.WithFields(logrus.Fields{
		"symbol":    r.symbol,
		"timeframe": r.timeframe,
		"candles":   len(r.candles),
	}).Debug("Chart history loaded")
}

// ApplyCandle upserts one streamed candle by open time: the candle for an
// already-known bucket is mutated in place, a new bucket is appended. The
// displayed current price follows the update's close.
func (r *Renderer) ApplyCandle(candle models.Candle) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if i, ok := r.index[candle.OpenTime]; ok {
		r.candles[i] = candle
	} else {
		r.index[candle.OpenTime] = len(r.candles)
		r.candles = append(r.candles, candle)
	}

	r.currentPrice = candle.Close
}

// SetMarkers stores the synchronized trade markers. The input is expected to
// be sorted ascending by time (SyncMarkers guarantees this).
func (r *Renderer) SetMarkers(markers []models.Marker) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.markers = markers
}

func (r *Renderer) Candles() []models.Candle {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]models.Candle, len(r.candles))
	copy(out, r.candles)
	return out
}

func (r *Renderer) Markers() []models.Marker {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]models.Marker, len(r.markers))
	copy(out, r.markers)
	return out
}

func (r *Renderer) CurrentPrice() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.currentPrice
}

// ClosePrices returns the close of every candle in series order, the input
// expected by the RSI calculator.
func (r *Renderer) ClosePrices() []float64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	prices := make([]float64, len(r.candles))
	for i, c := range r.candles {
		prices[i] = c.Close
	}
	return prices
}

// AttachStream hands the renderer ownership of the live subscription feeding
// it, so teardown closes exactly the stream opened for this view.
func (r *Renderer) AttachStream(stream interface{ Close() error }) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.stream = stream
}

// Close tears the view down, closing the attached stream if any. Safe to
// call on a renderer that never got a stream.
func (r *Renderer) Close() error {
	r.mu.Lock()
	stream := r.stream
	r.stream = nil
	r.mu.Unlock()

	if stream != nil {
		return stream.Close()
	}
	return nil
}
