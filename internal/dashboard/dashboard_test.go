package dashboard

import (
	"context"
	"io"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"

	"tradewatch/internal/chart"
	"tradewatch/internal/indicator"
	"tradewatch/pkg/models"
)

func newTestLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

type recordingSource struct {
	mu      sync.Mutex
	queries []indicator.Query
}

func (s *recordingSource) FetchSeries(_ context.Context, q indicator.Query) ([]indicator.PointData, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queries = append(s.queries, q)
	return []indicator.PointData{}, nil
}

func TestRefreshIndicators_MapsTimeframeToAPIInterval(t *testing.T) {
	t.Parallel()

	logger := newTestLogger()
	source := &recordingSource{}

	renderer := chart.NewRenderer("BTCUSDT", "1h", logger)
	renderer.SetHistory([]models.Candle{
		{OpenTime: 1700000000, Open: 100, High: 110, Low: 90, Close: 105},
		{OpenTime: 1700003600, Open: 105, High: 115, Low: 100, Close: 110},
	})

	d := &Dashboard{
		indicators: indicator.NewService(source, logger),
		logger:     logger,
		renderer:   renderer,
	}

	d.refreshIndicators(context.Background())

	assert.Len(t, source.queries, 4)
	for _, q := range source.queries {
		assert.Equal(t, indicator.IntervalHour, q.Interval)
		assert.Equal(t, "BTC", q.Coin)
		assert.Equal(t, int64(1700000000), q.From)
	}
}

func TestRefreshIndicators_UnknownTimeframeFallsBackToHour(t *testing.T) {
	t.Parallel()

	logger := newTestLogger()
	source := &recordingSource{}

	renderer := chart.NewRenderer("ETHUSDT", "30m", logger)
	renderer.SetHistory([]models.Candle{
		{OpenTime: 1700000000, Close: 2000},
	})

	d := &Dashboard{
		indicators: indicator.NewService(source, logger),
		logger:     logger,
		renderer:   renderer,
	}

	d.refreshIndicators(context.Background())

	assert.Len(t, source.queries, 4)
	for _, q := range source.queries {
		assert.Equal(t, indicator.IntervalHour, q.Interval)
	}
}
