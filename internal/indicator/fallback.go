package indicator

import (
	"context"
	"math/rand"

	"github.com/sirupsen/logrus"
)

// mockFallbackSource wraps a Source and substitutes a deterministic mock
// series when the wrapped call fails. The panel always renders something;
// correctness is traded for availability. Keeping the policy in a decorator
// leaves the underlying client a plain pass-through.
type mockFallbackSource struct {
	inner  Source
	logger *logrus.Logger
}

// WithMockFallback decorates source with the mock-series fallback policy.
func WithMockFallback(source Source, logger *logrus.Logger) Source {
	return &mockFallbackSource{
		inner:  source,
		logger: logger,
	}
}

func (m *mockFallbackSource) FetchSeries(ctx context.Context, q Query) ([]PointData, error) {
	points, err := m.inner.FetchSeries(ctx, q)
	if err != nil {
		m.logger.WithError(err).WithFields(logrus.Fields{
			"type": q.Type,
			"side": q.Side,
		}).Warn("Indicator API failed, using mock data")
		return MockSeries(q), nil
	}
	return points, nil
}

const mockSeriesLength = 100

// MockSeries generates a plausible-looking series for a query. The generator
// is seeded from the query's start time, so retries of the same window
// produce identical data.
func MockSeries(q Query) []PointData {
	rng := rand.New(rand.NewSource(q.From))

	points := make([]PointData, 0, mockSeriesLength)
	currentPrice := 50000.0
	t := q.From

	for i := 0; i < mockSeriesLength; i++ {
		t += 60
		currentPrice += (rng.Float64() - 0.5) * 100

		point := PointData{
			Timestamp: Timestamp{Seconds: t},
			Open:      currentPrice,
			High:      currentPrice + 50,
			Low:       currentPrice - 50,
			Close:     currentPrice + 20,
			Volume:    rng.Float64() * 10,
		}

		switch q.Type {
		case TypeLiquidationAgg:
			point.Liquidations = rng.Float64() * 5000
		case TypeOpenInterestAgg:
			point.OIClose = rng.Float64() * 1000000
		}
		if q.Side == SideSell {
			point.Volume *= 0.9
		}

		points = append(points, point)
	}

	return points
}
