package indicator

import "math"

// DefaultRSIPeriod is the conventional lookback for the oscillator.
const DefaultRSIPeriod = 14

const rsiNeutral = 50.0

// RSI converts a price sequence into a Wilder-smoothed oscillator sequence.
//
// The output aligns index-for-index with the input: the first period entries
// are NaN placeholders with no defined value. When fewer than period+1 prices
// are available the whole output is the neutral value 50 rather than an
// error, so a short warm-up window still renders a flat line.
func RSI(prices []float64, period int) []float64 {
	if period <= 0 {
		period = DefaultRSIPeriod
	}

	if len(prices) < period+1 {
		out := make([]float64, len(prices))
		for i := range out {
			out[i] = rsiNeutral
		}
		return out
	}

	out := make([]float64, 0, len(prices))
	for i := 0; i < period; i++ {
		out = append(out, math.NaN())
	}

	var gains, losses float64
	for i := 1; i <= period; i++ {
		diff := prices[i] - prices[i-1]
		if diff >= 0 {
			gains += diff
		} else {
			losses += -diff
		}
	}

	avgGain := gains / float64(period)
	avgLoss := losses / float64(period)

	// A zero average loss is treated as 1, biasing toward 100 instead of
	// producing an undefined ratio.
	out = append(out, 100-100/(1+avgGain/orOne(avgLoss)))

	for i := period + 1; i < len(prices); i++ {
		diff := prices[i] - prices[i-1]
		var currentGain, currentLoss float64
		if diff > 0 {
			currentGain = diff
		} else if diff < 0 {
			currentLoss = -diff
		}

		avgGain = (avgGain*float64(period-1) + currentGain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + currentLoss) / float64(period)

		rs := avgGain / orOne(avgLoss)
		out = append(out, 100-100/(1+rs))
	}

	return out
}

func orOne(v float64) float64 {
	if v == 0 {
		return 1
	}
	return v
}

// Point is one renderable sample of a computed series.
type Point struct {
	Time  int64   `json:"time"`
	Value float64 `json:"value"`
}

// RSIPoints pairs RSI values with their candle times, dropping the undefined
// warm-up placeholders. Filtering happens here, at the chart hand-off, so the
// raw sequence stays aligned with the price input for callers that index it.
func RSIPoints(times []int64, values []float64) []Point {
	points := make([]Point, 0, len(values))
	for i, v := range values {
		if i >= len(times) || math.IsNaN(v) {
			continue
		}
		points = append(points, Point{Time: times[i], Value: v})
	}
	return points
}
