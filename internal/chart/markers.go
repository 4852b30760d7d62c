package chart

import (
	"sort"
	"strings"
	"time"

	"tradewatch/pkg/models"
)

const (
	markerTextEntry = "ENTRY"
	markerTextExit  = "EXIT"

	colorUp   = "#089981"
	colorDown = "#F23645"
)

// TimeframeSeconds converts a timeframe string ("5m".."1w") to seconds.
// An unparseable value or unit falls back to one hour.
func TimeframeSeconds(timeframe string) int64 {
	if len(timeframe) < 2 {
		return 3600
	}

	unit := timeframe[len(timeframe)-1]
	value := int64(0)
	for _, ch := range timeframe[:len(timeframe)-1] {
		if ch < '0' || ch > '9' {
			return 3600
		}
		value = value*10 + int64(ch-'0')
	}
	if value == 0 {
		return 3600
	}

	switch unit {
	case 'm':
		return value * 60
	case 'h':
		return value * 3600
	case 'd':
		return value * 86400
	case 'w':
		return value * 604800
	default:
		return 3600
	}
}

// bucket rounds a timestamp down to the nearest timeframe boundary, so a
// marker lands on the candle its trade event belongs to regardless of
// sub-candle timestamp jitter.
func bucket(t time.Time, tfSeconds int64) int64 {
	seconds := t.Unix()
	return (seconds / tfSeconds) * tfSeconds
}

// symbolMatches tolerates inconsistent symbol naming between subsystems
// ("BTC" vs "BTCUSDT") by accepting a prefix match in either direction.
func symbolMatches(tradeSymbol, selected string) bool {
	return tradeSymbol == selected ||
		strings.HasPrefix(selected, tradeSymbol) ||
		strings.HasPrefix(tradeSymbol, selected)
}

// SyncMarkers merges active and historical trades into time-bucketed
// entry/exit markers for the selected symbol. At most one marker exists per
// (bucket, text) pair; duplicates from multiple trades closing inside the
// same candle are suppressed. The result is sorted ascending by time, which
// the renderer requires.
func SyncMarkers(active []models.ActiveTrade, history []models.TradeHistory, symbol, timeframe string) []models.Marker {
	tfSeconds := TimeframeSeconds(timeframe)
	markers := make([]models.Marker, 0, len(active)+2*len(history))

	isDuplicate := func(t int64, text string) bool {
		for _, m := range markers {
			if m.Time == t && m.Text == text {
				return true
			}
		}
		return false
	}

	processed := make(map[string]struct{}, len(active))

	// Entries from open trades.
	for _, trade := range active {
		if !symbolMatches(trade.Symbol, symbol) {
			continue
		}
		if trade.EntryTime.IsZero() {
			continue
		}
		if _, ok := processed[trade.ID]; ok {
			continue
		}
		processed[trade.ID] = struct{}{}

		t := bucket(trade.EntryTime, tfSeconds)
		if !isDuplicate(t, markerTextEntry) {
			markers = append(markers, models.Marker{
				Time:     t,
				Position: models.MarkerBelowBar,
				Shape:    models.MarkerArrowUp,
				Color:    colorUp,
				Text:     markerTextEntry,
			})
		}
	}

	// Closed trades contribute their entry too, unless the id was already
	// handled above, plus an independent exit marker.
	for _, trade := range history {
		if !symbolMatches(trade.Symbol, symbol) {
			continue
		}

		if !trade.EntryTime.IsZero() {
			if _, ok := processed[trade.ID]; !ok {
				t := bucket(trade.EntryTime, tfSeconds)
				if !isDuplicate(t, markerTextEntry) {
					markers = append(markers, models.Marker{
						Time:     t,
						Position: models.MarkerBelowBar,
						Shape:    models.MarkerArrowUp,
						Color:    colorUp,
						Text:     markerTextEntry,
					})
					processed[trade.ID] = struct{}{}
				}
			}
		}

		if !trade.ExitTime.IsZero() {
			t := bucket(trade.ExitTime, tfSeconds)
			if !isDuplicate(t, markerTextExit) {
				markers = append(markers, models.Marker{
					Time:     t,
					Position: models.MarkerAboveBar,
					Shape:    models.MarkerArrowDown,
					Color:    colorDown,
					Text:     markerTextExit,
				})
			}
		}
	}

	sort.Slice(markers, func(i, j int) bool {
		return markers[i].Time < markers[j].Time
	})

	return markers
}
