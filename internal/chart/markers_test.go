package chart

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"tradewatch/pkg/models"
)

func TestTimeframeSeconds(t *testing.T) {
	t.Parallel()

	tests := []struct {
		timeframe string
		expected  int64
	}{
		{"1m", 60},
		{"5m", 300},
		{"15m", 900},
		{"1h", 3600},
		{"4h", 14400},
		{"1d", 86400},
		{"1w", 604800},
		{"", 3600},
		{"h", 3600},
		{"0m", 3600},
		{"abc", 3600},
		{"1y", 3600},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, TimeframeSeconds(tt.timeframe), "timeframe %q", tt.timeframe)
	}
}

func TestSyncMarkers_EntryAndExit(t *testing.T) {
	t.Parallel()

	entry := time.Date(2026, 3, 1, 10, 17, 42, 0, time.UTC)
	exit := time.Date(2026, 3, 1, 14, 3, 9, 0, time.UTC)

	history := []models.TradeHistory{{
		ID:        "h1",
		Symbol:    "BTCUSDT",
		EntryTime: entry,
		ExitTime:  exit,
	}}

	markers := SyncMarkers(nil, history, "BTCUSDT", "1h")

	assert.Len(t, markers, 2)

	assert.Equal(t, entry.Truncate(time.Hour).Unix(), markers[0].Time)
	assert.Equal(t, "ENTRY", markers[0].Text)
	assert.Equal(t, models.MarkerBelowBar, markers[0].Position)
	assert.Equal(t, models.MarkerArrowUp, markers[0].Shape)
	assert.Equal(t, "#089981", markers[0].Color)

	assert.Equal(t, exit.Truncate(time.Hour).Unix(), markers[1].Time)
	assert.Equal(t, "EXIT", markers[1].Text)
	assert.Equal(t, models.MarkerAboveBar, markers[1].Position)
	assert.Equal(t, models.MarkerArrowDown, markers[1].Shape)
	assert.Equal(t, "#F23645", markers[1].Color)
}

func TestSyncMarkers_DeduplicatesSameBucket(t *testing.T) {
	t.Parallel()

	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	// Two entries inside the same hourly candle produce one marker.
	active := []models.ActiveTrade{
		{ID: "a1", Symbol: "BTCUSDT", EntryTime: base.Add(5 * time.Minute)},
		{ID: "a2", Symbol: "BTCUSDT", EntryTime: base.Add(40 * time.Minute)},
	}

	markers := SyncMarkers(active, nil, "BTCUSDT", "1h")

	assert.Len(t, markers, 1)
	assert.Equal(t, base.Unix(), markers[0].Time)
	assert.Equal(t, "ENTRY", markers[0].Text)
}

func TestSyncMarkers_SeparateBucketsOnFinerTimeframe(t *testing.T) {
	t.Parallel()

	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	active := []models.ActiveTrade{
		{ID: "a1", Symbol: "BTCUSDT", EntryTime: base.Add(5 * time.Minute)},
		{ID: "a2", Symbol: "BTCUSDT", EntryTime: base.Add(40 * time.Minute)},
	}

	markers := SyncMarkers(active, nil, "BTCUSDT", "5m")

	assert.Len(t, markers, 2)
	assert.Less(t, markers[0].Time, markers[1].Time)
}

func TestSyncMarkers_HistoryEntrySkippedForProcessedID(t *testing.T) {
	t.Parallel()

	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	active := []models.ActiveTrade{
		{ID: "t1", Symbol: "BTCUSDT", EntryTime: base},
	}
	// Same trade id still present in history with a different entry time must
	// not contribute a second entry marker.
	history := []models.TradeHistory{
		{ID: "t1", Symbol: "BTCUSDT", EntryTime: base.Add(3 * time.Hour), ExitTime: base.Add(6 * time.Hour)},
	}

	markers := SyncMarkers(active, history, "BTCUSDT", "1h")

	var entries, exits int
	for _, m := range markers {
		switch m.Text {
		case "ENTRY":
			entries++
		case "EXIT":
			exits++
		}
	}
	assert.Equal(t, 1, entries)
	assert.Equal(t, 1, exits)
}

func TestSyncMarkers_SymbolPrefixMatching(t *testing.T) {
	t.Parallel()

	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	active := []models.ActiveTrade{
		{ID: "a1", Symbol: "BTC", EntryTime: base},
		{ID: "a2", Symbol: "ETHUSDT", EntryTime: base},
	}

	markers := SyncMarkers(active, nil, "BTCUSDT", "1h")

	assert.Len(t, markers, 1)
}

func TestSyncMarkers_SkipsZeroEntryTime(t *testing.T) {
	t.Parallel()

	active := []models.ActiveTrade{
		{ID: "a1", Symbol: "BTCUSDT"},
	}

	assert.Empty(t, SyncMarkers(active, nil, "BTCUSDT", "1h"))
}

func TestSyncMarkers_SortedAscending(t *testing.T) {
	t.Parallel()

	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	history := []models.TradeHistory{
		{ID: "h1", Symbol: "BTCUSDT", EntryTime: base.Add(9 * time.Hour), ExitTime: base.Add(12 * time.Hour)},
		{ID: "h2", Symbol: "BTCUSDT", EntryTime: base.Add(1 * time.Hour), ExitTime: base.Add(2 * time.Hour)},
	}

	markers := SyncMarkers(nil, history, "BTCUSDT", "1h")

	assert.Len(t, markers, 4)
	for i := 1; i < len(markers); i++ {
		assert.LessOrEqual(t, markers[i-1].Time, markers[i].Time)
	}
}
