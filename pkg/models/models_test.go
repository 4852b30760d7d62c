package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStrengthFromChange(t *testing.T) {
	t.Parallel()

	tests := []struct {
		change   float64
		expected Strength
	}{
		{15, StrengthVeryStrong},
		{10.01, StrengthVeryStrong},
		{10, StrengthStrong}, // boundary is exclusive
		{5, StrengthStrong},
		{3.01, StrengthStrong},
		{3, StrengthNeutral}, // boundary is exclusive
		{0, StrengthNeutral},
		{-3, StrengthNeutral}, // boundary is exclusive
		{-3.01, StrengthWeak},
		{-5, StrengthWeak},
		{-10, StrengthWeak}, // boundary is exclusive
		{-10.01, StrengthVeryWeak},
		{-15, StrengthVeryWeak},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, StrengthFromChange(tt.change), "change %.2f", tt.change)
	}
}

func TestPortfolioTrade_LongProfitAndROI(t *testing.T) {
	t.Parallel()

	trade := PortfolioTrade{
		Type:       "Long",
		EntryPrice: 100,
		ExitPrice:  110,
		Quantity:   2,
	}

	assert.True(t, trade.Closed())
	assert.InDelta(t, 20, trade.Profit(), 1e-9)
	assert.InDelta(t, 10, trade.ROIPercent(), 1e-9)
}

func TestPortfolioTrade_ShortInvertsDirection(t *testing.T) {
	t.Parallel()

	trade := PortfolioTrade{
		Type:       "Short",
		EntryPrice: 100,
		ExitPrice:  110,
		Quantity:   2,
	}

	assert.InDelta(t, -20, trade.Profit(), 1e-9)
	assert.InDelta(t, -10, trade.ROIPercent(), 1e-9)
}

func TestPortfolioTrade_OpenTradeHasNoResult(t *testing.T) {
	t.Parallel()

	trade := PortfolioTrade{
		Type:       "Long",
		EntryPrice: 100,
		Quantity:   2,
	}

	assert.False(t, trade.Closed())
	assert.Zero(t, trade.Profit())
	assert.Zero(t, trade.ROIPercent())
}

func TestPortfolioTrade_ZeroEntryPrice(t *testing.T) {
	t.Parallel()

	trade := PortfolioTrade{
		Type:       "Long",
		EntryPrice: 0,
		ExitPrice:  10,
		Quantity:   1,
	}

	assert.Zero(t, trade.ROIPercent())
}
