package models

import "time"

// Strength buckets derived from 24h change. Thresholds are strict
// inequalities: exactly 10 or 3 falls into the weaker bucket.
type Strength string

const (
	StrengthVeryStrong Strength = "very_strong"
	StrengthStrong     Strength = "strong"
	StrengthNeutral    Strength = "neutral"
	StrengthWeak       Strength = "weak"
	StrengthVeryWeak   Strength = "very_weak"
)

// StrengthFromChange classifies a 24h percentage change.
func StrengthFromChange(change24h float64) Strength {
	switch {
	case change24h > 10:
		return StrengthVeryStrong
	case change24h > 3:
		return StrengthStrong
	case change24h < -10:
		return StrengthVeryWeak
	case change24h < -3:
		return StrengthWeak
	default:
		return StrengthNeutral
	}
}

// Asset is a tracked market pair. Mutated on every ticker push, never persisted.
type Asset struct {
	Symbol       string   `json:"symbol"`
	Name         string   `json:"name"`
	CurrentPrice float64  `json:"current_price"`
	Change24h    float64  `json:"change_24h"`
	Volume24h    float64  `json:"volume_24h"`
	MarketCap    float64  `json:"market_cap"`
	Strength     Strength `json:"strength"`
}

// Candle is a fixed-interval OHLCV summary keyed by open time (epoch seconds).
// The most recent candle is mutated in place as streaming updates arrive.
type Candle struct {
	OpenTime int64   `json:"openTime"`
	Open     float64 `json:"open"`
	High     float64 `json:"high"`
	Low      float64 `json:"low"`
	Close    float64 `json:"close"`
	Volume   float64 `json:"volume"`
}

// ActiveTrade is an open position created by an ENTRY signal. PnL is
// recomputed as price ticks arrive; the row is deleted on EXIT.
type ActiveTrade struct {
	ID           string    `db:"id" json:"id"`
	Symbol       string    `db:"symbol" json:"symbol"`
	Side         string    `db:"side" json:"side"` // 'LONG' or 'SHORT'
	Setup        string    `db:"setup" json:"setup"`
	Score        float64   `db:"score" json:"score"`
	Strength     string    `db:"strength" json:"strength"`
	EntryPrice   float64   `db:"entry_price" json:"entry_price"`
	CurrentPrice float64   `db:"current_price" json:"current_price"`
	PnL          float64   `db:"pnl" json:"pnl"`
	EntryTime    time.Time `db:"entry_time" json:"entry_time"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// TradeHistory is the append-only record written when an active trade exits.
type TradeHistory struct {
	ID         string    `db:"id" json:"id"`
	Symbol     string    `db:"symbol" json:"symbol"`
	Side       string    `db:"side" json:"side"`
	Setup      string    `db:"setup" json:"setup"`
	Score      float64   `db:"score" json:"score"`
	EntryPrice float64   `db:"entry_price" json:"entry_price"`
	ExitPrice  float64   `db:"exit_price" json:"exit_price"`
	PnL        float64   `db:"pnl" json:"pnl"`
	Result     string    `db:"result" json:"result"` // 'WIN' or 'LOSS'
	EntryTime  time.Time `db:"entry_time" json:"entry_time"`
	ExitTime   time.Time `db:"exit_time" json:"exit_time"`
}

// Signal is produced by an external process and only displayed here.
type Signal struct {
	ID          string     `db:"id" json:"id"`
	Symbol      string     `db:"symbol" json:"symbol"`
	Type        string     `db:"type" json:"type"` // 'buy' or 'sell'
	EntryPrice  float64    `db:"entry_price" json:"entry_price"`
	TargetPrice float64    `db:"target_price" json:"target_price"`
	StopLoss    float64    `db:"stop_loss" json:"stop_loss"`
	Confidence  float64    `db:"confidence" json:"confidence"`
	Status      string     `db:"status" json:"status"` // 'active', 'closed', 'cancelled'
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	ClosedAt    *time.Time `db:"closed_at" json:"closed_at,omitempty"`
	Performance *float64   `db:"performance" json:"performance,omitempty"`
}

// AlertCondition selects the comparison direction for a price alert.
type AlertCondition string

const (
	AlertAbove AlertCondition = "above"
	AlertBelow AlertCondition = "below"
)

// Alert statuses. A triggered alert is never reset automatically; creating a
// new alert is the only way to re-arm.
const (
	AlertStatusActive    = "active"
	AlertStatusTriggered = "triggered"
)

// Alert is a one-shot price threshold notification.
type Alert struct {
	ID          string         `db:"id" json:"id"`
	UserID      string         `db:"user_id" json:"user_id"`
	Symbol      string         `db:"symbol" json:"symbol"`
	TargetPrice float64        `db:"target_price" json:"target_price"`
	Condition   AlertCondition `db:"condition" json:"condition"`
	Description string         `db:"description" json:"description,omitempty"`
	Status      string         `db:"status" json:"status"`
	CreatedAt   time.Time      `db:"created_at" json:"created_at"`
}

// Profile is the per-user backend record consulted during session checks.
type Profile struct {
	ID                    string     `db:"id" json:"id"`
	Username              string     `db:"username" json:"username"`
	AvatarURL             string     `db:"avatar_url" json:"avatar_url"`
	SubscriptionStatus    string     `db:"subscription_status" json:"subscription_status"` // 'free' or 'premium'
	TelegramChatID        string     `db:"telegram_chat_id" json:"telegram_chat_id"`
	SubscriptionExpiresAt *time.Time `db:"subscription_expires_at" json:"subscription_expires_at,omitempty"`
	PremiumUntil          *time.Time `db:"premium_until" json:"premium_until,omitempty"`
}

// User is the resolved session identity with effective subscription status.
// The backend is not trusted to have downgraded an expired premium plan, so
// the expiry comparison happens client-side at session-check time.
type User struct {
	ID                    string     `json:"id"`
	Email                 string     `json:"email"`
	Username              string     `json:"username"`
	AvatarURL             string     `json:"avatar_url"`
	SubscriptionStatus    string     `json:"subscription_status"`
	SubscriptionExpiresAt *time.Time `json:"subscription_expires_at,omitempty"`
	TelegramChatID        string     `json:"telegram_chat_id"`
}

// P2POpportunity is one row of the peer-to-peer arbitrage monitor. Field
// names follow the upstream webhook payload, which is Portuguese.
type P2POpportunity struct {
	ID                  string    `db:"id" json:"id,omitempty"`
	Tipo                string    `db:"tipo" json:"tipo"` // 'entre_exchanges' or 'mesma_exchange'
	ExchangeEntrada     string    `db:"exchange_entrada" json:"exchange_entrada"`
	ExchangeSaida       string    `db:"exchange_saida" json:"exchange_saida"`
	PrecoEntrada        float64   `db:"preco_entrada" json:"preco_entrada"`
	PrecoSaida          float64   `db:"preco_saida" json:"preco_saida"`
	DiferencaPct        float64   `db:"diferenca_pct" json:"diferenca_pct"`
	ComercianteEntrada  string    `db:"comerciante_entrada" json:"comerciante_entrada"`
	ComercianteSaida    string    `db:"comerciante_saida" json:"comerciante_saida"`
	Timestamp           time.Time `db:"timestamp" json:"timestamp"`
}

// PortfolioTrade is a user-entered ledger row, fully client-owned. It is
// persisted to the local portfolio file, never to the backend.
type PortfolioTrade struct {
	ID         string    `json:"id"`
	Symbol     string    `json:"symbol"`
	Type       string    `json:"type"` // 'Long' or 'Short'
	EntryPrice float64   `json:"entryPrice"`
	ExitPrice  float64   `json:"exitPrice"` // zero while the trade is open
	Quantity   float64   `json:"quantity"`
	Date       time.Time `json:"date"`
	Notes      string    `json:"notes,omitempty"`
}

// Closed reports whether the trade has an exit price recorded.
func (t PortfolioTrade) Closed() bool {
	return t.ExitPrice != 0
}

// Profit returns the realized result. Short trades invert the direction.
func (t PortfolioTrade) Profit() float64 {
	if !t.Closed() {
		return 0
	}
	dir := 1.0
	if t.Type == "Short" {
		dir = -1.0
	}
	return (t.ExitPrice - t.EntryPrice) * t.Quantity * dir
}

// ROIPercent returns the realized return on the invested amount in percent.
func (t PortfolioTrade) ROIPercent() float64 {
	if !t.Closed() || t.EntryPrice == 0 {
		return 0
	}
	dir := 1.0
	if t.Type == "Short" {
		dir = -1.0
	}
	return (t.ExitPrice - t.EntryPrice) / t.EntryPrice * 100 * dir
}

// MarkerPosition places a marker relative to its candle.
type MarkerPosition string

const (
	MarkerBelowBar MarkerPosition = "belowBar"
	MarkerAboveBar MarkerPosition = "aboveBar"
)

// MarkerShape is the arrow glyph drawn on the chart.
type MarkerShape string

const (
	MarkerArrowUp   MarkerShape = "arrowUp"
	MarkerArrowDown MarkerShape = "arrowDown"
)

// Marker is a derived chart annotation for a trade entry or exit. At most one
// marker exists per (bucketed time, text) pair.
type Marker struct {
	Time     int64          `json:"time"` // bucketed to timeframe granularity
	Position MarkerPosition `json:"position"`
	Shape    MarkerShape    `json:"shape"`
	Color    string         `json:"color"`
	Text     string         `json:"text"` // "ENTRY" or "EXIT"
}
