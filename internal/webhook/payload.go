package webhook

import (
	"bytes"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// FlexNumber accepts JSON numbers as well as numeric strings, including the
// comma decimal separator the upstream p2p monitor emits ("1.234,56" style
// values arrive as "1234,56"). Unparseable values decode to zero, matching
// the tolerant ingestion contract.
type FlexNumber float64

func (n *FlexNumber) UnmarshalJSON(data []byte) error {
	data = bytes.Trim(data, `"`)
	s := strings.TrimSpace(string(data))
	if s == "" || s == "null" {
		*n = 0
		return nil
	}
	s = strings.Replace(s, ",", ".", 1)

	d, err := decimal.NewFromString(s)
	if err != nil {
		*n = 0
		return nil
	}
	f, _ := d.Float64()
	*n = FlexNumber(f)
	return nil
}

func (n FlexNumber) Float64() float64 { return float64(n) }

// p2pItem is one row of the bulk p2p payload. Older monitor versions send a
// single "exchange" field instead of entrada/saida.
type p2pItem struct {
	Tipo               string     `json:"tipo"`
	Exchange           string     `json:"exchange"`
	ExchangeEntrada    string     `json:"exchange_entrada"`
	ExchangeSaida      string     `json:"exchange_saida"`
	PrecoEntrada       FlexNumber `json:"preco_entrada"`
	PrecoSaida         FlexNumber `json:"preco_saida"`
	DiferencaPct       FlexNumber `json:"diferenca_pct"`
	ComercianteEntrada string     `json:"comerciante_entrada"`
	ComercianteSaida   string     `json:"comerciante_saida"`
	Timestamp          string     `json:"timestamp"`
}

type tradeItem struct {
	ID           string     `json:"id"`
	Symbol       string     `json:"symbol"`
	Side         string     `json:"side"`
	Setup        string     `json:"setup"`
	Score        FlexNumber `json:"score"`
	Strength     string     `json:"strength"`
	EntryPrice   FlexNumber `json:"entry_price"`
	CurrentPrice FlexNumber `json:"current_price"`
	PnL          FlexNumber `json:"pnl"`
	EntryTime    string     `json:"entry_time"`
}

type historyItem struct {
	ID         string     `json:"id"`
	Symbol     string     `json:"symbol"`
	Side       string     `json:"side"`
	Setup      string     `json:"setup"`
	Score      FlexNumber `json:"score"`
	EntryPrice FlexNumber `json:"entry_price"`
	ExitPrice  FlexNumber `json:"exit_price"`
	PnL        FlexNumber `json:"pnl"`
	Result     string     `json:"result"`
	EntryTime  string     `json:"entry_time"`
	ExitTime   string     `json:"exit_time"`
}

// ingestPayload is the full POST body. Every key is optional; the bulk lists
// and a single signal event may arrive in the same request.
type ingestPayload struct {
	P2POpportunities []p2pItem     `json:"top_10_melhores_maker_opportunities"`
	ActiveTrades     []tradeItem   `json:"active_trades"`
	TradeHistory     []historyItem `json:"trade_history"`

	Type       string     `json:"type"` // 'ENTRY' or 'EXIT'
	Symbol     string     `json:"symbol"`
	Side       string     `json:"side"`
	Setup      string     `json:"setup"`
	Strength   string     `json:"strength"`
	Score      FlexNumber `json:"score"`
	EntryPrice FlexNumber `json:"entry_price"`
	ExitPrice  FlexNumber `json:"exit_price"`
	Price      FlexNumber `json:"price"`
	PnL        *float64   `json:"pnl"`
	Time       string     `json:"time"`
}

// parseTime accepts the RFC3339 timestamps the monitors emit, defaulting to
// now for anything unparseable.
func parseTime(s string) time.Time {
	if s == "" {
		return time.Now()
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t
	}
	return time.Now()
}
