package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"tradewatch/pkg/models"
)

// ErrTradeNotFound is returned when a portfolio mutation targets an unknown id.
var ErrTradeNotFound = errors.New("portfolio trade not found")

// Portfolio is the user-owned trade ledger. It lives in a local JSON file and
// never touches the backend. Every mutation re-serializes the whole list, so
// the file is always a complete snapshot.
type Portfolio struct {
	path   string
	logger *logrus.Logger

	mu     sync.Mutex
	trades []models.PortfolioTrade
}

// OpenPortfolio loads the ledger from path, starting empty when the file does
// not exist yet. A corrupt file is an error: silently starting over would
// drop the user's records.
func OpenPortfolio(path string, logger *logrus.Logger) (*Portfolio, error) {
	p := &Portfolio{path: path, logger: logger}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return p, nil
		}
		return nil, fmt.Errorf("reading portfolio file: %w", err)
	}
	if len(data) == 0 {
		return p, nil
	}
	if err := json.Unmarshal(data, &p.trades); err != nil {
		return nil, fmt.Errorf("parsing portfolio file %s: %w", path, err)
	}

	logger.WithFields(logrus.Fields{
		"path":   path,
		"trades": len(p.trades),
	}).Info("Portfolio loaded")
	return p, nil
}

// AddTrade appends a new ledger row, assigning the id and defaulting the date
// to now when unset.
func (p *Portfolio) AddTrade(trade models.PortfolioTrade) (models.PortfolioTrade, error) {
	trade.ID = uuid.New().String()
	if trade.Date.IsZero() {
		trade.Date = time.Now()
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.trades = append(p.trades, trade)
	if err := p.persist(); err != nil {
		p.trades = p.trades[:len(p.trades)-1]
		return models.PortfolioTrade{}, err
	}
	return trade, nil
}

// UpdateTrade replaces the row with the same id.
func (p *Portfolio) UpdateTrade(trade models.PortfolioTrade) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i := range p.trades {
		if p.trades[i].ID != trade.ID {
			continue
		}
		previous := p.trades[i]
		p.trades[i] = trade
		if err := p.persist(); err != nil {
			p.trades[i] = previous
			return err
		}
		return nil
	}
	return ErrTradeNotFound
}

// CloseTrade records the exit price on an open trade.
func (p *Portfolio) CloseTrade(id string, exitPrice float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i := range p.trades {
		if p.trades[i].ID != id {
			continue
		}
		previous := p.trades[i].ExitPrice
		p.trades[i].ExitPrice = exitPrice
		if err := p.persist(); err != nil {
			p.trades[i].ExitPrice = previous
			return err
		}
		return nil
	}
	return ErrTradeNotFound
}

// DeleteTrade removes a row by id.
func (p *Portfolio) DeleteTrade(id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i := range p.trades {
		if p.trades[i].ID != id {
			continue
		}
		removed := p.trades[i]
		p.trades = append(p.trades[:i], p.trades[i+1:]...)
		if err := p.persist(); err != nil {
			p.trades = append(p.trades, removed)
			return err
		}
		return nil
	}
	return ErrTradeNotFound
}

func (p *Portfolio) Trades() []models.PortfolioTrade {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]models.PortfolioTrade, len(p.trades))
	copy(out, p.trades)
	return out
}

// PortfolioStats aggregates realized results over closed trades.
type PortfolioStats struct {
	TotalTrades  int     `json:"total_trades"`
	OpenTrades   int     `json:"open_trades"`
	ClosedTrades int     `json:"closed_trades"`
	TotalProfit  float64 `json:"total_profit"`
	WinCount     int     `json:"win_count"`
	WinRate      float64 `json:"win_rate"`
}

func (p *Portfolio) Stats() PortfolioStats {
	p.mu.Lock()
	defer p.mu.Unlock()

	stats := PortfolioStats{TotalTrades: len(p.trades)}
	for _, t := range p.trades {
		if !t.Closed() {
			stats.OpenTrades++
			continue
		}
		stats.ClosedTrades++
		profit := t.Profit()
		stats.TotalProfit += profit
		if profit > 0 {
			stats.WinCount++
		}
	}
	if stats.ClosedTrades > 0 {
		stats.WinRate = float64(stats.WinCount) / float64(stats.ClosedTrades) * 100
	}
	return stats
}

// persist writes the full list atomically: temp file in the same directory,
// then rename over the target. Callers hold the mutex.
func (p *Portfolio) persist() error {
	data, err := json.MarshalIndent(p.trades, "", "  ")
	if err != nil {
		return fmt.Errorf("serializing portfolio: %w", err)
	}

	dir := filepath.Dir(p.path)
	tmp, err := os.CreateTemp(dir, "portfolio-*.json")
	if err != nil {
		return fmt.Errorf("creating portfolio temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("writing portfolio: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("closing portfolio temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), p.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replacing portfolio file: %w", err)
	}
	return nil
}
