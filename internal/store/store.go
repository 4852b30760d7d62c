package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"tradewatch/internal/market"
	"tradewatch/pkg/models"
	"tradewatch/pkg/utils"
)

var (
	// ErrTelegramNotConfigured is returned when an alert is created for a user
	// without a Telegram chat id on their profile.
	ErrTelegramNotConfigured = errors.New("telegram chat id is not configured")

	// ErrAlertLimitReached is returned when a free-plan user already has the
	// maximum number of active alerts.
	ErrAlertLimitReached = errors.New("active alert limit reached for free plan")

	// ErrNoSession is returned by operations that need a resolved user.
	ErrNoSession = errors.New("no active session")
)

const (
	sessionRetries      = 3
	sessionRetryBackoff = 500 * time.Millisecond
	freeAlertLimit      = 5
)

// Repository is the persistence surface the store depends on.
type Repository interface {
	GetProfile(ctx context.Context, userID string) (*models.Profile, error)
	ListActiveTrades(ctx context.Context) ([]models.ActiveTrade, error)
	ListTradeHistory(ctx context.Context) ([]models.TradeHistory, error)
	ListSignals(ctx context.Context) ([]models.Signal, error)
	ListActiveAlerts(ctx context.Context, userID string) ([]models.Alert, error)
	ListP2POpportunities(ctx context.Context, limit int) ([]models.P2POpportunity, error)
	CreateAlert(ctx context.Context, alert models.Alert) (models.Alert, error)
	DeleteAlert(ctx context.Context, id string) error
}

// MarketSource provides the ticker snapshots used to build the asset list.
type MarketSource interface {
	GetTopVolumeCoins(ctx context.Context, limit int) []market.Ticker
}

// AlertChecker evaluates active alerts against a fresh price. Price updates
// call it synchronously so an alert can never lag behind the tick that
// crossed it.
type AlertChecker interface {
	Check(ctx context.Context, symbol string, price float64)
}

// Session identifies an authenticated user as handed over by the auth layer.
type Session struct {
	UserID string
	Email  string
}

// Store is the single container for dashboard state. All fields are guarded
// by one mutex; every fetcher replaces its slice wholesale rather than
// merging, so repeated or reordered refreshes converge on the same state.
type Store struct {
	repo       Repository
	marketAPI  MarketSource
	alerts     AlertChecker
	logger     *logrus.Logger
	symbols    map[string]bool
	assetLimit int

	mu           sync.Mutex
	user         *models.User
	assets       []models.Asset
	activeTrades []models.ActiveTrade
	tradeHistory []models.TradeHistory
	signals      []models.Signal
	alertRows    []models.Alert
	p2pRows      []models.P2POpportunity
}

func New(repo Repository, marketAPI MarketSource, supportedSymbols []string, assetLimit int, logger *logrus.Logger) *Store {
	symbols := make(map[string]bool, len(supportedSymbols))
	for _, s := range supportedSymbols {
		symbols[strings.ToUpper(s)] = true
	}
	return &Store{
		repo:       repo,
		marketAPI:  marketAPI,
		logger:     logger,
		symbols:    symbols,
		assetLimit: assetLimit,
	}
}

// SetAlertChecker wires the evaluator after construction. The evaluator needs
// the notifier and repository, which are built alongside the store.
func (s *Store) SetAlertChecker(checker AlertChecker) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alerts = checker
}

// CheckSession resolves the session into a user, retrying the profile fetch
// up to three times with a growing backoff. The backend is not trusted to
// have downgraded an expired premium plan, so the expiry comparison happens
// here before the user is stored.
func (s *Store) CheckSession(ctx context.Context, session Session) (*models.User, error) {
	var profile *models.Profile
	var err error

	for attempt := 1; attempt <= sessionRetries; attempt++ {
		profile, err = s.repo.GetProfile(ctx, session.UserID)
		if err == nil {
			break
		}
		s.logger.WithError(err).WithFields(logrus.Fields{
			"user_id": session.UserID,
			"attempt": attempt,
		}).Warn("Profile fetch failed")
		if attempt < sessionRetries {
			select {
			case <-time.After(time.Duration(attempt) * sessionRetryBackoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}
	if err != nil {
		return nil, fmt.Errorf("session check for user %s: %w", session.UserID, err)
	}

	user := &models.User{
		ID:                 session.UserID,
		Email:              session.Email,
		SubscriptionStatus: "free",
	}
	if profile != nil {
		user.Username = profile.Username
		user.AvatarURL = profile.AvatarURL
		user.TelegramChatID = profile.TelegramChatID
		user.SubscriptionStatus = profile.SubscriptionStatus
		user.SubscriptionExpiresAt = profile.SubscriptionExpiresAt

		expiry := profile.SubscriptionExpiresAt
		if expiry == nil {
			expiry = profile.PremiumUntil
		}
		if user.SubscriptionStatus == "premium" && expiry != nil && expiry.Before(time.Now()) {
			s.logger.WithField("user_id", session.UserID).Info("Premium subscription expired, downgrading to free")
			user.SubscriptionStatus = "free"
		}
	}

	s.mu.Lock()
	s.user = user
	s.mu.Unlock()

	return user, nil
}

// User returns the resolved session user, or nil before CheckSession.
func (s *Store) User() *models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user
}

// FetchAssets rebuilds the asset list from top-volume tickers, keeping only
// symbols on the supported allow-list. The previous list is replaced in full.
func (s *Store) FetchAssets(ctx context.Context) {
	tickers := s.marketAPI.GetTopVolumeCoins(ctx, s.assetLimit)

	assets := make([]models.Asset, 0, len(tickers))
	for _, t := range tickers {
		if !s.symbols[t.Symbol] {
			continue
		}
		price, _ := utils.ParseFloat(t.LastPrice)
		change, _ := utils.ParseFloat(t.PriceChangePercent)
		volume, _ := utils.ParseFloat(t.QuoteVolume)
		assets = append(assets, models.Asset{
			Symbol:       t.Symbol,
			Name:         strings.TrimSuffix(t.Symbol, "USDT"),
			CurrentPrice: price,
			Change24h:    change,
			Volume24h:    volume,
			Strength:     models.StrengthFromChange(change),
		})
	}

	s.mu.Lock()
	s.assets = assets
	s.mu.Unlock()

	s.logger.WithField("count", len(assets)).Debug("Asset list refreshed")
}

// UpdateAssetPrice applies a streamed ticker to the matching asset and then
// evaluates alerts for that symbol at the new price. The alert check runs
// synchronously on the caller's goroutine.
func (s *Store) UpdateAssetPrice(ctx context.Context, symbol string, price, change24h float64) {
	s.mu.Lock()
	for i := range s.assets {
		if s.assets[i].Symbol != symbol {
			continue
		}
		s.assets[i].CurrentPrice = price
		s.assets[i].Change24h = change24h
		s.assets[i].Strength = models.StrengthFromChange(change24h)
		break
	}
	checker := s.alerts
	s.mu.Unlock()

	if checker != nil {
		checker.Check(ctx, symbol, price)
	}
}

func (s *Store) Assets() []models.Asset {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Asset, len(s.assets))
	copy(out, s.assets)
	return out
}

// Asset returns the tracked asset for symbol, or nil when not on the list.
func (s *Store) Asset(symbol string) *models.Asset {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.assets {
		if s.assets[i].Symbol == symbol {
			a := s.assets[i]
			return &a
		}
	}
	return nil
}

// FetchActiveTrades relists open positions from the backend. Called on
// startup and again on every change notification.
func (s *Store) FetchActiveTrades(ctx context.Context) {
	trades, err := s.repo.ListActiveTrades(ctx)
	if err != nil {
		s.logger.WithError(err).Error("Failed to fetch active trades")
		return
	}
	s.mu.Lock()
	s.activeTrades = trades
	s.mu.Unlock()
}

func (s *Store) FetchTradeHistory(ctx context.Context) {
	history, err := s.repo.ListTradeHistory(ctx)
	if err != nil {
		s.logger.WithError(err).Error("Failed to fetch trade history")
		return
	}
	s.mu.Lock()
	s.tradeHistory = history
	s.mu.Unlock()
}

func (s *Store) FetchSignals(ctx context.Context) {
	signals, err := s.repo.ListSignals(ctx)
	if err != nil {
		s.logger.WithError(err).Error("Failed to fetch signals")
		return
	}
	s.mu.Lock()
	s.signals = signals
	s.mu.Unlock()
}

func (s *Store) FetchAlerts(ctx context.Context) {
	s.mu.Lock()
	user := s.user
	s.mu.Unlock()
	if user == nil {
		return
	}

	alerts, err := s.repo.ListActiveAlerts(ctx, user.ID)
	if err != nil {
		s.logger.WithError(err).Error("Failed to fetch alerts")
		return
	}
	s.mu.Lock()
	s.alertRows = alerts
	s.mu.Unlock()
}

func (s *Store) FetchP2P(ctx context.Context, limit int) {
	rows, err := s.repo.ListP2POpportunities(ctx, limit)
	if err != nil {
		s.logger.WithError(err).Error("Failed to fetch p2p opportunities")
		return
	}
	s.mu.Lock()
	s.p2pRows = rows
	s.mu.Unlock()
}

func (s *Store) ActiveTrades() []models.ActiveTrade {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.ActiveTrade, len(s.activeTrades))
	copy(out, s.activeTrades)
	return out
}

func (s *Store) TradeHistory() []models.TradeHistory {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.TradeHistory, len(s.tradeHistory))
	copy(out, s.tradeHistory)
	return out
}

func (s *Store) Signals() []models.Signal {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Signal, len(s.signals))
	copy(out, s.signals)
	return out
}

func (s *Store) Alerts() []models.Alert {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Alert, len(s.alertRows))
	copy(out, s.alertRows)
	return out
}

func (s *Store) P2POpportunities() []models.P2POpportunity {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.P2POpportunity, len(s.p2pRows))
	copy(out, s.p2pRows)
	return out
}

// P2PStats summarizes the in-memory p2p list for the arbitrage view.
type P2PStats struct {
	Total         int            `json:"total"`
	BestSpreadPct float64        `json:"best_spread_pct"`
	CountByTipo   map[string]int `json:"count_by_tipo"`
}

func (s *Store) P2PSummary() P2PStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := P2PStats{
		Total:       len(s.p2pRows),
		CountByTipo: make(map[string]int),
	}
	for _, row := range s.p2pRows {
		stats.CountByTipo[row.Tipo]++
		if row.DiferencaPct > stats.BestSpreadPct {
			stats.BestSpreadPct = row.DiferencaPct
		}
	}
	return stats
}

// CreateAlert validates and inserts a new active price alert for the session
// user. Free-plan users are capped at five active alerts, and a Telegram chat
// id must be configured before any alert can be created.
func (s *Store) CreateAlert(ctx context.Context, symbol string, targetPrice float64, condition models.AlertCondition, description string) (models.Alert, error) {
	s.mu.Lock()
	user := s.user
	s.mu.Unlock()
	if user == nil {
		return models.Alert{}, ErrNoSession
	}
	if user.TelegramChatID == "" {
		return models.Alert{}, ErrTelegramNotConfigured
	}

	if user.SubscriptionStatus != "premium" {
		active, err := s.repo.ListActiveAlerts(ctx, user.ID)
		if err != nil {
			return models.Alert{}, fmt.Errorf("counting active alerts: %w", err)
		}
		if len(active) >= freeAlertLimit {
			return models.Alert{}, ErrAlertLimitReached
		}
	}

	alert, err := s.repo.CreateAlert(ctx, models.Alert{
		UserID:      user.ID,
		Symbol:      symbol,
		TargetPrice: targetPrice,
		Condition:   condition,
		Description: description,
		Status:      models.AlertStatusActive,
	})
	if err != nil {
		return models.Alert{}, err
	}

	s.mu.Lock()
	s.alertRows = append(s.alertRows, alert)
	sort.Slice(s.alertRows, func(i, j int) bool {
		return s.alertRows[i].CreatedAt.Before(s.alertRows[j].CreatedAt)
	})
	s.mu.Unlock()

	s.logger.WithFields(logrus.Fields{
		"symbol":    symbol,
		"condition": condition,
		"target":    targetPrice,
	}).Info("Alert created")
	return alert, nil
}

// DeleteAlert removes an alert by id in the backend and locally.
func (s *Store) DeleteAlert(ctx context.Context, id string) error {
	if err := s.repo.DeleteAlert(ctx, id); err != nil {
		return err
	}

	s.mu.Lock()
	kept := s.alertRows[:0]
	for _, a := range s.alertRows {
		if a.ID != id {
			kept = append(kept, a)
		}
	}
	s.alertRows = kept
	s.mu.Unlock()
	return nil
}
