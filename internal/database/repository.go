package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"tradewatch/pkg/models"
)

type Repository struct {
	db     *DB
	logger *logrus.Logger
}

func NewRepository(db *DB, logger *logrus.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// --- P2P opportunities ---

// ReplaceP2POpportunities wipes the table and inserts the new set. The
// upstream webhook always delivers a complete snapshot, so partial merges
// would only leave stale rows behind.
func (r *Repository) ReplaceP2POpportunities(ctx context.Context, opportunities []models.P2POpportunity) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM p2p_opportunities`); err != nil {
		return fmt.Errorf("failed to clear p2p opportunities: %w", err)
	}

	query := `
        INSERT INTO p2p_opportunities
        (id, tipo, exchange_entrada, exchange_saida, preco_entrada, preco_saida,
         diferenca_pct, comerciante_entrada, comerciante_saida, timestamp)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
    `

	for _, opp := range opportunities {
		id := opp.ID
		if id == "" {
			id = uuid.New().String()
		}
		_, err := tx.ExecContext(ctx, query,
			id, opp.Tipo, opp.ExchangeEntrada, opp.ExchangeSaida,
			opp.PrecoEntrada, opp.PrecoSaida, opp.DiferencaPct,
			opp.ComercianteEntrada, opp.ComercianteSaida, opp.Timestamp,
		)
		if err != nil {
			return fmt.Errorf("failed to insert p2p opportunity: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit p2p replacement: %w", err)
	}

	r.logger.WithField("count", len(opportunities)).Info("Replaced p2p opportunities")
	return nil
}

func (r *Repository) ListP2POpportunities(ctx context.Context, limit int) ([]models.P2POpportunity, error) {
	query := `
        SELECT id, tipo, exchange_entrada, exchange_saida, preco_entrada, preco_saida,
               diferenca_pct, comerciante_entrada, comerciante_saida, timestamp
        FROM p2p_opportunities
        ORDER BY timestamp DESC
        LIMIT NULLIF($1, 0)
    `

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query p2p opportunities: %w", err)
	}
	defer rows.Close()

	var opportunities []models.P2POpportunity
	for rows.Next() {
		var opp models.P2POpportunity
		err := rows.Scan(
			&opp.ID, &opp.Tipo, &opp.ExchangeEntrada, &opp.ExchangeSaida,
			&opp.PrecoEntrada, &opp.PrecoSaida, &opp.DiferencaPct,
			&opp.ComercianteEntrada, &opp.ComercianteSaida, &opp.Timestamp,
		)
		if err != nil {
			r.logger.WithError(err).Error("Failed to scan p2p opportunity")
			continue
		}
		opportunities = append(opportunities, opp)
	}

	return opportunities, nil
}

func (r *Repository) CountP2POpportunities(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM p2p_opportunities`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count p2p opportunities: %w", err)
	}
	return count, nil
}

// --- Active trades ---

func (r *Repository) ReplaceActiveTrades(ctx context.Context, trades []models.ActiveTrade) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM active_trades`); err != nil {
		return fmt.Errorf("failed to clear active trades: %w", err)
	}

	query := `
        INSERT INTO active_trades
        (id, symbol, side, setup, score, strength, entry_price, current_price,
         pnl, entry_time, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
    `

	for _, trade := range trades {
		id := trade.ID
		if id == "" {
			id = uuid.New().String()
		}
		_, err := tx.ExecContext(ctx, query,
			id, trade.Symbol, trade.Side, trade.Setup, trade.Score, trade.Strength,
			trade.EntryPrice, trade.CurrentPrice, trade.PnL, trade.EntryTime, trade.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert active trade: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit active trade replacement: %w", err)
	}

	r.logger.WithField("count", len(trades)).Info("Replaced active trades")
	return nil
}

func (r *Repository) CreateActiveTrade(ctx context.Context, trade models.ActiveTrade) (models.ActiveTrade, error) {
	if trade.ID == "" {
		trade.ID = uuid.New().String()
	}
	if trade.UpdatedAt.IsZero() {
		trade.UpdatedAt = time.Now().UTC()
	}

	query := `
        INSERT INTO active_trades
        (id, symbol, side, setup, score, strength, entry_price, current_price,
         pnl, entry_time, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
    `

	_, err := r.db.ExecContext(ctx, query,
		trade.ID, trade.Symbol, trade.Side, trade.Setup, trade.Score, trade.Strength,
		trade.EntryPrice, trade.CurrentPrice, trade.PnL, trade.EntryTime, trade.UpdatedAt,
	)
	if err != nil {
		return models.ActiveTrade{}, fmt.Errorf("failed to create active trade: %w", err)
	}

	r.logger.WithFields(logrus.Fields{
		"trade_id": trade.ID,
		"symbol":   trade.Symbol,
		"side":     trade.Side,
	}).Info("Created active trade")

	return trade, nil
}

func (r *Repository) ListActiveTrades(ctx context.Context) ([]models.ActiveTrade, error) {
	query := `
        SELECT id, symbol, side, setup, score, strength, entry_price, current_price,
               pnl, entry_time, updated_at
        FROM active_trades
        ORDER BY entry_time DESC
    `

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query active trades: %w", err)
	}
	defer rows.Close()

	var trades []models.ActiveTrade
	for rows.Next() {
		var trade models.ActiveTrade
		err := rows.Scan(
			&trade.ID, &trade.Symbol, &trade.Side, &trade.Setup, &trade.Score,
			&trade.Strength, &trade.EntryPrice, &trade.CurrentPrice, &trade.PnL,
			&trade.EntryTime, &trade.UpdatedAt,
		)
		if err != nil {
			r.logger.WithError(err).Error("Failed to scan active trade")
			continue
		}
		trades = append(trades, trade)
	}

	return trades, nil
}

// GetLatestActiveTrade returns the most recent open trade for a symbol, or
// nil when none exists.
func (r *Repository) GetLatestActiveTrade(ctx context.Context, symbol string) (*models.ActiveTrade, error) {
	query := `
        SELECT id, symbol, side, setup, score, strength, entry_price, current_price,
               pnl, entry_time, updated_at
        FROM active_trades
        WHERE symbol = $1
        ORDER BY entry_time DESC
        LIMIT 1
    `

	var trade models.ActiveTrade
	err := r.db.QueryRowContext(ctx, query, symbol).Scan(
		&trade.ID, &trade.Symbol, &trade.Side, &trade.Setup, &trade.Score,
		&trade.Strength, &trade.EntryPrice, &trade.CurrentPrice, &trade.PnL,
		&trade.EntryTime, &trade.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get latest active trade: %w", err)
	}

	return &trade, nil
}

func (r *Repository) DeleteActiveTrade(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM active_trades WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete active trade: %w", err)
	}
	return nil
}

// --- Trade history ---

func (r *Repository) CreateTradeHistory(ctx context.Context, entry models.TradeHistory) (models.TradeHistory, error) {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}

	query := `
        INSERT INTO trade_history
        (id, symbol, side, setup, score, entry_price, exit_price, pnl, result,
         entry_time, exit_time)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
    `

	_, err := r.db.ExecContext(ctx, query,
		entry.ID, entry.Symbol, entry.Side, entry.Setup, entry.Score,
		entry.EntryPrice, entry.ExitPrice, entry.PnL, entry.Result,
		entry.EntryTime, entry.ExitTime,
	)
	if err != nil {
		return models.TradeHistory{}, fmt.Errorf("failed to create trade history entry: %w", err)
	}

	r.logger.WithFields(logrus.Fields{
		"trade_id": entry.ID,
		"symbol":   entry.Symbol,
		"result":   entry.Result,
		"pnl":      entry.PnL,
	}).Info("Created trade history entry")

	return entry, nil
}

// UpsertTradeHistory inserts or updates entries by id.
func (r *Repository) UpsertTradeHistory(ctx context.Context, entries []models.TradeHistory) error {
	query := `
        INSERT INTO trade_history
        (id, symbol, side, setup, score, entry_price, exit_price, pnl, result,
         entry_time, exit_time)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
        ON CONFLICT (id) DO UPDATE SET
            symbol = EXCLUDED.symbol, side = EXCLUDED.side, setup = EXCLUDED.setup,
            score = EXCLUDED.score, entry_price = EXCLUDED.entry_price,
            exit_price = EXCLUDED.exit_price, pnl = EXCLUDED.pnl,
            result = EXCLUDED.result, entry_time = EXCLUDED.entry_time,
            exit_time = EXCLUDED.exit_time
    `

	for _, entry := range entries {
		id := entry.ID
		if id == "" {
			id = uuid.New().String()
		}
		_, err := r.db.ExecContext(ctx, query,
			id, entry.Symbol, entry.Side, entry.Setup, entry.Score,
			entry.EntryPrice, entry.ExitPrice, entry.PnL, entry.Result,
			entry.EntryTime, entry.ExitTime,
		)
		if err != nil {
			return fmt.Errorf("failed to upsert trade history entry: %w", err)
		}
	}

	r.logger.WithField("count", len(entries)).Info("Upserted trade history entries")
	return nil
}

func (r *Repository) ListTradeHistory(ctx context.Context) ([]models.TradeHistory, error) {
	query := `
        SELECT id, symbol, side, setup, score, entry_price, exit_price, pnl, result,
               entry_time, exit_time
        FROM trade_history
        ORDER BY exit_time DESC
    `

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query trade history: %w", err)
	}
	defer rows.Close()

	var entries []models.TradeHistory
	for rows.Next() {
		var entry models.TradeHistory
		err := rows.Scan(
			&entry.ID, &entry.Symbol, &entry.Side, &entry.Setup, &entry.Score,
			&entry.EntryPrice, &entry.ExitPrice, &entry.PnL, &entry.Result,
			&entry.EntryTime, &entry.ExitTime,
		)
		if err != nil {
			r.logger.WithError(err).Error("Failed to scan trade history entry")
			continue
		}
		entries = append(entries, entry)
	}

	return entries, nil
}

// --- Signals ---

func (r *Repository) ListSignals(ctx context.Context) ([]models.Signal, error) {
	query := `
        SELECT id, symbol, type, entry_price, target_price, stop_loss, confidence,
               status, created_at, closed_at, performance
        FROM signals
        ORDER BY created_at DESC
    `

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query signals: %w", err)
	}
	defer rows.Close()

	var signals []models.Signal
	for rows.Next() {
		var signal models.Signal
		err := rows.Scan(
			&signal.ID, &signal.Symbol, &signal.Type, &signal.EntryPrice,
			&signal.TargetPrice, &signal.StopLoss, &signal.Confidence,
			&signal.Status, &signal.CreatedAt, &signal.ClosedAt, &signal.Performance,
		)
		if err != nil {
			r.logger.WithError(err).Error("Failed to scan signal")
			continue
		}
		signals = append(signals, signal)
	}

	return signals, nil
}

// --- Alerts ---

func (r *Repository) CreateAlert(ctx context.Context, alert models.Alert) (models.Alert, error) {
	if alert.ID == "" {
		alert.ID = uuid.New().String()
	}
	if alert.Status == "" {
		alert.Status = models.AlertStatusActive
	}
	alert.CreatedAt = time.Now().UTC()

	query := `
        INSERT INTO alerts
        (id, user_id, symbol, target_price, condition, description, status, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
    `

	_, err := r.db.ExecContext(ctx, query,
		alert.ID, alert.UserID, alert.Symbol, alert.TargetPrice,
		alert.Condition, alert.Description, alert.Status, alert.CreatedAt,
	)
	if err != nil {
		return models.Alert{}, fmt.Errorf("failed to create alert: %w", err)
	}

	r.logger.WithFields(logrus.Fields{
		"alert_id":     alert.ID,
		"symbol":       alert.Symbol,
		"condition":    alert.Condition,
		"target_price": alert.TargetPrice,
	}).Info("Created alert")

	return alert, nil
}

func (r *Repository) ListActiveAlerts(ctx context.Context, userID string) ([]models.Alert, error) {
	query := `
        SELECT id, user_id, symbol, target_price, condition, description, status, created_at
        FROM alerts
        WHERE user_id = $1 AND status = 'active'
        ORDER BY created_at DESC
    `

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query alerts: %w", err)
	}
	defer rows.Close()

	var alerts []models.Alert
	for rows.Next() {
		var alert models.Alert
		var description sql.NullString
		err := rows.Scan(
			&alert.ID, &alert.UserID, &alert.Symbol, &alert.TargetPrice,
			&alert.Condition, &description, &alert.Status, &alert.CreatedAt,
		)
		if err != nil {
			r.logger.WithError(err).Error("Failed to scan alert")
			continue
		}
		alert.Description = description.String
		alerts = append(alerts, alert)
	}

	return alerts, nil
}

func (r *Repository) UpdateAlertStatus(ctx context.Context, id, status string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE alerts SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("failed to update alert status: %w", err)
	}
	return nil
}

func (r *Repository) DeleteAlert(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM alerts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete alert: %w", err)
	}
	return nil
}

// --- Profiles ---

func (r *Repository) GetProfile(ctx context.Context, userID string) (*models.Profile, error) {
	query := `
        SELECT id, username, avatar_url, subscription_status, telegram_chat_id,
               subscription_expires_at, premium_until
        FROM profiles
        WHERE id = $1
    `

	// Text columns are nullable upstream: new accounts have no username or
	// avatar, and the telegram chat id only exists after the bot is linked.
	var profile models.Profile
	var username, avatarURL, subscriptionStatus, telegramChatID sql.NullString
	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&profile.ID, &username, &avatarURL, &subscriptionStatus,
		&telegramChatID, &profile.SubscriptionExpiresAt, &profile.PremiumUntil,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}

	profile.Username = username.String
	profile.AvatarURL = avatarURL.String
	profile.SubscriptionStatus = subscriptionStatus.String
	profile.TelegramChatID = telegramChatID.String

	return &profile, nil
}
