package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"tradewatch/internal/alerts"
	"tradewatch/internal/config"
	"tradewatch/internal/dashboard"
	"tradewatch/internal/database"
	"tradewatch/internal/health"
	"tradewatch/internal/indicator"
	"tradewatch/internal/market"
	"tradewatch/internal/notify"
	"tradewatch/internal/store"
	"tradewatch/internal/webhook"
	"tradewatch/pkg/utils"
)

func main() {
	// Initialize logger
	logger := utils.NewLogger("dashboard")

	// Load configuration
	cfg := config.Load()
	logger.WithFields(logrus.Fields{
		"db_uri":         cfg.Database.DbUri,
		"selected_asset": cfg.SelectedAsset,
		"webhook_port":   cfg.Webhook.Port,
	}).Info("Configuration loaded")

	// Initialize database connection
	db, err := database.NewConnection(cfg.Database.DbUri, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to database")
	}
	defer db.Close()

	repo := database.NewRepository(db, logger)

	// Market and indicator clients
	marketAPI := market.NewClient(cfg.Market.BaseURL, logger)
	streams := market.NewStreamDialer(cfg.Market.StreamURL, logger)

	indicatorSource := indicator.WithMockFallback(
		indicator.NewClient(cfg.Indicator.BaseURL, cfg.Indicator.APIKey, logger), logger)
	indicators := indicator.NewService(indicatorSource, logger)

	// Application state
	st := store.New(repo, marketAPI, cfg.SupportedSymbols, cfg.AssetListLimit, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Resolve the operator session when configured; alerts need a user.
	if userID := os.Getenv("DASHBOARD_USER_ID"); userID != "" {
		user, err := st.CheckSession(ctx, store.Session{
			UserID: userID,
			Email:  os.Getenv("DASHBOARD_USER_EMAIL"),
		})
		if err != nil {
			logger.WithError(err).Warn("Session check failed, continuing without user")
		} else {
			var notifier alerts.Notifier
			if cfg.Telegram.BotToken != "" {
				telegram, err := notify.NewTelegram(cfg.Telegram.BotToken, logger)
				if err != nil {
					logger.WithError(err).Warn("Telegram notifier unavailable")
				} else {
					notifier = telegram
				}
			}
			st.SetAlertChecker(alerts.NewEvaluator(repo, notifier, user.ID, logger))
		}
	}

	// Portfolio ledger
	portfolio, err := store.OpenPortfolio(cfg.PortfolioFile, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to open portfolio file")
	}
	logger.WithField("trades", len(portfolio.Trades())).Info("Portfolio ready")

	// Dashboard orchestrator
	dash := dashboard.New(cfg, st, marketAPI, streams, indicators, logger)
	if err := dash.Start(ctx); err != nil {
		logger.WithError(err).Fatal("Failed to start dashboard")
	}

	// Realtime change notifications
	listener, err := database.NewListener(cfg.Database.DbUri, func(table string) {
		dash.OnTableChange(ctx, table)
	}, logger)
	if err != nil {
		logger.WithError(err).Error("Realtime listener unavailable, falling back to webhook-driven refreshes")
	} else {
		go listener.Run(ctx)
		defer listener.Close()
	}

	// Webhook ingestion server, which also serves the portfolio routes
	webhookServer := webhook.NewServer(repo, portfolio, cfg.Webhook.Port, logger)
	go func() {
		if err := webhookServer.Start(); err != nil {
			logger.WithError(err).Error("Webhook server stopped with error")
		}
	}()

	// Health checks; the market API degrades the report without failing it.
	healthChecker := health.NewChecker(db, logger, marketAPI)
	healthServer := healthChecker.StartServer(cfg.HealthPort)

	logger.Info("Dashboard service started successfully")

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down dashboard service...")

	dash.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := webhookServer.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Failed to shutdown webhook server gracefully")
	}
	if err := healthServer.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Failed to shutdown health server gracefully")
	}

	cancel()

	logger.Info("Dashboard service stopped")
}
