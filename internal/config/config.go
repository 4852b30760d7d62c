package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Database  DatabaseConfig
	Market    MarketConfig
	Indicator IndicatorConfig
	Telegram  TelegramConfig
	Webhook   WebhookConfig

	SelectedAsset     string
	SupportedSymbols  []string
	AssetListLimit    int
	OrderBookInterval time.Duration
	OrderBookDepth    int
	IndicatorInterval time.Duration
	PortfolioFile     string
	HealthPort        string
}

type DatabaseConfig struct {
	DbUri string
}

type MarketConfig struct {
	BaseURL   string
	StreamURL string
}

type IndicatorConfig struct {
	BaseURL string
	APIKey  string
}

type TelegramConfig struct {
	BotToken string
}

type WebhookConfig struct {
	Port string
}

func Load() *Config {
	return &Config{
		Database: DatabaseConfig{
			// Older deployments exported SUPABASE_DB_URL; DB_URI wins when both are set.
			DbUri: getEnvChain([]string{"DB_URI", "DATABASE_URL", "SUPABASE_DB_URL"}, "localhost"),
		},
		Market: MarketConfig{
			BaseURL:   getEnv("MARKET_API_URL", "https://api.binance.com/api/v3"),
			StreamURL: getEnv("MARKET_STREAM_URL", "wss://stream.binance.com:9443/ws"),
		},
		Indicator: IndicatorConfig{
			BaseURL: getEnv("INDICATOR_API_URL", "https://api.kiyotaka.ai/v1"),
			APIKey:  getEnvChain([]string{"KIYOTAKA_API_KEY", "VITE_KIYOTAKA_API_KEY"}, ""),
		},
		Telegram: TelegramConfig{
			BotToken: getEnvChain([]string{"TELEGRAM_BOT_TOKEN", "VITE_TELEGRAM_BOT_TOKEN"}, ""),
		},
		Webhook: WebhookConfig{
			Port: getEnv("WEBHOOK_PORT", "8080"),
		},
		SelectedAsset:     getEnv("DEFAULT_ASSET", "BTCUSDT"),
		SupportedSymbols:  getEnvList("SUPPORTED_SYMBOLS", defaultSupportedSymbols),
		AssetListLimit:    getEnvInt("ASSET_LIST_LIMIT", 1000),
		OrderBookInterval: time.Duration(getEnvInt("ORDER_BOOK_INTERVAL_SECONDS", 2)) * time.Second,
		OrderBookDepth:    getEnvInt("ORDER_BOOK_DEPTH", 20),
		IndicatorInterval: time.Duration(getEnvInt("INDICATOR_INTERVAL_SECONDS", 60)) * time.Second,
		PortfolioFile:     getEnv("PORTFOLIO_FILE", "./data/portfolio.json"),
		HealthPort:        getEnv("HEALTH_PORT", "8081"),
	}
}

var defaultSupportedSymbols = []string{
	"BTCUSDT", "ETHUSDT", "BNBUSDT", "SOLUSDT", "XRPUSDT",
	"ADAUSDT", "DOGEUSDT", "AVAXUSDT", "DOTUSDT", "LINKUSDT",
	"MATICUSDT", "LTCUSDT", "ATOMUSDT", "UNIUSDT", "NEARUSDT",
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvChain returns the first non-empty variable from keys, in order.
func getEnvChain(keys []string, defaultValue string) string {
	for _, key := range keys {
		if value := os.Getenv(key); value != "" {
			return value
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				out = append(out, trimmed)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return defaultValue
}
