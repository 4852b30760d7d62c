package webhook

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"tradewatch/internal/store"
	"tradewatch/pkg/models"
)

// Repository is the persistence surface the ingestion endpoint depends on.
type Repository interface {
	ReplaceP2POpportunities(ctx context.Context, opportunities []models.P2POpportunity) error
	ListP2POpportunities(ctx context.Context, limit int) ([]models.P2POpportunity, error)
	CountP2POpportunities(ctx context.Context) (int, error)
	ReplaceActiveTrades(ctx context.Context, trades []models.ActiveTrade) error
	CreateActiveTrade(ctx context.Context, trade models.ActiveTrade) (models.ActiveTrade, error)
	GetLatestActiveTrade(ctx context.Context, symbol string) (*models.ActiveTrade, error)
	DeleteActiveTrade(ctx context.Context, id string) error
	CreateTradeHistory(ctx context.Context, entry models.TradeHistory) (models.TradeHistory, error)
	UpsertTradeHistory(ctx context.Context, entries []models.TradeHistory) error
}

// Server hosts the ingestion endpoint the external monitors post to, plus
// the local portfolio ledger routes.
type Server struct {
	repo   Repository
	ledger *store.Portfolio
	logger *logrus.Logger
	router *gin.Engine
	http   *http.Server
}

func NewServer(repo Repository, ledger *store.Portfolio, port string, logger *logrus.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{repo: repo, ledger: ledger, logger: logger}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(s.corsMiddleware())
	router.HandleMethodNotAllowed = true
	router.NoMethod(func(c *gin.Context) {
		c.String(http.StatusMethodNotAllowed, "Method not allowed")
	})

	router.GET("/webhook", s.handleStatus)
	router.POST("/webhook", s.handleIngest)

	if ledger != nil {
		router.GET("/portfolio", s.handleListTrades)
		router.GET("/portfolio/stats", s.handlePortfolioStats)
		router.POST("/portfolio/trades", s.handleAddTrade)
		router.PUT("/portfolio/trades/:id", s.handleUpdateTrade)
		router.POST("/portfolio/trades/:id/close", s.handleCloseTrade)
		router.DELETE("/portfolio/trades/:id", s.handleDeleteTrade)
	}

	s.router = router
	s.http = &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	return s
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Start() error {
	s.logger.WithField("addr", s.http.Addr).Info("Webhook server listening")
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("webhook server: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusOK)
			return
		}
		c.Next()
	}
}
