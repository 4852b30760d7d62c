package webhook

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"tradewatch/internal/store"
	"tradewatch/pkg/models"
)

// handleListTrades returns the full ledger, newest state included.
func (s *Server) handleListTrades(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"trades": s.ledger.Trades()})
}

func (s *Server) handlePortfolioStats(c *gin.Context) {
	c.JSON(http.StatusOK, s.ledger.Stats())
}

func (s *Server) handleAddTrade(c *gin.Context) {
	var trade models.PortfolioTrade
	if err := c.ShouldBindJSON(&trade); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON body", "details": err.Error()})
		return
	}
	if trade.Symbol == "" || trade.EntryPrice <= 0 || trade.Quantity <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "symbol, entryPrice and quantity are required"})
		return
	}
	if trade.Type != "Long" && trade.Type != "Short" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "type must be 'Long' or 'Short'"})
		return
	}

	created, err := s.ledger.AddTrade(trade)
	if err != nil {
		s.logger.WithError(err).Error("Failed to record portfolio trade")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (s *Server) handleUpdateTrade(c *gin.Context) {
	var trade models.PortfolioTrade
	if err := c.ShouldBindJSON(&trade); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON body", "details": err.Error()})
		return
	}
	trade.ID = c.Param("id")

	if err := s.ledger.UpdateTrade(trade); err != nil {
		s.respondLedgerError(c, err)
		return
	}
	c.JSON(http.StatusOK, trade)
}

func (s *Server) handleCloseTrade(c *gin.Context) {
	var body struct {
		ExitPrice float64 `json:"exit_price"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON body", "details": err.Error()})
		return
	}
	if body.ExitPrice <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "exit_price is required"})
		return
	}

	if err := s.ledger.CloseTrade(c.Param("id"), body.ExitPrice); err != nil {
		s.respondLedgerError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "closed"})
}

func (s *Server) handleDeleteTrade(c *gin.Context) {
	if err := s.ledger.DeleteTrade(c.Param("id")); err != nil {
		s.respondLedgerError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

func (s *Server) respondLedgerError(c *gin.Context, err error) {
	if errors.Is(err, store.ErrTradeNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Trade not found"})
		return
	}
	s.logger.WithError(err).Error("Portfolio mutation failed")
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}
