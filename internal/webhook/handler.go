package webhook

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"tradewatch/pkg/models"
)

// handleStatus answers the debug GET with a liveness summary and the most
// recent p2p rows.
func (s *Server) handleStatus(c *gin.Context) {
	ctx := c.Request.Context()

	count, err := s.repo.CountP2POpportunities(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database connection failed", "details": err.Error()})
		return
	}
	latest, err := s.repo.ListP2POpportunities(ctx, 20)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database connection failed", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":         "online",
		"record_count":   count,
		"latest_records": latest,
	})
}

// handleIngest processes a POST body that may carry bulk p2p, active-trade
// and history lists plus a single ENTRY/EXIT signal event. Signal events
// return their own response; bulk-only requests get a summary of counts.
func (s *Server) handleIngest(c *gin.Context) {
	var payload ingestPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON body", "details": err.Error()})
		return
	}

	ctx := c.Request.Context()

	if len(payload.P2POpportunities) > 0 {
		if err := s.repo.ReplaceP2POpportunities(ctx, mapP2P(payload.P2POpportunities)); err != nil {
			s.logger.WithError(err).Error("P2P ingestion failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
	}

	if len(payload.ActiveTrades) > 0 {
		if err := s.repo.ReplaceActiveTrades(ctx, mapActiveTrades(payload.ActiveTrades)); err != nil {
			s.logger.WithError(err).Error("Active trade ingestion failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
	}

	if len(payload.TradeHistory) > 0 {
		if err := s.repo.UpsertTradeHistory(ctx, mapTradeHistory(payload.TradeHistory)); err != nil {
			s.logger.WithError(err).Error("Trade history ingestion failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
	}

	if payload.Symbol != "" {
		switch payload.Type {
		case "ENTRY":
			s.handleEntry(c, payload)
			return
		case "EXIT":
			s.handleExit(c, payload)
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"success":          true,
		"message":          "Data processed successfully",
		"received_p2p":     len(payload.P2POpportunities),
		"received_active":  len(payload.ActiveTrades),
		"received_history": len(payload.TradeHistory),
	})
}

// handleEntry opens a new active trade from an ENTRY signal. The current
// price starts at the entry price with zero pnl.
func (s *Server) handleEntry(c *gin.Context, payload ingestPayload) {
	trade := models.ActiveTrade{
		Symbol:       payload.Symbol,
		Side:         payload.Side,
		Setup:        payload.Setup,
		Score:        payload.Score.Float64(),
		Strength:     payload.Strength,
		EntryPrice:   payload.EntryPrice.Float64(),
		CurrentPrice: payload.EntryPrice.Float64(),
		PnL:          0,
		EntryTime:    parseTime(payload.Time),
		UpdatedAt:    time.Now(),
	}

	created, err := s.repo.CreateActiveTrade(c.Request.Context(), trade)
	if err != nil {
		s.logger.WithError(err).Error("Signal entry failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	s.logger.WithFields(logrus.Fields{
		"symbol": created.Symbol,
		"side":   created.Side,
	}).Info("Signal entry processed")
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Signal Entry Processed",
		"trade":   created,
	})
}

// handleExit closes the most recent active trade for the symbol: a history
// row is written first, then the active row is deleted. The delete is
// cleanup only; the history record is the source of truth, so a delete
// failure is logged but does not fail the request.
func (s *Server) handleExit(c *gin.Context, payload ingestPayload) {
	ctx := c.Request.Context()

	active, err := s.repo.GetLatestActiveTrade(ctx, payload.Symbol)
	if err != nil {
		s.logger.WithError(err).Error("Signal exit lookup failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if active == nil {
		s.logger.WithField("symbol", payload.Symbol).Warn("Active trade not found for exit")
		c.JSON(http.StatusNotFound, gin.H{
			"error":  "Active trade not found for symbol",
			"symbol": payload.Symbol,
		})
		return
	}

	exitPrice := payload.ExitPrice.Float64()
	if exitPrice == 0 {
		exitPrice = payload.Price.Float64()
	}
	if exitPrice == 0 {
		exitPrice = active.CurrentPrice
	}

	var pnl float64
	result := "LOSS"
	if payload.PnL != nil {
		pnl = *payload.PnL
		if pnl > 0 {
			result = "WIN"
		}
	}

	entry := models.TradeHistory{
		Symbol:     active.Symbol,
		Side:       active.Side,
		Setup:      active.Setup,
		Score:      active.Score,
		EntryPrice: active.EntryPrice,
		ExitPrice:  exitPrice,
		PnL:        pnl,
		Result:     result,
		EntryTime:  active.EntryTime,
		ExitTime:   parseTime(payload.Time),
	}

	created, err := s.repo.CreateTradeHistory(ctx, entry)
	if err != nil {
		s.logger.WithError(err).Error("Signal exit history insert failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if err := s.repo.DeleteActiveTrade(ctx, active.ID); err != nil {
		s.logger.WithError(err).WithField("trade_id", active.ID).Error("Active trade cleanup failed")
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Trade closed and moved to history",
		"history": created,
	})
}

func mapP2P(items []p2pItem) []models.P2POpportunity {
	out := make([]models.P2POpportunity, 0, len(items))
	for _, item := range items {
		entrada := item.ExchangeEntrada
		if entrada == "" {
			entrada = item.Exchange
		}
		saida := item.ExchangeSaida
		if saida == "" {
			saida = item.Exchange
		}
		comercianteEntrada := item.ComercianteEntrada
		if comercianteEntrada == "" {
			comercianteEntrada = "Desconhecido"
		}
		comercianteSaida := item.ComercianteSaida
		if comercianteSaida == "" {
			comercianteSaida = "Desconhecido"
		}
		out = append(out, models.P2POpportunity{
			Tipo:               item.Tipo,
			ExchangeEntrada:    entrada,
			ExchangeSaida:      saida,
			PrecoEntrada:       item.PrecoEntrada.Float64(),
			PrecoSaida:         item.PrecoSaida.Float64(),
			DiferencaPct:       item.DiferencaPct.Float64(),
			ComercianteEntrada: comercianteEntrada,
			ComercianteSaida:   comercianteSaida,
			Timestamp:          parseTime(item.Timestamp),
		})
	}
	return out
}

func mapActiveTrades(items []tradeItem) []models.ActiveTrade {
	out := make([]models.ActiveTrade, 0, len(items))
	for _, item := range items {
		out = append(out, models.ActiveTrade{
			ID:           item.ID,
			Symbol:       item.Symbol,
			Side:         item.Side,
			Setup:        item.Setup,
			Score:        item.Score.Float64(),
			Strength:     item.Strength,
			EntryPrice:   item.EntryPrice.Float64(),
			CurrentPrice: item.CurrentPrice.Float64(),
			PnL:          item.PnL.Float64(),
			EntryTime:    parseTime(item.EntryTime),
			UpdatedAt:    time.Now(),
		})
	}
	return out
}

func mapTradeHistory(items []historyItem) []models.TradeHistory {
	out := make([]models.TradeHistory, 0, len(items))
	for _, item := range items {
		out = append(out, models.TradeHistory{
			ID:         item.ID,
			Symbol:     item.Symbol,
			Side:       item.Side,
			Setup:      item.Setup,
			Score:      item.Score.Float64(),
			EntryPrice: item.EntryPrice.Float64(),
			ExitPrice:  item.ExitPrice.Float64(),
			PnL:        item.PnL.Float64(),
			Result:     item.Result,
			EntryTime:  parseTime(item.EntryTime),
			ExitTime:   parseTime(item.ExitTime),
		})
	}
	return out
}
