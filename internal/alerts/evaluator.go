package alerts

import (
	"context"

	"github.com/sirupsen/logrus"

	"tradewatch/pkg/models"
)

// Repository is the persistence surface the evaluator depends on.
type Repository interface {
	ListActiveAlerts(ctx context.Context, userID string) ([]models.Alert, error)
	UpdateAlertStatus(ctx context.Context, id, status string) error
	GetProfile(ctx context.Context, userID string) (*models.Profile, error)
}

// Notifier delivers a triggered-alert message to a user's chat.
type Notifier interface {
	SendAlert(chatID string, alert models.Alert, price float64) error
}

// Evaluator checks active price alerts against incoming ticks. The status
// flip is written to the backend before any notification is attempted, so a
// burst of ticks crossing the same threshold fires exactly one message even
// if delivery is slow.
type Evaluator struct {
	repo     Repository
	notifier Notifier
	userID   string
	logger   *logrus.Logger
}

func NewEvaluator(repo Repository, notifier Notifier, userID string, logger *logrus.Logger) *Evaluator {
	return &Evaluator{
		repo:     repo,
		notifier: notifier,
		userID:   userID,
		logger:   logger,
	}
}

// Check evaluates every active alert for symbol at price. Above alerts fire
// at price >= target, below alerts at price <= target. A triggered alert
// stays triggered: delivery failure is logged but never reverts the flip.
func (e *Evaluator) Check(ctx context.Context, symbol string, price float64) {
	active, err := e.repo.ListActiveAlerts(ctx, e.userID)
	if err != nil {
		e.logger.WithError(err).Error("Failed to list alerts for evaluation")
		return
	}

	for _, alert := range active {
		if alert.Symbol != symbol || !crossed(alert, price) {
			continue
		}

		if err := e.repo.UpdateAlertStatus(ctx, alert.ID, models.AlertStatusTriggered); err != nil {
			e.logger.WithError(err).WithField("alert_id", alert.ID).Error("Failed to mark alert triggered")
			continue
		}

		e.logger.WithFields(logrus.Fields{
			"alert_id": alert.ID,
			"symbol":   symbol,
			"price":    price,
			"target":   alert.TargetPrice,
		}).Info("Alert triggered")

		e.notify(ctx, alert, price)
	}
}

func crossed(alert models.Alert, price float64) bool {
	switch alert.Condition {
	case models.AlertAbove:
		return price >= alert.TargetPrice
	case models.AlertBelow:
		return price <= alert.TargetPrice
	default:
		return false
	}
}

func (e *Evaluator) notify(ctx context.Context, alert models.Alert, price float64) {
	if e.notifier == nil {
		return
	}

	profile, err := e.repo.GetProfile(ctx, alert.UserID)
	if err != nil || profile == nil || profile.TelegramChatID == "" {
		e.logger.WithField("alert_id", alert.ID).Warn("No telegram chat id for triggered alert")
		return
	}

	if err := e.notifier.SendAlert(profile.TelegramChatID, alert, price); err != nil {
		e.logger.WithError(err).WithField("alert_id", alert.ID).Error("Alert notification failed")
	}
}
