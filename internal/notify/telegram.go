package notify

import (
	"fmt"
	"strconv"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"tradewatch/pkg/models"
)

const sendRetries = 3

// Telegram delivers alert notifications to per-user chats through one shared
// bot. Construction fails when the token is rejected, so a running notifier
// is always authorized.
type Telegram struct {
	bot    *tgbotapi.BotAPI
	logger *logrus.Logger
}

func NewTelegram(token string, logger *logrus.Logger) (*Telegram, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("initializing telegram bot: %w", err)
	}

	logger.WithField("bot", bot.Self.UserName).Info("Telegram notifier ready")
	return &Telegram{bot: bot, logger: logger}, nil
}

// SendAlert formats and delivers a triggered-alert message. Chat ids are
// stored as strings on the profile and parsed here.
func (t *Telegram) SendAlert(chatID string, alert models.Alert, price float64) error {
	id, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid telegram chat id %q: %w", chatID, err)
	}

	direction := "rose above"
	if alert.Condition == models.AlertBelow {
		direction = "fell below"
	}
	text := fmt.Sprintf("🔔 *Price Alert*\n\n*%s* %s *%.8g*\nCurrent price: *%.8g*",
		alert.Symbol, direction, alert.TargetPrice, price)
	if alert.Description != "" {
		text += fmt.Sprintf("\n\n_%s_", alert.Description)
	}

	msg := tgbotapi.NewMessage(id, text)
	msg.ParseMode = tgbotapi.ModeMarkdown

	for attempt := 1; attempt <= sendRetries; attempt++ {
		if _, err = t.bot.Send(msg); err == nil {
			return nil
		}
		t.logger.WithError(err).WithFields(logrus.Fields{
			"chat_id": id,
			"attempt": attempt,
		}).Warn("Telegram send failed")
		if attempt < sendRetries {
			time.Sleep(time.Duration(attempt) * time.Second)
		}
	}
	return fmt.Errorf("sending telegram alert after %d attempts: %w", sendRetries, err)
}
