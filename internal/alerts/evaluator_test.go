package alerts

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"tradewatch/pkg/models"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) ListActiveAlerts(ctx context.Context, userID string) ([]models.Alert, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Alert), args.Error(1)
}

func (m *MockRepository) UpdateAlertStatus(ctx context.Context, id, status string) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *MockRepository) GetProfile(ctx context.Context, userID string) (*models.Profile, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Profile), args.Error(1)
}

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) SendAlert(chatID string, alert models.Alert, price float64) error {
	args := m.Called(chatID, alert, price)
	return args.Error(0)
}

func newTestLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func activeAlert(id string, condition models.AlertCondition, target float64) models.Alert {
	return models.Alert{
		ID:          id,
		UserID:      "u1",
		Symbol:      "BTCUSDT",
		TargetPrice: target,
		Condition:   condition,
		Status:      models.AlertStatusActive,
	}
}

func TestCheck_AboveTriggersAtOrPastTarget(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		condition models.AlertCondition
		target    float64
		price     float64
		triggered bool
	}{
		{"above triggers past target", models.AlertAbove, 60000, 60001, true},
		{"above triggers exactly at target", models.AlertAbove, 60000, 60000, true},
		{"above holds below target", models.AlertAbove, 60000, 59999, false},
		{"below triggers past target", models.AlertBelow, 40000, 39999, true},
		{"below triggers exactly at target", models.AlertBelow, 40000, 40000, true},
		{"below holds above target", models.AlertBelow, 40000, 40001, false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			repo := new(MockRepository)
			repo.On("ListActiveAlerts", mock.Anything, "u1").
				Return([]models.Alert{activeAlert("a1", tt.condition, tt.target)}, nil).Once()

			if tt.triggered {
				repo.On("UpdateAlertStatus", mock.Anything, "a1", models.AlertStatusTriggered).Return(nil).Once()
				repo.On("GetProfile", mock.Anything, "u1").
					Return(&models.Profile{ID: "u1", TelegramChatID: "12345"}, nil).Once()
			}

			notifier := new(MockNotifier)
			if tt.triggered {
				notifier.On("SendAlert", "12345", mock.Anything, tt.price).Return(nil).Once()
			}

			e := NewEvaluator(repo, notifier, "u1", newTestLogger())
			e.Check(context.Background(), "BTCUSDT", tt.price)

			repo.AssertExpectations(t)
			notifier.AssertExpectations(t)
		})
	}
}

func TestCheck_IgnoresOtherSymbols(t *testing.T) {
	t.Parallel()

	repo := new(MockRepository)
	repo.On("ListActiveAlerts", mock.Anything, "u1").
		Return([]models.Alert{activeAlert("a1", models.AlertAbove, 100)}, nil).Once()

	e := NewEvaluator(repo, new(MockNotifier), "u1", newTestLogger())
	e.Check(context.Background(), "ETHUSDT", 5000)

	repo.AssertNotCalled(t, "UpdateAlertStatus", mock.Anything, mock.Anything, mock.Anything)
}

func TestCheck_StatusFlipPrecedesNotification(t *testing.T) {
	t.Parallel()

	repo := new(MockRepository)
	repo.On("ListActiveAlerts", mock.Anything, "u1").
		Return([]models.Alert{activeAlert("a1", models.AlertAbove, 100)}, nil).Once()

	flipped := false
	repo.On("UpdateAlertStatus", mock.Anything, "a1", models.AlertStatusTriggered).
		Run(func(mock.Arguments) { flipped = true }).Return(nil).Once()
	repo.On("GetProfile", mock.Anything, "u1").
		Return(&models.Profile{ID: "u1", TelegramChatID: "12345"}, nil).Once()

	notifier := new(MockNotifier)
	notifier.On("SendAlert", "12345", mock.Anything, 101.0).
		Run(func(mock.Arguments) {
			assert.True(t, flipped, "status must be flipped before notification")
		}).Return(nil).Once()

	e := NewEvaluator(repo, notifier, "u1", newTestLogger())
	e.Check(context.Background(), "BTCUSDT", 101)

	repo.AssertExpectations(t)
	notifier.AssertExpectations(t)
}

func TestCheck_NotificationFailureDoesNotRevert(t *testing.T) {
	t.Parallel()

	repo := new(MockRepository)
	repo.On("ListActiveAlerts", mock.Anything, "u1").
		Return([]models.Alert{activeAlert("a1", models.AlertAbove, 100)}, nil).Once()
	repo.On("UpdateAlertStatus", mock.Anything, "a1", models.AlertStatusTriggered).Return(nil).Once()
	repo.On("GetProfile", mock.Anything, "u1").
		Return(&models.Profile{ID: "u1", TelegramChatID: "12345"}, nil).Once()

	notifier := new(MockNotifier)
	notifier.On("SendAlert", "12345", mock.Anything, 101.0).Return(errors.New("telegram down")).Once()

	e := NewEvaluator(repo, notifier, "u1", newTestLogger())
	e.Check(context.Background(), "BTCUSDT", 101)

	// The only status write is the flip to triggered; nothing re-arms it.
	repo.AssertNumberOfCalls(t, "UpdateAlertStatus", 1)
}

func TestCheck_FlipFailureSkipsNotification(t *testing.T) {
	t.Parallel()

	repo := new(MockRepository)
	repo.On("ListActiveAlerts", mock.Anything, "u1").
		Return([]models.Alert{activeAlert("a1", models.AlertAbove, 100)}, nil).Once()
	repo.On("UpdateAlertStatus", mock.Anything, "a1", models.AlertStatusTriggered).
		Return(errors.New("db down")).Once()

	notifier := new(MockNotifier)

	e := NewEvaluator(repo, notifier, "u1", newTestLogger())
	e.Check(context.Background(), "BTCUSDT", 101)

	notifier.AssertNotCalled(t, "SendAlert", mock.Anything, mock.Anything, mock.Anything)
}

func TestCheck_NoChatIDLogsOnly(t *testing.T) {
	t.Parallel()

	repo := new(MockRepository)
	repo.On("ListActiveAlerts", mock.Anything, "u1").
		Return([]models.Alert{activeAlert("a1", models.AlertAbove, 100)}, nil).Once()
	repo.On("UpdateAlertStatus", mock.Anything, "a1", models.AlertStatusTriggered).Return(nil).Once()
	repo.On("GetProfile", mock.Anything, "u1").
		Return(&models.Profile{ID: "u1"}, nil).Once()

	notifier := new(MockNotifier)

	e := NewEvaluator(repo, notifier, "u1", newTestLogger())
	e.Check(context.Background(), "BTCUSDT", 101)

	notifier.AssertNotCalled(t, "SendAlert", mock.Anything, mock.Anything, mock.Anything)
	repo.AssertExpectations(t)
}
