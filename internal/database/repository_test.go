package database

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func newTestRepository(t *testing.T) (*Repository, sqlmock.Sqlmock) {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("opening sqlmock: %v", err)
	}
	t.Cleanup(func() { mockDB.Close() })

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	return NewRepository(&DB{DB: mockDB, logger: logger}, logger), mock
}

func TestGetProfile_NullColumns(t *testing.T) {
	repo, mock := newTestRepository(t)

	// Fresh accounts leave username, avatar, status and chat id NULL.
	rows := sqlmock.NewRows([]string{
		"id", "username", "avatar_url", "subscription_status", "telegram_chat_id",
		"subscription_expires_at", "premium_until",
	}).AddRow("user-1", nil, nil, nil, nil, nil, nil)

	mock.ExpectQuery("SELECT id, username, avatar_url").
		WithArgs("user-1").
		WillReturnRows(rows)

	profile, err := repo.GetProfile(context.Background(), "user-1")

	assert.NoError(t, err)
	assert.NotNil(t, profile)
	assert.Equal(t, "user-1", profile.ID)
	assert.Empty(t, profile.Username)
	assert.Empty(t, profile.SubscriptionStatus)
	assert.Empty(t, profile.TelegramChatID)
	assert.Nil(t, profile.PremiumUntil)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetProfile_PopulatedColumns(t *testing.T) {
	repo, mock := newTestRepository(t)

	until := time.Date(2026, 12, 1, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{
		"id", "username", "avatar_url", "subscription_status", "telegram_chat_id",
		"subscription_expires_at", "premium_until",
	}).AddRow("user-2", "trader", "https://cdn/x.png", "premium", "12345", nil, until)

	mock.ExpectQuery("SELECT id, username, avatar_url").
		WithArgs("user-2").
		WillReturnRows(rows)

	profile, err := repo.GetProfile(context.Background(), "user-2")

	assert.NoError(t, err)
	assert.NotNil(t, profile)
	assert.Equal(t, "trader", profile.Username)
	assert.Equal(t, "premium", profile.SubscriptionStatus)
	assert.Equal(t, "12345", profile.TelegramChatID)
	if assert.NotNil(t, profile.PremiumUntil) {
		assert.Equal(t, until, *profile.PremiumUntil)
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetProfile_NoRows(t *testing.T) {
	repo, mock := newTestRepository(t)

	mock.ExpectQuery("SELECT id, username, avatar_url").
		WithArgs("user-3").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "username", "avatar_url", "subscription_status", "telegram_chat_id",
			"subscription_expires_at", "premium_until",
		}))

	profile, err := repo.GetProfile(context.Background(), "user-3")

	assert.NoError(t, err)
	assert.Nil(t, profile)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListActiveAlerts_NullDescription(t *testing.T) {
	repo, mock := newTestRepository(t)

	created := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{
		"id", "user_id", "symbol", "target_price", "condition", "description", "status", "created_at",
	}).
		AddRow("a-1", "user-1", "BTCUSDT", 70000.0, "above", nil, "active", created).
		AddRow("a-2", "user-1", "ETHUSDT", 2000.0, "below", "dip entry", "active", created)

	mock.ExpectQuery("SELECT id, user_id, symbol, target_price").
		WithArgs("user-1").
		WillReturnRows(rows)

	alerts, err := repo.ListActiveAlerts(context.Background(), "user-1")

	assert.NoError(t, err)
	assert.Len(t, alerts, 2)
	assert.Empty(t, alerts[0].Description)
	assert.Equal(t, "dip entry", alerts[1].Description)
	assert.NoError(t, mock.ExpectationsWereMet())
}
