package health

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"

	"tradewatch/internal/database"
)

func newTestLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newTestDB(t *testing.T) (*database.DB, sqlmock.Sqlmock) {
	t.Helper()

	mockDB, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	if err != nil {
		t.Fatalf("opening sqlmock: %v", err)
	}
	t.Cleanup(func() { mockDB.Close() })

	return &database.DB{DB: mockDB}, mock
}

type stubPinger struct {
	name string
	err  error
}

func (p stubPinger) Name() string               { return p.name }
func (p stubPinger) Ping(context.Context) error { return p.err }

func TestCheck_PingerDegradesWithoutFlippingStatus(t *testing.T) {
	db, mock := newTestDB(t)
	mock.ExpectPing()

	checker := NewChecker(db, newTestLogger(),
		stubPinger{name: "market_api", err: errors.New("connection refused")},
		stubPinger{name: "listener"},
	)

	status := checker.Check(context.Background())

	assert.Equal(t, "healthy", status.Status)
	assert.Equal(t, "healthy", status.Services["database"])
	assert.Equal(t, "healthy", status.Services["listener"])
	assert.Contains(t, status.Services["market_api"], "degraded")
}

func TestCheck_DatabaseFailureIsUnhealthy(t *testing.T) {
	db, mock := newTestDB(t)
	mock.ExpectPing().WillReturnError(errors.New("connection reset"))

	checker := NewChecker(db, newTestLogger())
	status := checker.Check(context.Background())

	assert.Equal(t, "unhealthy", status.Status)
	assert.Contains(t, status.Services["database"], "unhealthy")
}

func TestHandler_StatusCodes(t *testing.T) {
	db, mock := newTestDB(t)
	mock.ExpectPing()
	mock.ExpectPing().WillReturnError(errors.New("down"))

	checker := NewChecker(db, newTestLogger())

	w := httptest.NewRecorder()
	checker.Handler()(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"healthy"`)

	w = httptest.NewRecorder()
	checker.Handler()(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
