package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"tradewatch/internal/database"
)

// Pinger reports liveness of an auxiliary dependency, keyed by name.
type Pinger interface {
	Name() string
	Ping(ctx context.Context) error
}

// Checker serves the dashboard's health endpoint. The database is the one
// hard dependency; additional pingers (realtime listener, market API) degrade
// the report without flipping the overall status.
type Checker struct {
	db      *database.DB
	pingers []Pinger
	logger  *logrus.Logger
}

type Status struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Services  map[string]string `json:"services"`
}

func NewChecker(db *database.DB, logger *logrus.Logger, pingers ...Pinger) *Checker {
	return &Checker{
		db:      db,
		pingers: pingers,
		logger:  logger,
	}
}

func (h *Checker) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		status := h.Check(ctx)

		w.Header().Set("Content-Type", "application/json")
		if status.Status == "healthy" {
			w.WriteHeader(http.StatusOK)
		} else {
			w.WriteHeader(http.StatusServiceUnavailable)
		}

		json.NewEncoder(w).Encode(status)
	}
}

func (h *Checker) Check(ctx context.Context) Status {
	services := make(map[string]string)
	overall := "healthy"

	if err := h.db.HealthCheck(); err != nil {
		services["database"] = "unhealthy: " + err.Error()
		overall = "unhealthy"
		h.logger.WithError(err).Error("Database health check failed")
	} else {
		services["database"] = "healthy"
	}

	for _, p := range h.pingers {
		if err := p.Ping(ctx); err != nil {
			services[p.Name()] = "degraded: " + err.Error()
			h.logger.WithError(err).WithField("service", p.Name()).Warn("Health check degraded")
		} else {
			services[p.Name()] = "healthy"
		}
	}

	return Status{
		Status:    overall,
		Timestamp: time.Now(),
		Services:  services,
	}
}

func (h *Checker) StartServer(port string) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", h.Handler())
	mux.HandleFunc("/ready", h.Handler()) // Kubernetes readiness probe

	server := &http.Server{
		Addr:         ":" + port,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}

	go func() {
		h.logger.WithField("port", port).Info("Starting health check server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			h.logger.WithError(err).Error("Health check server failed")
		}
	}()

	return server
}
