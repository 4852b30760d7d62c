package database

import (
	"context"
	"time"

	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

// Channels the backend is expected to NOTIFY on row changes. Each
// notification triggers a full relist of the affected table rather than an
// incremental merge, trading efficiency for consistency with the source of
// truth.
var watchedChannels = []string{
	"p2p_opportunities",
	"active_trades",
	"trade_history",
	"signals",
	"alerts",
}

// Listener delivers table-change notifications. There is no ordering
// relationship between these events and market-data streams.
type Listener struct {
	listener *pq.Listener
	logger   *logrus.Logger
	onChange func(table string)
}

func NewListener(dbUri string, onChange func(table string), logger *logrus.Logger) (*Listener, error) {
	reportProblem := func(ev pq.ListenerEventType, err error) {
		if err != nil {
			logger.WithError(err).Warn("Database listener event")
		}
	}

	pqListener := pq.NewListener(dbUri, 10*time.Second, time.Minute, reportProblem)
	for _, channel := range watchedChannels {
		if err := pqListener.Listen(channel); err != nil {
			pqListener.Close()
			return nil, err
		}
	}

	return &Listener{
		listener: pqListener,
		logger:   logger,
		onChange: onChange,
	}, nil
}

// Run dispatches notifications until ctx is cancelled.
func (l *Listener) Run(ctx context.Context) {
	l.logger.WithField("channels", watchedChannels).Info("Database change listener started")

	for {
		select {
		case <-ctx.Done():
			l.logger.Info("Database change listener stopped")
			return
		case notification := <-l.listener.Notify:
			if notification == nil {
				// Connection was re-established; relist everything to
				// cover changes missed while disconnected.
				for _, channel := range watchedChannels {
					l.onChange(channel)
				}
				continue
			}
			l.logger.WithField("table", notification.Channel).Debug("Change notification received")
			l.onChange(notification.Channel)
		case <-time.After(90 * time.Second):
			if err := l.listener.Ping(); err != nil {
				l.logger.WithError(err).Warn("Database listener ping failed")
			}
		}
	}
}

func (l *Listener) Close() error {
	return l.listener.Close()
}
