package utils

import (
	"os"

	"github.com/sirupsen/logrus"
)

// serviceHook stamps every entry with the emitting component's name, so log
// aggregation can tell the dashboard apart from its webhook and health servers.
type serviceHook struct {
	service string
}

func (h serviceHook) Levels() []logrus.Level { return logrus.AllLevels }

func (h serviceHook) Fire(entry *logrus.Entry) error {
	entry.Data["service"] = h.service
	return nil
}

// NewLogger builds the process logger. The level comes from LOG_LEVEL, the
// format flips to JSON under ENVIRONMENT=production, and every entry carries
// the service name.
func NewLogger(service string) *logrus.Logger {
	logger := logrus.New()

	switch os.Getenv("LOG_LEVEL") {
	case "debug":
		logger.SetLevel(logrus.DebugLevel)
	case "warn":
		logger.SetLevel(logrus.WarnLevel)
	case "error":
		logger.SetLevel(logrus.ErrorLevel)
	default:
		logger.SetLevel(logrus.InfoLevel)
	}

	if os.Getenv("ENVIRONMENT") == "production" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
			ForceColors:   true,
		})
	}

	logger.AddHook(serviceHook{service: service})

	return logger
}
