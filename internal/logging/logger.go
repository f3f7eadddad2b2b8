package logging

import (
	"github.com/sirupsen/logrus"

	"neutron-agent/internal/config"
)

// Logger is the logging surface shared by every component.
type Logger = logrus.FieldLogger

// Fields represents structured logging fields
type Fields = logrus.Fields

// NewLogger creates a new configured logger instance
func NewLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetLevel(config.GetLogLevel())
	return logger
}

// NewLoggerWithService creates a logger that tags every entry with the service name.
func NewLoggerWithService(serviceName string) Logger {
	return NewLogger().WithField("service", serviceName)
}
