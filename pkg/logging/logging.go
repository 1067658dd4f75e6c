package logging

import (
	"os"

	"github.com/sirupsen/logrus"
)

// ConsoleLogger returns a plain stderr logger, mainly for tests and CLI use.
func ConsoleLogger(level logrus.Level) *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(level)
	return logger
}

// Setup builds the process logger. Format is "json" or "text"; anything else
// falls back to text.
func Setup(level logrus.Level, format string) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stdout)
	logger.SetLevel(level)
	switch format {
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{})
	default:
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return logger
}
