// Package logging builds the structured loggers shared by every component.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Logger represents a logger instance
type Logger = *logrus.Logger

// Entry is a logger with fields attached
type Entry = *logrus.Entry

// Fields represents structured logging fields
type Fields = logrus.Fields

// Log levels
const (
	DebugLevel = logrus.DebugLevel
	InfoLevel  = logrus.InfoLevel
	WarnLevel  = logrus.WarnLevel
	ErrorLevel = logrus.ErrorLevel
)

// LevelFromEnv reads LOG_LEVEL, defaulting to info
func LevelFromEnv() logrus.Level {
	level, err := logrus.ParseLevel(strings.TrimSpace(os.Getenv("LOG_LEVEL")))
	if err != nil {
		return logrus.InfoLevel
	}
	return level
}

// NewLogger creates a JSON logger writing to stderr at the LOG_LEVEL level
func NewLogger() Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetLevel(LevelFromEnv())
	return logger
}

// NewLoggerWithService creates a logger that stamps every entry with a service field
func NewLoggerWithService(serviceName string) Logger {
	logger := NewLogger()
	logger.AddHook(serviceHook{name: serviceName})
	return logger
}

// Discard returns a logger that drops everything. Used when callers pass no logger.
func Discard() Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// OrDiscard returns l, or a discarding logger when l is nil
func OrDiscard(l Logger) Logger {
	if l == nil {
		return Discard()
	}
	return l
}

type serviceHook struct {
	name string
}

func (h serviceHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (h serviceHook) Fire(entry *logrus.Entry) error {
	if _, ok := entry.Data["service"]; !ok {
		entry.Data["service"] = h.name
	}
	return nil
}
