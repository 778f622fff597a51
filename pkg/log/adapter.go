package log

import (
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"
)

// NewLogger builds the logrus logger shared by every component.
// An unknown level is reported as an error and the logger stays at info.
func NewLogger(level string, out io.Writer) (*logrus.Logger, error) {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: "15:04:05.000"})
	logger.SetLevel(logrus.InfoLevel)
	if out != nil {
		logger.SetOutput(out)
	}

	if strings.TrimSpace(level) == "" {
		return logger, nil
	}
	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		return logger, fmt.Errorf("invalid log level '%s': %w", level, err)
	}
	logger.SetLevel(parsed)
	return logger, nil
}

// Component returns an entry tagged with the component field.
func Component(logger *logrus.Logger, name string) *logrus.Entry {
	return logger.WithField("component", name)
}

// BadgerLogrusAdapter implements badger.Logger interface using logrus.
// Badger is chatty at info level, so its info lines are demoted to debug.
type BadgerLogrusAdapter struct {
	*logrus.Entry
}

// NewBadgerLogrusAdapter creates a new adapter
func NewBadgerLogrusAdapter(entry *logrus.Entry) *BadgerLogrusAdapter {
	return &BadgerLogrusAdapter{entry.WithField("subsystem", "badger")}
}

func (l *BadgerLogrusAdapter) Errorf(f string, v ...interface{}) {
	l.Entry.Errorf(strings.TrimRight(f, "\n"), v...)
}

func (l *BadgerLogrusAdapter) Warningf(f string, v ...interface{}) {
	l.Entry.Warningf(strings.TrimRight(f, "\n"), v...)
}

func (l *BadgerLogrusAdapter) Infof(f string, v ...interface{}) {
	l.Entry.Debugf(strings.TrimRight(f, "\n"), v...)
}

func (l *BadgerLogrusAdapter) Debugf(f string, v ...interface{}) {
	l.Entry.Tracef(strings.TrimRight(f, "\n"), v...)
}
