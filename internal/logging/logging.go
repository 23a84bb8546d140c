// Package logging configures the logrus logger shared by all components.
package logging

import (
	"io"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/ghostpost/ghostpost/internal/config"
)

const timestampFormat = "2006-01-02 15:04:05"

// New builds a logger writing to out with the configured level and format.
// Unknown levels fall back to info.
func New(cfg config.LogConfig, out io.Writer) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(out)

	level, err := logrus.ParseLevel(strings.TrimSpace(cfg.Level))
	if err != nil {
		level = logrus.InfoLevel
	}
	l.SetLevel(level)

	if cfg.Format == "json" {
		l.SetFormatter(&logrus.JSONFormatter{TimestampFormat: timestampFormat})
	} else {
		l.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: timestampFormat,
		})
	}
	return l
}

// Component tags every entry with the emitting component
func Component(l logrus.FieldLogger, name string) logrus.FieldLogger {
	return l.WithField("component", name)
}
