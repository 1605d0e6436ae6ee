// Package logging configures the service-wide logrus logger.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Options selects level and output format.
type Options struct {
	AppName string
	Level   string // logrus level name; empty means info
	Format  string // "text" or "json"
	Output  io.Writer
	Files   FileOptions
}

type appNameHook struct {
	appName string
}

// Levels implements logrus.Hook interface.
func (h *appNameHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

// Fire implements logrus.Hook interface.
func (h *appNameHook) Fire(entry *logrus.Entry) error {
	entry.Data["app"] = h.appName
	return nil
}

// New builds a logger from opts. An unknown level falls back to info
// with a warning. When opts.Files.Dir is set, entries at info and above
// are also written to rotating per-level files.
func New(opts Options) *logrus.Logger {
	logger := logrus.New()

	output := opts.Output
	if output == nil {
		output = os.Stdout
	}
	logger.SetOutput(output)

	levelStr := strings.ToLower(opts.Level)
	if levelStr == "" {
		levelStr = "info"
	}
	level, err := logrus.ParseLevel(levelStr)
	if err != nil {
		logger.Warnf("Invalid log level '%s', defaulting to INFO", opts.Level)
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	var fileFormatter logrus.Formatter
	if strings.EqualFold(opts.Format, "json") {
		logger.SetFormatter(&logrus.JSONFormatter{})
		fileFormatter = &logrus.JSONFormatter{}
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
		fileFormatter = &logrus.TextFormatter{
			FullTimestamp: true,
			DisableColors: true,
		}
	}

	if opts.AppName != "" {
		logger.AddHook(&appNameHook{appName: opts.AppName})
	}

	if opts.Files.Dir != "" {
		hook, err := NewLevelFileHook(opts.Files, fileFormatter)
		if err != nil {
			logger.WithError(err).Warn("Log files disabled")
		} else {
			logger.AddHook(hook)
		}
	}

	return logger
}

// Discard returns a logger that drops everything. Handy in tests.
func Discard() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}
