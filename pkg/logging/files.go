package logging

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

const megabyte = 1024 * 1024

// FileOptions selects where per-level log files go and how they rotate.
type FileOptions struct {
	Dir         string // empty disables file output
	MaxFileSize int64  // bytes before rotation
	BackupCount int
}

// LevelFileHook writes every entry at info and above to its own
// rotating file, app_<level>.log, inside one directory.
type LevelFileHook struct {
	formatter logrus.Formatter
	writers   map[logrus.Level]*lumberjack.Logger
}

// NewLevelFileHook creates dir and prepares one writer per level. Files
// are opened on first write.
func NewLevelFileHook(opts FileOptions, formatter logrus.Formatter) (*LevelFileHook, error) {
	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create log directory %s: %w", opts.Dir, err)
	}

	hook := &LevelFileHook{
		formatter: formatter,
		writers:   make(map[logrus.Level]*lumberjack.Logger),
	}
	for _, level := range fileLevels() {
		hook.writers[level] = &lumberjack.Logger{
			Filename:   filepath.Join(opts.Dir, "app_"+level.String()+".log"),
			MaxSize:    maxSizeMB(opts.MaxFileSize),
			MaxBackups: opts.BackupCount,
		}
	}
	return hook, nil
}

func fileLevels() []logrus.Level {
	return []logrus.Level{
		logrus.PanicLevel,
		logrus.FatalLevel,
		logrus.ErrorLevel,
		logrus.WarnLevel,
		logrus.InfoLevel,
	}
}

// maxSizeMB converts a byte limit to lumberjack's megabyte unit, rounding
// up. Zero keeps lumberjack's default.
func maxSizeMB(bytes int64) int {
	if bytes <= 0 {
		return 0
	}
	return int((bytes + megabyte - 1) / megabyte)
}

// Levels implements logrus.Hook interface.
func (h *LevelFileHook) Levels() []logrus.Level {
	return fileLevels()
}

// Fire implements logrus.Hook interface.
func (h *LevelFileHook) Fire(entry *logrus.Entry) error {
	w, ok := h.writers[entry.Level]
	if !ok {
		return nil
	}
	line, err := h.formatter.Format(entry)
	if err != nil {
		return err
	}
	_, err = w.Write(line)
	return err
}

// Close closes every open log file.
func (h *LevelFileHook) Close() error {
	var firstErr error
	for _, w := range h.writers {
		if err := w.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
