package app

import (
	"io"
	"log/slog"

	"gopkg.in/natefinch/lumberjack.v2"
)

// newLogger writes to stdout and, when configured, to a rotating log file.
// The returned closer releases the log file.
func newLogger(stdout io.Writer, settings Settings, level *slog.LevelVar) (*slog.Logger, io.Closer) {
	if settings.LogFile.Path == "" {
		return slog.New(slog.NewTextHandler(stdout, &slog.HandlerOptions{Level: level})), io.NopCloser(nil)
	}

	file := &lumberjack.Logger{
		Filename:   settings.LogFile.Path,
		MaxSize:    settings.LogFile.MaxSizeMB,
		MaxBackups: settings.LogFile.MaxBackups,
		MaxAge:     settings.LogFile.MaxAgeDays,
		Compress:   settings.LogFile.Compress,
	}

	w := io.MultiWriter(stdout, file)
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})), file
}
