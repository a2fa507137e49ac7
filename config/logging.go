package config

import (
	"io"
	"log/slog"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger builds the slog logger described by c. Output goes to w unless a
// log file is configured, in which case it is rotated by lumberjack. The
// returned func releases the log file.
func (c *Config) Logger(w io.Writer) (*slog.Logger, func()) {
	var logLevel slog.Level
	switch c.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	closeFn := func() {}
	if c.LogFile != "" {
		lj := &lumberjack.Logger{
			Filename:   c.LogFile,
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
		}
		w = lj
		closeFn = func() { lj.Close() }
	}

	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: logLevel})), closeFn
}
