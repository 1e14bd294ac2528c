package config

import (
	"io"
	"log/slog"
	"os"
)

var Logger *slog.Logger

func InitLogger() {
	Logger = NewLogger(os.Stdout, os.Getenv("ENV"))
	slog.SetDefault(Logger)

	slog.Info("Logger initialized successfully")
}

// NewLogger builds the JSON logger. Production output keeps RFC3339 times;
// other environments get source locations and local wall-clock times.
func NewLogger(w io.Writer, env string) *slog.Logger {
	var handler slog.Handler

	if env == "production" {
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	} else {
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{
			Level:       slog.LevelDebug,
			ReplaceAttr: replaceTimeAttr,
			AddSource:   true,
		})
	}

	return slog.New(handler)
}

func replaceTimeAttr(groups []string, a slog.Attr) slog.Attr {
	if a.Key == slog.TimeKey {
		return slog.String("time", a.Value.Time().Local().Format("2006-01-02 15:04:05"))
	}
	return a
}
