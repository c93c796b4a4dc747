package logger

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/lmittmann/tint"
)

// SlogLogger implements Logger on top of log/slog. Console output is colored
// by tint, JSON output uses the standard handler.
type SlogLogger struct {
	log *slog.Logger
}

// NewSlogLogger creates a SlogLogger writing to w.
func NewSlogLogger(w io.Writer, component, level string, console bool) *SlogLogger {
	lvl := slogLevel(level)
	var h slog.Handler
	if console {
		h = tint.NewHandler(w, &tint.Options{Level: lvl, TimeFormat: time.Kitchen})
	} else {
		h = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl})
	}
	return &SlogLogger{log: slog.New(h).With("component", component)}
}

func slogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func attrs(fields map[string]any) []any {
	out := make([]any, 0, 2*len(fields))
	for k, v := range fields {
		out = append(out, k, v)
	}
	return out
}

func (l *SlogLogger) Debugf(format string, args ...any) {
	l.log.Debug(fmt.Sprintf(format, args...))
}

func (l *SlogLogger) Debugw(msg string, fields map[string]any) {
	l.log.Debug(msg, attrs(fields)...)
}

func (l *SlogLogger) Infof(format string, args ...any) {
	l.log.Info(fmt.Sprintf(format, args...))
}

func (l *SlogLogger) Infow(msg string, fields map[string]any) {
	l.log.Info(msg, attrs(fields)...)
}

func (l *SlogLogger) Warnf(format string, args ...any) {
	l.log.Warn(fmt.Sprintf(format, args...))
}

func (l *SlogLogger) Errorf(format string, args ...any) {
	l.log.Error(fmt.Sprintf(format, args...))
}
