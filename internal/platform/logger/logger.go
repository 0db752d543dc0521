package logger

import (
	"log/slog"
	"os"
)

var (
	defaultLogger = newJSON(slog.LevelInfo)
)

func newJSON(level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}

func L() *slog.Logger {
	return defaultLogger
}

func SetLevel(level slog.Level) {
	defaultLogger = newJSON(level)
	slog.SetDefault(defaultLogger)
}

// With devolve um logger filho com o componente fixado, usado por serviços e worker.
func With(component string) *slog.Logger {
	return defaultLogger.With("componente", component)
}

func Info(msg string, args ...any) {
	defaultLogger.Info(msg, args...)
}

func Warn(msg string, args ...any) {
	defaultLogger.Warn(msg, args...)
}

func Error(msg string, args ...any) {
	defaultLogger.Error(msg, args...)
}

func Fatal(msg string, args ...any) {
	defaultLogger.Error(msg, args...)
	os.Exit(1)
}
