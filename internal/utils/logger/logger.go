package logger

import (
	"io"
	"os"
	"strings"

	"golang.org/x/exp/slog"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

type Option func(*options)

type options struct {
	level   string
	file    string
	console io.Writer
}

// WithLevel переопределяет уровень окружения (debug, info, warn, error). Пустая строка игнорируется.
func WithLevel(level string) Option {
	return func(o *options) {
		o.level = level
	}
}

// WithFile дополнительно пишет JSON логи в файл с ротацией.
func WithFile(path string) Option {
	return func(o *options) {
		o.file = path
	}
}

// WithOutput заменяет вывод в консоль (по умолчанию os.Stdout).
func WithOutput(w io.Writer) Option {
	return func(o *options) {
		o.console = w
	}
}

// New создает логгер для окружения: local - цветной вывод с уровнем Debug,
// dev - JSON с уровнем Debug, prod - JSON с уровнем Info.
func New(env string, opts ...Option) *slog.Logger {
	o := options{console: os.Stdout}
	for _, opt := range opts {
		opt(&o)
	}

	level := envLevel(env)
	if o.level != "" {
		level = parseLevel(o.level, level)
	}

	var console slog.Handler
	switch env {
	case envLocal:
		console = newPrettyHandler(o.console, &slog.HandlerOptions{Level: level})
	default:
		console = slog.NewJSONHandler(o.console, &slog.HandlerOptions{Level: level})
	}

	if o.file == "" {
		return slog.New(console)
	}

	file := &lumberjack.Logger{
		Filename:   o.file,
		MaxSize:    10,
		MaxBackups: 3,
		MaxAge:     28,
		Compress:   true,
	}
	return slog.New(tee{console, slog.NewJSONHandler(file, &slog.HandlerOptions{Level: level})})
}

func setupPrettySlog() *slog.Logger {
	return slog.New(newPrettyHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func envLevel(env string) slog.Level {
	switch env {
	case envLocal, envDev:
		return slog.LevelDebug
	case envProd:
		return slog.LevelInfo
	}
	return slog.LevelInfo
}

func parseLevel(s string, fallback slog.Level) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return fallback
}
