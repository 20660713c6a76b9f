package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

type Config struct {
	Level      string
	TimeFormat string
	Pretty     bool
	Output     io.Writer
}

func New() zerolog.Logger {
	return NewWithConfig(Config{Level: "info", TimeFormat: time.RFC3339})
}

func NewWithConfig(config Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(config.Level)
	if err != nil || config.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	if config.TimeFormat != "" {
		zerolog.TimeFieldFormat = config.TimeFormat
	}

	out := config.Output
	if out == nil {
		out = os.Stdout
	}
	if config.Pretty {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}
	return zerolog.New(out).With().Timestamp().Str("service", "hive").Logger()
}

// Nop discards everything. Used by tests and by code paths constructed without a logger.
func Nop() zerolog.Logger {
	return zerolog.Nop()
}
