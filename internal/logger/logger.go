package logger

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func InitLogger() zerolog.Logger {
	level := zerolog.InfoLevel
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		if parsed, err := zerolog.ParseLevel(v); err == nil {
			level = parsed
		}
	}

	logger := log.Output(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		With().Str("service", "wallet").Logger()
	return logger
}
