// Package logger provides a configured zerolog logger.
package logger

import (
	"os"

	"github.com/rs/zerolog"
)

// New returns a new zerolog.Logger configured for the application. The level
// defaults to info and can be overridden with LOCUSTGRUB_LOG_LEVEL.
func New(serviceName string) zerolog.Logger {
	level := zerolog.InfoLevel
	if s := os.Getenv("LOCUSTGRUB_LOG_LEVEL"); s != "" {
		if parsed, err := zerolog.ParseLevel(s); err == nil {
			level = parsed
		}
	}
	return zerolog.New(os.Stdout).Level(level).With().
		Str("service", serviceName).
		Timestamp().
		Logger()
}
