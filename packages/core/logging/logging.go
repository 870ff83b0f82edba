// Package logging builds the zap loggers used by apiharness.
package logging

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a logger at level ("debug", "info", "warn", "error"). An empty
// level means info. Development loggers write human-readable console output.
func New(level string, development bool) (*zap.Logger, error) {
	lvl := zapcore.InfoLevel
	if strings.TrimSpace(level) != "" {
		parsed, err := zapcore.ParseLevel(level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", level, err)
		}
		lvl = parsed
	}

	config := zap.NewProductionConfig()
	if development {
		config = zap.NewDevelopmentConfig()
	}
	config.Level = zap.NewAtomicLevelAt(lvl)

	logger, err := config.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger, nil
}

// ForVerbosity returns a debug development logger when verbose is set and a
// production logger at level otherwise. An empty level means warn, so command
// output stays readable.
func ForVerbosity(level string, verbose bool) (*zap.Logger, error) {
	if verbose {
		return New("debug", true)
	}
	if strings.TrimSpace(level) == "" {
		level = "warn"
	}
	return New(level, false)
}
