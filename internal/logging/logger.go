package logging

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/animus-coder/visualedit/internal/config"
)

// NewLogger builds a zap logger from the logging section of the configuration.
func NewLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var zapLevel zapcore.Level
	if err := zapLevel.Set(strings.ToLower(cfg.Level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}

	format := strings.ToLower(strings.TrimSpace(cfg.Format))
	var zc zap.Config
	switch format {
	case "json":
		zc = zap.NewProductionConfig()
	default:
		format = "console"
		zc = zap.NewDevelopmentConfig()
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	zc.Level = zap.NewAtomicLevelAt(zapLevel)
	zc.Encoding = format
	// stdout belongs to command output (prompts, analysis, NDJSON).
	zc.OutputPaths = []string{"stderr"}
	if len(cfg.Outputs) > 0 {
		zc.OutputPaths = cfg.Outputs
	}

	return zc.Build()
}

// OrNop returns l, or a no-op logger when l is nil.
func OrNop(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l
}
