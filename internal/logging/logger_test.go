package logging

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/animus-coder/visualedit/internal/config"
)

func TestNewLoggerRejectsUnknownLevel(t *testing.T) {
	_, err := NewLogger(config.LoggingConfig{Level: "loud", Format: "console"})
	require.Error(t, err)
}

func TestNewLoggerJSON(t *testing.T) {
	logger, err := NewLogger(config.LoggingConfig{Level: "warn", Format: "json"})
	require.NoError(t, err)
	require.False(t, logger.Core().Enabled(-1))
	require.True(t, logger.Core().Enabled(1))
}

func TestOrNop(t *testing.T) {
	require.NotNil(t, OrNop(nil))
}
