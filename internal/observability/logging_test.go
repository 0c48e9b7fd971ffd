package observability_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gekkinggu/turn-based-combat/internal/config"
	"github.com/gekkinggu/turn-based-combat/internal/observability"
)

func TestNewLogger_ValidConfigurations(t *testing.T) {
	for _, format := range []string{"json", "console"} {
		for _, level := range []string{"debug", "info", "warn", "error"} {
			logger, err := observability.NewLogger(config.LoggingConfig{Level: level, Format: format})
			require.NoError(t, err, "format=%s level=%s", format, level)
			require.NotNil(t, logger)
		}
	}
}

func TestNewLogger_InvalidLevel(t *testing.T) {
	_, err := observability.NewLogger(config.LoggingConfig{Level: "verbose", Format: "json"})
	assert.Error(t, err)
}

func TestNewLogger_InvalidFormat(t *testing.T) {
	_, err := observability.NewLogger(config.LoggingConfig{Level: "info", Format: "xml"})
	assert.Error(t, err)
}
