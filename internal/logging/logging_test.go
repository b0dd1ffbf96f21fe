package logging_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/waabox/apideck/internal/config"
	"github.com/waabox/apideck/internal/logging"
)

func TestNew_JSONOutputAtLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.New(config.LogConfig{Level: "warn", Format: "json"}, &buf)

	logger.Info().Msg("hidden")
	logger.Warn().Str("route", "/login").Msg("shown")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "shown", line["message"])
	assert.Equal(t, "/login", line["route"])
	assert.Equal(t, "warn", line["level"])
}

func TestNew_UnknownLevelFallsBackToInfo(t *testing.T) {
	logger := logging.New(config.LogConfig{Level: "chatty"}, &bytes.Buffer{})
	assert.Equal(t, zerolog.InfoLevel, logger.GetLevel())
}

func TestNew_ConsoleFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.New(config.LogConfig{Level: "debug", Format: "console"}, &buf)
	logger.Debug().Msg("hello console")
	assert.Contains(t, buf.String(), "hello console")
}

func TestNew_LeavesGlobalTimeFormatAlone(t *testing.T) {
	before := zerolog.TimeFieldFormat
	logging.New(config.LogConfig{Level: "info"}, &bytes.Buffer{})
	logging.New(config.LogConfig{Level: "debug", Format: "console"}, &bytes.Buffer{})
	assert.Equal(t, before, zerolog.TimeFieldFormat)
}
