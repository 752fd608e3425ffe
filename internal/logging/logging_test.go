package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"INFO", zerolog.InfoLevel},
		{" warn ", zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		level, err := ParseLevel(tt.input)
		require.NoError(t, err, tt.input)
		assert.Equal(t, tt.expected, level, tt.input)
	}

	_, err := ParseLevel("loud")
	assert.Error(t, err)
}

func TestFromEnv(t *testing.T) {
	t.Setenv(EnvLevel, "debug")
	t.Setenv(EnvNoColor, "true")
	t.Setenv(EnvJSON, "1")

	cfg, err := FromEnv(Runtime())
	require.NoError(t, err)
	assert.Equal(t, zerolog.DebugLevel, cfg.Level)
	assert.True(t, cfg.NoColor)
	assert.True(t, cfg.JSON)
	assert.True(t, cfg.Timestamp)
}

func TestFromEnvInvalid(t *testing.T) {
	t.Setenv(EnvJSON, "maybe")

	cfg, err := FromEnv(Test())
	assert.Error(t, err)
	assert.False(t, cfg.JSON)
}

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, Config{Level: zerolog.InfoLevel, JSON: true})

	logger.Debug().Msg("hidden")
	logger.Info().Str("file", "vol.dcm").Msg("read")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "info", line["level"])
	assert.Equal(t, "vol.dcm", line["file"])
	assert.Equal(t, "read", line["message"])
	assert.NotContains(t, line, "time")
}

func TestNewConsole(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, Test())

	logger.Info().Msg("hidden")
	logger.Warn().Int("warning", 2003).Msg("SLO file not found")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "SLO file not found")
	assert.Contains(t, out, "warning=2003")
}
