package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-token-studio/internal/config"
)

func TestNewLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	log, err := newLogger(config.LoggerConfig{Level: "warn", Encoding: "json"}, &buf)
	require.NoError(t, err)

	log.Info("dropped")
	log.Warn("kept")
	require.NoError(t, log.Sync())

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "kept", entry["msg"])
	assert.Contains(t, entry, "timestamp")
}

func TestNewLogger_Invalid(t *testing.T) {
	_, err := NewLogger(config.LoggerConfig{Level: "loud"})
	assert.Error(t, err)

	_, err = NewLogger(config.LoggerConfig{Level: "info", Encoding: "xml"})
	assert.Error(t, err)
}
