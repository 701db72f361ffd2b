package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/pmsterm/internal/model"
)

func TestFromWriter_ComponentAndLevel(t *testing.T) {
	var buf bytes.Buffer
	l := Component(FromWriter(&buf, zerolog.WarnLevel), "sync")

	l.Info().Msg("hidden")
	require.Zero(t, buf.Len())

	l.Warn().Msg("refresh failed")
	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "sync", line["component"])
	assert.Equal(t, "refresh failed", line["message"])
	assert.Contains(t, line, "time")
}

func TestNew_WritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "pmsterm.log")

	l, closeLog, err := New(model.LogConfig{Level: "debug", Path: path})
	require.NoError(t, err)
	l.Debug().Str("board", "b1").Msg("loaded")
	require.NoError(t, closeLog())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"board":"b1"`)
}

func TestNew_EmptyPathDisables(t *testing.T) {
	_, closeLog, err := New(model.LogConfig{Level: "info"})
	require.NoError(t, err)
	assert.NoError(t, closeLog())
}

func TestParseLevel(t *testing.T) {
	level, err := ParseLevel("")
	require.NoError(t, err)
	assert.Equal(t, zerolog.InfoLevel, level)

	level, err = ParseLevel(" WARN ")
	require.NoError(t, err)
	assert.Equal(t, zerolog.WarnLevel, level)

	_, err = ParseLevel("loud")
	assert.Error(t, err)
}
