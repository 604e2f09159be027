package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"trace", "trace"},
		{"debug", "debug"},
		{"info", "info"},
		{"warn", "warn"},
		{"warning", "warn"},
		{"error", "error"},
		{"", "info"},
		{"   nonsense   ", "info"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, parseLevel(c.in).String(), "parseLevel(%q)", c.in)
	}
}

func TestNew_JSONCarriesRunAndComponent(t *testing.T) {
	var buf bytes.Buffer
	l := New(Options{Level: "debug", Format: "json", Writer: &buf, RunID: "01TEST"})

	child := Named(l, "rank")
	child.Info().Int("n", 3).Msg("scored")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "01TEST", line["run"])
	assert.Equal(t, "rank", line["component"])
	assert.Equal(t, "scored", line["message"])
	assert.EqualValues(t, 3, line["n"])
}

func TestNew_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	l := New(Options{Level: "warn", Format: "json", Writer: &buf})

	l.Info().Msg("hidden")
	l.Warn().Msg("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestNew_ConsoleFormat(t *testing.T) {
	var buf bytes.Buffer
	l := New(Options{Format: "console", Writer: &buf})
	l.Info().Msg("hello")

	assert.Contains(t, buf.String(), "hello")
	assert.False(t, strings.HasPrefix(buf.String(), "{"))
}

func TestAutoFormatUsesJSONForBuffers(t *testing.T) {
	var buf bytes.Buffer
	l := New(Options{Format: "auto", Writer: &buf})
	l.Info().Msg("x")
	assert.True(t, strings.HasPrefix(buf.String(), "{"))
}

func TestNewRunID(t *testing.T) {
	a, b := NewRunID(), NewRunID()
	assert.NotEqual(t, a, b)
	_, err := ulid.Parse(a)
	assert.NoError(t, err)
}
