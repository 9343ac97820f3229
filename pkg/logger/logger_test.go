package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]Level{
		"debug":   LevelDebug,
		" INFO ":  LevelInfo,
		"warning": LevelWarn,
		"error":   LevelError,
		"fatal":   LevelFatal,
		"chatty":  LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), in)
	}
	assert.Equal(t, "WARN", LevelWarn.String())
}

func TestNew_JSONOutput(t *testing.T) {
	var buf bytes.Buffer
	log := New(Options{Output: &buf, Level: LevelInfo, Format: "json"})

	log.Debug("hidden")
	log.With(Component("mirror")).Warn("store write failed",
		UserID("42"),
		StoreDriver("mongo"),
		Err(errors.New("timeout")),
	)
	require.NoError(t, log.Sync())

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "WARN", entry["level"])
	assert.Equal(t, "store write failed", entry["message"])
	assert.Equal(t, "mirror", entry["component"])
	assert.Equal(t, "42", entry["user_id"])
	assert.Equal(t, "mongo", entry["store_driver"])
	assert.Equal(t, "timeout", entry["error"])
}

func TestNew_ConsoleOutput(t *testing.T) {
	var buf bytes.Buffer
	log := New(Options{Output: &buf, Level: LevelDebug, Format: "console"})

	log.Infof("seeded %d users", 2)
	assert.Contains(t, buf.String(), "INFO")
	assert.Contains(t, buf.String(), "seeded 2 users")
}

func TestContextPropagation(t *testing.T) {
	var buf bytes.Buffer
	log := New(Options{Output: &buf}).WithRequestID("req-1")

	ctx := WithContext(context.Background(), log)
	FromContext(ctx).Info("handled")

	assert.Contains(t, buf.String(), `"request_id":"req-1"`)
	assert.NotNil(t, FromContext(context.Background()))
}

func TestNop(t *testing.T) {
	log := Nop()
	log.Error("ignored", Err(errors.New("boom")))
	assert.NotNil(t, log.Zap())
}
