package logging

import (
	"log/slog"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestSetup_SetsGlobalLevel(t *testing.T) {
	Setup(Config{Level: "debug"})
	assert.Equal(t, zerolog.DebugLevel, zerolog.GlobalLevel())

	Setup(Config{Level: "not-a-level"})
	assert.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())
}

func TestSlogLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, SlogLevel("trace"))
	assert.Equal(t, slog.LevelDebug, SlogLevel("debug"))
	assert.Equal(t, slog.LevelInfo, SlogLevel("info"))
	assert.Equal(t, slog.LevelWarn, SlogLevel("warn"))
	assert.Equal(t, slog.LevelError, SlogLevel("error"))
	assert.Equal(t, slog.LevelInfo, SlogLevel(""))
}
