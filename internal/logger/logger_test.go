package logger

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger_Prod(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(&buf, "prod", "warn")
	log.Info("hidden")
	log.Warn("shown", "step", 2)

	var line map[string]any
	require.NoError(t, sonic.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "shown", line["msg"])
	assert.EqualValues(t, 2, line["step"])
	assert.NotEmpty(t, line["time"])
}

func TestNewLogger_Levels(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(&buf, "dev", "debug")
	assert.True(t, log.Enabled(context.Background(), slog.LevelDebug))

	log = NewLogger(&buf, "dev", "bogus")
	assert.False(t, log.Enabled(context.Background(), slog.LevelDebug))
	assert.True(t, log.Enabled(context.Background(), slog.LevelInfo))
}
