package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/baechuer/real-time-ressys/pkg/requestctx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitWithWriter_JSON(t *testing.T) {
	t.Setenv("LOG_FORMAT", "json")
	t.Setenv("LOG_LEVEL", "warn")

	var buf bytes.Buffer
	InitWithWriter(&buf)

	Log.Info().Msg("dropped")
	assert.Zero(t, buf.Len())

	ctx := requestctx.WithRequestID(context.Background(), "req-42")
	Ctx(ctx).Warn().Msg("kept")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "kept", line["message"])
	assert.Equal(t, "req-42", line["request_id"])
}

func TestInitWithWriter_BadLevelFallsBackToInfo(t *testing.T) {
	t.Setenv("LOG_FORMAT", "json")
	t.Setenv("LOG_LEVEL", "loud")

	var buf bytes.Buffer
	InitWithWriter(&buf)

	Log.Debug().Msg("dropped")
	Log.Info().Msg("kept")
	assert.Contains(t, buf.String(), "kept")
	assert.NotContains(t, buf.String(), "dropped")
}
