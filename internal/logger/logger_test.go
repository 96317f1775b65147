package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromContext_AddsRequestAndUserID(t *testing.T) {
	var buf bytes.Buffer
	log = slog.New(newHandler("production", &buf, "debug"))

	ctx := WithUserID(WithRequestID(context.Background(), "req-1"), "user-1")
	CtxInfo(ctx, "limits resolved", "storage_limit", 100)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "req-1", entry["request_id"])
	assert.Equal(t, "user-1", entry["user_id"])
	assert.Equal(t, "limits resolved", entry["msg"])
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelWarn, parseLevel("WARN", slog.LevelInfo))
	assert.Equal(t, slog.LevelInfo, parseLevel("", slog.LevelInfo))
	assert.Equal(t, slog.LevelDebug, parseLevel("nonsense", slog.LevelDebug))
}

func TestWithAttrs_DoesNotLeakBetweenContexts(t *testing.T) {
	var buf bytes.Buffer
	log = slog.New(newHandler("production", &buf, "debug"))

	base := WithAttrs(context.Background(), "worker", "snapshots")
	project := WithAttrs(base, "project_id", "p1")
	CtxInfo(base, "tick")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "snapshots", entry["worker"])
	assert.NotContains(t, entry, "project_id")

	buf.Reset()
	CtxInfo(project, "calculated")
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "p1", entry["project_id"])
}
