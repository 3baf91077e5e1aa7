package stream

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventConstructorsStampTimestamps(t *testing.T) {
	var tick int64
	restore := now
	now = func() int64 { tick++; return tick }
	defer func() { now = restore }()

	events := []Event{
		Text("hello"),
		Status("list_directory", ToolExecuting),
		Result("list_directory", map[string]any{"tree": []any{}}),
		Errorf("boom %d", 42),
		Done(),
	}
	var last int64
	for _, ev := range events {
		assert.GreaterOrEqual(t, ev.Timestamp, last)
		last = ev.Timestamp
	}
	assert.Equal(t, EventTypeAIChunk, events[0].Type)
	assert.Equal(t, "hello", events[0].Content)
	assert.Equal(t, ToolExecuting, events[1].Status)
	assert.Equal(t, "boom 42", events[3].Error)
	assert.True(t, events[4].Terminal())
	assert.False(t, events[3].Terminal())
}

func TestEventWireEncodingOmitsUnsetFields(t *testing.T) {
	data, err := json.Marshal(Text("hi"))
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(data, &m))
	assert.Equal(t, "ai_chunk", m["type"])
	assert.Equal(t, "hi", m["content"])
	assert.Contains(t, m, "timestamp")
	assert.NotContains(t, m, "tool")
	assert.NotContains(t, m, "status")
	assert.NotContains(t, m, "result")
	assert.NotContains(t, m, "error")
}

func TestStatusCarriesToolAndStatus(t *testing.T) {
	data, err := json.Marshal(Status("write_file", ToolFailed))
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(data, &m))
	assert.Equal(t, "tool_status", m["type"])
	assert.Equal(t, "write_file", m["tool"])
	assert.Equal(t, "failed", m["status"])
}
