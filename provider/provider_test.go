package provider

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"veltris.dev/codex/chat"
	"veltris.dev/codex/stream"
	"veltris.dev/codex/tools"
)

type recordingDispatcher struct {
	name   string
	params map[string]any
	env    tools.Envelope
}

func (d *recordingDispatcher) Dispatch(_ context.Context, name string, params map[string]any, _ *chat.Context) tools.Envelope {
	d.name = name
	d.params = params
	return d.env
}

func TestCallAccumulatesFragmentsExactly(t *testing.T) {
	call := &Call{ID: "c1", Name: "read_file"}
	call.Append(`{"absolute`)
	call.Append(`_path":"ma`)
	call.Append(`in.go","a":1}`)

	assert.Equal(t, `{"absolute_path":"main.go","a":1}`, call.Raw())
	params, err := call.Input()
	require.NoError(t, err)
	assert.Equal(t, "main.go", params["absolute_path"])
	assert.Equal(t, 1.0, params["a"])
}

func TestCallEmptyInputYieldsEmptyObject(t *testing.T) {
	call := &Call{Name: "list_directory"}
	assert.False(t, call.HasArguments())
	params, err := call.Input()
	require.NoError(t, err)
	assert.Empty(t, params)
}

func TestCallMalformedInput(t *testing.T) {
	call := &Call{Name: "read_file"}
	call.Append(`{"absolute_path":`)
	_, err := call.Input()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read_file")
}

func collect(t *testing.T, run func(emit func(stream.Event) bool)) []stream.Event {
	t.Helper()
	var events []stream.Event
	run(func(ev stream.Event) bool {
		events = append(events, ev)
		return true
	})
	return events
}

func TestRunToolSuccess(t *testing.T) {
	d := &recordingDispatcher{env: tools.Envelope{Success: true, Tool: "read_file", Result: map[string]any{"content": "x"}}}
	events := collect(t, func(emit func(stream.Event) bool) {
		RunTool(context.Background(), d, "read_file", map[string]any{"absolute_path": "a.go"}, nil, emit)
	})

	require.Len(t, events, 2)
	assert.Equal(t, stream.EventTypeToolResult, events[0].Type)
	assert.Equal(t, "read_file", events[0].Tool)
	assert.Equal(t, stream.EventTypeToolStatus, events[1].Type)
	assert.Equal(t, stream.ToolCompleted, events[1].Status)
	assert.Equal(t, "read_file", d.name)
	assert.Equal(t, "a.go", d.params["absolute_path"])
}

func TestRunToolFailureEmitsFailedStatusOnly(t *testing.T) {
	d := &recordingDispatcher{env: tools.Envelope{Success: false, Tool: "write_file", Error: "boom"}}
	events := collect(t, func(emit func(stream.Event) bool) {
		RunTool(context.Background(), d, "write_file", map[string]any{}, nil, emit)
	})

	require.Len(t, events, 1)
	assert.Equal(t, stream.EventTypeToolStatus, events[0].Type)
	assert.Equal(t, stream.ToolFailed, events[0].Status)
}

func TestSendStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	out := make(chan stream.Event) // unbuffered, nobody reads
	assert.False(t, Send(ctx, out, stream.Done()))
}

func TestLimiterDisabledNeverBlocks(t *testing.T) {
	var l *Limiter
	require.NoError(t, l.Wait(context.Background(), 1<<20))
	require.NoError(t, NewLimiter(0).Wait(context.Background(), 1<<20))
}

func TestLimiterAdmitsWithinBudget(t *testing.T) {
	l := NewLimiter(100_000)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, l.Wait(ctx, 300)) // ~600 tokens, well under burst
}

func TestEstimateTokens(t *testing.T) {
	assert.Equal(t, 500, estimateTokens(0))
	assert.Equal(t, 600, estimateTokens(300))
}
