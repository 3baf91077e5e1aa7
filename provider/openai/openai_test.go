package openai

import (
	"context"
	"testing"

	oa "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/pagination"
	"github.com/openai/openai-go/packages/ssestream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"veltris.dev/codex/chat"
	"veltris.dev/codex/provider"
	"veltris.dev/codex/stream"
	"veltris.dev/codex/tools"
)

// testDecoder feeds a fixed sequence of events to the ssestream.Stream.
type testDecoder struct {
	events []ssestream.Event
	i      int
	err    error
}

func (d *testDecoder) Event() ssestream.Event { return d.events[d.i-1] }

func (d *testDecoder) Next() bool {
	if d.err != nil || d.i >= len(d.events) {
		return false
	}
	d.i++
	return true
}

func (d *testDecoder) Close() error { return nil }
func (d *testDecoder) Err() error   { return d.err }

func chunkEvents(payloads ...string) []ssestream.Event {
	events := make([]ssestream.Event, 0, len(payloads))
	for _, p := range payloads {
		events = append(events, ssestream.Event{Data: []byte(p)})
	}
	return events
}

type fakeChat struct {
	dec    *testDecoder
	resp   *oa.ChatCompletion
	err    error
	params oa.ChatCompletionNewParams
}

func (f *fakeChat) New(_ context.Context, body oa.ChatCompletionNewParams, _ ...option.RequestOption) (*oa.ChatCompletion, error) {
	f.params = body
	return f.resp, f.err
}

func (f *fakeChat) NewStreaming(_ context.Context, body oa.ChatCompletionNewParams, _ ...option.RequestOption) *ssestream.Stream[oa.ChatCompletionChunk] {
	f.params = body
	return ssestream.NewStream[oa.ChatCompletionChunk](f.dec, nil)
}

type fakeModels struct{ err error }

func (f *fakeModels) List(context.Context, ...option.RequestOption) (*pagination.Page[oa.Model], error) {
	return nil, f.err
}

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

func newProvider(t *testing.T, fc *fakeChat, d provider.ToolDispatcher) *Provider {
	t.Helper()
	p, err := New(Options{
		Chat:       fc,
		Models:     &fakeModels{},
		Dispatcher: d,
		Tools: []tools.Descriptor{{
			Name:        "read_file",
			Description: "Read a file",
			Parameters:  tools.ObjectSchema(map[string]any{"absolute_path": map[string]any{"type": "string"}}, "absolute_path"),
		}},
		Settings: provider.Settings{Temperature: 0.7, MaxTokens: 4000},
	})
	require.NoError(t, err)
	return p
}

func drain(t *testing.T, ch <-chan stream.Event) []stream.Event {
	t.Helper()
	var events []stream.Event
	for ev := range ch {
		events = append(events, ev)
	}
	return events
}

func TestStreamTextAndDone(t *testing.T) {
	fc := &fakeChat{dec: &testDecoder{events: chunkEvents(
		`{"choices":[{"index":0,"delta":{"content":"Hello"}}]}`,
		`{"choices":[{"index":0,"delta":{"content":" world"}}]}`,
		`{"choices":[{"index":0,"delta":{},"finish_reason":"stop"}]}`,
	)}}
	p := newProvider(t, fc, &recordingDispatcher{})

	events := drain(t, p.Stream(context.Background(), &chat.Request{Message: "hi", Model: chat.ModelGPT4o}))

	require.Len(t, events, 3)
	assert.Equal(t, "Hello", events[0].Content)
	assert.Equal(t, " world", events[1].Content)
	assert.Equal(t, stream.EventTypeDone, events[2].Type)

	// System prompt, then the user message. No context block was supplied.
	assert.Len(t, fc.params.Messages, 2)
	assert.Len(t, fc.params.Tools, 1)
}

func TestStreamToolCallFragmentConcatenation(t *testing.T) {
	fc := &fakeChat{dec: &testDecoder{events: chunkEvents(
		`{"choices":[{"index":0,"delta":{"tool_calls":[{"index":0,"id":"call_1","type":"function","function":{"name":"read_file","arguments":""}}]}}]}`,
		`{"choices":[{"index":0,"delta":{"tool_calls":[{"index":0,"function":{"arguments":"{\"absolute"}}]}}]}`,
		`{"choices":[{"index":0,"delta":{"tool_calls":[{"index":0,"function":{"arguments":"_path\":\"main.go\"}"}}]}}]}`,
		`{"choices":[{"index":0,"delta":{},"finish_reason":"tool_calls"}]}`,
	)}}
	d := &recordingDispatcher{env: tools.Envelope{Success: true, Tool: "read_file", Result: map[string]any{"content": "ok"}}}
	p := newProvider(t, fc, d)

	events := drain(t, p.Stream(context.Background(), &chat.Request{Message: "read main.go", Model: chat.ModelGPT4o}))

	require.Len(t, events, 4)
	assert.Equal(t, stream.ToolExecuting, events[0].Status)
	assert.Equal(t, stream.EventTypeToolResult, events[1].Type)
	assert.Equal(t, stream.ToolCompleted, events[2].Status)
	assert.Equal(t, stream.EventTypeDone, events[3].Type)

	assert.Equal(t, "read_file", d.name)
	assert.Equal(t, map[string]any{"absolute_path": "main.go"}, d.params)
}

func TestStreamToolCallParseFailureContinues(t *testing.T) {
	fc := &fakeChat{dec: &testDecoder{events: chunkEvents(
		`{"choices":[{"index":0,"delta":{"tool_calls":[{"index":0,"id":"call_1","type":"function","function":{"name":"read_file","arguments":""}}]}}]}`,
		`{"choices":[{"index":0,"delta":{"tool_calls":[{"index":0,"function":{"arguments":"{\"absolute_path\":"}}]}}]}`,
		`{"choices":[{"index":0,"delta":{},"finish_reason":"tool_calls"}]}`,
		`{"choices":[{"index":0,"delta":{"content":"anyway"}}]}`,
	)}}
	d := &recordingDispatcher{}
	p := newProvider(t, fc, d)

	events := drain(t, p.Stream(context.Background(), &chat.Request{Message: "go", Model: chat.ModelGPT4o}))

	require.Len(t, events, 4)
	assert.Equal(t, stream.ToolExecuting, events[0].Status)
	assert.Equal(t, stream.EventTypeError, events[1].Type)
	assert.Contains(t, events[1].Error, "Tool execution failed")
	assert.Equal(t, "anyway", events[2].Content)
	assert.Equal(t, stream.EventTypeDone, events[3].Type)
	assert.Empty(t, d.name, "nothing should have been dispatched")
}

func TestStreamSecondCallStartReplacesPending(t *testing.T) {
	fc := &fakeChat{dec: &testDecoder{events: chunkEvents(
		`{"choices":[{"index":0,"delta":{"tool_calls":[{"index":0,"id":"call_1","type":"function","function":{"name":"read_file","arguments":"{\"absolute_path\":\"a\"}"}}]}}]}`,
		`{"choices":[{"index":0,"delta":{"tool_calls":[{"index":0,"id":"call_2","type":"function","function":{"name":"list_directory","arguments":""}}]}}]}`,
		`{"choices":[{"index":0,"delta":{"tool_calls":[{"index":0,"function":{"arguments":"{\"path\":\".\"}"}}]}}]}`,
		`{"choices":[{"index":0,"delta":{},"finish_reason":"tool_calls"}]}`,
	)}}
	d := &recordingDispatcher{env: tools.Envelope{Success: true, Tool: "list_directory"}}
	p := newProvider(t, fc, d)

	drain(t, p.Stream(context.Background(), &chat.Request{Message: "go", Model: chat.ModelGPT4o}))

	assert.Equal(t, "list_directory", d.name)
	assert.Equal(t, map[string]any{"path": "."}, d.params)
}

func TestStreamToolFailureEmitsFailedStatus(t *testing.T) {
	fc := &fakeChat{dec: &testDecoder{events: chunkEvents(
		`{"choices":[{"index":0,"delta":{"tool_calls":[{"index":0,"id":"call_1","type":"function","function":{"name":"read_file","arguments":"{\"absolute_path\":\"gone\"}"}}]}}]}`,
		`{"choices":[{"index":0,"delta":{},"finish_reason":"tool_calls"}]}`,
	)}}
	d := &recordingDispatcher{env: tools.Envelope{Success: false, Tool: "read_file", Error: "no such file"}}
	p := newProvider(t, fc, d)

	events := drain(t, p.Stream(context.Background(), &chat.Request{Message: "go", Model: chat.ModelGPT4o}))

	require.Len(t, events, 3)
	assert.Equal(t, stream.ToolExecuting, events[0].Status)
	assert.Equal(t, stream.ToolFailed, events[1].Status)
	assert.Equal(t, stream.EventTypeDone, events[2].Type)
}

func TestStreamUpstreamErrorIsTerminal(t *testing.T) {
	fc := &fakeChat{dec: &testDecoder{err: assert.AnError}}
	p := newProvider(t, fc, &recordingDispatcher{})

	events := drain(t, p.Stream(context.Background(), &chat.Request{Message: "go", Model: chat.ModelGPT4o}))

	require.Len(t, events, 1)
	assert.Equal(t, stream.EventTypeError, events[0].Type)
	assert.Contains(t, events[0].Error, "OpenAI API error")
}

func TestStreamIncludesContextMessage(t *testing.T) {
	fc := &fakeChat{dec: &testDecoder{events: chunkEvents(
		`{"choices":[{"index":0,"delta":{"content":"ok"}}]}`,
	)}}
	p := newProvider(t, fc, &recordingDispatcher{})

	req := &chat.Request{
		Message: "explain",
		Model:   chat.ModelGPT4o,
		Context: &chat.Context{FilePath: "main.go", CodeContent: "package main"},
	}
	drain(t, p.Stream(context.Background(), req))

	// System prompt, context block, user message.
	assert.Len(t, fc.params.Messages, 3)
}

func TestGenerateTextStripsFence(t *testing.T) {
	fc := &fakeChat{resp: &oa.ChatCompletion{Choices: []oa.ChatCompletionChoice{{
		Message: oa.ChatCompletionMessage{Content: "```go\nfunc main() {}\n```"},
	}}}}
	p := newProvider(t, fc, &recordingDispatcher{})

	text, err := p.GenerateText(context.Background(), "write main")
	require.NoError(t, err)
	assert.Equal(t, "func main() {}", text)
}

func TestGenerateTextError(t *testing.T) {
	fc := &fakeChat{err: assert.AnError}
	p := newProvider(t, fc, &recordingDispatcher{})

	_, err := p.GenerateText(context.Background(), "write main")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "OpenAI text generation error")
}

func TestAvailable(t *testing.T) {
	fc := &fakeChat{}
	p := newProvider(t, fc, &recordingDispatcher{})
	assert.True(t, p.Available(context.Background()))

	p2, err := New(Options{Chat: fc, Models: &fakeModels{err: assert.AnError}, Dispatcher: &recordingDispatcher{}})
	require.NoError(t, err)
	assert.False(t, p2.Available(context.Background()))
}

func TestStripFence(t *testing.T) {
	assert.Equal(t, "plain", stripFence("plain"))
	assert.Equal(t, "x = 1", stripFence("```python\nx = 1\n```"))
	assert.Equal(t, "x = 1", stripFence("```\nx = 1"))
}
