// Package provider defines the adapter contract shared by the model
// backends and the plumbing they have in common: the pending tool call
// accumulator, tool dispatch event emission and upstream rate limiting.
// Each adapter translates its provider wire protocol into stream.Events on
// a channel it owns and closes after the terminal event.
package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"veltris.dev/codex/chat"
	"veltris.dev/codex/stream"
	"veltris.dev/codex/tools"
)

type (
	// Streamer is the contract every model adapter implements. Stream returns
	// a receive-only channel of normalized events; the channel is closed after
	// a done or terminal error event. Cancelling ctx stops upstream
	// consumption and releases the goroutine feeding the channel.
	Streamer interface {
		// Name identifies the adapter in logs and health reports.
		Name() string
		// Stream runs one model turn for the request.
		Stream(ctx context.Context, req *chat.Request) <-chan stream.Event
		// GenerateText issues a single non-streaming completion. Used by the
		// LLM-assisted tools (docgen, codegen, filemod).
		GenerateText(ctx context.Context, prompt string) (string, error)
		// Available probes whether the backend is reachable right now.
		Available(ctx context.Context) bool
	}

	// ToolDispatcher executes validated tool invocations. Satisfied by
	// *tools.Dispatcher; narrowed so adapter tests can substitute a recorder.
	ToolDispatcher interface {
		Dispatch(ctx context.Context, name string, params map[string]any, chatCtx *chat.Context) tools.Envelope
	}

	// Settings carries the per-request model knobs shared by all adapters.
	Settings struct {
		Temperature float64
		MaxTokens   int
	}

	// Call accumulates one tool invocation that the upstream streams as a
	// name followed by raw argument fragments. Fragments are concatenated
	// byte for byte and materialized once, when the upstream signals the
	// call is complete.
	Call struct {
		// ID is the provider-assigned call identifier, when the protocol has
		// one. Synthesized on paths that do not.
		ID   string
		Name string

		fragments []string
	}
)

// Append records one raw argument fragment.
func (c *Call) Append(fragment string) {
	c.fragments = append(c.fragments, fragment)
}

// Raw returns the accumulated argument text, exactly as received.
func (c *Call) Raw() string {
	return strings.Join(c.fragments, "")
}

// HasArguments reports whether any argument text arrived.
func (c *Call) HasArguments() bool {
	return c.Raw() != ""
}

// Input materializes the accumulated fragments as a parameter map. A call
// with no argument text yields an empty map, not an error: some models emit
// tool calls with no input at all.
func (c *Call) Input() (map[string]any, error) {
	raw := strings.TrimSpace(c.Raw())
	if raw == "" {
		return map[string]any{}, nil
	}
	var params map[string]any
	if err := json.Unmarshal([]byte(raw), &params); err != nil {
		return nil, fmt.Errorf("parse arguments for tool %s: %w", c.Name, err)
	}
	return params, nil
}

// HealthCache memoizes an availability probe for a short period so frequent
// health requests do not hammer the upstream.
type HealthCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	checked time.Time
	ok      bool
}

// NewHealthCache returns a cache that re-probes at most once per ttl.
func NewHealthCache(ttl time.Duration) *HealthCache {
	return &HealthCache{ttl: ttl}
}

// Check returns the cached probe outcome, running probe only when the cached
// value has expired.
func (h *HealthCache) Check(ctx context.Context, probe func(context.Context) bool) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.checked.IsZero() && time.Since(h.checked) < h.ttl {
		return h.ok
	}
	h.ok = probe(ctx)
	h.checked = time.Now()
	return h.ok
}

// Send delivers an event unless the request context is cancelled first.
// Adapters use it so a disconnected client never blocks the upstream read
// loop.
func Send(ctx context.Context, out chan<- stream.Event, ev stream.Event) bool {
	select {
	case out <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

// RunTool executes a fully materialized tool call and emits the outcome:
// tool_result followed by tool_status completed on success, tool_status
// failed otherwise. The executing status is emitted by the adapter when the
// call starts, before arguments finish arriving.
func RunTool(ctx context.Context, d ToolDispatcher, name string, params map[string]any, chatCtx *chat.Context, emit func(stream.Event) bool) {
	env := d.Dispatch(ctx, name, params, chatCtx)
	if !env.Success {
		emit(stream.Status(name, stream.ToolFailed))
		return
	}
	if !emit(stream.Result(name, env.Result)) {
		return
	}
	emit(stream.Status(name, stream.ToolCompleted))
}
