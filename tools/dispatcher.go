package tools

import (
	"context"
	"errors"
	"fmt"

	"goa.design/clue/log"

	"veltris.dev/codex/chat"
)

// WorkingDirectoryKey is the reserved parameter under which the chat
// context's working directory is merged before validation, so
// filesystem-touching tools can resolve relative paths without every call
// site repeating that wiring.
const WorkingDirectoryKey = "working_directory"

// ErrUnknownTool marks dispatch failures caused by a tool name absent from
// the registry.
var ErrUnknownTool = errors.New("unknown tool")

type (
	// Envelope is the uniform dispatch outcome. Exactly one of Result or
	// Error is populated, discriminated by Success.
	Envelope struct {
		Success bool   `json:"success"`
		Tool    string `json:"tool_name"`
		Result  any    `json:"result,omitempty"`
		Error   string `json:"error,omitempty"`
	}

	// Dispatcher validates and executes tool invocations against an immutable
	// registry. It holds no per-call state and is safe for concurrent use.
	Dispatcher struct {
		registry *Registry
	}
)

// NewDispatcher returns a dispatcher bound to the given registry.
func NewDispatcher(registry *Registry) *Dispatcher {
	return &Dispatcher{registry: registry}
}

// Registry exposes the dispatcher's tool catalogue for provider
// advertisement and discovery endpoints.
func (d *Dispatcher) Registry() *Registry {
	return d.registry
}

// Dispatch looks up the tool, merges the ambient working directory, validates
// parameters against the tool's schema and invokes the handler. All failure
// modes are reported as failed envelopes; dispatch itself never panics the
// owning stream.
func (d *Dispatcher) Dispatch(ctx context.Context, name string, params map[string]any, chatCtx *chat.Context) Envelope {
	e, ok := d.registry.lookup(name)
	if !ok {
		return failure(name, fmt.Errorf("%w: %s", ErrUnknownTool, name))
	}

	merged := make(map[string]any, len(params)+1)
	for k, v := range params {
		merged[k] = v
	}
	if chatCtx != nil && chatCtx.WorkingDirectory != "" {
		merged[WorkingDirectoryKey] = chatCtx.WorkingDirectory
	}

	if err := e.schema.Validate(toValidatable(merged)); err != nil {
		log.Debugf(ctx, "tool %s rejected: %v", name, err)
		return failure(name, fmt.Errorf("parameter validation failed: %v", err))
	}

	result, err := e.handler(ctx, merged)
	if err != nil {
		log.Errorf(ctx, err, "tool %s failed", name)
		return failure(name, fmt.Errorf("tool execution failed: %v", err))
	}
	return Envelope{Success: true, Tool: name, Result: result}
}

func failure(name string, err error) Envelope {
	return Envelope{Success: false, Tool: name, Error: err.Error()}
}

// toValidatable normalizes handler-facing parameter maps into the plain JSON
// value shapes the schema validator expects. Parameters decoded from request
// bodies already have that shape; values constructed in Go code (typed
// slices, ints) are round-tripped lazily only when needed.
func toValidatable(params map[string]any) any {
	out := make(map[string]any, len(params))
	for k, v := range params {
		out[k] = normalizeValue(v)
	}
	return out
}

func normalizeValue(v any) any {
	switch t := v.(type) {
	case nil, bool, string, float64:
		return t
	case map[string]any:
		return toValidatable(t)
	case []any:
		items := make([]any, len(t))
		for i, e := range t {
			items[i] = normalizeValue(e)
		}
		return items
	case int:
		return float64(t)
	case int64:
		return float64(t)
	case float32:
		return float64(t)
	case []string:
		items := make([]any, len(t))
		for i, s := range t {
			items[i] = s
		}
		return items
	case []map[string]any:
		items := make([]any, len(t))
		for i, m := range t {
			items[i] = normalizeValue(m)
		}
		return items
	default:
		return t
	}
}
