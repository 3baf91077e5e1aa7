// Package stream defines the normalized event vocabulary shared by all
// provider adapters and the chat orchestrator. Adapters translate their
// provider-specific wire formats into Events; the orchestrator forwards them
// verbatim to the client as server-sent messages.
package stream

import (
	"fmt"
	"time"
)

// EventType discriminates the event variants on the wire. Consumers must
// treat unknown types as forward-compatible no-ops.
type EventType string

// Well-known event types.
const (
	// EventTypeAIChunk carries an incremental fragment of assistant text.
	EventTypeAIChunk EventType = "ai_chunk"
	// EventTypeToolStatus marks a tool lifecycle transition.
	EventTypeToolStatus EventType = "tool_status"
	// EventTypeToolResult carries the payload returned by a tool invocation.
	EventTypeToolResult EventType = "tool_result"
	// EventTypeError reports a terminal or recoverable failure.
	EventTypeError EventType = "error"
	// EventTypeDone marks successful stream completion. Nothing follows it.
	EventTypeDone EventType = "done"
)

// ToolStatus is the lifecycle state reported in tool_status events.
type ToolStatus string

// Tool lifecycle states.
const (
	ToolExecuting ToolStatus = "executing"
	ToolCompleted ToolStatus = "completed"
	ToolFailed    ToolStatus = "failed"
)

// Event is the single normalized stream event. Exactly the fields relevant
// to Type are populated; the rest are omitted from the wire encoding. The
// timestamp is assigned in milliseconds at emission time, so several events
// produced from one upstream chunk may share a value, but timestamps never
// decrease within one stream.
type Event struct {
	Type      EventType  `json:"type"`
	Timestamp int64      `json:"timestamp"`
	Content   string     `json:"content,omitempty"`
	Tool      string     `json:"tool,omitempty"`
	Status    ToolStatus `json:"status,omitempty"`
	Result    any        `json:"result,omitempty"`
	Error     string     `json:"error,omitempty"`
}

// Terminal reports whether no further events may follow this one. Error
// events are terminal only when the producing adapter ends the stream with
// them; tool-level errors mid-stream are not. This helper classifies done
// events, which are terminal in every protocol.
func (e Event) Terminal() bool {
	return e.Type == EventTypeDone
}

// now is stubbed in tests to exercise timestamp ordering deterministically.
var now = func() int64 { return time.Now().UnixMilli() }

// Text returns an ai_chunk event for one assistant text fragment.
func Text(content string) Event {
	return Event{Type: EventTypeAIChunk, Timestamp: now(), Content: content}
}

// Status returns a tool_status event for the given lifecycle transition.
func Status(tool string, status ToolStatus) Event {
	return Event{Type: EventTypeToolStatus, Timestamp: now(), Tool: tool, Status: status}
}

// Result returns a tool_result event carrying an opaque tool payload.
func Result(tool string, result any) Event {
	return Event{Type: EventTypeToolResult, Timestamp: now(), Tool: tool, Result: result}
}

// Errorf returns an error event with a formatted message.
func Errorf(format string, args ...any) Event {
	return Event{Type: EventTypeError, Timestamp: now(), Error: fmt.Sprintf(format, args...)}
}

// Done returns the terminal success marker.
func Done() Event {
	return Event{Type: EventTypeDone, Timestamp: now()}
}
