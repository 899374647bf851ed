package mentor

import "encoding/json"

// StreamEventType identifies the kind of streaming event.
type StreamEventType string

const (
	// EventChunk carries a fragment of assistant text.
	EventChunk StreamEventType = "chunk"
	// EventToolStart signals a tool is about to be invoked.
	EventToolStart StreamEventType = "tool_start"
	// EventToolEnd carries the raw output of a completed tool call.
	EventToolEnd StreamEventType = "tool_end"
	// EventError reports a cycle-level failure (model call, transport).
	EventError StreamEventType = "error"
)

// StreamEvent is a typed event emitted during a conversation cycle.
// Consumers receive these on the channel passed to ProcessStream, in the
// exact order the cycle produces them.
type StreamEvent struct {
	Type StreamEventType `json:"type"`
	// Content carries the text fragment (chunk), tool output (tool_end), or
	// error message (error).
	Content string `json:"content,omitempty"`
	// Tool is the tool name (tool_start, tool_end).
	Tool string `json:"tool_name,omitempty"`
	// CallID links tool_start/tool_end pairs to the assistant's request.
	CallID string `json:"call_id,omitempty"`
	// Input carries the structured tool arguments (tool_start only).
	Input json.RawMessage `json:"tool_input,omitempty"`
}
