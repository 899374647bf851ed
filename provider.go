package mentor

import "context"

// Provider abstracts the LLM backend. It is treated as opaque, remote, and
// fallible: callers must tolerate errors without corrupting local state.
type Provider interface {
	// Chat sends a request and returns a complete response. When req.Tools is
	// non-empty the response may carry tool calls.
	Chat(ctx context.Context, req ChatRequest) (ChatResponse, error)
	// ChatStream streams text deltas into ch as EventChunk values, then
	// returns the accumulated response. Implementations close ch when
	// streaming completes or fails.
	ChatStream(ctx context.Context, req ChatRequest, ch chan<- StreamEvent) (ChatResponse, error)
	// Name returns the provider name (e.g. "gemini", "openai").
	Name() string
}

// Complete sends a single-prompt request with no tools and returns the text
// response. Advisory tools use this for their one-shot delegations.
func Complete(ctx context.Context, p Provider, prompt string) (string, error) {
	resp, err := p.Chat(ctx, ChatRequest{Messages: []ChatMessage{UserMessage(prompt)}})
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}
