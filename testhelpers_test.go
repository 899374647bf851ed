package mentor

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
)

// mockProvider replays a canned sequence of responses (or errors), one per
// Chat call. Shared by mentor_test.go and retry_test.go.
type mockProvider struct {
	name      string
	responses []ChatResponse
	errs      []error

	mu    sync.Mutex
	calls int
	// last request seen, for assertions on assembled messages.
	lastReq ChatRequest
}

func (p *mockProvider) Chat(_ context.Context, req ChatRequest) (ChatResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	i := p.calls
	p.calls++
	p.lastReq = req
	if i < len(p.errs) && p.errs[i] != nil {
		return ChatResponse{}, p.errs[i]
	}
	if i < len(p.responses) {
		return p.responses[i], nil
	}
	return ChatResponse{Content: "exhausted"}, nil
}

func (p *mockProvider) ChatStream(ctx context.Context, req ChatRequest, ch chan<- StreamEvent) (ChatResponse, error) {
	resp, err := p.Chat(ctx, req)
	if err == nil && resp.Content != "" {
		ch <- StreamEvent{Type: EventChunk, Content: resp.Content}
	}
	close(ch)
	return resp, err
}

func (p *mockProvider) Name() string {
	if p.name == "" {
		return "mock"
	}
	return p.name
}

func (p *mockProvider) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

// --- Tool mocks ---

type mockTool struct{}

func (mockTool) Definitions() []ToolDefinition {
	return []ToolDefinition{{Name: "greet", Description: "Say hello"}}
}

func (mockTool) Execute(_ context.Context, name string, _ json.RawMessage) (ToolResult, error) {
	return ToolResult{Content: "hello from " + name}, nil
}

type errTool struct{}

func (errTool) Definitions() []ToolDefinition {
	return []ToolDefinition{{Name: "fail", Description: "Always fails"}}
}

func (errTool) Execute(_ context.Context, _ string, _ json.RawMessage) (ToolResult, error) {
	return ToolResult{}, errors.New("tool broken")
}

type panicTool struct{}

func (panicTool) Definitions() []ToolDefinition {
	return []ToolDefinition{{Name: "explode", Description: "Panics"}}
}

func (panicTool) Execute(_ context.Context, _ string, _ json.RawMessage) (ToolResult, error) {
	panic("boom")
}

// echoArgsTool returns its raw arguments, for call-ID correlation tests.
type echoArgsTool struct{}

func (echoArgsTool) Definitions() []ToolDefinition {
	return []ToolDefinition{{Name: "echo", Description: "Echo args"}}
}

func (echoArgsTool) Execute(_ context.Context, _ string, args json.RawMessage) (ToolResult, error) {
	return ToolResult{Content: string(args)}, nil
}

// collectEvents drains a stream channel into a slice.
func collectEvents(ch <-chan StreamEvent) []StreamEvent {
	var events []StreamEvent
	for ev := range ch {
		events = append(events, ev)
	}
	return events
}
