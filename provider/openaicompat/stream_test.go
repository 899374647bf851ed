package openaicompat

import (
	"context"
	"strings"
	"testing"

	mentor "github.com/dsalab/mentor"
)

func collectStream(t *testing.T, sse string) (mentor.ChatResponse, []mentor.StreamEvent) {
	t.Helper()

	ch := make(chan mentor.StreamEvent, 64)
	resp, err := StreamSSE(context.Background(), strings.NewReader(sse), ch)
	if err != nil {
		t.Fatalf("StreamSSE returned error: %v", err)
	}

	var events []mentor.StreamEvent
	for ev := range ch {
		events = append(events, ev)
	}
	return resp, events
}

func TestStreamSSE_TextDeltas(t *testing.T) {
	sse := `data: {"choices":[{"delta":{"content":"Hel"}}]}
data: {"choices":[{"delta":{"content":"lo"}}]}
data: [DONE]
`
	resp, events := collectStream(t, sse)

	if resp.Content != "Hello" {
		t.Errorf("Content = %q, want Hello", resp.Content)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	for _, ev := range events {
		if ev.Type != mentor.EventChunk {
			t.Errorf("event type = %q, want chunk", ev.Type)
		}
	}
}

func TestStreamSSE_ToolCallFragments(t *testing.T) {
	sse := `data: {"choices":[{"delta":{"tool_calls":[{"index":0,"id":"call_9","function":{"name":"run_code","arguments":"{\"co"}}]}}]}
data: {"choices":[{"delta":{"tool_calls":[{"index":0,"function":{"arguments":"de\":\"1+1\"}"}}]}}]}
data: [DONE]
`
	resp, _ := collectStream(t, sse)

	if len(resp.ToolCalls) != 1 {
		t.Fatalf("expected 1 tool call, got %d", len(resp.ToolCalls))
	}
	tc := resp.ToolCalls[0]
	if tc.ID != "call_9" || tc.Name != "run_code" {
		t.Errorf("unexpected call: %+v", tc)
	}
	if string(tc.Args) != `{"code":"1+1"}` {
		t.Errorf("Args = %s", tc.Args)
	}
}

func TestStreamSSE_UsageOnlyChunk(t *testing.T) {
	sse := `data: {"choices":[{"delta":{"content":"ok"}}]}
data: {"choices":[],"usage":{"prompt_tokens":8,"completion_tokens":1}}
data: [DONE]
`
	resp, _ := collectStream(t, sse)

	if resp.Usage.InputTokens != 8 || resp.Usage.OutputTokens != 1 {
		t.Errorf("Usage = %+v", resp.Usage)
	}
}

func TestStreamSSE_SkipsMalformedChunks(t *testing.T) {
	sse := `data: {broken json
data: {"choices":[{"delta":{"content":"fine"}}]}
data: [DONE]
`
	resp, _ := collectStream(t, sse)

	if resp.Content != "fine" {
		t.Errorf("Content = %q", resp.Content)
	}
}
