package server

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dsalab/mentor"
)

// scriptedProvider replays canned responses in order.
type scriptedProvider struct {
	responses []mentor.ChatResponse
	calls     int
}

func (p *scriptedProvider) Chat(ctx context.Context, req mentor.ChatRequest) (mentor.ChatResponse, error) {
	if p.calls >= len(p.responses) {
		return mentor.ChatResponse{Content: "done"}, nil
	}
	resp := p.responses[p.calls]
	p.calls++
	return resp, nil
}

func (p *scriptedProvider) ChatStream(ctx context.Context, req mentor.ChatRequest, ch chan<- mentor.StreamEvent) (mentor.ChatResponse, error) {
	close(ch)
	return p.Chat(ctx, req)
}

func (p *scriptedProvider) Name() string { return "scripted" }

type echoTool struct{}

func (echoTool) Definitions() []mentor.ToolDefinition {
	return []mentor.ToolDefinition{{
		Name:        "echo",
		Description: "Echoes its input.",
		Parameters:  json.RawMessage(`{"type":"object","properties":{"text":{"type":"string"}}}`),
	}}
}

func (echoTool) Execute(ctx context.Context, name string, args json.RawMessage) (mentor.ToolResult, error) {
	var in struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(args, &in); err != nil {
		return mentor.ToolResult{Error: err.Error()}, nil
	}
	return mentor.ToolResult{Content: in.Text}, nil
}

func newTestServer(t *testing.T, p mentor.Provider, opts ...Option) *httptest.Server {
	t.Helper()
	m := mentor.New(p, mentor.WithTools(echoTool{}))
	ts := httptest.NewServer(New(m, opts...).Handler())
	t.Cleanup(ts.Close)
	return ts
}

func streamEvents(t *testing.T, ts *httptest.Server, body string) []mentor.StreamEvent {
	t.Helper()
	resp, err := http.Post(ts.URL+"/chat/stream", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST /chat/stream: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/x-ndjson" {
		t.Fatalf("Content-Type = %q, want application/x-ndjson", ct)
	}

	var events []mentor.StreamEvent
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var ev mentor.StreamEvent
		if err := json.Unmarshal([]byte(line), &ev); err != nil {
			t.Fatalf("frame %q: %v", line, err)
		}
		events = append(events, ev)
	}
	return events
}

func TestChatStream_RelaysEventsInOrder(t *testing.T) {
	p := &scriptedProvider{responses: []mentor.ChatResponse{
		{ToolCalls: []mentor.ToolCall{{
			ID:   "call_1",
			Name: "echo",
			Args: json.RawMessage(`{"text":"hi"}`),
		}}},
		{Content: "the answer"},
	}}
	ts := newTestServer(t, p)

	events := streamEvents(t, ts, `{"content":"run echo"}`)
	if len(events) != 3 {
		t.Fatalf("got %d events, want 3: %+v", len(events), events)
	}
	if events[0].Type != mentor.EventToolStart || events[0].Tool != "echo" {
		t.Errorf("events[0] = %+v, want tool_start for echo", events[0])
	}
	if events[1].Type != mentor.EventToolEnd || events[1].Content != "hi" {
		t.Errorf("events[1] = %+v, want tool_end with output", events[1])
	}
	if events[1].CallID != events[0].CallID {
		t.Errorf("call_id mismatch: start %q, end %q", events[0].CallID, events[1].CallID)
	}
	if events[2].Type != mentor.EventChunk || events[2].Content != "the answer" {
		t.Errorf("events[2] = %+v, want final chunk", events[2])
	}
}

func TestChatStream_EmptyContent(t *testing.T) {
	p := &scriptedProvider{}
	ts := newTestServer(t, p)

	events := streamEvents(t, ts, `{"content":""}`)
	if len(events) != 1 || events[0].Type != mentor.EventError {
		t.Fatalf("got %+v, want a single error event", events)
	}
	if p.calls != 0 {
		t.Errorf("provider called %d times for empty content, want 0", p.calls)
	}
}

func TestChatStream_InvalidJSON(t *testing.T) {
	ts := newTestServer(t, &scriptedProvider{})

	resp, err := http.Post(ts.URL+"/chat/stream", "application/json", strings.NewReader("{not json"))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	if body["error"] == "" {
		t.Error("error body missing error message")
	}
}

func TestChatStream_PacingSpacesFrames(t *testing.T) {
	p := &scriptedProvider{responses: []mentor.ChatResponse{
		{ToolCalls: []mentor.ToolCall{{
			ID:   "call_1",
			Name: "echo",
			Args: json.RawMessage(`{"text":"x"}`),
		}}},
		{Content: "ok"},
	}}
	ts := newTestServer(t, p, WithPaceDelay(20*time.Millisecond))

	start := time.Now()
	events := streamEvents(t, ts, `{"content":"go"}`)
	elapsed := time.Since(start)

	if len(events) != 3 {
		t.Fatalf("got %d events, want 3", len(events))
	}
	// First frame is immediate; the two that follow each wait one interval.
	if elapsed < 40*time.Millisecond {
		t.Errorf("stream finished in %v, want at least 40ms of pacing", elapsed)
	}
}

func TestChatStream_SessionsPersistAcrossRequests(t *testing.T) {
	p := &scriptedProvider{responses: []mentor.ChatResponse{
		{Content: "first"},
		{Content: "second"},
	}}
	m := mentor.New(p)
	ts := httptest.NewServer(New(m).Handler())
	t.Cleanup(ts.Close)

	streamEvents(t, ts, `{"content":"one","session_id":"s1"}`)
	streamEvents(t, ts, `{"content":"two","session_id":"s1"}`)

	hist := m.History("s1")
	if len(hist) != 4 {
		t.Fatalf("history length = %d, want 4", len(hist))
	}
	if hist[3].Content != "second" {
		t.Errorf("last message = %q, want %q", hist[3].Content, "second")
	}
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, &scriptedProvider{})

	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["status"] != "ready" {
		t.Errorf("status = %q, want ready", body["status"])
	}
}

func TestRoot(t *testing.T) {
	ts := newTestServer(t, &scriptedProvider{})

	resp, err := http.Get(ts.URL + "/")
	if err != nil {
		t.Fatalf("GET /: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
}
