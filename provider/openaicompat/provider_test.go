package openaicompat

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	mentor "github.com/dsalab/mentor"
)

func TestProvider_Chat(t *testing.T) {
	var gotAuth string
	var gotBody ChatRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"hello"}}],"usage":{"prompt_tokens":5,"completion_tokens":1}}`))
	}))
	defer srv.Close()

	p := NewProvider("sk-test", "gpt-test", srv.URL)
	resp, err := p.Chat(context.Background(), mentor.ChatRequest{
		Messages: []mentor.ChatMessage{{Role: "user", Content: "hi"}},
	})
	if err != nil {
		t.Fatalf("Chat returned error: %v", err)
	}

	if gotAuth != "Bearer sk-test" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotBody.Model != "gpt-test" {
		t.Errorf("Model = %q", gotBody.Model)
	}
	if resp.Content != "hello" {
		t.Errorf("Content = %q", resp.Content)
	}
	if resp.Usage.InputTokens != 5 {
		t.Errorf("Usage = %+v", resp.Usage)
	}
}

func TestProvider_ChatHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "3")
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":"rate limited"}`))
	}))
	defer srv.Close()

	p := NewProvider("k", "m", srv.URL)
	_, err := p.Chat(context.Background(), mentor.ChatRequest{
		Messages: []mentor.ChatMessage{{Role: "user", Content: "hi"}},
	})

	var httpErr *mentor.ErrHTTP
	if !errors.As(err, &httpErr) {
		t.Fatalf("err = %v, want *ErrHTTP", err)
	}
	if httpErr.Status != http.StatusTooManyRequests {
		t.Errorf("Status = %d", httpErr.Status)
	}
	if httpErr.RetryAfter != 3*time.Second {
		t.Errorf("RetryAfter = %v, want 3s", httpErr.RetryAfter)
	}
}

func TestProvider_ChatStream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body ChatRequest
		json.NewDecoder(r.Body).Decode(&body)
		if !body.Stream {
			t.Error("expected stream: true in request body")
		}
		if body.StreamOptions == nil || !body.StreamOptions.IncludeUsage {
			t.Error("expected stream_options.include_usage")
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Write([]byte("data: {\"choices\":[{\"delta\":{\"content\":\"streamed\"}}]}\n"))
		w.Write([]byte("data: [DONE]\n"))
	}))
	defer srv.Close()

	p := NewProvider("k", "m", srv.URL)
	ch := make(chan mentor.StreamEvent, 8)
	resp, err := p.ChatStream(context.Background(), mentor.ChatRequest{
		Messages: []mentor.ChatMessage{{Role: "user", Content: "hi"}},
	}, ch)
	if err != nil {
		t.Fatalf("ChatStream returned error: %v", err)
	}

	var streamed string
	for ev := range ch {
		streamed += ev.Content
	}
	if streamed != "streamed" || resp.Content != "streamed" {
		t.Errorf("streamed = %q, resp.Content = %q", streamed, resp.Content)
	}
}

func TestProvider_StreamErrorClosesChannel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	p := NewProvider("k", "m", srv.URL)
	ch := make(chan mentor.StreamEvent, 8)
	_, err := p.ChatStream(context.Background(), mentor.ChatRequest{
		Messages: []mentor.ChatMessage{{Role: "user", Content: "hi"}},
	}, ch)
	if err == nil {
		t.Fatal("expected error for 500 response")
	}

	// Channel must be closed so consumers do not block.
	if _, open := <-ch; open {
		t.Error("channel left open after stream error")
	}
}

func TestProvider_Name(t *testing.T) {
	p := NewProvider("k", "m", "http://x")
	if p.Name() != "openai" {
		t.Errorf("Name = %q", p.Name())
	}

	p = NewProvider("k", "m", "http://x", WithName("ollama"))
	if p.Name() != "ollama" {
		t.Errorf("Name = %q", p.Name())
	}
}
