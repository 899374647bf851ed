package advisor

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	mentor "github.com/dsalab/mentor"
)

// stubProvider records the last prompt and returns a canned reply.
type stubProvider struct {
	lastPrompt string
	reply      string
	err        error
}

func (s *stubProvider) Chat(_ context.Context, req mentor.ChatRequest) (mentor.ChatResponse, error) {
	if len(req.Messages) > 0 {
		s.lastPrompt = req.Messages[len(req.Messages)-1].Content
	}
	if s.err != nil {
		return mentor.ChatResponse{}, s.err
	}
	return mentor.ChatResponse{Content: s.reply}, nil
}

func (s *stubProvider) ChatStream(ctx context.Context, req mentor.ChatRequest, ch chan<- mentor.StreamEvent) (mentor.ChatResponse, error) {
	defer close(ch)
	return s.Chat(ctx, req)
}

func (s *stubProvider) Name() string { return "stub" }

func TestHintPromptDoesNotSolve(t *testing.T) {
	p := &stubProvider{reply: "think about two pointers"}
	tool := New(p)

	res, err := tool.Execute(context.Background(), "generate_hint", json.RawMessage(`{"question":"reverse a linked list"}`))
	if err != nil {
		t.Fatal(err)
	}
	if res.Content != "think about two pointers" {
		t.Errorf("Content = %q", res.Content)
	}
	if !strings.Contains(p.lastPrompt, "without solving it") {
		t.Errorf("prompt = %q, want the no-solution instruction", p.lastPrompt)
	}
	if !strings.Contains(p.lastPrompt, "reverse a linked list") {
		t.Errorf("prompt = %q, want the problem statement", p.lastPrompt)
	}
}

func TestTestCasesPrompt(t *testing.T) {
	p := &stubProvider{reply: "cases"}
	tool := New(p)

	if _, err := tool.Execute(context.Background(), "generate_test_cases", json.RawMessage(`{"problem":"two sum"}`)); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(p.lastPrompt, "3 test cases") {
		t.Errorf("prompt = %q, want a 3-case request", p.lastPrompt)
	}
}

func TestComplexityPromptStructure(t *testing.T) {
	p := &stubProvider{reply: "O(n)"}
	tool := New(p)

	if _, err := tool.Execute(context.Background(), "complexity_analyzer", json.RawMessage(`{"code":"for i := range xs {}"}`)); err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"Time complexity", "Space complexity", "optimization"} {
		if !strings.Contains(p.lastPrompt, want) {
			t.Errorf("prompt missing %q:\n%s", want, p.lastPrompt)
		}
	}
}

func TestRecommendProblemsDefaults(t *testing.T) {
	p := &stubProvider{reply: "problems"}
	tool := New(p)

	if _, err := tool.Execute(context.Background(), "recommend_problems", json.RawMessage(`{"topic":"graphs"}`)); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(p.lastPrompt, `"medium"`) {
		t.Errorf("prompt = %q, want the default difficulty", p.lastPrompt)
	}
	if !strings.Contains(p.lastPrompt, `"graphs"`) {
		t.Errorf("prompt = %q, want the topic", p.lastPrompt)
	}
}

func TestProviderFailureBecomesToolError(t *testing.T) {
	p := &stubProvider{err: &mentor.ErrLLM{Provider: "stub", Message: "boom"}}
	tool := New(p)

	res, err := tool.Execute(context.Background(), "generate_hint", json.RawMessage(`{"question":"q"}`))
	if err != nil {
		t.Fatalf("delegation failure must surface as a tool error, got %v", err)
	}
	if res.Error == "" {
		t.Error("Error is empty, want a failure description")
	}
}

func TestMissingArgument(t *testing.T) {
	tool := New(&stubProvider{})

	res, err := tool.Execute(context.Background(), "bug_hint", json.RawMessage(`{}`))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(res.Error, "required") {
		t.Errorf("Error = %q, want a missing-argument message", res.Error)
	}
}

func TestUnknownName(t *testing.T) {
	tool := New(&stubProvider{})

	_, err := tool.Execute(context.Background(), "nope", nil)
	var notFound *mentor.ErrToolNotFound
	if !errors.As(err, &notFound) {
		t.Fatalf("err = %v, want *ErrToolNotFound", err)
	}
}
