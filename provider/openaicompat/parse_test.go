package openaicompat

import (
	"testing"
)

func TestParseResponse_Content(t *testing.T) {
	resp := ChatResponse{
		Choices: []Choice{{
			Message: &ChoiceMessage{Role: "assistant", Content: "Try a hash map."},
		}},
		Usage: &Usage{PromptTokens: 10, CompletionTokens: 4},
	}

	out, err := ParseResponse(resp)
	if err != nil {
		t.Fatal(err)
	}
	if out.Content != "Try a hash map." {
		t.Errorf("Content = %q", out.Content)
	}
	if out.Usage.InputTokens != 10 || out.Usage.OutputTokens != 4 {
		t.Errorf("Usage = %+v", out.Usage)
	}
}

func TestParseResponse_Empty(t *testing.T) {
	out, err := ParseResponse(ChatResponse{})
	if err != nil {
		t.Fatal(err)
	}
	if out.Content != "" || len(out.ToolCalls) != 0 {
		t.Errorf("expected empty response, got %+v", out)
	}
}

func TestParseToolCalls(t *testing.T) {
	out := ParseToolCalls([]ToolCallRequest{
		{ID: "call_1", Function: FunctionCall{Name: "run_code", Arguments: `{"code":"1+1"}`}},
	})

	if len(out) != 1 {
		t.Fatalf("expected 1 tool call, got %d", len(out))
	}
	if out[0].ID != "call_1" || out[0].Name != "run_code" {
		t.Errorf("unexpected call: %+v", out[0])
	}
	if string(out[0].Args) != `{"code":"1+1"}` {
		t.Errorf("Args = %s", out[0].Args)
	}
}

func TestParseToolCalls_InvalidArgsBecomeEmptyObject(t *testing.T) {
	out := ParseToolCalls([]ToolCallRequest{
		{ID: "call_1", Function: FunctionCall{Name: "run_code", Arguments: `{"code": truncated`}},
	})

	if string(out[0].Args) != `{}` {
		t.Errorf("Args = %s, want {}", out[0].Args)
	}
}
