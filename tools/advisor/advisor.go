// Package advisor implements the pedagogical helper tools. Each function is
// a single-shot delegation to the model with a fixed prompt template, so the
// advisory voice stays separate from the main conversation thread.
package advisor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	mentor "github.com/dsalab/mentor"
)

const (
	hintPrompt      = "Give a helpful hint for this DSA problem without solving it: "
	testCasesPrompt = "Create 3 test cases for this DSA problem without solving it: "
	bugHintPrompt   = "Analyze this code for logic issues and give a subtle hint: "

	complexityPrompt = `Analyze the time and space complexity of this code. Provide:
1. Time complexity with explanation
2. Space complexity with explanation
3. Suggestions for optimization if any

Code: `

	qualityPrompt = `Review this code for:
1. Readability and style
2. Edge case handling
3. Variable naming
4. Code structure

Code: `
)

// Tool delegates advisory prompts to an LLM provider.
type Tool struct {
	provider mentor.Provider
	logger   *slog.Logger
}

// Option configures the advisor tool.
type Option func(*Tool)

// WithLogger sets the logger for delegation failures.
func WithLogger(l *slog.Logger) Option {
	return func(t *Tool) {
		if l != nil {
			t.logger = l
		}
	}
}

// New creates an advisor tool backed by the given provider.
func New(p mentor.Provider, opts ...Option) *Tool {
	t := &Tool{provider: p, logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *Tool) Definitions() []mentor.ToolDefinition {
	return []mentor.ToolDefinition{
		{
			Name:        "generate_hint",
			Description: "Generate a helpful hint for a DSA problem without solving it.",
			Parameters:  json.RawMessage(`{"type":"object","properties":{"question":{"type":"string","description":"The problem statement"}},"required":["question"]}`),
		},
		{
			Name:        "generate_test_cases",
			Description: "Generate test cases for DSA problems without solving them.",
			Parameters:  json.RawMessage(`{"type":"object","properties":{"problem":{"type":"string","description":"The problem description"}},"required":["problem"]}`),
		},
		{
			Name:        "bug_hint",
			Description: "Analyze code for logic issues and provide a subtle hint.",
			Parameters:  json.RawMessage(`{"type":"object","properties":{"code":{"type":"string","description":"The code to analyze"}},"required":["code"]}`),
		},
		{
			Name:        "complexity_analyzer",
			Description: "Analyze time and space complexity of code.",
			Parameters:  json.RawMessage(`{"type":"object","properties":{"code":{"type":"string","description":"The code to analyze"}},"required":["code"]}`),
		},
		{
			Name:        "code_quality_checker",
			Description: "Check code quality and suggest improvements.",
			Parameters:  json.RawMessage(`{"type":"object","properties":{"code":{"type":"string","description":"The code to review"}},"required":["code"]}`),
		},
		{
			Name:        "recommend_problems",
			Description: "Recommend next problems based on learning progress.",
			Parameters:  json.RawMessage(`{"type":"object","properties":{"topic":{"type":"string","description":"Current topic being studied"},"difficulty":{"type":"string","description":"Preferred difficulty (default medium)"}}}`),
		},
	}
}

func (t *Tool) Execute(ctx context.Context, name string, args json.RawMessage) (mentor.ToolResult, error) {
	prompt, err := t.buildPrompt(name, args)
	if err != nil {
		var notFound *mentor.ErrToolNotFound
		if errors.As(err, &notFound) {
			return mentor.ToolResult{}, err
		}
		return mentor.ToolResult{Error: err.Error()}, nil
	}

	content, err := mentor.Complete(ctx, t.provider, prompt)
	if err != nil {
		t.logger.Error("advisor delegation failed", "tool", name, "error", err)
		return mentor.ToolResult{Error: fmt.Sprintf("%s failed: %v", name, err)}, nil
	}
	return mentor.ToolResult{Content: content}, nil
}

func (t *Tool) buildPrompt(name string, args json.RawMessage) (string, error) {
	switch name {
	case "generate_hint":
		q, err := requiredField(args, "question")
		if err != nil {
			return "", err
		}
		return hintPrompt + q, nil

	case "generate_test_cases":
		p, err := requiredField(args, "problem")
		if err != nil {
			return "", err
		}
		return testCasesPrompt + p, nil

	case "bug_hint":
		code, err := requiredField(args, "code")
		if err != nil {
			return "", err
		}
		return bugHintPrompt + code, nil

	case "complexity_analyzer":
		code, err := requiredField(args, "code")
		if err != nil {
			return "", err
		}
		return complexityPrompt + code, nil

	case "code_quality_checker":
		code, err := requiredField(args, "code")
		if err != nil {
			return "", err
		}
		return qualityPrompt + code, nil

	case "recommend_problems":
		var params struct {
			Topic      string `json:"topic"`
			Difficulty string `json:"difficulty"`
		}
		if len(args) > 0 {
			if err := json.Unmarshal(args, &params); err != nil {
				return "", fmt.Errorf("invalid args: %w", err)
			}
		}
		if params.Difficulty == "" {
			params.Difficulty = "medium"
		}
		return fmt.Sprintf("Based on the current topic %q and difficulty %q, recommend 3 specific DSA problems that would be good next steps for learning. Include problem names and brief descriptions.", params.Topic, params.Difficulty), nil
	}

	return "", &mentor.ErrToolNotFound{Name: name}
}

func requiredField(args json.RawMessage, field string) (string, error) {
	var params map[string]string
	if err := json.Unmarshal(args, &params); err != nil {
		return "", fmt.Errorf("invalid args: %w", err)
	}
	v := params[field]
	if v == "" {
		return "", fmt.Errorf("%s is required", field)
	}
	return v, nil
}
