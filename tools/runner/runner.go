// Package runner exposes the persistent execution environment as assistant
// tool functions. Each Tool owns one environment, so registering a fresh
// Tool per session keeps student namespaces isolated.
package runner

import (
	"context"
	"encoding/json"

	mentor "github.com/dsalab/mentor"
	"github.com/dsalab/mentor/repl"
)

// Tool runs student code inside a session-scoped interpreter namespace.
type Tool struct {
	env *repl.Environment
}

// New creates a runner tool backed by a fresh execution environment.
func New() *Tool {
	return &Tool{env: repl.New()}
}

func (t *Tool) Definitions() []mentor.ToolDefinition {
	return []mentor.ToolDefinition{
		{
			Name:        "run_code",
			Description: "Execute Go code in a persistent session namespace. Variables and functions defined in earlier calls remain available. Returns captured output, the value of a bare expression, or error messages.",
			Parameters:  json.RawMessage(`{"type":"object","properties":{"code":{"type":"string","description":"Go code to execute"}},"required":["code"]}`),
		},
		{
			Name:        "reset_repl",
			Description: "Clear every user-defined variable and function from the session namespace. Use when the student wants a fresh start.",
			Parameters:  json.RawMessage(`{"type":"object","properties":{}}`),
		},
		{
			Name:        "inspect_repl",
			Description: "List the variables and functions currently defined in the session namespace with their types and value previews.",
			Parameters:  json.RawMessage(`{"type":"object","properties":{}}`),
		},
	}
}

func (t *Tool) Execute(ctx context.Context, name string, args json.RawMessage) (mentor.ToolResult, error) {
	switch name {
	case "run_code":
		var params struct {
			Code string `json:"code"`
		}
		if err := json.Unmarshal(args, &params); err != nil {
			return mentor.ToolResult{Error: "invalid args: " + err.Error()}, nil
		}
		if params.Code == "" {
			return mentor.ToolResult{Error: "code is required"}, nil
		}
		return mentor.ToolResult{Content: t.env.Execute(params.Code)}, nil

	case "reset_repl":
		return mentor.ToolResult{Content: t.env.Reset()}, nil

	case "inspect_repl":
		return mentor.ToolResult{Content: t.env.Inspect()}, nil
	}

	return mentor.ToolResult{}, &mentor.ErrToolNotFound{Name: name}
}
