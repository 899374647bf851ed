package mentor

import (
	"context"
	"log/slog"
	"strings"
	"sync"
)

// DefaultSessionID is used when a client omits the session identifier.
const DefaultSessionID = "default"

// defaultMaxRounds caps the assistant/tools alternation within one cycle.
// A model that keeps requesting tools past this bound gets cut off with an
// ErrMaxRounds instead of looping forever.
const defaultMaxRounds = 10

// defaultSystemPrompt is the mentor's standing instruction, prepended to
// every assistant call. It is never stored in session history.
const defaultSystemPrompt = `You are an expert Data Structures and Algorithms mentor who teaches with the Socratic method. Guide students to discover solutions through questions and hints; provide a full solution only when the student explicitly asks for one or is completely stuck after several hints.

You know the classic problem sets: arrays and hashing (Two Sum, Group Anagrams, Top K Frequent), binary search, linked lists (reversal, cycle detection), trees (DFS, BFS, validate BST), graphs (shortest path, spanning trees), dynamic programming (knapsack, LCS), sorting, stacks, queues, heaps, and tries.

Use your tools proactively:
- When a student shares a new problem, call generate_hint for an opening nudge and generate_test_cases to pin down inputs and outputs.
- When a student shares code, check whether it contains test cases (prints, asserts, example calls). If not, add appropriate test cases, then execute the complete code with run_code and show the raw output before discussing it.
- Once code works, call complexity_analyzer to discuss time and space cost, and code_quality_checker for style feedback.
- If the student seems stuck, call bug_hint for a subtle pointer or recommend_problems for an easier warm-up.

Format responses in Markdown. Announce a tool before using it and show its raw output before interpreting it.`

// Mentor drives the conversation cycle: an assistant step that queries the
// provider with the session history, and a tools step that executes any
// requested tool calls and feeds results back. The loop repeats until the
// model answers without tool calls.
type Mentor struct {
	provider     Provider
	tools        []Tool
	sessionTool  func() Tool
	systemPrompt string
	maxRounds    int
	tracer       Tracer
	logger       *slog.Logger

	mu       sync.Mutex
	sessions map[string]*Session
}

// Option configures a Mentor.
type Option func(*Mentor)

// WithTools registers tools shared by all sessions (stateless advisory
// tools).
func WithTools(ts ...Tool) Option {
	return func(m *Mentor) { m.tools = append(m.tools, ts...) }
}

// WithSessionTool registers a factory invoked once per session. Use it for
// tools that own per-session mutable state, such as the persistent code
// runner: every session gets its own instance and no two sessions ever share
// a namespace.
func WithSessionTool(f func() Tool) Option {
	return func(m *Mentor) { m.sessionTool = f }
}

// WithSystemPrompt replaces the default mentoring instruction.
func WithSystemPrompt(s string) Option {
	return func(m *Mentor) { m.systemPrompt = s }
}

// WithMaxRounds sets the assistant/tools round cap per cycle (default 10).
func WithMaxRounds(n int) Option {
	return func(m *Mentor) {
		if n > 0 {
			m.maxRounds = n
		}
	}
}

// WithTracer enables span creation via the given tracer.
func WithTracer(t Tracer) Option {
	return func(m *Mentor) { m.tracer = t }
}

// WithLogger sets the structured logger (default: discard).
func WithLogger(l *slog.Logger) Option {
	return func(m *Mentor) { m.logger = l }
}

// New creates a Mentor backed by the given provider.
func New(provider Provider, opts ...Option) *Mentor {
	m := &Mentor{
		provider:     provider,
		systemPrompt: defaultSystemPrompt,
		maxRounds:    defaultMaxRounds,
		logger:       nopLogger,
		sessions:     make(map[string]*Session),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Process runs one conversation cycle to completion and returns the final
// assistant text. Blocking form of ProcessStream.
func (m *Mentor) Process(ctx context.Context, sessionID, content string) (string, error) {
	return m.runCycle(ctx, m.Session(sessionID), content, nil)
}

// ProcessStream runs one conversation cycle, emitting StreamEvents into ch
// throughout: chunk for assistant text, tool_start/tool_end around each tool
// call, error on cycle failure. The channel is closed when the cycle ends.
// Returns the final assistant text.
//
// History commit discipline: the cycle accumulates its messages locally and
// commits them to the session only on successful completion. A failed model
// call therefore leaves the session history exactly as it was before the
// cycle, keeping it consistent and replayable.
func (m *Mentor) ProcessStream(ctx context.Context, sessionID, content string, ch chan<- StreamEvent) (string, error) {
	return m.runCycle(ctx, m.Session(sessionID), content, ch)
}

func (m *Mentor) runCycle(ctx context.Context, sess *Session, content string, ch chan<- StreamEvent) (string, error) {
	// Close the stream channel exactly once on every exit path.
	var closeOnce sync.Once
	closeCh := func() {
		if ch != nil {
			closeOnce.Do(func() { close(ch) })
		}
	}
	emit := func(ev StreamEvent) {
		if ch == nil {
			return
		}
		select {
		case ch <- ev:
		case <-ctx.Done():
		}
	}

	if strings.TrimSpace(content) == "" {
		emit(StreamEvent{Type: EventError, Content: "empty message received"})
		closeCh()
		return "", &ErrLLM{Provider: "mentor", Message: "empty message"}
	}

	if m.tracer != nil {
		var span Span
		ctx, span = m.tracer.Start(ctx, "mentor.cycle",
			StringAttr("session", sess.ID),
			IntAttr("max_rounds", m.maxRounds))
		defer span.End()
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	m.logger.Info("cycle started", "session", sess.ID, "history_len", len(sess.history))

	defs := sess.tools.AllDefinitions()
	dispatch := m.makeDispatch(sess.tools)

	// Messages produced by this cycle; committed only on success.
	pending := []ChatMessage{UserMessage(content)}

	for round := 0; round < m.maxRounds; round++ {
		req := ChatRequest{
			Messages: m.assemble(sess.history, pending),
			Tools:    defs,
		}

		resp, streamed, err := m.callModel(ctx, req, ch, emit)
		if err != nil {
			m.logger.Error("model call failed", "session", sess.ID, "round", round, "error", err)
			emit(StreamEvent{Type: EventError, Content: err.Error()})
			closeCh()
			return "", err
		}

		// Terminal: no tool calls.
		if len(resp.ToolCalls) == 0 {
			pending = append(pending, AssistantMessage(resp.Content))
			sess.commit(pending)
			if !streamed {
				emit(StreamEvent{Type: EventChunk, Content: resp.Content})
			}
			closeCh()
			m.logger.Info("cycle completed",
				"session", sess.ID,
				"rounds", round+1,
				"history_len", len(sess.history))
			return resp.Content, nil
		}

		m.logger.Info("tool round", "session", sess.ID, "round", round, "calls", len(resp.ToolCalls))

		pending = append(pending, ChatMessage{
			Role:      RoleAssistant,
			Content:   resp.Content,
			ToolCalls: resp.ToolCalls,
		})

		for _, tc := range resp.ToolCalls {
			emit(StreamEvent{Type: EventToolStart, Tool: tc.Name, CallID: tc.ID, Input: tc.Args})
		}

		// Tool calls within one assistant turn are independent; run them in
		// parallel and correlate results by call ID, not position.
		results := dispatchParallel(ctx, resp.ToolCalls, dispatch)

		for i, tc := range resp.ToolCalls {
			emit(StreamEvent{Type: EventToolEnd, Tool: tc.Name, CallID: tc.ID, Content: results[i].Content})
			pending = append(pending, ToolResultMessage(tc.ID, results[i].Content))
		}
	}

	err := &ErrMaxRounds{Rounds: m.maxRounds}
	m.logger.Warn("cycle aborted", "session", sess.ID, "error", err)
	emit(StreamEvent{Type: EventError, Content: err.Error()})
	closeCh()
	return "", err
}

// callModel runs one assistant step. With a stream channel attached it uses
// the provider's ChatStream so assistant text reaches the client as per-delta
// chunks; channel-less callers (Process) get the blocking Chat. Returns
// whether any text chunk was forwarded, so the terminal step knows not to
// emit the accumulated content a second time.
func (m *Mentor) callModel(ctx context.Context, req ChatRequest, ch chan<- StreamEvent, emit func(StreamEvent)) (ChatResponse, bool, error) {
	if ch == nil {
		resp, err := m.provider.Chat(ctx, req)
		return resp, false, err
	}

	// The provider owns mid and closes it; forward deltas as they arrive.
	mid := make(chan StreamEvent, 64)
	var streamed bool
	done := make(chan struct{})
	go func() {
		defer close(done)
		for ev := range mid {
			if ev.Type == EventChunk && ev.Content != "" {
				streamed = true
			}
			emit(ev)
		}
	}()
	resp, err := m.provider.ChatStream(ctx, req, mid)
	<-done
	return resp, streamed, err
}

// assemble builds the provider message list: system prompt, committed
// history, then this cycle's pending messages.
func (m *Mentor) assemble(history, pending []ChatMessage) []ChatMessage {
	msgs := make([]ChatMessage, 0, 1+len(history)+len(pending))
	msgs = append(msgs, SystemMessage(m.systemPrompt))
	msgs = append(msgs, history...)
	msgs = append(msgs, pending...)
	return msgs
}

// makeDispatch converts registry execution into a DispatchFunc. Every kind
// of tool failure (execution errors, tool-reported errors, unknown tool
// names) becomes error-flavored result content, never a cycle abort: the
// model needs to see failures as data it can reason about.
func (m *Mentor) makeDispatch(reg *ToolRegistry) DispatchFunc {
	return func(ctx context.Context, tc ToolCall) DispatchResult {
		result, err := reg.Execute(ctx, tc.Name, tc.Args)
		if err != nil {
			return DispatchResult{Content: "error: " + err.Error(), IsError: true}
		}
		if result.Error != "" {
			return DispatchResult{Content: "error: " + result.Error, IsError: true}
		}
		return DispatchResult{Content: result.Content}
	}
}
