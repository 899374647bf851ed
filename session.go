package mentor

import "sync"

// Session holds one conversation's state: the committed message history and
// the session-scoped tool registry (which owns the session's persistent
// execution environment). A session is single-writer: cycles against the
// same session serialize on mu, while independent sessions run fully in
// parallel.
type Session struct {
	ID string

	mu      sync.Mutex
	history []ChatMessage
	tools   *ToolRegistry
}

// History returns a copy of the committed message history.
func (s *Session) History() []ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ChatMessage, len(s.history))
	copy(out, s.history)
	return out
}

// commit appends a completed cycle's messages to the history. Called with
// s.mu held by the running cycle. History is append-only: committed messages
// are never mutated or truncated here.
func (s *Session) commit(msgs []ChatMessage) {
	s.history = append(s.history, msgs...)
}

// Session returns the session for id, creating it on first use. An empty id
// maps to "default". Each new session gets its own tool registry so that
// session-scoped tools (the code runner) never share state across sessions.
func (m *Mentor) Session(id string) *Session {
	if id == "" {
		id = DefaultSessionID
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[id]; ok {
		return s
	}
	reg := NewToolRegistry()
	for _, t := range m.tools {
		reg.Add(t)
	}
	if m.sessionTool != nil {
		reg.Add(m.sessionTool())
	}
	s := &Session{ID: id, tools: reg}
	m.sessions[id] = s
	m.logger.Info("session created", "session", id)
	return s
}

// History returns a copy of the committed history for a session, creating
// the session if it does not exist yet.
func (m *Mentor) History(sessionID string) []ChatMessage {
	return m.Session(sessionID).History()
}
