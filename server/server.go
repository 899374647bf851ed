// Package server exposes the mentor over HTTP. The main surface is
// POST /chat/stream, which relays orchestrator StreamEvents to the client
// as newline-delimited JSON, one frame per event, flushed as they arrive.
package server

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/dsalab/mentor"
)

const maxRequestBodyBytes = 1 << 20 // 1MB

// Server serves the chat streaming API for a single Mentor instance.
type Server struct {
	mentor *mentor.Mentor
	logger *slog.Logger

	// paceDelay is the minimum spacing between relayed events. Zero
	// disables pacing and frames are written as fast as they arrive.
	paceDelay time.Duration
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger. Defaults to a discard logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithPaceDelay sets the per-event pacing delay for /chat/stream.
func WithPaceDelay(d time.Duration) Option {
	return func(s *Server) { s.paceDelay = d }
}

// New builds a Server around m.
func New(m *mentor.Mentor, opts ...Option) *Server {
	s := &Server{
		mentor: m,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /chat/stream", s.handleChatStream)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /{$}", s.handleRoot)
	return mux
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:        addr,
		Handler:     s.Handler(),
		ReadTimeout: time.Minute,
		IdleTimeout: 30 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return srv.Shutdown(shutCtx)
}

func (s *Server) handleChatStream(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	var in mentor.ChatInput
	if err := json.Unmarshal(body, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)

	flusher, _ := w.(http.Flusher)
	enc := json.NewEncoder(w)
	writeFrame := func(ev mentor.StreamEvent) {
		if err := enc.Encode(ev); err != nil {
			return
		}
		if flusher != nil {
			flusher.Flush()
		}
	}

	// Reject empty input in-band so clients only ever parse one format.
	if in.Content == "" {
		writeFrame(mentor.StreamEvent{Type: mentor.EventError, Content: "content is required"})
		return
	}

	ch := make(chan mentor.StreamEvent, 16)
	done := make(chan struct{})
	go func() {
		defer close(done)
		if _, err := s.mentor.ProcessStream(r.Context(), in.SessionID, in.Content, ch); err != nil {
			s.logger.Error("stream cycle failed", "session_id", in.SessionID, "error", err)
		}
	}()

	var limiter *rate.Limiter
	if s.paceDelay > 0 {
		limiter = rate.NewLimiter(rate.Every(s.paceDelay), 1)
	}

	for ev := range ch {
		if limiter != nil {
			if err := limiter.Wait(r.Context()); err != nil {
				break
			}
		}
		writeFrame(ev)
	}
	<-done
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"service": "mentor", "status": "running"})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// Headers are already out; nothing useful left to do.
		return
	}
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
