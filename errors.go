package mentor

import (
	"fmt"
	"strconv"
	"time"
)

// ErrLLM reports a provider-level failure (network, auth, malformed payload).
type ErrLLM struct {
	Provider string
	Message  string
}

func (e *ErrLLM) Error() string {
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

// ErrHTTP reports a non-2xx response from a provider API.
// RetryAfter carries the parsed Retry-After header for retry middleware.
type ErrHTTP struct {
	Status     int
	Body       string
	RetryAfter time.Duration
}

func (e *ErrHTTP) Error() string {
	return fmt.Sprintf("http %d: %s", e.Status, e.Body)
}

// ErrToolNotFound reports that the model requested a tool name the registry
// does not know. It is surfaced to the conversation as an error-flavored tool
// result, never as a fatal failure.
type ErrToolNotFound struct {
	Name string
}

func (e *ErrToolNotFound) Error() string {
	return "unknown tool: " + e.Name
}

// ErrMaxRounds reports that a conversation cycle exceeded the configured
// assistant/tools round cap without the model producing a terminal response.
type ErrMaxRounds struct {
	Rounds int
}

func (e *ErrMaxRounds) Error() string {
	return fmt.Sprintf("maximum tool rounds exceeded (%d)", e.Rounds)
}

// ParseRetryAfter parses an HTTP Retry-After header value given in seconds.
// Returns 0 for empty or unparseable values (the HTTP-date form is rare on
// LLM APIs and not worth supporting).
func ParseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}
