// Package processing turns a rendered prompt into response text by running a
// subprocess or calling an HTTP endpoint, under a hard per-call deadline.
package processing

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Kind selects the processor backend.
type Kind string

const (
	KindCommand Kind = "command"
	KindHTTP    Kind = "http"
)

// Spec is a validated processing configuration. Exactly one of Argv/URL is
// set, matching Kind. Timeout is always positive.
type Spec struct {
	Kind    Kind
	Argv    []string
	URL     string
	Timeout time.Duration
}

// Metadata describes the triggering message; it is sent alongside the prompt
// to HTTP processors.
type Metadata struct {
	AuthorName string `json:"author_name"`
	AuthorID   string `json:"author_id"`
	ChannelID  string `json:"channel_id"`
	MessageID  string `json:"message_id"`
	Timestamp  string `json:"timestamp"`
}

// ErrTimeout marks a processor call that exceeded its deadline. The
// subprocess or connection behind it is already torn down when the error is
// returned.
var ErrTimeout = errors.New("processing timed out")

// ExitError is a command processor that exited non-zero. Stderr carries the
// captured diagnostics, never the stdout result.
type ExitError struct {
	Code   int
	Stderr string
}

func (e *ExitError) Error() string {
	if e.Stderr == "" {
		return fmt.Sprintf("command exited with code %d", e.Code)
	}
	return fmt.Sprintf("command exited with code %d: %s", e.Code, e.Stderr)
}

// HTTPError is a non-2xx response from an HTTP processor.
type HTTPError struct {
	Status int
	Body   string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.Status, e.Body)
}

// Executor runs processing specs. The zero value is not usable; use
// NewExecutor.
type Executor struct {
	client *http.Client
}

func NewExecutor() *Executor {
	// Per-call deadlines come from the spec; the client itself has no
	// timeout so a generous hook timeout is not silently clipped.
	return &Executor{client: &http.Client{}}
}

// Execute runs spec with prompt as input and returns the response text.
// The spec timeout is enforced as a hard deadline in both branches; ctx
// cancellation (shutdown) also aborts the call.
func (e *Executor) Execute(ctx context.Context, spec Spec, prompt string, meta Metadata) (string, error) {
	switch spec.Kind {
	case KindCommand:
		return e.runCommand(ctx, spec, prompt)
	case KindHTTP:
		return e.runHTTP(ctx, spec, prompt, meta)
	default:
		return "", fmt.Errorf("unknown processor kind %q", spec.Kind)
	}
}
