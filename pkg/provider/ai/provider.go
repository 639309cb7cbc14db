// Package ai defines the Service interface for generative text backends.
//
// A Service wraps a remote generative-AI API (e.g., Google's Gemini
// generateContent endpoint) and exposes a single prompt-in/text-out operation
// for the clinical extraction pipeline. Implementations hide all wire-format
// concerns (request envelopes, error payloads, safety-block payloads) and
// surface plain text or a typed error.
//
// Implementations must be safe for concurrent use and must propagate context
// cancellation promptly: when ctx is cancelled, Complete must return as
// quickly as possible.
package ai

import (
	"context"
	"errors"
)

// ErrUnavailable is returned (possibly wrapped) by Service implementations
// when the backend cannot be reached: network failure, timeout, or an HTTP
// transport error. It is always recoverable; callers degrade to a fallback
// value instead of failing the surrounding command.
var ErrUnavailable = errors.New("ai service unavailable")

// ErrBlocked is returned when the backend refused to answer the prompt
// (e.g., a safety filter block). The error message carries the block reason
// reported by the backend.
var ErrBlocked = errors.New("ai prompt blocked")

// ErrEmptyResponse is returned when the backend answered successfully but the
// response carried no text content.
var ErrEmptyResponse = errors.New("ai response empty")

// Service is the abstraction over any generative text backend.
//
// Implementations must be safe for concurrent use from multiple goroutines.
type Service interface {
	// Complete sends prompt to the backend and returns the generated text,
	// stripped of any markdown code fences the model may have added despite
	// instructions.
	//
	// Error returns are always one of (or wrap one of) [ErrUnavailable],
	// [ErrBlocked], [ErrEmptyResponse], or a backend-reported API error.
	// A non-nil error means the returned string is empty or carries no
	// usable content.
	Complete(ctx context.Context, prompt string) (string, error)
}
