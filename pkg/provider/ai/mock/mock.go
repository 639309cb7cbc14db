// Package mock provides a test double for the ai.Service interface.
//
// Use Service in unit tests to feed controlled completions into the
// extraction pipeline without a live backend, and to verify the prompts the
// pipeline constructs.
//
// Example:
//
//	svc := &mock.Service{Response: `{"symptoms":"fever","diagnosis":"flu"}`}
//	text, err := svc.Complete(ctx, prompt)
package mock

import (
	"context"
	"sync"
)

// Call records a single invocation of Complete.
type Call struct {
	// Ctx is the context passed to Complete.
	Ctx context.Context
	// Prompt is the prompt passed to Complete.
	Prompt string
}

// Service is a mock implementation of ai.Service.
// Zero values cause Complete to return ("", nil). Set Err to inject errors.
// When Responses is non-empty it takes precedence over Response and entries
// are consumed one per call, repeating the last entry once exhausted.
type Service struct {
	mu sync.Mutex

	// Response is returned from every Complete call when Responses is empty.
	Response string

	// Responses is an ordered script of return values, one per call.
	Responses []string

	// Err, if non-nil, is returned from every Complete call.
	Err error

	// CompleteFunc, if non-nil, overrides all other fields.
	CompleteFunc func(ctx context.Context, prompt string) (string, error)

	// Calls records every invocation in order.
	Calls []Call
}

// Complete implements ai.Service.
func (s *Service) Complete(ctx context.Context, prompt string) (string, error) {
	s.mu.Lock()
	s.Calls = append(s.Calls, Call{Ctx: ctx, Prompt: prompt})
	n := len(s.Calls)
	fn := s.CompleteFunc
	s.mu.Unlock()

	if fn != nil {
		return fn(ctx, prompt)
	}
	if s.Err != nil {
		return "", s.Err
	}
	if len(s.Responses) > 0 {
		i := n - 1
		if i >= len(s.Responses) {
			i = len(s.Responses) - 1
		}
		return s.Responses[i], nil
	}
	return s.Response, nil
}

// CallCount returns the number of Complete invocations so far.
func (s *Service) CallCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Calls)
}
