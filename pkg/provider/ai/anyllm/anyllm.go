// Package anyllm provides an ai.Service backed by
// github.com/mozilla-ai/any-llm-go, a unified multi-provider interface that
// supports OpenAI, Anthropic, Gemini, Ollama, and others.
//
// It exists so that deployments can fall back to a second text backend when
// the primary Gemini REST client is unhealthy, without the pipeline caring
// which vendor answers.
//
// Usage:
//
//	svc, err := anyllm.New("openai", "gpt-4o-mini", anyllmlib.WithAPIKey("sk-..."))
package anyllm

import (
	"context"
	"fmt"
	"strings"

	anyllmlib "github.com/mozilla-ai/any-llm-go"
	"github.com/mozilla-ai/any-llm-go/providers/anthropic"
	"github.com/mozilla-ai/any-llm-go/providers/gemini"
	"github.com/mozilla-ai/any-llm-go/providers/ollama"
	anyllmoai "github.com/mozilla-ai/any-llm-go/providers/openai"

	"github.com/ProSamhacker/hospitalmanagement/pkg/provider/ai"
)

// Compile-time interface assertion.
var _ ai.Service = (*Service)(nil)

// Service implements ai.Service by wrapping an any-llm-go provider.
type Service struct {
	backend anyllmlib.Provider
	model   string
}

// New creates a Service backed by the given provider name.
//
// providerName is one of: "openai", "anthropic", "gemini", "ollama".
// model is the backend-specific model identifier (e.g., "gpt-4o-mini").
// opts are any-llm-go configuration options (e.g., anyllmlib.WithAPIKey,
// anyllmlib.WithBaseURL). Without an API key option the backend falls back to
// its conventional environment variable (OPENAI_API_KEY, etc.).
func New(providerName, model string, opts ...anyllmlib.Option) (*Service, error) {
	if providerName == "" {
		return nil, fmt.Errorf("anyllm: providerName must not be empty")
	}
	if model == "" {
		return nil, fmt.Errorf("anyllm: model must not be empty")
	}

	backend, err := createBackend(providerName, opts...)
	if err != nil {
		return nil, fmt.Errorf("anyllm: create %q backend: %w", providerName, err)
	}
	return &Service{backend: backend, model: model}, nil
}

// createBackend creates the underlying any-llm-go provider for the given name.
func createBackend(providerName string, opts ...anyllmlib.Option) (anyllmlib.Provider, error) {
	switch strings.ToLower(providerName) {
	case "openai":
		return anyllmoai.New(opts...)
	case "anthropic":
		return anthropic.New(opts...)
	case "gemini":
		return gemini.New(opts...)
	case "ollama":
		return ollama.New(opts...)
	default:
		return nil, fmt.Errorf("unsupported provider %q; supported: openai, anthropic, gemini, ollama", providerName)
	}
}

// Complete implements [ai.Service]. The prompt is sent as a single user
// message; the first choice's content is returned with markdown fences
// stripped, matching the Gemini client's post-processing.
func (s *Service) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := s.backend.Completion(ctx, anyllmlib.CompletionParams{
		Model: s.model,
		Messages: []anyllmlib.Message{
			{Role: anyllmlib.RoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("anyllm: completion: %w: %v", ai.ErrUnavailable, err)
	}
	if len(resp.Choices) == 0 {
		return "", ai.ErrEmptyResponse
	}

	text := stripFences(resp.Choices[0].Message.ContentString())
	if text == "" {
		return "", ai.ErrEmptyResponse
	}
	return text, nil
}

func stripFences(s string) string {
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}
