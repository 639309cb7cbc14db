package resilience

import (
	"context"
	"errors"
	"fmt"

	"github.com/ProSamhacker/hospitalmanagement/pkg/provider/ai"
)

// AIFallback implements [ai.Service] with automatic failover across multiple
// AI backends. Each backend has its own circuit breaker; when the primary
// fails or its breaker is open, the next healthy fallback is tried.
type AIFallback struct {
	group *FallbackGroup[ai.Service]
}

// Compile-time interface assertion.
var _ ai.Service = (*AIFallback)(nil)

// NewAIFallback creates an [AIFallback] with primary as the preferred
// backend.
func NewAIFallback(primary ai.Service, primaryName string, cfg FallbackConfig) *AIFallback {
	return &AIFallback{
		group: NewFallbackGroup(primary, primaryName, cfg),
	}
}

// AddFallback registers an additional AI service as a fallback.
func (f *AIFallback) AddFallback(name string, svc ai.Service) {
	f.group.AddFallback(name, svc)
}

// Complete sends the prompt to the first healthy backend and returns its
// reply. When every backend fails, the error satisfies
// [ai.ErrUnavailable] so callers can keep their usual degradation path.
func (f *AIFallback) Complete(ctx context.Context, prompt string) (string, error) {
	text, err := ExecuteWithResult(f.group, func(svc ai.Service) (string, error) {
		return svc.Complete(ctx, prompt)
	})
	if err != nil {
		if errors.Is(err, ErrAllFailed) && !errors.Is(err, ai.ErrUnavailable) {
			return "", fmt.Errorf("%w: %w", ai.ErrUnavailable, err)
		}
		return "", err
	}
	return text, nil
}
