package llm_service

import (
	"context"

	"golang.org/x/time/rate"
)

// RateLimitedService wraps an LLMService with a token bucket shared across
// every job in the process, so concurrent users are throttled fairly instead
// of each independently saturating the provider.
type RateLimitedService struct {
	limiter *rate.Limiter
	service LLMService
}

func NewRateLimitedService(l *rate.Limiter, s LLMService) *RateLimitedService {
	return &RateLimitedService{
		limiter: l,
		service: s,
	}
}

func (s *RateLimitedService) CallLLM(ctx context.Context, prompt string, maxOutputTokens int) (string, error) {
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return "", err
		}
	}

	return s.service.CallLLM(ctx, prompt, maxOutputTokens)
}
