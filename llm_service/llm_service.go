package llm_service

import (
	"context"
)

// LLMService is the outbound text-completion boundary. Implementations own
// their retry policy; callers see either a completion, a *ProviderError
// (transient failure that survived every retry) or a *RejectedError
// (permanent failure, never retried).
type LLMService interface {
	CallLLM(ctx context.Context, prompt string, maxOutputTokens int) (string, error)
}
