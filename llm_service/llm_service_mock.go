package llm_service

import (
	"context"
)

type MockLLMService struct {
	CallLLMFunc func(ctx context.Context, prompt string, maxOutputTokens int) (string, error)
}

func (m *MockLLMService) CallLLM(ctx context.Context, prompt string, maxOutputTokens int) (string, error) {
	if m.CallLLMFunc != nil {
		return m.CallLLMFunc(ctx, prompt, maxOutputTokens)
	}
	return "mock response", nil
}
