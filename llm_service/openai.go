package llm_service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

type OpenAIService struct {
	httpClient  *http.Client
	logger      *slog.Logger
	apiURL      string
	apiKey      string
	model       string
	maxAttempts int
	baseDelay   time.Duration
	sleep       func(ctx context.Context, d time.Duration) error
}

// NewOpenAIService builds a client with the retry policy wired in:
// maxAttempts total calls, exponential backoff starting at baseDelay and
// doubling per attempt. callTimeout bounds each individual HTTP call;
// exceeding it counts as a transient failure.
func NewOpenAIService(logger *slog.Logger, apiURL, apiKey, model string, maxAttempts int, baseDelay, callTimeout time.Duration) *OpenAIService {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &OpenAIService{
		httpClient:  &http.Client{Timeout: callTimeout},
		logger:      logger,
		apiURL:      apiURL,
		apiKey:      apiKey,
		model:       model,
		maxAttempts: maxAttempts,
		baseDelay:   baseDelay,
		sleep:       sleepContext,
	}
}

func (s *OpenAIService) CallLLM(ctx context.Context, prompt string, maxOutputTokens int) (string, error) {
	retryDelay := s.baseDelay

	var lastErr error
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		response, err := s.callOpenAI(ctx, prompt, maxOutputTokens)
		if err == nil {
			return response, nil
		}
		lastErr = err

		if httpErr, ok := err.(*OpenAIHttpError); ok {
			if !isTransient(err) {
				s.logger.Error("OpenAI API rejected request",
					slog.Int("status_code", httpErr.StatusCode),
					slog.String("error_type", httpErr.ErrorType),
					slog.String("error_message", httpErr.Message),
					slog.String("model", s.model))
				return "", &RejectedError{
					StatusCode: httpErr.StatusCode,
					Message:    httpErr.Message,
					ErrorType:  httpErr.ErrorType,
				}
			}

			s.logger.Warn("OpenAI API error",
				slog.Int("attempt", attempt),
				slog.Int("status_code", httpErr.StatusCode),
				slog.String("error_type", httpErr.ErrorType),
				slog.String("error_message", httpErr.Message))
		} else if !isTransient(err) {
			return "", err
		}

		if attempt == s.maxAttempts {
			break
		}

		s.logger.Warn("Attempt failed, retrying",
			slog.Int("attempt", attempt),
			slog.Duration("retry_delay", retryDelay),
			slog.String("error", err.Error()))

		if err := s.sleep(ctx, retryDelay); err != nil {
			return "", err
		}
		retryDelay *= 2
	}

	s.logger.Error("Error calling OpenAI API after multiple attempts",
		slog.Int("attempts", s.maxAttempts),
		slog.String("error", lastErr.Error()),
		slog.String("model", s.model))

	return "", &ProviderError{Attempts: s.maxAttempts, Cause: lastErr}
}

func (s *OpenAIService) callOpenAI(ctx context.Context, prompt string, maxOutputTokens int) (string, error) {
	messages := []map[string]string{
		{"role": "system", "content": "You are a document summarization assistant."},
		{"role": "user", "content": prompt},
	}

	payload := map[string]interface{}{
		"model":    s.model,
		"messages": messages,
	}
	if maxOutputTokens > 0 {
		payload["max_tokens"] = maxOutputTokens
	}

	requestBody, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("error marshaling request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", s.apiURL, bytes.NewBuffer(requestBody))
	if err != nil {
		return "", fmt.Errorf("error creating request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("error making request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		rawBody, openAIErr := extractOpenAIErrorDetails(resp)
		httpErr := &OpenAIHttpError{
			StatusCode: resp.StatusCode,
			RawBody:    rawBody,
		}

		if openAIErr != nil {
			httpErr.Message = openAIErr.Error.Message
			httpErr.ErrorType = openAIErr.Error.Type
		} else {
			httpErr.Message = "Unknown error"
			httpErr.ErrorType = "unknown"
		}

		return "", httpErr
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("error reading response body: %w", err)
	}

	var result map[string]interface{}
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("error unmarshaling response: %w", err)
	}

	choices, ok := result["choices"].([]interface{})
	if !ok || len(choices) == 0 {
		return "", fmt.Errorf("unexpected response format from OpenAI API")
	}

	firstChoice, ok := choices[0].(map[string]interface{})
	if !ok {
		return "", fmt.Errorf("unexpected choice format in OpenAI API response")
	}

	message, ok := firstChoice["message"].(map[string]interface{})
	if !ok {
		return "", fmt.Errorf("message not found in OpenAI API response")
	}

	content, ok := message["content"].(string)
	if !ok {
		return "", fmt.Errorf("content not found in OpenAI API response")
	}

	return content, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
