package llm_service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
)

// ProviderError reports a transient provider failure that survived the full
// retry budget. Attempts is the total number of calls made.
type ProviderError struct {
	Attempts int
	Cause    error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider call failed after %d attempts: %v", e.Attempts, e.Cause)
}

func (e *ProviderError) Unwrap() error { return e.Cause }

// RejectedError reports a permanent provider rejection (malformed request,
// content policy, bad credentials). Never retried.
type RejectedError struct {
	StatusCode int
	Message    string
	ErrorType  string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("provider rejected request (HTTP %d): %s (Type: %s)", e.StatusCode, e.Message, e.ErrorType)
}

// OpenAIError represents the error structure returned by OpenAI API
type OpenAIError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error"`
}

type OpenAIHttpError struct {
	StatusCode int
	Message    string
	ErrorType  string
	RawBody    string
}

func (e *OpenAIHttpError) Error() string {
	return fmt.Sprintf("OpenAI API error (HTTP %d): %s (Type: %s)", e.StatusCode, e.Message, e.ErrorType)
}

// extractOpenAIErrorDetails extracts error information from OpenAI API responses
func extractOpenAIErrorDetails(resp *http.Response) (string, *OpenAIError) {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", nil
	}

	// Try to parse as OpenAI error format
	var openAIErr OpenAIError
	if err := json.Unmarshal(body, &openAIErr); err == nil && openAIErr.Error.Message != "" {
		return string(body), &openAIErr
	}

	return string(body), nil
}

// isTransient decides whether a failed call may be retried. Rate limits,
// request timeouts, server-side errors and network problems are transient;
// every other HTTP status is a permanent rejection.
func isTransient(err error) bool {
	var httpErr *OpenAIHttpError
	if errors.As(err, &httpErr) {
		switch {
		case httpErr.StatusCode == http.StatusTooManyRequests:
			return true
		case httpErr.StatusCode == http.StatusRequestTimeout:
			return true
		case httpErr.StatusCode >= 500:
			return true
		default:
			return false
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	// Unclassified transport errors (connection reset, EOF) are worth a retry.
	var rejected *RejectedError
	return !errors.As(err, &rejected)
}
