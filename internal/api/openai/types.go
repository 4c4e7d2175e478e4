// Package openai provides the wire types and HTTP client for OpenAI-compatible
// chat completion endpoints.
package openai

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/tjfontaine/tutorai/internal/domain"
)

// ChatCompletionRequest represents a chat completion request.
type ChatCompletionRequest struct {
	Model     string                  `json:"model"`
	Messages  []ChatCompletionMessage `json:"messages"`
	MaxTokens int                     `json:"max_tokens,omitempty"`
}

// ChatCompletionMessage represents a message in the request or response.
type ChatCompletionMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatCompletionResponse represents a chat completion response.
type ChatCompletionResponse struct {
	ID      string   `json:"id"`
	Object  string   `json:"object"`
	Created int64    `json:"created"`
	Model   string   `json:"model"`
	Choices []Choice `json:"choices"`
	Usage   Usage    `json:"usage,omitempty"`
}

// Choice represents a completion choice.
type Choice struct {
	Index        int                   `json:"index"`
	Message      ChatCompletionMessage `json:"message"`
	FinishReason string                `json:"finish_reason"`
}

// Usage represents token usage information.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// FirstContent returns the first non-empty choice content, or "".
func (r *ChatCompletionResponse) FirstContent() string {
	for _, c := range r.Choices {
		if c.Message.Content != "" {
			return c.Message.Content
		}
	}
	return ""
}

// APIError contains error details returned by the provider.
type APIError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    string `json:"code,omitempty"`
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return e.Code + ": " + e.Message
	}
	return e.Message
}

// ToCanonical converts the provider error to a canonical domain error.
func (e *APIError) ToCanonical(status int) *domain.APIError {
	errType, code := mapErrorType(status, e.Type, e.Code)
	return &domain.APIError{
		Type:       errType,
		Code:       code,
		Message:    e.Message,
		StatusCode: status,
	}
}

// mapErrorType prefers the provider's own error code, then its type, then
// the HTTP status.
func mapErrorType(status int, errType, errCode string) (domain.ErrorType, domain.ErrorCode) {
	switch errCode {
	case "rate_limit_exceeded":
		return domain.ErrorTypeRateLimit, domain.ErrorCodeRateLimitExceeded
	case "invalid_api_key":
		return domain.ErrorTypeAuthentication, domain.ErrorCodeInvalidAPIKey
	case "model_not_found":
		return domain.ErrorTypeNotFound, domain.ErrorCodeModelNotFound
	}

	switch errType {
	case "invalid_request_error":
		return domain.ErrorTypeInvalidRequest, ""
	case "authentication_error":
		return domain.ErrorTypeAuthentication, domain.ErrorCodeInvalidAPIKey
	case "rate_limit_error", "rate_limit_exceeded":
		return domain.ErrorTypeRateLimit, domain.ErrorCodeRateLimitExceeded
	case "service_unavailable":
		return domain.ErrorTypeOverloaded, ""
	case "server_error":
		return domain.ErrorTypeServer, ""
	}

	t := domain.ErrorTypeForStatus(status)
	switch t {
	case domain.ErrorTypeAuthentication:
		return t, domain.ErrorCodeInvalidAPIKey
	case domain.ErrorTypeRateLimit:
		return t, domain.ErrorCodeRateLimitExceeded
	case domain.ErrorTypeNotFound:
		return t, domain.ErrorCodeModelNotFound
	}
	return t, ""
}

// errorEnvelope accepts both {"error":{"message":...}} and Hugging Face's
// {"error":"..."} shapes.
type errorEnvelope struct {
	Error json.RawMessage `json:"error"`
}

// ParseErrorResponse extracts provider error details from a non-200 body.
// It always returns a usable error; unparseable bodies are carried verbatim.
func ParseErrorResponse(status int, data []byte) *APIError {
	var env errorEnvelope
	if err := json.Unmarshal(data, &env); err == nil && len(env.Error) > 0 {
		var apiErr APIError
		if err := json.Unmarshal(env.Error, &apiErr); err == nil && apiErr.Message != "" {
			return &apiErr
		}
		var msg string
		if err := json.Unmarshal(env.Error, &msg); err == nil && msg != "" {
			return &APIError{Message: msg}
		}
	}

	body := strings.TrimSpace(string(data))
	if body == "" {
		body = http.StatusText(status)
	}
	return &APIError{Message: fmt.Sprintf("API error (status %d): %s", status, body)}
}
