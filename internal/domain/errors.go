package domain

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// ErrMissingCredential is returned by Ready when no provider API key is configured.
var ErrMissingCredential = errors.New("provider API key is missing; set HUGGINGFACE_API_KEY")

// ErrorType represents the category of a provider or configuration error.
type ErrorType string

const (
	// ErrorTypeInvalidRequest indicates the provider rejected the request.
	ErrorTypeInvalidRequest ErrorType = "invalid_request"

	// ErrorTypeAuthentication indicates the API key was rejected.
	ErrorTypeAuthentication ErrorType = "authentication"

	// ErrorTypePermission indicates the key may not use the model.
	ErrorTypePermission ErrorType = "permission"

	// ErrorTypeNotFound indicates the model or endpoint does not exist.
	ErrorTypeNotFound ErrorType = "not_found"

	// ErrorTypeRateLimit indicates rate limiting was triggered.
	ErrorTypeRateLimit ErrorType = "rate_limit"

	// ErrorTypeOverloaded indicates the model is loading or the service is overloaded.
	ErrorTypeOverloaded ErrorType = "overloaded"

	// ErrorTypeServer indicates a provider-side failure.
	ErrorTypeServer ErrorType = "server"

	// ErrorTypeTimeout indicates the call did not finish within its deadline.
	ErrorTypeTimeout ErrorType = "timeout"

	// ErrorTypeTransport indicates the request never produced a provider response.
	ErrorTypeTransport ErrorType = "transport"

	// ErrorTypeConfiguration indicates the process is not configured to call the provider.
	ErrorTypeConfiguration ErrorType = "configuration"

	// ErrorTypeCanceled indicates the caller's context ended first. It says
	// nothing about the provider and must not be memoized.
	ErrorTypeCanceled ErrorType = "canceled"
)

// ErrorCode provides additional specificity beyond the error type.
type ErrorCode string

const (
	ErrorCodeRateLimitExceeded ErrorCode = "rate_limit_exceeded"
	ErrorCodeInvalidAPIKey     ErrorCode = "invalid_api_key"
	ErrorCodeMissingAPIKey     ErrorCode = "missing_api_key"
	ErrorCodeModelNotFound     ErrorCode = "model_not_found"
)

// APIError is a classified error produced inside the completion client.
// It never crosses the client boundary; the client turns it into a Failure.
type APIError struct {
	// Type is the category of error
	Type ErrorType `json:"type"`

	// Code is an optional specific error code
	Code ErrorCode `json:"code,omitempty"`

	// Message is the human-readable error message
	Message string `json:"message"`

	// StatusCode is the HTTP status returned by the provider, if any
	StatusCode int `json:"-"`

	// Err is the underlying cause, if any
	Err error `json:"-"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s (%s): %s", e.Type, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// HTTPStatusCode returns the HTTP status that best describes this error.
func (e *APIError) HTTPStatusCode() int {
	if e.StatusCode != 0 {
		return e.StatusCode
	}

	switch e.Type {
	case ErrorTypeInvalidRequest:
		return http.StatusBadRequest
	case ErrorTypeAuthentication:
		return http.StatusUnauthorized
	case ErrorTypePermission:
		return http.StatusForbidden
	case ErrorTypeNotFound:
		return http.StatusNotFound
	case ErrorTypeRateLimit:
		return http.StatusTooManyRequests
	case ErrorTypeOverloaded, ErrorTypeConfiguration:
		return http.StatusServiceUnavailable
	case ErrorTypeTimeout:
		return http.StatusGatewayTimeout
	case ErrorTypeTransport:
		return http.StatusBadGateway
	case ErrorTypeCanceled:
		return http.StatusRequestTimeout
	default:
		return http.StatusInternalServerError
	}
}

// NewAPIError creates a new API error.
func NewAPIError(errType ErrorType, message string) *APIError {
	return &APIError{
		Type:    errType,
		Message: message,
	}
}

// WithCode adds an error code to the error.
func (e *APIError) WithCode(code ErrorCode) *APIError {
	e.Code = code
	return e
}

// WithStatusCode records the provider's HTTP status.
func (e *APIError) WithStatusCode(code int) *APIError {
	e.StatusCode = code
	return e
}

// WithCause records the underlying error.
func (e *APIError) WithCause(err error) *APIError {
	e.Err = err
	return e
}

// ErrorTypeForStatus maps a provider HTTP status to an error category.
func ErrorTypeForStatus(status int) ErrorType {
	switch {
	case status == http.StatusUnauthorized:
		return ErrorTypeAuthentication
	case status == http.StatusForbidden:
		return ErrorTypePermission
	case status == http.StatusNotFound:
		return ErrorTypeNotFound
	case status == http.StatusTooManyRequests:
		return ErrorTypeRateLimit
	case status == http.StatusServiceUnavailable:
		return ErrorTypeOverloaded
	case status == http.StatusGatewayTimeout || status == http.StatusRequestTimeout:
		return ErrorTypeTimeout
	case status >= 500:
		return ErrorTypeServer
	default:
		return ErrorTypeInvalidRequest
	}
}

// Convenience constructors for common errors

// ErrAuthentication creates an authentication error.
func ErrAuthentication(message string) *APIError {
	return NewAPIError(ErrorTypeAuthentication, message).
		WithCode(ErrorCodeInvalidAPIKey)
}

// ErrRateLimit creates a rate limit error.
func ErrRateLimit(message string) *APIError {
	return NewAPIError(ErrorTypeRateLimit, message).
		WithCode(ErrorCodeRateLimitExceeded)
}

// ErrTimeout creates a timeout error.
func ErrTimeout(message string) *APIError {
	return NewAPIError(ErrorTypeTimeout, message)
}

// ErrTransport creates a transport error.
func ErrTransport(message string) *APIError {
	return NewAPIError(ErrorTypeTransport, message)
}

// ErrCanceled creates an error for a caller whose context ended before the
// provider answered. cause is the context's error.
func ErrCanceled(cause error) *APIError {
	msg := "request canceled before the provider responded"
	if errors.Is(cause, context.DeadlineExceeded) {
		msg = "request deadline passed before the provider responded"
	}
	return NewAPIError(ErrorTypeCanceled, msg).WithCause(cause)
}

// ErrConfiguration creates a configuration error wrapping ErrMissingCredential.
func ErrConfiguration() *APIError {
	return NewAPIError(ErrorTypeConfiguration, ErrMissingCredential.Error()).
		WithCode(ErrorCodeMissingAPIKey).
		WithCause(ErrMissingCredential)
}

// Describe returns the human-readable part of err for display.
func Describe(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return err.Error()
}
