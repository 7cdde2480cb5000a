package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrorType classifies provider failures.
type ErrorType string

const (
	ErrorTypeUnknown           ErrorType = "unknown"
	ErrorTypeInvalidRequest    ErrorType = "invalid_request"
	ErrorTypeAuthentication    ErrorType = "authentication_error"
	ErrorTypePermission        ErrorType = "permission_error"
	ErrorTypeNotFound          ErrorType = "not_found"
	ErrorTypeRateLimit         ErrorType = "rate_limit_exceeded"
	ErrorTypeInsufficientQuota ErrorType = "insufficient_quota"
	ErrorTypeInvalidModel      ErrorType = "invalid_model"
	ErrorTypeContextLength     ErrorType = "context_length_exceeded"
	ErrorTypeContentFilter     ErrorType = "content_filter"
	ErrorTypeServerError       ErrorType = "server_error"
	ErrorTypeTimeout           ErrorType = "timeout"
	ErrorTypeConnectionError   ErrorType = "connection_error"
	ErrorTypeCanceled          ErrorType = "canceled"
)

// LLMError is the normalised error returned by every provider adapter.
type LLMError struct {
	Type       ErrorType `json:"type"`
	Message    string    `json:"message"`
	Code       string    `json:"code,omitempty"`
	Provider   Provider  `json:"provider"`
	Model      string    `json:"model,omitempty"`
	HTTPStatus int       `json:"http_status,omitempty"`
	RetryAfter int       `json:"retry_after,omitempty"` // seconds
	Cause      error     `json:"-"`
}

func (e *LLMError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s [%s]: %s", e.Provider, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

func (e *LLMError) Unwrap() error { return e.Cause }

// Retryable reports whether the failure is transient.
func (e *LLMError) Retryable() bool { return e.Type.retryable() }

func (t ErrorType) retryable() bool {
	switch t {
	case ErrorTypeRateLimit, ErrorTypeServerError, ErrorTypeTimeout, ErrorTypeConnectionError:
		return true
	}
	return false
}

// NewLLMError builds an LLMError without an underlying cause.
func NewLLMError(provider Provider, errorType ErrorType, message string) *LLMError {
	return &LLMError{Type: errorType, Message: message, Provider: provider}
}

// NewLLMErrorWithCause builds an LLMError wrapping cause.
func NewLLMErrorWithCause(provider Provider, errorType ErrorType, message string, cause error) *LLMError {
	err := NewLLMError(provider, errorType, message)
	err.Cause = cause
	return err
}

var statusTypes = map[int]struct {
	typ ErrorType
	msg string
}{
	http.StatusBadRequest:          {ErrorTypeInvalidRequest, "invalid request parameters"},
	http.StatusUnauthorized:        {ErrorTypeAuthentication, "invalid API key or authentication failed"},
	http.StatusForbidden:           {ErrorTypePermission, "permission denied"},
	http.StatusNotFound:            {ErrorTypeNotFound, "resource not found"},
	http.StatusTooManyRequests:     {ErrorTypeRateLimit, "rate limit exceeded"},
	http.StatusInternalServerError: {ErrorTypeServerError, "server error"},
	http.StatusBadGateway:          {ErrorTypeServerError, "server error"},
	http.StatusServiceUnavailable:  {ErrorTypeServerError, "server error"},
	http.StatusGatewayTimeout:      {ErrorTypeServerError, "server error"},
}

// ParseHTTPError maps an HTTP status and response body to an LLMError.
// Body patterns take precedence over the status code.
func ParseHTTPError(provider Provider, statusCode int, body string) *LLMError {
	if typ, msg, ok := classifyBody(body); ok {
		return &LLMError{Type: typ, Message: msg, Provider: provider, HTTPStatus: statusCode}
	}
	e := &LLMError{Type: ErrorTypeUnknown, Message: fmt.Sprintf("HTTP %d error", statusCode), Provider: provider, HTTPStatus: statusCode}
	if st, ok := statusTypes[statusCode]; ok {
		e.Type, e.Message = st.typ, st.msg
	}
	if body != "" {
		e.Message = e.Message + ": " + truncate(body, 200)
	}
	return e
}

var bodyPatterns = []struct {
	needles []string
	typ     ErrorType
	msg     string
}{
	{[]string{"rate limit", "too many requests"}, ErrorTypeRateLimit, "rate limit exceeded"},
	{[]string{"insufficient quota", "quota exceeded"}, ErrorTypeInsufficientQuota, "insufficient quota or credits"},
	{[]string{"context length", "token limit", "maximum context"}, ErrorTypeContextLength, "context length exceeded"},
	{[]string{"content filter", "content_policy"}, ErrorTypeContentFilter, "content filtered by safety system"},
	{[]string{"model_not_found", "does not exist", "invalid model"}, ErrorTypeInvalidModel, "invalid or unavailable model"},
}

func classifyBody(body string) (ErrorType, string, bool) {
	lower := strings.ToLower(body)
	for _, p := range bodyPatterns {
		for _, n := range p.needles {
			if strings.Contains(lower, n) {
				return p.typ, p.msg, true
			}
		}
	}
	return "", "", false
}

// ClassifyTransportError converts a non-API error (context, network) into an
// LLMError for the given provider.
func ClassifyTransportError(provider Provider, err error) *LLMError {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return NewLLMErrorWithCause(provider, ErrorTypeTimeout, "request timeout", err)
	case errors.Is(err, context.Canceled):
		return NewLLMErrorWithCause(provider, ErrorTypeCanceled, "request canceled", err)
	}
	lower := strings.ToLower(err.Error())
	if strings.Contains(lower, "connection") || strings.Contains(lower, "network") || strings.Contains(lower, "no such host") {
		return NewLLMErrorWithCause(provider, ErrorTypeConnectionError, "connection error", err)
	}
	return NewLLMErrorWithCause(provider, ErrorTypeUnknown, err.Error(), err)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// AsLLMError unwraps err to an *LLMError.
func AsLLMError(err error) (*LLMError, bool) {
	var llmErr *LLMError
	if errors.As(err, &llmErr) {
		return llmErr, true
	}
	return nil, false
}

// IsRetryableError reports whether err is a transient provider failure.
func IsRetryableError(err error) bool {
	if llmErr, ok := AsLLMError(err); ok {
		return llmErr.Retryable()
	}
	return false
}

// IsAuthenticationError reports whether err is a credential failure.
func IsAuthenticationError(err error) bool {
	if llmErr, ok := AsLLMError(err); ok {
		return llmErr.Type == ErrorTypeAuthentication
	}
	return false
}
