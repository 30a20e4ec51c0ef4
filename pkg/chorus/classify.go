package chorus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"
	"syscall"
)

// errorEnvelope is the API's best-effort structured error body.
type errorEnvelope struct {
	Message string       `json:"message"`
	Code    string       `json:"code"`
	Errors  []FieldError `json:"errors"`
	Detail  string       `json:"detail"`
}

// classifyStatus maps a non-2xx HTTP response to a typed error. Field-level
// validation failures in the body take precedence over the generic API kind;
// 429 is always surfaced as rate limiting, regardless of the retryable set.
func classifyStatus(policy *RetryPolicy, status int, body []byte, retryAfter string) *Error {
	env := parseErrorEnvelope(body)

	message := env.Message
	if message == "" {
		message = env.Detail
	}
	if message == "" {
		message = http.StatusText(status)
	}

	var cerr *Error
	switch {
	case len(env.Errors) > 0:
		cerr = NewError(message, ErrCodeValidation)
		cerr.FieldErrors = env.Errors
	case status == http.StatusTooManyRequests:
		cerr = NewError(message, ErrCodeRateLimit)
		if d, ok := ParseRetryAfter(retryAfter); ok {
			cerr.RetryAfter = d
		}
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		cerr = NewError(message, ErrCodeAuthFailed)
	default:
		cerr = NewError(message, ErrCodeAPI)
	}

	cerr.StatusCode = status
	cerr.APICode = env.Code
	cerr.Body = body
	cerr.Retryable = policy.retryableStatus(status)
	return cerr
}

// classifyTransport maps a connection-level failure (no HTTP response) to a
// typed error. Timeouts, DNS failures, refused and reset connections are
// retryable when the policy opts in; anything else is not.
func classifyTransport(policy *RetryPolicy, err error) *Error {
	var cerr *Error
	switch {
	case errors.Is(err, context.Canceled):
		cerr = NewCancelledError(err)
	case errors.Is(err, context.DeadlineExceeded) || isTimeout(err):
		cerr = WrapError(err, ErrCodeTimeout)
		cerr.Retryable = policy.RetryConnectionErrors
	case isConnectionError(err):
		cerr = WrapError(err, ErrCodeNoConnection)
		cerr.Retryable = policy.RetryConnectionErrors
	default:
		cerr = WrapError(err, ErrCodeUnknown)
	}
	return cerr
}

func isTimeout(err error) bool {
	var nerr net.Error
	if errors.As(err, &nerr) {
		return nerr.Timeout()
	}
	return errors.Is(err, os.ErrDeadlineExceeded)
}

func isConnectionError(err error) bool {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.EPIPE) {
		return true
	}
	// The net package does not expose every reset path as a syscall errno.
	return strings.Contains(err.Error(), "connection refused") ||
		strings.Contains(err.Error(), "connection reset")
}

func parseErrorEnvelope(body []byte) errorEnvelope {
	var env errorEnvelope
	if len(body) == 0 {
		return env
	}
	if err := json.Unmarshal(body, &env); err != nil {
		// Not a structured envelope; use the raw body as the message.
		env.Message = strings.TrimSpace(string(body))
	}
	return env
}

// invalidResponseError covers a 2xx whose body cannot be used as promised.
func invalidResponseError(err error) *Error {
	return WrapError(fmt.Errorf("invalid response body: %w", err), ErrCodeInvalidResponse)
}
