package chorus

import (
	"context"
	"errors"
	"net"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyStatus_ServerError(t *testing.T) {
	p := DefaultRetryPolicy()
	cerr := classifyStatus(p, 500, []byte(`{"message":"upstream exploded","code":"E_UPSTREAM"}`), "")

	assert.Equal(t, ErrCodeAPI, cerr.Code)
	assert.Equal(t, 500, cerr.StatusCode)
	assert.Equal(t, "upstream exploded", cerr.Message)
	assert.Equal(t, "E_UPSTREAM", cerr.APICode)
	assert.True(t, cerr.Retryable)
}

func TestClassifyStatus_NotRetryable(t *testing.T) {
	p := DefaultRetryPolicy()
	cerr := classifyStatus(p, 404, nil, "")

	assert.Equal(t, ErrCodeAPI, cerr.Code)
	assert.False(t, cerr.Retryable)
	assert.Equal(t, "Not Found", cerr.Message)
}

func TestClassifyStatus_AuthStatuses(t *testing.T) {
	p := DefaultRetryPolicy()
	for _, status := range []int{401, 403} {
		cerr := classifyStatus(p, status, nil, "")
		assert.Equal(t, ErrCodeAuthFailed, cerr.Code, "status %d", status)
		assert.False(t, cerr.Retryable)
	}
}

func TestClassifyStatus_RateLimitWithRetryAfter(t *testing.T) {
	p := DefaultRetryPolicy()
	cerr := classifyStatus(p, 429, []byte(`{"message":"slow down"}`), "7")

	assert.Equal(t, ErrCodeRateLimit, cerr.Code)
	assert.Equal(t, 7*time.Second, cerr.RetryAfter)
	assert.True(t, cerr.Retryable)
}

func TestClassifyStatus_FieldErrorsWin(t *testing.T) {
	p := DefaultRetryPolicy()
	body := []byte(`{"message":"invalid request","errors":[{"field":"voice","message":"unknown voice","code":"E_VOICE"}]}`)
	cerr := classifyStatus(p, 400, body, "")

	assert.Equal(t, ErrCodeValidation, cerr.Code)
	require.Len(t, cerr.FieldErrors, 1)
	assert.Equal(t, "voice", cerr.FieldErrors[0].Field)
	assert.Contains(t, cerr.Error(), "unknown voice")
	assert.False(t, cerr.Retryable)
}

func TestClassifyStatus_DetailFallback(t *testing.T) {
	p := DefaultRetryPolicy()
	cerr := classifyStatus(p, 422, []byte(`{"detail":"unprocessable"}`), "")
	assert.Equal(t, "unprocessable", cerr.Message)
}

func TestClassifyStatus_UnstructuredBody(t *testing.T) {
	p := DefaultRetryPolicy()
	cerr := classifyStatus(p, 503, []byte("Service Unavailable\n"), "")
	assert.Equal(t, "Service Unavailable", cerr.Message)
	assert.True(t, cerr.Retryable)
}

func TestClassifyTransport_Cancelled(t *testing.T) {
	p := DefaultRetryPolicy()
	cerr := classifyTransport(p, context.Canceled)
	assert.Equal(t, ErrCodeCancelled, cerr.Code)
	assert.False(t, cerr.Retryable)
}

func TestClassifyTransport_Timeout(t *testing.T) {
	p := DefaultRetryPolicy()
	cerr := classifyTransport(p, context.DeadlineExceeded)
	assert.Equal(t, ErrCodeTimeout, cerr.Code)
	assert.True(t, cerr.Retryable)

	p.RetryConnectionErrors = false
	cerr = classifyTransport(p, context.DeadlineExceeded)
	assert.False(t, cerr.Retryable)
}

func TestClassifyTransport_ConnectionErrors(t *testing.T) {
	p := DefaultRetryPolicy()

	dnsErr := &net.DNSError{Err: "no such host", Name: "api.invalid"}
	cerr := classifyTransport(p, dnsErr)
	assert.Equal(t, ErrCodeNoConnection, cerr.Code)
	assert.True(t, cerr.Retryable)

	refused := &net.OpError{Op: "dial", Err: syscall.ECONNREFUSED}
	cerr = classifyTransport(p, refused)
	assert.Equal(t, ErrCodeNoConnection, cerr.Code)
	assert.True(t, cerr.Retryable)

	reset := &net.OpError{Op: "read", Err: syscall.ECONNRESET}
	cerr = classifyTransport(p, reset)
	assert.Equal(t, ErrCodeNoConnection, cerr.Code)

	broken := &net.OpError{Op: "write", Err: syscall.EPIPE}
	cerr = classifyTransport(p, broken)
	assert.Equal(t, ErrCodeNoConnection, cerr.Code)
}

func TestClassifyTransport_OtherReadErrorsAreUnknown(t *testing.T) {
	p := DefaultRetryPolicy()

	// Read-side failures that are not refused/reset/timeout stay unknown
	// and unretryable instead of being lumped in with connection loss.
	closed := &net.OpError{Op: "read", Err: errors.New("use of closed network connection")}
	cerr := classifyTransport(p, closed)
	assert.Equal(t, ErrCodeUnknown, cerr.Code)
	assert.False(t, cerr.Retryable)
}

func TestClassifyTransport_UnknownNotRetryable(t *testing.T) {
	p := DefaultRetryPolicy()
	cerr := classifyTransport(p, errors.New("something odd"))
	assert.Equal(t, ErrCodeUnknown, cerr.Code)
	assert.False(t, cerr.Retryable)
}

func TestErrorHelpers(t *testing.T) {
	cerr := NewError("boom", ErrCodeAPI).AddDetail("endpoint", "/v1/tts")

	assert.True(t, IsErrorCode(cerr, ErrCodeAPI))
	assert.False(t, IsErrorCode(cerr, ErrCodeTimeout))
	assert.False(t, IsErrorCode(nil, ErrCodeAPI))

	v, ok := cerr.GetDetail("endpoint")
	require.True(t, ok)
	assert.Equal(t, "/v1/tts", v)

	wrapped := WrapError(errors.New("inner"), ErrCodeDecodeFailed)
	assert.Equal(t, ErrCodeDecodeFailed, wrapped.Code)
	assert.EqualError(t, errors.Unwrap(wrapped), "inner")

	// Wrapping an existing chorus error keeps it untouched.
	again := WrapError(cerr, ErrCodeUnknown)
	assert.Same(t, cerr, again)
}
