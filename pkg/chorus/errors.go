package chorus

import (
	"fmt"
	"strings"
	"time"
)

// Error codes as constants. This is the complete set the SDK surfaces;
// every failure a caller sees carries exactly one of these.
const (
	ErrCodeAPI             = "API_ERROR"
	ErrCodeValidation      = "VALIDATION_ERROR"
	ErrCodeRateLimit       = "RATE_LIMITED"
	ErrCodeTimeout         = "TIMEOUT"
	ErrCodeNoConnection    = "NO_CONNECTION"
	ErrCodeWSSendFailed    = "WEBSOCKET_SEND_FAILED"
	ErrCodeWSDisconnected  = "WEBSOCKET_DISCONNECTED"
	ErrCodeWSProtocol      = "WEBSOCKET_PROTOCOL_ERROR"
	ErrCodeEncodeFailed    = "ENCODE_FAILED"
	ErrCodeDecodeFailed    = "DECODE_FAILED"
	ErrCodeInvalidResponse = "INVALID_RESPONSE"
	ErrCodeAuthFailed      = "AUTH_FAILED"
	ErrCodeConfigInvalid   = "CONFIG_INVALID"
	ErrCodeCancelled       = "CANCELLED"
	ErrCodeUnknown         = "UNKNOWN_ERROR"
)

// FieldError is a single field-level validation failure reported by the API.
type FieldError struct {
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// Error is the SDK's structured error. Code is always one of the ErrCode
// constants; StatusCode is set for HTTP failures, FieldErrors for
// validation failures, RetryAfter for rate limiting when the server said so.
type Error struct {
	Message     string
	Code        string
	StatusCode  int
	APICode     string
	Body        []byte
	FieldErrors []FieldError
	RetryAfter  time.Duration
	Retryable   bool
	Timestamp   time.Time
	Details     map[string]interface{}
	err         error
}

func NewError(message, code string) *Error {
	return &Error{
		Message:   message,
		Code:      code,
		Timestamp: time.Now(),
	}
}

func (e *Error) Error() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s: %s", e.Code, e.Message))
	if e.StatusCode > 0 {
		sb.WriteString(fmt.Sprintf(" (HTTP %d)", e.StatusCode))
	}
	for _, fe := range e.FieldErrors {
		if fe.Field != "" {
			sb.WriteString(fmt.Sprintf("; %s: %s", fe.Field, fe.Message))
		} else {
			sb.WriteString("; " + fe.Message)
		}
	}
	return sb.String()
}

func (e *Error) Unwrap() error {
	return e.err
}

// AddDetail attaches contextual information to the error.
func (e *Error) AddDetail(key string, value interface{}) *Error {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

func (e *Error) GetDetail(key string) (interface{}, bool) {
	if e.Details == nil {
		return nil, false
	}
	value, exists := e.Details[key]
	return value, exists
}

// WrapError wraps any error as a chorus Error with the given code.
// If err already is a *Error it is returned unchanged.
func WrapError(err error, code string) *Error {
	if err == nil {
		return nil
	}
	if cerr, ok := err.(*Error); ok {
		return cerr
	}
	cerr := NewError(err.Error(), code)
	cerr.err = err
	return cerr
}

// IsErrorCode reports whether err is a chorus Error with the given code.
func IsErrorCode(err error, code string) bool {
	if err == nil {
		return false
	}
	if cerr, ok := err.(*Error); ok {
		return cerr.Code == code
	}
	return false
}

// IsRetryable reports whether the classifier marked err as retryable.
func IsRetryable(err error) bool {
	if cerr, ok := err.(*Error); ok {
		return cerr.Retryable
	}
	return false
}

// Specific error creators with common codes
func NewAuthError(message string) *Error {
	return NewError(message, ErrCodeAuthFailed)
}

func NewConfigError(message string) *Error {
	return NewError(message, ErrCodeConfigInvalid)
}

func NewEncodeError(err error) *Error {
	return WrapError(err, ErrCodeEncodeFailed)
}

func NewDecodeError(err error) *Error {
	return WrapError(err, ErrCodeDecodeFailed)
}

func NewCancelledError(err error) *Error {
	return WrapError(err, ErrCodeCancelled)
}

func NewDisconnectedError(message string) *Error {
	return NewError(message, ErrCodeWSDisconnected)
}
