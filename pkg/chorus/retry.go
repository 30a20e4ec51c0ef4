package chorus

import (
	"math"
	"math/rand"
	"strconv"
	"time"
)

// retryAfterCeiling bounds any server-supplied Retry-After so a misbehaving
// server cannot park a call indefinitely.
const retryAfterCeiling = 30 * time.Second

// RetryPolicy configures backoff for the HTTP executor. Policies are
// immutable once created and safe to share across concurrent calls.
type RetryPolicy struct {
	// MaxAttempts is the maximum number of attempts (including the first).
	MaxAttempts int
	// InitialDelay is the delay before the first retry.
	InitialDelay time.Duration
	// MaxDelay caps the computed delay for any single retry.
	MaxDelay time.Duration
	// MaxElapsed is the hard ceiling on total wall-clock time for a call.
	MaxElapsed time.Duration
	// Multiplier is the exponential backoff factor.
	Multiplier float64
	// Jitter is the symmetric random perturbation fraction (0.0 to 1.0).
	Jitter float64
	// RetryableStatuses is the set of HTTP status codes worth retrying.
	RetryableStatuses map[int]bool
	// RetryConnectionErrors enables retry of timeouts, DNS failures and
	// refused/reset connections.
	RetryConnectionErrors bool
}

// DefaultRetryPolicy returns the policy used when the client config does not
// supply one.
func DefaultRetryPolicy() *RetryPolicy {
	return &RetryPolicy{
		MaxAttempts:  3,
		InitialDelay: 500 * time.Millisecond,
		MaxDelay:     10 * time.Second,
		MaxElapsed:   60 * time.Second,
		Multiplier:   2.0,
		Jitter:       0.1,
		RetryableStatuses: map[int]bool{
			408: true, 429: true, 500: true, 502: true, 503: true, 504: true,
		},
		RetryConnectionErrors: true,
	}
}

// Delay computes the backoff before retry number attempt (1-based).
// The jittered value can land at exactly zero; that is an accepted boundary,
// the clamp only guards against a negative duration.
func (p *RetryPolicy) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	base := float64(p.InitialDelay) * math.Pow(p.Multiplier, float64(attempt-1))
	if base > float64(p.MaxDelay) {
		base = float64(p.MaxDelay)
	}
	if p.Jitter > 0 {
		base += base * p.Jitter * (rand.Float64()*2 - 1)
	}
	if base < 0 {
		base = 0
	}
	return time.Duration(base)
}

func (p *RetryPolicy) retryableStatus(status int) bool {
	return p.RetryableStatuses[status]
}

// ShouldRetry decides whether the call tracked by state gets another attempt.
// Checks run in a fixed order: attempt budget, elapsed budget, then the
// classification of the last error.
func (p *RetryPolicy) ShouldRetry(state *RetryState) bool {
	if state.Attempts >= p.MaxAttempts {
		return false
	}
	if p.MaxElapsed > 0 && time.Since(state.Start) >= p.MaxElapsed {
		return false
	}
	return IsRetryable(state.LastErr)
}

// RetryState is the mutable per-call log. One call owns one state; it is
// never shared across calls.
type RetryState struct {
	Attempts int
	Start    time.Time
	LastErr  error
}

func NewRetryState() *RetryState {
	return &RetryState{Start: time.Now()}
}

// Record logs a failed attempt.
func (s *RetryState) Record(err error) {
	s.Attempts++
	s.LastErr = err
}

// retryAfterFormats are the three HTTP-date layouts a Retry-After header may
// use, tried in order after the integer form.
var retryAfterFormats = []string{
	time.RFC1123,
	time.RFC850,
	time.ANSIC,
}

// ParseRetryAfter parses a Retry-After header value as either an integer
// seconds count or an HTTP-date. A date in the past yields zero. The second
// return value is false when the input is empty or unparseable.
func ParseRetryAfter(value string) (time.Duration, bool) {
	if value == "" {
		return 0, false
	}
	if secs, err := strconv.Atoi(value); err == nil {
		if secs < 0 {
			return 0, false
		}
		return time.Duration(secs) * time.Second, true
	}
	for _, layout := range retryAfterFormats {
		if at, err := time.Parse(layout, value); err == nil {
			d := time.Until(at)
			if d < 0 {
				d = 0
			}
			return d, true
		}
	}
	return 0, false
}

// capRetryAfter applies the fixed ceiling to a server-supplied delay.
func capRetryAfter(d time.Duration) time.Duration {
	if d > retryAfterCeiling {
		return retryAfterCeiling
	}
	return d
}
