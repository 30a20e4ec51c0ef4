package chorus

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func zeroJitterPolicy() *RetryPolicy {
	p := DefaultRetryPolicy()
	p.InitialDelay = time.Second
	p.MaxDelay = time.Minute
	p.Multiplier = 2.0
	p.Jitter = 0
	return p
}

func TestDelay_ExponentialSequence(t *testing.T) {
	p := zeroJitterPolicy()

	assert.Equal(t, time.Second, p.Delay(1))
	assert.Equal(t, 2*time.Second, p.Delay(2))
	assert.Equal(t, 4*time.Second, p.Delay(3))
	assert.Equal(t, 8*time.Second, p.Delay(4))
}

func TestDelay_CappedByMaxDelay(t *testing.T) {
	p := zeroJitterPolicy()
	p.MaxDelay = 3 * time.Second

	assert.Equal(t, 3*time.Second, p.Delay(3))
	assert.Equal(t, 3*time.Second, p.Delay(10))
}

func TestDelay_AlwaysNonNegativeAndBounded(t *testing.T) {
	p := DefaultRetryPolicy()
	p.Jitter = 1.0 // full symmetric jitter can drive a delay to zero; that
	// boundary is accepted, only negatives are forbidden

	for attempt := 1; attempt <= 20; attempt++ {
		for i := 0; i < 50; i++ {
			d := p.Delay(attempt)
			assert.GreaterOrEqual(t, d, time.Duration(0))
			// jitter at most doubles the capped base
			assert.LessOrEqual(t, d, 2*p.MaxDelay)
		}
	}
}

func retryableErr() *Error {
	e := NewError("boom", ErrCodeAPI)
	e.Retryable = true
	return e
}

func TestShouldRetry_AttemptBudget(t *testing.T) {
	p := zeroJitterPolicy()
	p.MaxAttempts = 3
	p.MaxElapsed = time.Hour

	state := NewRetryState()
	state.Record(retryableErr())
	assert.True(t, p.ShouldRetry(state))
	state.Record(retryableErr())
	assert.True(t, p.ShouldRetry(state))
	state.Record(retryableErr())
	// attempt count reached the budget even though the error is retryable
	assert.False(t, p.ShouldRetry(state))
}

func TestShouldRetry_ElapsedBudget(t *testing.T) {
	p := zeroJitterPolicy()
	p.MaxAttempts = 100
	p.MaxElapsed = 10 * time.Millisecond

	state := NewRetryState()
	state.Start = time.Now().Add(-time.Second)
	state.Record(retryableErr())
	assert.False(t, p.ShouldRetry(state))
}

func TestShouldRetry_NonRetryableError(t *testing.T) {
	p := zeroJitterPolicy()
	p.MaxAttempts = 10
	p.MaxElapsed = time.Hour

	state := NewRetryState()
	state.Record(NewError("bad request", ErrCodeValidation))
	assert.False(t, p.ShouldRetry(state))

	state = NewRetryState()
	state.Record(errors.New("plain error"))
	assert.False(t, p.ShouldRetry(state))
}

func TestRetryableStatus_DefaultSet(t *testing.T) {
	p := DefaultRetryPolicy()

	for _, code := range []int{500, 502, 503, 504, 408, 429} {
		assert.True(t, p.retryableStatus(code), "status %d should be retryable", code)
	}
	for _, code := range []int{400, 401, 403, 404} {
		assert.False(t, p.retryableStatus(code), "status %d should not be retryable", code)
	}
}

func TestParseRetryAfter_IntegerSeconds(t *testing.T) {
	d, ok := ParseRetryAfter("120")
	require.True(t, ok)
	assert.Equal(t, 120*time.Second, d)

	d, ok = ParseRetryAfter("0")
	require.True(t, ok)
	assert.Equal(t, time.Duration(0), d)
}

func TestParseRetryAfter_Rejects(t *testing.T) {
	for _, input := range []string{"", "abc", "1.5", "-3", "12s"} {
		_, ok := ParseRetryAfter(input)
		assert.False(t, ok, "input %q should be rejected", input)
	}
}

func TestParseRetryAfter_HTTPDates(t *testing.T) {
	future := time.Now().Add(10 * time.Second).UTC()

	for _, layout := range []string{time.RFC1123, time.RFC850, time.ANSIC} {
		d, ok := ParseRetryAfter(future.Format(layout))
		require.True(t, ok, "layout %s", layout)
		assert.Greater(t, d, 8*time.Second)
		assert.LessOrEqual(t, d, 10*time.Second)
	}
}

func TestParseRetryAfter_PastDateFlooredAtZero(t *testing.T) {
	past := time.Now().Add(-time.Hour).UTC()
	d, ok := ParseRetryAfter(past.Format(time.RFC1123))
	require.True(t, ok)
	assert.Equal(t, time.Duration(0), d)
}

func TestCapRetryAfter(t *testing.T) {
	assert.Equal(t, 5*time.Second, capRetryAfter(5*time.Second))
	assert.Equal(t, retryAfterCeiling, capRetryAfter(time.Hour))
}
