package circuit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBreakerOpensAfterThreshold(t *testing.T) {
	b := New("test", 3, time.Hour)

	for i := 0; i < 2; i++ {
		b.RecordFailure()
		assert.True(t, b.Allow())
	}
	b.RecordFailure()
	assert.Equal(t, StateOpen, b.State())
	assert.False(t, b.Allow())
}

func TestBreakerHalfOpenProbe(t *testing.T) {
	b := New("test", 1, 10*time.Millisecond)

	b.RecordFailure()
	assert.False(t, b.Allow())

	time.Sleep(20 * time.Millisecond)
	assert.True(t, b.Allow(), "expired cooldown allows one probe")
	assert.Equal(t, StateHalfOpen, b.State())

	b.RecordSuccess()
	assert.Equal(t, StateClosed, b.State())
}

func TestBreakerReopensOnHalfOpenFailure(t *testing.T) {
	b := New("test", 1, 10*time.Millisecond)

	b.RecordFailure()
	time.Sleep(20 * time.Millisecond)
	assert.True(t, b.Allow())

	b.RecordFailure()
	assert.Equal(t, StateOpen, b.State())
	assert.False(t, b.Allow())
}

func TestBreakerSuccessResetsFailures(t *testing.T) {
	b := New("test", 2, time.Hour)

	b.RecordFailure()
	b.RecordSuccess()
	b.RecordFailure()
	assert.Equal(t, StateClosed, b.State(), "non-consecutive failures never trip the breaker")
}
