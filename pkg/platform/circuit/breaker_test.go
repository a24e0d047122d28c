package circuit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBreaker_OpensAfterFailureThreshold(t *testing.T) {
	b := New("test", WithFailureThreshold(3))

	for i := 0; i < 2; i++ {
		open, change := b.RecordFailure()
		assert.False(t, open)
		assert.False(t, change.Opened)
	}
	open, change := b.RecordFailure()
	assert.True(t, open)
	assert.True(t, change.Opened)
	assert.True(t, b.IsOpen())
}

func TestBreaker_SuccessResetsFailureCount(t *testing.T) {
	b := New("test", WithFailureThreshold(2))

	b.RecordFailure()
	b.RecordSuccess()
	open, _ := b.RecordFailure()
	assert.False(t, open)
	assert.False(t, b.IsOpen())
}

func TestBreaker_AllowAdmitsOneProbePerCooldown(t *testing.T) {
	clock := time.Now()
	b := New("test", WithFailureThreshold(1), WithCooldown(time.Minute))
	b.now = func() time.Time { return clock }

	assert.True(t, b.Allow())

	b.RecordFailure()
	require.True(t, b.IsOpen())

	assert.False(t, b.Allow())

	clock = clock.Add(30 * time.Second)
	assert.False(t, b.Allow())

	clock = clock.Add(31 * time.Second)
	assert.True(t, b.Allow(), "probe admitted once the cooldown elapses")
	assert.False(t, b.Allow(), "window re-arms after granting a probe")

	clock = clock.Add(time.Minute)
	assert.True(t, b.Allow())
}

func TestBreaker_ProbeSuccessesCloseCircuit(t *testing.T) {
	clock := time.Now()
	b := New("test", WithFailureThreshold(1), WithSuccessThreshold(2), WithCooldown(time.Minute))
	b.now = func() time.Time { return clock }

	b.RecordFailure()
	require.True(t, b.IsOpen())

	closed, change := b.RecordSuccess()
	assert.False(t, closed)
	assert.False(t, change.Closed)

	closed, change = b.RecordSuccess()
	assert.True(t, closed)
	assert.True(t, change.Closed)
	assert.False(t, b.IsOpen())
	assert.True(t, b.Allow())
}

func TestBreaker_Reset(t *testing.T) {
	b := New("test", WithFailureThreshold(1))

	b.RecordFailure()
	require.True(t, b.IsOpen())

	b.Reset()
	assert.False(t, b.IsOpen())
	assert.True(t, b.Allow())
}
