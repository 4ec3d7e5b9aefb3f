package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBackoffDelay_Bounds(t *testing.T) {
	base := 100 * time.Millisecond
	maxDelay := time.Second

	tests := []struct {
		attempt int
		ceiling time.Duration
	}{
		{0, 100 * time.Millisecond},
		{1, 200 * time.Millisecond},
		{3, 800 * time.Millisecond},
		{4, time.Second},
		{62, time.Second},
	}

	for _, tt := range tests {
		for i := 0; i < 50; i++ {
			d := backoffDelay(base, maxDelay, tt.attempt)
			assert.GreaterOrEqual(t, d, tt.ceiling/2, "attempt %d", tt.attempt)
			assert.LessOrEqual(t, d, tt.ceiling, "attempt %d", tt.attempt)
		}
	}
}

func TestBackoffDelay_ZeroBase(t *testing.T) {
	assert.Equal(t, time.Duration(0), backoffDelay(0, 0, 3))
}

func TestBackoffDelay_LargeBaseDoesNotOverflow(t *testing.T) {
	base := 10 * time.Minute
	maxDelay := time.Hour

	for _, attempt := range []int{2, 30, 40, 1000} {
		d := backoffDelay(base, maxDelay, attempt)
		assert.GreaterOrEqual(t, d, maxDelay/2, "attempt %d", attempt)
		assert.LessOrEqual(t, d, maxDelay, "attempt %d", attempt)
	}
}

func TestBackoffDelay_BaseAboveCap(t *testing.T) {
	d := backoffDelay(time.Minute, time.Second, 0)
	assert.GreaterOrEqual(t, d, 500*time.Millisecond)
	assert.LessOrEqual(t, d, time.Second)
}
