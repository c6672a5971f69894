package testutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFrozenClock_AdvancesByStep(t *testing.T) {
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := NewFrozenClock(base, 10*time.Millisecond)

	assert.Equal(t, base, clock.Now())
	assert.Equal(t, base.Add(10*time.Millisecond), clock.Now())
	assert.Equal(t, base.Add(20*time.Millisecond), clock.Now())
}

func TestFrozenClock_Reset(t *testing.T) {
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := NewFrozenClock(base, time.Second)

	clock.Now()
	clock.Now()
	clock.Reset()
	assert.Equal(t, base, clock.Now())
}

func TestFrozenClock_TwoClocksAgree(t *testing.T) {
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	a := NewFrozenClock(base, 5*time.Millisecond)
	b := NewFrozenClock(base, 5*time.Millisecond)

	for i := 0; i < 50; i++ {
		assert.Equal(t, a.Now(), b.Now())
	}
}
