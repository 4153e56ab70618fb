package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func newTestRegistrationLock(now *time.Time) *registrationLockService {
	return &registrationLockService{
		entries: make(map[string]registrationEntry),
		timeout: 120 * time.Second,
		now:     func() time.Time { return *now },
	}
}

func TestRegistrationLockTryAcquire(t *testing.T) {
	now := time.Now()
	locks := newTestRegistrationLock(&now)

	assert.True(t, locks.TryAcquire("0xactor", "pledge-1"))

	t.Run("same actor is rejected while held", func(t *testing.T) {
		assert.False(t, locks.TryAcquire("0xactor", "pledge-1"))
		assert.False(t, locks.TryAcquire("0xactor", "pledge-2"))
	})

	t.Run("other actors are unaffected", func(t *testing.T) {
		assert.True(t, locks.TryAcquire("0xother", "pledge-1"))
	})
}

func TestRegistrationLockRelease(t *testing.T) {
	now := time.Now()
	locks := newTestRegistrationLock(&now)

	assert.True(t, locks.TryAcquire("0xactor", "pledge-1"))
	locks.Release("0xactor")
	assert.True(t, locks.TryAcquire("0xactor", "pledge-2"))
}

func TestRegistrationLockExpiryReclamation(t *testing.T) {
	now := time.Now()
	locks := newTestRegistrationLock(&now)

	assert.True(t, locks.TryAcquire("0xactor", "pledge-1"))

	// Just inside the timeout the entry still blocks.
	now = now.Add(120 * time.Second)
	assert.False(t, locks.TryAcquire("0xactor", "pledge-2"))

	// Past the timeout a stale entry from a crashed request is reclaimed.
	now = now.Add(time.Second)
	assert.True(t, locks.TryAcquire("0xactor", "pledge-2"))
}
