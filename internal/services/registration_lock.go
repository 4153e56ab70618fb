package services

import (
	"sync"
	"time"

	"github.com/fundmatch-labs/fundmatch/internal/constants"
)

// RegistrationLockService is the in-process per-actor lock used to fast-fail
// duplicate pledge registrations from the same wallet before any database
// work starts. It is an optimization only: it does not survive a process
// restart and is never the correctness guarantee, which comes from the
// advisory lock in ExecutionLockService. The interface allows swapping in a
// shared TTL store for multi-instance deployments.
type RegistrationLockService interface {
	// TryAcquire records actor as working on subject. Returns false while a
	// non-expired entry for the same actor exists.
	TryAcquire(actor, subject string) bool
	// Release drops the actor's entry.
	Release(actor string)
}

type registrationEntry struct {
	Subject    string
	AcquiredAt time.Time
}

type registrationLockService struct {
	mu      sync.Mutex
	entries map[string]registrationEntry
	timeout time.Duration
	now     func() time.Time
}

// NewRegistrationLockService creates a per-process registration lock with the
// standard 120s staleness timeout. Create one instance per process and inject
// it; expired entries are reclaimed lazily on the next TryAcquire.
func NewRegistrationLockService() RegistrationLockService {
	return &registrationLockService{
		entries: make(map[string]registrationEntry),
		timeout: constants.RegistrationLockTimeout,
		now:     time.Now,
	}
}

func (s *registrationLockService) TryAcquire(actor, subject string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.entries[actor]; ok {
		if s.now().Sub(existing.AcquiredAt) <= s.timeout {
			return false
		}
		// Stale entry from a crashed or abandoned request.
		delete(s.entries, actor)
	}

	s.entries[actor] = registrationEntry{Subject: subject, AcquiredAt: s.now()}
	return true
}

func (s *registrationLockService) Release(actor string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, actor)
}
