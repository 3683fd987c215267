// Package lockout tracks consecutive failed logins per email and locks the
// email out for a cooldown once a threshold is reached.
package lockout

import (
	"context"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
)

type entry struct {
	failures    int
	lockedUntil time.Time
}

// Store is an in-process lockout store. Entries expire from the cache one
// cooldown after the last failure. A zero maxAttempts disables it.
type Store struct {
	mu       sync.Mutex
	cache    *cache.Cache
	max      int
	cooldown time.Duration
	now      func() time.Time
}

func NewStore(maxAttempts int, cooldown time.Duration) *Store {
	if cooldown <= 0 {
		cooldown = 15 * time.Minute
	}
	return &Store{
		cache:    cache.New(cooldown, cooldown),
		max:      maxAttempts,
		cooldown: cooldown,
		now:      time.Now,
	}
}

// IsLocked reports whether email is locked and for how much longer.
func (s *Store) IsLocked(_ context.Context, email string) (bool, time.Duration) {
	if s.max <= 0 {
		return false, 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.cache.Get(email)
	if !ok {
		return false, 0
	}
	e := v.(entry)
	now := s.now()
	if now.Before(e.lockedUntil) {
		return true, e.lockedUntil.Sub(now)
	}
	return false, 0
}

// RecordFailure counts a failed attempt and locks email once the count
// reaches the threshold. A failure after an elapsed lock starts a new count.
func (s *Store) RecordFailure(_ context.Context, email string) {
	if s.max <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var e entry
	if v, ok := s.cache.Get(email); ok {
		e = v.(entry)
	}

	now := s.now()
	if !e.lockedUntil.IsZero() && !now.Before(e.lockedUntil) {
		e = entry{}
	}
	e.failures++
	if e.failures >= s.max {
		e.lockedUntil = now.Add(s.cooldown)
	}
	s.cache.Set(email, e, cache.DefaultExpiration)
}

// RecordSuccess clears the failure count for email.
func (s *Store) RecordSuccess(_ context.Context, email string) {
	if s.max <= 0 {
		return
	}
	s.cache.Delete(email)
}
