// Package history keeps a per-user rolling log of recent decisions,
// used by the cooldown and fatigue checks.
package history

import (
	"sync"
	"time"
)

// Window bounds how long entries are retained. Every write prunes the
// user's log to this window, so it is always a rolling 24h slice in
// chronological order.
const Window = 24 * time.Hour

// Entry is one recorded decision for a user.
type Entry struct {
	At             time.Time
	EventType      string
	NotificationID string
	Decision       string
}

// Stats counts a user's recent recorded decisions.
type Stats struct {
	LastHour int
	LastDay  int
}

type Store struct {
	mu    sync.Mutex
	users map[string][]Entry
	now   func() time.Time
}

func New() *Store {
	return &Store{
		users: map[string][]Entry{},
		now:   time.Now,
	}
}

// SetClock overrides the store's time source for deterministic tests.
func (s *Store) SetClock(now func() time.Time) { s.now = now }

// Record appends an entry and prunes the user's log to the rolling
// window. Pruning happens on every write, never on a schedule.
func (s *Store) Record(userID string, e Entry) {
	now := s.now()
	if e.At.IsZero() {
		e.At = now
	}
	cutoff := now.Add(-Window)

	s.mu.Lock()
	defer s.mu.Unlock()

	log := append(s.users[userID], e)
	// Entries are chronological, so find the first one inside the
	// window and drop everything before it.
	keep := 0
	for keep < len(log) && !log[keep].At.After(cutoff) {
		keep++
	}
	if keep > 0 {
		log = append([]Entry(nil), log[keep:]...)
	}
	s.users[userID] = log
}

// RecentStats counts entries newer than one hour and one day.
func (s *Store) RecentStats(userID string) Stats {
	now := s.now()
	hourCutoff := now.Add(-time.Hour)
	dayCutoff := now.Add(-Window)

	s.mu.Lock()
	defer s.mu.Unlock()

	var st Stats
	for _, e := range s.users[userID] {
		if e.At.After(dayCutoff) {
			st.LastDay++
			if e.At.After(hourCutoff) {
				st.LastHour++
			}
		}
	}
	return st
}

// CooldownRemaining returns the whole seconds left before another
// event of this type may be sent to the user, or 0 when the cooldown
// is unset, elapsed, or no prior entry of the type exists.
func (s *Store) CooldownRemaining(userID, eventType string, cooldownSeconds int) int {
	if cooldownSeconds <= 0 {
		return 0
	}
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	log := s.users[userID]
	for i := len(log) - 1; i >= 0; i-- {
		if log[i].EventType != eventType {
			continue
		}
		elapsed := int(now.Sub(log[i].At).Seconds())
		if remaining := cooldownSeconds - elapsed; remaining > 0 {
			return remaining
		}
		return 0
	}
	return 0
}

// Recent returns up to n of the user's entries, newest first.
func (s *Store) Recent(userID string, n int) []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	log := s.users[userID]
	if n > len(log) {
		n = len(log)
	}
	out := make([]Entry, 0, n)
	for i := len(log) - 1; i >= len(log)-n; i-- {
		out = append(out, log[i])
	}
	return out
}
