// Package dedupe tracks recently-accepted notification fingerprints so
// repeats can be suppressed.
//
// Two independent namespaces apply: caller-supplied exact keys (1h
// window) and content fingerprints of user+type+message prefix (5m
// window). Entries record acceptance time; staleness is decided at
// lookup. A periodic Sweep bounds map growth.
package dedupe

import (
	"context"
	"fmt"
	"hash/fnv"
	"io"
	"strconv"
	"sync"
	"time"

	"notigate/pkg/logx"
)

const (
	// ExactWindow suppresses repeats of a caller-supplied dedupe key.
	ExactWindow = time.Hour
	// ContentWindow suppresses near-duplicate content.
	ContentWindow = 5 * time.Minute

	fingerprintPrefix = "hash_"
	messagePrefixLen  = 100
)

// Backend is an optional durable layer behind the in-memory map, so a
// restart does not resend recent duplicates.
type Backend interface {
	GetDedupe(ctx context.Context, key string) (acceptedAt time.Time, ok bool, err error)
	PutDedupe(ctx context.Context, key string, acceptedAt time.Time) error
	PruneDedupe(ctx context.Context, exactBefore, contentBefore time.Time) (int64, error)
}

// Store owns the dedupe map. All operations are atomic; callers never
// compose separate get/set calls.
type Store struct {
	mu      sync.Mutex
	entries map[string]time.Time // key -> last acceptance

	backend Backend
	log     logx.Logger
	now     func() time.Time
}

func New(backend Backend, log logx.Logger) *Store {
	return &Store{
		entries: map[string]time.Time{},
		backend: backend,
		log:     log,
		now:     time.Now,
	}
}

// SetClock overrides the store's time source for deterministic tests.
func (s *Store) SetClock(now func() time.Time) { s.now = now }

// Fingerprint hashes user, event type and the first 100 bytes of the
// message into the near-duplicate namespace.
func Fingerprint(userID, eventType, message string) string {
	if len(message) > messagePrefixLen {
		message = message[:messagePrefixLen]
	}
	h := fnv.New64a()
	_, _ = io.WriteString(h, userID)
	_, _ = io.WriteString(h, "|")
	_, _ = io.WriteString(h, eventType)
	_, _ = io.WriteString(h, "|")
	_, _ = io.WriteString(h, message)
	return fingerprintPrefix + strconv.FormatUint(h.Sum64(), 16)
}

// Check reports whether the event identified by exactKey (may be
// empty) or fingerprint was accepted within its window. The returned
// reason names the detection path and the age of the prior acceptance.
//
// Registration happens separately at record time, so two identical
// events racing between Check and Register can both pass; the window
// is microseconds and accepted as a known limitation.
func (s *Store) Check(exactKey, fingerprint string) (bool, string) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	if exactKey != "" {
		if at, ok := s.lookupLocked(exactKey); ok {
			if age := now.Sub(at); age < ExactWindow {
				return true, fmt.Sprintf("Exact duplicate key '%s' seen %ds ago", exactKey, int(age.Seconds()))
			}
		}
	}
	if at, ok := s.lookupLocked(fingerprint); ok {
		if age := now.Sub(at); age < ContentWindow {
			return true, fmt.Sprintf("Near-duplicate content seen %ds ago", int(age.Seconds()))
		}
	}
	return false, ""
}

// lookupLocked consults memory first, then the backend on a miss.
// Backend hits are cached so repeat lookups stay in memory.
func (s *Store) lookupLocked(key string) (time.Time, bool) {
	if at, ok := s.entries[key]; ok {
		return at, true
	}
	if s.backend == nil {
		return time.Time{}, false
	}
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	at, ok, err := s.backend.GetDedupe(ctx, key)
	if err != nil {
		s.log.Warn("dedupe backend lookup failed", logx.Err(err))
		return time.Time{}, false
	}
	if ok {
		s.entries[key] = at
	}
	return at, ok
}

// Register records the event's exact key (if any) and fingerprint with
// the current timestamp. Called only when a notification is delivered.
func (s *Store) Register(exactKey, fingerprint string) {
	now := s.now()

	s.mu.Lock()
	if exactKey != "" {
		s.entries[exactKey] = now
	}
	s.entries[fingerprint] = now
	s.mu.Unlock()

	if s.backend == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 250*time.Millisecond)
	defer cancel()
	if exactKey != "" {
		if err := s.backend.PutDedupe(ctx, exactKey, now); err != nil {
			s.log.Warn("dedupe backend write failed", logx.String("key", exactKey), logx.Err(err))
		}
	}
	if err := s.backend.PutDedupe(ctx, fingerprint, now); err != nil {
		s.log.Warn("dedupe backend write failed", logx.String("key", fingerprint), logx.Err(err))
	}
}

// Sweep drops entries whose window has fully elapsed, in memory and in
// the backend. Returns the number of in-memory entries removed.
func (s *Store) Sweep() int {
	now := s.now()
	exactBefore := now.Add(-ExactWindow)
	contentBefore := now.Add(-ContentWindow)

	s.mu.Lock()
	removed := 0
	for k, at := range s.entries {
		cutoff := exactBefore
		if isFingerprint(k) {
			cutoff = contentBefore
		}
		if at.Before(cutoff) {
			delete(s.entries, k)
			removed++
		}
	}
	s.mu.Unlock()

	if s.backend != nil {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if _, err := s.backend.PruneDedupe(ctx, exactBefore, contentBefore); err != nil {
			s.log.Warn("dedupe backend prune failed", logx.Err(err))
		}
	}
	return removed
}

// Len reports the current in-memory entry count.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func isFingerprint(key string) bool {
	return len(key) >= len(fingerprintPrefix) && key[:len(fingerprintPrefix)] == fingerprintPrefix
}
