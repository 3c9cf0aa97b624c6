package dedupe

import (
	"context"
	"strings"
	"testing"
	"time"

	"notigate/pkg/logx"
)

func newTestStore() (*Store, *time.Time) {
	now := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)
	s := New(nil, logx.Nop())
	s.SetClock(func() time.Time { return now })
	return s, &now
}

func TestExactKeyWindow(t *testing.T) {
	s, now := newTestStore()
	fp := Fingerprint("u1", "message", "hello")

	if dup, _ := s.Check("k-1", fp); dup {
		t.Fatal("empty store reported a duplicate")
	}
	s.Register("k-1", fp)

	*now = now.Add(30 * time.Minute)
	dup, reason := s.Check("k-1", Fingerprint("u1", "message", "other"))
	if !dup || !strings.Contains(reason, "Exact duplicate key 'k-1'") {
		t.Fatalf("dup=%v reason=%q", dup, reason)
	}

	*now = now.Add(31 * time.Minute)
	if dup, _ := s.Check("k-1", Fingerprint("u1", "message", "other")); dup {
		t.Fatal("exact key should expire after one hour")
	}
}

func TestContentWindow(t *testing.T) {
	s, now := newTestStore()
	fp := Fingerprint("u1", "message", "hello")
	s.Register("", fp)

	*now = now.Add(4 * time.Minute)
	dup, reason := s.Check("", fp)
	if !dup || !strings.Contains(reason, "Near-duplicate") {
		t.Fatalf("dup=%v reason=%q", dup, reason)
	}

	*now = now.Add(2 * time.Minute)
	if dup, _ := s.Check("", fp); dup {
		t.Fatal("content fingerprint should expire after five minutes")
	}
}

func TestNamespacesAreIndependent(t *testing.T) {
	s, now := newTestStore()
	fp := Fingerprint("u1", "message", "hello")
	s.Register("k-1", fp)

	// Content window elapsed, exact window still live.
	*now = now.Add(10 * time.Minute)
	if dup, _ := s.Check("", fp); dup {
		t.Fatal("content hit past its window")
	}
	if dup, _ := s.Check("k-1", Fingerprint("u1", "message", "x")); !dup {
		t.Fatal("exact key should still be live")
	}
}

func TestFingerprintUsesMessagePrefix(t *testing.T) {
	long := strings.Repeat("a", 150)
	a := Fingerprint("u1", "message", long)
	b := Fingerprint("u1", "message", long[:100]+"different tail")
	if a != b {
		t.Fatal("fingerprints should match on the first 100 bytes")
	}
	if a == Fingerprint("u2", "message", long) {
		t.Fatal("fingerprint should vary by user")
	}
	if !strings.HasPrefix(a, "hash_") {
		t.Fatalf("fingerprint %q missing namespace prefix", a)
	}
}

func TestSweepEvictsExpired(t *testing.T) {
	s, now := newTestStore()
	s.Register("k-old", Fingerprint("u1", "message", "one"))
	*now = now.Add(2 * time.Hour)
	s.Register("k-new", Fingerprint("u1", "message", "two"))

	removed := s.Sweep()
	if removed != 2 {
		t.Fatalf("removed = %d, want 2 (old key and old fingerprint)", removed)
	}
	if s.Len() != 2 {
		t.Fatalf("len = %d, want 2", s.Len())
	}
}

type fakeBackend struct {
	entries map[string]time.Time
	pruned  int
}

func (f *fakeBackend) GetDedupe(_ context.Context, key string) (time.Time, bool, error) {
	at, ok := f.entries[key]
	return at, ok, nil
}

func (f *fakeBackend) PutDedupe(_ context.Context, key string, at time.Time) error {
	f.entries[key] = at
	return nil
}

func (f *fakeBackend) PruneDedupe(_ context.Context, exactBefore, contentBefore time.Time) (int64, error) {
	f.pruned++
	return 0, nil
}

func TestBackendServesColdLookups(t *testing.T) {
	now := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)
	fb := &fakeBackend{entries: map[string]time.Time{
		"k-1": now.Add(-10 * time.Minute),
	}}
	s := New(fb, logx.Nop())
	s.SetClock(func() time.Time { return now })

	// Nothing in memory, but the backend knows the key.
	dup, reason := s.Check("k-1", Fingerprint("u1", "message", "x"))
	if !dup || !strings.Contains(reason, "600s ago") {
		t.Fatalf("dup=%v reason=%q", dup, reason)
	}

	s.Register("k-2", Fingerprint("u1", "message", "y"))
	if _, ok := fb.entries["k-2"]; !ok {
		t.Fatal("registration should write through to the backend")
	}

	s.Sweep()
	if fb.pruned != 1 {
		t.Fatal("sweep should prune the backend")
	}
}
