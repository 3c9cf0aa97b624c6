package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"notigate/pkg/logx"
)

func openTestStore(t *testing.T) Store {
	t.Helper()
	st, err := Open(Config{
		Driver:      "sqlite",
		Path:        filepath.Join(t.TempDir(), "notigate.db"),
		BusyTimeout: 500 * time.Millisecond,
	}, logx.Nop())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestOpenDisabled(t *testing.T) {
	for _, driver := range []string{"", "none", " None "} {
		st, err := Open(Config{Driver: driver}, logx.Nop())
		if err != nil || st != nil {
			t.Fatalf("driver %q: st=%v err=%v", driver, st, err)
		}
	}
	if _, err := Open(Config{Driver: "postgres"}, logx.Nop()); err == nil {
		t.Fatal("expected unknown-driver error")
	}
	if _, err := Open(Config{Driver: "sqlite"}, logx.Nop()); err == nil {
		t.Fatal("expected missing-path error")
	}
}

func TestDedupeRoundTrip(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	at := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)

	if _, ok, err := st.GetDedupe(ctx, "k1"); err != nil || ok {
		t.Fatalf("missing key: ok=%v err=%v", ok, err)
	}

	if err := st.PutDedupe(ctx, "k1", at); err != nil {
		t.Fatalf("put: %v", err)
	}
	got, ok, err := st.GetDedupe(ctx, "k1")
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if !got.Equal(at) {
		t.Fatalf("accepted_at = %v, want %v", got, at)
	}

	// Upsert moves the timestamp forward.
	later := at.Add(time.Hour)
	if err := st.PutDedupe(ctx, "k1", later); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	got, _, _ = st.GetDedupe(ctx, "k1")
	if !got.Equal(later) {
		t.Fatalf("after upsert = %v, want %v", got, later)
	}

	// Empty keys are silently skipped.
	if err := st.PutDedupe(ctx, "", at); err != nil {
		t.Fatalf("empty put: %v", err)
	}
	if _, ok, err := st.GetDedupe(ctx, ""); err != nil || ok {
		t.Fatalf("empty get: ok=%v err=%v", ok, err)
	}
}

func TestPruneDedupeSplitsNamespaces(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	now := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)

	// Exact keys live for an hour, content fingerprints for five
	// minutes. A 30 minute old entry is expired only as a fingerprint.
	old := now.Add(-30 * time.Minute)
	for key, at := range map[string]time.Time{
		"deploy-42":   old,
		"hash_abc123": old,
		"deploy-43":   now,
		"hash_def456": now,
	} {
		if err := st.PutDedupe(ctx, key, at); err != nil {
			t.Fatalf("put %s: %v", key, err)
		}
	}

	n, err := st.PruneDedupe(ctx, now.Add(-time.Hour), now.Add(-5*time.Minute))
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	if n != 1 {
		t.Fatalf("pruned = %d, want 1", n)
	}

	if _, ok, _ := st.GetDedupe(ctx, "hash_abc123"); ok {
		t.Fatal("expired fingerprint survived prune")
	}
	for _, key := range []string{"deploy-42", "deploy-43", "hash_def456"} {
		if _, ok, _ := st.GetDedupe(ctx, key); !ok {
			t.Fatalf("key %s pruned unexpectedly", key)
		}
	}
}

func TestAppendAudit(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	score := 0.87

	err := st.AppendAudit(ctx, AuditRecord{
		At:              time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC),
		NotificationID:  "n1",
		UserID:          "u1",
		EventType:       "alert",
		Decision:        "now",
		Reason:          "High importance (0.87) and time-sensitive",
		ImportanceScore: &score,
		Channel:         "push",
	})
	if err != nil {
		t.Fatalf("append: %v", err)
	}

	// Fallback rows carry no score and may omit the channel.
	err = st.AppendAudit(ctx, AuditRecord{
		NotificationID: "n2",
		UserID:         "u1",
		EventType:      "message",
		Decision:       "later",
		Reason:         "[FALLBACK] Classification error, deferring non-critical notification",
	})
	if err != nil {
		t.Fatalf("append fallback: %v", err)
	}
}
