package audit

import (
	"fmt"
	"testing"
	"time"
)

func seeded() *Log {
	l := NewLog()
	base := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)
	decisions := []string{"now", "later", "never", "now"}
	for i, d := range decisions {
		l.Append(Entry{
			NotificationID: fmt.Sprintf("n%d", i),
			UserID:         fmt.Sprintf("u%d", i%2),
			Decision:       d,
			At:             base.Add(time.Duration(i) * time.Minute),
		})
	}
	return l
}

func TestSearchNewestFirst(t *testing.T) {
	l := seeded()
	total, out := l.Search(Query{})
	if total != 4 || len(out) != 4 {
		t.Fatalf("total=%d len=%d", total, len(out))
	}
	if out[0].NotificationID != "n3" || out[3].NotificationID != "n0" {
		t.Fatalf("order = %+v", out)
	}
}

func TestSearchFilters(t *testing.T) {
	l := seeded()

	total, out := l.Search(Query{UserID: "u0"})
	if total != 2 || out[0].NotificationID != "n2" {
		t.Fatalf("user filter: total=%d out=%+v", total, out)
	}

	total, out = l.Search(Query{Decision: "now"})
	if total != 2 || len(out) != 2 {
		t.Fatalf("decision filter: total=%d", total)
	}

	total, out = l.Search(Query{UserID: "u1", Decision: "later"})
	if total != 1 || out[0].NotificationID != "n1" {
		t.Fatalf("combined filter: total=%d out=%+v", total, out)
	}
}

func TestSearchLimits(t *testing.T) {
	l := NewLog()
	for i := 0; i < 300; i++ {
		l.Append(Entry{NotificationID: fmt.Sprintf("n%d", i), Decision: "now"})
	}

	total, out := l.Search(Query{})
	if total != 300 || len(out) != 50 {
		t.Fatalf("default limit: total=%d len=%d", total, len(out))
	}

	_, out = l.Search(Query{Limit: 1000})
	if len(out) != 200 {
		t.Fatalf("cap: len=%d, want 200", len(out))
	}

	_, out = l.Search(Query{Limit: 3})
	if len(out) != 3 || out[0].NotificationID != "n299" {
		t.Fatalf("limit 3: %+v", out)
	}
}
