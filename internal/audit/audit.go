// Package audit keeps the append-only log of classification outcomes.
// Every decision lands here with its reason and score, including
// safe-mode fallbacks.
package audit

import (
	"sync"
	"time"
)

// Entry pairs a decision with its originating event context. Immutable
// once appended.
type Entry struct {
	NotificationID  string   `json:"notification_id"`
	UserID          string   `json:"user_id"`
	EventType       string   `json:"event_type"`
	Decision        string   `json:"decision"`
	Reason          string   `json:"reason"`
	ImportanceScore *float64 `json:"importance_score"`
	Channel         string   `json:"channel,omitempty"`
	At              time.Time `json:"timestamp"`
}

// Query filters the log. Zero-value fields match everything.
type Query struct {
	UserID   string
	Decision string
	Limit    int
}

const (
	defaultLimit = 50
	maxLimit     = 200
)

type Log struct {
	mu      sync.Mutex
	entries []Entry
}

func NewLog() *Log { return &Log{} }

func (l *Log) Append(e Entry) {
	l.mu.Lock()
	l.entries = append(l.entries, e)
	l.mu.Unlock()
}

// Search returns the total number of matching entries and up to
// Query.Limit of the most recent ones, newest first.
func (l *Log) Search(q Query) (int, []Entry) {
	limit := q.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	var matched []Entry
	for _, e := range l.entries {
		if q.UserID != "" && e.UserID != q.UserID {
			continue
		}
		if q.Decision != "" && e.Decision != q.Decision {
			continue
		}
		matched = append(matched, e)
	}

	n := len(matched)
	if limit > n {
		limit = n
	}
	out := make([]Entry, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		out = append(out, matched[i])
	}
	return n, out
}
