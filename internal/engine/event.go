package engine

import (
	"strings"
	"time"
)

// Decision classifies a notification event.
type Decision string

const (
	DecisionNow   Decision = "now"
	DecisionLater Decision = "later"
	DecisionNever Decision = "never"
)

// Recognized event types. Other values are accepted and scored with a
// minimum weight.
const (
	TypeAlert       = "alert"
	TypeSystemEvent = "system_event"
	TypeMessage     = "message"
	TypeReminder    = "reminder"
	TypeUpdate      = "update"
	TypePromotion   = "promotion"
)

// Event is one inbound notification. UserID and EventType are required
// and validated by the transport before the engine sees the event;
// every other field is optional with defined fallback behavior (a
// missing priority hint means "no hint", not "low").
type Event struct {
	UserID       string `json:"user_id"`
	EventType    string `json:"event_type"`
	PriorityHint string `json:"priority_hint,omitempty"`
	Message      string `json:"message,omitempty"`
	Title        string `json:"title,omitempty"`
	Channel      string `json:"channel,omitempty"`
	DedupeKey    string `json:"dedupe_key,omitempty"`
	ExpiresAt    string `json:"expires_at,omitempty"`
	Source       string `json:"source,omitempty"`
}

// text is the body used for scoring: Message, falling back to Title.
func (e Event) text() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Title
}

// TimeSensitive reports whether the event is exempt from cooldown,
// fatigue and quiet-hours suppression.
func (e Event) TimeSensitive() bool {
	switch e.EventType {
	case TypeAlert, TypeSystemEvent:
		return true
	}
	switch e.PriorityHint {
	case "critical", "urgent":
		return true
	}
	return false
}

// expired reports whether ExpiresAt is set and strictly in the past.
// An unparseable timestamp fails open (not expired).
func (e Event) expired(now time.Time) bool {
	raw := strings.TrimSpace(e.ExpiresAt)
	if raw == "" {
		return false
	}
	exp, err := parseTimestamp(raw)
	if err != nil {
		return false
	}
	return exp.Before(now)
}

func parseTimestamp(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	// Bare date-times without an offset are treated as UTC.
	return time.Parse("2006-01-02T15:04:05", raw)
}

// DecisionResult is the outcome of one classification. Created once
// per call and immutable thereafter. ImportanceScore is nil only on
// the safe-mode fallback path.
type DecisionResult struct {
	NotificationID  string   `json:"notification_id"`
	Decision        Decision `json:"decision"`
	Reason          string   `json:"reason"`
	ImportanceScore *float64 `json:"importance_score"`
	DeferSeconds    int      `json:"defer_seconds,omitempty"`
}
