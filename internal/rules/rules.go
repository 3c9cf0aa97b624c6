// Package rules holds the runtime-mutable suppression configuration:
// quiet hours, fatigue caps, per-type cooldowns and score thresholds.
//
// A Rules value is an immutable snapshot. The Store publishes snapshots
// atomically: readers always see either the pre-update or the fully
// post-update rule set, never a mix.
package rules

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// QuietHours is a half-open UTC hour window [Start, End). When
// Start > End the window wraps midnight. Start == End disables it.
type QuietHours struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Rules is one snapshot of the suppression configuration.
type Rules struct {
	QuietHours      QuietHours     `json:"quiet_hours"`
	MaxPerHour      int            `json:"max_per_hour"`
	MaxPerDay       int            `json:"max_per_day"`
	CooldownSeconds map[string]int `json:"cooldown_seconds"`

	// Score thresholds: >= SendNow forces immediate delivery for
	// time-sensitive events; <= Suppress drops low-value events.
	ScoreSendNowThreshold  float64 `json:"score_send_now_threshold"`
	ScoreSuppressThreshold float64 `json:"score_suppress_threshold"`
}

// Defaults returns the rule set the engine boots with.
func Defaults() Rules {
	return Rules{
		QuietHours: QuietHours{Start: 22, End: 8},
		MaxPerHour: 10,
		MaxPerDay:  30,
		CooldownSeconds: map[string]int{
			"promotion":    3600,
			"reminder":     1800,
			"update":       600,
			"system_event": 0,
			"alert":        0,
			"message":      0,
		},
		ScoreSendNowThreshold:  0.5,
		ScoreSuppressThreshold: 0.1,
	}
}

// Cooldown returns the configured cooldown for an event type, in
// seconds. Unknown types have no cooldown.
func (r Rules) Cooldown(eventType string) int {
	return r.CooldownSeconds[eventType]
}

// InQuietHours reports whether t (interpreted in UTC) falls inside the
// quiet window.
func (r Rules) InQuietHours(t time.Time) bool {
	hour := t.UTC().Hour()
	start, end := r.QuietHours.Start, r.QuietHours.End
	if start > end {
		return hour >= start || hour < end
	}
	return start <= hour && hour < end
}

// UntilQuietEnd returns the time remaining until the quiet window's end
// hour, rolling to the next day when the end hour has already passed.
func (r Rules) UntilQuietEnd(t time.Time) time.Duration {
	now := t.UTC()
	target := time.Date(now.Year(), now.Month(), now.Day(), r.QuietHours.End, 0, 0, 0, time.UTC)
	if !target.After(now) {
		target = target.Add(24 * time.Hour)
	}
	return target.Sub(now)
}

func (r Rules) clone() Rules {
	cp := r
	cp.CooldownSeconds = make(map[string]int, len(r.CooldownSeconds))
	for k, v := range r.CooldownSeconds {
		cp.CooldownSeconds[k] = v
	}
	return cp
}

// Store guards the live rule set. Reads vastly outnumber writes, so a
// reader/writer lock is used; writes swap in a fully-built snapshot.
type Store struct {
	mu  sync.RWMutex
	cur Rules
}

func NewStore(r Rules) *Store {
	if r.CooldownSeconds == nil {
		r.CooldownSeconds = map[string]int{}
	}
	return &Store{cur: r.clone()}
}

// Snapshot returns a deep copy of the current rules. Mutating the
// returned value never affects the store.
func (s *Store) Snapshot() Rules {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cur.clone()
}

// Replace atomically swaps in a new rule set.
func (s *Store) Replace(r Rules) {
	if r.CooldownSeconds == nil {
		r.CooldownSeconds = map[string]int{}
	}
	cp := r.clone()
	s.mu.Lock()
	s.cur = cp
	s.mu.Unlock()
}

// patch mirrors the administrative update payload. Pointer fields
// distinguish "omitted" from an explicit zero.
type patch struct {
	QuietHours *struct {
		Start *int `json:"start"`
		End   *int `json:"end"`
	} `json:"quiet_hours"`
	MaxPerHour             *int            `json:"max_per_hour"`
	MaxPerDay              *int            `json:"max_per_day"`
	CooldownSeconds        map[string]*int `json:"cooldown_seconds"`
	ScoreSendNowThreshold  *float64        `json:"score_send_now_threshold"`
	ScoreSuppressThreshold *float64        `json:"score_suppress_threshold"`
}

// Patch applies a partial update: recognized fields replace (or, for
// quiet_hours and cooldown_seconds, merge into) the live rules; unknown
// keys are ignored; malformed values for recognized keys are rejected
// without touching the live rules. Returns the rules now in effect.
func (s *Store) Patch(raw []byte) (Rules, error) {
	// First pass drops unrecognized keys so the strict decode below
	// only complains about known keys with bad value types.
	var loose map[string]json.RawMessage
	if err := json.Unmarshal(raw, &loose); err != nil {
		return Rules{}, fmt.Errorf("rules update: %w", err)
	}
	known := map[string]bool{
		"quiet_hours": true, "max_per_hour": true, "max_per_day": true,
		"cooldown_seconds": true, "score_send_now_threshold": true,
		"score_suppress_threshold": true,
	}
	filtered := make(map[string]json.RawMessage, len(loose))
	for k, v := range loose {
		if known[k] {
			filtered[k] = v
		}
	}
	fb, err := json.Marshal(filtered)
	if err != nil {
		return Rules{}, fmt.Errorf("rules update: %w", err)
	}

	var p patch
	dec := json.NewDecoder(bytes.NewReader(fb))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&p); err != nil {
		return Rules{}, fmt.Errorf("rules update: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.cur.clone()
	if p.QuietHours != nil {
		if p.QuietHours.Start != nil {
			next.QuietHours.Start = *p.QuietHours.Start
		}
		if p.QuietHours.End != nil {
			next.QuietHours.End = *p.QuietHours.End
		}
	}
	if p.MaxPerHour != nil {
		next.MaxPerHour = *p.MaxPerHour
	}
	if p.MaxPerDay != nil {
		next.MaxPerDay = *p.MaxPerDay
	}
	for k, v := range p.CooldownSeconds {
		if v != nil {
			next.CooldownSeconds[k] = *v
		}
	}
	if p.ScoreSendNowThreshold != nil {
		next.ScoreSendNowThreshold = *p.ScoreSendNowThreshold
	}
	if p.ScoreSuppressThreshold != nil {
		next.ScoreSuppressThreshold = *p.ScoreSuppressThreshold
	}

	s.cur = next
	return next.clone(), nil
}
