// Package engine implements the notification decision pipeline: an
// ordered sequence of stateful filters (expiry, deduplication,
// importance scoring, cooldown, fatigue caps, quiet hours) that turns
// one event plus mutable per-user and global state into one
// classification, with a recorded, explainable outcome.
package engine

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"notigate/internal/audit"
	"notigate/internal/dedupe"
	"notigate/internal/history"
	"notigate/internal/metrics"
	"notigate/internal/rules"
	"notigate/internal/storage"
	"notigate/pkg/logx"
)

// Service orchestrates the pipeline over the shared stores. Classify
// and record run under one mutex, so the read-then-decide-then-write
// sequence (fatigue check, then outcome record) is serialized and a
// reader never observes a counted decision without its history entry.
type Service struct {
	mu sync.Mutex

	rules    *rules.Store
	dedupe   *dedupe.Store
	history  *history.Store
	counters *metrics.Counters
	audit    *audit.Log
	sink     storage.Store // optional durable audit sink

	log logx.Logger

	// Injection points for tests.
	now     func() time.Time
	newID   func() string
	scoreFn func(Event) ScoreResult
}

func New(ru *rules.Store, ded *dedupe.Store, hist *history.Store, ctr *metrics.Counters, log *audit.Log, sink storage.Store, lg logx.Logger) *Service {
	return &Service{
		rules:    ru,
		dedupe:   ded,
		history:  hist,
		counters: ctr,
		audit:    log,
		sink:     sink,
		log:      lg,
		now:      time.Now,
		newID:    func() string { return uuid.NewString() },
		scoreFn:  Score,
	}
}

// Process classifies one event and records the outcome. It never
// fails: internal faults fall back to the safe-mode result, which is
// recorded like any other.
func (s *Service) Process(ev Event) DecisionResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	res := s.classify(ev)
	s.record(ev, res)
	return res
}

// record updates history, counters, the audit log and (for delivered
// notifications only) the dedupe store. Runs with s.mu held.
func (s *Service) record(ev Event, res DecisionResult) {
	now := s.now()

	s.history.Record(ev.UserID, history.Entry{
		At:             now,
		EventType:      ev.EventType,
		NotificationID: res.NotificationID,
		Decision:       string(res.Decision),
	})

	s.counters.Decision(string(res.Decision))

	entry := audit.Entry{
		NotificationID:  res.NotificationID,
		UserID:          ev.UserID,
		EventType:       ev.EventType,
		Decision:        string(res.Decision),
		Reason:          res.Reason,
		ImportanceScore: res.ImportanceScore,
		Channel:         ev.Channel,
		At:              now,
	}
	s.audit.Append(entry)

	if s.sink != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 250*time.Millisecond)
		err := s.sink.AppendAudit(ctx, storage.AuditRecord{
			At:              entry.At,
			NotificationID:  entry.NotificationID,
			UserID:          entry.UserID,
			EventType:       entry.EventType,
			Decision:        entry.Decision,
			Reason:          entry.Reason,
			ImportanceScore: entry.ImportanceScore,
			Channel:         entry.Channel,
		})
		cancel()
		if err != nil {
			s.log.Warn("audit sink write failed", logx.Err(err))
		}
	}

	// Deferred and suppressed notifications do not consume dedupe
	// slots; only a delivered one blocks repeats.
	if res.Decision == DecisionNow {
		s.dedupe.Register(ev.DedupeKey, dedupe.Fingerprint(ev.UserID, ev.EventType, ev.Message))
	}
}

// UserStats is a user's current fatigue standing against the caps.
type UserStats struct {
	NotificationsLastHour int `json:"notifications_last_hour"`
	NotificationsLastDay  int `json:"notifications_last_day"`
	HourlyCap             int `json:"hourly_cap"`
	DailyCap              int `json:"daily_cap"`
	HourlyRemaining       int `json:"hourly_remaining"`
	DailyRemaining        int `json:"daily_remaining"`
}

// UserView returns fatigue stats and up to n recent entries (newest
// first) for a user, consistent with recorded decisions.
func (s *Service) UserView(userID string, n int) (UserStats, []history.Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ru := s.rules.Snapshot()
	st := s.history.RecentStats(userID)
	stats := UserStats{
		NotificationsLastHour: st.LastHour,
		NotificationsLastDay:  st.LastDay,
		HourlyCap:             ru.MaxPerHour,
		DailyCap:              ru.MaxPerDay,
		HourlyRemaining:       max(0, ru.MaxPerHour-st.LastHour),
		DailyRemaining:        max(0, ru.MaxPerDay-st.LastDay),
	}
	return stats, s.history.Recent(userID, n)
}

// MetricsView snapshots the counters, consistent with recorded
// decisions.
func (s *Service) MetricsView() metrics.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counters.Snapshot()
}

// AuditView queries the audit log, consistent with recorded decisions.
func (s *Service) AuditView(q audit.Query) (int, []audit.Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.audit.Search(q)
}
