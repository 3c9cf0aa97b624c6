package engine

import (
	"fmt"
	"strings"

	"notigate/internal/dedupe"
	"notigate/pkg/logx"
)

// classify runs the decision pipeline for one event. Steps execute in
// strict order, cheapest and most certain first; the first matching
// step terminates with a result. The score and the time-sensitivity
// flag are computed once at entry and reused by every step.
//
// Any panic inside the pipeline is recovered into the safe-mode
// fallback, so classification is total: a result always comes back.
func (s *Service) classify(ev Event) (res DecisionResult) {
	id := s.newID()

	defer func() {
		if r := recover(); r != nil {
			s.counters.Fallback()
			s.log.Error("pipeline fault, entering safe mode",
				logx.String("user_id", ev.UserID),
				logx.String("event_type", ev.EventType),
				logx.Any("panic", r),
			)
			res = fallbackResult(ev, id, r)
		}
	}()

	now := s.now()
	ru := s.rules.Snapshot()
	timeSensitive := ev.TimeSensitive()
	sr := s.scoreFn(ev)
	score := &sr.Score
	scoring := strings.Join(sr.Reasons, "; ")

	// Step 1: expiry.
	if ev.expired(now) {
		return DecisionResult{
			NotificationID:  id,
			Decision:        DecisionNever,
			Reason:          "Notification has expired (expires_at is in the past)",
			ImportanceScore: score,
		}
	}

	// Step 2: duplicate.
	fp := dedupe.Fingerprint(ev.UserID, ev.EventType, ev.Message)
	if dup, dupReason := s.dedupe.Check(ev.DedupeKey, fp); dup {
		s.counters.Duplicate()
		return DecisionResult{
			NotificationID:  id,
			Decision:        DecisionNever,
			Reason:          "Suppressed: " + dupReason,
			ImportanceScore: score,
		}
	}

	// Step 3: high score forces now for time-sensitive events,
	// overriding all downstream fatigue and quiet-hours logic.
	if sr.Score >= ru.ScoreSendNowThreshold && timeSensitive {
		return DecisionResult{
			NotificationID: id,
			Decision:       DecisionNow,
			Reason: fmt.Sprintf("AI score %v >= threshold %v + time-sensitive. Scoring: %s",
				sr.Score, ru.ScoreSendNowThreshold, scoring),
			ImportanceScore: score,
		}
	}

	// Step 4: low score drops low-value noise before it consumes any
	// rate budget.
	if sr.Score <= ru.ScoreSuppressThreshold && !timeSensitive {
		return DecisionResult{
			NotificationID: id,
			Decision:       DecisionNever,
			Reason: fmt.Sprintf("AI score %v below suppress threshold %v. Low-value notification suppressed. Scoring: %s",
				sr.Score, ru.ScoreSuppressThreshold, scoring),
			ImportanceScore: score,
		}
	}

	// Step 5: per-type cooldown.
	if !timeSensitive {
		if remaining := s.history.CooldownRemaining(ev.UserID, ev.EventType, ru.Cooldown(ev.EventType)); remaining > 0 {
			return DecisionResult{
				NotificationID:  id,
				Decision:        DecisionLater,
				Reason:          fmt.Sprintf("Cooldown active for '%s': %ds remaining", ev.EventType, remaining),
				ImportanceScore: score,
				DeferSeconds:    remaining,
			}
		}
	}

	// Steps 6 and 7: alert fatigue. The hourly cap defers; the daily
	// cap is a hard ceiling and drops.
	if !timeSensitive {
		stats := s.history.RecentStats(ev.UserID)
		if stats.LastHour >= ru.MaxPerHour {
			return DecisionResult{
				NotificationID: id,
				Decision:       DecisionLater,
				Reason: fmt.Sprintf("Alert fatigue: %d notifications in last hour (limit: %d). Deferring.",
					stats.LastHour, ru.MaxPerHour),
				ImportanceScore: score,
				DeferSeconds:    3600,
			}
		}
		if stats.LastDay >= ru.MaxPerDay {
			return DecisionResult{
				NotificationID: id,
				Decision:       DecisionNever,
				Reason: fmt.Sprintf("Daily cap reached: %d notifications today (limit: %d). Suppressing.",
					stats.LastDay, ru.MaxPerDay),
				ImportanceScore: score,
			}
		}
	}

	// Step 8: quiet hours.
	if !timeSensitive && ru.InQuietHours(now) {
		deferSec := int(ru.UntilQuietEnd(now).Seconds())
		return DecisionResult{
			NotificationID: id,
			Decision:       DecisionLater,
			Reason: fmt.Sprintf("Quiet hours active (%02d:00-%02d:00 UTC). Deferring %ds.",
				ru.QuietHours.Start, ru.QuietHours.End, deferSec),
			ImportanceScore: score,
			DeferSeconds:    deferSec,
		}
	}

	// Step 9: default.
	reason := fmt.Sprintf("Passed all checks. AI score: %v.", sr.Score)
	if timeSensitive {
		reason += " Time-sensitive override active."
	}
	return DecisionResult{
		NotificationID:  id,
		Decision:        DecisionNow,
		Reason:          reason,
		ImportanceScore: score,
	}
}

// fallbackResult is the guaranteed-total error path: time-sensitive
// events still go out, everything else defers for a fixed window.
func fallbackResult(ev Event, id string, cause any) DecisionResult {
	res := DecisionResult{
		NotificationID: id,
		Reason: fmt.Sprintf("[FALLBACK] Engine error: %v. Safe mode: time-sensitive events send now, others defer.",
			cause),
	}
	if ev.TimeSensitive() {
		res.Decision = DecisionNow
	} else {
		res.Decision = DecisionLater
		res.DeferSeconds = fallbackDeferSeconds
	}
	return res
}

const fallbackDeferSeconds = 300
