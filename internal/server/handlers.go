package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"notigate/internal/audit"
	"notigate/internal/engine"
)

const batchLimit = 100

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// missingFields returns the required fields absent from an event. The
// transport owns this validation; the engine never sees an event
// without user_id and event_type.
func missingFields(ev engine.Event) []string {
	var missing []string
	if strings.TrimSpace(ev.UserID) == "" {
		missing = append(missing, "user_id")
	}
	if strings.TrimSpace(ev.EventType) == "" {
		missing = append(missing, "event_type")
	}
	return missing
}

type classifyResponse struct {
	NotificationID  string   `json:"notification_id"`
	Decision        string   `json:"decision"`
	Reason          string   `json:"reason"`
	ImportanceScore *float64 `json:"importance_score"`
	DeferSeconds    int      `json:"defer_seconds,omitempty"`
	UserID          string   `json:"user_id"`
	EventType       string   `json:"event_type"`
	ProcessedAt     string   `json:"processed_at"`
}

func (s *Server) handleClassify(w http.ResponseWriter, r *http.Request) {
	var ev engine.Event
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		writeError(w, http.StatusBadRequest, "Request body must be valid JSON")
		return
	}
	if missing := missingFields(ev); len(missing) > 0 {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Missing required fields: %v", missing))
		return
	}

	res := s.engine.Process(ev)
	writeJSON(w, http.StatusOK, classifyResponse{
		NotificationID:  res.NotificationID,
		Decision:        string(res.Decision),
		Reason:          res.Reason,
		ImportanceScore: res.ImportanceScore,
		DeferSeconds:    res.DeferSeconds,
		UserID:          ev.UserID,
		EventType:       ev.EventType,
		ProcessedAt:     time.Now().UTC().Format(time.RFC3339),
	})
}

type batchRequest struct {
	Events []engine.Event `json:"events"`
}

type batchResult struct {
	NotificationID  string   `json:"notification_id"`
	UserID          string   `json:"user_id"`
	EventType       string   `json:"event_type"`
	Decision        string   `json:"decision"`
	ImportanceScore *float64 `json:"importance_score"`
	Reason          string   `json:"reason"`
}

func (s *Server) handleBatch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Body must contain 'events' array")
		return
	}
	if len(req.Events) == 0 {
		writeError(w, http.StatusBadRequest, "'events' must be a non-empty array")
		return
	}
	if len(req.Events) > batchLimit {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Batch limit is %d events per request", batchLimit))
		return
	}
	for i, ev := range req.Events {
		if missing := missingFields(ev); len(missing) > 0 {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("events[%d]: missing required fields: %v", i, missing))
			return
		}
	}

	// Events are classified and recorded independently, in order.
	// There is no atomicity across the batch.
	results := make([]batchResult, 0, len(req.Events))
	summary := map[string]int{"now": 0, "later": 0, "never": 0}
	for _, ev := range req.Events {
		res := s.engine.Process(ev)
		summary[string(res.Decision)]++
		results = append(results, batchResult{
			NotificationID:  res.NotificationID,
			UserID:          ev.UserID,
			EventType:       ev.EventType,
			Decision:        string(res.Decision),
			ImportanceScore: res.ImportanceScore,
			Reason:          res.Reason,
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"total":        len(results),
		"summary":      summary,
		"results":      results,
		"processed_at": time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleAuditLogs(w http.ResponseWriter, r *http.Request) {
	q := audit.Query{
		UserID:   r.URL.Query().Get("user_id"),
		Decision: r.URL.Query().Get("decision"),
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			q.Limit = n
		}
	}

	total, logs := s.engine.AuditView(q)
	if logs == nil {
		logs = []audit.Entry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"total": total,
		"filters": map[string]string{
			"user_id":  q.UserID,
			"decision": q.Decision,
		},
		"logs": logs,
	})
}

func (s *Server) handleGetRules(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"rules": s.rules.Snapshot()})
}

func (s *Server) handlePutRules(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil || len(body) == 0 {
		writeError(w, http.StatusBadRequest, "Request body must be valid JSON")
		return
	}

	updated, err := s.rules.Patch(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.log.Info("suppression rules updated")
	writeJSON(w, http.StatusOK, map[string]any{
		"message":       "Rules updated successfully",
		"updated_rules": updated,
		"updated_at":    time.Now().UTC().Format(time.RFC3339),
	})
}

type recentEvent struct {
	NotificationID string `json:"notification_id"`
	EventType      string `json:"event_type"`
	Decision       string `json:"decision"`
	SecondsAgo     int    `json:"seconds_ago"`
}

func (s *Server) handleUserHistory(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	stats, entries := s.engine.UserView(userID, 20)
	now := time.Now()
	recent := make([]recentEvent, 0, len(entries))
	for _, e := range entries {
		recent = append(recent, recentEvent{
			NotificationID: e.NotificationID,
			EventType:      e.EventType,
			Decision:       e.Decision,
			SecondsAgo:     int(now.Sub(e.At).Seconds()),
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"user_id":       userID,
		"stats":         stats,
		"recent_events": recent,
	})
}

func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	snap := s.engine.MetricsView()
	writeJSON(w, http.StatusOK, map[string]any{
		"total_processed": snap.TotalProcessed,
		"decisions": map[string]uint64{
			"now_count":   snap.NowCount,
			"later_count": snap.LaterCount,
			"never_count": snap.NeverCount,
		},
		"rates": map[string]float64{
			"send_rate":     snap.SendRate,
			"defer_rate":    snap.DeferRate,
			"suppress_rate": snap.SuppressRate,
		},
		"duplicate_count": snap.DuplicateCount,
		"fallback_count":  snap.FallbackCount,
		"timestamp":       time.Now().UTC().Format(time.RFC3339),
	})
}
