package engine

import (
	"fmt"
	"math"
	"strings"
)

// ScoreResult is an importance score in [0, 1] plus the ordered,
// human-readable reasons behind each contribution. Reasons exist for
// audit and explainability only; nothing parses them downstream.
type ScoreResult struct {
	Score   float64
	Reasons []string
}

const unknownTypeWeight = 0.10

var typeWeights = map[string]float64{
	TypeAlert:       0.45,
	TypeSystemEvent: 0.40,
	TypeMessage:     0.30,
	TypeReminder:    0.25,
	TypeUpdate:      0.15,
	TypePromotion:   0.05,
}

var priorityWeights = map[string]float64{
	"critical": 0.35,
	"urgent":   0.30,
	"high":     0.20,
	"normal":   0.05,
	"low":      0.0,
}

var urgentKeywords = []string{"error", "fail", "critical", "urgent", "down", "breach", "emergency"}

var promoKeywords = []string{"sale", "discount", "offer", "deal", "% off", "promo"}

// Score rates an event's importance. Pure and deterministic: same
// event, same result, no failure modes. Unrecognized enum values fall
// back to minimum weights instead of rejecting.
func Score(ev Event) ScoreResult {
	score := 0.0
	var reasons []string

	tw, ok := typeWeights[ev.EventType]
	if !ok {
		tw = unknownTypeWeight
	}
	score += tw
	reasons = append(reasons, fmt.Sprintf("event_type='%s' (+%.2f)", ev.EventType, tw))

	if pw := priorityWeights[ev.PriorityHint]; pw > 0 {
		score += pw
		reasons = append(reasons, fmt.Sprintf("priority_hint='%s' (+%.2f)", ev.PriorityHint, pw))
	}

	msg := strings.ToLower(ev.text())

	var urgentHits []string
	for _, kw := range urgentKeywords {
		if strings.Contains(msg, kw) {
			urgentHits = append(urgentHits, kw)
		}
	}
	if len(urgentHits) > 0 {
		kwScore := math.Min(0.20, float64(len(urgentHits))*0.07)
		score += kwScore
		reasons = append(reasons, fmt.Sprintf("urgent keywords %v (+%.2f)", urgentHits, kwScore))
	}

	var promoHits []string
	for _, kw := range promoKeywords {
		if strings.Contains(msg, kw) {
			promoHits = append(promoHits, kw)
		}
	}
	if len(promoHits) > 0 {
		score -= 0.05
		reasons = append(reasons, fmt.Sprintf("promo keywords %v (-0.05)", promoHits))
	}

	if ev.Channel == "sms" {
		score += 0.05
		reasons = append(reasons, "channel=sms (+0.05)")
	}

	score = math.Max(0, math.Min(1, score))
	return ScoreResult{
		Score:   math.Round(score*1000) / 1000,
		Reasons: reasons,
	}
}
