// Package metrics holds the engine's monotonic decision counters.
// Derived rates are computed on read, never stored.
package metrics

import "sync"

// Counters is safe for concurrent use.
type Counters struct {
	mu sync.Mutex

	now       uint64
	later     uint64
	never     uint64
	duplicate uint64
	fallback  uint64
	total     uint64
}

func New() *Counters { return &Counters{} }

// Decision bumps the counter matching a decision plus the total.
// Unknown decisions still count toward the total.
func (c *Counters) Decision(decision string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.total++
	switch decision {
	case "now":
		c.now++
	case "later":
		c.later++
	case "never":
		c.never++
	}
}

func (c *Counters) Duplicate() {
	c.mu.Lock()
	c.duplicate++
	c.mu.Unlock()
}

func (c *Counters) Fallback() {
	c.mu.Lock()
	c.fallback++
	c.mu.Unlock()
}

// Snapshot is a point-in-time view with percentage rates.
type Snapshot struct {
	TotalProcessed uint64  `json:"total_processed"`
	NowCount       uint64  `json:"now_count"`
	LaterCount     uint64  `json:"later_count"`
	NeverCount     uint64  `json:"never_count"`
	DuplicateCount uint64  `json:"duplicate_count"`
	FallbackCount  uint64  `json:"fallback_count"`
	SendRate       float64 `json:"send_rate"`
	DeferRate      float64 `json:"defer_rate"`
	SuppressRate   float64 `json:"suppress_rate"`
}

func (c *Counters) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Snapshot{
		TotalProcessed: c.total,
		NowCount:       c.now,
		LaterCount:     c.later,
		NeverCount:     c.never,
		DuplicateCount: c.duplicate,
		FallbackCount:  c.fallback,
	}
	if c.total > 0 {
		s.SendRate = rate(c.now, c.total)
		s.DeferRate = rate(c.later, c.total)
		s.SuppressRate = rate(c.never, c.total)
	}
	return s
}

// rate returns n/total as a percentage rounded to one decimal place.
func rate(n, total uint64) float64 {
	pct := float64(n) / float64(total) * 100
	return float64(int(pct*10+0.5)) / 10
}
