package metrics

import "testing"

func TestSnapshotZeroTotalHasZeroRates(t *testing.T) {
	c := New()
	s := c.Snapshot()
	if s.TotalProcessed != 0 || s.SendRate != 0 || s.DeferRate != 0 || s.SuppressRate != 0 {
		t.Fatalf("zero snapshot = %+v", s)
	}
}

func TestSnapshotRates(t *testing.T) {
	c := New()
	c.Decision("now")
	c.Decision("now")
	c.Decision("later")
	c.Decision("never")
	c.Duplicate()
	c.Fallback()

	s := c.Snapshot()
	if s.TotalProcessed != 4 || s.NowCount != 2 || s.LaterCount != 1 || s.NeverCount != 1 {
		t.Fatalf("counts = %+v", s)
	}
	if s.SendRate != 50.0 || s.DeferRate != 25.0 || s.SuppressRate != 25.0 {
		t.Fatalf("rates = %v/%v/%v", s.SendRate, s.DeferRate, s.SuppressRate)
	}
	if s.DuplicateCount != 1 || s.FallbackCount != 1 {
		t.Fatalf("aux counts = %+v", s)
	}
}

func TestRatesRoundToOneDecimal(t *testing.T) {
	c := New()
	c.Decision("now")
	c.Decision("later")
	c.Decision("never")

	s := c.Snapshot()
	if s.SendRate != 33.3 {
		t.Fatalf("send rate = %v, want 33.3", s.SendRate)
	}
}
