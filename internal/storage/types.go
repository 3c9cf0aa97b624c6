package storage

import (
	"context"
	"errors"
	"time"
)

var ErrDisabled = errors.New("storage disabled")

// Config configures storage.
//
// Driver values:
//   - "sqlite": SQLite database file
//
// If Driver is empty or "none", storage is disabled and Open returns
// a nil Store.
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // 0 means driver default
}

// AuditRecord is the durable form of one classification outcome.
// Keep it compact and schema-stable.
type AuditRecord struct {
	At              time.Time
	NotificationID  string
	UserID          string
	EventType       string
	Decision        string
	Reason          string
	ImportanceScore *float64
	Channel         string
}

// Store is implemented by the sqlite backend.
type Store interface {
	AppendAudit(ctx context.Context, rec AuditRecord) error
	GetDedupe(ctx context.Context, key string) (time.Time, bool, error)
	PutDedupe(ctx context.Context, key string, acceptedAt time.Time) error
	PruneDedupe(ctx context.Context, exactBefore, contentBefore time.Time) (int64, error)
	Close() error
}
