// Package storage is the optional SQLite persistence layer. It serves
// two concerns: a durable audit sink (every decision is appended) and
// a durable dedupe backing so restarts do not resend recent
// duplicates. The in-memory stores remain authoritative; all writes
// here are best-effort.
package storage
