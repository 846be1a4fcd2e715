package models

import "time"

// Snapshot is an immutable, sorted view of every matched crossing at
// CapturedAt. It is replaced wholesale and never modified after creation.
type Snapshot struct {
	ID         string         `json:"id"`
	Entries    []MergedStatus `json:"entries"`
	CapturedAt time.Time      `json:"captured_at"`
}

// Age returns how long ago the snapshot was captured relative to now.
func (s *Snapshot) Age(now time.Time) time.Duration {
	return now.Sub(s.CapturedAt)
}

// Expired reports whether the snapshot is older than ttl at now.
func (s *Snapshot) Expired(now time.Time, ttl time.Duration) bool {
	return s.Age(now) >= ttl
}
