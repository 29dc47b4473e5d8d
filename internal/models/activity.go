package models

import "time"

// ActivityLog entries are insert-only.
type ActivityLog struct {
	ID        string
	UserID    *string
	Action    string
	Method    string
	Path      string
	Details   map[string]any
	IPAddress string
	Status    int
	CreatedAt time.Time
}
