package domain

import "time"

// SyncStatus is the lifecycle of one bulk-fetch run segment.
type SyncStatus string

const (
	SyncInProgress SyncStatus = "in_progress"
	SyncCompleted  SyncStatus = "completed"
	SyncFailed     SyncStatus = "failed"
)

// SyncLog is the append-only audit record of one bulk-fetch run segment.
// Created when the run starts, mutated while it progresses, never deleted by
// the sync core.
type SyncLog struct {
	ID        string
	StoreID   string
	Type      EntityClass
	Status    SyncStatus
	Fetched   int
	Skipped   int
	Remaining int
	Error     string
	StartedAt time.Time
	UpdatedAt time.Time
}
