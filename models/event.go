package models

import (
	"time"
)

// EventKind tags entries in the per-user recovery event log
type EventKind string

const (
	EventKindModuleStarted     EventKind = "module_started"
	EventKindActivityCompleted EventKind = "activity_completed"
	EventKindObservationLogged EventKind = "observation_logged"
)

// RecoveryEvent is one entry in the append-only per-user event log. Written once
// by ingestion, never mutated afterwards.
type RecoveryEvent struct {
	ID             string    `json:"id"`
	ExternalUserID string    `json:"external_user_id"`
	Kind           EventKind `json:"kind"`

	// Module event fields
	ModuleID   int    `json:"module_id,omitempty"`
	ActivityID string `json:"activity_id,omitempty"`
	Score      int64  `json:"score,omitempty"`

	// Pattern event fields
	ObservationID string `json:"observation_id,omitempty"`

	RecordedAt time.Time `json:"recorded_at"`
}
