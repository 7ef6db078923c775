package models

import (
	"time"
)

// RiskSnapshot is a persisted point-in-time risk computation, written by the
// periodic risk sweep worker. The in-memory engine never reads these back; they
// exist for history endpoints and the SSE stream.
type RiskSnapshot struct {
	ID             string    `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	ExternalUserID string    `gorm:"index;not null" json:"external_user_id"`
	Level          RiskLevel `gorm:"type:varchar(8);not null" json:"level"`

	ObservationCount  int `json:"observation_count"`   // observations inside the window at compute time
	HighSeverityCount int `json:"high_severity_count"` // severity > 7 inside the window

	ComputedAt time.Time `gorm:"index" json:"computed_at"`
	CreatedAt  time.Time `json:"created_at" gorm:"autoCreateTime"`
}
