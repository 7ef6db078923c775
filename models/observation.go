package models

import (
	"time"
)

// PatternType is the closed category set for logged observations
type PatternType string

const (
	PatternTypeMeal    PatternType = "meal"
	PatternTypeTrigger PatternType = "trigger"
	PatternTypeMood    PatternType = "mood"
	PatternTypeCrisis  PatternType = "crisis"
)

// KnownPatternType reports whether t belongs to the closed category set
func KnownPatternType(t PatternType) bool {
	switch t {
	case PatternTypeMeal, PatternTypeTrigger, PatternTypeMood, PatternTypeCrisis:
		return true
	}
	return false
}

// PatternObservation is one logged user event relevant to risk analysis.
// Immutable once recorded; ordered by ObservedAt with insertion order breaking ties.
type PatternObservation struct {
	ID             string      `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	ExternalUserID string      `gorm:"index;not null" json:"external_user_id"`
	Type           PatternType `gorm:"type:varchar(16);not null" json:"type"`

	// Severity on a 1-10 scale; nil when the entry carries no severity annotation
	Severity *int `json:"severity,omitempty"`

	// Free-form payload, e.g. {"trigger_type": "social media"} on trigger entries
	Payload map[string]string `gorm:"type:jsonb;serializer:json" json:"payload,omitempty"`

	ObservedAt time.Time `gorm:"index" json:"observed_at"`

	Timestamps
}

// HighSeverity reports whether the observation's severity exceeds the threshold
func (o *PatternObservation) HighSeverity(threshold int) bool {
	return o.Severity != nil && *o.Severity > threshold
}
