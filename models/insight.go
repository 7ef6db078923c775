package models

import (
	"time"
)

// PredictionType classifies a generated prediction
type PredictionType string

const (
	PredictionTypeRisk        PredictionType = "risk"
	PredictionTypeOpportunity PredictionType = "opportunity"
	PredictionTypeInsight     PredictionType = "insight"
)

// RiskLevel is the coarse aggregate derived from the 7-day observation window
type RiskLevel string

const (
	RiskLevelLow    RiskLevel = "low"
	RiskLevelMedium RiskLevel = "medium"
	RiskLevelHigh   RiskLevel = "high"
)

// Prediction is an ephemeral generated message; only the most recent few per user
// are retained (bounded history), older ones are discarded.
type Prediction struct {
	Type       PredictionType `json:"type"`
	Confidence float64        `json:"confidence"` // 0-1
	Message    string         `json:"message"`
	Actionable bool           `json:"actionable"`
	Action     string         `json:"action,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

// UserInsights is a derived snapshot: the recent observation window, the bounded
// prediction history, the aggregated risk level and the recommendation list, all
// computed from one consistent view of the log.
type UserInsights struct {
	Patterns        []PatternObservation `json:"patterns"`
	Predictions     []Prediction         `json:"predictions"`
	RiskLevel       RiskLevel            `json:"risk_level"`
	Recommendations []string             `json:"recommendations"`
}
