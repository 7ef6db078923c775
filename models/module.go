package models

import (
	"time"
)

// ActivityType distinguishes the interactive activity formats inside a module
type ActivityType string

const (
	ActivityTypeDefinitionMatch ActivityType = "definition-match"
	ActivityTypeClozeText       ActivityType = "cloze-text"
	ActivityTypeSoftQuiz        ActivityType = "soft-quiz"
	ActivityTypeInteractive     ActivityType = "interactive"
)

// Module is a static curriculum definition loaded from a per-module config.json.
// Modules form a DAG over Prerequisites; the catalog rejects cycles at load time.
type Module struct {
	ID                int                `json:"id"`
	Title             string             `json:"title"`
	Slug              string             `json:"slug,omitempty"` // computed at catalog load, not part of config.json
	Description       string             `json:"description"`
	Prerequisites     []int              `json:"prerequisites"`
	Activities        []ActivityConfig   `json:"activities"`
	ReflectionPrompts []ReflectionPrompt `json:"reflection_prompts,omitempty"`
	EstimatedDuration int                `json:"estimated_duration"` // minutes
	Tags              []string           `json:"tags,omitempty"`
	IsActive          bool               `json:"is_active"`
	ActivatesAt       *time.Time         `json:"activates_at,omitempty"` // nil = active flag is authoritative
}

// ActivityConfig is a completable unit inside a module
type ActivityConfig struct {
	ID          string       `json:"id"`
	Type        ActivityType `json:"type"`
	Title       string       `json:"title"`
	Description string       `json:"description,omitempty"`
	Points      int64        `json:"points"`
	Required    bool         `json:"required"`
}

// ReflectionPrompt seeds the guided journaling flow attached to a module
type ReflectionPrompt struct {
	ID              string   `json:"id"`
	Title           string   `json:"title"`
	Prompt          string   `json:"prompt"`
	FollowUpPrompts []string `json:"follow_up_prompts,omitempty"`
	Intent          string   `json:"intent,omitempty"` // explore, validate, reframe, support
	Tags            []string `json:"tags,omitempty"`
}

// Activity returns the activity config for the given id, if it belongs to the module
func (m *Module) Activity(activityID string) (*ActivityConfig, bool) {
	for i := range m.Activities {
		if m.Activities[i].ID == activityID {
			return &m.Activities[i], true
		}
	}
	return nil, false
}
