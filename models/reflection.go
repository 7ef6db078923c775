package models

import (
	"time"
)

// ReflectionSession records one free-form reflection exchange with the
// text-completion backend (or its static fallback).
type ReflectionSession struct {
	ID             string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	ExternalUserID string `gorm:"index;not null" json:"external_user_id"`
	ModuleID       *int   `gorm:"index" json:"module_id,omitempty"` // nil = freeform journaling

	Prompt string `gorm:"type:text" json:"prompt"`
	Reply  string `gorm:"type:text" json:"reply"`

	// True when the backend failed and the static fallback reply was served
	Fallback bool `json:"fallback" gorm:"default:false"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}
