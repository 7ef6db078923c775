package models

import (
	"time"

	"gorm.io/gorm"
)

// ModuleState is the externally visible gating state of a (user, module) pair
type ModuleState string

const (
	ModuleStateLocked     ModuleState = "locked"
	ModuleStateAvailable  ModuleState = "available"
	ModuleStateInProgress ModuleState = "in-progress"
	ModuleStateCompleted  ModuleState = "completed"
)

// UserModuleProgress is the per-(user, module) progress record, created the moment
// a user starts a module. Completed records are retained as history, never deleted.
type UserModuleProgress struct {
	ID             string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	ExternalUserID string `gorm:"uniqueIndex:idx_user_module;not null" json:"external_user_id"` // links to profile service
	ModuleID       int    `gorm:"uniqueIndex:idx_user_module;not null" json:"module_id"`

	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// Completed activity ids (unique, unordered). Score accumulates only the first
	// time an activity id enters this set.
	ActivitiesCompleted []string `gorm:"type:jsonb;serializer:json" json:"activities_completed"`
	Score               int64    `json:"score" gorm:"default:0"`
	IsActive            bool     `json:"is_active" gorm:"default:true"`

	Timestamps
}

// HasCompleted reports whether the given activity id is already in the completed set
func (p *UserModuleProgress) HasCompleted(activityID string) bool {
	for _, id := range p.ActivitiesCompleted {
		if id == activityID {
			return true
		}
	}
	return false
}

// ModuleStatus is derived per query, never stored
type ModuleStatus struct {
	ModuleID            int         `json:"module_id"`
	Status              ModuleState `json:"status"`
	Progress            int         `json:"progress"` // 0-100
	ActivitiesCompleted int         `json:"activities_completed"`
	TotalActivities     int         `json:"total_activities"`
}

// UserOverview summarizes a user's position across the whole curriculum
type UserOverview struct {
	CurrentModule    int   `json:"current_module"`
	ModulesCompleted []int `json:"modules_completed"`
	TotalScore       int64 `json:"total_score"`
	TotalModules     int   `json:"total_modules"`
}

// Timestamps adds GORM auto-times
type Timestamps struct {
	CreatedAt time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}
