package models

import (
	"time"

	"gorm.io/gorm"
)

// RecoveryUser is a local snapshot of user data needed by this service.
// Owned and managed solely by the recovery companion service.
// Populated via sync worker from the Profile Service's user table.
type RecoveryUser struct {
	ID             string  `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	ExternalUserID string  `gorm:"uniqueIndex;not null" json:"external_user_id"` // the profile service's UUID
	Username       string  `gorm:"index;not null" json:"username"`
	Email          string  `json:"email,omitempty"`
	DisplayName    *string `json:"display_name,omitempty"`
	Timezone       *string `json:"timezone,omitempty"`

	// Emergency contact surfaced alongside crisis resources; optional
	SupportContact *string `json:"support_contact,omitempty"`

	CreatedAt time.Time  `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time  `json:"updated_at" gorm:"autoUpdateTime"`
	LastSeen  *time.Time `json:"last_seen,omitempty"`

	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}
