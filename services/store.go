package services

import (
	"recovery-companion-system/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormProgressStore persists progress records to postgres. Upserts target the
// (external_user_id, module_id) unique index so replays stay idempotent.
type GormProgressStore struct {
	DB *gorm.DB
}

func NewGormProgressStore(db *gorm.DB) *GormProgressStore {
	return &GormProgressStore{DB: db}
}

func (s *GormProgressStore) LoadProgress(externalUserID string) ([]models.UserModuleProgress, error) {
	var rows []models.UserModuleProgress
	err := s.DB.Where("external_user_id = ?", externalUserID).
		Order("started_at ASC").
		Find(&rows).Error
	return rows, err
}

func (s *GormProgressStore) SaveProgress(p *models.UserModuleProgress) error {
	return s.DB.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "external_user_id"}, {Name: "module_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"completed_at",
			"activities_completed",
			"score",
			"is_active",
			"updated_at",
		}),
	}).Create(p).Error
}

// GormObservationStore persists the append-only observation log.
type GormObservationStore struct {
	DB *gorm.DB
}

func NewGormObservationStore(db *gorm.DB) *GormObservationStore {
	return &GormObservationStore{DB: db}
}

func (s *GormObservationStore) LoadObservations(externalUserID string) ([]models.PatternObservation, error) {
	var rows []models.PatternObservation
	// created_at breaks observed_at ties, preserving insertion order
	err := s.DB.Where("external_user_id = ?", externalUserID).
		Order("observed_at ASC, created_at ASC").
		Find(&rows).Error
	return rows, err
}

func (s *GormObservationStore) SaveObservation(o *models.PatternObservation) error {
	return s.DB.Create(o).Error
}
