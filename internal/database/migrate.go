package database

import (
	"gorm.io/gorm"

	"github.com/vitalis-health/backend/internal/models"
)

// Migrate applies the schema for both entity kinds.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.UserProfile{},
		&models.AssessmentRecord{},
	)
}
