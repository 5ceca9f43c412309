package database

import (
	"gorm.io/gorm"

	"github.com/noah-isme/agency-ops-api/internal/models"
)

// Migrate creates or updates every table the service owns.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.LearningResource{},
		&models.Tool{},
		&models.Task{},
		&models.Assignment{},
		&models.Completion{},
		&models.ActivityLog{},
	)
}
