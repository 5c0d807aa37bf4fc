package pkg

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/safeshipper/hazard-assessment-service/internal/config"
	"github.com/safeshipper/hazard-assessment-service/internal/models"
)

func InitDatabase(cfg *config.Config) (*gorm.DB, error) {
	var logLevel logger.LogLevel
	if cfg.Environment == "production" {
		logLevel = logger.Error
	} else {
		logLevel = logger.Info
	}

	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{
		Logger:         logger.Default.LogMode(logLevel),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return db, nil
}

// MigrateDatabase creates or updates the schema for all persisted entities.
func MigrateDatabase(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.AssessmentTemplate{},
		&models.AssessmentSection{},
		&models.AssessmentQuestion{},
		&models.AssessmentAssignment{},
		&models.HazardAssessment{},
		&models.AssessmentAnswer{},
		&models.SecurityEvent{},
	)
}
