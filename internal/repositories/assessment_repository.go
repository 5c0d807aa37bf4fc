package repositories

import (
	"context"

	"gorm.io/gorm"

	"github.com/safeshipper/hazard-assessment-service/internal/models"
)

// AssessmentRepository interface for hazard assessment operations
type AssessmentRepository interface {
	// Basic CRUD operations
	Create(ctx context.Context, tx *gorm.DB, assessment *models.HazardAssessment) error
	GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.HazardAssessment, error)
	GetByIDWithDetails(ctx context.Context, tx *gorm.DB, id string) (*models.HazardAssessment, error) // Include template, answers, events
	Update(ctx context.Context, tx *gorm.DB, assessment *models.HazardAssessment) error

	// Query operations
	List(ctx context.Context, tx *gorm.DB, filters AssessmentFilters) ([]*models.HazardAssessment, int64, error)
	GetByShipment(ctx context.Context, tx *gorm.DB, shipmentID string) ([]*models.HazardAssessment, error)
	GetInProgressForUser(ctx context.Context, tx *gorm.DB, userID string) ([]*models.HazardAssessment, error)
	GetPendingOverrides(ctx context.Context, tx *gorm.DB, companyID string, limit, offset int) ([]*models.HazardAssessment, int64, error)

	// Status management
	UpdateStatus(ctx context.Context, tx *gorm.DB, id string, status models.AssessmentStatus) error

	// Statistics and analytics
	GetCompletionStats(ctx context.Context, tx *gorm.DB, companyID string, filters AssessmentFilters) (*CompletionStats, error)
}

// AnswerRepository interface for persisted answer operations
type AnswerRepository interface {
	// Upsert keyed on (assessment_id, question_id) so re-advancing after a
	// retreat updates the same row.
	Upsert(ctx context.Context, tx *gorm.DB, answer *models.AssessmentAnswer) error
	GetByAssessment(ctx context.Context, tx *gorm.DB, assessmentID string) ([]*models.AssessmentAnswer, error)
	GetByAssessmentAndQuestion(ctx context.Context, tx *gorm.DB, assessmentID, questionID string) (*models.AssessmentAnswer, error)
	CountByAssessment(ctx context.Context, tx *gorm.DB, assessmentID string) (int64, error)
	DeleteByAssessment(ctx context.Context, tx *gorm.DB, assessmentID string) error
}

// SecurityEventRepository interface for append-only anti-cheating signals
type SecurityEventRepository interface {
	Create(ctx context.Context, tx *gorm.DB, event *models.SecurityEvent) error
	CreateBatch(ctx context.Context, tx *gorm.DB, events []*models.SecurityEvent) error
	GetByAssessment(ctx context.Context, tx *gorm.DB, assessmentID string) ([]*models.SecurityEvent, error)
	List(ctx context.Context, tx *gorm.DB, filters SecurityEventFilters) ([]*models.SecurityEvent, int64, error)
}
