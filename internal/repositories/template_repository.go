package repositories

import (
	"context"

	"gorm.io/gorm"

	"github.com/safeshipper/hazard-assessment-service/internal/models"
)

// TemplateRepository interface for template-specific operations
type TemplateRepository interface {
	// Basic CRUD operations
	Create(ctx context.Context, tx *gorm.DB, template *models.AssessmentTemplate) error
	GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.AssessmentTemplate, error)
	GetByIDWithDetails(ctx context.Context, tx *gorm.DB, id string) (*models.AssessmentTemplate, error) // Include sections, questions
	Update(ctx context.Context, tx *gorm.DB, template *models.AssessmentTemplate) error
	Delete(ctx context.Context, tx *gorm.DB, id string) error // Soft delete

	// Query operations
	List(ctx context.Context, tx *gorm.DB, filters TemplateFilters) ([]*models.AssessmentTemplate, int64, error)
	GetDefaultForCompany(ctx context.Context, tx *gorm.DB, companyID string) (*models.AssessmentTemplate, error)

	// Status management
	SetActive(ctx context.Context, tx *gorm.DB, id string, active bool) error

	// Validation helpers
	ExistsByName(ctx context.Context, tx *gorm.DB, name, companyID string, excludeID *string) (bool, error)
	HasAssessments(ctx context.Context, tx *gorm.DB, id string) (bool, error)

	// Statistics
	GetTemplateStats(ctx context.Context, tx *gorm.DB, id string) (*TemplateStats, error)
}

// AssignmentRepository interface for template assignment rule operations
type AssignmentRepository interface {
	Create(ctx context.Context, tx *gorm.DB, assignment *models.AssessmentAssignment) error
	GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.AssessmentAssignment, error)
	Update(ctx context.Context, tx *gorm.DB, assignment *models.AssessmentAssignment) error
	Delete(ctx context.Context, tx *gorm.DB, id string) error

	// Matching rules ordered by priority, lowest first
	GetActiveForCompany(ctx context.Context, tx *gorm.DB, companyID string) ([]*models.AssessmentAssignment, error)
	GetByTrigger(ctx context.Context, tx *gorm.DB, companyID string, trigger models.AssignmentTrigger) ([]*models.AssessmentAssignment, error)
}
