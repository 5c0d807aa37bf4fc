package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/safeshipper/hazard-assessment-service/internal/models"
	"github.com/safeshipper/hazard-assessment-service/internal/repositories"
)

type TemplatePostgreSQL struct {
	db *gorm.DB
}

func NewTemplatePostgreSQL(db *gorm.DB) repositories.TemplateRepository {
	return &TemplatePostgreSQL{db: db}
}

func (t *TemplatePostgreSQL) Create(ctx context.Context, tx *gorm.DB, template *models.AssessmentTemplate) error {
	return session(ctx, t.db, tx).Create(template).Error
}

func (t *TemplatePostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.AssessmentTemplate, error) {
	var template models.AssessmentTemplate
	if err := session(ctx, t.db, tx).First(&template, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &template, nil
}

func (t *TemplatePostgreSQL) GetByIDWithDetails(ctx context.Context, tx *gorm.DB, id string) (*models.AssessmentTemplate, error) {
	var template models.AssessmentTemplate
	err := session(ctx, t.db, tx).
		Preload("Sections", func(db *gorm.DB) *gorm.DB {
			return db.Order("\"order\" ASC")
		}).
		Preload("Sections.Questions", func(db *gorm.DB) *gorm.DB {
			return db.Order("\"order\" ASC")
		}).
		First(&template, "id = ?", id).Error
	if err != nil {
		return nil, err
	}

	for _, section := range template.Sections {
		template.QuestionsCount += len(section.Questions)
	}
	return &template, nil
}

func (t *TemplatePostgreSQL) Update(ctx context.Context, tx *gorm.DB, template *models.AssessmentTemplate) error {
	return session(ctx, t.db, tx).Save(template).Error
}

func (t *TemplatePostgreSQL) Delete(ctx context.Context, tx *gorm.DB, id string) error {
	return session(ctx, t.db, tx).Delete(&models.AssessmentTemplate{}, "id = ?", id).Error
}

func (t *TemplatePostgreSQL) List(ctx context.Context, tx *gorm.DB, filters repositories.TemplateFilters) ([]*models.AssessmentTemplate, int64, error) {
	var templates []*models.AssessmentTemplate
	var total int64

	query := session(ctx, t.db, tx).Model(&models.AssessmentTemplate{})

	if filters.CompanyID != nil {
		query = query.Where("company_id = ?", *filters.CompanyID)
	}
	if filters.IsActive != nil {
		query = query.Where("is_active = ?", *filters.IsActive)
	}
	if filters.CreatedBy != nil {
		query = query.Where("created_by = ?", *filters.CreatedBy)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count templates: %w", err)
	}

	query = applySort(query, filters.SortBy, filters.SortOrder,
		map[string]bool{"created_at": true, "name": true, "version": true}, "created_at")
	query = applyPagination(query, filters.Limit, filters.Offset)

	if err := query.Find(&templates).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list templates: %w", err)
	}
	return templates, total, nil
}

func (t *TemplatePostgreSQL) GetDefaultForCompany(ctx context.Context, tx *gorm.DB, companyID string) (*models.AssessmentTemplate, error) {
	var template models.AssessmentTemplate
	err := session(ctx, t.db, tx).
		Where("company_id = ? AND is_default = ? AND is_active = ?", companyID, true, true).
		First(&template).Error
	if err != nil {
		return nil, err
	}
	return &template, nil
}

func (t *TemplatePostgreSQL) SetActive(ctx context.Context, tx *gorm.DB, id string, active bool) error {
	return session(ctx, t.db, tx).
		Model(&models.AssessmentTemplate{}).
		Where("id = ?", id).
		Update("is_active", active).Error
}

func (t *TemplatePostgreSQL) ExistsByName(ctx context.Context, tx *gorm.DB, name, companyID string, excludeID *string) (bool, error) {
	var count int64
	query := session(ctx, t.db, tx).
		Model(&models.AssessmentTemplate{}).
		Where("name = ? AND company_id = ?", name, companyID)
	if excludeID != nil {
		query = query.Where("id != ?", *excludeID)
	}
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (t *TemplatePostgreSQL) HasAssessments(ctx context.Context, tx *gorm.DB, id string) (bool, error) {
	var count int64
	err := session(ctx, t.db, tx).
		Model(&models.HazardAssessment{}).
		Where("template_id = ?", id).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (t *TemplatePostgreSQL) GetTemplateStats(ctx context.Context, tx *gorm.DB, id string) (*repositories.TemplateStats, error) {
	db := session(ctx, t.db, tx)
	stats := &repositories.TemplateStats{}

	var counts struct {
		Total     int64
		Completed int64
		Failed    int64
		Overrides int64
		AvgSec    *float64
	}

	err := db.Model(&models.HazardAssessment{}).
		Select(`COUNT(*) AS total,
			COUNT(*) FILTER (WHERE status = ?) AS completed,
			COUNT(*) FILTER (WHERE status = ?) AS failed,
			COUNT(*) FILTER (WHERE override_requested_at IS NOT NULL) AS overrides,
			AVG(completion_seconds) AS avg_sec`,
			models.StatusCompleted, models.StatusFailed).
		Where("template_id = ?", id).
		Scan(&counts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to compute template stats: %w", err)
	}

	stats.TotalAssessments = int(counts.Total)
	stats.CompletedAssessments = int(counts.Completed)
	stats.FailedAssessments = int(counts.Failed)
	stats.OverrideCount = int(counts.Overrides)
	if counts.AvgSec != nil {
		stats.AverageSeconds = *counts.AvgSec
	}
	finished := counts.Completed + counts.Failed
	if finished > 0 {
		stats.PassRate = float64(counts.Completed) / float64(finished) * 100
	}
	return stats, nil
}

// ===== ASSIGNMENT RULES =====

type AssignmentPostgreSQL struct {
	db *gorm.DB
}

func NewAssignmentPostgreSQL(db *gorm.DB) repositories.AssignmentRepository {
	return &AssignmentPostgreSQL{db: db}
}

func (a *AssignmentPostgreSQL) Create(ctx context.Context, tx *gorm.DB, assignment *models.AssessmentAssignment) error {
	return session(ctx, a.db, tx).Create(assignment).Error
}

func (a *AssignmentPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.AssessmentAssignment, error) {
	var assignment models.AssessmentAssignment
	if err := session(ctx, a.db, tx).Preload("Template").First(&assignment, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &assignment, nil
}

func (a *AssignmentPostgreSQL) Update(ctx context.Context, tx *gorm.DB, assignment *models.AssessmentAssignment) error {
	return session(ctx, a.db, tx).Save(assignment).Error
}

func (a *AssignmentPostgreSQL) Delete(ctx context.Context, tx *gorm.DB, id string) error {
	return session(ctx, a.db, tx).Delete(&models.AssessmentAssignment{}, "id = ?", id).Error
}

func (a *AssignmentPostgreSQL) GetActiveForCompany(ctx context.Context, tx *gorm.DB, companyID string) ([]*models.AssessmentAssignment, error) {
	var assignments []*models.AssessmentAssignment
	err := session(ctx, a.db, tx).
		Preload("Template").
		Where("company_id = ? AND is_active = ?", companyID, true).
		Order("priority ASC").
		Find(&assignments).Error
	if err != nil {
		return nil, err
	}
	return assignments, nil
}

func (a *AssignmentPostgreSQL) GetByTrigger(ctx context.Context, tx *gorm.DB, companyID string, trigger models.AssignmentTrigger) ([]*models.AssessmentAssignment, error) {
	var assignments []*models.AssessmentAssignment
	err := session(ctx, a.db, tx).
		Preload("Template").
		Where("company_id = ? AND trigger = ? AND is_active = ?", companyID, trigger, true).
		Order("priority ASC").
		Find(&assignments).Error
	if err != nil {
		return nil, err
	}
	return assignments, nil
}
