package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/safeshipper/hazard-assessment-service/internal/models"
	"github.com/safeshipper/hazard-assessment-service/internal/repositories"
)

type AssessmentPostgreSQL struct {
	db *gorm.DB
}

func NewAssessmentPostgreSQL(db *gorm.DB) repositories.AssessmentRepository {
	return &AssessmentPostgreSQL{db: db}
}

func (a *AssessmentPostgreSQL) Create(ctx context.Context, tx *gorm.DB, assessment *models.HazardAssessment) error {
	return session(ctx, a.db, tx).Create(assessment).Error
}

func (a *AssessmentPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.HazardAssessment, error) {
	var assessment models.HazardAssessment
	if err := session(ctx, a.db, tx).First(&assessment, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &assessment, nil
}

func (a *AssessmentPostgreSQL) GetByIDWithDetails(ctx context.Context, tx *gorm.DB, id string) (*models.HazardAssessment, error) {
	var assessment models.HazardAssessment
	err := session(ctx, a.db, tx).
		Preload("Template.Sections", func(db *gorm.DB) *gorm.DB {
			return db.Order("\"order\" ASC")
		}).
		Preload("Template.Sections.Questions", func(db *gorm.DB) *gorm.DB {
			return db.Order("\"order\" ASC")
		}).
		Preload("Answers").
		Preload("SecurityEvents", func(db *gorm.DB) *gorm.DB {
			return db.Order("occurred_at ASC")
		}).
		First(&assessment, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &assessment, nil
}

func (a *AssessmentPostgreSQL) Update(ctx context.Context, tx *gorm.DB, assessment *models.HazardAssessment) error {
	return session(ctx, a.db, tx).Save(assessment).Error
}

func (a *AssessmentPostgreSQL) List(ctx context.Context, tx *gorm.DB, filters repositories.AssessmentFilters) ([]*models.HazardAssessment, int64, error) {
	var assessments []*models.HazardAssessment
	var total int64

	query := session(ctx, a.db, tx).Model(&models.HazardAssessment{})

	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}
	if filters.ShipmentID != nil {
		query = query.Where("shipment_id = ?", *filters.ShipmentID)
	}
	if filters.TemplateID != nil {
		query = query.Where("template_id = ?", *filters.TemplateID)
	}
	if filters.CompletedBy != nil {
		query = query.Where("completed_by = ?", *filters.CompletedBy)
	}
	if filters.DateFrom != nil {
		query = query.Where("created_at >= ?", *filters.DateFrom)
	}
	if filters.DateTo != nil {
		query = query.Where("created_at <= ?", *filters.DateTo)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count assessments: %w", err)
	}

	query = applySort(query, filters.SortBy, filters.SortOrder,
		map[string]bool{"created_at": true, "started_at": true, "ended_at": true, "status": true}, "created_at")
	query = applyPagination(query, filters.Limit, filters.Offset)

	if err := query.Find(&assessments).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list assessments: %w", err)
	}
	return assessments, total, nil
}

func (a *AssessmentPostgreSQL) GetByShipment(ctx context.Context, tx *gorm.DB, shipmentID string) ([]*models.HazardAssessment, error) {
	var assessments []*models.HazardAssessment
	err := session(ctx, a.db, tx).
		Where("shipment_id = ?", shipmentID).
		Order("created_at DESC").
		Find(&assessments).Error
	if err != nil {
		return nil, err
	}
	return assessments, nil
}

func (a *AssessmentPostgreSQL) GetInProgressForUser(ctx context.Context, tx *gorm.DB, userID string) ([]*models.HazardAssessment, error) {
	var assessments []*models.HazardAssessment
	err := session(ctx, a.db, tx).
		Where("completed_by = ? AND status = ?", userID, models.StatusInProgress).
		Order("created_at DESC").
		Find(&assessments).Error
	if err != nil {
		return nil, err
	}
	return assessments, nil
}

func (a *AssessmentPostgreSQL) GetPendingOverrides(ctx context.Context, tx *gorm.DB, companyID string, limit, offset int) ([]*models.HazardAssessment, int64, error) {
	var assessments []*models.HazardAssessment
	var total int64

	query := session(ctx, a.db, tx).
		Model(&models.HazardAssessment{}).
		Joins("JOIN assessment_templates ON assessment_templates.id = hazard_assessments.template_id").
		Where("assessment_templates.company_id = ? AND hazard_assessments.status = ?",
			companyID, models.StatusOverrideRequested)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count pending overrides: %w", err)
	}

	err := applyPagination(query, limit, offset).
		Order("hazard_assessments.override_requested_at ASC").
		Find(&assessments).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list pending overrides: %w", err)
	}
	return assessments, total, nil
}

func (a *AssessmentPostgreSQL) UpdateStatus(ctx context.Context, tx *gorm.DB, id string, status models.AssessmentStatus) error {
	result := session(ctx, a.db, tx).
		Model(&models.HazardAssessment{}).
		Where("id = ?", id).
		Update("status", status)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (a *AssessmentPostgreSQL) GetCompletionStats(ctx context.Context, tx *gorm.DB, companyID string, filters repositories.AssessmentFilters) (*repositories.CompletionStats, error) {
	db := session(ctx, a.db, tx)
	stats := &repositories.CompletionStats{
		StatusBreakdown:    make(map[models.AssessmentStatus]int),
		SecurityViolations: make(map[models.SecurityEventKind]int),
	}

	base := db.Model(&models.HazardAssessment{}).
		Joins("JOIN assessment_templates ON assessment_templates.id = hazard_assessments.template_id").
		Where("assessment_templates.company_id = ?", companyID)
	if filters.DateFrom != nil {
		base = base.Where("hazard_assessments.created_at >= ?", *filters.DateFrom)
	}
	if filters.DateTo != nil {
		base = base.Where("hazard_assessments.created_at <= ?", *filters.DateTo)
	}

	var rows []struct {
		Status models.AssessmentStatus
		Count  int64
	}
	if err := base.Session(&gorm.Session{}).
		Select("hazard_assessments.status AS status, COUNT(*) AS count").
		Group("hazard_assessments.status").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to compute status breakdown: %w", err)
	}
	for _, row := range rows {
		stats.StatusBreakdown[row.Status] = int(row.Count)
		stats.TotalAssessments += int(row.Count)
	}

	completed := stats.StatusBreakdown[models.StatusCompleted] + stats.StatusBreakdown[models.StatusOverrideApproved]
	failed := stats.StatusBreakdown[models.StatusFailed] + stats.StatusBreakdown[models.StatusOverrideDenied]
	if completed+failed > 0 {
		stats.PassRate = float64(completed) / float64(completed+failed) * 100
	}

	var timing struct {
		AvgSec *float64
	}
	if err := base.Session(&gorm.Session{}).
		Select("AVG(hazard_assessments.completion_seconds) AS avg_sec").
		Scan(&timing).Error; err != nil {
		return nil, fmt.Errorf("failed to compute timing stats: %w", err)
	}
	if timing.AvgSec != nil {
		stats.AverageSeconds = *timing.AvgSec
	}

	var violations []struct {
		Kind  models.SecurityEventKind
		Count int64
	}
	err := db.Model(&models.SecurityEvent{}).
		Joins("JOIN hazard_assessments ON hazard_assessments.id = security_events.assessment_id").
		Joins("JOIN assessment_templates ON assessment_templates.id = hazard_assessments.template_id").
		Where("assessment_templates.company_id = ?", companyID).
		Select("security_events.kind AS kind, COUNT(*) AS count").
		Group("security_events.kind").
		Scan(&violations).Error
	if err != nil {
		return nil, fmt.Errorf("failed to compute violation stats: %w", err)
	}
	for _, v := range violations {
		stats.SecurityViolations[v.Kind] = int(v.Count)
	}

	return stats, nil
}
