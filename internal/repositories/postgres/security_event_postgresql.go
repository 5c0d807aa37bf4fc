package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/safeshipper/hazard-assessment-service/internal/models"
	"github.com/safeshipper/hazard-assessment-service/internal/repositories"
)

type SecurityEventPostgreSQL struct {
	db *gorm.DB
}

func NewSecurityEventPostgreSQL(db *gorm.DB) repositories.SecurityEventRepository {
	return &SecurityEventPostgreSQL{db: db}
}

func (s *SecurityEventPostgreSQL) Create(ctx context.Context, tx *gorm.DB, event *models.SecurityEvent) error {
	return session(ctx, s.db, tx).Create(event).Error
}

func (s *SecurityEventPostgreSQL) CreateBatch(ctx context.Context, tx *gorm.DB, events []*models.SecurityEvent) error {
	if len(events) == 0 {
		return nil
	}
	return session(ctx, s.db, tx).CreateInBatches(events, 100).Error
}

func (s *SecurityEventPostgreSQL) GetByAssessment(ctx context.Context, tx *gorm.DB, assessmentID string) ([]*models.SecurityEvent, error) {
	var events []*models.SecurityEvent
	err := session(ctx, s.db, tx).
		Where("assessment_id = ?", assessmentID).
		Order("occurred_at ASC").
		Find(&events).Error
	if err != nil {
		return nil, err
	}
	return events, nil
}

func (s *SecurityEventPostgreSQL) List(ctx context.Context, tx *gorm.DB, filters repositories.SecurityEventFilters) ([]*models.SecurityEvent, int64, error) {
	var events []*models.SecurityEvent
	var total int64

	query := session(ctx, s.db, tx).Model(&models.SecurityEvent{})

	if filters.AssessmentID != nil {
		query = query.Where("assessment_id = ?", *filters.AssessmentID)
	}
	if filters.Kind != nil {
		query = query.Where("kind = ?", *filters.Kind)
	}
	if filters.DateFrom != nil {
		query = query.Where("occurred_at >= ?", *filters.DateFrom)
	}
	if filters.DateTo != nil {
		query = query.Where("occurred_at <= ?", *filters.DateTo)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count security events: %w", err)
	}

	err := applyPagination(query, filters.Limit, filters.Offset).
		Order("occurred_at DESC").
		Find(&events).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list security events: %w", err)
	}
	return events, total, nil
}
