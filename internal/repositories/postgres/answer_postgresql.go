package postgres

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/safeshipper/hazard-assessment-service/internal/models"
	"github.com/safeshipper/hazard-assessment-service/internal/repositories"
)

type AnswerPostgreSQL struct {
	db *gorm.DB
}

func NewAnswerPostgreSQL(db *gorm.DB) repositories.AnswerRepository {
	return &AnswerPostgreSQL{db: db}
}

// Upsert writes the answer keyed on (assessment_id, question_id). Advancing
// again after a retreat replaces the previous row instead of duplicating it.
func (a *AnswerPostgreSQL) Upsert(ctx context.Context, tx *gorm.DB, answer *models.AssessmentAnswer) error {
	return session(ctx, a.db, tx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "assessment_id"}, {Name: "question_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"value", "comment", "photo_url", "evidence_metadata",
				"is_override", "override_reason", "security_metadata",
				"answered_at", "latitude", "longitude", "updated_at",
			}),
		}).
		Create(answer).Error
}

func (a *AnswerPostgreSQL) GetByAssessment(ctx context.Context, tx *gorm.DB, assessmentID string) ([]*models.AssessmentAnswer, error) {
	var answers []*models.AssessmentAnswer
	err := session(ctx, a.db, tx).
		Preload("Question").
		Where("assessment_id = ?", assessmentID).
		Order("answered_at ASC").
		Find(&answers).Error
	if err != nil {
		return nil, err
	}
	return answers, nil
}

func (a *AnswerPostgreSQL) GetByAssessmentAndQuestion(ctx context.Context, tx *gorm.DB, assessmentID, questionID string) (*models.AssessmentAnswer, error) {
	var answer models.AssessmentAnswer
	err := session(ctx, a.db, tx).
		Where("assessment_id = ? AND question_id = ?", assessmentID, questionID).
		First(&answer).Error
	if err != nil {
		return nil, err
	}
	return &answer, nil
}

func (a *AnswerPostgreSQL) CountByAssessment(ctx context.Context, tx *gorm.DB, assessmentID string) (int64, error) {
	var count int64
	err := session(ctx, a.db, tx).
		Model(&models.AssessmentAnswer{}).
		Where("assessment_id = ?", assessmentID).
		Count(&count).Error
	return count, err
}

func (a *AnswerPostgreSQL) DeleteByAssessment(ctx context.Context, tx *gorm.DB, assessmentID string) error {
	return session(ctx, a.db, tx).
		Where("assessment_id = ?", assessmentID).
		Delete(&models.AssessmentAnswer{}).Error
}
