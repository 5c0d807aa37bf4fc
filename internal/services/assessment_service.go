package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/safeshipper/hazard-assessment-service/internal/events"
	"github.com/safeshipper/hazard-assessment-service/internal/models"
	"github.com/safeshipper/hazard-assessment-service/internal/repositories"
	"github.com/safeshipper/hazard-assessment-service/internal/utils"
)

// AssessmentService manages the server-side lifecycle of hazard assessments:
// starting them against shipments, override escalation and analytics.
type AssessmentService interface {
	Start(ctx context.Context, req *StartAssessmentRequest, userID string) (*models.HazardAssessment, error)
	GetByID(ctx context.Context, id string) (*models.HazardAssessment, error)
	GetByIDWithDetails(ctx context.Context, id string) (*models.HazardAssessment, error)
	List(ctx context.Context, filters repositories.AssessmentFilters) ([]*models.HazardAssessment, int64, error)
	GetByShipment(ctx context.Context, shipmentID string) ([]*models.HazardAssessment, error)
	GetInProgressForUser(ctx context.Context, userID string) ([]*models.HazardAssessment, error)

	// Override escalation
	RequestOverride(ctx context.Context, assessmentID, reason, userID string) (*models.HazardAssessment, error)
	ReviewOverride(ctx context.Context, assessmentID string, req *ReviewOverrideRequest, reviewerID string) (*models.HazardAssessment, error)
	GetPendingOverrides(ctx context.Context, companyID string, limit, offset int) ([]*models.HazardAssessment, int64, error)

	// Telemetry review
	GetSecurityEvents(ctx context.Context, assessmentID string) ([]*models.SecurityEvent, error)
	GetAnalytics(ctx context.Context, companyID string, filters repositories.AssessmentFilters) (*repositories.CompletionStats, error)
}

// ===== REQUEST DTOS =====

type StartAssessmentRequest struct {
	ShipmentID string                 `json:"shipment_id" validate:"required,uuid"`
	TemplateID string                 `json:"template_id" validate:"omitempty,uuid"`
	CompanyID  string                 `json:"company_id" validate:"required,uuid"`
	Trigger    string                 `json:"trigger" validate:"omitempty,oneof=FREIGHT_TYPE DANGEROUS_GOODS MANUAL"`
	Latitude   *float64               `json:"latitude" validate:"omitempty,latitude"`
	Longitude  *float64               `json:"longitude" validate:"omitempty,longitude"`
	DeviceInfo map[string]interface{} `json:"device_info"`
}

type ReviewOverrideRequest struct {
	Approve bool    `json:"approve"`
	Notes   *string `json:"notes" validate:"omitempty,max=2000"`
}

// ===== IMPLEMENTATION =====

type assessmentService struct {
	repo      repositories.Repository
	templates TemplateService
	publisher events.EventPublisher
	logger    *slog.Logger
	validator *utils.Validator

	minSecondsPerQuestion int
}

func NewAssessmentService(
	repo repositories.Repository,
	templates TemplateService,
	publisher events.EventPublisher,
	logger *slog.Logger,
	validator *utils.Validator,
	minSecondsPerQuestion int,
) AssessmentService {
	return &assessmentService{
		repo:                  repo,
		templates:             templates,
		publisher:             publisher,
		logger:                logger,
		validator:             validator,
		minSecondsPerQuestion: minSecondsPerQuestion,
	}
}

func (s *assessmentService) Start(ctx context.Context, req *StartAssessmentRequest, userID string) (*models.HazardAssessment, error) {
	s.logger.Info("Starting assessment", "shipment_id", req.ShipmentID, "user_id", userID)

	if err := s.validator.ValidateStruct(req); err != nil {
		return nil, err
	}

	user, err := s.repo.User().GetByID(ctx, nil, userID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if !user.CanCompleteAssessments() {
		return nil, NewPermissionError(userID, req.ShipmentID, "assessment", "start", "role cannot complete assessments")
	}

	template, err := s.resolveTemplate(ctx, req)
	if err != nil {
		return nil, err
	}
	if !template.IsActive {
		return nil, ErrTemplateInactive
	}
	if template.QuestionsCount == 0 {
		return nil, ErrTemplateNoQuestions
	}

	deviceInfo, err := marshalJSON(req.DeviceInfo)
	if err != nil {
		return nil, fmt.Errorf("failed to encode device info: %w", err)
	}

	now := time.Now()
	assessment := &models.HazardAssessment{
		ID:             uuid.NewString(),
		TemplateID:     template.ID,
		ShipmentID:     req.ShipmentID,
		CompletedBy:    &userID,
		Status:         models.StatusInProgress,
		StartedAt:      &now,
		StartLatitude:  req.Latitude,
		StartLongitude: req.Longitude,
		DeviceInfo:     deviceInfo,
	}

	if err := s.repo.Assessment().Create(ctx, nil, assessment); err != nil {
		return nil, fmt.Errorf("failed to create assessment: %w", err)
	}

	if err := s.publisher.PublishAssessmentEvent(ctx, events.NewAssessmentStartedEvent(assessment, template.Name)); err != nil {
		s.logger.Warn("Failed to publish assessment started event",
			"assessment_id", assessment.ID, "error", err)
	}

	s.logger.Info("Assessment started",
		"assessment_id", assessment.ID,
		"template_id", template.ID,
		"questions", template.QuestionsCount)
	return s.GetByIDWithDetails(ctx, assessment.ID)
}

func (s *assessmentService) resolveTemplate(ctx context.Context, req *StartAssessmentRequest) (*models.AssessmentTemplate, error) {
	if req.TemplateID != "" {
		return s.templates.GetByID(ctx, req.TemplateID)
	}
	trigger := models.AssignmentTrigger(req.Trigger)
	if trigger == "" {
		trigger = models.TriggerManual
	}
	return s.templates.ResolveTemplateForShipment(ctx, req.CompanyID, trigger)
}

func (s *assessmentService) GetByID(ctx context.Context, id string) (*models.HazardAssessment, error) {
	assessment, err := s.repo.Assessment().GetByID(ctx, nil, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAssessmentNotFound
		}
		return nil, fmt.Errorf("failed to get assessment: %w", err)
	}
	return assessment, nil
}

func (s *assessmentService) GetByIDWithDetails(ctx context.Context, id string) (*models.HazardAssessment, error) {
	assessment, err := s.repo.Assessment().GetByIDWithDetails(ctx, nil, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAssessmentNotFound
		}
		return nil, fmt.Errorf("failed to get assessment with details: %w", err)
	}
	return assessment, nil
}

func (s *assessmentService) List(ctx context.Context, filters repositories.AssessmentFilters) ([]*models.HazardAssessment, int64, error) {
	return s.repo.Assessment().List(ctx, nil, filters)
}

func (s *assessmentService) GetByShipment(ctx context.Context, shipmentID string) ([]*models.HazardAssessment, error) {
	return s.repo.Assessment().GetByShipment(ctx, nil, shipmentID)
}

// GetInProgressForUser lists the caller's open assessments so the mobile
// client can offer resuming them.
func (s *assessmentService) GetInProgressForUser(ctx context.Context, userID string) ([]*models.HazardAssessment, error) {
	return s.repo.Assessment().GetInProgressForUser(ctx, nil, userID)
}

// RequestOverride escalates a failed assessment to a manager. The assessment
// keeps its answers; only its status moves to OVERRIDE_REQUESTED.
func (s *assessmentService) RequestOverride(ctx context.Context, assessmentID, reason, userID string) (*models.HazardAssessment, error) {
	s.logger.Info("Override requested", "assessment_id", assessmentID, "user_id", userID)

	if reason == "" {
		return nil, fmt.Errorf("%w: override reason is required", ErrValidationFailed)
	}

	assessment, err := s.GetByID(ctx, assessmentID)
	if err != nil {
		return nil, err
	}
	if assessment.Status != models.StatusFailed && assessment.Status != models.StatusInProgress {
		return nil, ErrAssessmentFinished
	}

	now := time.Now()
	assessment.Status = models.StatusOverrideRequested
	assessment.OverrideReason = &reason
	assessment.OverrideRequestedBy = &userID
	assessment.OverrideRequestedAt = &now

	if err := s.repo.Assessment().Update(ctx, nil, assessment); err != nil {
		return nil, fmt.Errorf("failed to update assessment: %w", err)
	}

	answers, err := s.repo.Answer().GetByAssessment(ctx, nil, assessmentID)
	if err != nil {
		s.logger.Warn("Failed to load answers for override event", "assessment_id", assessmentID, "error", err)
	}
	var overriddenQuestions []string
	for _, answer := range answers {
		if answer.IsOverride {
			overriddenQuestions = append(overriddenQuestions, answer.QuestionID)
		}
	}

	if err := s.publisher.PublishAssessmentEvent(ctx, events.NewOverrideRequestedEvent(assessment, reason, overriddenQuestions)); err != nil {
		s.logger.Warn("Failed to publish override requested event",
			"assessment_id", assessmentID, "error", err)
	}
	return assessment, nil
}

func (s *assessmentService) ReviewOverride(ctx context.Context, assessmentID string, req *ReviewOverrideRequest, reviewerID string) (*models.HazardAssessment, error) {
	s.logger.Info("Reviewing override",
		"assessment_id", assessmentID,
		"reviewer_id", reviewerID,
		"approve", req.Approve)

	if err := s.validator.ValidateStruct(req); err != nil {
		return nil, err
	}

	reviewer, err := s.repo.User().GetByID(ctx, nil, reviewerID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get reviewer: %w", err)
	}
	if !reviewer.CanReviewOverrides() {
		return nil, NewPermissionError(reviewerID, assessmentID, "assessment", "review_override", "role cannot review overrides")
	}

	assessment, err := s.GetByID(ctx, assessmentID)
	if err != nil {
		return nil, err
	}
	if assessment.Status != models.StatusOverrideRequested {
		return nil, ErrNoOverridePending
	}

	now := time.Now()
	if req.Approve {
		assessment.Status = models.StatusOverrideApproved
	} else {
		assessment.Status = models.StatusOverrideDenied
	}
	assessment.OverrideReviewedBy = &reviewerID
	assessment.OverrideReviewedAt = &now
	assessment.OverrideReviewNotes = req.Notes

	if err := s.repo.Assessment().Update(ctx, nil, assessment); err != nil {
		return nil, fmt.Errorf("failed to update assessment: %w", err)
	}

	if err := s.publisher.PublishAssessmentEvent(ctx,
		events.NewOverrideReviewedEvent(assessmentID, reviewerID, req.Approve, stringValue(req.Notes))); err != nil {
		s.logger.Warn("Failed to publish override reviewed event",
			"assessment_id", assessmentID, "error", err)
	}
	return assessment, nil
}

func (s *assessmentService) GetPendingOverrides(ctx context.Context, companyID string, limit, offset int) ([]*models.HazardAssessment, int64, error) {
	return s.repo.Assessment().GetPendingOverrides(ctx, nil, companyID, limit, offset)
}

func (s *assessmentService) GetSecurityEvents(ctx context.Context, assessmentID string) ([]*models.SecurityEvent, error) {
	if _, err := s.GetByID(ctx, assessmentID); err != nil {
		return nil, err
	}
	return s.repo.SecurityEvent().GetByAssessment(ctx, nil, assessmentID)
}

// GetAnalytics aggregates completion statistics and flags suspiciously fast
// completions against the configured per-question minimum.
func (s *assessmentService) GetAnalytics(ctx context.Context, companyID string, filters repositories.AssessmentFilters) (*repositories.CompletionStats, error) {
	stats, err := s.repo.Assessment().GetCompletionStats(ctx, nil, companyID, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to compute completion stats: %w", err)
	}

	completed := models.StatusCompleted
	fastFilters := filters
	fastFilters.Status = &completed
	fastFilters.Limit = 0
	assessments, _, err := s.repo.Assessment().List(ctx, nil, fastFilters)
	if err != nil {
		return nil, fmt.Errorf("failed to list completed assessments: %w", err)
	}
	for _, assessment := range assessments {
		detailed, err := s.repo.Assessment().GetByIDWithDetails(ctx, nil, assessment.ID)
		if err != nil {
			continue
		}
		if detailed.IsSuspiciouslyFast(s.minSecondsPerQuestion) {
			stats.SuspiciouslyFast++
		}
	}
	return stats, nil
}
