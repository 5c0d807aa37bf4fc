package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/safeshipper/hazard-assessment-service/internal/models"
	"github.com/safeshipper/hazard-assessment-service/internal/repositories"
	"github.com/safeshipper/hazard-assessment-service/internal/utils"
)

// TemplateService manages checklist templates and their assignment rules.
type TemplateService interface {
	Create(ctx context.Context, req *CreateTemplateRequest, creatorID string) (*models.AssessmentTemplate, error)
	GetByID(ctx context.Context, id string) (*models.AssessmentTemplate, error)
	List(ctx context.Context, filters repositories.TemplateFilters) ([]*models.AssessmentTemplate, int64, error)
	Update(ctx context.Context, id string, req *UpdateTemplateRequest, userID string) (*models.AssessmentTemplate, error)
	Delete(ctx context.Context, id string, userID string) error
	Clone(ctx context.Context, id string, req *CloneTemplateRequest, userID string) (*models.AssessmentTemplate, error)
	GetStats(ctx context.Context, id string) (*repositories.TemplateStats, error)

	// Assignment rules
	CreateAssignment(ctx context.Context, req *CreateAssignmentRequest, creatorID string) (*models.AssessmentAssignment, error)
	ResolveTemplateForShipment(ctx context.Context, companyID string, trigger models.AssignmentTrigger) (*models.AssessmentTemplate, error)
}

// ===== REQUEST DTOS =====

type CreateTemplateRequest struct {
	Name        string                 `json:"name" validate:"required,min=1,max=200"`
	Description *string                `json:"description" validate:"omitempty,max=1000"`
	CompanyID   string                 `json:"company_id" validate:"required,uuid"`
	IsDefault   bool                   `json:"is_default"`
	Sections    []CreateSectionRequest `json:"sections" validate:"required,min=1,dive"`
}

type CreateSectionRequest struct {
	Title       string                  `json:"title" validate:"required,min=1,max=200"`
	Description *string                 `json:"description"`
	Order       int                     `json:"order" validate:"min=1"`
	IsRequired  bool                    `json:"is_required"`
	Questions   []CreateQuestionRequest `json:"questions" validate:"required,min=1,dive"`
}

type CreateQuestionRequest struct {
	Text                  string              `json:"text" validate:"required"`
	Type                  models.QuestionType `json:"type" validate:"omitempty,question_type"`
	Order                 int                 `json:"order" validate:"min=1"`
	PhotoRequiredOnFail   bool                `json:"photo_required_on_fail"`
	CommentRequiredOnFail bool                `json:"comment_required_on_fail"`
	CriticalFailure       bool                `json:"critical_failure"`
	IsRequired            bool                `json:"is_required"`
	HelpText              *string             `json:"help_text"`
}

type UpdateTemplateRequest struct {
	Name        *string `json:"name" validate:"omitempty,min=1,max=200"`
	Description *string `json:"description" validate:"omitempty,max=1000"`
	IsActive    *bool   `json:"is_active"`
	IsDefault   *bool   `json:"is_default"`
}

type CloneTemplateRequest struct {
	Name string `json:"name" validate:"required,min=1,max=200"`
}

type CreateAssignmentRequest struct {
	TemplateID    string                   `json:"template_id" validate:"required,uuid"`
	CompanyID     string                   `json:"company_id" validate:"required,uuid"`
	Trigger       models.AssignmentTrigger `json:"trigger" validate:"required,oneof=FREIGHT_TYPE DANGEROUS_GOODS MANUAL"`
	ConditionData map[string]interface{}   `json:"condition_data"`
	Priority      int                      `json:"priority"`
}

// ===== IMPLEMENTATION =====

type templateService struct {
	repo      repositories.Repository
	logger    *slog.Logger
	validator *utils.Validator
}

func NewTemplateService(repo repositories.Repository, logger *slog.Logger, validator *utils.Validator) TemplateService {
	return &templateService{
		repo:      repo,
		logger:    logger,
		validator: validator,
	}
}

func (s *templateService) Create(ctx context.Context, req *CreateTemplateRequest, creatorID string) (*models.AssessmentTemplate, error) {
	s.logger.Info("Creating template", "creator_id", creatorID, "name", req.Name)

	if err := s.validator.ValidateStruct(req); err != nil {
		return nil, err
	}

	exists, err := s.repo.Template().ExistsByName(ctx, nil, req.Name, req.CompanyID, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to check template name uniqueness: %w", err)
	}
	if exists {
		return nil, ErrTemplateDuplicateName
	}

	template := &models.AssessmentTemplate{
		ID:          uuid.NewString(),
		Name:        req.Name,
		Description: req.Description,
		CompanyID:   req.CompanyID,
		Version:     1,
		IsActive:    true,
		IsDefault:   req.IsDefault,
		CreatedBy:   creatorID,
	}
	for _, sectionReq := range req.Sections {
		section := models.AssessmentSection{
			ID:          uuid.NewString(),
			TemplateID:  template.ID,
			Title:       sectionReq.Title,
			Description: sectionReq.Description,
			Order:       sectionReq.Order,
			IsRequired:  sectionReq.IsRequired,
		}
		for _, questionReq := range sectionReq.Questions {
			questionType := questionReq.Type
			if questionType == "" {
				questionType = models.QuestionYesNoNA
			}
			section.Questions = append(section.Questions, models.AssessmentQuestion{
				ID:                    uuid.NewString(),
				SectionID:             section.ID,
				Text:                  questionReq.Text,
				Type:                  questionType,
				Order:                 questionReq.Order,
				PhotoRequiredOnFail:   questionReq.PhotoRequiredOnFail,
				CommentRequiredOnFail: questionReq.CommentRequiredOnFail,
				CriticalFailure:       questionReq.CriticalFailure,
				IsRequired:            questionReq.IsRequired,
				HelpText:              questionReq.HelpText,
			})
		}
		template.Sections = append(template.Sections, section)
	}

	if err := s.repo.Template().Create(ctx, nil, template); err != nil {
		return nil, fmt.Errorf("failed to create template: %w", err)
	}

	s.logger.Info("Template created", "template_id", template.ID)
	return s.GetByID(ctx, template.ID)
}

func (s *templateService) GetByID(ctx context.Context, id string) (*models.AssessmentTemplate, error) {
	template, err := s.repo.Template().GetByIDWithDetails(ctx, nil, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrTemplateNotFound
		}
		return nil, fmt.Errorf("failed to get template: %w", err)
	}
	return template, nil
}

func (s *templateService) List(ctx context.Context, filters repositories.TemplateFilters) ([]*models.AssessmentTemplate, int64, error) {
	return s.repo.Template().List(ctx, nil, filters)
}

func (s *templateService) Update(ctx context.Context, id string, req *UpdateTemplateRequest, userID string) (*models.AssessmentTemplate, error) {
	s.logger.Info("Updating template", "template_id", id, "user_id", userID)

	if err := s.validator.ValidateStruct(req); err != nil {
		return nil, err
	}

	template, err := s.repo.Template().GetByID(ctx, nil, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrTemplateNotFound
		}
		return nil, fmt.Errorf("failed to get template: %w", err)
	}

	if req.Name != nil && *req.Name != template.Name {
		exists, err := s.repo.Template().ExistsByName(ctx, nil, *req.Name, template.CompanyID, &template.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to check template name uniqueness: %w", err)
		}
		if exists {
			return nil, ErrTemplateDuplicateName
		}
		template.Name = *req.Name
	}
	if req.Description != nil {
		template.Description = req.Description
	}
	if req.IsActive != nil {
		template.IsActive = *req.IsActive
	}
	if req.IsDefault != nil {
		template.IsDefault = *req.IsDefault
	}
	template.Version++

	if err := s.repo.Template().Update(ctx, nil, template); err != nil {
		return nil, fmt.Errorf("failed to update template: %w", err)
	}
	return s.GetByID(ctx, id)
}

func (s *templateService) Delete(ctx context.Context, id string, userID string) error {
	s.logger.Info("Deleting template", "template_id", id, "user_id", userID)

	hasAssessments, err := s.repo.Template().HasAssessments(ctx, nil, id)
	if err != nil {
		return fmt.Errorf("failed to check template usage: %w", err)
	}
	if hasAssessments {
		return ErrTemplateInUse
	}

	if err := s.repo.Template().Delete(ctx, nil, id); err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrTemplateNotFound
		}
		return fmt.Errorf("failed to delete template: %w", err)
	}
	return nil
}

// Clone creates a deep copy of the template with fresh IDs, reset to version 1
// and not marked as default. Existing assessments keep pointing at the source.
func (s *templateService) Clone(ctx context.Context, id string, req *CloneTemplateRequest, userID string) (*models.AssessmentTemplate, error) {
	s.logger.Info("Cloning template", "template_id", id, "user_id", userID)

	if err := s.validator.ValidateStruct(req); err != nil {
		return nil, err
	}

	source, err := s.repo.Template().GetByIDWithDetails(ctx, nil, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrTemplateNotFound
		}
		return nil, fmt.Errorf("failed to get source template: %w", err)
	}

	exists, err := s.repo.Template().ExistsByName(ctx, nil, req.Name, source.CompanyID, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to check template name uniqueness: %w", err)
	}
	if exists {
		return nil, ErrTemplateDuplicateName
	}

	clone := &models.AssessmentTemplate{
		ID:          uuid.NewString(),
		Name:        req.Name,
		Description: source.Description,
		CompanyID:   source.CompanyID,
		Version:     1,
		IsActive:    true,
		IsDefault:   false,
		CreatedBy:   userID,
	}
	for _, sourceSection := range source.Sections {
		section := models.AssessmentSection{
			ID:          uuid.NewString(),
			TemplateID:  clone.ID,
			Title:       sourceSection.Title,
			Description: sourceSection.Description,
			Order:       sourceSection.Order,
			IsRequired:  sourceSection.IsRequired,
		}
		for _, sourceQuestion := range sourceSection.Questions {
			section.Questions = append(section.Questions, models.AssessmentQuestion{
				ID:                    uuid.NewString(),
				SectionID:             section.ID,
				Text:                  sourceQuestion.Text,
				Type:                  sourceQuestion.Type,
				Order:                 sourceQuestion.Order,
				PhotoRequiredOnFail:   sourceQuestion.PhotoRequiredOnFail,
				CommentRequiredOnFail: sourceQuestion.CommentRequiredOnFail,
				CriticalFailure:       sourceQuestion.CriticalFailure,
				IsRequired:            sourceQuestion.IsRequired,
				HelpText:              sourceQuestion.HelpText,
			})
		}
		clone.Sections = append(clone.Sections, section)
	}

	if err := s.repo.Template().Create(ctx, nil, clone); err != nil {
		return nil, fmt.Errorf("failed to create cloned template: %w", err)
	}

	s.logger.Info("Template cloned", "source_id", id, "clone_id", clone.ID)
	return s.GetByID(ctx, clone.ID)
}

func (s *templateService) GetStats(ctx context.Context, id string) (*repositories.TemplateStats, error) {
	if _, err := s.repo.Template().GetByID(ctx, nil, id); err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrTemplateNotFound
		}
		return nil, fmt.Errorf("failed to get template: %w", err)
	}
	return s.repo.Template().GetTemplateStats(ctx, nil, id)
}

func (s *templateService) CreateAssignment(ctx context.Context, req *CreateAssignmentRequest, creatorID string) (*models.AssessmentAssignment, error) {
	if err := s.validator.ValidateStruct(req); err != nil {
		return nil, err
	}

	if _, err := s.repo.Template().GetByID(ctx, nil, req.TemplateID); err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrTemplateNotFound
		}
		return nil, fmt.Errorf("failed to get template: %w", err)
	}

	conditionData, err := marshalJSON(req.ConditionData)
	if err != nil {
		return nil, fmt.Errorf("failed to encode condition data: %w", err)
	}

	priority := req.Priority
	if priority == 0 {
		priority = 100
	}
	assignment := &models.AssessmentAssignment{
		ID:            uuid.NewString(),
		TemplateID:    req.TemplateID,
		CompanyID:     req.CompanyID,
		Trigger:       req.Trigger,
		ConditionData: conditionData,
		IsActive:      true,
		Priority:      priority,
		CreatedBy:     creatorID,
	}
	if err := s.repo.Assignment().Create(ctx, nil, assignment); err != nil {
		return nil, fmt.Errorf("failed to create assignment: %w", err)
	}
	return assignment, nil
}

// ResolveTemplateForShipment picks the template to use for a shipment: the
// highest-priority matching assignment rule wins, then the company default.
func (s *templateService) ResolveTemplateForShipment(ctx context.Context, companyID string, trigger models.AssignmentTrigger) (*models.AssessmentTemplate, error) {
	assignments, err := s.repo.Assignment().GetByTrigger(ctx, nil, companyID, trigger)
	if err != nil {
		return nil, fmt.Errorf("failed to get assignment rules: %w", err)
	}
	for _, assignment := range assignments {
		if assignment.Template.IsActive {
			return s.GetByID(ctx, assignment.TemplateID)
		}
	}

	fallback, err := s.repo.Template().GetDefaultForCompany(ctx, nil, companyID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrTemplateNotFound
		}
		return nil, fmt.Errorf("failed to get default template: %w", err)
	}
	return s.GetByID(ctx, fallback.ID)
}
