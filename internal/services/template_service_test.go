package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"gorm.io/gorm"

	"github.com/safeshipper/hazard-assessment-service/internal/models"
	"github.com/safeshipper/hazard-assessment-service/internal/utils"
)

const (
	testCompanyID  = "4f8b2c1a-9f3e-4d6b-8a2c-1e5f7a9b3d60"
	testTemplateID = "7a1c3e5f-2b4d-4f6a-9c8e-0d2f4a6b8c10"
	testUserID     = "9e7d5c3b-1a2f-4e6d-8c0b-3a5e7f9d1b22"
)

func validCreateTemplateRequest() *CreateTemplateRequest {
	return &CreateTemplateRequest{
		Name:      "Pre-Loading Hazard Check",
		CompanyID: testCompanyID,
		Sections: []CreateSectionRequest{
			{
				Title: "Vehicle Condition",
				Order: 1,
				Questions: []CreateQuestionRequest{
					{
						Text:                "Are the tires free of visible damage?",
						Order:               1,
						PhotoRequiredOnFail: true,
					},
					{
						Text:            "Is the load area free of leaks?",
						Order:           2,
						CriticalFailure: true,
					},
				},
			},
		},
	}
}

func TestTemplateService_Create(t *testing.T) {
	tests := []struct {
		name        string
		request     *CreateTemplateRequest
		setupMocks  func(*MockTemplateRepository)
		expectError error
	}{
		{
			name:    "successful creation",
			request: validCreateTemplateRequest(),
			setupMocks: func(templateRepo *MockTemplateRepository) {
				templateRepo.On("ExistsByName", mock.Anything, mock.Anything,
					"Pre-Loading Hazard Check", testCompanyID, (*string)(nil)).Return(false, nil)
				templateRepo.On("Create", mock.Anything, mock.Anything,
					mock.MatchedBy(func(template *models.AssessmentTemplate) bool {
						return template.Name == "Pre-Loading Hazard Check" &&
							template.Version == 1 &&
							template.IsActive &&
							len(template.Sections) == 1 &&
							len(template.Sections[0].Questions) == 2
					})).Return(nil)
				templateRepo.On("GetByIDWithDetails", mock.Anything, mock.Anything, mock.Anything).
					Return(&models.AssessmentTemplate{Name: "Pre-Loading Hazard Check"}, nil)
			},
		},
		{
			name:    "duplicate name",
			request: validCreateTemplateRequest(),
			setupMocks: func(templateRepo *MockTemplateRepository) {
				templateRepo.On("ExistsByName", mock.Anything, mock.Anything,
					"Pre-Loading Hazard Check", testCompanyID, (*string)(nil)).Return(true, nil)
			},
			expectError: ErrTemplateDuplicateName,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := newMockRepository()
			tt.setupMocks(mockRepo.templateRepo)
			service := NewTemplateService(mockRepo, testLogger(), utils.NewValidator())

			template, err := service.Create(context.Background(), tt.request, testUserID)

			if tt.expectError != nil {
				assert.ErrorIs(t, err, tt.expectError)
				assert.Nil(t, template)
			} else {
				assert.NoError(t, err)
				assert.NotNil(t, template)
			}
			mockRepo.templateRepo.AssertExpectations(t)
		})
	}
}

func TestTemplateService_Create_ValidationFailure(t *testing.T) {
	mockRepo := newMockRepository()
	service := NewTemplateService(mockRepo, testLogger(), utils.NewValidator())

	req := validCreateTemplateRequest()
	req.Sections = nil

	template, err := service.Create(context.Background(), req, testUserID)

	assert.Error(t, err)
	assert.Nil(t, template)
	mockRepo.templateRepo.AssertNotCalled(t, "Create")
}

func TestTemplateService_Delete_InUse(t *testing.T) {
	mockRepo := newMockRepository()
	mockRepo.templateRepo.On("HasAssessments", mock.Anything, mock.Anything, testTemplateID).
		Return(true, nil)
	service := NewTemplateService(mockRepo, testLogger(), utils.NewValidator())

	err := service.Delete(context.Background(), testTemplateID, testUserID)

	assert.ErrorIs(t, err, ErrTemplateInUse)
	mockRepo.templateRepo.AssertNotCalled(t, "Delete")
}

func TestTemplateService_Clone(t *testing.T) {
	source := &models.AssessmentTemplate{
		ID:        testTemplateID,
		Name:      "Original",
		CompanyID: testCompanyID,
		Version:   4,
		IsActive:  true,
		IsDefault: true,
		Sections: []models.AssessmentSection{
			{
				ID:         "section-1",
				TemplateID: testTemplateID,
				Title:      "Checks",
				Order:      1,
				Questions: []models.AssessmentQuestion{
					{ID: "question-1", SectionID: "section-1", Text: "Q1", Order: 1, CriticalFailure: true},
				},
			},
		},
	}

	mockRepo := newMockRepository()
	mockRepo.templateRepo.On("GetByIDWithDetails", mock.Anything, mock.Anything, testTemplateID).
		Return(source, nil).Once()
	mockRepo.templateRepo.On("ExistsByName", mock.Anything, mock.Anything,
		"Copy of Original", testCompanyID, (*string)(nil)).Return(false, nil)

	var cloneID string
	mockRepo.templateRepo.On("Create", mock.Anything, mock.Anything,
		mock.MatchedBy(func(clone *models.AssessmentTemplate) bool {
			cloneID = clone.ID
			return clone.ID != source.ID &&
				clone.Version == 1 &&
				!clone.IsDefault &&
				len(clone.Sections) == 1 &&
				clone.Sections[0].ID != "section-1" &&
				clone.Sections[0].Questions[0].CriticalFailure
		})).Return(nil)
	mockRepo.templateRepo.On("GetByIDWithDetails", mock.Anything, mock.Anything, mock.Anything).
		Return(&models.AssessmentTemplate{Name: "Copy of Original"}, nil)

	service := NewTemplateService(mockRepo, testLogger(), utils.NewValidator())
	clone, err := service.Clone(context.Background(), testTemplateID, &CloneTemplateRequest{Name: "Copy of Original"}, testUserID)

	assert.NoError(t, err)
	assert.NotNil(t, clone)
	assert.NotEmpty(t, cloneID)
	mockRepo.templateRepo.AssertExpectations(t)
}

func TestTemplateService_ResolveTemplateForShipment(t *testing.T) {
	ruleTemplate := &models.AssessmentTemplate{ID: "rule-template", IsActive: true}
	defaultTemplate := &models.AssessmentTemplate{ID: "default-template", IsActive: true}

	t.Run("assignment rule wins", func(t *testing.T) {
		mockRepo := newMockRepository()
		mockRepo.assignmentRepo.On("GetByTrigger", mock.Anything, mock.Anything,
			testCompanyID, models.TriggerDangerousGoods).
			Return([]*models.AssessmentAssignment{
				{
					TemplateID: "rule-template",
					Priority:   1,
					Template:   models.AssessmentTemplate{ID: "rule-template", IsActive: true},
				},
			}, nil)
		mockRepo.templateRepo.On("GetByIDWithDetails", mock.Anything, mock.Anything, "rule-template").
			Return(ruleTemplate, nil)

		service := NewTemplateService(mockRepo, testLogger(), utils.NewValidator())
		template, err := service.ResolveTemplateForShipment(context.Background(), testCompanyID, models.TriggerDangerousGoods)

		assert.NoError(t, err)
		assert.Equal(t, "rule-template", template.ID)
	})

	t.Run("falls back to company default", func(t *testing.T) {
		mockRepo := newMockRepository()
		mockRepo.assignmentRepo.On("GetByTrigger", mock.Anything, mock.Anything,
			testCompanyID, models.TriggerManual).
			Return([]*models.AssessmentAssignment{}, nil)
		mockRepo.templateRepo.On("GetDefaultForCompany", mock.Anything, mock.Anything, testCompanyID).
			Return(defaultTemplate, nil)
		mockRepo.templateRepo.On("GetByIDWithDetails", mock.Anything, mock.Anything, "default-template").
			Return(defaultTemplate, nil)

		service := NewTemplateService(mockRepo, testLogger(), utils.NewValidator())
		template, err := service.ResolveTemplateForShipment(context.Background(), testCompanyID, models.TriggerManual)

		assert.NoError(t, err)
		assert.Equal(t, "default-template", template.ID)
	})

	t.Run("no rule and no default", func(t *testing.T) {
		mockRepo := newMockRepository()
		mockRepo.assignmentRepo.On("GetByTrigger", mock.Anything, mock.Anything,
			testCompanyID, models.TriggerManual).
			Return([]*models.AssessmentAssignment{}, nil)
		mockRepo.templateRepo.On("GetDefaultForCompany", mock.Anything, mock.Anything, testCompanyID).
			Return(nil, gorm.ErrRecordNotFound)

		service := NewTemplateService(mockRepo, testLogger(), utils.NewValidator())
		template, err := service.ResolveTemplateForShipment(context.Background(), testCompanyID, models.TriggerManual)

		assert.ErrorIs(t, err, ErrTemplateNotFound)
		assert.Nil(t, template)
	})
}
