package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type QuestionType string

const (
	QuestionYesNoNA    QuestionType = "YES_NO_NA"
	QuestionPassFailNA QuestionType = "PASS_FAIL_NA"
	QuestionText       QuestionType = "TEXT"
	QuestionNumeric    QuestionType = "NUMERIC"
)

// AssessmentTemplate is the master checklist definition assigned to shipments.
type AssessmentTemplate struct {
	ID          string  `json:"id" gorm:"primaryKey;size:36"`
	Name        string  `json:"name" gorm:"not null;size:200;index" validate:"required,min=1,max=200"`
	Description *string `json:"description" gorm:"type:text" validate:"omitempty,max=1000"`
	CompanyID   string  `json:"company_id" gorm:"not null;size:36;index" validate:"required,uuid"`

	Version   int  `json:"version" gorm:"default:1"`
	IsActive  bool `json:"is_active" gorm:"default:true;index"`
	IsDefault bool `json:"is_default" gorm:"default:false"`

	CreatedBy string         `json:"created_by" gorm:"not null;size:36;index"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	// Relations
	Sections []AssessmentSection `json:"sections" gorm:"foreignKey:TemplateID;constraint:OnDelete:CASCADE"`

	// Computed fields (not stored)
	QuestionsCount int `json:"questions_count" gorm:"-"`
}

// AssessmentSection groups related questions, e.g. "Pre-Loading Checks".
type AssessmentSection struct {
	ID          string  `json:"id" gorm:"primaryKey;size:36"`
	TemplateID  string  `json:"template_id" gorm:"not null;size:36;index:idx_section_template_order,priority:1"`
	Title       string  `json:"title" gorm:"not null;size:200" validate:"required,min=1,max=200"`
	Description *string `json:"description" gorm:"type:text"`
	Order       int     `json:"order" gorm:"not null;index:idx_section_template_order,priority:2" validate:"min=1"`
	IsRequired  bool    `json:"is_required" gorm:"default:true"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Questions []AssessmentQuestion `json:"questions" gorm:"foreignKey:SectionID;constraint:OnDelete:CASCADE"`
}

// AssessmentQuestion carries the conditional evidence rules enforced by the flow.
type AssessmentQuestion struct {
	ID        string       `json:"id" gorm:"primaryKey;size:36"`
	SectionID string       `json:"section_id" gorm:"not null;size:36;index:idx_question_section_order,priority:1"`
	Text      string       `json:"text" gorm:"type:text;not null" validate:"required"`
	Type      QuestionType `json:"type" gorm:"size:20;default:YES_NO_NA" validate:"omitempty,question_type"`
	Order     int          `json:"order" gorm:"not null;index:idx_question_section_order,priority:2" validate:"min=1"`

	// Conditional requirements applied when the answer is "No" or "Fail"
	PhotoRequiredOnFail   bool `json:"photo_required_on_fail" gorm:"default:false"`
	CommentRequiredOnFail bool `json:"comment_required_on_fail" gorm:"default:false"`
	CriticalFailure       bool `json:"critical_failure" gorm:"default:false"`

	IsRequired bool    `json:"is_required" gorm:"default:true"`
	HelpText   *string `json:"help_text" gorm:"type:text"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type AssignmentTrigger string

const (
	TriggerFreightType    AssignmentTrigger = "FREIGHT_TYPE"
	TriggerDangerousGoods AssignmentTrigger = "DANGEROUS_GOODS"
	TriggerManual         AssignmentTrigger = "MANUAL"
)

// AssessmentAssignment is a rule for auto-assigning templates to shipments.
type AssessmentAssignment struct {
	ID         string `json:"id" gorm:"primaryKey;size:36"`
	TemplateID string `json:"template_id" gorm:"not null;size:36;index"`
	CompanyID  string `json:"company_id" gorm:"not null;size:36;index"`

	Trigger       AssignmentTrigger `json:"trigger" gorm:"size:20;not null" validate:"required,oneof=FREIGHT_TYPE DANGEROUS_GOODS MANUAL"`
	ConditionData datatypes.JSON    `json:"condition_data" gorm:"type:jsonb"`

	IsActive bool `json:"is_active" gorm:"default:true;index"`
	Priority int  `json:"priority" gorm:"default:100"` // lower = higher priority

	CreatedBy string    `json:"created_by" gorm:"size:36"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Template AssessmentTemplate `json:"template" gorm:"foreignKey:TemplateID"`
}

func (AssessmentTemplate) TableName() string {
	return "assessment_templates"
}

func (AssessmentSection) TableName() string {
	return "assessment_sections"
}

func (AssessmentQuestion) TableName() string {
	return "assessment_questions"
}

func (AssessmentAssignment) TableName() string {
	return "assessment_assignments"
}
