package models

import (
	"strings"
	"time"

	"gorm.io/datatypes"
)

type AnswerValue string

const (
	AnswerYes  AnswerValue = "YES"
	AnswerNo   AnswerValue = "NO"
	AnswerNA   AnswerValue = "NA"
	AnswerPass AnswerValue = "PASS"
	AnswerFail AnswerValue = "FAIL"
)

// AssessmentAnswer is one persisted answer, unique per (assessment, question).
type AssessmentAnswer struct {
	ID           string `json:"id" gorm:"primaryKey;size:36"`
	AssessmentID string `json:"assessment_id" gorm:"not null;size:36;uniqueIndex:idx_answer_assessment_question,priority:1"`
	QuestionID   string `json:"question_id" gorm:"not null;size:36;uniqueIndex:idx_answer_assessment_question,priority:2"`

	Value   string  `json:"value" gorm:"size:255"`
	Comment *string `json:"comment" gorm:"type:text"`

	// Photo evidence with its immutable capture metadata
	PhotoURL         *string        `json:"photo_url" gorm:"size:512"`
	EvidenceMetadata datatypes.JSON `json:"evidence_metadata" gorm:"type:jsonb"`

	// Override escalation
	IsOverride     bool    `json:"is_override" gorm:"default:false"`
	OverrideReason *string `json:"override_reason" gorm:"type:text"`

	// Anti-cheating snapshot taken just before persistence
	SecurityMetadata datatypes.JSON `json:"security_metadata" gorm:"type:jsonb"`

	AnsweredAt time.Time `json:"answered_at"`
	Latitude   *float64  `json:"latitude"`
	Longitude  *float64  `json:"longitude"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Question AssessmentQuestion `json:"question" gorm:"foreignKey:QuestionID"`
}

// IsFailure reports whether this answer represents a failure outcome.
func (a *AssessmentAnswer) IsFailure() bool {
	v := strings.ToUpper(strings.TrimSpace(a.Value))
	return v == string(AnswerNo) || v == string(AnswerFail)
}

func (AssessmentAnswer) TableName() string {
	return "assessment_answers"
}
