package models

import (
	"time"

	"gorm.io/datatypes"
)

type SecurityEventKind string

const (
	EventTimingAnomaly SecurityEventKind = "timing_anomaly"
	EventAppSwitch     SecurityEventKind = "app_switch"
	EventScreenshot    SecurityEventKind = "screenshot"
	EventOther         SecurityEventKind = "other"
)

// SecurityEvent is an append-only anti-cheating signal recorded during an
// assessment. Events are audit data for downstream review and never gate
// the flow.
type SecurityEvent struct {
	ID           string            `json:"id" gorm:"primaryKey;size:36"`
	AssessmentID string            `json:"assessment_id" gorm:"not null;size:36;index"`
	Kind         SecurityEventKind `json:"kind" gorm:"size:30;not null;index" validate:"required,security_event_kind"`
	Detail       string            `json:"detail" gorm:"type:text"`
	QuestionID   *string           `json:"question_id" gorm:"size:36;index"`
	OccurredAt   time.Time         `json:"occurred_at"`

	Data datatypes.JSON `json:"data" gorm:"type:jsonb"`

	CreatedAt time.Time `json:"created_at"`
}

func (SecurityEvent) TableName() string {
	return "security_events"
}
