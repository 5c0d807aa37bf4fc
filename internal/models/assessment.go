package models

import (
	"time"

	"gorm.io/datatypes"
)

type AssessmentStatus string

const (
	StatusInProgress        AssessmentStatus = "IN_PROGRESS"
	StatusCompleted         AssessmentStatus = "COMPLETED"
	StatusFailed            AssessmentStatus = "FAILED"
	StatusOverrideRequested AssessmentStatus = "OVERRIDE_REQUESTED"
	StatusOverrideApproved  AssessmentStatus = "OVERRIDE_APPROVED"
	StatusOverrideDenied    AssessmentStatus = "OVERRIDE_DENIED"
)

type OverallResult string

const (
	ResultPass       OverallResult = "PASS"
	ResultFail       OverallResult = "FAIL"
	ResultIncomplete OverallResult = "INCOMPLETE"
)

// HazardAssessment is one field completion of a template against a shipment,
// including the anti-cheating safeguard data recorded around it.
type HazardAssessment struct {
	ID         string `json:"id" gorm:"primaryKey;size:36"`
	TemplateID string `json:"template_id" gorm:"not null;size:36;index"`
	ShipmentID string `json:"shipment_id" gorm:"not null;size:36;index:idx_assessment_shipment_status,priority:1"`

	CompletedBy *string          `json:"completed_by" gorm:"size:36;index"`
	Status      AssessmentStatus `json:"status" gorm:"size:20;default:IN_PROGRESS;index:idx_assessment_shipment_status,priority:2"`
	Result      *OverallResult   `json:"result" gorm:"size:20"`

	// Safeguard data
	StartedAt      *time.Time `json:"started_at"`
	EndedAt        *time.Time `json:"ended_at"`
	StartLatitude  *float64   `json:"start_latitude"`
	StartLongitude *float64   `json:"start_longitude"`
	EndLatitude    *float64   `json:"end_latitude"`
	EndLongitude   *float64   `json:"end_longitude"`

	DeviceInfo        datatypes.JSON `json:"device_info" gorm:"type:jsonb"`
	CompletionSeconds *int           `json:"completion_seconds"`

	// Override escalation
	OverrideReason      *string    `json:"override_reason" gorm:"type:text"`
	OverrideRequestedBy *string    `json:"override_requested_by" gorm:"size:36"`
	OverrideRequestedAt *time.Time `json:"override_requested_at"`
	OverrideReviewedBy  *string    `json:"override_reviewed_by" gorm:"size:36"`
	OverrideReviewedAt  *time.Time `json:"override_reviewed_at"`
	OverrideReviewNotes *string    `json:"override_review_notes" gorm:"type:text"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Template       AssessmentTemplate `json:"template" gorm:"foreignKey:TemplateID"`
	Answers        []AssessmentAnswer `json:"answers" gorm:"foreignKey:AssessmentID"`
	SecurityEvents []SecurityEvent    `json:"security_events" gorm:"foreignKey:AssessmentID"`
}

// IsSuspiciouslyFast reports whether the assessment was completed faster than
// the minimum plausible reading time, given the template's question count.
func (a *HazardAssessment) IsSuspiciouslyFast(minSecondsPerQuestion int) bool {
	if a.CompletionSeconds == nil {
		return false
	}
	questions := 0
	for _, s := range a.Template.Sections {
		questions += len(s.Questions)
	}
	if questions == 0 {
		questions = 1
	}
	return *a.CompletionSeconds < questions*minSecondsPerQuestion
}

func (HazardAssessment) TableName() string {
	return "hazard_assessments"
}
