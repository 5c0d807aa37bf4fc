package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/safeshipper/hazard-assessment-service/internal/models"
)

// EventType represents different types of assessment events
type EventType string

const (
	// Lifecycle events
	EventAssessmentStarted   EventType = "assessment.started"
	EventAssessmentCompleted EventType = "assessment.completed"
	EventAssessmentFailed    EventType = "assessment.failed"

	// Override events
	EventOverrideRequested EventType = "override.requested"
	EventOverrideReviewed  EventType = "override.reviewed"

	// Security events
	EventSecurityViolation EventType = "security.violation"
)

// AssessmentEvent is the base event structure for all assessment events
type AssessmentEvent struct {
	ID        string                 `json:"id"`
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Source    string                 `json:"source"`
	Version   string                 `json:"version"`
	Data      interface{}            `json:"data"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// Lifecycle event payloads

type AssessmentStartedEvent struct {
	AssessmentID string    `json:"assessment_id"`
	TemplateID   string    `json:"template_id"`
	TemplateName string    `json:"template_name"`
	ShipmentID   string    `json:"shipment_id"`
	CompletedBy  string    `json:"completed_by"`
	StartedAt    time.Time `json:"started_at"`
}

type AssessmentCompletedEvent struct {
	AssessmentID      string               `json:"assessment_id"`
	TemplateID        string               `json:"template_id"`
	ShipmentID        string               `json:"shipment_id"`
	CompletedBy       string               `json:"completed_by"`
	CompletedAt       time.Time            `json:"completed_at"`
	OverallResult     models.OverallResult `json:"overall_result"`
	AnswerCount       int                  `json:"answer_count"`
	FailureCount      int                  `json:"failure_count"`
	OverrideCount     int                  `json:"override_count"`
	CompletionSeconds int                  `json:"completion_seconds"`
	SuspiciouslyFast  bool                 `json:"suspiciously_fast"`
}

type AssessmentFailedEvent struct {
	AssessmentID      string    `json:"assessment_id"`
	TemplateID        string    `json:"template_id"`
	ShipmentID        string    `json:"shipment_id"`
	CompletedBy       string    `json:"completed_by"`
	FailedAt          time.Time `json:"failed_at"`
	FailedQuestionIDs []string  `json:"failed_question_ids"`
	CriticalFailure   bool      `json:"critical_failure"`
}

// Override event payloads

type OverrideRequestedEvent struct {
	AssessmentID string    `json:"assessment_id"`
	ShipmentID   string    `json:"shipment_id"`
	RequestedBy  string    `json:"requested_by"`
	RequestedAt  time.Time `json:"requested_at"`
	Reason       string    `json:"reason"`
	QuestionIDs  []string  `json:"question_ids"`
}

type OverrideReviewedEvent struct {
	AssessmentID string    `json:"assessment_id"`
	ReviewedBy   string    `json:"reviewed_by"`
	ReviewedAt   time.Time `json:"reviewed_at"`
	Approved     bool      `json:"approved"`
	ReviewNotes  string    `json:"review_notes,omitempty"`
}

// Security event payload

type SecurityViolationEvent struct {
	AssessmentID string                   `json:"assessment_id"`
	CompletedBy  string                   `json:"completed_by"`
	Kind         models.SecurityEventKind `json:"kind"`
	Detail       string                   `json:"detail"`
	QuestionID   *string                  `json:"question_id,omitempty"`
	OccurredAt   time.Time                `json:"occurred_at"`
}

// Event factory functions

func newEvent(eventType EventType, data interface{}) *AssessmentEvent {
	return &AssessmentEvent{
		ID:        uuid.NewString(),
		Type:      eventType,
		Timestamp: time.Now(),
		Source:    "hazard-assessment-service",
		Version:   "1.0",
		Data:      data,
	}
}

func NewAssessmentStartedEvent(assessment *models.HazardAssessment, templateName string) *AssessmentEvent {
	startedAt := time.Now()
	if assessment.StartedAt != nil {
		startedAt = *assessment.StartedAt
	}
	return newEvent(EventAssessmentStarted, AssessmentStartedEvent{
		AssessmentID: assessment.ID,
		TemplateID:   assessment.TemplateID,
		TemplateName: templateName,
		ShipmentID:   assessment.ShipmentID,
		CompletedBy:  stringValue(assessment.CompletedBy),
		StartedAt:    startedAt,
	})
}

func NewAssessmentCompletedEvent(assessment *models.HazardAssessment, answerCount, failureCount, overrideCount int, suspiciouslyFast bool) *AssessmentEvent {
	completedAt := time.Now()
	if assessment.EndedAt != nil {
		completedAt = *assessment.EndedAt
	}
	result := models.ResultIncomplete
	if assessment.Result != nil {
		result = *assessment.Result
	}
	seconds := 0
	if assessment.CompletionSeconds != nil {
		seconds = *assessment.CompletionSeconds
	}
	return newEvent(EventAssessmentCompleted, AssessmentCompletedEvent{
		AssessmentID:      assessment.ID,
		TemplateID:        assessment.TemplateID,
		ShipmentID:        assessment.ShipmentID,
		CompletedBy:       stringValue(assessment.CompletedBy),
		CompletedAt:       completedAt,
		OverallResult:     result,
		AnswerCount:       answerCount,
		FailureCount:      failureCount,
		OverrideCount:     overrideCount,
		CompletionSeconds: seconds,
		SuspiciouslyFast:  suspiciouslyFast,
	})
}

func NewAssessmentFailedEvent(assessment *models.HazardAssessment, failedQuestionIDs []string, criticalFailure bool) *AssessmentEvent {
	return newEvent(EventAssessmentFailed, AssessmentFailedEvent{
		AssessmentID:      assessment.ID,
		TemplateID:        assessment.TemplateID,
		ShipmentID:        assessment.ShipmentID,
		CompletedBy:       stringValue(assessment.CompletedBy),
		FailedAt:          time.Now(),
		FailedQuestionIDs: failedQuestionIDs,
		CriticalFailure:   criticalFailure,
	})
}

func NewOverrideRequestedEvent(assessment *models.HazardAssessment, reason string, questionIDs []string) *AssessmentEvent {
	return newEvent(EventOverrideRequested, OverrideRequestedEvent{
		AssessmentID: assessment.ID,
		ShipmentID:   assessment.ShipmentID,
		RequestedBy:  stringValue(assessment.CompletedBy),
		RequestedAt:  time.Now(),
		Reason:       reason,
		QuestionIDs:  questionIDs,
	})
}

func NewOverrideReviewedEvent(assessmentID, reviewedBy string, approved bool, reviewNotes string) *AssessmentEvent {
	return newEvent(EventOverrideReviewed, OverrideReviewedEvent{
		AssessmentID: assessmentID,
		ReviewedBy:   reviewedBy,
		ReviewedAt:   time.Now(),
		Approved:     approved,
		ReviewNotes:  reviewNotes,
	})
}

func NewSecurityViolationEvent(assessmentID, completedBy string, event *models.SecurityEvent) *AssessmentEvent {
	return newEvent(EventSecurityViolation, SecurityViolationEvent{
		AssessmentID: assessmentID,
		CompletedBy:  completedBy,
		Kind:         event.Kind,
		Detail:       event.Detail,
		QuestionID:   event.QuestionID,
		OccurredAt:   event.OccurredAt,
	})
}

func stringValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
