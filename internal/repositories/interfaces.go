package repositories

import (
	"context"
	"time"

	"github.com/safeshipper/hazard-assessment-service/internal/models"
)

// Repository is the aggregate access point for all entity repositories.
type Repository interface {
	Template() TemplateRepository
	Assignment() AssignmentRepository
	Assessment() AssessmentRepository
	Answer() AnswerRepository
	SecurityEvent() SecurityEventRepository
	User() UserRepository

	WithTransaction(ctx context.Context, fn func(Repository) error) error
	Ping(ctx context.Context) error
	Close() error
}

// ===== SHARED FILTER STRUCTS =====

type TemplateFilters struct {
	CompanyID *string `json:"company_id"`
	IsActive  *bool   `json:"is_active"`
	CreatedBy *string `json:"created_by"`
	Limit     int     `json:"limit"`
	Offset    int     `json:"offset"`
	SortBy    string  `json:"sort_by"`    // "created_at", "name", "version"
	SortOrder string  `json:"sort_order"` // "asc", "desc"
}

type AssessmentFilters struct {
	Status      *models.AssessmentStatus `json:"status"`
	ShipmentID  *string                  `json:"shipment_id"`
	TemplateID  *string                  `json:"template_id"`
	CompletedBy *string                  `json:"completed_by"`
	DateFrom    *time.Time               `json:"date_from"`
	DateTo      *time.Time               `json:"date_to"`
	Limit       int                      `json:"limit"`
	Offset      int                      `json:"offset"`
	SortBy      string                   `json:"sort_by"`
	SortOrder   string                   `json:"sort_order"`
}

type SecurityEventFilters struct {
	AssessmentID *string                   `json:"assessment_id"`
	Kind         *models.SecurityEventKind `json:"kind"`
	DateFrom     *time.Time                `json:"date_from"`
	DateTo       *time.Time                `json:"date_to"`
	Limit        int                       `json:"limit"`
	Offset       int                       `json:"offset"`
}

// ===== SHARED STATISTICS STRUCTS =====

type TemplateStats struct {
	TotalAssessments     int     `json:"total_assessments"`
	CompletedAssessments int     `json:"completed_assessments"`
	FailedAssessments    int     `json:"failed_assessments"`
	PassRate             float64 `json:"pass_rate"`
	AverageSeconds       float64 `json:"average_seconds"`
	OverrideCount        int     `json:"override_count"`
}

type CompletionStats struct {
	TotalAssessments   int                              `json:"total_assessments"`
	StatusBreakdown    map[models.AssessmentStatus]int  `json:"status_breakdown"`
	PassRate           float64                          `json:"pass_rate"`
	AverageSeconds     float64                          `json:"average_seconds"`
	SuspiciouslyFast   int                              `json:"suspiciously_fast"`
	SecurityViolations map[models.SecurityEventKind]int `json:"security_violations"`
}
