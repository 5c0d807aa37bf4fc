package services

import (
	"errors"
	"fmt"

	apperrors "github.com/safeshipper/hazard-assessment-service/internal/errors"
)

// ===== COMMON SERVICE ERRORS =====

var (
	// Generic errors
	ErrNotFound         = errors.New("resource not found")
	ErrUnauthorized     = errors.New("unauthorized access")
	ErrForbidden        = errors.New("forbidden - insufficient permissions")
	ErrValidationFailed = errors.New("validation failed")
	ErrInternalError    = errors.New("internal server error")
	ErrConflict         = errors.New("resource conflict")

	// Template specific errors
	ErrTemplateNotFound      = errors.New("template not found")
	ErrTemplateDuplicateName = errors.New("template name already exists for this company")
	ErrTemplateInUse         = errors.New("template cannot be deleted - has existing assessments")
	ErrTemplateInactive      = errors.New("template is not active")
	ErrTemplateNoQuestions   = errors.New("template has no questions")

	// Assessment specific errors
	ErrAssessmentNotFound      = errors.New("assessment not found")
	ErrAssessmentNotInProgress = errors.New("assessment is not in progress")
	ErrAssessmentFinished      = errors.New("assessment already finished")
	ErrNoOverridePending       = errors.New("assessment has no pending override request")
	ErrFlowNotLoaded           = errors.New("no active flow for assessment")

	// User/Permission errors
	ErrUserNotFound            = errors.New("user not found")
	ErrInsufficientPermissions = errors.New("insufficient permissions")
)

// ===== CUSTOM ERROR TYPES =====

// Use shared validation errors from errors package
type ValidationError = apperrors.ValidationError
type ValidationErrors = apperrors.ValidationErrors

type PermissionError struct {
	UserID     string `json:"user_id"`
	ResourceID string `json:"resource_id"`
	Resource   string `json:"resource"`
	Action     string `json:"action"`
	Reason     string `json:"reason"`
}

func (pe *PermissionError) Error() string {
	return fmt.Sprintf("permission denied: user %s cannot %s %s %s - %s",
		pe.UserID, pe.Action, pe.Resource, pe.ResourceID, pe.Reason)
}

func NewPermissionError(userID, resourceID, resource, action, reason string) *PermissionError {
	return &PermissionError{
		UserID:     userID,
		ResourceID: resourceID,
		Resource:   resource,
		Action:     action,
		Reason:     reason,
	}
}

// ===== ERROR HELPERS =====

// IsNotFound checks if error represents a "not found" condition
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrTemplateNotFound) ||
		errors.Is(err, ErrAssessmentNotFound) ||
		errors.Is(err, ErrFlowNotLoaded) ||
		errors.Is(err, ErrUserNotFound)
}

// IsUnauthorized checks if error represents an "unauthorized" condition
func IsUnauthorized(err error) bool {
	if errors.Is(err, ErrUnauthorized) ||
		errors.Is(err, ErrForbidden) ||
		errors.Is(err, ErrInsufficientPermissions) {
		return true
	}
	var pe *PermissionError
	return errors.As(err, &pe)
}

// IsValidation checks if error represents a validation failure
func IsValidation(err error) bool {
	if errors.Is(err, ErrValidationFailed) ||
		errors.Is(err, ErrTemplateInactive) ||
		errors.Is(err, ErrTemplateNoQuestions) {
		return true
	}
	var ve apperrors.ValidationErrors
	return errors.As(err, &ve)
}

// IsConflict checks if error represents a resource conflict
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict) ||
		errors.Is(err, ErrTemplateDuplicateName) ||
		errors.Is(err, ErrTemplateInUse) ||
		errors.Is(err, ErrAssessmentFinished) ||
		errors.Is(err, ErrAssessmentNotInProgress) ||
		errors.Is(err, ErrNoOverridePending)
}
