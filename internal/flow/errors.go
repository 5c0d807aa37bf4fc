package flow

import "errors"

// ===== FLOW ERRORS =====

var (
	// Validation errors - recoverable locally, never advance progress
	ErrAnswerRequired      = errors.New("an answer is required for this question")
	ErrPhotoRequired       = errors.New("photo evidence is required for a failure answer")
	ErrCommentRequired     = errors.New("a comment is required for a failure answer")
	ErrEmptyOverrideReason = errors.New("override reason must not be empty")

	// Permission / platform errors
	ErrPermissionDenied = errors.New("camera permission denied")
	ErrUserCancelled    = errors.New("capture cancelled by user")
	ErrCaptureFailed    = errors.New("photo capture failed")
	ErrNoSample         = errors.New("no location sample available")

	// Persistence errors - recoverable by retry, draft is retained
	ErrPersistenceFailed = errors.New("failed to persist answer")
	ErrCompletionFailed  = errors.New("failed to complete assessment")

	// Sequencing errors - UI-misuse guards, never corrupt state
	ErrEmptyAssessment      = errors.New("assessment has no questions")
	ErrAtFirstQuestion      = errors.New("already at the first question")
	ErrIncompleteAssessment = errors.New("assessment is not at its last question")
	ErrOperationInProgress  = errors.New("another operation is in progress")
	ErrFlowNotActive        = errors.New("flow is not active")
)

// IsValidationError reports whether err is a per-question validation failure
// that should keep the user on the same question.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrAnswerRequired) ||
		errors.Is(err, ErrPhotoRequired) ||
		errors.Is(err, ErrCommentRequired) ||
		errors.Is(err, ErrEmptyOverrideReason)
}

// IsSequencingError reports whether err is a caller-misuse guard.
func IsSequencingError(err error) bool {
	return errors.Is(err, ErrAtFirstQuestion) ||
		errors.Is(err, ErrIncompleteAssessment) ||
		errors.Is(err, ErrOperationInProgress) ||
		errors.Is(err, ErrFlowNotActive)
}

// IsRetryable reports whether err should be surfaced with a retry affordance.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrPersistenceFailed) || errors.Is(err, ErrCompletionFailed)
}
