package flow

import "strings"

// validateDraft enforces the per-question policy, short-circuiting on the
// first failure:
//
//  1. required question with empty value
//  2. failure outcome without override: photo then comment requirements
//  3. override without a reason (re-checked defensively; RequestOverride
//     already rejects blank reasons)
//
// A critical failure without override is deliberately not a hard gate; the
// caller is expected to offer an override prompt via CriticalFailurePending.
func validateDraft(q Question, d *DraftAnswer) error {
	if q.Required && !d.HasAnswer() {
		return ErrAnswerRequired
	}

	if d.IsFailure() && !d.Override {
		if q.PhotoRequiredOnFail && d.Evidence == nil {
			return ErrPhotoRequired
		}
		if q.CommentRequiredOnFail && strings.TrimSpace(d.Comment) == "" {
			return ErrCommentRequired
		}
	}

	if d.Override && strings.TrimSpace(d.OverrideReason) == "" {
		return ErrEmptyOverrideReason
	}

	return nil
}
