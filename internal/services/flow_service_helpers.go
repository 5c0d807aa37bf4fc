package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/safeshipper/hazard-assessment-service/internal/events"
	"github.com/safeshipper/hazard-assessment-service/internal/flow"
	"github.com/safeshipper/hazard-assessment-service/internal/models"
	"github.com/safeshipper/hazard-assessment-service/internal/repositories"
)

// answerSink persists one validated draft per Advance. It satisfies
// flow.AnswerSink.
type answerSink struct {
	service      *flowService
	assessmentID string
}

func (a *answerSink) PersistAnswer(ctx context.Context, questionID string, draft *flow.DraftAnswer) error {
	answer, err := draftToAnswer(a.assessmentID, draft)
	if err != nil {
		return err
	}
	return a.service.repo.Answer().Upsert(ctx, nil, answer)
}

// assessmentCompleter finalizes the assessment once every question has been
// answered and persisted. It satisfies flow.Completer.
type assessmentCompleter struct {
	service      *flowService
	assessmentID string
}

func (c *assessmentCompleter) CompleteAssessment(ctx context.Context, answers []*flow.DraftAnswer, monitorEvents []flow.SecurityEvent) error {
	s := c.service

	assessment, err := s.repo.Assessment().GetByIDWithDetails(ctx, nil, c.assessmentID)
	if err != nil {
		return fmt.Errorf("failed to get assessment: %w", err)
	}
	if assessment.Status != models.StatusInProgress {
		return ErrAssessmentNotInProgress
	}

	var failures, overrides int
	var failedQuestionIDs []string
	var unresolvedFailure, criticalFailure bool
	criticalByID := criticalQuestionIDs(&assessment.Template)
	for _, draft := range answers {
		if draft.Override {
			overrides++
		}
		if !draft.IsFailure() {
			continue
		}
		failures++
		failedQuestionIDs = append(failedQuestionIDs, draft.QuestionID)
		if !draft.Override {
			unresolvedFailure = true
			if criticalByID[draft.QuestionID] {
				criticalFailure = true
			}
		}
	}

	now := time.Now()
	assessment.EndedAt = &now
	if assessment.StartedAt != nil {
		seconds := int(now.Sub(*assessment.StartedAt).Seconds())
		assessment.CompletionSeconds = &seconds
	}
	if lat, lng, ok := lastKnownPosition(answers); ok {
		assessment.EndLatitude = &lat
		assessment.EndLongitude = &lng
	}

	result := models.ResultPass
	if failures > 0 {
		result = models.ResultFail
	}
	assessment.Result = &result

	switch {
	case unresolvedFailure:
		assessment.Status = models.StatusFailed
	case failures > 0:
		// Every failure carries an override; escalate for manager review.
		assessment.Status = models.StatusOverrideRequested
		assessment.OverrideRequestedBy = assessment.CompletedBy
		assessment.OverrideRequestedAt = &now
	default:
		assessment.Status = models.StatusCompleted
	}

	records := monitorEventRecords(c.assessmentID, monitorEvents)
	err = s.repo.WithTransaction(ctx, func(txRepo repositories.Repository) error {
		if err := txRepo.Assessment().Update(ctx, nil, assessment); err != nil {
			return fmt.Errorf("failed to update assessment: %w", err)
		}
		if err := txRepo.SecurityEvent().CreateBatch(ctx, nil, records); err != nil {
			return fmt.Errorf("failed to persist security events: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	c.publishOutcome(ctx, assessment, answers, failedQuestionIDs, failures, overrides, criticalFailure)

	s.logger.Info("Assessment finalized",
		"assessment_id", c.assessmentID,
		"status", assessment.Status,
		"result", result,
		"failures", failures,
		"overrides", overrides,
		"security_events", len(records))
	return nil
}

func (c *assessmentCompleter) publishOutcome(
	ctx context.Context,
	assessment *models.HazardAssessment,
	answers []*flow.DraftAnswer,
	failedQuestionIDs []string,
	failures, overrides int,
	criticalFailure bool,
) {
	s := c.service
	var event *events.AssessmentEvent
	if assessment.Status == models.StatusFailed {
		event = events.NewAssessmentFailedEvent(assessment, failedQuestionIDs, criticalFailure)
	} else {
		suspicious := assessment.IsSuspiciouslyFast(s.cfg.MinSecondsPerQuestion)
		event = events.NewAssessmentCompletedEvent(assessment, len(answers), failures, overrides, suspicious)
	}
	if err := s.publisher.PublishAssessmentEvent(ctx, event); err != nil {
		s.logger.Warn("Failed to publish assessment outcome event",
			"assessment_id", assessment.ID, "error", err)
	}
}

// draftToAnswer maps a validated flow draft onto the persistence model.
func draftToAnswer(assessmentID string, draft *flow.DraftAnswer) (*models.AssessmentAnswer, error) {
	answer := &models.AssessmentAnswer{
		ID:           uuid.NewString(),
		AssessmentID: assessmentID,
		QuestionID:   draft.QuestionID,
		Value:        draft.Value,
		IsOverride:   draft.Override,
		AnsweredAt:   time.Now(),
	}
	if draft.Comment != "" {
		answer.Comment = &draft.Comment
	}
	if draft.OverrideReason != "" {
		answer.OverrideReason = &draft.OverrideReason
	}
	if draft.Evidence != nil {
		answer.PhotoURL = &draft.Evidence.PhotoRef
		md, err := marshalJSON(draft.Evidence.Metadata)
		if err != nil {
			return nil, fmt.Errorf("failed to encode evidence metadata: %w", err)
		}
		answer.EvidenceMetadata = md
		if pos := draft.Evidence.Metadata.Position; pos != nil {
			answer.Latitude = &pos.Latitude
			answer.Longitude = &pos.Longitude
		}
	}
	if draft.Security != nil {
		md, err := marshalJSON(draft.Security)
		if err != nil {
			return nil, fmt.Errorf("failed to encode security metadata: %w", err)
		}
		answer.SecurityMetadata = md
	}
	return answer, nil
}

func monitorEventRecords(assessmentID string, monitorEvents []flow.SecurityEvent) []*models.SecurityEvent {
	records := make([]*models.SecurityEvent, 0, len(monitorEvents))
	for _, ev := range monitorEvents {
		record := &models.SecurityEvent{
			ID:           uuid.NewString(),
			AssessmentID: assessmentID,
			Kind:         models.SecurityEventKind(ev.Kind),
			Detail:       ev.Detail,
			OccurredAt:   ev.Timestamp,
		}
		if ev.QuestionID != "" {
			questionID := ev.QuestionID
			record.QuestionID = &questionID
		}
		records = append(records, record)
	}
	return records
}

func criticalQuestionIDs(template *models.AssessmentTemplate) map[string]bool {
	critical := make(map[string]bool)
	for _, section := range template.Sections {
		for _, q := range section.Questions {
			if q.CriticalFailure {
				critical[q.ID] = true
			}
		}
	}
	return critical
}

// lastKnownPosition returns the most recent evidence position, used as the
// assessment's end coordinates.
func lastKnownPosition(answers []*flow.DraftAnswer) (lat, lng float64, ok bool) {
	for i := len(answers) - 1; i >= 0; i-- {
		if ev := answers[i].Evidence; ev != nil && ev.Metadata.Position != nil {
			return ev.Metadata.Position.Latitude, ev.Metadata.Position.Longitude, true
		}
	}
	return 0, 0, false
}
