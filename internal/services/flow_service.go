package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/safeshipper/hazard-assessment-service/internal/cache"
	"github.com/safeshipper/hazard-assessment-service/internal/config"
	"github.com/safeshipper/hazard-assessment-service/internal/events"
	"github.com/safeshipper/hazard-assessment-service/internal/flow"
	"github.com/safeshipper/hazard-assessment-service/internal/models"
	"github.com/safeshipper/hazard-assessment-service/internal/repositories"
)

// FlowService drives the question-by-question completion flow for in-progress
// assessments. One live controller exists per assessment; device reconnects
// resume from the Redis snapshot plus the answers already persisted.
type FlowService interface {
	StartFlow(ctx context.Context, assessmentID, userID string) (*FlowStatus, error)
	Status(ctx context.Context, assessmentID string) (*FlowStatus, error)

	SetAnswer(ctx context.Context, assessmentID, value string) (*FlowStatus, error)
	SetComment(ctx context.Context, assessmentID, text string) (*FlowStatus, error)
	AttachEvidence(ctx context.Context, assessmentID string, req *AttachEvidenceRequest) (*FlowStatus, error)
	RequestOverride(ctx context.Context, assessmentID, reason string) (*FlowStatus, error)

	Advance(ctx context.Context, assessmentID string) (*FlowStatus, error)
	Retreat(ctx context.Context, assessmentID string) (*FlowStatus, error)
	Complete(ctx context.Context, assessmentID string) (*FlowStatus, error)
	Cancel(ctx context.Context, assessmentID string) error

	RecordInteraction(ctx context.Context, assessmentID string, kind flow.InteractionKind) error
	ReportSecurityEvent(ctx context.Context, assessmentID string, req *ReportSecurityEventRequest) error
}

// ===== DTOS =====

type AttachEvidenceRequest struct {
	PhotoURL   string   `json:"photo_url" validate:"required,max=512"`
	CapturedAt string   `json:"captured_at" validate:"required"`
	Device     string   `json:"device" validate:"required,max=200"`
	Latitude   *float64 `json:"latitude" validate:"omitempty,latitude"`
	Longitude  *float64 `json:"longitude" validate:"omitempty,longitude"`
	Accuracy   *float64 `json:"accuracy"`
}

type ReportSecurityEventRequest struct {
	Kind   models.SecurityEventKind `json:"kind" validate:"required,security_event_kind"`
	Detail string                   `json:"detail" validate:"max=2000"`
}

// FlowStatus is the client-facing view of one live flow.
type FlowStatus struct {
	AssessmentID           string            `json:"assessment_id"`
	State                  flow.State        `json:"state"`
	Index                  int               `json:"index"`
	Total                  int               `json:"total"`
	Question               *flow.Question    `json:"question,omitempty"`
	Draft                  *flow.DraftAnswer `json:"draft,omitempty"`
	CriticalFailurePending bool              `json:"critical_failure_pending"`
}

// resumeSnapshot is the Redis-cached flow position for device reconnects.
type resumeSnapshot struct {
	Index  int                          `json:"index"`
	Drafts map[string]*flow.DraftAnswer `json:"drafts"`
}

// ===== IMPLEMENTATION =====

type liveFlow struct {
	controller *flow.Controller
	assessment *models.HazardAssessment
	questions  []flow.Question
}

type flowService struct {
	repo      repositories.Repository
	cache     cache.CacheService
	publisher events.EventPublisher
	logger    *slog.Logger
	cfg       config.FlowConfig

	mu    sync.RWMutex
	flows map[string]*liveFlow
}

func NewFlowService(
	repo repositories.Repository,
	cacheService cache.CacheService,
	publisher events.EventPublisher,
	logger *slog.Logger,
	cfg config.FlowConfig,
) FlowService {
	return &flowService{
		repo:      repo,
		cache:     cacheService,
		publisher: publisher,
		logger:    logger,
		cfg:       cfg,
		flows:     make(map[string]*liveFlow),
	}
}

func resumeKey(assessmentID string) string {
	return "flow:resume:" + assessmentID
}

// StartFlow builds (or returns) the live controller for an in-progress
// assessment. Previously persisted answers and the cached position are
// seeded so a reconnecting device lands on the question it left.
func (s *flowService) StartFlow(ctx context.Context, assessmentID, userID string) (*FlowStatus, error) {
	s.mu.RLock()
	if lf, ok := s.flows[assessmentID]; ok {
		s.mu.RUnlock()
		return s.status(lf), nil
	}
	s.mu.RUnlock()

	assessment, err := s.repo.Assessment().GetByIDWithDetails(ctx, nil, assessmentID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAssessmentNotFound
		}
		return nil, fmt.Errorf("failed to get assessment: %w", err)
	}
	if assessment.Status != models.StatusInProgress {
		return nil, ErrAssessmentNotInProgress
	}
	if assessment.CompletedBy != nil && *assessment.CompletedBy != userID {
		return nil, NewPermissionError(userID, assessmentID, "assessment", "complete", "assessment belongs to another user")
	}

	questions := flowQuestions(&assessment.Template)
	if len(questions) == 0 {
		return nil, ErrTemplateNoQuestions
	}

	saved, index := s.loadResumeState(ctx, assessment)
	if index >= len(questions) {
		index = len(questions) - 1
	}

	monitor := flow.NewMonitor(flow.MonitorConfig{
		MinQuestionTime: s.cfg.MinQuestionTime,
		MaxQuestionTime: s.cfg.MaxQuestionTime,
	})
	controller := flow.NewController(
		&answerSink{service: s, assessmentID: assessmentID},
		&assessmentCompleter{service: s, assessmentID: assessmentID},
		monitor,
		flow.WithLogger(s.logger.With("assessment_id", assessmentID)),
	)
	if err := controller.Resume(questions, saved, index); err != nil {
		return nil, fmt.Errorf("failed to initialize flow: %w", err)
	}

	lf := &liveFlow{
		controller: controller,
		assessment: assessment,
		questions:  questions,
	}

	s.mu.Lock()
	if existing, ok := s.flows[assessmentID]; ok {
		// Lost the race with a concurrent StartFlow; keep the first one.
		lf = existing
	} else {
		s.flows[assessmentID] = lf
	}
	s.mu.Unlock()

	s.logger.Info("Flow started",
		"assessment_id", assessmentID,
		"questions", len(questions),
		"resume_index", index,
		"resumed_answers", len(saved))
	return s.status(lf), nil
}

// loadResumeState rebuilds the saved-draft map from the answers already in
// the database and the position from the Redis snapshot. A missing snapshot
// resumes at the first unanswered question.
func (s *flowService) loadResumeState(ctx context.Context, assessment *models.HazardAssessment) (map[string]*flow.DraftAnswer, int) {
	saved := make(map[string]*flow.DraftAnswer)

	answers, err := s.repo.Answer().GetByAssessment(ctx, nil, assessment.ID)
	if err != nil {
		s.logger.Warn("Failed to load persisted answers for resume",
			"assessment_id", assessment.ID, "error", err)
	}
	for _, answer := range answers {
		draft := &flow.DraftAnswer{
			QuestionID: answer.QuestionID,
			Value:      answer.Value,
			Comment:    stringValue(answer.Comment),
			Override:   answer.IsOverride,
		}
		if answer.OverrideReason != nil {
			draft.OverrideReason = *answer.OverrideReason
		}
		if answer.PhotoURL != nil {
			draft.Evidence = &flow.Evidence{PhotoRef: *answer.PhotoURL}
		}
		saved[answer.QuestionID] = draft
	}

	var snapshot resumeSnapshot
	err = s.cache.Get(ctx, resumeKey(assessment.ID), &snapshot)
	switch {
	case err == nil:
		for id, draft := range snapshot.Drafts {
			saved[id] = draft
		}
		return saved, snapshot.Index
	case errors.Is(err, cache.ErrCacheMiss):
	default:
		s.logger.Warn("Failed to load resume snapshot",
			"assessment_id", assessment.ID, "error", err)
	}
	return saved, len(saved)
}

func (s *flowService) saveResumeSnapshot(ctx context.Context, lf *liveFlow) {
	snapshot := resumeSnapshot{
		Index:  lf.controller.Index(),
		Drafts: map[string]*flow.DraftAnswer{},
	}
	if draft := lf.controller.Draft(); draft != nil {
		snapshot.Drafts[draft.QuestionID] = draft
	}
	if err := s.cache.Set(ctx, resumeKey(lf.assessment.ID), snapshot, s.cfg.ResumeSnapshotTTL); err != nil {
		s.logger.Warn("Failed to save resume snapshot",
			"assessment_id", lf.assessment.ID, "error", err)
	}
}

func (s *flowService) get(assessmentID string) (*liveFlow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	lf, ok := s.flows[assessmentID]
	if !ok {
		return nil, ErrFlowNotLoaded
	}
	return lf, nil
}

func (s *flowService) drop(assessmentID string) {
	s.mu.Lock()
	delete(s.flows, assessmentID)
	s.mu.Unlock()
}

func (s *flowService) status(lf *liveFlow) *FlowStatus {
	st := &FlowStatus{
		AssessmentID:           lf.assessment.ID,
		State:                  lf.controller.State(),
		Index:                  lf.controller.Index(),
		Total:                  lf.controller.Len(),
		CriticalFailurePending: lf.controller.CriticalFailurePending(),
	}
	if question, ok := lf.controller.CurrentQuestion(); ok {
		st.Question = &question
		st.Draft = lf.controller.Draft()
	}
	return st
}

func (s *flowService) Status(ctx context.Context, assessmentID string) (*FlowStatus, error) {
	lf, err := s.get(assessmentID)
	if err != nil {
		return nil, err
	}
	return s.status(lf), nil
}

func (s *flowService) SetAnswer(ctx context.Context, assessmentID, value string) (*FlowStatus, error) {
	return s.mutate(ctx, assessmentID, func(lf *liveFlow) error {
		return lf.controller.SetAnswerValue(value)
	})
}

func (s *flowService) SetComment(ctx context.Context, assessmentID, text string) (*FlowStatus, error) {
	return s.mutate(ctx, assessmentID, func(lf *liveFlow) error {
		return lf.controller.SetComment(text)
	})
}

func (s *flowService) AttachEvidence(ctx context.Context, assessmentID string, req *AttachEvidenceRequest) (*FlowStatus, error) {
	capturedAt, err := time.Parse(time.RFC3339, req.CapturedAt)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid captured_at timestamp", ErrValidationFailed)
	}
	md := flow.EvidenceMetadata{
		CapturedAt: capturedAt,
		Device:     req.Device,
	}
	if req.Latitude != nil && req.Longitude != nil {
		md.Position = &flow.Position{
			Latitude:  *req.Latitude,
			Longitude: *req.Longitude,
		}
		if req.Accuracy != nil {
			md.Position.Accuracy = *req.Accuracy
		}
	}
	return s.mutate(ctx, assessmentID, func(lf *liveFlow) error {
		return lf.controller.AttachEvidence(req.PhotoURL, md)
	})
}

func (s *flowService) RequestOverride(ctx context.Context, assessmentID, reason string) (*FlowStatus, error) {
	return s.mutate(ctx, assessmentID, func(lf *liveFlow) error {
		return lf.controller.RequestOverride(reason)
	})
}

func (s *flowService) mutate(ctx context.Context, assessmentID string, fn func(*liveFlow) error) (*FlowStatus, error) {
	lf, err := s.get(assessmentID)
	if err != nil {
		return nil, err
	}
	if err := fn(lf); err != nil {
		return nil, err
	}
	s.saveResumeSnapshot(ctx, lf)
	return s.status(lf), nil
}

func (s *flowService) Advance(ctx context.Context, assessmentID string) (*FlowStatus, error) {
	lf, err := s.get(assessmentID)
	if err != nil {
		return nil, err
	}
	if err := lf.controller.Advance(ctx); err != nil {
		return nil, err
	}
	if lf.controller.State() == flow.StateCompleted {
		return s.finishFlow(ctx, assessmentID, lf), nil
	}
	s.saveResumeSnapshot(ctx, lf)
	return s.status(lf), nil
}

// finishFlow tears down the live controller and resume snapshot once the
// flow reached its terminal COMPLETED state.
func (s *flowService) finishFlow(ctx context.Context, assessmentID string, lf *liveFlow) *FlowStatus {
	s.drop(assessmentID)
	if err := s.cache.Delete(ctx, resumeKey(assessmentID)); err != nil {
		s.logger.Warn("Failed to clear resume snapshot",
			"assessment_id", assessmentID, "error", err)
	}
	return &FlowStatus{
		AssessmentID: assessmentID,
		State:        flow.StateCompleted,
		Index:        lf.controller.Index(),
		Total:        lf.controller.Len(),
	}
}

// Complete retries finalization after a failed completion attempt. Advance
// already completes on the last question; this path only applies while the
// flow is stuck pending completion.
func (s *flowService) Complete(ctx context.Context, assessmentID string) (*FlowStatus, error) {
	lf, err := s.get(assessmentID)
	if err != nil {
		return nil, err
	}
	if err := lf.controller.Complete(ctx); err != nil {
		return nil, err
	}
	return s.finishFlow(ctx, assessmentID, lf), nil
}

func (s *flowService) Retreat(ctx context.Context, assessmentID string) (*FlowStatus, error) {
	lf, err := s.get(assessmentID)
	if err != nil {
		return nil, err
	}
	if err := lf.controller.Retreat(); err != nil {
		return nil, err
	}
	s.saveResumeSnapshot(ctx, lf)
	return s.status(lf), nil
}

// Cancel tears down the live flow. Persisted answers are kept; the assessment
// stays IN_PROGRESS and can be resumed later with a fresh StartFlow.
func (s *flowService) Cancel(ctx context.Context, assessmentID string) error {
	lf, err := s.get(assessmentID)
	if err != nil {
		return err
	}
	if err := lf.controller.Cancel(); err != nil {
		return err
	}
	s.drop(assessmentID)
	return nil
}

func (s *flowService) RecordInteraction(ctx context.Context, assessmentID string, kind flow.InteractionKind) error {
	lf, err := s.get(assessmentID)
	if err != nil {
		return err
	}
	lf.controller.Monitor().RecordInteraction(kind)
	return nil
}

// ReportSecurityEvent records a host-environment signal (app switch,
// screenshot) in the monitor log, persists it immediately and publishes a
// security.violation event. Violations never block the flow.
func (s *flowService) ReportSecurityEvent(ctx context.Context, assessmentID string, req *ReportSecurityEventRequest) error {
	lf, err := s.get(assessmentID)
	if err != nil {
		return err
	}

	monitor := lf.controller.Monitor()
	switch req.Kind {
	case models.EventAppSwitch:
		monitor.ObserveAppSwitch(req.Detail)
	case models.EventScreenshot:
		monitor.ObserveScreenshot(req.Detail)
	default:
		monitor.ObserveOther(req.Detail)
	}

	record := &models.SecurityEvent{
		ID:           uuid.NewString(),
		AssessmentID: assessmentID,
		Kind:         req.Kind,
		Detail:       req.Detail,
		OccurredAt:   time.Now(),
	}
	if question, ok := lf.controller.CurrentQuestion(); ok {
		record.QuestionID = &question.ID
	}
	if err := s.repo.SecurityEvent().Create(ctx, nil, record); err != nil {
		return fmt.Errorf("failed to persist security event: %w", err)
	}

	completedBy := stringValue(lf.assessment.CompletedBy)
	if err := s.publisher.PublishAssessmentEvent(ctx,
		events.NewSecurityViolationEvent(assessmentID, completedBy, record)); err != nil {
		s.logger.Warn("Failed to publish security violation event",
			"assessment_id", assessmentID, "error", err)
	}
	return nil
}
