package flow

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

type State string

const (
	StateNotStarted        State = "NOT_STARTED"
	StateInProgress        State = "IN_PROGRESS"
	StatePendingCompletion State = "PENDING_COMPLETION"
	StateCompleted         State = "COMPLETED"
	StateCancelled         State = "CANCELLED"
)

// Controller owns the ordered question sequence, the current index and the
// per-question validation policy. It is the sole authority for advancing or
// completing the assessment.
//
// Mutating operations are expected to be serialized by the caller; the
// controller additionally guards against interleaved Advance/Complete calls
// with a single in-flight flag, failing fast with ErrOperationInProgress.
// Index and state updates are always the last step of a successful
// transition, never interleaved with fallible I/O.
type Controller struct {
	mu   sync.Mutex
	busy bool

	state     State
	questions []Question
	index     int
	draft     *DraftAnswer
	persisted map[string]bool

	store     *AnswerStore
	monitor   *Monitor
	location  *LocationCollector
	sink      AnswerSink
	completer Completer
	logger    *slog.Logger
}

type Option func(*Controller)

// WithLogger attaches a structured logger to the controller.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		c.logger = logger
	}
}

// WithLocationCollector hands the controller ownership of the collector; it
// is torn down when the flow ends, whether by completion or cancellation.
func WithLocationCollector(lc *LocationCollector) Option {
	return func(c *Controller) {
		c.location = lc
	}
}

func NewController(sink AnswerSink, completer Completer, monitor *Monitor, opts ...Option) *Controller {
	c := &Controller{
		state:     StateNotStarted,
		store:     NewAnswerStore(),
		monitor:   monitor,
		sink:      sink,
		completer: completer,
		persisted: make(map[string]bool),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Initialize starts the flow over the given ordered questions. saved may
// carry previously persisted drafts when resuming; nil is a fresh start.
func (c *Controller) Initialize(questions []Question, saved map[string]*DraftAnswer) error {
	return c.initializeAt(questions, saved, 0)
}

// Resume starts the flow at the given question index with previously
// persisted drafts seeded, used when a device reconnects mid-assessment.
func (c *Controller) Resume(questions []Question, saved map[string]*DraftAnswer, index int) error {
	return c.initializeAt(questions, saved, index)
}

func (c *Controller) initializeAt(questions []Question, saved map[string]*DraftAnswer, index int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateNotStarted {
		return ErrFlowNotActive
	}
	if len(questions) == 0 {
		return ErrEmptyAssessment
	}
	if index < 0 || index >= len(questions) {
		index = 0
	}

	c.questions = make([]Question, len(questions))
	copy(c.questions, questions)
	c.store.Seed(saved)
	for id := range saved {
		c.persisted[id] = true
	}

	c.index = index
	c.state = StateInProgress
	c.draft = c.store.Load(c.questions[index].ID)
	c.monitor.StartTiming(c.questions[index].ID)

	c.logger.Info("assessment flow initialized",
		"questions", len(questions),
		"start_index", index,
		"resumed_answers", len(saved))
	return nil
}

// SetAnswerValue mutates the current draft's value. Validation is deferred
// to Advance.
func (c *Controller) SetAnswerValue(value string) error {
	return c.mutateDraft(func(d *DraftAnswer) error {
		d.Value = value
		return nil
	})
}

// SetComment mutates the current draft's comment.
func (c *Controller) SetComment(text string) error {
	return c.mutateDraft(func(d *DraftAnswer) error {
		d.Comment = text
		return nil
	})
}

// AttachEvidence replaces the current draft's photo evidence. A retake
// replaces the prior photo/metadata pair wholesale.
func (c *Controller) AttachEvidence(photoRef string, md EvidenceMetadata) error {
	return c.mutateDraft(func(d *DraftAnswer) error {
		d.Evidence = &Evidence{PhotoRef: photoRef, Metadata: md}
		return nil
	})
}

// RequestOverride marks the current draft as overridden with a mandatory
// justification.
func (c *Controller) RequestOverride(reason string) error {
	return c.mutateDraft(func(d *DraftAnswer) error {
		if !hasText(reason) {
			return ErrEmptyOverrideReason
		}
		d.Override = true
		d.OverrideReason = reason
		return nil
	})
}

func (c *Controller) mutateDraft(fn func(*DraftAnswer) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateInProgress {
		return ErrFlowNotActive
	}
	if c.busy {
		return ErrOperationInProgress
	}
	if err := fn(c.draft); err != nil {
		return err
	}
	c.store.Save(c.draft)
	return nil
}

// Advance validates the current draft, finalizes its timing, persists it
// through the answer sink and moves to the next question. At the last
// question it transitions to pending completion and invokes Complete.
//
// On validation failure progress is not mutated and the caller must keep
// the user on the same question. On persistence failure the draft is
// retained and the user may retry; the index never moves past a question
// whose persistence has not succeeded.
func (c *Controller) Advance(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateInProgress {
		c.mu.Unlock()
		return ErrFlowNotActive
	}
	if c.busy {
		c.mu.Unlock()
		return ErrOperationInProgress
	}

	question := c.questions[c.index]
	draft := c.draft
	if err := validateDraft(question, draft); err != nil {
		c.mu.Unlock()
		return err
	}
	c.busy = true
	c.mu.Unlock()

	c.monitor.EndTiming(question.ID)
	snapshot := c.monitor.Snapshot()
	draft.Security = &snapshot
	c.store.Save(draft)

	err := c.sink.PersistAnswer(ctx, question.ID, draft.Clone())

	c.mu.Lock()
	c.busy = false
	if err != nil {
		// Resume measurement so the retry window counts toward elapsed time.
		c.monitor.StartTiming(question.ID)
		c.mu.Unlock()
		c.logger.Warn("answer persistence failed",
			"question_id", question.ID,
			"error", err)
		return fmt.Errorf("%w: %v", ErrPersistenceFailed, err)
	}
	c.persisted[question.ID] = true

	if c.index == len(c.questions)-1 {
		c.state = StatePendingCompletion
		c.mu.Unlock()
		return c.Complete(ctx)
	}

	c.index++
	next := c.questions[c.index]
	c.draft = c.store.Load(next.ID)
	c.mu.Unlock()

	c.monitor.StartTiming(next.ID)
	return nil
}

// Retreat moves back one question without validating or persisting the
// current draft. The draft is kept in the store so forward navigation
// restores it.
func (c *Controller) Retreat() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateInProgress {
		return ErrFlowNotActive
	}
	if c.busy {
		return ErrOperationInProgress
	}
	if c.index == 0 {
		return ErrAtFirstQuestion
	}

	c.store.Save(c.draft)
	c.monitor.EndTiming(c.questions[c.index].ID)

	c.index--
	prev := c.questions[c.index]
	c.draft = c.store.Load(prev.ID)
	c.monitor.StartTiming(prev.ID)
	return nil
}

// Complete invokes the external completion operation with the full set of
// persisted answers and the accumulated violation log. It only succeeds
// immediately after the last question's successful Advance; the COMPLETED
// transition is terminal.
func (c *Controller) Complete(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StatePendingCompletion {
		c.mu.Unlock()
		if c.state == StateCompleted || c.state == StateCancelled {
			return ErrFlowNotActive
		}
		return ErrIncompleteAssessment
	}
	if c.busy {
		c.mu.Unlock()
		return ErrOperationInProgress
	}
	c.busy = true
	answers := c.store.Ordered(c.questions)
	events := c.monitor.Events()
	c.mu.Unlock()

	err := c.completer.CompleteAssessment(ctx, answers, events)

	c.mu.Lock()
	c.busy = false
	if err != nil {
		c.mu.Unlock()
		c.logger.Warn("assessment completion failed", "error", err)
		return fmt.Errorf("%w: %v", ErrCompletionFailed, err)
	}
	c.state = StateCompleted
	c.mu.Unlock()

	c.teardown()
	c.logger.Info("assessment flow completed",
		"answers", len(answers),
		"security_events", len(events))
	return nil
}

// Cancel ends the flow before completion, discarding the unsaved current
// draft and tearing down platform resources. Already-persisted answers are
// not rolled back.
func (c *Controller) Cancel() error {
	c.mu.Lock()
	if c.state == StateCompleted || c.state == StateCancelled {
		c.mu.Unlock()
		return ErrFlowNotActive
	}
	if c.busy {
		c.mu.Unlock()
		return ErrOperationInProgress
	}
	if c.draft != nil && !c.persisted[c.draft.QuestionID] {
		c.store.Delete(c.draft.QuestionID)
	}
	if c.state == StateInProgress {
		c.monitor.EndTiming(c.questions[c.index].ID)
	}
	c.state = StateCancelled
	c.mu.Unlock()

	c.teardown()
	c.logger.Info("assessment flow cancelled")
	return nil
}

func (c *Controller) teardown() {
	if c.location != nil {
		c.location.Close()
	}
}

// CriticalFailurePending reports whether the current draft is a critical
// failure without an override. This is a side channel for the caller to
// offer an override prompt; it does not block Advance.
func (c *Controller) CriticalFailurePending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateInProgress {
		return false
	}
	q := c.questions[c.index]
	return q.CriticalFailure && c.draft.IsFailure() && !c.draft.Override
}

// ===== ACCESSORS =====

// State returns the flow state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Index returns the 0-based current question index.
func (c *Controller) Index() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.index
}

// Len returns the number of questions in the flow.
func (c *Controller) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.questions)
}

// CurrentQuestion returns the question at the current index.
func (c *Controller) CurrentQuestion() (Question, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateInProgress {
		return Question{}, false
	}
	return c.questions[c.index], true
}

// Draft returns a copy of the current draft answer.
func (c *Controller) Draft() *DraftAnswer {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.draft.Clone()
}

// Monitor exposes the anti-cheating monitor for interaction and
// environment-signal recording.
func (c *Controller) Monitor() *Monitor {
	return c.monitor
}

func hasText(s string) bool {
	for _, r := range s {
		if r != ' ' && r != '\t' && r != '\n' && r != '\r' {
			return true
		}
	}
	return false
}
