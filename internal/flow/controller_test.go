package flow

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ===== FAKES =====

type persistCall struct {
	QuestionID string
	Answer     *DraftAnswer
}

type fakeSink struct {
	mu       sync.Mutex
	calls    []persistCall
	failures int
	release  chan struct{} // when set, PersistAnswer blocks until closed
}

func (s *fakeSink) PersistAnswer(ctx context.Context, questionID string, answer *DraftAnswer) error {
	s.mu.Lock()
	release := s.release
	s.mu.Unlock()
	if release != nil {
		<-release
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failures > 0 {
		s.failures--
		return errors.New("save unavailable")
	}
	s.calls = append(s.calls, persistCall{QuestionID: questionID, Answer: answer})
	return nil
}

func (s *fakeSink) persisted() []persistCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]persistCall, len(s.calls))
	copy(out, s.calls)
	return out
}

type fakeCompleter struct {
	mu       sync.Mutex
	calls    int
	failures int
	answers  []*DraftAnswer
	events   []SecurityEvent
}

func (c *fakeCompleter) CompleteAssessment(ctx context.Context, answers []*DraftAnswer, events []SecurityEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failures > 0 {
		c.failures--
		return errors.New("upstream unavailable")
	}
	c.calls++
	c.answers = answers
	c.events = events
	return nil
}

func newTestController(sink *fakeSink, completer *fakeCompleter) *Controller {
	return NewController(sink, completer, NewMonitor(MonitorConfig{}))
}

func twoQuestions() []Question {
	return []Question{
		{ID: "q1", Text: "Load restraints secured?", Type: YesNoNA, Required: true, Section: "Load Securing", Order: 1},
		{ID: "q2", Text: "Additional observations", Type: Text, Required: false, Section: "Load Securing", Order: 2},
	}
}

// ===== INITIALIZE =====

func TestControllerInitialize(t *testing.T) {
	t.Run("empty assessment is rejected", func(t *testing.T) {
		c := newTestController(&fakeSink{}, &fakeCompleter{})
		err := c.Initialize(nil, nil)
		assert.ErrorIs(t, err, ErrEmptyAssessment)
		assert.Equal(t, StateNotStarted, c.State())
	})

	t.Run("starts at index zero with empty draft", func(t *testing.T) {
		c := newTestController(&fakeSink{}, &fakeCompleter{})
		require.NoError(t, c.Initialize(twoQuestions(), nil))

		assert.Equal(t, StateInProgress, c.State())
		assert.Equal(t, 0, c.Index())
		draft := c.Draft()
		assert.Equal(t, "q1", draft.QuestionID)
		assert.False(t, draft.HasAnswer())
	})

	t.Run("double initialize is rejected", func(t *testing.T) {
		c := newTestController(&fakeSink{}, &fakeCompleter{})
		require.NoError(t, c.Initialize(twoQuestions(), nil))
		assert.ErrorIs(t, c.Initialize(twoQuestions(), nil), ErrFlowNotActive)
	})

	t.Run("resume seeds saved drafts", func(t *testing.T) {
		c := newTestController(&fakeSink{}, &fakeCompleter{})
		saved := map[string]*DraftAnswer{
			"q1": {QuestionID: "q1", Value: "Yes"},
		}
		require.NoError(t, c.Resume(twoQuestions(), saved, 1))

		assert.Equal(t, 1, c.Index())
		require.NoError(t, c.Retreat())
		assert.Equal(t, "Yes", c.Draft().Value)
	})
}

// ===== VALIDATION POLICY =====

func TestControllerAdvanceValidation(t *testing.T) {
	ctx := context.Background()

	t.Run("required question with empty answer", func(t *testing.T) {
		sink := &fakeSink{}
		c := newTestController(sink, &fakeCompleter{})
		require.NoError(t, c.Initialize(twoQuestions(), nil))

		err := c.Advance(ctx)
		assert.ErrorIs(t, err, ErrAnswerRequired)
		assert.Equal(t, 0, c.Index())
		assert.Empty(t, sink.persisted())
	})

	t.Run("photo required on failure answer", func(t *testing.T) {
		questions := []Question{
			{ID: "q1", Type: YesNoNA, Required: true, PhotoRequiredOnFail: true, Order: 1},
		}
		c := newTestController(&fakeSink{}, &fakeCompleter{})
		require.NoError(t, c.Initialize(questions, nil))
		require.NoError(t, c.SetAnswerValue("No"))

		err := c.Advance(ctx)
		assert.ErrorIs(t, err, ErrPhotoRequired)
		assert.Equal(t, 0, c.Index())
	})

	t.Run("comment required on failure answer", func(t *testing.T) {
		questions := []Question{
			{ID: "q1", Type: PassFailNA, Required: true, CommentRequiredOnFail: true, Order: 1},
		}
		c := newTestController(&fakeSink{}, &fakeCompleter{})
		require.NoError(t, c.Initialize(questions, nil))
		require.NoError(t, c.SetAnswerValue("Fail"))

		assert.ErrorIs(t, c.Advance(ctx), ErrCommentRequired)

		require.NoError(t, c.SetComment("Strap tensioner damaged, replacement ordered"))
		assert.NoError(t, c.Advance(ctx))
	})

	t.Run("photo satisfies the evidence requirement", func(t *testing.T) {
		questions := []Question{
			{ID: "q1", Type: YesNoNA, Required: true, PhotoRequiredOnFail: true, Order: 1},
		}
		sink := &fakeSink{}
		c := newTestController(sink, &fakeCompleter{})
		require.NoError(t, c.Initialize(questions, nil))
		require.NoError(t, c.SetAnswerValue("No"))
		require.NoError(t, c.AttachEvidence("photos/abc.jpg", EvidenceMetadata{
			CapturedAt: time.Now(),
			Device:     "test-device",
		}))

		require.NoError(t, c.Advance(ctx))
		calls := sink.persisted()
		require.Len(t, calls, 1)
		require.NotNil(t, calls[0].Answer.Evidence)
		assert.Equal(t, "photos/abc.jpg", calls[0].Answer.Evidence.PhotoRef)
	})

	t.Run("failure value matching is case-insensitive", func(t *testing.T) {
		questions := []Question{
			{ID: "q1", Type: YesNoNA, Required: true, PhotoRequiredOnFail: true, Order: 1},
		}
		c := newTestController(&fakeSink{}, &fakeCompleter{})
		require.NoError(t, c.Initialize(questions, nil))
		require.NoError(t, c.SetAnswerValue("  nO "))
		assert.ErrorIs(t, c.Advance(ctx), ErrPhotoRequired)
	})
}

// ===== OVERRIDE =====

func TestControllerOverride(t *testing.T) {
	ctx := context.Background()
	questions := []Question{
		{ID: "q1", Type: YesNoNA, Required: true, PhotoRequiredOnFail: true, CriticalFailure: true, Order: 1},
	}

	t.Run("blank reason is rejected", func(t *testing.T) {
		c := newTestController(&fakeSink{}, &fakeCompleter{})
		require.NoError(t, c.Initialize(questions, nil))
		assert.ErrorIs(t, c.RequestOverride("   "), ErrEmptyOverrideReason)
	})

	t.Run("override bypasses evidence requirements", func(t *testing.T) {
		sink := &fakeSink{}
		completer := &fakeCompleter{}
		c := newTestController(sink, completer)
		require.NoError(t, c.Initialize(questions, nil))
		require.NoError(t, c.SetAnswerValue("No"))

		assert.ErrorIs(t, c.Advance(ctx), ErrPhotoRequired)
		assert.True(t, c.CriticalFailurePending())

		require.NoError(t, c.RequestOverride("Supervisor approved verbally"))
		require.NoError(t, c.Advance(ctx))

		assert.Equal(t, StateCompleted, c.State())
		calls := sink.persisted()
		require.Len(t, calls, 1)
		assert.True(t, calls[0].Answer.Override)
		assert.Equal(t, "Supervisor approved verbally", calls[0].Answer.OverrideReason)
	})

	t.Run("critical failure alone does not block advance", func(t *testing.T) {
		soft := []Question{
			{ID: "q1", Type: YesNoNA, Required: true, CriticalFailure: true, Order: 1},
		}
		c := newTestController(&fakeSink{}, &fakeCompleter{})
		require.NoError(t, c.Initialize(soft, nil))
		require.NoError(t, c.SetAnswerValue("No"))

		assert.True(t, c.CriticalFailurePending())
		assert.NoError(t, c.Advance(ctx))
	})
}

// ===== ADVANCE / RETREAT / COMPLETE =====

func TestControllerProgression(t *testing.T) {
	ctx := context.Background()

	t.Run("two question walkthrough", func(t *testing.T) {
		sink := &fakeSink{}
		completer := &fakeCompleter{}
		c := newTestController(sink, completer)
		require.NoError(t, c.Initialize(twoQuestions(), nil))

		// Q1 required: empty answer stays put
		assert.ErrorIs(t, c.Advance(ctx), ErrAnswerRequired)
		assert.Equal(t, 0, c.Index())

		require.NoError(t, c.SetAnswerValue("Yes"))
		require.NoError(t, c.Advance(ctx))
		assert.Equal(t, 1, c.Index())

		// Q2 is optional: empty answer advances and triggers completion
		require.NoError(t, c.Advance(ctx))
		assert.Equal(t, StateCompleted, c.State())
		assert.Equal(t, 1, completer.calls)
		assert.Len(t, completer.answers, 2)
	})

	t.Run("persistence failure keeps index and draft", func(t *testing.T) {
		sink := &fakeSink{failures: 1}
		c := newTestController(sink, &fakeCompleter{})
		require.NoError(t, c.Initialize(twoQuestions(), nil))
		require.NoError(t, c.SetAnswerValue("Yes"))

		err := c.Advance(ctx)
		assert.ErrorIs(t, err, ErrPersistenceFailed)
		assert.Equal(t, 0, c.Index())
		assert.Equal(t, "Yes", c.Draft().Value)

		// User-driven retry succeeds
		require.NoError(t, c.Advance(ctx))
		assert.Equal(t, 1, c.Index())
		assert.Len(t, sink.persisted(), 1)
	})

	t.Run("retry after persistence failure keeps the full dwell time", func(t *testing.T) {
		sink := &fakeSink{failures: 1}
		m, clock := newClockedMonitor(MonitorConfig{MinQuestionTime: 2 * time.Second})
		c := NewController(sink, &fakeCompleter{}, m)
		require.NoError(t, c.Initialize(twoQuestions(), nil))

		clock.Step(60 * time.Second)
		require.NoError(t, c.SetAnswerValue("Yes"))
		assert.ErrorIs(t, c.Advance(ctx), ErrPersistenceFailed)

		// A prompt retry is not a fast answer; the elapsed time spans both
		// attempts and no timing anomaly is logged.
		clock.Step(time.Second)
		require.NoError(t, c.Advance(ctx))

		assert.Empty(t, m.Events())
		calls := sink.persisted()
		require.Len(t, calls, 1)
		require.NotNil(t, calls[0].Answer.Security)
		assert.Equal(t, 61*time.Second, calls[0].Answer.Security.Elapsed)
	})

	t.Run("retreat at first question fails", func(t *testing.T) {
		c := newTestController(&fakeSink{}, &fakeCompleter{})
		require.NoError(t, c.Initialize(twoQuestions(), nil))
		assert.ErrorIs(t, c.Retreat(), ErrAtFirstQuestion)
	})

	t.Run("retreat then advance re-persists the same answer", func(t *testing.T) {
		sink := &fakeSink{}
		c := newTestController(sink, &fakeCompleter{})
		require.NoError(t, c.Initialize(twoQuestions(), nil))

		require.NoError(t, c.SetAnswerValue("Yes"))
		require.NoError(t, c.Advance(ctx))
		require.NoError(t, c.Retreat())
		assert.Equal(t, "Yes", c.Draft().Value)

		require.NoError(t, c.Advance(ctx))
		calls := sink.persisted()
		require.Len(t, calls, 2)
		assert.Equal(t, calls[0].QuestionID, calls[1].QuestionID)
		assert.Equal(t, calls[0].Answer.Value, calls[1].Answer.Value)
	})

	t.Run("answers are persisted in question order", func(t *testing.T) {
		questions := []Question{
			{ID: "q1", Type: YesNoNA, Required: true, Order: 1},
			{ID: "q2", Type: YesNoNA, Required: true, Order: 2},
			{ID: "q3", Type: YesNoNA, Required: true, Order: 3},
		}
		sink := &fakeSink{}
		c := newTestController(sink, &fakeCompleter{})
		require.NoError(t, c.Initialize(questions, nil))

		for range questions {
			require.NoError(t, c.SetAnswerValue("Yes"))
			require.NoError(t, c.Advance(ctx))
		}

		calls := sink.persisted()
		require.Len(t, calls, 3)
		assert.Equal(t, []string{"q1", "q2", "q3"},
			[]string{calls[0].QuestionID, calls[1].QuestionID, calls[2].QuestionID})
	})

	t.Run("complete before last question fails", func(t *testing.T) {
		c := newTestController(&fakeSink{}, &fakeCompleter{})
		require.NoError(t, c.Initialize(twoQuestions(), nil))
		assert.ErrorIs(t, c.Complete(ctx), ErrIncompleteAssessment)
	})

	t.Run("completion failure can be retried", func(t *testing.T) {
		completer := &fakeCompleter{failures: 1}
		c := newTestController(&fakeSink{}, completer)
		questions := []Question{{ID: "q1", Type: YesNoNA, Required: true, Order: 1}}
		require.NoError(t, c.Initialize(questions, nil))
		require.NoError(t, c.SetAnswerValue("Yes"))

		assert.ErrorIs(t, c.Advance(ctx), ErrCompletionFailed)
		assert.Equal(t, StatePendingCompletion, c.State())

		require.NoError(t, c.Complete(ctx))
		assert.Equal(t, StateCompleted, c.State())
		assert.Equal(t, 1, completer.calls)
	})

	t.Run("completed flow rejects further mutation", func(t *testing.T) {
		c := newTestController(&fakeSink{}, &fakeCompleter{})
		questions := []Question{{ID: "q1", Type: YesNoNA, Required: true, Order: 1}}
		require.NoError(t, c.Initialize(questions, nil))
		require.NoError(t, c.SetAnswerValue("Yes"))
		require.NoError(t, c.Advance(ctx))

		assert.ErrorIs(t, c.SetAnswerValue("No"), ErrFlowNotActive)
		assert.ErrorIs(t, c.Advance(ctx), ErrFlowNotActive)
		assert.ErrorIs(t, c.Complete(ctx), ErrFlowNotActive)
	})
}

// ===== CONCURRENCY GUARD =====

func TestControllerConcurrentAdvance(t *testing.T) {
	ctx := context.Background()

	sink := &fakeSink{release: make(chan struct{})}
	c := newTestController(sink, &fakeCompleter{})
	require.NoError(t, c.Initialize(twoQuestions(), nil))
	require.NoError(t, c.SetAnswerValue("Yes"))

	firstDone := make(chan error, 1)
	go func() {
		firstDone <- c.Advance(ctx)
	}()

	// Wait until the first Advance is blocked inside the sink; draft
	// mutation fails fast while the controller is busy.
	require.Eventually(t, func() bool {
		return errors.Is(c.SetComment("probe"), ErrOperationInProgress)
	}, time.Second, 5*time.Millisecond)
	assert.ErrorIs(t, c.Advance(ctx), ErrOperationInProgress)
	assert.ErrorIs(t, c.SetAnswerValue("No"), ErrOperationInProgress)

	close(sink.release)
	sink.mu.Lock()
	sink.release = nil
	sink.mu.Unlock()

	require.NoError(t, <-firstDone)
	assert.Equal(t, 1, c.Index())
	assert.Len(t, sink.persisted(), 1)
}

// ===== CANCEL =====

func TestControllerCancel(t *testing.T) {
	ctx := context.Background()

	t.Run("cancel discards the unsaved draft", func(t *testing.T) {
		sink := &fakeSink{}
		completer := &fakeCompleter{}
		c := newTestController(sink, completer)
		require.NoError(t, c.Initialize(twoQuestions(), nil))
		require.NoError(t, c.SetAnswerValue("Yes"))
		require.NoError(t, c.Advance(ctx))
		require.NoError(t, c.SetAnswerValue("half-typed note"))

		require.NoError(t, c.Cancel())
		assert.Equal(t, StateCancelled, c.State())
		assert.Equal(t, 0, completer.calls)
		// The persisted first answer is not rolled back.
		assert.Len(t, sink.persisted(), 1)
	})

	t.Run("cancel after completion fails", func(t *testing.T) {
		c := newTestController(&fakeSink{}, &fakeCompleter{})
		questions := []Question{{ID: "q1", Type: YesNoNA, Required: true, Order: 1}}
		require.NoError(t, c.Initialize(questions, nil))
		require.NoError(t, c.SetAnswerValue("Yes"))
		require.NoError(t, c.Advance(ctx))
		assert.ErrorIs(t, c.Cancel(), ErrFlowNotActive)
	})
}

// ===== SNAPSHOT ATTACHMENT =====

func TestControllerAttachesSecuritySnapshot(t *testing.T) {
	ctx := context.Background()
	sink := &fakeSink{}
	c := newTestController(sink, &fakeCompleter{})
	questions := []Question{{ID: "q1", Type: YesNoNA, Required: true, Order: 1}}
	require.NoError(t, c.Initialize(questions, nil))

	c.Monitor().RecordInteraction(InteractionTouch)
	c.Monitor().RecordInteraction(InteractionTouch)
	c.Monitor().RecordInteraction(InteractionKeystroke)

	require.NoError(t, c.SetAnswerValue("Yes"))
	require.NoError(t, c.Advance(ctx))

	calls := sink.persisted()
	require.Len(t, calls, 1)
	snap := calls[0].Answer.Security
	require.NotNil(t, snap)
	assert.Equal(t, "q1", snap.QuestionID)
	assert.Equal(t, 2, snap.Touches)
	assert.Equal(t, 1, snap.Keystrokes)
}
