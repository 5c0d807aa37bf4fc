package flow

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock steps time forward on demand.
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

func (c *fakeClock) Step(d time.Duration) {
	c.now = c.now.Add(d)
}

func newClockedMonitor(cfg MonitorConfig) (*Monitor, *fakeClock) {
	clock := &fakeClock{now: time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)}
	m := NewMonitor(cfg)
	m.now = clock.Now
	return m, clock
}

func TestMonitorTiming(t *testing.T) {
	t.Run("elapsed duration is measured per question", func(t *testing.T) {
		m, clock := newClockedMonitor(MonitorConfig{})
		m.StartTiming("q1")
		clock.Step(42 * time.Second)
		assert.Equal(t, 42*time.Second, m.EndTiming("q1"))
	})

	t.Run("too fast answers append a timing anomaly", func(t *testing.T) {
		m, clock := newClockedMonitor(MonitorConfig{MinQuestionTime: 2 * time.Second})
		m.StartTiming("q1")
		clock.Step(300 * time.Millisecond)
		m.EndTiming("q1")

		events := m.Events()
		require.Len(t, events, 1)
		assert.Equal(t, EventTimingAnomaly, events[0].Kind)
		assert.Equal(t, "q1", events[0].QuestionID)
		assert.Contains(t, events[0].Detail, "below minimum")
	})

	t.Run("too slow answers append a timing anomaly", func(t *testing.T) {
		m, clock := newClockedMonitor(MonitorConfig{MaxQuestionTime: 10 * time.Minute})
		m.StartTiming("q1")
		clock.Step(25 * time.Minute)
		m.EndTiming("q1")

		events := m.Events()
		require.Len(t, events, 1)
		assert.Contains(t, events[0].Detail, "above maximum")
	})

	t.Run("durations within thresholds record no anomaly", func(t *testing.T) {
		m, clock := newClockedMonitor(MonitorConfig{
			MinQuestionTime: 2 * time.Second,
			MaxQuestionTime: 10 * time.Minute,
		})
		m.StartTiming("q1")
		clock.Step(30 * time.Second)
		m.EndTiming("q1")
		assert.Empty(t, m.Events())
	})

	t.Run("restart overwrites an unstopped timer", func(t *testing.T) {
		m, clock := newClockedMonitor(MonitorConfig{})
		m.StartTiming("q1")
		clock.Step(time.Minute)
		m.StartTiming("q1")
		clock.Step(5 * time.Second)
		assert.Equal(t, 5*time.Second, m.EndTiming("q1"))
	})

	t.Run("recorded time accumulates across a timer restart", func(t *testing.T) {
		m, clock := newClockedMonitor(MonitorConfig{MinQuestionTime: 2 * time.Second})
		m.StartTiming("q1")
		clock.Step(60 * time.Second)
		m.EndTiming("q1")

		// A restart after a recorded segment keeps the earlier dwell time,
		// so a short follow-up segment is not mistaken for a fast answer.
		m.StartTiming("q1")
		clock.Step(time.Second)
		assert.Equal(t, 61*time.Second, m.EndTiming("q1"))
		assert.Empty(t, m.Events())
		assert.Equal(t, 61*time.Second, m.Snapshot().Elapsed)
	})

	t.Run("ending a stopped timer returns the recorded duration", func(t *testing.T) {
		m, clock := newClockedMonitor(MonitorConfig{})
		m.StartTiming("q1")
		clock.Step(7 * time.Second)
		m.EndTiming("q1")
		assert.Equal(t, 7*time.Second, m.EndTiming("q1"))
		assert.Empty(t, m.Events())
	})
}

func TestMonitorInteractions(t *testing.T) {
	m, clock := newClockedMonitor(MonitorConfig{})
	m.StartTiming("q1")
	m.RecordInteraction(InteractionTouch)
	m.RecordInteraction(InteractionTouch)
	m.RecordInteraction(InteractionKeystroke)
	clock.Step(10 * time.Second)

	snap := m.Snapshot()
	assert.Equal(t, "q1", snap.QuestionID)
	assert.Equal(t, 2, snap.Touches)
	assert.Equal(t, 1, snap.Keystrokes)
	assert.Equal(t, 10*time.Second, snap.Elapsed)

	// Snapshot does not mutate state.
	again := m.Snapshot()
	assert.Equal(t, snap.Touches, again.Touches)

	// Counters are kept per question.
	m.StartTiming("q2")
	snap2 := m.Snapshot()
	assert.Equal(t, 0, snap2.Touches)
	assert.Equal(t, 0, snap2.Keystrokes)
}

func TestMonitorEnvironmentObservers(t *testing.T) {
	m, _ := newClockedMonitor(MonitorConfig{})
	m.StartTiming("q1")
	m.ObserveAppSwitch("app backgrounded for 12s")
	m.ObserveScreenshot("screenshot detected")
	m.ObserveOther("developer options enabled")

	events := m.Events()
	require.Len(t, events, 3)
	assert.Equal(t, EventAppSwitch, events[0].Kind)
	assert.Equal(t, EventScreenshot, events[1].Kind)
	assert.Equal(t, EventOther, events[2].Kind)
	// Environment signals carry the question that was current at the time.
	assert.Equal(t, "q1", events[0].QuestionID)

	// The returned log is a copy.
	events[0].Detail = "mutated"
	assert.Equal(t, "app backgrounded for 12s", m.Events()[0].Detail)
}
