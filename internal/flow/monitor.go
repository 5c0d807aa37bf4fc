package flow

import (
	"fmt"
	"sync"
	"time"
)

type SecurityEventKind string

const (
	EventTimingAnomaly SecurityEventKind = "timing_anomaly"
	EventAppSwitch     SecurityEventKind = "app_switch"
	EventScreenshot    SecurityEventKind = "screenshot"
	EventOther         SecurityEventKind = "other"
)

// SecurityEvent is one entry of the per-assessment violation log. Events are
// append-only audit signals; they never gate the flow.
type SecurityEvent struct {
	Kind       SecurityEventKind `json:"kind"`
	Timestamp  time.Time         `json:"timestamp"`
	Detail     string            `json:"detail"`
	QuestionID string            `json:"question_id,omitempty"`
}

type InteractionKind string

const (
	InteractionTouch     InteractionKind = "touch"
	InteractionKeystroke InteractionKind = "keystroke"
)

// Snapshot is a point-in-time aggregate of timing and interaction signals for
// the current question, attached to the answer being persisted. Snapshots are
// independent; historical ones are never retroactively updated.
type Snapshot struct {
	QuestionID string        `json:"question_id"`
	Elapsed    time.Duration `json:"elapsed"`
	Touches    int           `json:"touches"`
	Keystrokes int           `json:"keystrokes"`
	TakenAt    time.Time     `json:"taken_at"`
}

// MonitorConfig holds the timing thresholds. Both are configuration inputs;
// a zero value disables the corresponding check.
type MonitorConfig struct {
	// MinQuestionTime flags answers given implausibly fast.
	MinQuestionTime time.Duration
	// MaxQuestionTime flags questions left open implausibly long.
	MaxQuestionTime time.Duration
}

// Monitor accumulates anti-cheating telemetry for one assessment instance:
// per-question duration, interaction tallies and environment signals. It
// never blocks the flow; it only collects evidence for later review.
type Monitor struct {
	mu  sync.Mutex
	cfg MonitorConfig
	now func() time.Time

	current    string
	startedAt  time.Time
	running    bool
	durations  map[string]time.Duration
	touches    map[string]int
	keystrokes map[string]int
	events     []SecurityEvent
}

func NewMonitor(cfg MonitorConfig) *Monitor {
	return &Monitor{
		cfg:        cfg,
		now:        time.Now,
		durations:  make(map[string]time.Duration),
		touches:    make(map[string]int),
		keystrokes: make(map[string]int),
	}
}

// StartTiming records a start timestamp for the question, overwriting any
// prior unstopped timer for the same id (idempotent restart). Duration
// already recorded for the question is retained and accumulated by EndTiming.
func (m *Monitor) StartTiming(questionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = questionID
	m.startedAt = m.now()
	m.running = true
}

// EndTiming stops the timer for the question and returns its total recorded
// duration: the segment since the last StartTiming plus any time recorded for
// the question earlier, so a timer restart (persist retry, revisit) keeps the
// full dwell time. Totals outside the configured thresholds append a
// timing-anomaly event to the violation log.
func (m *Monitor) EndTiming(questionID string) time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running || m.current != questionID {
		return m.durations[questionID]
	}

	elapsed := m.durations[questionID] + m.now().Sub(m.startedAt)
	m.running = false
	m.durations[questionID] = elapsed

	if m.cfg.MinQuestionTime > 0 && elapsed < m.cfg.MinQuestionTime {
		m.appendLocked(SecurityEvent{
			Kind:       EventTimingAnomaly,
			Timestamp:  m.now(),
			Detail:     fmt.Sprintf("answered in %s, below minimum %s", elapsed, m.cfg.MinQuestionTime),
			QuestionID: questionID,
		})
	}
	if m.cfg.MaxQuestionTime > 0 && elapsed > m.cfg.MaxQuestionTime {
		m.appendLocked(SecurityEvent{
			Kind:       EventTimingAnomaly,
			Timestamp:  m.now(),
			Detail:     fmt.Sprintf("question open for %s, above maximum %s", elapsed, m.cfg.MaxQuestionTime),
			QuestionID: questionID,
		})
	}
	return elapsed
}

// RecordInteraction increments the interaction counter for the current
// question. Zero-interaction answers are implausible and show up as empty
// tallies in the persisted snapshot.
func (m *Monitor) RecordInteraction(kind InteractionKind) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == "" {
		return
	}
	switch kind {
	case InteractionKeystroke:
		m.keystrokes[m.current]++
	default:
		m.touches[m.current]++
	}
}

// Snapshot returns the aggregated signal state for the current question
// without mutating monitor state.
func (m *Monitor) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	elapsed := m.durations[m.current]
	if m.running {
		elapsed += m.now().Sub(m.startedAt)
	}
	return Snapshot{
		QuestionID: m.current,
		Elapsed:    elapsed,
		Touches:    m.touches[m.current],
		Keystrokes: m.keystrokes[m.current],
		TakenAt:    m.now(),
	}
}

// ObserveAppSwitch records a host-environment signal that the app was
// backgrounded. Not tied to the current question's validation.
func (m *Monitor) ObserveAppSwitch(detail string) {
	m.observe(EventAppSwitch, detail)
}

// ObserveScreenshot records a host-environment screenshot signal.
func (m *Monitor) ObserveScreenshot(detail string) {
	m.observe(EventScreenshot, detail)
}

// ObserveOther records any other environment signal worth auditing.
func (m *Monitor) ObserveOther(detail string) {
	m.observe(EventOther, detail)
}

func (m *Monitor) observe(kind SecurityEventKind, detail string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.appendLocked(SecurityEvent{
		Kind:       kind,
		Timestamp:  m.now(),
		Detail:     detail,
		QuestionID: m.current,
	})
}

func (m *Monitor) appendLocked(ev SecurityEvent) {
	m.events = append(m.events, ev)
}

// Events returns a copy of the violation log.
func (m *Monitor) Events() []SecurityEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]SecurityEvent, len(m.events))
	copy(out, m.events)
	return out
}
