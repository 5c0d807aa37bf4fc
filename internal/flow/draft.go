package flow

import (
	"strings"
	"time"
)

// Position is a best-effort location sample.
type Position struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Accuracy  float64 `json:"accuracy"` // meters
}

// EvidenceMetadata describes the circumstances of a photo capture. It is
// never mutated after capture; a retake produces a new metadata/photo pair.
type EvidenceMetadata struct {
	CapturedAt time.Time `json:"captured_at"`
	Position   *Position `json:"position,omitempty"`
	Device     string    `json:"device"`
}

// Evidence pairs a photo reference with its capture metadata.
type Evidence struct {
	PhotoRef string           `json:"photo_ref"`
	Metadata EvidenceMetadata `json:"metadata"`
}

// DraftAnswer is the in-memory, possibly-unpersisted response to a question.
// It is mutated by user input and evidence capture while its question is
// current, and re-loaded for mutation when the user navigates backward.
type DraftAnswer struct {
	QuestionID string    `json:"question_id"`
	Value      string    `json:"value"`
	Comment    string    `json:"comment,omitempty"`
	Evidence   *Evidence `json:"evidence,omitempty"`

	Override       bool   `json:"override"`
	OverrideReason string `json:"override_reason,omitempty"`

	// Security is the monitor snapshot taken just before persistence.
	Security *Snapshot `json:"security,omitempty"`
}

// IsFailure reports whether the draft's value represents a failure outcome.
func (d *DraftAnswer) IsFailure() bool {
	return IsFailureValue(d.Value)
}

// HasAnswer reports whether the draft carries a non-empty answer value.
func (d *DraftAnswer) HasAnswer() bool {
	return strings.TrimSpace(d.Value) != ""
}

// Clone returns a deep copy of the draft.
func (d *DraftAnswer) Clone() *DraftAnswer {
	if d == nil {
		return nil
	}
	out := *d
	if d.Evidence != nil {
		ev := *d.Evidence
		if d.Evidence.Metadata.Position != nil {
			pos := *d.Evidence.Metadata.Position
			ev.Metadata.Position = &pos
		}
		out.Evidence = &ev
	}
	if d.Security != nil {
		snap := *d.Security
		out.Security = &snap
	}
	return &out
}
