// Package flow implements the mobile hazard-assessment completion flow: a
// question-by-question state machine with per-question validation, conditional
// evidence requirements, override escalation and anti-cheating telemetry.
//
// The package is deliberately free of HTTP and database concerns. Platform
// capabilities (camera, location) and persistence are injected behind narrow
// interfaces so the flow is deterministic under test.
package flow

import "strings"

type QuestionType string

const (
	YesNoNA    QuestionType = "YES_NO_NA"
	PassFailNA QuestionType = "PASS_FAIL_NA"
	Text       QuestionType = "TEXT"
	Numeric    QuestionType = "NUMERIC"
)

// Question is one item of the assessment definition. Questions are supplied
// externally at Initialize time and are immutable for the life of the flow.
type Question struct {
	ID       string
	Text     string
	Type     QuestionType
	HelpText string

	Required              bool
	PhotoRequiredOnFail   bool
	CommentRequiredOnFail bool
	CriticalFailure       bool

	Section string
	Order   int
}

// IsFailureValue reports whether an answer value represents a failure outcome
// ("No" or "Fail", case-insensitive).
func IsFailureValue(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "no", "fail":
		return true
	}
	return false
}
