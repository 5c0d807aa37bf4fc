package flow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnswerStore(t *testing.T) {
	t.Run("missing entry loads as empty draft", func(t *testing.T) {
		s := NewAnswerStore()
		d := s.Load("q1")
		require.NotNil(t, d)
		assert.Equal(t, "q1", d.QuestionID)
		assert.False(t, d.HasAnswer())
	})

	t.Run("save and load round trip is a copy", func(t *testing.T) {
		s := NewAnswerStore()
		s.Save(&DraftAnswer{QuestionID: "q1", Value: "No", Comment: "strap frayed"})

		d := s.Load("q1")
		assert.Equal(t, "No", d.Value)

		// Mutating the loaded copy does not affect the stored draft.
		d.Value = "Yes"
		assert.Equal(t, "No", s.Load("q1").Value)
	})

	t.Run("ordered follows question order and skips gaps", func(t *testing.T) {
		s := NewAnswerStore()
		s.Save(&DraftAnswer{QuestionID: "q3", Value: "Yes"})
		s.Save(&DraftAnswer{QuestionID: "q1", Value: "No"})

		questions := []Question{{ID: "q1"}, {ID: "q2"}, {ID: "q3"}}
		drafts := s.Ordered(questions)
		require.Len(t, drafts, 2)
		assert.Equal(t, "q1", drafts[0].QuestionID)
		assert.Equal(t, "q3", drafts[1].QuestionID)
	})

	t.Run("seed keeps copies of resumed drafts", func(t *testing.T) {
		s := NewAnswerStore()
		original := &DraftAnswer{QuestionID: "q1", Value: "Yes"}
		s.Seed(map[string]*DraftAnswer{"q1": original, "q2": nil})

		original.Value = "No"
		assert.Equal(t, "Yes", s.Load("q1").Value)
		assert.Equal(t, 1, s.Len())
	})

	t.Run("delete removes the draft", func(t *testing.T) {
		s := NewAnswerStore()
		s.Save(&DraftAnswer{QuestionID: "q1", Value: "Yes"})
		s.Delete("q1")
		assert.False(t, s.Load("q1").HasAnswer())
		assert.Equal(t, 0, s.Len())
	})
}
