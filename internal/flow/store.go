package flow

import (
	"context"
	"sync"
)

// AnswerSink is the external persistence boundary. The controller calls it
// exactly once per successful Advance, in question order.
type AnswerSink interface {
	PersistAnswer(ctx context.Context, questionID string, answer *DraftAnswer) error
}

// Completer is the terminal completion boundary, invoked once with the full
// set of persisted answers and the accumulated violation log.
type Completer interface {
	CompleteAssessment(ctx context.Context, answers []*DraftAnswer, events []SecurityEvent) error
}

// AnswerStore holds in-progress drafts keyed by question id. Drafts survive
// persistence so backward navigation re-loads the saved content; "no entry"
// and "empty draft" are treated as equivalent.
type AnswerStore struct {
	mu     sync.RWMutex
	drafts map[string]*DraftAnswer
}

func NewAnswerStore() *AnswerStore {
	return &AnswerStore{drafts: make(map[string]*DraftAnswer)}
}

// Seed pre-loads previously persisted drafts, used when resuming.
func (s *AnswerStore) Seed(drafts map[string]*DraftAnswer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, d := range drafts {
		if d == nil {
			continue
		}
		s.drafts[id] = d.Clone()
	}
}

// Load returns the draft for questionID, or a fresh empty draft if none is
// stored.
func (s *AnswerStore) Load(questionID string) *DraftAnswer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if d, ok := s.drafts[questionID]; ok {
		return d.Clone()
	}
	return &DraftAnswer{QuestionID: questionID}
}

// Save stores the draft, replacing any prior entry for its question.
func (s *AnswerStore) Save(d *DraftAnswer) {
	if d == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drafts[d.QuestionID] = d.Clone()
}

// Delete removes the draft for questionID.
func (s *AnswerStore) Delete(questionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.drafts, questionID)
}

// Ordered returns stored drafts in the order of the given questions,
// skipping questions without an entry.
func (s *AnswerStore) Ordered(questions []Question) []*DraftAnswer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*DraftAnswer, 0, len(questions))
	for _, q := range questions {
		if d, ok := s.drafts[q.ID]; ok {
			out = append(out, d.Clone())
		}
	}
	return out
}

// Len reports the number of stored drafts.
func (s *AnswerStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.drafts)
}
