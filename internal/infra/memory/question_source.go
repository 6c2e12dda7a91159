package memory

import (
	"context"
	"time"

	"daily-quiz-service/internal/domain"
)

// StaticQuestionSource serves a fixed question set regardless of date
// (useful for tests/demos). Production wires an external generator instead.
type StaticQuestionSource struct {
	drafts []domain.QuestionDraft
}

func NewStaticQuestionSource(drafts []domain.QuestionDraft) *StaticQuestionSource {
	return &StaticQuestionSource{drafts: drafts}
}

func (s *StaticQuestionSource) Questions(_ context.Context, _ time.Time) ([]domain.QuestionDraft, error) {
	drafts := make([]domain.QuestionDraft, len(s.drafts))
	copy(drafts, s.drafts)
	return drafts, nil
}

// SampleQuestions is a minimal daily set for local runs.
func SampleQuestions() []domain.QuestionDraft {
	return []domain.QuestionDraft{
		{
			Question: "What is 2 + 2?",
			Answer:   "4",
			Options:  []string{"3", "4", "5", "22"},
		},
		{
			Question: "Which planet is known as the Red Planet?",
			Answer:   "Mars",
			Options:  []string{"Venus", "Jupiter", "Mars", "Saturn"},
		},
		{
			Question: "How many bits are in a byte?",
			Answer:   "8",
			Options:  []string{"4", "8", "16", "32"},
		},
	}
}
