package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"daily-quiz-service/internal/domain"
	"golang.org/x/sync/singleflight"
)

// QuestionRepository stores the immutable daily question sets.
type QuestionRepository interface {
	// ListByQuiz returns the quiz's questions with options, in id order.
	ListByQuiz(ctx context.Context, quizID int) ([]domain.Question, error)
	// GetByID returns one question with options, or domain.ErrQuestionNotFound.
	GetByID(ctx context.Context, id int64) (domain.Question, error)
	// CreateSet persists a freshly generated question set for the quiz.
	CreateSet(ctx context.Context, quizID int, drafts []domain.QuestionDraft) ([]domain.Question, error)
	CountByQuiz(ctx context.Context, quizID int) (int, error)
}

// AnswerRepository stores user answers. Create must enforce the
// (userID, quizID, questionID) uniqueness atomically and return
// domain.ErrAnswerExists on conflict.
type AnswerRepository interface {
	Create(ctx context.Context, answer *domain.Answer) error
	ListByUserQuiz(ctx context.Context, userID int64, quizID int) ([]domain.Answer, error)
	CountByUserQuiz(ctx context.Context, userID int64, quizID int) (int, error)
}

// QuestionSource produces a day's question drafts when storage has none.
// The real generator is an external system; tests and dev use a static one.
type QuestionSource interface {
	Questions(ctx context.Context, date time.Time) ([]domain.QuestionDraft, error)
}

// QuizService covers the daily quiz use cases: question provisioning, answer
// processing, completion detection, and reward triggering.
type QuizService struct {
	questions QuestionRepository
	answers   AnswerRepository
	rewards   *RewardService
	source    QuestionSource
	now       func() time.Time
	sf        singleflight.Group
}

func NewQuizService(questions QuestionRepository, answers AnswerRepository, rewards *RewardService, source QuestionSource) *QuizService {
	return &QuizService{
		questions: questions,
		answers:   answers,
		rewards:   rewards,
		source:    source,
		now:       time.Now,
	}
}

// NewQuizServiceWithClock is test-only for deterministic quiz ids.
func NewQuizServiceWithClock(questions QuestionRepository, answers AnswerRepository, rewards *RewardService, source QuestionSource, now func() time.Time) *QuizService {
	s := NewQuizService(questions, answers, rewards, source)
	s.now = now
	return s
}

// QuizID is the active daily quiz id.
func (s *QuizService) QuizID() int { return domain.QuizID(s.now()) }

// PrevQuizID is yesterday's quiz id.
func (s *QuizService) PrevQuizID() int { return domain.PrevQuizID(s.now()) }

// Questions returns the quiz's question set, generating and persisting it
// once when none exists yet. Concurrent first requests collapse onto a single
// generation.
func (s *QuizService) Questions(ctx context.Context, quizID int) ([]domain.Question, error) {
	questions, err := s.questions.ListByQuiz(ctx, quizID)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	if len(questions) > 0 {
		return questions, nil
	}

	result, err, _ := s.sf.Do(fmt.Sprintf("quiz-%d", quizID), func() (interface{}, error) {
		// Re-check in case another goroutine already created the set.
		questions, err := s.questions.ListByQuiz(ctx, quizID)
		if err != nil {
			return nil, err
		}
		if len(questions) > 0 {
			return questions, nil
		}

		drafts, err := s.source.Questions(ctx, s.now())
		if err != nil {
			return nil, fmt.Errorf("generate questions: %w", err)
		}
		return s.questions.CreateSet(ctx, quizID, drafts)
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Question), nil
}

// IsCompleted reports whether the user has answered every question of the
// quiz. Counts are read fresh; call this only after the answer write
// committed, or a completion can be missed.
func (s *QuizService) IsCompleted(ctx context.Context, userID int64, quizID int) (bool, error) {
	countQuestions, err := s.questions.CountByQuiz(ctx, quizID)
	if err != nil {
		return false, fmt.Errorf("count questions: %w", err)
	}
	countAnswers, err := s.answers.CountByUserQuiz(ctx, userID, quizID)
	if err != nil {
		return false, fmt.Errorf("count answers: %w", err)
	}
	return countQuestions > 0 && countQuestions == countAnswers, nil
}

// SubmitAnswer records one answer exactly once and, when it completes the
// quiz, issues the reward. A duplicate submission fails with ErrAnswerExists
// without mutating anything; the uniqueness is enforced by the storage layer,
// not a pre-check, so two concurrent submissions cannot both win.
func (s *QuizService) SubmitAnswer(ctx context.Context, user domain.User, questionID, optionID int64) (domain.AnswerOutcome, error) {
	if questionID <= 0 || optionID <= 0 {
		return domain.AnswerOutcome{}, domain.ErrInvalidAnswerPayload
	}

	quizID := s.QuizID()

	question, err := s.questions.GetByID(ctx, questionID)
	if err != nil {
		return domain.AnswerOutcome{}, err
	}
	if question.QuizID != quizID {
		return domain.AnswerOutcome{}, domain.ErrQuestionNotFound
	}

	var selected *domain.QuestionOption
	for i := range question.Options {
		if question.Options[i].ID == optionID {
			selected = &question.Options[i]
			break
		}
	}
	if selected == nil {
		return domain.AnswerOutcome{}, domain.ErrOptionNotFound
	}

	answer := &domain.Answer{
		UserID:     user.ID,
		QuizID:     quizID,
		QuestionID: questionID,
		OptionID:   optionID,
		IsCorrect:  selected.Option == question.Answer,
		CreatedAt:  s.now(),
	}
	if err := s.answers.Create(ctx, answer); err != nil {
		return domain.AnswerOutcome{}, err
	}

	outcome := domain.AnswerOutcome{
		IsCorrectAnswer:  answer.IsCorrect,
		CorrectOptionID:  optionID,
		SelectedOptionID: optionID,
	}
	if !answer.IsCorrect {
		outcome.CorrectOptionID = correctOptionID(question)
	}

	completed, err := s.IsCompleted(ctx, user.ID, quizID)
	if err != nil {
		return domain.AnswerOutcome{}, err
	}
	outcome.IsQuizCompleted = completed

	if completed {
		stats, err := s.stats(ctx, user.ID, quizID)
		if err != nil {
			return domain.AnswerOutcome{}, err
		}

		reward, err := s.rewards.Issue(ctx, user, quizID, s.PrevQuizID(), stats)
		if err != nil {
			return domain.AnswerOutcome{}, err
		}
		if reward != nil && reward.EarnedTokens > 0 {
			outcome.EarnedTokens = reward.EarnedTokens
			outcome.StreakDays = reward.StreakDays
		}
	}
	return outcome, nil
}

// QuizData assembles the user's view of a quiz: questions (provisioned on
// demand), their answers so far, and reward figures once complete.
func (s *QuizService) QuizData(ctx context.Context, userID int64, quizID int) (domain.QuizData, error) {
	questions, err := s.Questions(ctx, quizID)
	if err != nil {
		return domain.QuizData{}, err
	}
	answers, err := s.answers.ListByUserQuiz(ctx, userID, quizID)
	if err != nil {
		return domain.QuizData{}, fmt.Errorf("list answers: %w", err)
	}

	data := domain.QuizData{
		TotalQuestions: len(questions),
		IsCompleted:    len(questions) > 0 && len(questions) == len(answers),
		Questions:      make([]domain.UserQuestion, 0, len(questions)),
	}

	byQuestion := make(map[int64]domain.Answer, len(answers))
	for _, answer := range answers {
		byQuestion[answer.QuestionID] = answer
		if answer.IsCorrect {
			data.CorrectAnswers++
		} else {
			data.WrongAnswers++
		}
	}

	for _, question := range questions {
		answer, answered := byQuestion[question.ID]
		data.Questions = append(data.Questions, domain.UserQuestion{
			ID:         question.ID,
			Question:   question.Question,
			IsAnswered: answered,
			IsCorrect:  answered && answer.IsCorrect,
			Options:    question.Options,
		})
	}

	if data.IsCompleted {
		reward, err := s.rewards.Reward(ctx, userID, quizID)
		switch {
		case errors.Is(err, domain.ErrRewardNotFound):
			// Completed but not yet issued; figures stay zero.
		case err != nil:
			return domain.QuizData{}, err
		default:
			data.EarnedTokens = reward.EarnedTokens
			data.StreakDays = reward.StreakDays
		}
	}
	return data, nil
}

func (s *QuizService) stats(ctx context.Context, userID int64, quizID int) (QuizStats, error) {
	answers, err := s.answers.ListByUserQuiz(ctx, userID, quizID)
	if err != nil {
		return QuizStats{}, fmt.Errorf("list answers: %w", err)
	}

	stats := QuizStats{TotalQuestions: len(answers)}
	for _, answer := range answers {
		if answer.IsCorrect {
			stats.CorrectAnswers++
		} else {
			stats.WrongAnswers++
		}
	}
	return stats, nil
}

func correctOptionID(question domain.Question) int64 {
	for _, option := range question.Options {
		if option.Option == question.Answer {
			return option.ID
		}
	}
	return 0
}
