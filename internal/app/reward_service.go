package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"daily-quiz-service/internal/domain"
)

// RewardRepository persists issued rewards. Create must enforce the
// (userID, quizID) uniqueness atomically and return domain.ErrRewardExists on
// conflict; MarkSent must flip isSent only when it is still false.
type RewardRepository interface {
	Create(ctx context.Context, reward *domain.Reward) error
	Get(ctx context.Context, userID int64, quizID int) (domain.Reward, error)
	ListByUser(ctx context.Context, userID int64) ([]domain.Reward, error)
	MarkSent(ctx context.Context, userID int64, quizID int, sentAt time.Time) (domain.Reward, error)
}

// RewardSummaryReader serves the aggregate totals for the rewards view. The
// Postgres implementation pushes the sums into SQL; the in-memory one iterates.
type RewardSummaryReader interface {
	Summary(ctx context.Context, userID int64, goalStreakDays int) (domain.RewardSummary, error)
}

// RewardPublisher delivers reward-granted events to the token-transfer worker.
// Delivery is at-least-once; consumers must dedupe on (user_id, quiz_id).
type RewardPublisher interface {
	PublishRewardGranted(ctx context.Context, event domain.RewardGranted) error
}

// RewardNotifier pushes reward status changes to connected clients. Optional.
type RewardNotifier interface {
	NotifyRewardSent(userID int64, reward domain.Reward)
}

// QuizStats are the session statistics a reward is computed from.
type QuizStats struct {
	TotalQuestions int
	CorrectAnswers int
	WrongAnswers   int
}

// CalculateReward computes earned tokens from session statistics: one token
// per correct answer, doubled on a perfect score. Inconsistent stats earn
// nothing.
func CalculateReward(totalQuestions, correctAnswers, wrongAnswers int) int {
	if totalQuestions != correctAnswers+wrongAnswers {
		return 0
	}

	reward := correctAnswers
	if totalQuestions == correctAnswers {
		reward *= 2
	}
	return reward
}

const defaultPublishAttempts = 5

// RewardService issues rewards for completed quizzes, publishes the granted
// event, and later confirms the reward when the transfer worker reports back.
type RewardService struct {
	rewards         RewardRepository
	summaries       RewardSummaryReader
	publisher       RewardPublisher
	notifier        RewardNotifier
	logger          *slog.Logger
	goalStreakDays  int
	publishAttempts int
	publishTimeout  time.Duration
	now             func() time.Time
}

func NewRewardService(rewards RewardRepository, publisher RewardPublisher, goalStreakDays int, logger *slog.Logger) *RewardService {
	if logger == nil {
		logger = slog.Default()
	}
	return &RewardService{
		rewards:         rewards,
		publisher:       publisher,
		logger:          logger,
		goalStreakDays:  goalStreakDays,
		publishAttempts: defaultPublishAttempts,
		publishTimeout:  10 * time.Second,
		now:             time.Now,
	}
}

// WithSummaryReader wires an aggregate read path for the rewards view.
func (s *RewardService) WithSummaryReader(reader RewardSummaryReader) *RewardService {
	s.summaries = reader
	return s
}

// WithNotifier wires a live reward-status notifier.
func (s *RewardService) WithNotifier(notifier RewardNotifier) *RewardService {
	s.notifier = notifier
	return s
}

// WithClock is test-only for deterministic timestamps.
func (s *RewardService) WithClock(now func() time.Time) *RewardService {
	s.now = now
	return s
}

// StreakDays computes the streak recorded with a new reward. Imperfect
// sessions reset to zero. A perfect session starts at one and extends
// yesterday's stored streak when yesterday's reward exists; a streak that
// would pass the goal wraps back to one.
func (s *RewardService) StreakDays(ctx context.Context, userID int64, prevQuizID int, stats QuizStats) (int, error) {
	if stats.TotalQuestions != stats.CorrectAnswers {
		return 0, nil
	}

	streakDays := 1

	prev, err := s.rewards.Get(ctx, userID, prevQuizID)
	switch {
	case errors.Is(err, domain.ErrRewardNotFound):
		return streakDays, nil
	case err != nil:
		return 0, fmt.Errorf("load previous reward: %w", err)
	}

	streakDays += prev.StreakDays
	if streakDays > s.goalStreakDays {
		streakDays = 1
	}
	return streakDays, nil
}

// Issue creates the reward for a completed quiz. At most one reward per
// (user, quiz) ever exists: a concurrent completion observer loses the insert
// race and gets (nil, nil), which callers treat as "already issued", not an
// error. When tokens were earned the granted event is published asynchronously;
// publish failure never unwinds the committed reward.
func (s *RewardService) Issue(ctx context.Context, user domain.User, quizID, prevQuizID int, stats QuizStats) (*domain.Reward, error) {
	if stats.TotalQuestions != stats.CorrectAnswers+stats.WrongAnswers {
		return nil, nil
	}

	streakDays, err := s.StreakDays(ctx, user.ID, prevQuizID, stats)
	if err != nil {
		return nil, err
	}

	reward := &domain.Reward{
		UserID:         user.ID,
		QuizID:         quizID,
		TotalQuestions: stats.TotalQuestions,
		CorrectAnswers: stats.CorrectAnswers,
		WrongAnswers:   stats.WrongAnswers,
		EarnedTokens:   CalculateReward(stats.TotalQuestions, stats.CorrectAnswers, stats.WrongAnswers),
		StreakDays:     streakDays,
		IsSent:         false,
		CreatedAt:      s.now(),
	}

	if err := s.rewards.Create(ctx, reward); err != nil {
		if errors.Is(err, domain.ErrRewardExists) {
			return nil, nil
		}
		return nil, fmt.Errorf("create reward: %w", err)
	}

	if reward.EarnedTokens > 0 && s.publisher != nil {
		s.publishGranted(user, *reward)
	}
	return reward, nil
}

func (s *RewardService) publishGranted(user domain.User, reward domain.Reward) {
	event := domain.RewardGranted{
		UserID:         user.ID,
		UserWallet:     user.WalletAddress,
		QuizID:         reward.QuizID,
		TotalQuestions: reward.TotalQuestions,
		CorrectAnswers: reward.CorrectAnswers,
		EarnedTokens:   reward.EarnedTokens,
		StreakDays:     reward.StreakDays,
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.publishTimeout)
		defer cancel()

		var err error
		for attempt := 1; attempt <= s.publishAttempts; attempt++ {
			if err = s.publisher.PublishRewardGranted(ctx, event); err == nil {
				return
			}
			select {
			case <-ctx.Done():
				attempt = s.publishAttempts
			case <-time.After(time.Duration(attempt) * 100 * time.Millisecond):
			}
		}
		// The reward row is already durable; a lost event is reconciled
		// out-of-band from the isSent=false backlog.
		s.logger.Error("reward-granted publish failed, event lost",
			"user_id", event.UserID, "quiz_id", event.QuizID, "err", err)
	}()
}

// MarkRewardSent confirms a reward after the transfer worker applied it.
// Safe to call any number of times: once isSent is true all later calls are
// no-ops, which absorbs the bus's at-least-once duplicates.
func (s *RewardService) MarkRewardSent(ctx context.Context, userID int64, quizID int) error {
	reward, err := s.rewards.MarkSent(ctx, userID, quizID, s.now())
	switch {
	case errors.Is(err, domain.ErrRewardAlreadySent):
		return nil
	case err != nil:
		return err
	}

	if s.notifier != nil {
		s.notifier.NotifyRewardSent(userID, reward)
	}
	return nil
}

// Reward returns the reward for one quiz, if issued.
func (s *RewardService) Reward(ctx context.Context, userID int64, quizID int) (domain.Reward, error) {
	return s.rewards.Get(ctx, userID, quizID)
}

// GoalStreakDays is the configured cyclic streak length.
func (s *RewardService) GoalStreakDays() int { return s.goalStreakDays }

// History returns the per-day reward list plus aggregate totals. Totals come
// from the summary reader when one is wired, otherwise from the list itself.
func (s *RewardService) History(ctx context.Context, userID int64) (domain.RewardHistory, error) {
	rewards, err := s.rewards.ListByUser(ctx, userID)
	if err != nil {
		return domain.RewardHistory{}, fmt.Errorf("list rewards: %w", err)
	}

	history := domain.RewardHistory{Rewards: make([]domain.RewardView, 0, len(rewards))}
	for _, reward := range rewards {
		history.Rewards = append(history.Rewards, domain.RewardView{
			Date:           reward.CreatedAt.UTC().Format("2006-01-02"),
			TotalQuestions: reward.TotalQuestions,
			CorrectAnswers: reward.CorrectAnswers,
			WrongAnswers:   reward.WrongAnswers,
			EarnedTokens:   reward.EarnedTokens,
			StreakDays:     reward.StreakDays,
			IsSent:         reward.IsSent,
		})
	}

	var summary domain.RewardSummary
	if s.summaries != nil {
		summary, err = s.summaries.Summary(ctx, userID, s.goalStreakDays)
		if err != nil {
			return domain.RewardHistory{}, fmt.Errorf("reward summary: %w", err)
		}
	} else {
		summary = summarize(rewards, s.goalStreakDays)
	}

	history.TotalQuizzes = summary.TotalQuizzes
	history.TotalQuestions = summary.TotalQuestions
	history.CorrectAnswers = summary.CorrectAnswers
	history.WrongAnswers = summary.WrongAnswers
	history.EarnedTokens = summary.EarnedTokens
	history.Streaks = summary.Streaks
	return history, nil
}

func summarize(rewards []domain.Reward, goalStreakDays int) domain.RewardSummary {
	var summary domain.RewardSummary
	for _, reward := range rewards {
		summary.TotalQuizzes++
		summary.TotalQuestions += reward.TotalQuestions
		summary.CorrectAnswers += reward.CorrectAnswers
		summary.WrongAnswers += reward.WrongAnswers
		summary.EarnedTokens += reward.EarnedTokens
		if reward.StreakDays == goalStreakDays {
			summary.Streaks++
		}
	}
	return summary
}
