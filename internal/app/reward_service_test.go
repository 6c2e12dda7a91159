package app_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"daily-quiz-service/internal/app"
	"daily-quiz-service/internal/domain"
	"daily-quiz-service/internal/infra/memory"
)

func TestCalculateReward(t *testing.T) {
	cases := []struct {
		total, correct, wrong int
		want                  int
	}{
		{5, 5, 0, 10}, // perfect score doubles
		{5, 4, 1, 4},
		{5, 3, 2, 3},
		{5, 0, 5, 0},
		{3, 3, 0, 6},
		{1, 1, 0, 2},
		{5, 4, 0, 0}, // inconsistent stats earn nothing
	}
	for _, c := range cases {
		got := app.CalculateReward(c.total, c.correct, c.wrong)
		if got != c.want {
			t.Fatalf("CalculateReward(%d, %d, %d) = %d, want %d", c.total, c.correct, c.wrong, got, c.want)
		}
	}
}

func TestStreakDays(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewRewardRepository()
	svc := newRewardService(repo, nil, 3)

	perfect := app.QuizStats{TotalQuestions: 3, CorrectAnswers: 3}
	imperfect := app.QuizStats{TotalQuestions: 3, CorrectAnswers: 2, WrongAnswers: 1}

	// Imperfect sessions always reset to zero.
	if got, _ := svc.StreakDays(ctx, 1, 20250301, imperfect); got != 0 {
		t.Fatalf("imperfect streak = %d, want 0", got)
	}

	// No reward yesterday: the streak starts at one.
	if got, _ := svc.StreakDays(ctx, 1, 20250301, perfect); got != 1 {
		t.Fatalf("fresh streak = %d, want 1", got)
	}

	// Yesterday's streak extends today.
	mustCreateReward(t, repo, 1, 20250301, 2)
	if got, _ := svc.StreakDays(ctx, 1, 20250301, perfect); got != 3 {
		t.Fatalf("extended streak = %d, want 3", got)
	}

	// Passing the goal wraps back to one.
	mustCreateReward(t, repo, 2, 20250301, 3)
	if got, _ := svc.StreakDays(ctx, 2, 20250301, perfect); got != 1 {
		t.Fatalf("wrapped streak = %d, want 1", got)
	}
}

func TestIssueCreatesRewardOnce(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewRewardRepository()
	svc := newRewardService(repo, nil, 7)
	user := domain.User{ID: 1, WalletAddress: "wallet"}
	stats := app.QuizStats{TotalQuestions: 3, CorrectAnswers: 2, WrongAnswers: 1}

	reward, err := svc.Issue(ctx, user, 20250302, 20250301, stats)
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	if reward == nil || reward.EarnedTokens != 2 || reward.StreakDays != 0 {
		t.Fatalf("unexpected reward %+v", reward)
	}

	// A second issue for the same quiz is the lost race: no error, no reward.
	reward, err = svc.Issue(ctx, user, 20250302, 20250301, stats)
	if err != nil {
		t.Fatalf("second issue failed: %v", err)
	}
	if reward != nil {
		t.Fatalf("expected nil reward on duplicate issue, got %+v", reward)
	}
}

func TestConcurrentIssueGrantsOneReward(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewRewardRepository()
	svc := newRewardService(repo, nil, 7)
	user := domain.User{ID: 1, WalletAddress: "wallet"}
	stats := app.QuizStats{TotalQuestions: 3, CorrectAnswers: 3}

	const workers = 8
	var wg sync.WaitGroup
	issued := make(chan *domain.Reward, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			reward, err := svc.Issue(ctx, user, 20250302, 20250301, stats)
			if err != nil {
				t.Errorf("issue failed: %v", err)
				return
			}
			if reward != nil {
				issued <- reward
			}
		}()
	}
	wg.Wait()
	close(issued)

	count := 0
	for range issued {
		count++
	}
	if count != 1 {
		t.Fatalf("expected exactly one issued reward, got %d", count)
	}
}

func TestIssuePublishesGrantedEvent(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewRewardRepository()
	publisher := &capturePublisher{events: make(chan domain.RewardGranted, 1)}
	svc := newRewardService(repo, publisher, 7)
	user := domain.User{ID: 9, WalletAddress: "wallet-9"}

	if _, err := svc.Issue(ctx, user, 20250302, 20250301, app.QuizStats{TotalQuestions: 3, CorrectAnswers: 3}); err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	select {
	case event := <-publisher.events:
		if event.UserID != 9 || event.UserWallet != "wallet-9" || event.QuizID != 20250302 {
			t.Fatalf("unexpected event %+v", event)
		}
		if event.EarnedTokens != 6 || event.StreakDays != 1 {
			t.Fatalf("unexpected figures in event %+v", event)
		}
		if event.Key() != "user_9" {
			t.Fatalf("unexpected event key %q", event.Key())
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no reward-granted event published")
	}
}

func TestIssueSkipsPublishWhenNothingEarned(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewRewardRepository()
	publisher := &capturePublisher{events: make(chan domain.RewardGranted, 1)}
	svc := newRewardService(repo, publisher, 7)
	user := domain.User{ID: 1, WalletAddress: "wallet"}

	if _, err := svc.Issue(ctx, user, 20250302, 20250301, app.QuizStats{TotalQuestions: 3, WrongAnswers: 3}); err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	select {
	case event := <-publisher.events:
		t.Fatalf("unexpected event for zero-token reward: %+v", event)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestMarkRewardSentIsIdempotent(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewRewardRepository()
	notifier := &captureNotifier{}
	svc := newRewardService(repo, nil, 7).WithNotifier(notifier)
	mustCreateReward(t, repo, 1, 20250302, 1)

	if err := svc.MarkRewardSent(ctx, 1, 20250302); err != nil {
		t.Fatalf("mark sent failed: %v", err)
	}
	reward, err := repo.Get(ctx, 1, 20250302)
	if err != nil || !reward.IsSent || reward.SentAt == nil {
		t.Fatalf("reward not marked sent: %+v err=%v", reward, err)
	}
	sentAt := *reward.SentAt

	// Duplicate confirmations are absorbed without touching the row.
	if err := svc.MarkRewardSent(ctx, 1, 20250302); err != nil {
		t.Fatalf("duplicate mark sent failed: %v", err)
	}
	reward, _ = repo.Get(ctx, 1, 20250302)
	if !reward.SentAt.Equal(sentAt) {
		t.Fatalf("sentAt changed on duplicate confirmation")
	}
	if notifier.count() != 1 {
		t.Fatalf("expected one notification, got %d", notifier.count())
	}

	if err := svc.MarkRewardSent(ctx, 1, 29990101); err != domain.ErrRewardNotFound {
		t.Fatalf("expected reward not found, got %v", err)
	}
}

func TestHistoryAggregatesRewards(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewRewardRepository()
	svc := newRewardService(repo, nil, 3)

	mustCreateRewardFull(t, repo, domain.Reward{
		UserID: 1, QuizID: 20250301,
		TotalQuestions: 3, CorrectAnswers: 3, EarnedTokens: 6, StreakDays: 3,
		CreatedAt: time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC),
	})
	mustCreateRewardFull(t, repo, domain.Reward{
		UserID: 1, QuizID: 20250302,
		TotalQuestions: 3, CorrectAnswers: 2, WrongAnswers: 1, EarnedTokens: 2,
		CreatedAt: time.Date(2025, 3, 2, 10, 0, 0, 0, time.UTC),
	})

	history, err := svc.History(ctx, 1)
	if err != nil {
		t.Fatalf("history failed: %v", err)
	}
	if history.TotalQuizzes != 2 || history.TotalQuestions != 6 {
		t.Fatalf("unexpected totals %+v", history)
	}
	if history.CorrectAnswers != 5 || history.WrongAnswers != 1 || history.EarnedTokens != 8 {
		t.Fatalf("unexpected totals %+v", history)
	}
	if history.Streaks != 1 {
		t.Fatalf("expected 1 completed streak, got %d", history.Streaks)
	}
	if len(history.Rewards) != 2 || history.Rewards[0].Date != "2025-03-02" {
		t.Fatalf("expected newest-first reward list, got %+v", history.Rewards)
	}
}

type capturePublisher struct {
	events chan domain.RewardGranted
}

func (p *capturePublisher) PublishRewardGranted(_ context.Context, event domain.RewardGranted) error {
	p.events <- event
	return nil
}

type captureNotifier struct {
	mu    sync.Mutex
	calls int
}

func (n *captureNotifier) NotifyRewardSent(int64, domain.Reward) {
	n.mu.Lock()
	n.calls++
	n.mu.Unlock()
}

func (n *captureNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.calls
}

func newRewardService(repo app.RewardRepository, publisher app.RewardPublisher, goal int) *app.RewardService {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return app.NewRewardService(repo, publisher, goal, logger)
}

func mustCreateReward(t *testing.T, repo app.RewardRepository, userID int64, quizID, streakDays int) {
	t.Helper()
	mustCreateRewardFull(t, repo, domain.Reward{
		UserID: userID, QuizID: quizID,
		TotalQuestions: 3, CorrectAnswers: 3, EarnedTokens: 6, StreakDays: streakDays,
		CreatedAt: time.Now(),
	})
}

func mustCreateRewardFull(t *testing.T, repo app.RewardRepository, reward domain.Reward) {
	t.Helper()
	if err := repo.Create(context.Background(), &reward); err != nil {
		t.Fatalf("create reward: %v", err)
	}
}
