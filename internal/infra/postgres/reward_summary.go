package postgres

import (
	"context"
	"fmt"

	"daily-quiz-service/internal/domain"
	"github.com/jackc/pgx/v4/pgxpool"
)

// RewardSummaryReader serves the aggregate reward totals straight from SQL,
// keeping the hot rewards view to a single round trip.
type RewardSummaryReader struct {
	pool *pgxpool.Pool
}

func NewRewardSummaryReader(pool *pgxpool.Pool) *RewardSummaryReader {
	return &RewardSummaryReader{pool: pool}
}

func (r *RewardSummaryReader) Summary(ctx context.Context, userID int64, goalStreakDays int) (domain.RewardSummary, error) {
	var summary domain.RewardSummary
	err := r.pool.QueryRow(ctx, `
		SELECT
			COUNT(*),
			COALESCE(SUM(total_questions), 0),
			COALESCE(SUM(correct_answers), 0),
			COALESCE(SUM(wrong_answers), 0),
			COALESCE(SUM(earned_tokens), 0),
			COALESCE(SUM(CASE WHEN streak_days = $2 THEN 1 ELSE 0 END), 0)
		FROM quiz_rewards
		WHERE user_id = $1`,
		userID, goalStreakDays,
	).Scan(
		&summary.TotalQuizzes,
		&summary.TotalQuestions,
		&summary.CorrectAnswers,
		&summary.WrongAnswers,
		&summary.EarnedTokens,
		&summary.Streaks,
	)
	if err != nil {
		return domain.RewardSummary{}, fmt.Errorf("reward summary: %w", err)
	}
	return summary, nil
}
