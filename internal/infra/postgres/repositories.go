package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"daily-quiz-service/internal/domain"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/driver/pgdriver"
)

// isUniqueViolation reports whether err is a Postgres unique-constraint
// violation (SQLSTATE 23505). The answer and reward repositories turn it into
// the matching domain conflict error.
func isUniqueViolation(err error) bool {
	var pgErr pgdriver.Error
	if errors.As(err, &pgErr) {
		return pgErr.Field('C') == "23505"
	}
	return false
}

// UserRepository persists users in Postgres.
type UserRepository struct {
	db    *bun.DB
	clock func() time.Time
}

func NewUserRepository(db *bun.DB) *UserRepository {
	return &UserRepository{db: db, clock: time.Now}
}

func (r *UserRepository) UpsertByWallet(ctx context.Context, walletAddress string) (domain.User, error) {
	now := r.clock()
	row := &userRow{
		WalletAddress: walletAddress,
		CreatedAt:     now,
		LastLoginAt:   now,
	}
	_, err := r.db.NewInsert().
		Model(row).
		On("CONFLICT (wallet_address) DO UPDATE").
		Set("last_login_at = EXCLUDED.last_login_at").
		Returning("*").
		Exec(ctx)
	if err != nil {
		return domain.User{}, fmt.Errorf("upsert user: %w", err)
	}
	return row.toDomain(), nil
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (domain.User, error) {
	row := new(userRow)
	err := r.db.NewSelect().Model(row).Where("u.id = ?", id).Scan(ctx)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return domain.User{}, domain.ErrUserNotFound
	case err != nil:
		return domain.User{}, fmt.Errorf("select user: %w", err)
	}
	return row.toDomain(), nil
}

// QuestionRepository persists the immutable daily question sets.
type QuestionRepository struct {
	db *bun.DB
}

func NewQuestionRepository(db *bun.DB) *QuestionRepository {
	return &QuestionRepository{db: db}
}

func (r *QuestionRepository) ListByQuiz(ctx context.Context, quizID int) ([]domain.Question, error) {
	var rows []*questionRow
	err := r.db.NewSelect().
		Model(&rows).
		Relation("Options", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Order("o.id ASC")
		}).
		Where("q.quiz_id = ?", quizID).
		Order("q.id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("select questions: %w", err)
	}

	questions := make([]domain.Question, 0, len(rows))
	for _, row := range rows {
		questions = append(questions, row.toDomain())
	}
	return questions, nil
}

func (r *QuestionRepository) GetByID(ctx context.Context, id int64) (domain.Question, error) {
	row := new(questionRow)
	err := r.db.NewSelect().
		Model(row).
		Relation("Options", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Order("o.id ASC")
		}).
		Where("q.id = ?", id).
		Scan(ctx)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return domain.Question{}, domain.ErrQuestionNotFound
	case err != nil:
		return domain.Question{}, fmt.Errorf("select question: %w", err)
	}
	return row.toDomain(), nil
}

func (r *QuestionRepository) CreateSet(ctx context.Context, quizID int, drafts []domain.QuestionDraft) ([]domain.Question, error) {
	created := make([]domain.Question, 0, len(drafts))

	err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		for _, draft := range drafts {
			question := &questionRow{
				QuizID:   quizID,
				Question: draft.Question,
				Answer:   draft.Answer,
			}
			if _, err := tx.NewInsert().Model(question).Returning("id").Exec(ctx); err != nil {
				return fmt.Errorf("insert question: %w", err)
			}

			for _, text := range draft.Options {
				option := &optionRow{QuestionID: question.ID, Option: text}
				if _, err := tx.NewInsert().Model(option).Returning("id").Exec(ctx); err != nil {
					return fmt.Errorf("insert option: %w", err)
				}
				question.Options = append(question.Options, option)
			}
			created = append(created, question.toDomain())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (r *QuestionRepository) CountByQuiz(ctx context.Context, quizID int) (int, error) {
	count, err := r.db.NewSelect().
		Model((*questionRow)(nil)).
		Where("q.quiz_id = ?", quizID).
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count questions: %w", err)
	}
	return count, nil
}

// AnswerRepository persists answers. The unique index on
// (user_id, quiz_id, question_id) is what makes Create race-safe.
type AnswerRepository struct {
	db *bun.DB
}

func NewAnswerRepository(db *bun.DB) *AnswerRepository {
	return &AnswerRepository{db: db}
}

func (r *AnswerRepository) Create(ctx context.Context, answer *domain.Answer) error {
	row := &answerRow{
		UserID:     answer.UserID,
		QuizID:     answer.QuizID,
		QuestionID: answer.QuestionID,
		OptionID:   answer.OptionID,
		IsCorrect:  answer.IsCorrect,
		CreatedAt:  answer.CreatedAt,
	}
	_, err := r.db.NewInsert().Model(row).Returning("id").Exec(ctx)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAnswerExists
		}
		return fmt.Errorf("insert answer: %w", err)
	}
	answer.ID = row.ID
	return nil
}

func (r *AnswerRepository) ListByUserQuiz(ctx context.Context, userID int64, quizID int) ([]domain.Answer, error) {
	var rows []*answerRow
	err := r.db.NewSelect().
		Model(&rows).
		Where("a.user_id = ? AND a.quiz_id = ?", userID, quizID).
		Order("a.id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("select answers: %w", err)
	}

	answers := make([]domain.Answer, 0, len(rows))
	for _, row := range rows {
		answers = append(answers, row.toDomain())
	}
	return answers, nil
}

func (r *AnswerRepository) CountByUserQuiz(ctx context.Context, userID int64, quizID int) (int, error) {
	count, err := r.db.NewSelect().
		Model((*answerRow)(nil)).
		Where("a.user_id = ? AND a.quiz_id = ?", userID, quizID).
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count answers: %w", err)
	}
	return count, nil
}

// RewardRepository persists rewards. The unique index on (user_id, quiz_id)
// guarantees at most one reward per user per day; MarkSent's is_sent=false
// predicate makes confirmation idempotent.
type RewardRepository struct {
	db *bun.DB
}

func NewRewardRepository(db *bun.DB) *RewardRepository {
	return &RewardRepository{db: db}
}

func (r *RewardRepository) Create(ctx context.Context, reward *domain.Reward) error {
	row := &rewardRow{
		UserID:         reward.UserID,
		QuizID:         reward.QuizID,
		TotalQuestions: reward.TotalQuestions,
		CorrectAnswers: reward.CorrectAnswers,
		WrongAnswers:   reward.WrongAnswers,
		EarnedTokens:   reward.EarnedTokens,
		StreakDays:     reward.StreakDays,
		IsSent:         reward.IsSent,
		SentAt:         reward.SentAt,
		CreatedAt:      reward.CreatedAt,
	}
	_, err := r.db.NewInsert().Model(row).Returning("id").Exec(ctx)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrRewardExists
		}
		return fmt.Errorf("insert reward: %w", err)
	}
	reward.ID = row.ID
	return nil
}

func (r *RewardRepository) Get(ctx context.Context, userID int64, quizID int) (domain.Reward, error) {
	row := new(rewardRow)
	err := r.db.NewSelect().
		Model(row).
		Where("r.user_id = ? AND r.quiz_id = ?", userID, quizID).
		Scan(ctx)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return domain.Reward{}, domain.ErrRewardNotFound
	case err != nil:
		return domain.Reward{}, fmt.Errorf("select reward: %w", err)
	}
	return row.toDomain(), nil
}

func (r *RewardRepository) ListByUser(ctx context.Context, userID int64) ([]domain.Reward, error) {
	var rows []*rewardRow
	err := r.db.NewSelect().
		Model(&rows).
		Where("r.user_id = ?", userID).
		Order("r.id DESC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("select rewards: %w", err)
	}

	rewards := make([]domain.Reward, 0, len(rows))
	for _, row := range rows {
		rewards = append(rewards, row.toDomain())
	}
	return rewards, nil
}

func (r *RewardRepository) MarkSent(ctx context.Context, userID int64, quizID int, sentAt time.Time) (domain.Reward, error) {
	row := new(rewardRow)
	res, err := r.db.NewUpdate().
		Model(row).
		Set("is_sent = TRUE").
		Set("sent_at = ?", sentAt).
		Where("user_id = ? AND quiz_id = ? AND is_sent = FALSE", userID, quizID).
		Returning("*").
		Exec(ctx)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return domain.Reward{}, fmt.Errorf("mark reward sent: %w", err)
	}
	if err == nil {
		if affected, raErr := res.RowsAffected(); raErr == nil && affected > 0 {
			return row.toDomain(), nil
		}
	}

	// Nothing updated: either no such reward or it was already confirmed.
	if _, getErr := r.Get(ctx, userID, quizID); getErr != nil {
		return domain.Reward{}, getErr
	}
	return domain.Reward{}, domain.ErrRewardAlreadySent
}
