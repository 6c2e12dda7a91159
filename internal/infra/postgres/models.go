package postgres

import (
	"time"

	"daily-quiz-service/internal/domain"
	"github.com/uptrace/bun"
)

type userRow struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID            int64     `bun:"id,pk,autoincrement"`
	WalletAddress string    `bun:"wallet_address,notnull"`
	CreatedAt     time.Time `bun:"created_at,notnull"`
	LastLoginAt   time.Time `bun:"last_login_at,notnull"`
}

func (r *userRow) toDomain() domain.User {
	return domain.User{
		ID:            r.ID,
		WalletAddress: r.WalletAddress,
		CreatedAt:     r.CreatedAt,
		LastLoginAt:   r.LastLoginAt,
	}
}

type questionRow struct {
	bun.BaseModel `bun:"table:quiz_questions,alias:q"`

	ID       int64        `bun:"id,pk,autoincrement"`
	QuizID   int          `bun:"quiz_id,notnull"`
	Question string       `bun:"question,notnull"`
	Answer   string       `bun:"answer,notnull"`
	Options  []*optionRow `bun:"rel:has-many,join:id=question_id"`
}

func (r *questionRow) toDomain() domain.Question {
	question := domain.Question{
		ID:       r.ID,
		QuizID:   r.QuizID,
		Question: r.Question,
		Answer:   r.Answer,
	}
	for _, option := range r.Options {
		question.Options = append(question.Options, domain.QuestionOption{
			ID:         option.ID,
			QuestionID: option.QuestionID,
			Option:     option.Option,
		})
	}
	return question
}

type optionRow struct {
	bun.BaseModel `bun:"table:quiz_question_options,alias:o"`

	ID         int64  `bun:"id,pk,autoincrement"`
	QuestionID int64  `bun:"question_id,notnull"`
	Option     string `bun:"option,notnull"`
}

type answerRow struct {
	bun.BaseModel `bun:"table:quiz_answers,alias:a"`

	ID         int64     `bun:"id,pk,autoincrement"`
	UserID     int64     `bun:"user_id,notnull"`
	QuizID     int       `bun:"quiz_id,notnull"`
	QuestionID int64     `bun:"question_id,notnull"`
	OptionID   int64     `bun:"option_id,notnull"`
	IsCorrect  bool      `bun:"is_correct,notnull"`
	CreatedAt  time.Time `bun:"created_at,notnull"`
}

func (r *answerRow) toDomain() domain.Answer {
	return domain.Answer{
		ID:         r.ID,
		UserID:     r.UserID,
		QuizID:     r.QuizID,
		QuestionID: r.QuestionID,
		OptionID:   r.OptionID,
		IsCorrect:  r.IsCorrect,
		CreatedAt:  r.CreatedAt,
	}
}

type rewardRow struct {
	bun.BaseModel `bun:"table:quiz_rewards,alias:r"`

	ID             int64      `bun:"id,pk,autoincrement"`
	UserID         int64      `bun:"user_id,notnull"`
	QuizID         int        `bun:"quiz_id,notnull"`
	TotalQuestions int        `bun:"total_questions,notnull"`
	CorrectAnswers int        `bun:"correct_answers,notnull"`
	WrongAnswers   int        `bun:"wrong_answers,notnull"`
	EarnedTokens   int        `bun:"earned_tokens,notnull"`
	StreakDays     int        `bun:"streak_days,notnull"`
	IsSent         bool       `bun:"is_sent,notnull"`
	SentAt         *time.Time `bun:"sent_at"`
	CreatedAt      time.Time  `bun:"created_at,notnull"`
}

func (r *rewardRow) toDomain() domain.Reward {
	return domain.Reward{
		ID:             r.ID,
		UserID:         r.UserID,
		QuizID:         r.QuizID,
		TotalQuestions: r.TotalQuestions,
		CorrectAnswers: r.CorrectAnswers,
		WrongAnswers:   r.WrongAnswers,
		EarnedTokens:   r.EarnedTokens,
		StreakDays:     r.StreakDays,
		IsSent:         r.IsSent,
		SentAt:         r.SentAt,
		CreatedAt:      r.CreatedAt,
	}
}
