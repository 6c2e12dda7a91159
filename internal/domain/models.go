package domain

import (
	"strconv"
	"time"
)

// User is created on first successful wallet login and refreshed on every
// subsequent one. Wallet addresses are unique.
type User struct {
	ID            int64     `json:"id"`
	WalletAddress string    `json:"walletAddress"`
	CreatedAt     time.Time `json:"createdAt"`
	LastLoginAt   time.Time `json:"lastLoginAt"`
}

// QuestionOption is one selectable answer of a question. Immutable once created.
type QuestionOption struct {
	ID         int64  `json:"id"`
	QuestionID int64  `json:"-"`
	Option     string `json:"option"`
}

// Question belongs to exactly one daily quiz. The canonical Answer text matches
// one of the options.
type Question struct {
	ID       int64            `json:"id"`
	QuizID   int              `json:"-"`
	Question string           `json:"question"`
	Answer   string           `json:"-"`
	Options  []QuestionOption `json:"options"`
}

// QuestionDraft is what a question source produces before persistence assigns ids.
type QuestionDraft struct {
	Question string
	Answer   string
	Options  []string
}

// Answer records a user's single attempt at one question of one quiz.
// Unique on (UserID, QuizID, QuestionID).
type Answer struct {
	ID         int64
	UserID     int64
	QuizID     int
	QuestionID int64
	OptionID   int64
	IsCorrect  bool
	CreatedAt  time.Time
}

// Reward is issued at most once per (UserID, QuizID) when the quiz is complete.
// IsSent flips to true exactly once, when the external transfer is confirmed.
type Reward struct {
	ID             int64      `json:"-"`
	UserID         int64      `json:"-"`
	QuizID         int        `json:"quizId"`
	TotalQuestions int        `json:"totalQuestions"`
	CorrectAnswers int        `json:"correctAnswers"`
	WrongAnswers   int        `json:"wrongAnswers"`
	EarnedTokens   int        `json:"earnedTokens"`
	StreakDays     int        `json:"streakDays"`
	IsSent         bool       `json:"isSent"`
	SentAt         *time.Time `json:"sentAt,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
}

// UserQuestion is a question as the current user sees it: no canonical answer,
// plus whether and how they already answered it.
type UserQuestion struct {
	ID         int64            `json:"id"`
	Question   string           `json:"question"`
	IsAnswered bool             `json:"isAnswered"`
	IsCorrect  bool             `json:"isCorrect"`
	Options    []QuestionOption `json:"options"`
}

// QuizData is the per-user view of today's quiz.
type QuizData struct {
	IsCompleted    bool           `json:"isCompleted"`
	TotalQuestions int            `json:"totalQuestions"`
	CorrectAnswers int            `json:"correctAnswers"`
	WrongAnswers   int            `json:"wrongAnswers"`
	Questions      []UserQuestion `json:"questions"`
	EarnedTokens   int            `json:"earnedTokens"`
	StreakDays     int            `json:"streakDays"`
}

// AnswerOutcome summarizes one processed answer submission.
type AnswerOutcome struct {
	IsCorrectAnswer  bool  `json:"isCorrectAnswer"`
	CorrectOptionID  int64 `json:"correctOptionId"`
	SelectedOptionID int64 `json:"selectedOptionId"`
	IsQuizCompleted  bool  `json:"isQuizCompleted"`
	EarnedTokens     int   `json:"earnedTokens"`
	StreakDays       int   `json:"streakDays"`
}

// RewardHistory aggregates a user's rewards across all quizzes.
type RewardHistory struct {
	TotalQuizzes   int          `json:"totalQuizzes"`
	TotalQuestions int          `json:"totalQuestions"`
	CorrectAnswers int          `json:"correctAnswers"`
	WrongAnswers   int          `json:"wrongAnswers"`
	EarnedTokens   int          `json:"earnedTokens"`
	Streaks        int          `json:"streaks"`
	Rewards        []RewardView `json:"rewards"`
}

// RewardView is one day's reward in the history list.
type RewardView struct {
	Date           string `json:"date"`
	TotalQuestions int    `json:"totalQuestions"`
	CorrectAnswers int    `json:"correctAnswers"`
	WrongAnswers   int    `json:"wrongAnswers"`
	EarnedTokens   int    `json:"earnedTokens"`
	StreakDays     int    `json:"streakDays"`
	IsSent         bool   `json:"isSent"`
}

// RewardSummary holds aggregate reward totals for a user.
type RewardSummary struct {
	TotalQuizzes   int
	TotalQuestions int
	CorrectAnswers int
	WrongAnswers   int
	EarnedTokens   int
	Streaks        int
}

// RewardGranted is published when a reward with earned tokens is issued.
// Field names are the wire contract with the token-transfer worker.
type RewardGranted struct {
	UserID         int64  `json:"user_id"`
	UserWallet     string `json:"user_wallet"`
	QuizID         int    `json:"quiz_id"`
	TotalQuestions int    `json:"total_questions"`
	CorrectAnswers int    `json:"correct_answers"`
	EarnedTokens   int    `json:"earned_tokens"`
	StreakDays     int    `json:"streak_days"`
}

// Key is the partition key the transfer worker expects.
func (e RewardGranted) Key() string {
	return "user_" + strconv.FormatInt(e.UserID, 10)
}

// RewardApplied is consumed when the transfer worker has applied a reward.
type RewardApplied struct {
	UserID int64 `json:"user_id"`
	QuizID int   `json:"quiz_id"`
}
