package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"daily-quiz-service/internal/domain"
)

// UserRepository is the in-memory user store, keyed by wallet address.
type UserRepository struct {
	clock func() time.Time

	mu       sync.Mutex
	nextID   int64
	byID     map[int64]domain.User
	byWallet map[string]int64
}

func NewUserRepository() *UserRepository {
	return &UserRepository{
		clock:    time.Now,
		nextID:   1,
		byID:     make(map[int64]domain.User),
		byWallet: make(map[string]int64),
	}
}

// NewUserRepositoryWithClock is test-only for deterministic timestamps.
func NewUserRepositoryWithClock(clock func() time.Time) *UserRepository {
	r := NewUserRepository()
	r.clock = clock
	return r
}

func (r *UserRepository) UpsertByWallet(_ context.Context, walletAddress string) (domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.clock()
	if id, ok := r.byWallet[walletAddress]; ok {
		user := r.byID[id]
		user.LastLoginAt = now
		r.byID[id] = user
		return user, nil
	}

	user := domain.User{
		ID:            r.nextID,
		WalletAddress: walletAddress,
		CreatedAt:     now,
		LastLoginAt:   now,
	}
	r.nextID++
	r.byID[user.ID] = user
	r.byWallet[walletAddress] = user.ID
	return user, nil
}

func (r *UserRepository) GetByID(_ context.Context, id int64) (domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.byID[id]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}
	return user, nil
}

// QuestionRepository is the in-memory question store.
type QuestionRepository struct {
	mu           sync.Mutex
	nextQuestion int64
	nextOption   int64
	questions    map[int64]domain.Question
}

func NewQuestionRepository() *QuestionRepository {
	return &QuestionRepository{
		nextQuestion: 1,
		nextOption:   1,
		questions:    make(map[int64]domain.Question),
	}
}

func (r *QuestionRepository) ListByQuiz(_ context.Context, quizID int) ([]domain.Question, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var questions []domain.Question
	for _, question := range r.questions {
		if question.QuizID == quizID {
			questions = append(questions, cloneQuestion(question))
		}
	}
	sort.Slice(questions, func(i, j int) bool { return questions[i].ID < questions[j].ID })
	return questions, nil
}

func (r *QuestionRepository) GetByID(_ context.Context, id int64) (domain.Question, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	question, ok := r.questions[id]
	if !ok {
		return domain.Question{}, domain.ErrQuestionNotFound
	}
	return cloneQuestion(question), nil
}

func (r *QuestionRepository) CreateSet(_ context.Context, quizID int, drafts []domain.QuestionDraft) ([]domain.Question, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	created := make([]domain.Question, 0, len(drafts))
	for _, draft := range drafts {
		question := domain.Question{
			ID:       r.nextQuestion,
			QuizID:   quizID,
			Question: draft.Question,
			Answer:   draft.Answer,
		}
		r.nextQuestion++

		for _, text := range draft.Options {
			question.Options = append(question.Options, domain.QuestionOption{
				ID:         r.nextOption,
				QuestionID: question.ID,
				Option:     text,
			})
			r.nextOption++
		}

		r.questions[question.ID] = question
		created = append(created, cloneQuestion(question))
	}
	return created, nil
}

func (r *QuestionRepository) CountByQuiz(_ context.Context, quizID int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	count := 0
	for _, question := range r.questions {
		if question.QuizID == quizID {
			count++
		}
	}
	return count, nil
}

func cloneQuestion(q domain.Question) domain.Question {
	clone := q
	clone.Options = append([]domain.QuestionOption(nil), q.Options...)
	return clone
}

type answerKey struct {
	userID     int64
	quizID     int
	questionID int64
}

// AnswerRepository is the in-memory answer store. The keyed map insert under
// one mutex is the moral equivalent of the Postgres unique constraint: of two
// concurrent creates for the same key exactly one wins.
type AnswerRepository struct {
	mu      sync.Mutex
	nextID  int64
	answers map[answerKey]domain.Answer
}

func NewAnswerRepository() *AnswerRepository {
	return &AnswerRepository{
		nextID:  1,
		answers: make(map[answerKey]domain.Answer),
	}
}

func (r *AnswerRepository) Create(_ context.Context, answer *domain.Answer) error {
	key := answerKey{userID: answer.UserID, quizID: answer.QuizID, questionID: answer.QuestionID}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.answers[key]; ok {
		return domain.ErrAnswerExists
	}
	answer.ID = r.nextID
	r.nextID++
	r.answers[key] = *answer
	return nil
}

func (r *AnswerRepository) ListByUserQuiz(_ context.Context, userID int64, quizID int) ([]domain.Answer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var answers []domain.Answer
	for _, answer := range r.answers {
		if answer.UserID == userID && answer.QuizID == quizID {
			answers = append(answers, answer)
		}
	}
	sort.Slice(answers, func(i, j int) bool { return answers[i].ID < answers[j].ID })
	return answers, nil
}

func (r *AnswerRepository) CountByUserQuiz(ctx context.Context, userID int64, quizID int) (int, error) {
	answers, err := r.ListByUserQuiz(ctx, userID, quizID)
	if err != nil {
		return 0, err
	}
	return len(answers), nil
}

type rewardKey struct {
	userID int64
	quizID int
}

// RewardRepository is the in-memory reward store with the same
// one-reward-per-(user,quiz) guarantee as the Postgres unique constraint.
type RewardRepository struct {
	mu      sync.Mutex
	nextID  int64
	rewards map[rewardKey]domain.Reward
}

func NewRewardRepository() *RewardRepository {
	return &RewardRepository{
		nextID:  1,
		rewards: make(map[rewardKey]domain.Reward),
	}
}

func (r *RewardRepository) Create(_ context.Context, reward *domain.Reward) error {
	key := rewardKey{userID: reward.UserID, quizID: reward.QuizID}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.rewards[key]; ok {
		return domain.ErrRewardExists
	}
	reward.ID = r.nextID
	r.nextID++
	r.rewards[key] = *reward
	return nil
}

func (r *RewardRepository) Get(_ context.Context, userID int64, quizID int) (domain.Reward, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	reward, ok := r.rewards[rewardKey{userID: userID, quizID: quizID}]
	if !ok {
		return domain.Reward{}, domain.ErrRewardNotFound
	}
	return reward, nil
}

func (r *RewardRepository) ListByUser(_ context.Context, userID int64) ([]domain.Reward, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var rewards []domain.Reward
	for _, reward := range r.rewards {
		if reward.UserID == userID {
			rewards = append(rewards, reward)
		}
	}
	// Newest first, matching the Postgres ordering.
	sort.Slice(rewards, func(i, j int) bool { return rewards[i].ID > rewards[j].ID })
	return rewards, nil
}

func (r *RewardRepository) MarkSent(_ context.Context, userID int64, quizID int, sentAt time.Time) (domain.Reward, error) {
	key := rewardKey{userID: userID, quizID: quizID}

	r.mu.Lock()
	defer r.mu.Unlock()

	reward, ok := r.rewards[key]
	if !ok {
		return domain.Reward{}, domain.ErrRewardNotFound
	}
	if reward.IsSent {
		return domain.Reward{}, domain.ErrRewardAlreadySent
	}

	reward.IsSent = true
	reward.SentAt = &sentAt
	r.rewards[key] = reward
	return reward, nil
}
