package integration

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"daily-quiz-service/internal/app"
	"daily-quiz-service/internal/domain"
	"daily-quiz-service/internal/infra/memory"
	"daily-quiz-service/internal/infra/postgres"
	pgmigrations "daily-quiz-service/internal/infra/postgres/migrations"
	infraredis "daily-quiz-service/internal/infra/redis"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/mr-tron/base58"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"
)

func TestDailyQuizEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	db := openBun(t, ctx, pgURL)
	defer db.Close()

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	tokens := app.NewTokenService("access-secret", "refresh-secret", time.Hour, 30*24*time.Hour)
	auth := app.NewAuthService(
		infraredis.NewNonceStore(redisClient, 5*time.Minute),
		app.NewEd25519Verifier(),
		postgres.NewUserRepository(db),
		tokens,
	)
	bus := memory.NewBus()
	rewards := app.NewRewardService(postgres.NewRewardRepository(db), bus, 7, logger).
		WithSummaryReader(postgres.NewRewardSummaryReader(pool))
	quiz := app.NewQuizService(
		postgres.NewQuestionRepository(db),
		postgres.NewAnswerRepository(db),
		rewards,
		memory.NewStaticQuestionSource(memory.SampleQuestions()),
	)

	// Wallet login against the Redis nonce store.
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	wallet := base58.Encode(pub)

	nonce, err := auth.GenerateNonce(ctx)
	if err != nil {
		t.Fatalf("generate nonce: %v", err)
	}
	signature := base58.Encode(ed25519.Sign(priv, []byte("Login nonce: "+nonce)))
	user, pair, err := auth.Login(ctx, wallet, signature, nonce)
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if userID, err := tokens.VerifyAccess(pair.AccessToken); err != nil || userID != user.ID {
		t.Fatalf("access token invalid: id=%d err=%v", userID, err)
	}
	if _, _, err := auth.Login(ctx, wallet, signature, nonce); err != domain.ErrInvalidNonce {
		t.Fatalf("expected replayed nonce to fail, got %v", err)
	}

	// First questions request provisions the set in Postgres.
	quizID := quiz.QuizID()
	questions, err := quiz.Questions(ctx, quizID)
	if err != nil {
		t.Fatalf("questions: %v", err)
	}
	if len(questions) != 3 {
		t.Fatalf("expected 3 questions, got %d", len(questions))
	}

	var outcome domain.AnswerOutcome
	for _, q := range questions {
		outcome, err = quiz.SubmitAnswer(ctx, user, q.ID, correctOption(t, q))
		if err != nil {
			t.Fatalf("submit answer %d: %v", q.ID, err)
		}
	}
	if !outcome.IsQuizCompleted || outcome.EarnedTokens != 6 || outcome.StreakDays != 1 {
		t.Fatalf("unexpected final outcome %+v", outcome)
	}

	// Duplicate submissions fail on the unique constraint.
	if _, err := quiz.SubmitAnswer(ctx, user, questions[0].ID, correctOption(t, questions[0])); err != domain.ErrAnswerExists {
		t.Fatalf("expected answer exists, got %v", err)
	}

	// Publishing is asynchronous; wait for the event to reach the bus.
	var granted []domain.RewardGranted
	deadline := time.Now().Add(5 * time.Second)
	for len(granted) == 0 && time.Now().Before(deadline) {
		granted = bus.Granted()
		time.Sleep(10 * time.Millisecond)
	}
	if len(granted) != 1 {
		t.Fatalf("expected 1 granted event, got %d", len(granted))
	}
	if granted[0].UserWallet != wallet || granted[0].EarnedTokens != 6 {
		t.Fatalf("unexpected event %+v", granted[0])
	}

	// Confirming the reward is idempotent.
	if err := rewards.MarkRewardSent(ctx, user.ID, quizID); err != nil {
		t.Fatalf("mark sent: %v", err)
	}
	if err := rewards.MarkRewardSent(ctx, user.ID, quizID); err != nil {
		t.Fatalf("duplicate mark sent: %v", err)
	}
	reward, err := rewards.Reward(ctx, user.ID, quizID)
	if err != nil || !reward.IsSent || reward.SentAt == nil {
		t.Fatalf("reward not confirmed: %+v err=%v", reward, err)
	}

	// History uses the pgx aggregate reader.
	history, err := rewards.History(ctx, user.ID)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if history.TotalQuizzes != 1 || history.EarnedTokens != 6 || len(history.Rewards) != 1 {
		t.Fatalf("unexpected history %+v", history)
	}
	if !history.Rewards[0].IsSent {
		t.Fatalf("history reward not marked sent: %+v", history.Rewards[0])
	}
}

func openBun(t *testing.T, ctx context.Context, dsn string) *bun.DB {
	t.Helper()
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func correctOption(t *testing.T, q domain.Question) int64 {
	t.Helper()
	for _, option := range q.Options {
		if option.Option == q.Answer {
			return option.ID
		}
	}
	t.Fatalf("question %d has no correct option", q.ID)
	return 0
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "quiz", "POSTGRES_PASSWORD": "quizpass", "POSTGRES_DB": "quizdb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://quiz:quizpass@%s:%s/quizdb?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
