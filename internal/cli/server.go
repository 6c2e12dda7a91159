package cli

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"daily-quiz-service/internal/app"
	"daily-quiz-service/internal/config"
	"daily-quiz-service/internal/infra/memory"
	"daily-quiz-service/internal/infra/postgres"
	"daily-quiz-service/internal/infra/rabbitmq"
	redisnonce "daily-quiz-service/internal/infra/redis"
	"daily-quiz-service/internal/lib/clog"
	transport "daily-quiz-service/internal/transport/http"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

const defaultStreakGoalDays = 7

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the daily quiz server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := slog.New(clog.NewHandler(os.Stdout, slog.LevelInfo))

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}
	nonceTTL := config.TTLDuration(cfg.Redis.NonceTTL, 5*time.Minute)

	var nonces app.NonceStore = memory.NewNonceStore(nonceTTL)
	if redisClient != nil {
		nonces = redisnonce.NewNonceStore(redisClient, nonceTTL)
	}

	var users app.UserRepository = memory.NewUserRepository()
	var questions app.QuestionRepository = memory.NewQuestionRepository()
	var answers app.AnswerRepository = memory.NewAnswerRepository()
	var rewards app.RewardRepository = memory.NewRewardRepository()
	var summaries app.RewardSummaryReader
	if cfg.Postgres.URL != "" {
		sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.Postgres.URL)))
		db := bun.NewDB(sqldb, pgdialect.New())
		defer db.Close()

		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()

		users = postgres.NewUserRepository(db)
		questions = postgres.NewQuestionRepository(db)
		answers = postgres.NewAnswerRepository(db)
		rewards = postgres.NewRewardRepository(db)
		summaries = postgres.NewRewardSummaryReader(pool)
	}

	var publisher app.RewardPublisher = memory.NewBus()
	var mq *rabbitmq.Client
	if cfg.AMQP.URL != "" {
		mq, err = rabbitmq.Dial(cfg.AMQP.URL)
		if err != nil {
			return err
		}
		defer mq.Close()
		publisher = rabbitmq.NewPublisher(mq)
	}

	accessTTL := config.TTLDuration(cfg.Auth.AccessTTL, time.Hour)
	refreshTTL := config.TTLDuration(cfg.Auth.RefreshTTL, 30*24*time.Hour)
	tokens := app.NewTokenService(cfg.Auth.AccessSecret, cfg.Auth.RefreshSecret, accessTTL, refreshTTL)

	auth := app.NewAuthService(nonces, app.NewEd25519Verifier(), users, tokens)

	goal := cfg.Quiz.StreakGoalDays
	if goal <= 0 {
		goal = defaultStreakGoalDays
	}
	notifier := transport.NewRewardNotifier(logger)
	rewardSvc := app.NewRewardService(rewards, publisher, goal, logger).WithNotifier(notifier)
	if summaries != nil {
		rewardSvc = rewardSvc.WithSummaryReader(summaries)
	}
	quizSvc := app.NewQuizService(questions, answers, rewardSvc, memory.NewStaticQuestionSource(memory.SampleQuestions()))

	var consumer *rabbitmq.Consumer
	if mq != nil {
		consumer = rabbitmq.NewConsumer(mq, rewardSvc, logger)
		if err := consumer.Start(ctx); err != nil {
			return err
		}
	}

	authHandler := transport.NewAuthHandler(auth, tokens, cfg.IsSecure())
	quizHandler := transport.NewQuizHandler(quizSvc, rewardSvc)
	mux := transport.NewRouter(auth, authHandler, quizHandler, notifier)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		logger.Info("starting daily quiz service", "port", finalPort)
		var err error
		if cfg.IsSecure() {
			err = server.ListenAndServeTLS(cfg.TLS.CertFile, cfg.TLS.KeyFile)
		} else {
			err = server.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			logger.Error("failed to start server", "error", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		logger.Info("shutting down server...")
	case <-ctx.Done():
		logger.Info("context canceled, shutting down server...")
	}

	if consumer != nil {
		consumer.Close()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
