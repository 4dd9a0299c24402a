package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"managemind-quiz-service/internal/app"
	"managemind-quiz-service/internal/config"
	"managemind-quiz-service/internal/domain"
	"managemind-quiz-service/internal/infra/memory"
	pginfra "managemind-quiz-service/internal/infra/postgres"
	redisinfra "managemind-quiz-service/internal/infra/redis"
	transport "managemind-quiz-service/internal/transport/http"
)

// NewServeCmd builds the CLI subcommand to start the server.
func NewServeCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the quiz server",
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
	log, err := newLogger()
	if err != nil {
		return err
	}
	defer log.Sync()

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg, log); err != nil {
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
	redisTTL := config.TTLDuration(cfg.Redis.TTL, 10*time.Minute)
	questionTTL := config.TTLDuration(cfg.Questions.TTL, 10*time.Minute)

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
	}

	var source app.QuestionSource = memory.NewQuestionSource(sampleQuestions(), nil)
	var attempts app.AttemptStore = memory.NewAttemptStore()
	if pool != nil {
		source = pginfra.NewQuestionSource(pool)
		attempts = pginfra.NewAttemptStore(pool)
	}
	if redisClient != nil {
		source = redisinfra.NewQuestionSource(redisClient, source, questionTTL)
	}

	var sessions app.SessionRepository = memory.NewSessionRepository()
	if redisClient != nil {
		sessions = redisinfra.NewSessionRepository(redisClient, redisTTL)
	}

	live := app.NewLiveService(sessions, source, memory.NewGenerator(), log)
	practice := app.NewPracticeService(source, attempts, log)

	sweeper := app.NewSweeper(live, log)
	if err := sweeper.Start(); err != nil {
		return err
	}
	defer sweeper.Stop()

	mux := http.NewServeMux()
	transport.NewHandler(live, practice, log).Register(mux)
	mux.HandleFunc("GET /api/live/{id}/lobby", transport.NewWSHandler(live, log).ServeLobby)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Info("starting quiz service", zap.String("port", finalPort))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server stopped", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Info("shutting down server")
	case <-ctx.Done():
		log.Info("context canceled, shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// sampleQuestions seeds the in-memory source for running without Postgres.
func sampleQuestions() []domain.Question {
	return []domain.Question{
		{
			ID:    "mech-1",
			Text:  "What is the SI unit of force?",
			Topic: "Mechanics",
			Options: []domain.Option{
				{ID: "a", Text: "Newton"},
				{ID: "b", Text: "Joule"},
				{ID: "c", Text: "Watt"},
			},
			CorrectOptionID: "a",
			Explanation:     "Force is measured in newtons (kg m/s^2).",
		},
		{
			ID:    "mech-2",
			Text:  "Acceleration due to gravity near Earth's surface?",
			Topic: "Mechanics",
			Options: []domain.Option{
				{ID: "a", Text: "9.8 m/s^2"},
				{ID: "b", Text: "6.7 m/s^2"},
			},
			CorrectOptionID: "a",
		},
		{
			ID:    "wave-1",
			Text:  "Which wave type is transverse?",
			Topic: "Waves",
			Options: []domain.Option{
				{ID: "a", Text: "Sound in air"},
				{ID: "b", Text: "Light"},
			},
			CorrectOptionID: "b",
			Explanation:     "Electromagnetic waves oscillate perpendicular to travel.",
		},
	}
}
