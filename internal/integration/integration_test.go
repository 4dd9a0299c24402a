package integration

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"

	"managemind-quiz-service/internal/app"
	"managemind-quiz-service/internal/domain"
	"managemind-quiz-service/internal/infra/memory"
	pginfra "managemind-quiz-service/internal/infra/postgres"
	pgmigrations "managemind-quiz-service/internal/infra/postgres/migrations"
	redisinfra "managemind-quiz-service/internal/infra/redis"
)

func TestLiveSessionEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	seedQuestions(t, ctx, pgURL, sampleQuestions())

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}

	source := redisinfra.NewQuestionSource(redisClient, pginfra.NewQuestionSource(pool), 5*time.Minute)
	sessions := redisinfra.NewSessionRepository(redisClient, 5*time.Minute)
	live := app.NewLiveService(sessions, source, memory.NewGenerator(), nil)
	practice := app.NewPracticeService(source, pginfra.NewAttemptStore(pool), nil)

	session, err := live.Create(ctx, app.BasicParams{HostID: "host-1", Topic: "Waves", DurationMinutes: 10})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if session.QuestionCount != 1 {
		t.Fatalf("expected the seeded waves question, got %d", session.QuestionCount)
	}

	if _, err := live.Join(ctx, session.JoinCode, "u1", "Alice"); err != nil {
		t.Fatalf("join: %v", err)
	}
	if err := live.Start(ctx, session.ID, "host-1"); err != nil {
		t.Fatalf("start: %v", err)
	}

	result, err := live.Submit(ctx, session.ID, domain.SessionSubmission{
		UserID: "u1",
		Answers: []domain.Submission{
			{MCQID: "wave-1", SelectedOptionID: "b", TimeTakenSeconds: 6},
		},
		TimeTakenSeconds: 6,
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if result.Score != 1 || result.Total != 1 {
		t.Fatalf("expected 1/1, got %d/%d", result.Score, result.Total)
	}

	if err := live.End(ctx, session.ID, "host-1"); err != nil {
		t.Fatalf("end: %v", err)
	}
	report, err := live.Leaderboard(ctx, session.ID)
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if len(report.Rows) != 1 || report.Rows[0].UserID != "u1" || report.Rows[0].Rank != 1 {
		t.Fatalf("unexpected leaderboard %+v", report.Rows)
	}

	// practice attempt persists to postgres and exports
	attemptID, err := practice.Submit(ctx, domain.PracticeAttempt{
		UserID: "u1",
		Topic:  "Waves",
		Mode:   "practice",
		Submissions: []domain.Submission{
			{MCQID: "wave-1", SelectedOptionID: "a", TimeTakenSeconds: 12},
		},
	})
	if err != nil {
		t.Fatalf("practice submit: %v", err)
	}
	out, err := practice.Export(ctx, attemptID)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if !strings.Contains(string(out), "0/1") {
		t.Fatalf("expected 0/1 in report:\n%s", out)
	}
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

func seedQuestions(t *testing.T, ctx context.Context, dsn string, questions []domain.Question) {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	for _, q := range questions {
		data, err := json.Marshal(q)
		if err != nil {
			t.Fatalf("marshal question: %v", err)
		}
		if _, err := db.ExecContext(ctx,
			`INSERT INTO mcqs (id, unit, topic, data) VALUES (?, ?, ?, ?::jsonb) ON CONFLICT (id) DO UPDATE SET data=EXCLUDED.data`,
			q.ID, "Physics", q.Topic, string(data)); err != nil {
			t.Fatalf("insert question: %v", err)
		}
	}
}

func sampleQuestions() []domain.Question {
	return []domain.Question{
		{
			ID:    "wave-1",
			Text:  "Which wave type is transverse?",
			Topic: "Waves",
			Options: []domain.Option{
				{ID: "a", Text: "Sound in air"},
				{ID: "b", Text: "Light"},
			},
			CorrectOptionID: "b",
		},
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
