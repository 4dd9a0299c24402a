package session

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"managemind-quiz-service/internal/client"
	"managemind-quiz-service/internal/clock"
	"managemind-quiz-service/internal/domain"
	"managemind-quiz-service/internal/engine"
)

// PracticeOptions configures a standalone practice attempt.
type PracticeOptions struct {
	Backend client.Backend
	UserID  string
	Logger  *zap.Logger
	// QuestionSeconds overrides the per-question window.
	QuestionSeconds int
	// TickInterval overrides the 1-second clock resolution (tests).
	TickInterval time.Duration
	OnFinished   func(engine.Outcome)
}

// PracticeRun drives a practice attempt outside any live session. Scoring is
// fully local; the backend records the attempt and hands back an id that can
// later be exported as a report.
type PracticeRun struct {
	log     *zap.Logger
	backend client.Backend
	userID  string
	topic   string
	quiz    *engine.Engine
}

// NewPracticeRun fetches questions matching the filter and returns a ready
// run. An empty result set is an error, not an empty quiz.
func NewPracticeRun(ctx context.Context, opts PracticeOptions, filter domain.QuestionFilter) (*PracticeRun, error) {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	questions, err := opts.Backend.PracticeQuestions(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("fetch practice questions: %w", err)
	}
	if len(questions) == 0 {
		return nil, domain.ErrNoQuestions
	}

	run := &PracticeRun{
		log:     opts.Logger,
		backend: opts.Backend,
		userID:  opts.UserID,
		topic:   filter.Topic,
	}
	tick := opts.TickInterval
	if tick <= 0 {
		tick = time.Second
	}
	run.quiz = engine.New(engine.Options{
		QuestionSeconds: opts.QuestionSeconds,
		Clock:           clock.NewWithInterval(tick),
		Scorer:          practiceScorer{backend: opts.Backend, userID: opts.UserID, topic: filter.Topic},
		OnFinished:      opts.OnFinished,
		Logger:          opts.Logger,
	})
	if err := run.quiz.SetQuestions(questions); err != nil {
		return nil, err
	}
	return run, nil
}

// Quiz exposes the engine driving the attempt.
func (r *PracticeRun) Quiz() *engine.Engine { return r.quiz }

// ExportReport fetches the rendered report for the finished attempt.
func (r *PracticeRun) ExportReport(ctx context.Context) ([]byte, error) {
	attemptID := r.quiz.AttemptID()
	if attemptID == "" {
		return nil, domain.ErrAttemptNotFound
	}
	return r.backend.ExportAttemptReport(ctx, attemptID)
}

// practiceScorer records the attempt remotely. The backend does not re-score
// practice attempts, so the local result stands.
type practiceScorer struct {
	backend client.Backend
	userID  string
	topic   string
}

func (s practiceScorer) Score(ctx context.Context, batch []domain.Submission, _ int) (*domain.Result, string, error) {
	attemptID, err := s.backend.SubmitPracticeAttempt(ctx, domain.PracticeAttempt{
		UserID:      s.userID,
		Topic:       s.topic,
		Mode:        "practice",
		Submissions: batch,
	})
	if err != nil {
		return nil, "", err
	}
	return nil, attemptID, nil
}
