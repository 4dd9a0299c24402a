package app

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"managemind-quiz-service/internal/domain"
	"managemind-quiz-service/internal/report"
)

// AttemptStore persists finished practice attempts.
type AttemptStore interface {
	SaveAttempt(ctx context.Context, record domain.AttemptRecord) error
	Attempt(ctx context.Context, id string) (domain.AttemptRecord, error)
}

// PracticeService handles standalone quiz attempts outside any live session.
type PracticeService struct {
	log       *zap.Logger
	questions QuestionSource
	attempts  AttemptStore
}

func NewPracticeService(questions QuestionSource, attempts AttemptStore, log *zap.Logger) *PracticeService {
	if log == nil {
		log = zap.NewNop()
	}
	return &PracticeService{log: log, questions: questions, attempts: attempts}
}

// Questions fetches MCQs matching the filter.
func (s *PracticeService) Questions(ctx context.Context, filter domain.QuestionFilter) ([]domain.Question, error) {
	return s.questions.Search(ctx, filter)
}

// Submit scores an attempt against the stored questions and persists it,
// returning the attempt id for later export.
func (s *PracticeService) Submit(ctx context.Context, attempt domain.PracticeAttempt) (string, error) {
	ids := make([]string, 0, len(attempt.Submissions))
	for _, sub := range attempt.Submissions {
		ids = append(ids, sub.MCQID)
	}
	questions, err := s.questions.ByIDs(ctx, ids)
	if err != nil {
		return "", err
	}
	byID := make(map[string]domain.Question, len(questions))
	for _, q := range questions {
		byID[q.ID] = q
	}

	score := 0
	for _, sub := range attempt.Submissions {
		q, known := byID[sub.MCQID]
		if known && sub.SelectedOptionID != "" && sub.SelectedOptionID == q.CorrectOptionID {
			score++
		}
	}

	record := domain.AttemptRecord{
		ID:          uuid.NewString(),
		UserID:      attempt.UserID,
		Topic:       attempt.Topic,
		Mode:        attempt.Mode,
		Submissions: attempt.Submissions,
		Score:       score,
		Total:       len(attempt.Submissions),
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.attempts.SaveAttempt(ctx, record); err != nil {
		return "", err
	}
	s.log.Info("attempt recorded",
		zap.String("attemptId", record.ID),
		zap.Int("score", score),
		zap.Int("total", record.Total))
	return record.ID, nil
}

// Export renders the plain-text report for a stored attempt.
func (s *PracticeService) Export(ctx context.Context, attemptID string) ([]byte, error) {
	record, err := s.attempts.Attempt(ctx, attemptID)
	if err != nil {
		return nil, err
	}
	return report.Render(record), nil
}
