package redis

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"managemind-quiz-service/internal/domain"
	"managemind-quiz-service/internal/infra/memory"
)

func newClient(mr *miniredis.Miniredis) *redis.Client {
	return redis.NewClient(&redis.Options{Addr: mr.Addr()})
}

func sampleQuestions() []domain.Question {
	return []domain.Question{
		{
			ID:    "q1",
			Text:  "Which wave is transverse?",
			Topic: "Waves",
			Options: []domain.Option{
				{ID: "o1", Text: "Light"},
				{ID: "o2", Text: "Sound"},
			},
			CorrectOptionID: "o1",
		},
	}
}

type countingSource struct {
	inner       *memory.QuestionSource
	searchCalls int
	byIDCalls   int
}

func (s *countingSource) Search(ctx context.Context, filter domain.QuestionFilter) ([]domain.Question, error) {
	s.searchCalls++
	return s.inner.Search(ctx, filter)
}

func (s *countingSource) ByIDs(ctx context.Context, ids []string) ([]domain.Question, error) {
	s.byIDCalls++
	return s.inner.ByIDs(ctx, ids)
}

func TestSearchCachesInRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	inner := &countingSource{inner: memory.NewQuestionSource(sampleQuestions(), nil)}
	source := NewQuestionSource(newClient(mr), inner, time.Minute)
	ctx := context.Background()

	first, err := source.Search(ctx, domain.QuestionFilter{Topic: "Waves"})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(first) != 1 || inner.searchCalls != 1 {
		t.Fatalf("expected one backing call, got %d results / %d calls", len(first), inner.searchCalls)
	}

	// second call hits the cache
	second, err := source.Search(ctx, domain.QuestionFilter{Topic: "Waves"})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(second) != 1 || inner.searchCalls != 1 {
		t.Fatalf("expected cache hit, backing calls=%d", inner.searchCalls)
	}
	if second[0].CorrectOptionID != "o1" {
		t.Fatalf("cached question lost its answer: %+v", second[0])
	}
}

func TestByIDsFillsCache(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	inner := &countingSource{inner: memory.NewQuestionSource(sampleQuestions(), nil)}
	source := NewQuestionSource(newClient(mr), inner, time.Minute)
	ctx := context.Background()

	got, err := source.ByIDs(ctx, []string{"q1"})
	if err != nil || len(got) != 1 {
		t.Fatalf("by ids: %v (%d)", err, len(got))
	}
	if inner.byIDCalls != 1 {
		t.Fatalf("expected one backing call, got %d", inner.byIDCalls)
	}

	got, err = source.ByIDs(ctx, []string{"q1"})
	if err != nil || len(got) != 1 {
		t.Fatalf("cached by ids: %v (%d)", err, len(got))
	}
	if inner.byIDCalls != 1 {
		t.Fatalf("expected cache hit, backing calls=%d", inner.byIDCalls)
	}
}
