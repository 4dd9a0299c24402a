// Package redis provides Redis-backed implementations of the app ports: a
// question cache in front of a slower backing store and a session repository
// with liveness markers.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"managemind-quiz-service/internal/app"
	"managemind-quiz-service/internal/domain"
)

// QuestionSource caches question search results and individual questions in
// Redis, falling back to the inner source on cache miss. Search results are
// stored as JSON per filter key; individual questions as JSON per id.
type QuestionSource struct {
	client *redis.Client
	inner  app.QuestionSource
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
}

func NewQuestionSource(client *redis.Client, inner app.QuestionSource, ttl time.Duration) *QuestionSource {
	return &QuestionSource{
		client: client,
		inner:  inner,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (s *QuestionSource) Search(ctx context.Context, filter domain.QuestionFilter) ([]domain.Question, error) {
	key := s.searchKey(filter)

	if cached, err := s.client.Get(ctx, key).Bytes(); err == nil {
		var questions []domain.Question
		if json.Unmarshal(cached, &questions) == nil {
			return questions, nil
		}
	}

	result, err, _ := s.sf.Do(key, func() (interface{}, error) {
		// re-check the cache in case another goroutine filled it
		if cached, err := s.client.Get(ctx, key).Bytes(); err == nil {
			var questions []domain.Question
			if json.Unmarshal(cached, &questions) == nil {
				return questions, nil
			}
		}

		questions, err := s.inner.Search(ctx, filter)
		if err != nil {
			return nil, err
		}

		if payload, err := json.Marshal(questions); err == nil {
			_ = s.client.Set(ctx, key, payload, s.ttlWithJitter()).Err()
		}
		pipe := s.client.Pipeline()
		for _, q := range questions {
			if payload, err := json.Marshal(q); err == nil {
				pipe.Set(ctx, s.questionKey(q.ID), payload, s.ttlWithJitter())
			}
		}
		_, _ = pipe.Exec(ctx)

		return questions, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Question), nil
}

func (s *QuestionSource) ByIDs(ctx context.Context, ids []string) ([]domain.Question, error) {
	out := make([]domain.Question, 0, len(ids))
	missing := make([]string, 0)
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		cached, err := s.client.Get(ctx, s.questionKey(id)).Bytes()
		if err != nil {
			missing = append(missing, id)
			continue
		}
		var q domain.Question
		if json.Unmarshal(cached, &q) != nil {
			missing = append(missing, id)
			continue
		}
		out = append(out, q)
	}
	if len(missing) == 0 {
		return out, nil
	}

	loaded, err := s.inner.ByIDs(ctx, missing)
	if err != nil {
		return nil, err
	}
	pipe := s.client.Pipeline()
	for _, q := range loaded {
		if payload, err := json.Marshal(q); err == nil {
			pipe.Set(ctx, s.questionKey(q.ID), payload, s.ttlWithJitter())
		}
	}
	_, _ = pipe.Exec(ctx)
	return append(out, loaded...), nil
}

func (s *QuestionSource) searchKey(filter domain.QuestionFilter) string {
	return fmt.Sprintf("mcq:search:%s:%s:%d",
		strings.ToLower(filter.Unit), strings.ToLower(filter.Topic), filter.Limit)
}

func (s *QuestionSource) questionKey(id string) string {
	return "mcq:" + id
}

func (s *QuestionSource) ttlWithJitter() time.Duration {
	if s.ttl <= 0 {
		return 0
	}
	jitterMax := int64(s.ttl) / 10
	return s.ttl + time.Duration(s.rnd.Int63n(jitterMax+1))
}
