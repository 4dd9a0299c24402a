// Package memory provides in-process implementations of the app ports, used
// standalone and as the local half of the Redis-backed variants.
package memory

import (
	"context"
	"strings"

	"managemind-quiz-service/internal/domain"
)

// QuestionSource serves a fixed question set, filtered in memory.
type QuestionSource struct {
	questions []domain.Question
	units     map[string]string
}

// NewQuestionSource builds a source over the given set. unitByID maps a
// question id to its unit; nil disables unit filtering.
func NewQuestionSource(questions []domain.Question, unitByID map[string]string) *QuestionSource {
	if unitByID == nil {
		unitByID = make(map[string]string)
	}
	return &QuestionSource{questions: questions, units: unitByID}
}

func (s *QuestionSource) Search(_ context.Context, filter domain.QuestionFilter) ([]domain.Question, error) {
	out := make([]domain.Question, 0, len(s.questions))
	for _, q := range s.questions {
		if filter.Unit != "" && !strings.EqualFold(s.units[q.ID], filter.Unit) {
			continue
		}
		if filter.Topic != "" && !strings.EqualFold(q.Topic, filter.Topic) {
			continue
		}
		out = append(out, q)
		if filter.Limit > 0 && len(out) == filter.Limit {
			break
		}
	}
	return out, nil
}

func (s *QuestionSource) ByIDs(_ context.Context, ids []string) ([]domain.Question, error) {
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	out := make([]domain.Question, 0, len(ids))
	for _, q := range s.questions {
		if want[q.ID] {
			out = append(out, q)
		}
	}
	return out, nil
}
