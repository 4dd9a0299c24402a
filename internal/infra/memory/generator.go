package memory

import (
	"context"
	"fmt"

	"managemind-quiz-service/internal/domain"
)

// Generator produces deterministic placeholder questions per syllabus point.
// It stands in for an external question generation service.
type Generator struct{}

func NewGenerator() *Generator { return &Generator{} }

func (g *Generator) Generate(_ context.Context, point string, count int) ([]domain.Question, error) {
	questions := make([]domain.Question, count)
	for i := range questions {
		id := fmt.Sprintf("%s-%d", point, i+1)
		questions[i] = domain.Question{
			ID:    id,
			Text:  fmt.Sprintf("Generated question %d for %s", i+1, point),
			Topic: point,
			Options: []domain.Option{
				{ID: id + "-a", Text: "Option A"},
				{ID: id + "-b", Text: "Option B"},
				{ID: id + "-c", Text: "Option C"},
				{ID: id + "-d", Text: "Option D"},
			},
			CorrectOptionID: id + "-a",
			Explanation:     "Generated for " + point,
		}
	}
	return questions, nil
}
