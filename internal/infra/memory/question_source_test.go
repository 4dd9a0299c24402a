package memory

import (
	"context"
	"testing"

	"managemind-quiz-service/internal/domain"
)

func testSet() ([]domain.Question, map[string]string) {
	questions := []domain.Question{
		{ID: "q1", Topic: "Waves", Text: "a", Options: []domain.Option{{ID: "o1"}, {ID: "o2"}}, CorrectOptionID: "o1"},
		{ID: "q2", Topic: "Waves", Text: "b", Options: []domain.Option{{ID: "o1"}, {ID: "o2"}}, CorrectOptionID: "o1"},
		{ID: "q3", Topic: "Optics", Text: "c", Options: []domain.Option{{ID: "o1"}, {ID: "o2"}}, CorrectOptionID: "o2"},
	}
	units := map[string]string{"q1": "Physics", "q2": "Physics", "q3": "Physics"}
	return questions, units
}

func TestSearchFilters(t *testing.T) {
	questions, units := testSet()
	source := NewQuestionSource(questions, units)
	ctx := context.Background()

	all, err := source.Search(ctx, domain.QuestionFilter{})
	if err != nil || len(all) != 3 {
		t.Fatalf("unfiltered: %v (%d)", err, len(all))
	}

	waves, _ := source.Search(ctx, domain.QuestionFilter{Topic: "waves"})
	if len(waves) != 2 {
		t.Fatalf("topic filter is case-insensitive, got %d", len(waves))
	}

	limited, _ := source.Search(ctx, domain.QuestionFilter{Limit: 1})
	if len(limited) != 1 {
		t.Fatalf("limit: got %d", len(limited))
	}

	none, _ := source.Search(ctx, domain.QuestionFilter{Unit: "Chemistry"})
	if len(none) != 0 {
		t.Fatalf("unit mismatch must return empty, got %d", len(none))
	}
}

func TestByIDs(t *testing.T) {
	questions, units := testSet()
	source := NewQuestionSource(questions, units)

	got, err := source.ByIDs(context.Background(), []string{"q3", "q1", "missing"})
	if err != nil {
		t.Fatalf("by ids: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(got))
	}
}
