package memory

import (
	"context"
	"testing"

	"managemind-quiz-service/internal/app"
	"managemind-quiz-service/internal/domain"
)

func TestSessionRepositoryIndexes(t *testing.T) {
	repo := NewSessionRepository()
	questions := []domain.Question{
		{ID: "q1", Text: "a", Options: []domain.Option{{ID: "o1"}, {ID: "o2"}}, CorrectOptionID: "o1"},
	}
	service := app.NewLiveService(repo, NewQuestionSource(questions, nil), NewGenerator(), nil)

	session, err := service.Create(context.Background(), app.BasicParams{HostID: "host-1", DurationMinutes: 10})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, ok := repo.Get(session.ID); !ok {
		t.Fatalf("expected lookup by id")
	}
	if _, ok := repo.ByCode(session.JoinCode); !ok {
		t.Fatalf("expected lookup by code")
	}
	if got := repo.Active(); len(got) != 0 {
		t.Fatalf("waiting session must not be listed active, got %d", len(got))
	}

	if err := service.Start(context.Background(), session.ID, "host-1"); err != nil {
		t.Fatalf("start: %v", err)
	}
	if got := repo.Active(); len(got) != 1 {
		t.Fatalf("expected 1 active session, got %d", len(got))
	}

	repo.Delete(session.ID)
	if _, ok := repo.ByCode(session.JoinCode); ok {
		t.Fatalf("delete must clear the code index")
	}
}
