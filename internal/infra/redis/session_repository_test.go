package redis

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"

	"managemind-quiz-service/internal/app"
	"managemind-quiz-service/internal/infra/memory"
)

func TestSessionRepositoryMarksLiveness(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	repo := NewSessionRepository(newClient(mr), time.Minute)
	service := app.NewLiveService(repo, memory.NewQuestionSource(sampleQuestions(), nil), memory.NewGenerator(), nil)

	session, err := service.Create(context.Background(), app.BasicParams{HostID: "host-1", DurationMinutes: 10})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if !mr.Exists("live:session:" + session.ID) {
		t.Fatalf("expected id liveness marker")
	}
	if !mr.Exists("live:code:" + session.JoinCode) {
		t.Fatalf("expected code liveness marker")
	}

	// a foreign code marker counts as taken even without a local session
	mr.Set("live:code:FOREIGN", "other-instance")
	if _, taken := repo.ByCode("FOREIGN"); !taken {
		t.Fatalf("remote marker must report the code as taken")
	}

	repo.Delete(session.ID)
	if mr.Exists("live:session:" + session.ID) {
		t.Fatalf("delete must clear the id marker")
	}
	if mr.Exists("live:code:" + session.JoinCode) {
		t.Fatalf("delete must clear the code marker")
	}
}
