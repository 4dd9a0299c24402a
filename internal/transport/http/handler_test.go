package http_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"managemind-quiz-service/internal/app"
	"managemind-quiz-service/internal/client"
	"managemind-quiz-service/internal/domain"
	"managemind-quiz-service/internal/infra/memory"
	transport "managemind-quiz-service/internal/transport/http"
)

func questionSet() []domain.Question {
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
			Explanation:     "Light oscillates perpendicular to travel.",
		},
		{
			ID:    "q2",
			Text:  "Unit of frequency?",
			Topic: "Waves",
			Options: []domain.Option{
				{ID: "o1", Text: "Hertz"},
				{ID: "o2", Text: "Newton"},
			},
			CorrectOptionID: "o1",
		},
	}
}

func newTestServer(t *testing.T) (*httptest.Server, *client.HTTP) {
	t.Helper()
	source := memory.NewQuestionSource(questionSet(), nil)
	live := app.NewLiveService(memory.NewSessionRepository(), source, memory.NewGenerator(), nil)
	practice := app.NewPracticeService(source, memory.NewAttemptStore(), nil)

	mux := http.NewServeMux()
	transport.NewHandler(live, practice, nil).Register(mux)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server, client.NewHTTP(server.URL)
}

func TestLiveSessionRoundTrip(t *testing.T) {
	_, api := newTestServer(t)
	ctx := context.Background()

	session, err := api.CreateSession(ctx, client.BasicSessionParams{
		HostID: "host-1", Topic: "Waves", DurationMinutes: 10,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if session.JoinCode == "" || session.Status != domain.StatusWaiting {
		t.Fatalf("unexpected session %+v", session)
	}

	sessionID, err := api.JoinSession(ctx, session.JoinCode, "u1")
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	if sessionID != session.ID {
		t.Fatalf("join returned %q, want %q", sessionID, session.ID)
	}

	snap, err := api.SessionStatus(ctx, sessionID)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if snap.Status != domain.StatusWaiting || snap.ParticipantCount != 1 {
		t.Fatalf("unexpected snapshot %+v", snap)
	}

	if err := api.StartSession(ctx, sessionID, "host-1"); err != nil {
		t.Fatalf("start: %v", err)
	}
	questions, err := api.SessionQuestions(ctx, sessionID)
	if err != nil {
		t.Fatalf("questions: %v", err)
	}
	if len(questions) != 2 || questions[0].CorrectOptionID == "" {
		t.Fatalf("questions must round-trip with answers, got %+v", questions)
	}

	result, err := api.SubmitSessionAnswers(ctx, sessionID, domain.SessionSubmission{
		UserID: "u1",
		Answers: []domain.Submission{
			{MCQID: "q1", SelectedOptionID: "o1", TimeTakenSeconds: 4},
			{MCQID: "q2", SelectedOptionID: "o2", TimeTakenSeconds: 7},
		},
		TimeTakenSeconds: 11,
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if result.Score != 1 || result.Total != 2 {
		t.Fatalf("expected 1/2, got %d/%d", result.Score, result.Total)
	}

	if err := api.EndSession(ctx, sessionID, "host-1"); err != nil {
		t.Fatalf("end: %v", err)
	}
	report, err := api.Leaderboard(ctx, sessionID)
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if len(report.Rows) != 1 || report.Rows[0].Rank != 1 || report.Rows[0].Score != 1 {
		t.Fatalf("unexpected leaderboard %+v", report.Rows)
	}
	if report.Session.Status != domain.StatusEnded {
		t.Fatalf("summary status: %s", report.Session.Status)
	}
}

func TestErrorDetailsSurfaceThroughClient(t *testing.T) {
	_, api := newTestServer(t)
	ctx := context.Background()

	if _, err := api.JoinSession(ctx, "ZZZZZZ", "u1"); !errors.Is(err, domain.ErrJoinFailed) {
		t.Fatalf("unknown code: %v", err)
	}

	session, err := api.CreateSession(ctx, client.BasicSessionParams{HostID: "host-1", Topic: "Waves", DurationMinutes: 10})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := api.StartSession(ctx, session.ID, "intruder"); !errors.Is(err, domain.ErrStartFailed) {
		t.Fatalf("non-host start: %v", err)
	}

	// waiting sessions do not hand out questions
	if _, err := api.SessionQuestions(ctx, session.ID); err == nil {
		t.Fatalf("expected error for waiting session")
	}
}

func TestAdvancedCreateOverHTTP(t *testing.T) {
	_, api := newTestServer(t)

	session, err := api.CreateAdvancedSession(context.Background(), client.AdvancedSessionParams{
		HostID:          "host-1",
		DurationMinutes: 20,
		SyllabusSelections: []domain.SyllabusSelection{
			{Point: "4.1", Count: 3},
			{Point: "4.2", Count: 5},
		},
	})
	if err != nil {
		t.Fatalf("create advanced: %v", err)
	}
	if session.QuestionCount != 8 || !session.UsesGeneratedQuestions {
		t.Fatalf("unexpected session %+v", session)
	}
}

func TestPracticeFlowOverHTTP(t *testing.T) {
	_, api := newTestServer(t)
	ctx := context.Background()

	questions, err := api.PracticeQuestions(ctx, domain.QuestionFilter{Topic: "Waves", Limit: 5})
	if err != nil || len(questions) != 2 {
		t.Fatalf("practice questions: %v (%d)", err, len(questions))
	}

	attemptID, err := api.SubmitPracticeAttempt(ctx, domain.PracticeAttempt{
		UserID: "u1",
		Topic:  "Waves",
		Mode:   "practice",
		Submissions: []domain.Submission{
			{MCQID: "q1", SelectedOptionID: "o1", TimeTakenSeconds: 8},
		},
	})
	if err != nil || attemptID == "" {
		t.Fatalf("submit practice: %v %q", err, attemptID)
	}

	out, err := api.ExportAttemptReport(ctx, attemptID)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if !strings.Contains(string(out), "1/1") {
		t.Fatalf("report must show 1/1, got:\n%s", out)
	}

	if _, err := api.ExportAttemptReport(ctx, "missing"); err == nil {
		t.Fatalf("expected 404 for unknown attempt")
	}
}
