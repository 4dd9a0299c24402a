// Package client defines the backend collaborator consumed by the session
// controller and provides its HTTP implementation.
package client

import (
	"context"

	"managemind-quiz-service/internal/domain"
)

// BasicSessionParams creates a session from existing syllabus questions.
type BasicSessionParams struct {
	HostID          string
	Unit            string
	Topic           string
	DurationMinutes int
}

// AdvancedSessionParams creates a session with generated questions, one batch
// per syllabus point.
type AdvancedSessionParams struct {
	HostID             string                     `json:"hostId"`
	DurationMinutes    int                        `json:"durationMinutes"`
	SyllabusSelections []domain.SyllabusSelection `json:"syllabusSelections"`
}

// Backend is the request/response surface of the live quiz collaborator. The
// session record behind it is the single source of truth for status and
// participant count.
type Backend interface {
	CreateSession(ctx context.Context, params BasicSessionParams) (domain.Session, error)
	CreateAdvancedSession(ctx context.Context, params AdvancedSessionParams) (domain.Session, error)
	SessionStatus(ctx context.Context, sessionID string) (domain.StatusSnapshot, error)
	JoinSession(ctx context.Context, code, userID string) (string, error)
	StartSession(ctx context.Context, sessionID, hostID string) error
	EndSession(ctx context.Context, sessionID, hostID string) error
	SessionQuestions(ctx context.Context, sessionID string) ([]domain.Question, error)
	SubmitSessionAnswers(ctx context.Context, sessionID string, submission domain.SessionSubmission) (domain.Result, error)
	Leaderboard(ctx context.Context, sessionID string) (domain.LeaderboardReport, error)

	PracticeQuestions(ctx context.Context, filter domain.QuestionFilter) ([]domain.Question, error)
	SubmitPracticeAttempt(ctx context.Context, attempt domain.PracticeAttempt) (string, error)
	ExportAttemptReport(ctx context.Context, attemptID string) ([]byte, error)
}
