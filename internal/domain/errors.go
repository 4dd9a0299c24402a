package domain

import "errors"

var (
	// ErrCreationFailed is returned when a session could not be created.
	ErrCreationFailed = errors.New("session creation failed")
	// ErrJoinFailed is returned for an invalid or expired join code.
	ErrJoinFailed = errors.New("invalid or expired join code")
	// ErrStartFailed is returned when the start request was rejected.
	ErrStartFailed = errors.New("session start failed")
	// ErrEndFailed is returned when the end request was rejected.
	ErrEndFailed = errors.New("session end failed")
	// ErrSubmissionFailed is returned when an answer batch could not be recorded.
	ErrSubmissionFailed = errors.New("answer submission failed")
	// ErrLeaderboardUnavailable is returned when the leaderboard could not be fetched.
	ErrLeaderboardUnavailable = errors.New("leaderboard unavailable")

	// ErrSessionNotFound is returned when a session id or code resolves to nothing.
	ErrSessionNotFound = errors.New("live session not found")
	// ErrSessionNotActive is returned for question fetches and submissions
	// outside the active window.
	ErrSessionNotActive = errors.New("session is not active")
	// ErrSessionEnded is returned when joining a session that already ended.
	ErrSessionEnded = errors.New("session has already ended")
	// ErrNotHost is returned when a non-host tries to start or end a session.
	ErrNotHost = errors.New("only the host may do this")
	// ErrParticipantNotFound is returned when a user submits without joining.
	ErrParticipantNotFound = errors.New("participant not found in session")
	// ErrAlreadySubmitted is returned on a duplicate submission for one attempt.
	ErrAlreadySubmitted = errors.New("answers already submitted")
	// ErrAttemptNotFound is returned when an attempt id resolves to nothing.
	ErrAttemptNotFound = errors.New("attempt not found")
	// ErrNoQuestions indicates the question source had nothing for the filter.
	ErrNoQuestions = errors.New("no questions available")
)
