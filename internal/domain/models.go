package domain

import (
	"fmt"
	"math"
	"time"
)

// SessionStatus is the lifecycle state of a live session.
type SessionStatus string

const (
	StatusWaiting SessionStatus = "waiting"
	StatusActive  SessionStatus = "active"
	StatusEnded   SessionStatus = "ended"
)

// Session is one live, time-boxed competitive quiz instance.
type Session struct {
	ID                     string        `json:"id"`
	JoinCode               string        `json:"joinCode"`
	HostID                 string        `json:"hostId"`
	Unit                   string        `json:"unit,omitempty"`
	Topic                  string        `json:"topic"`
	Status                 SessionStatus `json:"status"`
	DurationMinutes        int           `json:"durationMinutes"`
	ParticipantCount       int           `json:"participantCount"`
	QuestionCount          int           `json:"questionCount"`
	UsesGeneratedQuestions bool          `json:"usesGeneratedQuestions"`
	CreatedAt              time.Time     `json:"createdAt"`
	StartedAt              *time.Time    `json:"startedAt,omitempty"`
}

// StatusSnapshot is the poll-friendly view of a session. The local copy held
// by a client may be stale up to one polling interval.
type StatusSnapshot struct {
	Status                 SessionStatus `json:"status"`
	ParticipantCount       int           `json:"participantCount"`
	DurationMinutes        int           `json:"durationMinutes"`
	QuestionCount          int           `json:"questionCount,omitempty"`
	UsesGeneratedQuestions bool          `json:"usesGeneratedQuestions,omitempty"`
}

// Option is one possible answer of a question.
type Option struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// Question is an MCQ with exactly one correct option. Immutable once fetched
// for an attempt.
type Question struct {
	ID              string   `json:"id"`
	Text            string   `json:"question"`
	Options         []Option `json:"options"`
	CorrectOptionID string   `json:"correctOptionId"`
	Explanation     string   `json:"explanation,omitempty"`
	Topic           string   `json:"topic,omitempty"`
}

// Validate checks the option set shape: 2-4 options, unique ids, exactly one
// matching CorrectOptionID.
func (q Question) Validate() error {
	if len(q.Options) < 2 || len(q.Options) > 4 {
		return fmt.Errorf("question %s: expected 2-4 options, got %d", q.ID, len(q.Options))
	}
	seen := make(map[string]bool, len(q.Options))
	correct := 0
	for _, opt := range q.Options {
		if seen[opt.ID] {
			return fmt.Errorf("question %s: duplicate option id %s", q.ID, opt.ID)
		}
		seen[opt.ID] = true
		if opt.ID == q.CorrectOptionID {
			correct++
		}
	}
	if correct != 1 {
		return fmt.Errorf("question %s: correct option %s not present exactly once", q.ID, q.CorrectOptionID)
	}
	return nil
}

// Submission is one answered (or timed-out) question in a batch.
// SelectedOptionID is empty for timed-out entries, which always score as
// incorrect.
type Submission struct {
	MCQID            string `json:"mcqId"`
	SelectedOptionID string `json:"selectedOptionId"`
	TimeTakenSeconds int    `json:"timeTakenSeconds"`
}

// SessionSubmission is a participant's full answer batch for a live session.
type SessionSubmission struct {
	UserID           string       `json:"userId"`
	Answers          []Submission `json:"answers"`
	TimeTakenSeconds int          `json:"timeTakenSeconds"`
}

// PracticeAttempt is a standalone (non-live) quiz attempt.
type PracticeAttempt struct {
	UserID      string       `json:"userId"`
	Topic       string       `json:"topic"`
	Mode        string       `json:"mode"`
	Submissions []Submission `json:"submissions"`
}

// Result is a score over attempted questions. Total counts attempted entries,
// not the full question set.
type Result struct {
	Score int `json:"score"`
	Total int `json:"total"`
}

// Accuracy returns the rounded percentage of correct answers, 0 when nothing
// was attempted.
func (r Result) Accuracy() int {
	if r.Total <= 0 {
		return 0
	}
	return int(math.Round(100 * float64(r.Score) / float64(r.Total)))
}

// LeaderboardRow is one ranked entry of a session leaderboard.
type LeaderboardRow struct {
	Rank             int    `json:"rank"`
	UserID           string `json:"userId"`
	DisplayName      string `json:"displayName"`
	Score            int    `json:"score"`
	TimeTakenSeconds int    `json:"timeTakenSeconds"`
}

// SessionSummary identifies a session on a leaderboard report.
type SessionSummary struct {
	JoinCode string        `json:"joinCode"`
	Topic    string        `json:"topic"`
	Status   SessionStatus `json:"status"`
}

// LeaderboardReport is the final scoreboard for a session, ordered by score
// descending with ties broken by lower time taken.
type LeaderboardReport struct {
	Session SessionSummary   `json:"session"`
	Rows    []LeaderboardRow `json:"leaderboard"`
}

// SyllabusSelection is one syllabus point with its generated-question count
// for an advanced session.
type SyllabusSelection struct {
	Point string `json:"point"`
	Count int    `json:"count"`
}

// AttemptRecord is a stored practice attempt with its server-side score.
type AttemptRecord struct {
	ID          string       `json:"id"`
	UserID      string       `json:"userId"`
	Topic       string       `json:"topic"`
	Mode        string       `json:"mode"`
	Submissions []Submission `json:"submissions"`
	Score       int          `json:"score"`
	Total       int          `json:"total"`
	CreatedAt   time.Time    `json:"createdAt"`
}

// QuestionFilter narrows a practice question fetch.
type QuestionFilter struct {
	Unit  string
	Topic string
	Limit int
}
