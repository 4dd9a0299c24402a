// Package app contains the server-side use cases: live session hosting and
// standalone practice attempts.
package app

import (
	"context"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"managemind-quiz-service/internal/domain"
)

// QuestionSource supplies MCQs from a cache or backing store.
type QuestionSource interface {
	Search(ctx context.Context, filter domain.QuestionFilter) ([]domain.Question, error)
	ByIDs(ctx context.Context, ids []string) ([]domain.Question, error)
}

// Generator produces fresh questions for one syllabus point.
type Generator interface {
	Generate(ctx context.Context, point string, count int) ([]domain.Question, error)
}

// SessionRepository abstracts how live sessions are stored (in-memory, with
// optional Redis liveness markers).
type SessionRepository interface {
	Put(session *LiveSession)
	Get(id string) (*LiveSession, bool)
	ByCode(code string) (*LiveSession, bool)
	Delete(id string)
	Active() []*LiveSession
}

// BasicParams creates a session from existing syllabus questions.
type BasicParams struct {
	HostID          string
	Unit            string
	Topic           string
	DurationMinutes int
}

const (
	codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	codeLength   = 6
	codeRetries  = 10

	minGeneratedPerPoint = 1
	maxGeneratedPerPoint = 15
)

// LiveService contains the live session use cases. The session record it
// keeps is the single source of truth for status and participant count.
type LiveService struct {
	log       *zap.Logger
	sessions  SessionRepository
	questions QuestionSource
	generator Generator

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewLiveService(sessions SessionRepository, questions QuestionSource, generator Generator, log *zap.Logger) *LiveService {
	if log == nil {
		log = zap.NewNop()
	}
	return &LiveService{
		log:       log,
		sessions:  sessions,
		questions: questions,
		generator: generator,
		rnd:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Create builds a waiting session over existing syllabus questions.
func (s *LiveService) Create(ctx context.Context, params BasicParams) (domain.Session, error) {
	topic := params.Topic
	if topic == "" {
		topic = "Full Unit"
	}
	// "Full Unit" is the display name for an unfiltered topic
	filterTopic := params.Topic
	if strings.EqualFold(filterTopic, "Full Unit") {
		filterTopic = ""
	}
	questions, err := s.questions.Search(ctx, domain.QuestionFilter{Unit: params.Unit, Topic: filterTopic})
	if err != nil {
		return domain.Session{}, err
	}
	if len(questions) == 0 {
		return domain.Session{}, domain.ErrNoQuestions
	}
	return s.newSession(params.HostID, params.Unit, topic, params.DurationMinutes, questions, false)
}

// CreateAdvanced builds a waiting session from generated questions, one batch
// per syllabus point. Counts are clamped to the per-point range.
func (s *LiveService) CreateAdvanced(ctx context.Context, hostID string, durationMinutes int, selections []domain.SyllabusSelection) (domain.Session, error) {
	if len(selections) == 0 {
		return domain.Session{}, domain.ErrNoQuestions
	}
	var questions []domain.Question
	topics := make([]string, 0, len(selections))
	for _, sel := range selections {
		count := sel.Count
		if count < minGeneratedPerPoint {
			count = minGeneratedPerPoint
		}
		if count > maxGeneratedPerPoint {
			count = maxGeneratedPerPoint
		}
		batch, err := s.generator.Generate(ctx, sel.Point, count)
		if err != nil {
			return domain.Session{}, err
		}
		questions = append(questions, batch...)
		topics = append(topics, sel.Point)
	}
	if len(questions) == 0 {
		return domain.Session{}, domain.ErrNoQuestions
	}
	topic := strings.Join(topics, ", ")
	return s.newSession(hostID, "", topic, durationMinutes, questions, true)
}

func (s *LiveService) newSession(hostID, unit, topic string, durationMinutes int, questions []domain.Question, generated bool) (domain.Session, error) {
	for _, q := range questions {
		if err := q.Validate(); err != nil {
			return domain.Session{}, err
		}
	}
	code, err := s.uniqueCode()
	if err != nil {
		return domain.Session{}, err
	}
	session := newLiveSession(domain.Session{
		ID:                     uuid.NewString(),
		JoinCode:               code,
		HostID:                 hostID,
		Unit:                   unit,
		Topic:                  topic,
		Status:                 domain.StatusWaiting,
		DurationMinutes:        durationMinutes,
		QuestionCount:          len(questions),
		UsesGeneratedQuestions: generated,
		CreatedAt:              time.Now().UTC(),
	}, questions)
	s.sessions.Put(session)
	s.log.Info("session created",
		zap.String("sessionId", session.meta.ID),
		zap.String("joinCode", code),
		zap.Int("questions", len(questions)))
	return session.Snapshot(), nil
}

// uniqueCode draws join codes until one misses the code index.
func (s *LiveService) uniqueCode() (string, error) {
	for i := 0; i < codeRetries; i++ {
		code := s.randomCode()
		if _, taken := s.sessions.ByCode(code); !taken {
			return code, nil
		}
	}
	return "", domain.ErrCreationFailed
}

func (s *LiveService) randomCode() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	buf := make([]byte, codeLength)
	for i := range buf {
		buf[i] = codeAlphabet[s.rnd.Intn(len(codeAlphabet))]
	}
	return string(buf)
}

// Join registers a participant by join code. Joining twice is a no-op that
// returns the same session. Codes are matched case-insensitively.
func (s *LiveService) Join(ctx context.Context, code, userID, displayName string) (string, error) {
	session, ok := s.sessions.ByCode(strings.ToUpper(strings.TrimSpace(code)))
	if !ok || session == nil {
		// a nil session with ok set means the code is only a remote liveness
		// marker; this instance cannot serve it
		return "", domain.ErrSessionNotFound
	}
	if err := session.join(userID, displayName); err != nil {
		return "", err
	}
	return session.meta.ID, nil
}

// Status returns the poll-friendly view of a session.
func (s *LiveService) Status(_ context.Context, sessionID string) (domain.StatusSnapshot, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return domain.StatusSnapshot{}, domain.ErrSessionNotFound
	}
	return session.status(), nil
}

// Start activates a waiting session. Only the host may start it.
func (s *LiveService) Start(_ context.Context, sessionID, hostID string) error {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return domain.ErrSessionNotFound
	}
	return session.start(hostID)
}

// End closes a session. Only the host may end it; ending twice is a no-op.
func (s *LiveService) End(_ context.Context, sessionID, hostID string) error {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return domain.ErrSessionNotFound
	}
	return session.end(hostID)
}

// Questions returns the full question set of an active session.
func (s *LiveService) Questions(_ context.Context, sessionID string) ([]domain.Question, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return session.questionSet()
}

// Submit records a participant's one-and-only answer batch and scores it.
func (s *LiveService) Submit(_ context.Context, sessionID string, submission domain.SessionSubmission) (domain.Result, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return domain.Result{}, domain.ErrSessionNotFound
	}
	return session.submit(submission)
}

// Leaderboard returns the ranked scoreboard for a session.
func (s *LiveService) Leaderboard(_ context.Context, sessionID string) (domain.LeaderboardReport, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return domain.LeaderboardReport{}, domain.ErrSessionNotFound
	}
	return session.leaderboard(), nil
}

// SubscribeLobby returns a channel of status updates for the waiting room.
// The caller must invoke the returned cancel function to avoid leaks.
func (s *LiveService) SubscribeLobby(_ context.Context, sessionID string) (<-chan domain.StatusSnapshot, func(), error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return nil, nil, domain.ErrSessionNotFound
	}
	ch, cancel := session.subscribe()
	return ch, cancel, nil
}

// ExpireOverdue ends every active session whose duration has elapsed. The
// sweeper calls this periodically.
func (s *LiveService) ExpireOverdue(now time.Time) int {
	expired := 0
	for _, session := range s.sessions.Active() {
		if session.expire(now) {
			expired++
			s.log.Info("session expired", zap.String("sessionId", session.meta.ID))
		}
	}
	return expired
}

// LiveSession is the in-memory record of one live session.
type LiveSession struct {
	mu           sync.RWMutex
	meta         domain.Session
	questions    []domain.Question
	participants map[string]*participant
	subscribers  map[chan domain.StatusSnapshot]struct{}
}

type participant struct {
	userID      string
	displayName string
	joinedAt    time.Time
	submitted   bool
	score       int
	total       int
	timeTaken   int
	submittedAt time.Time
}

func newLiveSession(meta domain.Session, questions []domain.Question) *LiveSession {
	return &LiveSession{
		meta:         meta,
		questions:    questions,
		participants: make(map[string]*participant),
		subscribers:  make(map[chan domain.StatusSnapshot]struct{}),
	}
}

// Snapshot returns the session metadata with the current participant count.
func (l *LiveSession) Snapshot() domain.Session {
	l.mu.RLock()
	defer l.mu.RUnlock()
	meta := l.meta
	meta.ParticipantCount = len(l.participants)
	return meta
}

// ID returns the session identifier.
func (l *LiveSession) ID() string { return l.meta.ID }

// JoinCode returns the session's join code.
func (l *LiveSession) JoinCode() string { return l.meta.JoinCode }

// IsActive reports whether the session is running.
func (l *LiveSession) IsActive() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.meta.Status == domain.StatusActive
}

func (l *LiveSession) status() domain.StatusSnapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.statusLocked()
}

func (l *LiveSession) statusLocked() domain.StatusSnapshot {
	return domain.StatusSnapshot{
		Status:                 l.meta.Status,
		ParticipantCount:       len(l.participants),
		DurationMinutes:        l.meta.DurationMinutes,
		QuestionCount:          l.meta.QuestionCount,
		UsesGeneratedQuestions: l.meta.UsesGeneratedQuestions,
	}
}

func (l *LiveSession) join(userID, displayName string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.meta.Status == domain.StatusEnded {
		return domain.ErrSessionEnded
	}
	if p, ok := l.participants[userID]; ok {
		if displayName != "" {
			p.displayName = displayName
		}
		return nil
	}
	l.participants[userID] = &participant{
		userID:      userID,
		displayName: displayName,
		joinedAt:    time.Now().UTC(),
	}
	l.broadcastLocked()
	return nil
}

func (l *LiveSession) start(hostID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.meta.HostID != hostID {
		return domain.ErrNotHost
	}
	if l.meta.Status != domain.StatusWaiting {
		return domain.ErrStartFailed
	}
	now := time.Now().UTC()
	l.meta.Status = domain.StatusActive
	l.meta.StartedAt = &now
	l.broadcastLocked()
	return nil
}

func (l *LiveSession) end(hostID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.meta.HostID != hostID {
		return domain.ErrNotHost
	}
	if l.meta.Status == domain.StatusEnded {
		return nil
	}
	l.meta.Status = domain.StatusEnded
	l.broadcastLocked()
	return nil
}

// expire force-ends the session once its window has elapsed, regardless of
// the host.
func (l *LiveSession) expire(now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.meta.Status != domain.StatusActive || l.meta.StartedAt == nil || l.meta.DurationMinutes <= 0 {
		return false
	}
	deadline := l.meta.StartedAt.Add(time.Duration(l.meta.DurationMinutes) * time.Minute)
	if now.Before(deadline) {
		return false
	}
	l.meta.Status = domain.StatusEnded
	l.broadcastLocked()
	return true
}

func (l *LiveSession) questionSet() ([]domain.Question, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.meta.Status != domain.StatusActive {
		return nil, domain.ErrSessionNotActive
	}
	out := make([]domain.Question, len(l.questions))
	copy(out, l.questions)
	return out, nil
}

func (l *LiveSession) submit(submission domain.SessionSubmission) (domain.Result, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	switch l.meta.Status {
	case domain.StatusEnded:
		return domain.Result{}, domain.ErrSessionEnded
	case domain.StatusWaiting:
		return domain.Result{}, domain.ErrSessionNotActive
	}
	p, ok := l.participants[submission.UserID]
	if !ok {
		return domain.Result{}, domain.ErrParticipantNotFound
	}
	if p.submitted {
		return domain.Result{}, domain.ErrAlreadySubmitted
	}

	byID := make(map[string]domain.Question, len(l.questions))
	for _, q := range l.questions {
		byID[q.ID] = q
	}
	score := 0
	for _, answer := range submission.Answers {
		q, known := byID[answer.MCQID]
		if known && answer.SelectedOptionID != "" && answer.SelectedOptionID == q.CorrectOptionID {
			score++
		}
	}

	p.submitted = true
	p.score = score
	p.total = len(submission.Answers)
	p.timeTaken = submission.TimeTakenSeconds
	p.submittedAt = time.Now().UTC()
	return domain.Result{Score: score, Total: p.total}, nil
}

// leaderboard ranks participants by score descending, ties broken by lower
// time taken. Ranks are contiguous and 1-based.
func (l *LiveSession) leaderboard() domain.LeaderboardReport {
	l.mu.RLock()
	defer l.mu.RUnlock()

	rows := make([]domain.LeaderboardRow, 0, len(l.participants))
	for _, p := range l.participants {
		name := p.displayName
		if name == "" {
			name = p.userID
		}
		rows = append(rows, domain.LeaderboardRow{
			UserID:           p.userID,
			DisplayName:      name,
			Score:            p.score,
			TimeTakenSeconds: p.timeTaken,
		})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Score != rows[j].Score {
			return rows[i].Score > rows[j].Score
		}
		if rows[i].TimeTakenSeconds != rows[j].TimeTakenSeconds {
			return rows[i].TimeTakenSeconds < rows[j].TimeTakenSeconds
		}
		return rows[i].UserID < rows[j].UserID
	})
	for i := range rows {
		rows[i].Rank = i + 1
	}

	return domain.LeaderboardReport{
		Session: domain.SessionSummary{
			JoinCode: l.meta.JoinCode,
			Topic:    l.meta.Topic,
			Status:   l.meta.Status,
		},
		Rows: rows,
	}
}

func (l *LiveSession) subscribe() (<-chan domain.StatusSnapshot, func()) {
	ch := make(chan domain.StatusSnapshot, 8)

	l.mu.Lock()
	l.subscribers[ch] = struct{}{}
	initial := l.statusLocked()
	l.mu.Unlock()

	ch <- initial

	cancel := func() {
		l.mu.Lock()
		if _, ok := l.subscribers[ch]; ok {
			delete(l.subscribers, ch)
			close(ch)
		}
		l.mu.Unlock()
	}
	return ch, cancel
}

func (l *LiveSession) broadcastLocked() {
	snap := l.statusLocked()
	for ch := range l.subscribers {
		select {
		case ch <- snap:
		default:
			// drop the stale update so a slow reader cannot block the rest
			select {
			case <-ch:
			default:
			}
			ch <- snap
		}
	}
}
