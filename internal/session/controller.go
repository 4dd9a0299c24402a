// Package session implements the host/participant lifecycle state machine
// around a live quiz: create/join, status polling, start/end, and the
// handoff to the quiz engine during the active window.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"managemind-quiz-service/internal/client"
	"managemind-quiz-service/internal/clock"
	"managemind-quiz-service/internal/domain"
	"managemind-quiz-service/internal/engine"
)

// State is the controller's position on the lifecycle state machine. Host and
// participant paths share the machine with two entry points from StateIdle.
type State int

const (
	StateIdle State = iota
	StateHostSelectingMode
	StateHostConfiguring
	StateHostWaiting
	StateHostActive
	StateLeaderboard
	StateJoining
	StateParticipantWaiting
	StateParticipantActive
	StateParticipantResult
)

var stateNames = map[State]string{
	StateIdle:               "idle",
	StateHostSelectingMode:  "hostSelectingMode",
	StateHostConfiguring:    "hostConfiguring",
	StateHostWaiting:        "hostWaiting",
	StateHostActive:         "hostActive",
	StateLeaderboard:        "leaderboard",
	StateJoining:            "joining",
	StateParticipantWaiting: "participantWaiting",
	StateParticipantActive:  "participantActive",
	StateParticipantResult:  "participantResult",
}

func (s State) String() string { return stateNames[s] }

// polls reports whether the state carries the recurring status poll.
func (s State) polls() bool {
	return s == StateHostWaiting || s == StateHostActive || s == StateParticipantWaiting
}

// ConfigMode distinguishes the two host setup forms.
type ConfigMode int

const (
	ConfigBasic ConfigMode = iota
	ConfigAdvanced
)

const (
	// DefaultPollInterval is the status poll cadence.
	DefaultPollInterval = 3 * time.Second
	minJoinCodeLen      = 3
	minDurationMinutes  = 5
	maxDurationMinutes  = 120
	durationStep        = 5
	minPointCount       = 1
	maxPointCount       = 15
)

var (
	// ErrNoSelections rejects an advanced setup with zero syllabus points;
	// no request is sent.
	ErrNoSelections = errors.New("select at least one syllabus point")
	// ErrCodeTooShort rejects a join code under three characters locally.
	ErrCodeTooShort = errors.New("join code too short")
	// ErrWrongState is returned when an operation does not apply to the
	// current state.
	ErrWrongState = errors.New("operation not allowed in current state")
)

// Options configures a Controller.
type Options struct {
	Backend client.Backend
	UserID  string
	Logger  *zap.Logger
	// PollInterval overrides the 3-second status poll cadence (tests).
	PollInterval time.Duration
	// TickInterval overrides the 1-second clock resolution (tests).
	TickInterval time.Duration
	// QuestionSeconds overrides the engine's per-question window.
	QuestionSeconds int
	// OnStateChange is invoked, outside the controller lock, after every
	// state transition.
	OnStateChange func(State)
}

// Controller is one client's session lifecycle state machine. All in-memory
// session data is a snapshot of the remote record; the remote side alone
// authorizes start/end.
type Controller struct {
	mu sync.Mutex

	log             *zap.Logger
	backend         client.Backend
	userID          string
	pollInterval    time.Duration
	tickInterval    time.Duration
	questionSeconds int
	onStateChange   func(State)

	state      State
	configMode ConfigMode
	session    domain.Session
	hasSession bool

	quiz             *engine.Engine
	sessionClock     *clock.Countdown
	sessionRemaining int
	activating       bool
	activateGen      uint64

	pollStop chan struct{}
	pollGen  uint64

	lastErr     error
	myResult    *domain.Result
	leaderboard *domain.LeaderboardReport
}

// NewController returns a controller in the idle state.
func NewController(opts Options) *Controller {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.TickInterval <= 0 {
		opts.TickInterval = time.Second
	}
	if opts.QuestionSeconds <= 0 {
		opts.QuestionSeconds = engine.DefaultQuestionSeconds
	}
	return &Controller{
		log:             opts.Logger,
		backend:         opts.Backend,
		userID:          opts.UserID,
		pollInterval:    opts.PollInterval,
		tickInterval:    opts.TickInterval,
		questionSeconds: opts.QuestionSeconds,
		onStateChange:   opts.OnStateChange,
		state:           StateIdle,
		sessionClock:    clock.NewWithInterval(opts.TickInterval),
	}
}

// ── host path ───────────────────────────────────────────────────────────

// SelectHostRole enters the host setup flow.
func (c *Controller) SelectHostRole() error {
	return c.simpleTransition(StateIdle, StateHostSelectingMode)
}

// ChooseSetupMode picks the basic or advanced configuration form.
func (c *Controller) ChooseSetupMode(mode ConfigMode) error {
	c.mu.Lock()
	if c.state != StateHostSelectingMode {
		c.mu.Unlock()
		return ErrWrongState
	}
	c.configMode = mode
	c.state = StateHostConfiguring
	c.mu.Unlock()
	c.notify(StateHostConfiguring)
	return nil
}

// CreateBasicSession creates a session from existing syllabus questions and
// enters the host waiting room. Failure stays in the configuring state with a
// retryable error.
func (c *Controller) CreateBasicSession(ctx context.Context, unit, topic string, durationMinutes int) error {
	c.mu.Lock()
	if c.state != StateHostConfiguring || c.configMode != ConfigBasic {
		c.mu.Unlock()
		return ErrWrongState
	}
	c.lastErr = nil
	c.mu.Unlock()

	if topic == "" {
		topic = "Full Unit"
	}
	session, err := c.backend.CreateSession(ctx, client.BasicSessionParams{
		HostID:          c.userID,
		Unit:            unit,
		Topic:           topic,
		DurationMinutes: clampDuration(durationMinutes),
	})
	if err != nil {
		c.fail(err)
		return err
	}
	c.enterHostWaiting(session)
	return nil
}

// CreateAdvancedSession creates a session with generated questions. Zero
// selections are rejected locally without a request; per-point counts are
// clamped to 1-15 and the duration to 5-120 in steps of 5.
func (c *Controller) CreateAdvancedSession(ctx context.Context, selections []domain.SyllabusSelection, durationMinutes int) error {
	c.mu.Lock()
	if c.state != StateHostConfiguring || c.configMode != ConfigAdvanced {
		c.mu.Unlock()
		return ErrWrongState
	}
	c.lastErr = nil
	c.mu.Unlock()

	if len(selections) == 0 {
		c.fail(ErrNoSelections)
		return ErrNoSelections
	}
	normalized := make([]domain.SyllabusSelection, len(selections))
	for i, sel := range selections {
		count := sel.Count
		if count < minPointCount {
			count = minPointCount
		}
		if count > maxPointCount {
			count = maxPointCount
		}
		normalized[i] = domain.SyllabusSelection{Point: sel.Point, Count: count}
	}

	session, err := c.backend.CreateAdvancedSession(ctx, client.AdvancedSessionParams{
		HostID:             c.userID,
		DurationMinutes:    clampDuration(durationMinutes),
		SyllabusSelections: normalized,
	})
	if err != nil {
		c.fail(err)
		return err
	}
	c.enterHostWaiting(session)
	return nil
}

func (c *Controller) enterHostWaiting(session domain.Session) {
	c.mu.Lock()
	c.session = session
	c.hasSession = true
	c.state = StateHostWaiting
	c.startPollingLocked()
	c.mu.Unlock()
	c.notify(StateHostWaiting)
}

// StartSession asks the backend to activate the session. Only the remote side
// decides whether this host may start it.
func (c *Controller) StartSession(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateHostWaiting {
		c.mu.Unlock()
		return ErrWrongState
	}
	sessionID := c.session.ID
	c.lastErr = nil
	c.mu.Unlock()

	if err := c.backend.StartSession(ctx, sessionID, c.userID); err != nil {
		c.fail(err)
		return err
	}
	c.mu.Lock()
	c.session.Status = domain.StatusActive
	c.state = StateHostActive
	// re-entering a polling state replaces any stale loop
	c.startPollingLocked()
	c.mu.Unlock()
	c.notify(StateHostActive)
	return nil
}

// CancelSession abandons a waiting session and returns to idle. No
// submissions exist yet, so there is nothing else to unwind.
func (c *Controller) CancelSession() error {
	c.mu.Lock()
	if c.state != StateHostWaiting {
		c.mu.Unlock()
		return ErrWrongState
	}
	c.mu.Unlock()
	c.Reset()
	return nil
}

// EndSession ends the session and moves to the leaderboard. A failed
// leaderboard fetch does not block the transition; it renders empty.
func (c *Controller) EndSession(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateHostActive {
		c.mu.Unlock()
		return ErrWrongState
	}
	sessionID := c.session.ID
	c.lastErr = nil
	c.mu.Unlock()

	if err := c.backend.EndSession(ctx, sessionID, c.userID); err != nil {
		c.fail(err)
		return err
	}

	report, err := c.backend.Leaderboard(ctx, sessionID)
	if err != nil {
		c.log.Warn("leaderboard fetch failed, rendering empty", zap.Error(err))
		report = domain.LeaderboardReport{
			Session: domain.SessionSummary{JoinCode: c.session.JoinCode, Topic: c.session.Topic, Status: domain.StatusEnded},
		}
	}

	c.mu.Lock()
	c.stopPollingLocked()
	c.session.Status = domain.StatusEnded
	c.leaderboard = &report
	c.state = StateLeaderboard
	c.mu.Unlock()
	c.notify(StateLeaderboard)
	return nil
}

// ── participant path ────────────────────────────────────────────────────

// SelectParticipantRole enters the join flow.
func (c *Controller) SelectParticipantRole() error {
	return c.simpleTransition(StateIdle, StateJoining)
}

// NormalizeJoinCode upper-cases and trims a join code.
func NormalizeJoinCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// JoinEligible reports whether a code is long enough to submit.
func JoinEligible(code string) bool {
	return len(NormalizeJoinCode(code)) >= minJoinCodeLen
}

// SubmitJoinCode joins a session by code. One immediate status fetch decides
// whether the participant goes to the waiting room or straight into the
// active quiz. Failure surfaces a retryable error with no state change.
func (c *Controller) SubmitJoinCode(ctx context.Context, code string) error {
	c.mu.Lock()
	if c.state != StateJoining {
		c.mu.Unlock()
		return ErrWrongState
	}
	c.lastErr = nil
	c.mu.Unlock()

	normalized := NormalizeJoinCode(code)
	if len(normalized) < minJoinCodeLen {
		err := fmt.Errorf("%w: %q", ErrCodeTooShort, normalized)
		c.fail(err)
		return err
	}

	sessionID, err := c.backend.JoinSession(ctx, normalized, c.userID)
	if err != nil {
		c.fail(err)
		return err
	}
	snap, err := c.backend.SessionStatus(ctx, sessionID)
	if err != nil {
		c.fail(err)
		return err
	}

	c.mu.Lock()
	c.session = domain.Session{ID: sessionID, JoinCode: normalized}
	c.hasSession = true
	c.mergeSnapshotLocked(snap)
	if snap.Status == domain.StatusActive {
		c.mu.Unlock()
		c.activateParticipant()
		return nil
	}
	c.state = StateParticipantWaiting
	c.startPollingLocked()
	c.mu.Unlock()
	c.notify(StateParticipantWaiting)
	return nil
}

// activateParticipant fetches the question set and hands control to the quiz
// engine wrapped with the session clock. On fetch failure the participant
// stays in (or returns to) the waiting room and the next poll retries.
func (c *Controller) activateParticipant() {
	c.mu.Lock()
	if c.activating || c.state == StateParticipantActive {
		c.mu.Unlock()
		return
	}
	c.activating = true
	gen := c.activateGen
	sessionID := c.session.ID
	duration := c.session.DurationMinutes
	c.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	questions, err := c.backend.SessionQuestions(ctx, sessionID)
	cancel()
	if err != nil || len(questions) == 0 {
		if err == nil {
			err = domain.ErrNoQuestions
		}
		c.log.Warn("question fetch failed, staying in waiting room", zap.Error(err))
		c.mu.Lock()
		if gen != c.activateGen {
			// a reset landed while the fetch was in flight; it wins
			c.mu.Unlock()
			return
		}
		c.activating = false
		c.lastErr = err
		demoted := false
		if c.state == StateJoining {
			c.state = StateParticipantWaiting
			c.startPollingLocked()
			demoted = true
		}
		c.mu.Unlock()
		if demoted {
			c.notify(StateParticipantWaiting)
		}
		return
	}

	quiz := engine.New(engine.Options{
		QuestionSeconds: c.questionSeconds,
		Clock:           clock.NewWithInterval(c.tickInterval),
		Scorer:          liveScorer{backend: c.backend, sessionID: sessionID, userID: c.userID},
		OnFinished:      c.handleQuizFinished,
		Logger:          c.log,
	})

	c.mu.Lock()
	if gen != c.activateGen {
		// same stale-response rule as applyPoll: a reset issued during the
		// fetch must not be clobbered by a late activation
		c.mu.Unlock()
		quiz.Abandon()
		return
	}
	c.activating = false
	c.stopPollingLocked()
	c.quiz = quiz
	c.state = StateParticipantActive
	if seconds := duration * 60; seconds > 0 {
		c.sessionRemaining = seconds
		c.sessionClock.Start(seconds,
			func(remaining int) {
				c.mu.Lock()
				c.sessionRemaining = remaining
				c.mu.Unlock()
			},
			func() {
				// session expiry forces submission regardless of per-question state
				c.ForceSubmit()
			},
		)
	}
	c.mu.Unlock()
	c.notify(StateParticipantActive)

	if err := quiz.SetQuestions(questions); err != nil {
		c.log.Warn("quiz activation failed", zap.Error(err))
	}
}

// Quiz returns the engine driving the active attempt, nil outside
// participantActive and participantResult.
func (c *Controller) Quiz() *engine.Engine {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.quiz
}

// ForceSubmit forces submission of whatever is answered so far: the session
// timeout and the explicit early-exit request both land here.
func (c *Controller) ForceSubmit() {
	c.mu.Lock()
	quiz := c.quiz
	c.sessionClock.Cancel()
	c.mu.Unlock()
	if quiz == nil {
		return
	}
	if err := quiz.ForceFinish(context.Background()); err != nil {
		c.log.Warn("forced submission failed", zap.Error(err))
	}
}

// handleQuizFinished is the engine's completion signal. The participant sees
// the reconciled result and waits for the host to end the session.
func (c *Controller) handleQuizFinished(outcome engine.Outcome) {
	c.mu.Lock()
	if c.state != StateParticipantActive {
		c.mu.Unlock()
		return
	}
	c.sessionClock.Cancel()
	result := outcome.Final
	c.myResult = &result
	c.state = StateParticipantResult
	c.mu.Unlock()
	c.notify(StateParticipantResult)
}

// ── polling ─────────────────────────────────────────────────────────────

// startPollingLocked replaces any running poll loop with a fresh one bound to
// the current state.
func (c *Controller) startPollingLocked() {
	c.stopPollingLocked()
	stop := make(chan struct{})
	c.pollStop = stop
	gen := c.pollGen
	sessionID := c.session.ID
	go c.pollLoop(stop, gen, sessionID)
}

func (c *Controller) stopPollingLocked() {
	if c.pollStop != nil {
		close(c.pollStop)
		c.pollStop = nil
	}
	c.pollGen++
}

func (c *Controller) pollLoop(stop chan struct{}, gen uint64, sessionID string) {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), c.pollInterval*2)
			snap, err := c.backend.SessionStatus(ctx, sessionID)
			cancel()
			if err != nil {
				// transient poll errors are swallowed and retried next interval
				continue
			}
			c.applyPoll(gen, snap)
		}
	}
}

// applyPoll merges a poll result into the session snapshot. Responses that
// arrive after the controller left the polling state are discarded.
func (c *Controller) applyPoll(gen uint64, snap domain.StatusSnapshot) {
	c.mu.Lock()
	if gen != c.pollGen || !c.state.polls() {
		c.mu.Unlock()
		return
	}
	c.mergeSnapshotLocked(snap)
	if c.state == StateParticipantWaiting && snap.Status == domain.StatusEnded {
		// the session died before it ever started; stop waiting on it
		c.stopPollingLocked()
		c.session = domain.Session{}
		c.hasSession = false
		c.lastErr = domain.ErrSessionEnded
		c.state = StateIdle
		c.mu.Unlock()
		c.notify(StateIdle)
		return
	}
	activate := c.state == StateParticipantWaiting && snap.Status == domain.StatusActive
	c.mu.Unlock()
	if activate {
		c.activateParticipant()
	}
}

func (c *Controller) mergeSnapshotLocked(snap domain.StatusSnapshot) {
	c.session.Status = snap.Status
	c.session.ParticipantCount = snap.ParticipantCount
	if snap.DurationMinutes > 0 {
		c.session.DurationMinutes = snap.DurationMinutes
	}
	if snap.QuestionCount > 0 {
		c.session.QuestionCount = snap.QuestionCount
	}
	c.session.UsesGeneratedQuestions = snap.UsesGeneratedQuestions
}

// ── shared ──────────────────────────────────────────────────────────────

// Reset cancels all timers and polling and returns to idle, discarding all
// in-memory session data.
func (c *Controller) Reset() {
	c.mu.Lock()
	c.stopPollingLocked()
	c.sessionClock.Cancel()
	quiz := c.quiz
	c.quiz = nil
	c.session = domain.Session{}
	c.hasSession = false
	c.sessionRemaining = 0
	c.activating = false
	c.activateGen++
	c.myResult = nil
	c.leaderboard = nil
	c.lastErr = nil
	c.state = StateIdle
	c.mu.Unlock()
	if quiz != nil {
		quiz.Abandon()
	}
	c.notify(StateIdle)
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Session returns the local session snapshot.
func (c *Controller) Session() (domain.Session, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session, c.hasSession
}

// Err returns the last retryable inline error, if any.
func (c *Controller) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// MyResult returns the participant's reconciled result once finished.
func (c *Controller) MyResult() (domain.Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.myResult == nil {
		return domain.Result{}, false
	}
	return *c.myResult, true
}

// LeaderboardReport returns the fetched leaderboard, empty-but-present after
// a failed fetch.
func (c *Controller) LeaderboardReport() (domain.LeaderboardReport, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.leaderboard == nil {
		return domain.LeaderboardReport{}, false
	}
	return *c.leaderboard, true
}

// SessionRemaining returns the seconds left on the session clock.
func (c *Controller) SessionRemaining() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionRemaining
}

func (c *Controller) simpleTransition(from, to State) error {
	c.mu.Lock()
	if c.state != from {
		c.mu.Unlock()
		return ErrWrongState
	}
	c.state = to
	c.mu.Unlock()
	c.notify(to)
	return nil
}

func (c *Controller) fail(err error) {
	c.mu.Lock()
	c.lastErr = err
	c.mu.Unlock()
}

func (c *Controller) notify(s State) {
	if c.onStateChange != nil {
		c.onStateChange(s)
	}
}

func clampDuration(minutes int) int {
	if minutes < minDurationMinutes {
		return minDurationMinutes
	}
	if minutes > maxDurationMinutes {
		return maxDurationMinutes
	}
	// snap to the 5-minute step
	return (minutes / durationStep) * durationStep
}

// liveScorer submits a live batch; the session collaborator returns the
// authoritative result but no exportable attempt id.
type liveScorer struct {
	backend   client.Backend
	sessionID string
	userID    string
}

func (s liveScorer) Score(ctx context.Context, batch []domain.Submission, timeTaken int) (*domain.Result, string, error) {
	result, err := s.backend.SubmitSessionAnswers(ctx, s.sessionID, domain.SessionSubmission{
		UserID:           s.userID,
		Answers:          batch,
		TimeTakenSeconds: timeTaken,
	})
	if err != nil {
		return nil, "", err
	}
	return &result, "", nil
}
