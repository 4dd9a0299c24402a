package engine

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"managemind-quiz-service/internal/clock"
	"managemind-quiz-service/internal/domain"
)

// DefaultQuestionSeconds is the fixed per-question answer window.
const DefaultQuestionSeconds = 30

// Phase is the engine state machine position.
type Phase int

const (
	PhaseLoading Phase = iota
	PhaseActive
	PhaseConfirming
	PhaseFinished
)

// QuestionProvider supplies the ordered question set for an attempt.
type QuestionProvider interface {
	Questions(ctx context.Context) ([]domain.Question, error)
}

// Scorer delivers a finished batch to the scoring collaborator. It returns
// the authoritative result (nil when the collaborator scores asynchronously)
// and, where the collaborator issues one, an attempt id usable for report
// export.
type Scorer interface {
	Score(ctx context.Context, batch []domain.Submission, timeTakenSeconds int) (*domain.Result, string, error)
}

// ReviewRow is one attempted question in the finished-state review list.
type ReviewRow struct {
	Index            int
	Question         domain.Question
	SelectedOptionID string
	TimedOut         bool
	Correct          bool
}

// Outcome is the completion signal handed to the owning collaborator.
type Outcome struct {
	Batch         []domain.Submission
	Local         domain.Result
	Authoritative *domain.Result
	Final         domain.Result
	AttemptID     string
	Forced        bool
}

// Options configures an Engine.
type Options struct {
	// QuestionSeconds overrides the per-question window. Zero means the
	// 30-second default.
	QuestionSeconds int
	// Clock is the per-question countdown. A fresh one-second clock is used
	// when nil; tests inject a fast one.
	Clock *clock.Countdown
	// Scorer is the scoring collaborator. When nil the attempt finishes with
	// the local result only.
	Scorer Scorer
	// OnFinished is invoked once, outside the engine lock, when the attempt
	// reaches the finished phase.
	OnFinished func(Outcome)
	Logger     *zap.Logger
}

// Engine runs one quiz attempt over a question sequence. Navigation is
// index-based, answers lock on first selection and the question clock
// restarts on every move to an unanswered question.
type Engine struct {
	mu sync.Mutex

	log             *zap.Logger
	scorer          Scorer
	qclock          *clock.Countdown
	questionSeconds int
	onFinished      func(Outcome)

	phase     Phase
	questions []domain.Question
	ledger    *Ledger
	current   int
	remaining int
	elapsed   []int

	local         domain.Result
	authoritative *domain.Result
	attemptID     string
	review        []ReviewRow
}

// New returns an engine in the loading phase.
func New(opts Options) *Engine {
	if opts.QuestionSeconds <= 0 {
		opts.QuestionSeconds = DefaultQuestionSeconds
	}
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Engine{
		log:             opts.Logger,
		scorer:          opts.Scorer,
		qclock:          opts.Clock,
		questionSeconds: opts.QuestionSeconds,
		onFinished:      opts.OnFinished,
		phase:           PhaseLoading,
	}
}

// Load fetches the question set from the provider and activates the attempt.
func (e *Engine) Load(ctx context.Context, provider QuestionProvider) error {
	questions, err := provider.Questions(ctx)
	if err != nil {
		return err
	}
	return e.SetQuestions(questions)
}

// SetQuestions activates the attempt with an externally supplied set, as the
// session controller does for a live session.
func (e *Engine) SetQuestions(questions []domain.Question) error {
	if len(questions) == 0 {
		return domain.ErrNoQuestions
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.phase != PhaseLoading {
		return nil
	}
	e.questions = questions
	e.ledger = NewLedger(len(questions))
	e.elapsed = make([]int, len(questions))
	e.current = 0
	e.phase = PhaseActive
	e.startQuestionClockLocked()
	return nil
}

// startQuestionClockLocked restarts the window for the current question, or
// cancels the clock when the question is already locked.
func (e *Engine) startQuestionClockLocked() {
	kind, _ := e.ledger.Entry(e.current)
	if kind != EntryUnset {
		e.remaining = 0
		e.qclock.Cancel()
		return
	}
	e.remaining = e.questionSeconds
	index := e.current
	e.qclock.Start(e.questionSeconds,
		func(remaining int) { e.tick(index, remaining) },
		func() { e.timeout(index) },
	)
}

func (e *Engine) tick(index, remaining int) {
	e.mu.Lock()
	if e.current == index && (e.phase == PhaseActive || e.phase == PhaseConfirming) {
		e.remaining = remaining
	}
	e.mu.Unlock()
}

// timeout marks the question as timed out. The index stays where it is; the
// participant may still navigate away manually.
func (e *Engine) timeout(index int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.phase != PhaseActive && e.phase != PhaseConfirming {
		return
	}
	if e.ledger.MarkTimedOut(index) {
		e.elapsed[index] = e.questionSeconds
		e.log.Debug("question timed out", zap.Int("index", index))
	}
	if e.current == index {
		e.remaining = 0
	}
}

// Select locks optionID for the current question. A second selection on the
// same question is ignored, as is an option that does not belong to it.
func (e *Engine) Select(optionID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.phase != PhaseActive {
		return false
	}
	q := e.questions[e.current]
	valid := false
	for _, opt := range q.Options {
		if opt.ID == optionID {
			valid = true
			break
		}
	}
	if !valid {
		return false
	}
	if !e.ledger.Set(e.current, optionID) {
		return false
	}
	e.elapsed[e.current] = e.questionSeconds - e.remaining
	e.remaining = 0
	e.qclock.Cancel()
	return true
}

// GoTo jumps to any question index. The clock restarts for unanswered
// questions; locked ones display without a new window.
func (e *Engine) GoTo(index int) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.phase != PhaseActive || index < 0 || index >= len(e.questions) {
		return false
	}
	e.current = index
	e.startQuestionClockLocked()
	return true
}

// Next advances to the following question, if any.
func (e *Engine) Next() bool {
	e.mu.Lock()
	next := e.current + 1
	e.mu.Unlock()
	return e.GoTo(next)
}

// RequestSubmit asks to finish the attempt. With unanswered questions left it
// moves to the confirming phase and returns the remaining count; otherwise it
// finishes directly.
func (e *Engine) RequestSubmit(ctx context.Context) (int, error) {
	e.mu.Lock()
	if e.phase != PhaseActive {
		e.mu.Unlock()
		return 0, nil
	}
	remaining := e.ledger.CountRemaining()
	if remaining > 0 {
		e.phase = PhaseConfirming
		e.mu.Unlock()
		return remaining, nil
	}
	e.mu.Unlock()
	return 0, e.finish(ctx, false, false)
}

// ConfirmSubmit is the "submit anyway" confirmation from the confirming
// phase. Unanswered questions are excluded from the batch.
func (e *Engine) ConfirmSubmit(ctx context.Context) error {
	e.mu.Lock()
	if e.phase != PhaseConfirming {
		e.mu.Unlock()
		return nil
	}
	e.mu.Unlock()
	return e.finish(ctx, false, false)
}

// CancelSubmit returns from confirming to active.
func (e *Engine) CancelSubmit() {
	e.mu.Lock()
	if e.phase == PhaseConfirming {
		e.phase = PhaseActive
	}
	e.mu.Unlock()
}

// SubmitAll finishes with the submit-all override: unset entries are included
// in the batch as unanswered submissions.
func (e *Engine) SubmitAll(ctx context.Context) error {
	return e.finish(ctx, true, false)
}

// ForceFinish is the forced-submission path used on session timeout or an
// explicit early exit. Whatever is answered so far is submitted; the engine
// never returns to active within this attempt.
func (e *Engine) ForceFinish(ctx context.Context) error {
	return e.finish(ctx, false, true)
}

// Abandon cancels the question clock and retires the attempt without
// submitting anything. Used by a controller reset, which discards all
// in-memory attempt data.
func (e *Engine) Abandon() {
	e.mu.Lock()
	e.qclock.Cancel()
	e.phase = PhaseFinished
	e.mu.Unlock()
}

func (e *Engine) finish(ctx context.Context, includeUnset, forced bool) error {
	e.mu.Lock()
	if e.phase == PhaseFinished || e.phase == PhaseLoading {
		e.mu.Unlock()
		return nil
	}
	// cancel the question clock before anything else so no tick or timeout
	// lands after the forced submission
	e.qclock.Cancel()

	batch := make([]domain.Submission, 0, len(e.questions))
	review := make([]ReviewRow, 0, len(e.questions))
	score := 0
	totalTime := 0
	for i, q := range e.questions {
		kind, optionID := e.ledger.Entry(i)
		if kind == EntryUnset && !includeUnset {
			continue
		}
		selected := ""
		if kind == EntrySelected {
			selected = optionID
		}
		correct := selected != "" && selected == q.CorrectOptionID
		if correct {
			score++
		}
		batch = append(batch, domain.Submission{
			MCQID:            q.ID,
			SelectedOptionID: selected,
			TimeTakenSeconds: e.elapsed[i],
		})
		totalTime += e.elapsed[i]
		if kind != EntryUnset {
			review = append(review, ReviewRow{
				Index:            i,
				Question:         q,
				SelectedOptionID: selected,
				TimedOut:         kind == EntryTimedOut,
				Correct:          correct,
			})
		}
	}

	e.local = domain.Result{Score: score, Total: len(batch)}
	e.review = review
	e.phase = PhaseFinished
	scorer := e.scorer
	e.mu.Unlock()

	if scorer != nil {
		result, attemptID, err := scorer.Score(ctx, batch, totalTime)
		if err != nil {
			// fail open: the participant still sees the local result
			e.log.Warn("scoring collaborator unavailable, keeping local result", zap.Error(err))
		} else {
			e.mu.Lock()
			e.authoritative = result
			e.attemptID = attemptID
			e.mu.Unlock()
		}
	}

	e.mu.Lock()
	outcome := Outcome{
		Batch:         batch,
		Local:         e.local,
		Authoritative: e.authoritative,
		Final:         e.resultLocked(),
		AttemptID:     e.attemptID,
		Forced:        forced,
	}
	done := e.onFinished
	e.mu.Unlock()

	if done != nil {
		done(outcome)
	}
	return nil
}

// resultLocked reconciles the two scores: prefer the authoritative result
// when present, else the local one.
func (e *Engine) resultLocked() domain.Result {
	if e.authoritative != nil {
		return *e.authoritative
	}
	return e.local
}

// Result returns the reconciled score for the attempt.
func (e *Engine) Result() domain.Result {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.resultLocked()
}

// LocalResult returns the locally computed score regardless of the
// authoritative one.
func (e *Engine) LocalResult() domain.Result {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.local
}

// AttemptID returns the identifier issued by the scoring collaborator, empty
// when none was obtained.
func (e *Engine) AttemptID() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.attemptID
}

// Review lists the attempted questions with selection, correct option and
// explanation. Unattempted questions are excluded.
func (e *Engine) Review() []ReviewRow {
	e.mu.Lock()
	defer e.mu.Unlock()
	rows := make([]ReviewRow, len(e.review))
	copy(rows, e.review)
	return rows
}

// Phase returns the current state machine position.
func (e *Engine) Phase() Phase {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.phase
}

// Current returns the current question index and the question itself.
func (e *Engine) Current() (int, domain.Question) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.questions) == 0 {
		return 0, domain.Question{}
	}
	return e.current, e.questions[e.current]
}

// Remaining returns the seconds left on the current question window.
func (e *Engine) Remaining() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.remaining
}

// Questions returns the attempt's question sequence.
func (e *Engine) Questions() []domain.Question {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.questions
}

// Ledger exposes the answer ledger for progress display.
func (e *Engine) Ledger() *Ledger {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ledger
}
