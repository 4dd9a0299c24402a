package engine_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"managemind-quiz-service/internal/clock"
	"managemind-quiz-service/internal/domain"
	"managemind-quiz-service/internal/engine"
)

func fiveQuestions() []domain.Question {
	qs := make([]domain.Question, 5)
	for i := range qs {
		qs[i] = domain.Question{
			ID:   string(rune('a' + i)),
			Text: "question",
			Options: []domain.Option{
				{ID: "o1", Text: "right"},
				{ID: "o2", Text: "wrong"},
			},
			CorrectOptionID: "o1",
			Explanation:     "because",
		}
	}
	return qs
}

// frozenClock never ticks on its own, keeping engine tests deterministic.
func frozenClock() *clock.Countdown {
	return clock.NewWithInterval(time.Hour)
}

func TestPartialSubmitWithConfirmation(t *testing.T) {
	ctx := context.Background()
	scorer := &recordingScorer{result: domain.Result{Score: 3, Total: 4}, attemptID: "att-1"}
	e := engine.New(engine.Options{Clock: frozenClock(), Scorer: scorer})

	if err := e.SetQuestions(fiveQuestions()); err != nil {
		t.Fatalf("set questions: %v", err)
	}
	if e.Phase() != engine.PhaseActive {
		t.Fatalf("expected active phase")
	}

	// answer 1,3,5 correctly and 2 incorrectly; leave 4 unanswered
	e.Select("o1")
	e.GoTo(1)
	e.Select("o2")
	e.GoTo(2)
	e.Select("o1")
	e.GoTo(4)
	e.Select("o1")

	remaining, err := e.RequestSubmit(ctx)
	if err != nil {
		t.Fatalf("request submit: %v", err)
	}
	if remaining != 1 || e.Phase() != engine.PhaseConfirming {
		t.Fatalf("expected confirming with 1 remaining, got %d phase=%v", remaining, e.Phase())
	}

	if err := e.ConfirmSubmit(ctx); err != nil {
		t.Fatalf("confirm submit: %v", err)
	}
	if e.Phase() != engine.PhaseFinished {
		t.Fatalf("expected finished phase")
	}

	local := e.LocalResult()
	if local.Score != 3 || local.Total != 4 {
		t.Fatalf("expected local 3/4, got %d/%d", local.Score, local.Total)
	}
	if got := local.Accuracy(); got != 75 {
		t.Fatalf("expected 75%% accuracy, got %d", got)
	}
	if len(scorer.batch) != 4 {
		t.Fatalf("expected unanswered question excluded from batch, got %d", len(scorer.batch))
	}
	if e.AttemptID() != "att-1" {
		t.Fatalf("expected attempt id retained, got %q", e.AttemptID())
	}

	review := e.Review()
	if len(review) != 4 {
		t.Fatalf("expected 4 review rows, got %d", len(review))
	}
	for _, row := range review {
		if row.Index == 3 {
			t.Fatalf("unattempted question must not appear in review")
		}
		if row.Question.Explanation == "" {
			t.Fatalf("review row missing explanation")
		}
	}
}

func TestCancelSubmitReturnsToActive(t *testing.T) {
	e := engine.New(engine.Options{Clock: frozenClock()})
	if err := e.SetQuestions(fiveQuestions()); err != nil {
		t.Fatalf("set questions: %v", err)
	}

	if _, err := e.RequestSubmit(context.Background()); err != nil {
		t.Fatalf("request submit: %v", err)
	}
	if e.Phase() != engine.PhaseConfirming {
		t.Fatalf("expected confirming")
	}
	e.CancelSubmit()
	if e.Phase() != engine.PhaseActive {
		t.Fatalf("expected back to active")
	}
}

func TestSecondSelectionIgnored(t *testing.T) {
	e := engine.New(engine.Options{Clock: frozenClock()})
	if err := e.SetQuestions(fiveQuestions()); err != nil {
		t.Fatalf("set questions: %v", err)
	}

	if !e.Select("o2") {
		t.Fatalf("first selection should lock")
	}
	if e.Select("o1") {
		t.Fatalf("second selection must be ignored")
	}
	if e.Select("bogus") {
		t.Fatalf("unknown option must be ignored")
	}

	kind, opt := e.Ledger().Entry(0)
	if kind != engine.EntrySelected || opt != "o2" {
		t.Fatalf("expected o2 locked, got kind=%v opt=%q", kind, opt)
	}
}

func TestQuestionTimeoutSubmitsEmptySelection(t *testing.T) {
	scorer := &recordingScorer{}
	e := engine.New(engine.Options{
		Clock:           clock.NewWithInterval(time.Millisecond),
		QuestionSeconds: 2,
		Scorer:          scorer,
	})
	if err := e.SetQuestions(fiveQuestions()); err != nil {
		t.Fatalf("set questions: %v", err)
	}

	waitFor(t, func() bool {
		kind, _ := e.Ledger().Entry(0)
		return kind == engine.EntryTimedOut
	})
	if e.Phase() != engine.PhaseActive {
		t.Fatalf("timeout must not leave the active phase")
	}
	idx, _ := e.Current()
	if idx != 0 {
		t.Fatalf("timeout must not auto-advance, at %d", idx)
	}

	if err := e.ForceFinish(context.Background()); err != nil {
		t.Fatalf("force finish: %v", err)
	}
	if len(scorer.batch) != 1 {
		t.Fatalf("expected 1 submission, got %d", len(scorer.batch))
	}
	sub := scorer.batch[0]
	if sub.SelectedOptionID != "" {
		t.Fatalf("timed-out entry must submit empty option id, got %q", sub.SelectedOptionID)
	}
	if sub.TimeTakenSeconds != 2 {
		t.Fatalf("timed-out entry should consume the full window, got %d", sub.TimeTakenSeconds)
	}
	local := e.LocalResult()
	if local.Score != 0 || local.Total != 1 {
		t.Fatalf("timed-out entry always scores incorrect, got %d/%d", local.Score, local.Total)
	}
}

func TestNavigationClockPolicy(t *testing.T) {
	e := engine.New(engine.Options{Clock: frozenClock(), QuestionSeconds: 30})
	if err := e.SetQuestions(fiveQuestions()); err != nil {
		t.Fatalf("set questions: %v", err)
	}

	if got := e.Remaining(); got != 30 {
		t.Fatalf("fresh question should have a full window, got %d", got)
	}
	e.Select("o1")
	if got := e.Remaining(); got != 0 {
		t.Fatalf("locked question has no running window, got %d", got)
	}

	e.GoTo(1)
	if got := e.Remaining(); got != 30 {
		t.Fatalf("jump to unset question restarts the window, got %d", got)
	}

	e.GoTo(0)
	if got := e.Remaining(); got != 0 {
		t.Fatalf("revisiting an answered question gets no new window, got %d", got)
	}
}

func TestForcedFinishWithNoAnswers(t *testing.T) {
	scorer := &recordingScorer{}
	var outcome engine.Outcome
	done := make(chan struct{})
	e := engine.New(engine.Options{
		Clock:  frozenClock(),
		Scorer: scorer,
		OnFinished: func(o engine.Outcome) {
			outcome = o
			close(done)
		},
	})
	if err := e.SetQuestions(fiveQuestions()); err != nil {
		t.Fatalf("set questions: %v", err)
	}

	if err := e.ForceFinish(context.Background()); err != nil {
		t.Fatalf("force finish: %v", err)
	}
	<-done

	if len(outcome.Batch) != 0 {
		t.Fatalf("expected empty batch, got %d", len(outcome.Batch))
	}
	if outcome.Final.Score != 0 || outcome.Final.Total != 0 {
		t.Fatalf("expected 0/0, got %d/%d", outcome.Final.Score, outcome.Final.Total)
	}
	if !outcome.Forced {
		t.Fatalf("expected forced outcome")
	}
	if got := outcome.Final.Accuracy(); got != 0 {
		t.Fatalf("zero total maps to 0%%, got %d", got)
	}

	// a forced finish is terminal within the attempt
	if e.GoTo(1) || e.Select("o1") {
		t.Fatalf("finished engine must reject further interaction")
	}
}

func TestSubmitAllIncludesUnanswered(t *testing.T) {
	scorer := &recordingScorer{}
	e := engine.New(engine.Options{Clock: frozenClock(), Scorer: scorer})
	if err := e.SetQuestions(fiveQuestions()); err != nil {
		t.Fatalf("set questions: %v", err)
	}
	e.Select("o1")

	if err := e.SubmitAll(context.Background()); err != nil {
		t.Fatalf("submit all: %v", err)
	}
	if len(scorer.batch) != 5 {
		t.Fatalf("submit-all override must include unset entries, got %d", len(scorer.batch))
	}
	local := e.LocalResult()
	if local.Score != 1 || local.Total != 5 {
		t.Fatalf("expected 1/5 with override, got %d/%d", local.Score, local.Total)
	}
}

func TestScoringFailureFailsOpen(t *testing.T) {
	scorer := &recordingScorer{err: errors.New("backend down")}
	e := engine.New(engine.Options{Clock: frozenClock(), Scorer: scorer})
	if err := e.SetQuestions(fiveQuestions()); err != nil {
		t.Fatalf("set questions: %v", err)
	}
	e.Select("o1")

	if _, err := e.RequestSubmit(context.Background()); err != nil {
		t.Fatalf("request submit: %v", err)
	}
	if err := e.ConfirmSubmit(context.Background()); err != nil {
		t.Fatalf("confirm submit: %v", err)
	}

	result := e.Result()
	if result.Score != 1 || result.Total != 1 {
		t.Fatalf("expected local result reported on failure, got %d/%d", result.Score, result.Total)
	}
}

func TestAuthoritativeResultPreferred(t *testing.T) {
	scorer := &recordingScorer{result: domain.Result{Score: 0, Total: 1}}
	e := engine.New(engine.Options{Clock: frozenClock(), Scorer: scorer})
	if err := e.SetQuestions(fiveQuestions()); err != nil {
		t.Fatalf("set questions: %v", err)
	}
	e.Select("o1") // locally correct

	if _, err := e.RequestSubmit(context.Background()); err != nil {
		t.Fatalf("request submit: %v", err)
	}
	if err := e.ConfirmSubmit(context.Background()); err != nil {
		t.Fatalf("confirm submit: %v", err)
	}

	if result := e.Result(); result.Score != 0 {
		t.Fatalf("authoritative result must win, got %d", result.Score)
	}
	if local := e.LocalResult(); local.Score != 1 {
		t.Fatalf("local result must stay intact, got %d", local.Score)
	}
}

type recordingScorer struct {
	batch     []domain.Submission
	totalTime int
	result    domain.Result
	attemptID string
	err       error
}

func (s *recordingScorer) Score(_ context.Context, batch []domain.Submission, timeTaken int) (*domain.Result, string, error) {
	s.batch = batch
	s.totalTime = timeTaken
	if s.err != nil {
		return nil, "", s.err
	}
	result := s.result
	return &result, s.attemptID, nil
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("condition not met within deadline")
}
