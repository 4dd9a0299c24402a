package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"managemind-quiz-service/internal/client"
	"managemind-quiz-service/internal/engine"
	"managemind-quiz-service/internal/session"
)

// NewJoinCmd runs the participant side of a live session from the terminal.
func NewJoinCmd(serverURL, participantID *string) *cobra.Command {
	return &cobra.Command{
		Use:   "join <code>",
		Short: "Join a live session by code",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runJoin(cmd, *serverURL, *participantID, args[0])
		},
	}
}

func runJoin(cmd *cobra.Command, serverURL, participantID, code string) error {
	if participantID == "" {
		participantID = "user-" + uuid.NewString()[:8]
	}
	out := cmd.OutOrStdout()
	states := make(chan session.State, 16)
	ctrl := session.NewController(session.Options{
		Backend:       client.NewHTTP(serverURL),
		UserID:        participantID,
		OnStateChange: func(s session.State) { states <- s },
	})

	if err := ctrl.SelectParticipantRole(); err != nil {
		return err
	}
	<-states

	if !session.JoinEligible(code) {
		return fmt.Errorf("join code %q is too short", code)
	}
	if err := ctrl.SubmitJoinCode(cmd.Context(), code); err != nil {
		return err
	}

	for state := range states {
		switch state {
		case session.StateParticipantWaiting:
			fmt.Fprintln(out, "Joined. Waiting for the host to start...")
		case session.StateParticipantActive:
			fmt.Fprintln(out, "Session started!")
			return runQuiz(cmd, ctrl, states)
		case session.StateParticipantResult:
			printResult(out, ctrl)
			return nil
		}
	}
	return nil
}

// runQuiz drives the question loop until the attempt finishes. The controller
// may force-finish at any point when the session clock runs out.
func runQuiz(cmd *cobra.Command, ctrl *session.Controller, states chan session.State) error {
	out := cmd.OutOrStdout()
	quiz := ctrl.Quiz()
	if quiz == nil {
		return fmt.Errorf("no active quiz")
	}

	input := make(chan string)
	go func() {
		defer close(input)
		scanner := bufio.NewScanner(cmd.InOrStdin())
		for scanner.Scan() {
			input <- scanner.Text()
		}
	}()

	printQuestion(out, quiz)
	for {
		select {
		case state := <-states:
			if state == session.StateParticipantResult {
				printResult(out, ctrl)
				return nil
			}
		case line, ok := <-input:
			if !ok {
				ctrl.ForceSubmit()
				continue
			}
			if quiz.Phase() == engine.PhaseFinished {
				continue
			}
			handleQuizInput(out, ctrl, quiz, strings.TrimSpace(line))
		}
	}
}

func handleQuizInput(out io.Writer, ctrl *session.Controller, quiz *engine.Engine, line string) {
	ctx := context.Background()
	switch {
	case line == "n":
		if quiz.Next() {
			printQuestion(out, quiz)
		}
	case strings.HasPrefix(line, "g "):
		if n, err := strconv.Atoi(strings.TrimPrefix(line, "g ")); err == nil && quiz.GoTo(n-1) {
			printQuestion(out, quiz)
		}
	case line == "submit":
		remaining, err := quiz.RequestSubmit(ctx)
		if err != nil {
			fmt.Fprintf(out, "submit failed: %v\n", err)
			return
		}
		if remaining > 0 {
			fmt.Fprintf(out, "%d question(s) unanswered. Type 'yes' to submit anyway, 'no' to continue.\n", remaining)
		}
	case line == "yes":
		if err := quiz.ConfirmSubmit(ctx); err != nil {
			fmt.Fprintf(out, "submit failed: %v\n", err)
		}
	case line == "no":
		quiz.CancelSubmit()
		printQuestion(out, quiz)
	case line == "all":
		if err := quiz.SubmitAll(ctx); err != nil {
			fmt.Fprintf(out, "submit failed: %v\n", err)
		}
	case line == "exit":
		ctrl.ForceSubmit()
	default:
		if n, err := strconv.Atoi(line); err == nil {
			idx, q := quiz.Current()
			if n >= 1 && n <= len(q.Options) {
				if quiz.Select(q.Options[n-1].ID) {
					fmt.Fprintf(out, "Locked answer for question %d.\n", idx+1)
				} else {
					fmt.Fprintln(out, "Answer already locked.")
				}
				return
			}
		}
		fmt.Fprintln(out, "Enter an option number, or: n, g <num>, submit, all, exit")
	}
}

func printQuestion(out io.Writer, quiz *engine.Engine) {
	idx, q := quiz.Current()
	total := len(quiz.Questions())
	fmt.Fprintf(out, "\nQuestion %d/%d (%ds): %s\n", idx+1, total, quiz.Remaining(), q.Text)
	for i, opt := range q.Options {
		fmt.Fprintf(out, "  %d) %s\n", i+1, opt.Text)
	}
}

func printResult(out io.Writer, ctrl *session.Controller) {
	result, ok := ctrl.MyResult()
	if !ok {
		fmt.Fprintln(out, "No result recorded.")
		return
	}
	fmt.Fprintf(out, "\nYour score: %d/%d (%d%%)\n", result.Score, result.Total, result.Accuracy())
	quiz := ctrl.Quiz()
	if quiz == nil {
		return
	}
	for _, row := range quiz.Review() {
		mark := "✗"
		if row.Correct {
			mark = "✓"
		}
		fmt.Fprintf(out, "%s Q%d: %s\n", mark, row.Index+1, row.Question.Text)
		if !row.Correct && row.Question.Explanation != "" {
			fmt.Fprintf(out, "   %s\n", row.Question.Explanation)
		}
	}
	fmt.Fprintln(out, "\nWaiting for the host's final leaderboard. You can close this window.")
}
