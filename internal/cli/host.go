package cli

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"managemind-quiz-service/internal/client"
	"managemind-quiz-service/internal/domain"
	"managemind-quiz-service/internal/session"
)

// NewHostCmd runs the host side of a live session from the terminal.
func NewHostCmd(serverURL, hostID *string) *cobra.Command {
	var (
		unit     string
		topic    string
		duration int
		points   []string
	)
	cmd := &cobra.Command{
		Use:   "host",
		Short: "Create and run a live session",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHost(cmd, *serverURL, *hostID, unit, topic, duration, points)
		},
	}
	cmd.Flags().StringVar(&unit, "unit", "", "syllabus unit for a basic session")
	cmd.Flags().StringVar(&topic, "topic", "", "topic for a basic session (empty means Full Unit)")
	cmd.Flags().IntVar(&duration, "duration", 10, "session duration in minutes")
	cmd.Flags().StringArrayVar(&points, "point", nil, "advanced mode: syllabus point with count, e.g. --point 4.1=3")
	return cmd
}

func runHost(cmd *cobra.Command, serverURL, hostID, unit, topic string, duration int, points []string) error {
	if hostID == "" {
		hostID = "host-" + uuid.NewString()[:8]
	}
	out := cmd.OutOrStdout()
	states := make(chan session.State, 16)
	ctrl := session.NewController(session.Options{
		Backend:       client.NewHTTP(serverURL),
		UserID:        hostID,
		OnStateChange: func(s session.State) { states <- s },
	})

	if err := ctrl.SelectHostRole(); err != nil {
		return err
	}
	<-states

	ctx := cmd.Context()
	if len(points) > 0 {
		selections, err := parseSelections(points)
		if err != nil {
			return err
		}
		if err := ctrl.ChooseSetupMode(session.ConfigAdvanced); err != nil {
			return err
		}
		<-states
		if err := ctrl.CreateAdvancedSession(ctx, selections, duration); err != nil {
			return err
		}
	} else {
		if err := ctrl.ChooseSetupMode(session.ConfigBasic); err != nil {
			return err
		}
		<-states
		if err := ctrl.CreateBasicSession(ctx, unit, topic, duration); err != nil {
			return err
		}
	}
	<-states

	meta, _ := ctrl.Session()
	fmt.Fprintf(out, "Session created. Join code: %s\n", meta.JoinCode)
	fmt.Fprintln(out, "Commands: status, start, end, cancel")

	scanner := bufio.NewScanner(cmd.InOrStdin())
	for scanner.Scan() {
		switch strings.TrimSpace(scanner.Text()) {
		case "status":
			meta, _ := ctrl.Session()
			fmt.Fprintf(out, "%s, %d participant(s)\n", meta.Status, meta.ParticipantCount)
		case "start":
			if err := ctrl.StartSession(ctx); err != nil {
				fmt.Fprintf(out, "start failed: %v\n", err)
				continue
			}
			<-states
			fmt.Fprintln(out, "Session is live.")
		case "end":
			if err := ctrl.EndSession(ctx); err != nil {
				fmt.Fprintf(out, "end failed: %v\n", err)
				continue
			}
			<-states
			printLeaderboard(out, ctrl)
			return nil
		case "cancel":
			if err := ctrl.CancelSession(); err != nil {
				fmt.Fprintf(out, "cancel failed: %v\n", err)
				continue
			}
			fmt.Fprintln(out, "Session abandoned.")
			return nil
		default:
			fmt.Fprintln(out, "Commands: status, start, end, cancel")
		}
	}
	return scanner.Err()
}

func printLeaderboard(out io.Writer, ctrl *session.Controller) {
	report, ok := ctrl.LeaderboardReport()
	if !ok {
		fmt.Fprintln(out, "No leaderboard available.")
		return
	}
	fmt.Fprintf(out, "\nFinal results for %s (%s)\n", report.Session.JoinCode, report.Session.Topic)
	if len(report.Rows) == 0 {
		fmt.Fprintln(out, "No submissions.")
		return
	}
	for _, row := range report.Rows {
		fmt.Fprintf(out, "%2d. %-20s %3d pts  %4ds\n", row.Rank, row.DisplayName, row.Score, row.TimeTakenSeconds)
	}
}

// parseSelections turns point=count flags into syllabus selections.
func parseSelections(points []string) ([]domain.SyllabusSelection, error) {
	selections := make([]domain.SyllabusSelection, 0, len(points))
	for _, raw := range points {
		point, countStr, found := strings.Cut(raw, "=")
		if !found || point == "" {
			return nil, fmt.Errorf("invalid --point %q, expected point=count", raw)
		}
		count, err := strconv.Atoi(countStr)
		if err != nil {
			return nil, fmt.Errorf("invalid count in --point %q", raw)
		}
		selections = append(selections, domain.SyllabusSelection{Point: point, Count: count})
	}
	return selections, nil
}
