// Package report renders stored attempts as plain-text exports.
package report

import (
	"fmt"
	"strings"

	"managemind-quiz-service/internal/domain"
)

// Render builds the downloadable text report for one attempt.
func Render(record domain.AttemptRecord) []byte {
	var b strings.Builder
	b.WriteString("Quiz Attempt Report\n")
	b.WriteString("===================\n\n")
	fmt.Fprintf(&b, "Attempt:  %s\n", record.ID)
	fmt.Fprintf(&b, "User:     %s\n", record.UserID)
	if record.Topic != "" {
		fmt.Fprintf(&b, "Topic:    %s\n", record.Topic)
	}
	if record.Mode != "" {
		fmt.Fprintf(&b, "Mode:     %s\n", record.Mode)
	}
	fmt.Fprintf(&b, "Date:     %s\n\n", record.CreatedAt.Format("2006-01-02 15:04 UTC"))

	result := domain.Result{Score: record.Score, Total: record.Total}
	fmt.Fprintf(&b, "Score:    %d/%d (%d%%)\n\n", record.Score, record.Total, result.Accuracy())

	for i, sub := range record.Submissions {
		answer := sub.SelectedOptionID
		if answer == "" {
			answer = "(no answer)"
		}
		fmt.Fprintf(&b, "%2d. question %s: answered %s in %ds\n", i+1, sub.MCQID, answer, sub.TimeTakenSeconds)
	}
	return []byte(b.String())
}
