package cmd

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/utkarshx27/ai-powered-interview/internal/candidate"
	"github.com/utkarshx27/ai-powered-interview/internal/evaluation"
	"github.com/utkarshx27/ai-powered-interview/internal/record"
	"github.com/utkarshx27/ai-powered-interview/internal/utils"
)

const recordSummaryWidth = 60

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("12")).
			MarginTop(1).
			MarginBottom(1)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("10")).
			Bold(true)

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("7"))

	interviewerStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("12")).
				Bold(true)

	proceedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("10")).
			Bold(true)

	rejectStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9")).
			Bold(true)

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("11"))

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			Padding(0, 1)
)

func renderInterviewer(content string) string {
	return fmt.Sprintf("%s %s", interviewerStyle.Render("Interviewer:"), content)
}

// renderProfile styles the "Label: value" lines of the profile summary.
func renderProfile(profile *candidate.Profile) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Candidate Profile"))
	b.WriteString("\n")

	for _, line := range strings.Split(profile.Summary(), "\n") {
		label, value, ok := strings.Cut(line, ": ")
		if !ok {
			b.WriteString(valueStyle.Render(line))
			b.WriteString("\n")
			continue
		}
		fmt.Fprintf(&b, "%s %s\n", labelStyle.Render(label+":"), valueStyle.Render(value))
	}

	return b.String()
}

func renderFeedback(feedback *evaluation.Feedback) string {
	verdict := rejectStyle.Render(string(feedback.Verdict))
	if feedback.Verdict == evaluation.Proceed {
		verdict = proceedStyle.Render(string(feedback.Verdict))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n", labelStyle.Render("Verdict:"), verdict)
	fmt.Fprintf(&b, "%s %s\n", labelStyle.Render("Overall Rating:"), valueStyle.Render(feedback.Percent()))

	b.WriteString("\n" + labelStyle.Render("Strong Skills:") + "\n")
	writeBullets(&b, feedback.StrongSkills)

	b.WriteString("\n" + labelStyle.Render("Improvement Areas:") + "\n")
	writeBullets(&b, feedback.ImprovementAreas)

	b.WriteString("\n" + labelStyle.Render("Summary") + "\n")
	b.WriteString(feedback.Summary)

	return titleStyle.Render("Interview Insights") + "\n" + boxStyle.Render(b.String())
}

func writeBullets(b *strings.Builder, items []string) {
	if len(items) == 0 {
		b.WriteString(valueStyle.Render("  (none)") + "\n")
		return
	}
	for _, item := range items {
		b.WriteString("  - " + item + "\n")
	}
}

func renderRecords(records []record.Record) string {
	if len(records) == 0 {
		return "No candidate records yet."
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("Candidate Records (%d)", len(records))))
	b.WriteString("\n")

	for _, r := range records {
		verdict := rejectStyle.Render(r.Verdict)
		if r.Verdict == string(evaluation.Proceed) {
			verdict = proceedStyle.Render(r.Verdict)
		}

		fmt.Fprintf(&b, "%s %s  %s  %s  %.1f%%\n",
			labelStyle.Render(fmt.Sprintf("#%d", r.ID)),
			valueStyle.Render(r.Timestamp.Format(record.TimestampLayout)),
			r.Name,
			verdict,
			r.Rating*100,
		)
		if r.Summary != "" {
			fmt.Fprintf(&b, "    %s\n", utils.TruncateForLog(utils.OneLine(r.Summary), recordSummaryWidth))
		}
	}

	return b.String()
}
