// Package render formats tutor output for the terminal.
package render

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/okdokhae/okdok/internal/discourse"
	"github.com/okdokhae/okdok/internal/session"
	"github.com/okdokhae/okdok/internal/tutor"
)

// DefaultWidth is used when the caller does not know the terminal width.
const DefaultWidth = 80

func divider(width int) string {
	return lipgloss.NewStyle().Foreground(Border).Render(strings.Repeat("─", max(width, 10)))
}

// Analysis lists the passage's nodes with their roles and scores. Key
// nodes are starred.
func Analysis(a tutor.Analysis, width int) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("%d sentences, %d nodes, %d key nodes",
		len(a.Sentences), len(a.Nodes), len(a.KeyNodes))))
	b.WriteString("\n")
	b.WriteString(divider(width))
	b.WriteString("\n")

	for _, n := range a.Nodes {
		mark := " "
		if n.IsKeyNode {
			mark = keyStyle.Render("★")
		}
		roles := make([]string, len(n.Roles))
		for i, r := range n.Roles {
			roles[i] = string(r)
		}
		fmt.Fprintf(&b, "%s %s %s %s\n",
			mark,
			dimStyle.Render(fmt.Sprintf("%2d", n.Index+1)),
			bodyStyle.Render(fmt.Sprintf("%-10s %4.1f", n.PrimaryRole, n.ImportanceScore)),
			dimStyle.Render(n.ID),
		)
		text := lipgloss.NewStyle().Width(max(width-6, 20)).PaddingLeft(5).Foreground(Text).Render(n.Text)
		b.WriteString(text)
		b.WriteString("\n")
		if len(n.Roles) > 1 || len(n.Keywords) > 0 {
			b.WriteString(hintStyle.Render(fmt.Sprintf("     roles: %s  keywords: %s",
				strings.Join(roles, ", "), strings.Join(n.Keywords, ", "))))
			b.WriteString("\n")
		}
	}
	return b.String()
}

// Node renders one node with its question.
func Node(n discourse.Node, q string) string {
	return cardStyle.Render(
		dimStyle.Render(fmt.Sprintf("%s · %s", n.ID, n.PrimaryRole)) + "\n" +
			bodyStyle.Render(n.Text) + "\n\n" +
			titleStyle.Render(q),
	)
}

// Stage renders the current stage of s with the session's progress.
func Stage(s *session.Session, width int) string {
	st := s.CurrentStage()
	if st == nil {
		return passStyle.Render("Session complete.")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s  %s\n",
		titleStyle.Render(fmt.Sprintf("Stage %d/%d · %s", st.Order+1, len(s.Stages), st.Kind)),
		dimStyle.Render(st.ID),
	)
	b.WriteString(progressBar(s.CurrentStageIndex, len(s.Stages), max(width-4, 10)))
	b.WriteString("\n\n")
	b.WriteString(bodyStyle.Render(st.Question))
	b.WriteString("\n")
	if st.Instructions != "" {
		b.WriteString(hintStyle.Render(st.Instructions))
		b.WriteString("\n")
	}
	if st.RequireEvidence {
		b.WriteString("\n")
		b.WriteString(dimStyle.Render("Evidence sentences:"))
		b.WriteString("\n")
		for _, c := range s.Evidence {
			fmt.Fprintf(&b, "  %s %s\n", keyStyle.Render(c.ID), c.Text)
		}
	}
	if s.Strategy != session.StrategySocratic {
		b.WriteString(dimStyle.Render("strategy: " + string(s.Strategy)))
		b.WriteString("\n")
	}
	return cardStyle.Width(width).Render(strings.TrimRight(b.String(), "\n"))
}

// Outcome renders the verdict on a submission and the next step.
func Outcome(r tutor.SubmitResult) string {
	ev := r.Evaluation
	var b strings.Builder

	verdict := failStyle.Render("✗ Not yet")
	if ev.IsPassed {
		verdict = passStyle.Render("✓ Passed")
	}
	b.WriteString(verdict)
	if ev.FailedCheck != "" && !ev.IsPassed {
		b.WriteString(dimStyle.Render("  (" + ev.FailedCheck + ")"))
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "%s\n", dimStyle.Render(fmt.Sprintf(
		"score %.2f · similarity %.2f · coverage %.2f · %s %.2f",
		ev.FinalScore, ev.STSScore, ev.CoverageScore, ev.NLILabel, ev.NLIConfidence)))
	if ev.Degraded {
		b.WriteString(failStyle.Render("scoring backends unavailable"))
		b.WriteString("\n")
	}
	if ev.Feedback != "" {
		b.WriteString(bodyStyle.Render(ev.Feedback))
		b.WriteString("\n")
	}

	next := r.Next
	switch next.Kind {
	case session.ActionAdvance:
		b.WriteString(titleStyle.Render("→ Next stage"))
	case session.ActionRetry:
		b.WriteString(keyStyle.Render("↺ Try again"))
	case session.ActionEscalate:
		b.WriteString(keyStyle.Render("↺ Try again · " + string(next.Strategy)))
	case session.ActionSessionEnd:
		b.WriteString(passStyle.Render("★ Session complete"))
	}
	b.WriteString("\n")
	if next.Hint != "" && next.Hint != ev.Feedback {
		b.WriteString(hintStyle.Render(next.Hint))
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// Summary renders a session review.
func Summary(sum *session.Summary, width int) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("Session %s · %s", sum.SessionID, sum.Status)))
	b.WriteString("\n")
	mins := int(sum.Duration.Minutes())
	secs := int(sum.Duration.Seconds()) % 60
	b.WriteString(dimStyle.Render(fmt.Sprintf("Duration %d:%02d · Attempts %d · Passed %d/%d · Average %.2f",
		mins, secs, sum.Attempts, sum.Passed, len(sum.Stages), sum.AverageScore)))
	b.WriteString("\n")
	b.WriteString(divider(width))
	b.WriteString("\n")

	for _, ss := range sum.Stages {
		status := dimStyle.Render("·")
		if ss.Stage.Status == session.StagePassed {
			status = passStyle.Render("✓")
		}
		line := fmt.Sprintf("%-12s attempts %-2d best %.2f", ss.Stage.ID, ss.Attempts, ss.BestScore)
		if ss.Escalated {
			line += "  escalated"
		}
		fmt.Fprintf(&b, "%s %s\n", status, bodyStyle.Render(line))
	}
	return strings.TrimRight(b.String(), "\n")
}

// progressBar is a bar of done out of total cells scaled to width.
func progressBar(done, total, width int) string {
	if total <= 0 {
		return ""
	}
	label := fmt.Sprintf(" %d/%d", done, total)
	barWidth := max(width-len(label), 4)
	filled := min(max(barWidth*done/total, 0), barWidth)

	return lipgloss.NewStyle().Background(Secondary).Render(strings.Repeat(" ", filled)) +
		lipgloss.NewStyle().Background(Border).Render(strings.Repeat(" ", barWidth-filled)) +
		dimStyle.Render(label)
}
