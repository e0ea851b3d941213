package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/julianstephens/ember/internal/cli"
	"github.com/julianstephens/ember/internal/constants"
	"github.com/julianstephens/ember/internal/progress"
)

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var content string
	switch m.view {
	case ViewProgress:
		content = m.viewProgress()
	case ViewMilestones:
		content = m.viewMilestones()
	case ViewMissions:
		content = m.viewMissions()
	}

	var status string
	if m.status != "" {
		status = warningStyle.Render(m.status)
	}
	if m.ledger.ErrorMessage != "" {
		status = dangerStyle.Render(m.ledger.ErrorMessage)
	}

	return lipgloss.JoinVertical(
		lipgloss.Left,
		m.viewTabs(),
		docStyle.Render(content),
		status,
		m.help.View(m),
	)
}

func (m Model) viewTabs() string {
	var tabs []string
	for v := View(0); v < viewCount; v++ {
		if m.view == v {
			tabs = append(tabs, activeTabStyle.Render(v.String()))
		} else {
			tabs = append(tabs, inactiveTabStyle.Render(v.String()))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}

func (m Model) money(amount float64) string {
	currency := m.snapshot.Profile.CurrencyOr("")
	if m.deps.Money == nil {
		return fmt.Sprintf("%.2f %s", amount, currency)
	}
	return m.deps.Money(amount, currency)
}

func (m Model) viewProgress() string {
	if !m.snapshot.Active() {
		return mutedStyle.Render(fmt.Sprintf("No profile yet. Run '%s profile set' to start tracking.", constants.AppName))
	}

	metrics := m.snapshot.Metrics
	header := titleStyle.Render("Smoke-free for " + cli.FormatElapsed(metrics.Elapsed))

	stats := lipgloss.JoinHorizontal(lipgloss.Top,
		statStyle.Render(fmt.Sprintf("%.0f\n%s", metrics.UnitsAvoided, mutedStyle.Render("not smoked"))),
		statStyle.Render(fmt.Sprintf("%s\n%s", m.money(metrics.AmountSaved), mutedStyle.Render("saved"))),
		statStyle.Render(fmt.Sprintf("%s\n%s", cli.FormatLifeRegained(metrics.LifeMinutesRegained), mutedStyle.Render("life regained"))),
	)

	lines := []string{header, "", stats, ""}
	if next, ok := progress.NextMilestone(m.snapshot.Milestones); ok {
		lines = append(lines,
			fmt.Sprintf("Next: %s", next.Milestone.Title),
			m.bar.ViewAs(next.Ratio),
			mutedStyle.Render("in "+cli.FormatElapsed(next.Remaining(metrics.Elapsed))),
		)
	} else {
		lines = append(lines, achievedStyle.Render("Every health milestone reached"))
	}

	completed, total := 0, len(m.missions)
	for _, mission := range m.missions {
		if m.ledger.IsCompleted(mission.ID) {
			completed++
		}
	}
	lines = append(lines, "",
		fmt.Sprintf("Milestones %d/%d · Missions %d/%d",
			progress.AchievedCount(m.snapshot.Milestones), len(m.snapshot.Milestones), completed, total),
	)
	return strings.Join(lines, "\n")
}

func (m Model) viewMilestones() string {
	if !m.snapshot.Active() {
		return mutedStyle.Render("Milestones start counting once your quit date is set.")
	}

	var b strings.Builder
	for _, p := range m.snapshot.Milestones {
		mark := "○"
		title := p.Milestone.Title
		detail := mutedStyle.Render("in " + cli.FormatElapsed(p.Remaining(m.snapshot.Metrics.Elapsed)))
		if p.Achieved() {
			mark = achievedStyle.Render("✓")
			detail = achievedStyle.Render("reached")
		}
		fmt.Fprintf(&b, "%s %-28s %s %s\n", mark, title, m.bar.ViewAs(p.Ratio), detail)
	}
	return b.String()
}

func (m Model) viewMissions() string {
	if m.ledger.Loading {
		return mutedStyle.Render("Loading missions...")
	}

	var b strings.Builder
	var category string
	for i, mission := range m.missions {
		if string(mission.Category) != category {
			category = string(mission.Category)
			if i > 0 {
				b.WriteString("\n")
			}
			b.WriteString(titleStyle.Render(mission.Category.Title()) + "\n")
		}
		box := "[ ]"
		if m.ledger.IsCompleted(mission.ID) {
			box = achievedStyle.Render("[x]")
		}
		line := fmt.Sprintf("%s %s", box, mission.Title)
		if i == m.cursor {
			line = cursorStyle.Render("> ") + line
		} else {
			line = "  " + line
		}
		b.WriteString(line + "\n")
	}
	return b.String()
}
