package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/julianstephens/ember/internal/achievement"
	"github.com/julianstephens/ember/internal/catalog"
	apperrors "github.com/julianstephens/ember/internal/errors"
	"github.com/julianstephens/ember/internal/progress"
)

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		if w := msg.Width - 24; w > 10 && w < 60 {
			m.bar.Width = w
		}
		return m, nil

	case snapshotMsg:
		m.snapshot = progress.Snapshot(msg)
		return m, nil

	case ledgerMsg:
		m.ledger = achievement.State(msg)
		return m, nil

	case toggledMsg:
		if msg.err != nil {
			m.status = "Error: " + apperrors.Message(msg.err)
			return m, nil
		}
		title := msg.missionID
		if mission, ok := catalog.MissionByID(msg.missionID); ok {
			title = mission.Title
		}
		if msg.completed {
			m.status = fmt.Sprintf("✓ Completed: %s", title)
		} else {
			m.status = fmt.Sprintf("Unmarked: %s", title)
		}
		m.ledger = m.deps.Missions.State().Get()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	case key.Matches(msg, m.keys.Tab):
		m.view = (m.view + 1) % viewCount
		m.status = ""
	case key.Matches(msg, m.keys.ShiftTab):
		m.view = (m.view + viewCount - 1) % viewCount
		m.status = ""
	case m.view != ViewMissions:
		// remaining keys only act on the mission list
	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(m.missions)-1 {
			m.cursor++
		}
	case key.Matches(msg, m.keys.Toggle):
		if m.deps.UserID == "" {
			m.status = "Sign in to track missions"
			return m, nil
		}
		if m.cursor < len(m.missions) {
			return m, m.toggle(m.missions[m.cursor].ID)
		}
	}
	return m, nil
}
