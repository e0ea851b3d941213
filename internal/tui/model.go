// Package tui is the live dashboard: quit metrics, health milestones and
// the mission ledger, redrawn whenever the progress engine or the tracker
// publishes.
package tui

import (
	"context"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	bprogress "github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/julianstephens/ember/internal/achievement"
	"github.com/julianstephens/ember/internal/catalog"
	"github.com/julianstephens/ember/internal/models"
	"github.com/julianstephens/ember/internal/progress"
)

// View is one dashboard tab
type View int

const (
	ViewProgress View = iota
	ViewMilestones
	ViewMissions
	viewCount
)

func (v View) String() string {
	switch v {
	case ViewProgress:
		return "Progress"
	case ViewMilestones:
		return "Milestones"
	case ViewMissions:
		return "Missions"
	default:
		return "Unknown"
	}
}

// Deps are the live components the dashboard reads and drives
type Deps struct {
	Progress *progress.Engine
	Missions *achievement.Tracker
	UserID   string
	// Money formats an amount in the given currency code
	Money func(amount float64, currency string) string
}

type snapshotMsg progress.Snapshot

type ledgerMsg achievement.State

type toggledMsg struct {
	missionID string
	completed bool
	err       error
}

type Model struct {
	deps     Deps
	view     View
	keys     KeyMap
	help     help.Model
	bar      bprogress.Model
	snapshot progress.Snapshot
	ledger   achievement.State
	missions []models.Mission
	cursor   int
	status   string
	width    int
	height   int
	quitting bool
}

func NewModel(deps Deps) Model {
	return Model{
		deps:     deps,
		keys:     DefaultKeyMap(),
		help:     help.New(),
		bar:      bprogress.New(bprogress.WithDefaultGradient(), bprogress.WithWidth(40)),
		snapshot: deps.Progress.State().Get(),
		ledger:   deps.Missions.State().Get(),
		missions: catalog.Missions(),
	}
}

// Subscribe forwards engine and ledger publications to p until the
// returned function is called
func Subscribe(p *tea.Program, deps Deps) (unsubscribe func()) {
	stopProgress := deps.Progress.State().Subscribe(func(s progress.Snapshot) {
		p.Send(snapshotMsg(s))
	})
	stopLedger := deps.Missions.State().Subscribe(func(s achievement.State) {
		p.Send(ledgerMsg(s))
	})
	return func() {
		stopProgress()
		stopLedger()
	}
}

func (m Model) ShortHelp() []key.Binding {
	keys := []key.Binding{m.keys.Tab, m.keys.Quit, m.keys.Help}
	if m.view == ViewMissions {
		keys = append(keys, m.keys.Toggle)
	}
	return keys
}

func (m Model) FullHelp() [][]key.Binding {
	global := []key.Binding{m.keys.Tab, m.keys.ShiftTab, m.keys.Quit, m.keys.Help}
	navigation := []key.Binding{m.keys.Up, m.keys.Down, m.keys.Toggle}
	return [][]key.Binding{global, navigation}
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) toggle(missionID string) tea.Cmd {
	tracker, userID := m.deps.Missions, m.deps.UserID
	return func() tea.Msg {
		completed, err := tracker.Toggle(context.Background(), missionID, userID)
		return toggledMsg{missionID: missionID, completed: completed, err: err}
	}
}
