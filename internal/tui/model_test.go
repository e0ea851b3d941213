package tui

import (
	"context"
	"fmt"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/julianstephens/ember/internal/achievement"
	"github.com/julianstephens/ember/internal/catalog"
	"github.com/julianstephens/ember/internal/models"
	"github.com/julianstephens/ember/internal/progress"
	"github.com/julianstephens/ember/internal/syncsvc/synctest"
)

var quitAt = time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)

func newModel(t *testing.T, userID string) (Model, Deps) {
	t.Helper()
	clock := clockwork.NewFakeClockAt(quitAt.Add(30 * time.Hour))
	tracker := achievement.NewTracker(synctest.New(), clock)
	if userID != "" {
		require.NoError(t, tracker.Load(context.Background(), userID))
	}
	deps := Deps{
		Progress: progress.NewEngine(clock),
		Missions: tracker,
		UserID:   userID,
		Money: func(amount float64, currency string) string {
			return fmt.Sprintf("%s %.2f", currency, amount)
		},
	}
	return NewModel(deps), deps
}

func keyPress(s string) tea.KeyMsg {
	switch s {
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "shift+tab":
		return tea.KeyMsg{Type: tea.KeyShiftTab}
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	nm, ok := next.(Model)
	require.True(t, ok)
	return nm, cmd
}

func TestProgressViewWithoutProfile(t *testing.T) {
	m, _ := newModel(t, "")
	assert.Contains(t, m.View(), "No profile yet")
}

func TestSnapshotUpdatesProgressView(t *testing.T) {
	m, deps := newModel(t, "user-1")
	p := models.Profile{UserID: "user-1", QuitAt: quitAt, DailyConsumption: 20, UnitPrice: 10}
	snap := deps.Progress.Compute(p, quitAt.Add(30*time.Hour))

	m, _ = update(t, m, snapshotMsg(snap))
	view := m.View()
	assert.Contains(t, view, "Smoke-free for 1d 6h 0m")
	assert.Contains(t, view, "Next: Sense of taste returns")
	assert.Contains(t, view, "Milestones 3/14")
}

func TestTabCyclesViews(t *testing.T) {
	m, _ := newModel(t, "user-1")
	assert.Equal(t, ViewProgress, m.view)

	m, _ = update(t, m, keyPress("tab"))
	assert.Equal(t, ViewMilestones, m.view)
	m, _ = update(t, m, keyPress("tab"))
	assert.Equal(t, ViewMissions, m.view)
	m, _ = update(t, m, keyPress("tab"))
	assert.Equal(t, ViewProgress, m.view)
	m, _ = update(t, m, keyPress("shift+tab"))
	assert.Equal(t, ViewMissions, m.view)
}

func TestToggleMissionFromList(t *testing.T) {
	m, deps := newModel(t, "user-1")
	m.view = ViewMissions

	m, _ = update(t, m, keyPress("down"))
	assert.Equal(t, 1, m.cursor)

	m, cmd := update(t, m, keyPress("enter"))
	require.NotNil(t, cmd)
	msg := cmd()
	toggled, ok := msg.(toggledMsg)
	require.True(t, ok)
	require.NoError(t, toggled.err)
	assert.True(t, toggled.completed)

	second := catalog.Missions()[1]
	assert.True(t, deps.Missions.State().Get().IsCompleted(second.ID))

	m, _ = update(t, m, msg)
	assert.Contains(t, m.status, second.Title)
	assert.Contains(t, m.View(), "[x] "+second.Title)
}

func TestToggleRequiresUser(t *testing.T) {
	m, _ := newModel(t, "")
	m.view = ViewMissions

	m, cmd := update(t, m, keyPress("enter"))
	assert.Nil(t, cmd)
	assert.Contains(t, m.status, "Sign in")
}

func TestLedgerMessageReplacesState(t *testing.T) {
	m, _ := newModel(t, "user-1")
	first := catalog.Missions()[0]
	m, _ = update(t, m, ledgerMsg(achievement.State{
		UserID:    "user-1",
		Completed: map[string]struct{}{first.ID: {}},
	}))
	m.view = ViewMissions
	assert.Contains(t, m.View(), "[x] "+first.Title)
}

func TestQuit(t *testing.T) {
	m, _ := newModel(t, "")
	m, cmd := update(t, m, keyPress("q"))
	require.NotNil(t, cmd)
	assert.True(t, m.quitting)
	assert.Empty(t, m.View())
}
