package system

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/julianstephens/ember/internal/cli"
	"github.com/julianstephens/ember/internal/constants"
	"github.com/julianstephens/ember/internal/tui"
)

type DashboardCmd struct {
	Once bool `help:"Print the current progress once and exit."`
}

func (c *DashboardCmd) Run(ctx *cli.Context) error {
	a := ctx.App
	deps := tui.Deps{
		Progress: a.Progress,
		Missions: a.Missions,
		UserID:   a.Session.UserID(),
		Money:    ctx.Money,
	}

	if c.Once {
		fmt.Println(tui.NewModel(deps).View())
		return nil
	}

	if err := a.Session.StartAutoRefresh(constants.RefreshCheckInterval); err != nil {
		return fmt.Errorf("failed to start session refresh: %w", err)
	}
	defer func() { _ = a.Session.StopAutoRefresh() }()

	p := tea.NewProgram(tui.NewModel(deps), tea.WithAltScreen())
	unsubscribe := tui.Subscribe(p, deps)
	defer unsubscribe()

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("dashboard exited with error: %w", err)
	}
	return nil
}
