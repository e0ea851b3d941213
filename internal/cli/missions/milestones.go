package missions

import (
	"context"
	"fmt"

	"github.com/julianstephens/ember/internal/cli"
	"github.com/julianstephens/ember/internal/progress"
)

type MilestonesCmd struct {
	All bool `help:"Also list milestones that are not reached yet."`
}

func (c *MilestonesCmd) Run(ctx *cli.Context) error {
	a := ctx.App
	if _, err := a.RequireUser(); err != nil {
		return err
	}

	p := a.Session.Profile()
	if p == nil {
		loaded, err := a.Session.LoadProfile(context.Background())
		if err != nil {
			return fmt.Errorf("failed to load profile: %w", err)
		}
		p = loaded
	}
	if p == nil {
		return fmt.Errorf("no quit date recorded; run 'profile set' first")
	}

	now := a.Clock.Now()
	elapsed := progress.Elapsed(p.QuitAt, now)
	list := a.Missions.MilestoneProgress(now)

	fmt.Printf("Health milestones (%d/%d reached)\n", progress.AchievedCount(list), len(list))
	for _, mp := range list {
		switch {
		case mp.Achieved():
			fmt.Printf("  ✓ %s\n", mp.Milestone.Title)
		case c.All:
			fmt.Printf("  ○ %-28s %3.0f%%  in %s\n", mp.Milestone.Title, mp.Ratio*100, cli.FormatElapsed(mp.Remaining(elapsed)))
		}
	}

	if next, ok := progress.NextMilestone(list); ok && !c.All {
		fmt.Printf("\nNext: %s (%.0f%%, in %s)\n  %s\n",
			next.Milestone.Title, next.Ratio*100, cli.FormatElapsed(next.Remaining(elapsed)), next.Milestone.Detail)
	}
	return nil
}
