package missions

import (
	"context"
	"fmt"

	"github.com/julianstephens/ember/internal/catalog"
	"github.com/julianstephens/ember/internal/cli"
)

type ToggleCmd struct {
	ID string `arg:"" help:"Mission ID (see 'missions list')."`
}

func (c *ToggleCmd) Run(ctx *cli.Context) error {
	userID, err := ctx.App.RequireUser()
	if err != nil {
		return err
	}

	mission, ok := catalog.MissionByID(c.ID)
	if !ok {
		return fmt.Errorf("unknown mission %q", c.ID)
	}

	bg := context.Background()
	if ctx.App.Missions.State().Get().UserID != userID {
		if err := ctx.App.LoadLedger(bg); err != nil {
			return fmt.Errorf("failed to load missions: %w", err)
		}
	}

	completed, err := ctx.App.Missions.Toggle(bg, mission.ID, userID)
	if err != nil {
		return fmt.Errorf("failed to update mission: %w", err)
	}

	if completed {
		fmt.Printf("✓ Completed: %s\n", mission.Title)
	} else {
		fmt.Printf("Unmarked: %s\n", mission.Title)
	}
	return nil
}
