package cravings

import (
	"context"
	"fmt"

	"github.com/julianstephens/ember/internal/cli"
	"github.com/julianstephens/ember/internal/constants"
	"github.com/julianstephens/ember/internal/events"
)

type LogCmd struct {
	Intensity *int   `short:"i" help:"How strong the craving was (1-10)."`
	Trigger   string `short:"t" help:"What set it off."`
	Note      string `short:"n" help:"Anything else worth remembering."`
}

func (c *LogCmd) Validate() error {
	if c.Intensity != nil && (*c.Intensity < constants.MinIntensity || *c.Intensity > constants.MaxIntensity) {
		return fmt.Errorf("intensity must be between %d and %d", constants.MinIntensity, constants.MaxIntensity)
	}
	return nil
}

func (c *LogCmd) Run(ctx *cli.Context) error {
	userID, err := ctx.App.RequireUser()
	if err != nil {
		return err
	}

	ev, err := ctx.App.Cravings.LogCraving(context.Background(), userID, events.Craving{
		Intensity: c.Intensity,
		Trigger:   &c.Trigger,
		Note:      &c.Note,
	})
	if err != nil {
		return fmt.Errorf("failed to log craving: %w", err)
	}

	fmt.Printf("✓ Craving logged at %s\n", ev.LoggedAt.Local().Format(constants.DateTimeFormat))
	if ev.Intensity != nil && *ev.Intensity >= 8 {
		fmt.Println("  That was a strong one. It will pass; cravings usually fade within minutes.")
	}
	return nil
}
