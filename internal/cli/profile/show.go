package profile

import (
	"context"
	"fmt"

	"github.com/julianstephens/ember/internal/cli"
	"github.com/julianstephens/ember/internal/constants"
)

type ShowCmd struct{}

func (c *ShowCmd) Run(ctx *cli.Context) error {
	a := ctx.App
	if _, err := a.RequireUser(); err != nil {
		return err
	}

	p, err := a.Session.LoadProfile(context.Background())
	if err != nil {
		return fmt.Errorf("failed to load profile: %w", err)
	}
	if p == nil {
		fmt.Printf("No profile yet. Run '%s profile set' to record your quit date.\n", constants.AppName)
		return nil
	}

	currency := p.CurrencyOr("")
	fmt.Println("Profile:")
	fmt.Printf("  Quit date:          %s\n", p.QuitAt.Local().Format(constants.DateTimeFormat))
	fmt.Printf("  Cigarettes per day: %d\n", p.DailyConsumption)
	fmt.Printf("  Price per pack:     %s\n", ctx.Money(p.UnitPrice, currency))

	snap := a.Progress.Compute(*p, a.Clock.Now())
	m := snap.Metrics
	fmt.Println("\nProgress:")
	fmt.Printf("  Smoke-free for:     %s\n", cli.FormatElapsed(m.Elapsed))
	fmt.Printf("  Not smoked:         %.0f\n", m.UnitsAvoided)
	fmt.Printf("  Money saved:        %s\n", ctx.Money(m.AmountSaved, currency))
	fmt.Printf("  Life regained:      %s\n", cli.FormatLifeRegained(m.LifeMinutesRegained))
	return nil
}
