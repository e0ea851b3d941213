package account

import (
	"context"
	"fmt"

	"github.com/julianstephens/ember/internal/cli"
)

type LogoutCmd struct{}

func (c *LogoutCmd) Run(ctx *cli.Context) error {
	if ctx.App.Session.UserID() == "" {
		fmt.Println("Not signed in.")
		return nil
	}

	if err := ctx.App.Session.SignOut(context.Background()); err != nil {
		fmt.Printf("⚠ The sync service did not confirm sign-out: %v\n", err)
		fmt.Println("  The local session was removed anyway.")
		return nil
	}
	fmt.Println("✓ Signed out")
	return nil
}
