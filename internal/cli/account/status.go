package account

import (
	"fmt"

	"github.com/julianstephens/ember/internal/cli"
	"github.com/julianstephens/ember/internal/constants"
	"github.com/julianstephens/ember/internal/session"
)

type StatusCmd struct{}

func (c *StatusCmd) Run(ctx *cli.Context) error {
	a := ctx.App
	st := a.Session.State().Get()

	fmt.Printf("Backend:  %s\n", a.Config.Backend)
	if a.Provider != nil {
		fmt.Printf("Database: %s\n", a.Provider.GetConfigPath())
	} else {
		fmt.Printf("Sync URL: %s\n", a.Config.SyncURL)
	}
	fmt.Printf("Session:  %s\n", st.Phase)

	if st.Phase != session.Authenticated || st.Session == nil {
		fmt.Printf("\nRun '%s login' to sign in.\n", constants.AppName)
		return nil
	}

	fmt.Printf("User:     %s\n", st.Session.User.ID)
	if st.Session.User.Email != "" {
		fmt.Printf("Email:    %s\n", st.Session.User.Email)
	}
	if !st.Session.ExpiresAt.IsZero() {
		fmt.Printf("Expires:  %s\n", st.Session.ExpiresAt.Local().Format(constants.DateTimeFormat))
	}
	if st.Profile == nil {
		fmt.Println("Profile:  not set")
	} else {
		fmt.Printf("Profile:  quit %s\n", st.Profile.QuitAt.Local().Format(constants.DateTimeFormat))
	}
	if st.ErrorMessage != "" {
		fmt.Printf("Last error: %s\n", st.ErrorMessage)
	}
	return nil
}
