package account

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/julianstephens/ember/internal/cli"
	"github.com/julianstephens/ember/internal/constants"
	"github.com/julianstephens/ember/internal/syncsvc/localauth"
)

type LoginCmd struct {
	Token     string `help:"Identity token issued by the provider for the printed nonce."`
	Stdin     bool   `help:"Read the identity token from stdin instead of prompting."`
	LocalUser string `help:"Sign in to a local database as this user without an identity provider."`
}

func (c *LoginCmd) Validate() error {
	if c.LocalUser != "" && (c.Token != "" || c.Stdin) {
		return errors.New("--local-user cannot be combined with --token or --stdin")
	}
	return nil
}

func (c *LoginCmd) Run(ctx *cli.Context) error {
	a := ctx.App

	_, hashed, err := a.Session.BeginIdentityExchange()
	if err != nil {
		return err
	}

	token := strings.TrimSpace(c.Token)
	switch {
	case c.LocalUser != "":
		if _, err := ctx.RequireStore(); err != nil {
			return err
		}
		token, err = localauth.SelfIssue(c.LocalUser, hashed, a.Clock.Now())
		if err != nil {
			return err
		}
	case token != "":
		// supplied with --token
	default:
		fmt.Printf("Sign in with %s and request an identity token for this nonce:\n", a.Config.IdentityProvider)
		fmt.Printf("  %s\n", hashed)
		if c.Stdin {
			if token, err = ctx.ReadLine(); err != nil {
				return fmt.Errorf("failed to read identity token: %w", err)
			}
		} else {
			err := huh.NewInput().
				Title("Identity token").
				EchoMode(huh.EchoModePassword).
				Value(&token).
				Run()
			if err != nil {
				return err
			}
		}
	}

	bg := context.Background()
	if err := a.Session.CompleteIdentityExchange(bg, strings.TrimSpace(token)); err != nil {
		return err
	}
	if err := a.LoadLedger(bg); err != nil {
		fmt.Printf("⚠ Could not load missions: %v\n", err)
	}

	fmt.Printf("✓ Signed in as %s\n", a.Session.UserID())
	if a.Session.Profile() == nil {
		fmt.Printf("  No profile yet. Run '%s profile set' to record your quit date.\n", constants.AppName)
	}
	return nil
}
