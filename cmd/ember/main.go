package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/alecthomas/kong"

	"github.com/julianstephens/ember/internal/app"
	"github.com/julianstephens/ember/internal/cli"
	"github.com/julianstephens/ember/internal/cli/account"
	"github.com/julianstephens/ember/internal/cli/cravings"
	"github.com/julianstephens/ember/internal/cli/missions"
	"github.com/julianstephens/ember/internal/cli/profile"
	"github.com/julianstephens/ember/internal/cli/system"
	"github.com/julianstephens/ember/internal/config"
	"github.com/julianstephens/ember/internal/constants"
	apperrors "github.com/julianstephens/ember/internal/errors"
	"github.com/julianstephens/ember/internal/keyring"
	"github.com/julianstephens/ember/internal/logger"
)

var CLI struct {
	Version kong.VersionFlag
	Config  string `help:"Config file path." type:"string" default:"~/.config/ember/config.yaml"`
	Debug   bool   `help:"Log debug output to stderr."`

	Init       system.InitCmd         `cmd:"" help:"Initialize local ember storage."`
	Migrate    system.MigrateCmd      `cmd:"" help:"Run database migrations."`
	Doctor     system.DoctorCmd       `cmd:"" help:"Run health checks and diagnostics."`
	Dashboard  system.DashboardCmd    `cmd:"" help:"Launch the live progress dashboard." default:"1"`
	Login      account.LoginCmd       `cmd:"" help:"Sign in with your identity provider."`
	Logout     account.LogoutCmd      `cmd:"" help:"Sign out and forget the stored session."`
	Status     account.StatusCmd      `cmd:"" help:"Show the session and backend in use."`
	Milestones missions.MilestonesCmd `cmd:"" help:"Show health milestone progress."`
	Craving    cravings.LogCmd        `cmd:"" help:"Log a craving."`
	Profile    struct {
		Show profile.ShowCmd `cmd:"" help:"Show your profile and progress." default:"1"`
		Set  profile.SetCmd  `cmd:"" help:"Create or update your profile."`
	} `cmd:"" help:"Manage your quit profile."`
	Missions struct {
		List   missions.ListCmd   `cmd:"" help:"List missions and their completion." default:"1"`
		Toggle missions.ToggleCmd `cmd:"" help:"Complete or un-complete a mission."`
	} `cmd:"" help:"Track 'first time without' missions."`
	Keyring struct {
		Set    system.KeyringSetCmd    `cmd:"" help:"Store a PostgreSQL connection string in the OS keyring."`
		Get    system.KeyringGetCmd    `cmd:"" help:"Show the stored connection string with the password masked."`
		Delete system.KeyringDeleteCmd `cmd:"" help:"Remove the stored connection string."`
		Clear  system.KeyringClearCmd  `cmd:"" help:"Remove the stored session."`
		Status system.KeyringStatusCmd `cmd:"" help:"Check keyring availability and stored entries."`
	} `cmd:"" help:"Manage credentials in the OS keyring."`
	Settings struct {
		Show system.ConfigShowCmd `cmd:"" help:"Show the effective configuration." default:"1"`
		Set  system.ConfigSetCmd  `cmd:"" help:"Update the configuration file."`
	} `cmd:"" name:"config" help:"View or change configuration."`
}

// offline commands run without restoring the session
var offline = map[string]bool{
	"init":    true,
	"migrate": true,
	"doctor":  true,
	"keyring": true,
	"config":  true,
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name(constants.AppName),
		kong.Description("Quit-smoking companion: live progress, health milestones and missions"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact:             true,
			NoExpandSubcommands: true,
		}),
		kong.Vars{"version": constants.Version},
	)

	cfg, err := config.Load(CLI.Config)
	if err != nil {
		apperrors.Fatalf("failed to load config %s: %v", CLI.Config, err)
	}
	if CLI.Debug {
		cfg.Debug = true
	}

	if err := logger.Init(logger.Config{Debug: cfg.Debug, ConfigDir: cfg.Dir()}); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to initialize logger: %v\n", err)
	}

	var opts []app.Option
	if !keyring.IsAvailable() {
		logger.Warn("OS keyring unavailable, the session will not outlive this run")
		opts = append(opts, app.WithSessionStore(&keyring.MemorySessions{}))
	}

	apperrors.Fatal(run(ctx, cfg, opts...))
}

func run(ctx *kong.Context, cfg *config.Config, opts ...app.Option) error {
	a, err := app.New(cfg, opts...)
	if err != nil {
		return err
	}
	defer a.Close()

	command := strings.Fields(ctx.Command())
	if len(command) > 0 && !offline[command[0]] {
		if err := a.Open(context.Background()); err != nil {
			return err
		}
	}

	return ctx.Run(cli.NewContext(a))
}
