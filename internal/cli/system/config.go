package system

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/julianstephens/ember/internal/cli"
	"github.com/julianstephens/ember/internal/constants"
	"github.com/julianstephens/ember/internal/profile"
)

// ConfigShowCmd prints the effective configuration
type ConfigShowCmd struct{}

func (cmd *ConfigShowCmd) Run(ctx *cli.Context) error {
	cfg := *ctx.App.Config
	if cfg.AnonKey != "" {
		cfg.AnonKey = "****"
	}
	cfg.Database = maskPassword(cfg.Database)

	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	fmt.Printf("# %s\n", ctx.App.Config.Path)
	fmt.Print(string(data))
	return nil
}

// ConfigSetCmd updates the config file. Environment overrides in effect
// for this run are written along with the changed values.
type ConfigSetCmd struct {
	Backend  string `help:"Sync backend (rest|postgres|sqlite)."`
	SyncURL  string `help:"Base URL of the hosted sync service."`
	AnonKey  string `help:"Public API key of the hosted sync service."`
	Database string `help:"SQLite file path or PostgreSQL connection string without a password."`
	Provider string `help:"Identity provider name sent with sign-in."`
	Locale   string `help:"BCP 47 locale for currency formatting, e.g. en-GB."`
}

func (cmd *ConfigSetCmd) Validate() error {
	switch constants.Backend(strings.ToLower(cmd.Backend)) {
	case "", constants.BackendREST, constants.BackendPostgres, constants.BackendSQLite:
		return nil
	}
	return fmt.Errorf("unknown backend %q (want rest, postgres or sqlite)", cmd.Backend)
}

func (cmd *ConfigSetCmd) Run(ctx *cli.Context) error {
	cfg := ctx.App.Config
	updated := false

	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
			updated = true
		}
	}
	if cmd.Backend != "" {
		cfg.Backend = constants.Backend(strings.ToLower(cmd.Backend))
		updated = true
	}
	set(&cfg.SyncURL, cmd.SyncURL)
	set(&cfg.AnonKey, cmd.AnonKey)
	set(&cfg.Database, cmd.Database)
	set(&cfg.IdentityProvider, cmd.Provider)
	set(&cfg.Locale, cmd.Locale)

	if !updated {
		fmt.Println("No changes specified. Use 'config show' to view the configuration.")
		return nil
	}

	if err := cfg.Save(); err != nil {
		return err
	}
	fmt.Printf("✓ Configuration saved to %s\n", cfg.Path)
	if cmd.Locale != "" {
		fmt.Printf("  Default currency for %s: %s\n", cfg.Locale, profile.DefaultCurrency(cfg.Locale))
	}
	return nil
}
