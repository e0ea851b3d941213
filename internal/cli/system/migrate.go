package system

import (
	"fmt"

	"github.com/julianstephens/ember/internal/cli"
)

type MigrateCmd struct {
	Status bool `help:"Only report the schema version."`
}

func (c *MigrateCmd) Run(ctx *cli.Context) error {
	store, err := ctx.RequireStore()
	if err != nil {
		return err
	}

	if err := store.Load(); err != nil {
		return err
	}

	runner, err := store.MigrationRunner()
	if err != nil {
		return err
	}

	if c.Status {
		st, err := runner.Status()
		if err != nil {
			return fmt.Errorf("failed to read schema version: %w", err)
		}
		fmt.Printf("Schema version %d of %d (%d pending)\n", st.Current, st.Latest, len(st.Pending))
		return nil
	}

	count, err := runner.ApplyMigrations(func(msg string) {
		fmt.Println(msg)
	})
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	if count > 0 {
		fmt.Printf("✓ Schema migrated (%d applied)\n", count)
	}
	return nil
}
