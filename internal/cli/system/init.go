package system

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/julianstephens/ember/internal/cli"
	"github.com/julianstephens/ember/internal/constants"
	"github.com/julianstephens/ember/internal/models"
	"github.com/julianstephens/ember/internal/storage"
	"github.com/julianstephens/ember/internal/storage/postgres"
	"github.com/julianstephens/ember/internal/storage/sqlite"
	"github.com/julianstephens/ember/internal/syncsvc"
)

type InitCmd struct {
	Force  bool   `help:"Force reset by deleting existing database before initialization."`
	Source string `help:"Source database path or connection string to copy data from."`
}

func (c *InitCmd) Run(ctx *cli.Context) error {
	store, err := ctx.RequireStore()
	if err != nil {
		return err
	}

	// If force flag is provided, delete existing database
	if c.Force {
		dbPath := store.GetConfigPath()
		if c.Source != "" {
			absDbPath, err := filepath.Abs(dbPath)
			if err == nil {
				dbPath = absDbPath
			}
			absSource, err := filepath.Abs(c.Source)
			if err == nil && absSource == dbPath {
				return fmt.Errorf("cannot use --force when source and destination are the same: %s", dbPath)
			}
		}
		if _, err := os.Stat(dbPath); err == nil {
			// Close first to release the file lock
			if err := store.Close(); err != nil {
				return fmt.Errorf("failed to close existing database: %w", err)
			}
			if err := os.Remove(dbPath); err != nil {
				return fmt.Errorf("failed to delete existing database: %w", err)
			}
			fmt.Printf("Deleted existing database at: %s\n", dbPath)
		} else if !os.IsNotExist(err) {
			return fmt.Errorf("failed to access existing database: %w", err)
		}
	}

	if err := store.Init(); err != nil {
		return err
	}
	fmt.Printf("Initialized %s storage at: %s\n", constants.AppName, store.GetConfigPath())

	if c.Source != "" {
		fmt.Printf("Copying data from: %s\n", c.Source)
		if err := c.copyData(store, c.Source); err != nil {
			return fmt.Errorf("copy failed: %w", err)
		}
		fmt.Println("Copy completed successfully!")
	}

	return nil
}

func (c *InitCmd) copyData(dest syncsvc.Client, sourcePath string) error {
	var source storage.Provider
	if postgres.IsURL(sourcePath) {
		if valid, err := postgres.ValidateConnString(sourcePath); !valid {
			if errors.Is(err, postgres.ErrEmbeddedCredentials) {
				return fmt.Errorf("PostgreSQL source connection string contains embedded credentials. Use environment variables or .pgpass instead")
			}
			return err
		}
		source = postgres.New(sourcePath)
	} else {
		source = sqlite.NewStore(sourcePath)
	}

	if err := source.Load(); err != nil {
		return fmt.Errorf("failed to load source database: %w", err)
	}
	defer source.Close()

	bg := context.Background()

	fmt.Println("  Copying profiles...")
	var profiles []models.Profile
	if err := source.Select(bg, syncsvc.Query{Table: constants.TableProfiles}, &profiles); err != nil && !syncsvc.IsAbsent(err) {
		return fmt.Errorf("failed to read profiles from source: %w", err)
	}
	for _, p := range profiles {
		if err := dest.Upsert(bg, constants.TableProfiles, p, []string{"user_id"}, nil); err != nil {
			return fmt.Errorf("failed to copy profile %s: %w", p.ID, err)
		}
	}
	fmt.Printf("    Copied %d profiles\n", len(profiles))

	fmt.Println("  Copying mission completions...")
	var completions []models.MissionCompletion
	if err := source.Select(bg, syncsvc.Query{Table: constants.TableMissionCompletions}, &completions); err != nil && !syncsvc.IsAbsent(err) {
		return fmt.Errorf("failed to read mission completions from source: %w", err)
	}
	for _, mc := range completions {
		if err := dest.Upsert(bg, constants.TableMissionCompletions, mc, []string{"user_id", "mission_id"}, nil); err != nil {
			return fmt.Errorf("failed to copy completion %s: %w", mc.ID, err)
		}
	}
	fmt.Printf("    Copied %d mission completions\n", len(completions))

	fmt.Println("  Copying cravings...")
	var cravings []models.CravingEvent
	if err := source.Select(bg, syncsvc.Query{Table: constants.TableCravings}, &cravings); err != nil && !syncsvc.IsAbsent(err) {
		return fmt.Errorf("failed to read cravings from source: %w", err)
	}
	for _, ev := range cravings {
		if err := dest.Insert(bg, constants.TableCravings, ev); err != nil {
			return fmt.Errorf("failed to copy craving %s: %w", ev.ID, err)
		}
	}
	fmt.Printf("    Copied %d cravings\n", len(cravings))

	return nil
}
