package system

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/julianstephens/ember/internal/catalog"
	"github.com/julianstephens/ember/internal/cli"
	"github.com/julianstephens/ember/internal/constants"
	"github.com/julianstephens/ember/internal/keyring"
	"github.com/julianstephens/ember/internal/models"
	"github.com/julianstephens/ember/internal/syncsvc"
)

type DoctorCmd struct{}

type check struct {
	name string
	// local checks need the SQL database and are skipped when it is unreachable
	local bool
	// warnings are reported but do not fail the run
	warn bool
	run  func(*cli.Context) error
}

var checks = []check{
	{name: "Configuration", run: checkConfig},
	{name: "Schema version", local: true, run: checkSchemaVersion},
	{name: "Migrations complete", local: true, run: checkMigrationsComplete},
	{name: "Profile integrity", local: true, run: checkProfilesIntegrity},
	{name: "Mission completions", local: true, run: checkCompletionsIntegrity},
	{name: "Craving intensities", local: true, run: checkCravingIntensities},
	{name: "Timestamp integrity", local: true, run: checkTimestampIntegrity},
	{name: "Clock/timezone", run: func(*cli.Context) error { return checkClockTimezone() }},
	{name: "OS keyring", warn: true, run: func(*cli.Context) error { return checkKeyring() }},
}

func (cmd *DoctorCmd) Run(ctx *cli.Context) error {
	fmt.Println("Running diagnostics...")
	fmt.Println()

	hasError := false
	dbReachable := false

	// Check 1: DB reachable
	if ctx.Store == nil {
		fmt.Printf("⊘ Database reachable: SKIPPED (remote backend)\n")
	} else if err := checkDBReachable(ctx); err != nil {
		fmt.Printf("❌ Database reachable: FAIL\n")
		fmt.Printf("   Error: %v\n", err)
		hasError = true
	} else {
		fmt.Printf("✓ Database reachable: OK\n")
		dbReachable = true
	}

	for _, c := range checks {
		if c.local && !dbReachable {
			reason := "database not reachable"
			if ctx.Store == nil {
				reason = "remote backend"
			}
			fmt.Printf("⊘ %s: SKIPPED (%s)\n", c.name, reason)
			continue
		}
		err := c.run(ctx)
		switch {
		case err == nil:
			fmt.Printf("✓ %s: OK\n", c.name)
		case c.warn:
			fmt.Printf("⚠ %s: WARNING\n", c.name)
			fmt.Printf("   %v\n", err)
		default:
			fmt.Printf("❌ %s: FAIL\n", c.name)
			fmt.Printf("   Error: %v\n", err)
			hasError = true
		}
	}

	fmt.Println()
	if hasError {
		fmt.Println("Diagnostics completed with errors.")
		return fmt.Errorf("one or more health checks failed")
	}

	fmt.Println("All diagnostics passed!")
	return nil
}

func checkConfig(ctx *cli.Context) error {
	if ctx.App == nil || ctx.App.Config == nil {
		return nil
	}
	return ctx.App.Config.Validate()
}

func checkDBReachable(ctx *cli.Context) error {
	if err := ctx.Store.Load(); err != nil {
		return fmt.Errorf("failed to load database: %w", err)
	}

	db := ctx.Store.GetDB()
	if db == nil {
		return fmt.Errorf("database connection is nil")
	}
	var result int
	if err := db.QueryRow("SELECT 1").Scan(&result); err != nil {
		return fmt.Errorf("failed to query database: %w", err)
	}
	return nil
}

func checkSchemaVersion(ctx *cli.Context) error {
	runner, err := ctx.Store.MigrationRunner()
	if err != nil {
		return err
	}
	return runner.ValidateVersion()
}

func checkMigrationsComplete(ctx *cli.Context) error {
	runner, err := ctx.Store.MigrationRunner()
	if err != nil {
		return err
	}
	st, err := runner.Status()
	if err != nil {
		return fmt.Errorf("failed to get schema status: %w", err)
	}
	if st.Current < st.Latest {
		return fmt.Errorf("migrations incomplete: current version %d, latest version %d (run '%s migrate')", st.Current, st.Latest, constants.AppName)
	}
	return nil
}

func checkProfilesIntegrity(ctx *cli.Context) error {
	var profiles []models.Profile
	if err := ctx.Store.Select(context.Background(), syncsvc.Query{Table: constants.TableProfiles}, &profiles); err != nil {
		return fmt.Errorf("failed to read profiles: %w", err)
	}
	seen := make(map[string]bool, len(profiles))
	for _, p := range profiles {
		if seen[p.UserID] {
			return fmt.Errorf("user %s has more than one profile", p.UserID)
		}
		seen[p.UserID] = true
		if p.DailyConsumption <= 0 || p.UnitPrice <= 0 {
			return fmt.Errorf("profile for user %s has non-positive consumption or price", p.UserID)
		}
	}
	return nil
}

func checkCompletionsIntegrity(ctx *cli.Context) error {
	var completions []models.MissionCompletion
	if err := ctx.Store.Select(context.Background(), syncsvc.Query{Table: constants.TableMissionCompletions}, &completions); err != nil {
		return fmt.Errorf("failed to read mission completions: %w", err)
	}
	unknown := 0
	for _, c := range completions {
		if _, ok := catalog.MissionByID(c.MissionID); !ok {
			unknown++
		}
	}
	if unknown > 0 {
		return fmt.Errorf("found %d mission completions referencing unknown missions", unknown)
	}
	return nil
}

func checkCravingIntensities(ctx *cli.Context) error {
	var count int
	err := ctx.Store.GetDB().QueryRow(fmt.Sprintf(
		`SELECT COUNT(*) FROM cravings WHERE intensity IS NOT NULL AND (intensity < %d OR intensity > %d)`,
		constants.MinIntensity, constants.MaxIntensity,
	)).Scan(&count)
	if err != nil {
		return fmt.Errorf("failed to check craving intensities: %w", err)
	}
	if count > 0 {
		return fmt.Errorf("found %d cravings with intensity outside %d..%d", count, constants.MinIntensity, constants.MaxIntensity)
	}
	return nil
}

func checkTimestampIntegrity(ctx *cli.Context) error {
	bg := context.Background()

	var profiles []models.Profile
	if err := ctx.Store.Select(bg, syncsvc.Query{Table: constants.TableProfiles}, &profiles); err != nil {
		return fmt.Errorf("failed to read profiles: %w", err)
	}
	for _, p := range profiles {
		if p.QuitAt.IsZero() {
			return fmt.Errorf("profile for user %s has no quit timestamp", p.UserID)
		}
	}

	var cravings []models.CravingEvent
	if err := ctx.Store.Select(bg, syncsvc.Query{Table: constants.TableCravings}, &cravings); err != nil {
		return fmt.Errorf("failed to read cravings: %w", err)
	}
	corrupted := 0
	for _, c := range cravings {
		if c.LoggedAt.IsZero() {
			corrupted++
		}
	}
	if corrupted > 0 {
		return fmt.Errorf("found %d cravings with corrupted timestamps", corrupted)
	}
	return nil
}

func checkClockTimezone() error {
	// Check if system time is reasonable
	now := time.Now()

	// Check if time is in a reasonable range (after 2020 and before 2100)
	if now.Year() < 2020 || now.Year() > 2100 {
		return fmt.Errorf("system time appears incorrect: %s", now.Format(time.RFC3339))
	}

	return nil
}

func checkKeyring() error {
	if !keyring.IsAvailable() {
		return errors.New("OS keyring is not available; sessions will not survive restarts")
	}
	return nil
}
