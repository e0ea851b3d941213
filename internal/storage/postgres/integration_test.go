package postgres

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/julianstephens/ember/internal/models"
	"github.com/julianstephens/ember/internal/syncsvc"
)

// TestStore_Integration runs the Sync Service contract against a real database.
// Set EMBER_POSTGRES_TEST_URL to run, e.g.
// EMBER_POSTGRES_TEST_URL="postgres://ember_user@localhost:5432/ember_test?sslmode=disable"
func TestStore_Integration(t *testing.T) {
	connStr := os.Getenv("EMBER_POSTGRES_TEST_URL")
	if connStr == "" {
		t.Skip("EMBER_POSTGRES_TEST_URL not set, skipping PostgreSQL integration test")
	}

	store := New(connStr)
	if err := store.Init(); err != nil {
		t.Fatalf("Failed to initialize store: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	userID := "it-" + time.Now().Format("150405.000000")
	t.Cleanup(func() {
		for _, table := range []string{"profiles", "mission_completions", "cravings"} {
			_ = store.Delete(ctx, table, syncsvc.Eq("user_id", userID))
		}
	})

	t.Run("Profile", func(t *testing.T) {
		quit := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
		var p models.Profile
		err := store.Upsert(ctx, "profiles", models.Profile{
			UserID: userID, QuitAt: quit, DailyConsumption: 20, UnitPrice: 10,
		}, []string{"user_id"}, &p)
		if err != nil {
			t.Fatalf("Upsert() error = %v", err)
		}
		if !p.QuitAt.Equal(quit) || p.ID == "" {
			t.Errorf("Upsert() returned %+v", p)
		}

		var loaded models.Profile
		err = store.Select(ctx, syncsvc.Query{
			Table: "profiles", Filters: []syncsvc.Filter{syncsvc.Eq("user_id", userID)}, Single: true,
		}, &loaded)
		if err != nil || loaded.ID != p.ID {
			t.Errorf("Select() = %+v, %v", loaded, err)
		}
	})

	t.Run("Completions", func(t *testing.T) {
		rec := models.MissionCompletion{UserID: userID, MissionID: "first-coffee", CompletedAt: time.Now().UTC()}
		if err := store.Insert(ctx, "mission_completions", rec); err != nil {
			t.Fatalf("Insert() error = %v", err)
		}
		if err := store.Insert(ctx, "mission_completions", rec); err == nil {
			t.Error("duplicate Insert() should fail")
		}
		if err := store.Delete(ctx, "mission_completions",
			syncsvc.Eq("user_id", userID), syncsvc.Eq("mission_id", "first-coffee")); err != nil {
			t.Fatalf("Delete() error = %v", err)
		}
	})

	t.Run("MissingRelation", func(t *testing.T) {
		var rows []map[string]any
		err := store.Select(ctx, syncsvc.Query{Table: "no_such_table"}, &rows)
		if !errors.Is(err, syncsvc.ErrRelationNotFound) {
			t.Errorf("Select() error = %v, want ErrRelationNotFound", err)
		}
	})
}
