package missions

import (
	"fmt"

	"github.com/julianstephens/ember/internal/catalog"
	"github.com/julianstephens/ember/internal/cli"
	"github.com/julianstephens/ember/internal/models"
)

type ListCmd struct {
	Category string `short:"c" help:"Only list missions in this category (morning-wins|social-victories|daily-life|emotional-strength|celebrations)."`
}

func (c *ListCmd) Validate() error {
	if c.Category == "" {
		return nil
	}
	if _, ok := catalog.ParseCategory(c.Category); !ok {
		return fmt.Errorf("unknown category %q", c.Category)
	}
	return nil
}

func (c *ListCmd) Run(ctx *cli.Context) error {
	tracker := ctx.App.Missions
	ledger := tracker.State().Get()

	categories := catalog.Categories()
	if c.Category != "" {
		category, _ := catalog.ParseCategory(c.Category)
		categories = []models.MissionCategory{category}
	}

	for i, category := range categories {
		if i > 0 {
			fmt.Println()
		}
		done, total := tracker.CategoryCounts(category)
		fmt.Printf("%s (%d/%d)\n", category.Title(), done, total)
		for _, m := range catalog.MissionsFor(category) {
			box := "[ ]"
			if ledger.IsCompleted(m.ID) {
				box = "[x]"
			}
			fmt.Printf("  %s %-24s %s\n", box, m.ID, m.Title)
		}
	}

	if c.Category == "" {
		done, total := tracker.Counts()
		fmt.Printf("\nCompleted %d of %d missions\n", done, total)
	}
	if ctx.App.Session.UserID() == "" {
		fmt.Println("Sign in to track missions.")
	} else if ledger.ErrorMessage != "" {
		fmt.Printf("⚠ Completed missions could not be loaded: %s\n", ledger.ErrorMessage)
	}
	return nil
}
