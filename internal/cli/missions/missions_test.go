package missions

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/julianstephens/ember/internal/cli/clitest"
	apperrors "github.com/julianstephens/ember/internal/errors"
	"github.com/julianstephens/ember/internal/models"
	"github.com/julianstephens/ember/internal/syncsvc/synctest"
)

func TestToggleMission(t *testing.T) {
	env := clitest.New(t, "user-1")

	require.NoError(t, (&ToggleCmd{ID: "first-coffee"}).Run(env.Ctx))
	assert.True(t, env.App.Missions.State().Get().IsCompleted("first-coffee"))
	assert.Len(t, env.Backend.Rows("mission_completions"), 1)

	require.NoError(t, (&ToggleCmd{ID: "first-coffee"}).Run(env.Ctx))
	assert.False(t, env.App.Missions.State().Get().IsCompleted("first-coffee"))
	assert.Empty(t, env.Backend.Rows("mission_completions"))
}

func TestToggleReloadsLedgerAfterFailedStartup(t *testing.T) {
	env := clitest.New(t, "user-1", func(b *synctest.Backend) {
		b.Fail("select", errors.New("offline"))
	})

	assert.Error(t, (&ToggleCmd{ID: "first-coffee"}).Run(env.Ctx))
	assert.Empty(t, env.Backend.Rows("mission_completions"))

	env.Backend.Fail("select", nil)
	require.NoError(t, (&ToggleCmd{ID: "first-coffee"}).Run(env.Ctx))
	assert.True(t, env.App.Missions.State().Get().IsCompleted("first-coffee"))
	assert.Len(t, env.Backend.Rows("mission_completions"), 1)
}

func TestToggleUnknownMission(t *testing.T) {
	env := clitest.New(t, "user-1")
	assert.Error(t, (&ToggleCmd{ID: "first-moonwalk"}).Run(env.Ctx))
	assert.Empty(t, env.Backend.Rows("mission_completions"))
}

func TestToggleRequiresSignIn(t *testing.T) {
	env := clitest.New(t, "")
	assert.ErrorIs(t, (&ToggleCmd{ID: "first-coffee"}).Run(env.Ctx), apperrors.ErrNotAuthenticated)
}

func TestListValidate(t *testing.T) {
	assert.NoError(t, (&ListCmd{}).Validate())
	assert.NoError(t, (&ListCmd{Category: "morning-wins"}).Validate())
	assert.Error(t, (&ListCmd{Category: "evening-losses"}).Validate())
}

func TestList(t *testing.T) {
	env := clitest.New(t, "user-1")
	require.NoError(t, (&ToggleCmd{ID: "first-coffee"}).Run(env.Ctx))

	assert.NoError(t, (&ListCmd{}).Run(env.Ctx))
	assert.NoError(t, (&ListCmd{Category: "morning-wins"}).Run(env.Ctx))
}

func TestMilestones(t *testing.T) {
	env := clitest.New(t, "user-1")
	assert.Error(t, (&MilestonesCmd{}).Run(env.Ctx), "no profile yet")

	_, err := env.App.Session.UpsertProfile(context.Background(), models.ProfileUpdate{
		QuitAt:           clitest.Now.Add(-30 * time.Hour),
		DailyConsumption: 20,
		UnitPrice:        10,
	})
	require.NoError(t, err)

	assert.NoError(t, (&MilestonesCmd{}).Run(env.Ctx))
	assert.NoError(t, (&MilestonesCmd{All: true}).Run(env.Ctx))
	assert.True(t, env.App.Missions.IsAchieved(2, env.Clock.Now()))
	assert.False(t, env.App.Missions.IsAchieved(3, env.Clock.Now()))
}
