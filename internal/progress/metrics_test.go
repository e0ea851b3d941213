package progress

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/julianstephens/ember/internal/catalog"
	"github.com/julianstephens/ember/internal/models"
)

var base = time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

func testProfile(quitAt time.Time) models.Profile {
	return models.Profile{UserID: "u", QuitAt: quitAt, DailyConsumption: 20, UnitPrice: 10}
}

func TestComputeMetricsOneDay(t *testing.T) {
	m := ComputeMetrics(testProfile(base.Add(-24*time.Hour)), base)

	assert.Equal(t, 24*time.Hour, m.Elapsed)
	assert.InDelta(t, 20.0, m.UnitsAvoided, 1e-9)
	assert.InDelta(t, 10.0, m.AmountSaved, 1e-9)
	assert.InDelta(t, 220.0, m.LifeMinutesRegained, 1e-9)
}

func TestComputeMetricsFutureQuitDate(t *testing.T) {
	m := ComputeMetrics(testProfile(base.Add(time.Hour)), base)
	assert.Equal(t, models.DerivedMetrics{}, m)
}

func TestComputeMetricsMonotonic(t *testing.T) {
	p := testProfile(base)
	prev := ComputeMetrics(p, base)
	for i := 1; i <= 500; i++ {
		now := base.Add(time.Duration(i*i) * time.Minute)
		cur := ComputeMetrics(p, now)
		assert.GreaterOrEqual(t, cur.Elapsed, prev.Elapsed)
		assert.GreaterOrEqual(t, cur.UnitsAvoided, prev.UnitsAvoided)
		assert.GreaterOrEqual(t, cur.AmountSaved, prev.AmountSaved)
		assert.GreaterOrEqual(t, cur.LifeMinutesRegained, prev.LifeMinutesRegained)
		prev = cur
	}
}

func TestComputeIsPure(t *testing.T) {
	p := testProfile(base.Add(-90 * time.Hour))
	ms := catalog.Milestones()

	assert.Equal(t, ComputeMetrics(p, base), ComputeMetrics(p, base))
	assert.Equal(t, ComputeMilestoneProgress(p.QuitAt, ms, base), ComputeMilestoneProgress(p.QuitAt, ms, base))
	assert.Equal(t, catalog.Milestones(), ms)
}

func TestMilestoneBoundary(t *testing.T) {
	m := models.HealthMilestone{Title: "CO cleared", HoursAfterQuit: 8}

	before := Ratio(m, 7*time.Hour+59*time.Minute)
	assert.Less(t, before, 1.0)
	assert.False(t, models.MilestoneProgress{Milestone: m, Ratio: before}.Achieved())

	at := Ratio(m, 8*time.Hour)
	assert.Equal(t, 1.0, at)
	assert.True(t, models.MilestoneProgress{Milestone: m, Ratio: at}.Achieved())

	assert.Equal(t, 1.0, Ratio(m, 100*time.Hour))
	assert.Equal(t, 0.0, Ratio(m, 0))
}

func TestComputeMilestoneProgress(t *testing.T) {
	ms := catalog.Milestones()
	progress := ComputeMilestoneProgress(base.Add(-25*time.Hour), ms, base)

	assert.Len(t, progress, len(ms))
	assert.Equal(t, 3, AchievedCount(progress))

	next, ok := NextMilestone(progress)
	assert.True(t, ok)
	assert.Equal(t, ms[3].Title, next.Milestone.Title)
	assert.InDelta(t, 25.0/48.0, next.Ratio, 1e-9)

	for i := 1; i < len(progress); i++ {
		assert.LessOrEqual(t, progress[i].Ratio, progress[i-1].Ratio)
	}
}

func TestNextMilestoneAllAchieved(t *testing.T) {
	ms := catalog.Milestones()
	progress := ComputeMilestoneProgress(base.Add(-20*365*24*time.Hour), ms, base)
	assert.Equal(t, len(ms), AchievedCount(progress))
	_, ok := NextMilestone(progress)
	assert.False(t, ok)
}
