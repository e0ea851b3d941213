// Package progress derives live metrics and milestone progress from a
// quit profile and republishes them while a profile is active.
package progress

import (
	"time"

	"github.com/julianstephens/ember/internal/constants"
	"github.com/julianstephens/ember/internal/models"
)

// Elapsed returns the time since quitAt, never negative
func Elapsed(quitAt, now time.Time) time.Duration {
	d := now.Sub(quitAt)
	if d < 0 {
		return 0
	}
	return d
}

// ComputeMetrics derives the running totals for p at now
func ComputeMetrics(p models.Profile, now time.Time) models.DerivedMetrics {
	elapsed := Elapsed(p.QuitAt, now)
	perSecond := float64(p.DailyConsumption) / constants.SecondsPerDay
	units := elapsed.Seconds() * perSecond
	if units < 0 {
		units = 0
	}

	saved := units / constants.UnitsPerPack * p.UnitPrice
	if saved < 0 {
		saved = 0
	}

	return models.DerivedMetrics{
		Elapsed:             elapsed,
		UnitsAvoided:        units,
		AmountSaved:         saved,
		LifeMinutesRegained: units * constants.MinutesPerUnit,
	}
}

// Ratio returns how far elapsed has progressed towards m, in [0, 1]
func Ratio(m models.HealthMilestone, elapsed time.Duration) float64 {
	if m.HoursAfterQuit <= 0 {
		return 1
	}
	r := elapsed.Hours() / m.HoursAfterQuit
	switch {
	case r < 0:
		return 0
	case r > 1:
		return 1
	default:
		return r
	}
}

// ComputeMilestoneProgress pairs every milestone in catalog with its ratio at now
func ComputeMilestoneProgress(quitAt time.Time, catalog []models.HealthMilestone, now time.Time) []models.MilestoneProgress {
	elapsed := Elapsed(quitAt, now)
	out := make([]models.MilestoneProgress, len(catalog))
	for i, m := range catalog {
		out[i] = models.MilestoneProgress{Milestone: m, Ratio: Ratio(m, elapsed)}
	}
	return out
}

// AchievedCount returns how many milestones have been reached
func AchievedCount(progress []models.MilestoneProgress) int {
	n := 0
	for _, p := range progress {
		if p.Achieved() {
			n++
		}
	}
	return n
}

// NextMilestone returns the first milestone not yet reached
func NextMilestone(progress []models.MilestoneProgress) (models.MilestoneProgress, bool) {
	for _, p := range progress {
		if !p.Achieved() {
			return p, true
		}
	}
	return models.MilestoneProgress{}, false
}
