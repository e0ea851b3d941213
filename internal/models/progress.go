package models

import "time"

// DerivedMetrics are recomputed from a profile and the current time
type DerivedMetrics struct {
	Elapsed             time.Duration
	UnitsAvoided        float64
	AmountSaved         float64
	LifeMinutesRegained float64
}

// MilestoneProgress is the completion ratio of one milestone, in [0, 1]
type MilestoneProgress struct {
	Milestone HealthMilestone
	Ratio     float64
}

// Achieved reports whether the milestone has been reached
func (p MilestoneProgress) Achieved() bool {
	return p.Ratio >= 1
}

// Remaining returns the time left until the milestone, zero once achieved
func (p MilestoneProgress) Remaining(elapsed time.Duration) time.Duration {
	left := p.Milestone.Duration() - elapsed
	if left < 0 {
		return 0
	}
	return left
}
