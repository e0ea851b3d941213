package progress

import (
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/julianstephens/ember/internal/catalog"
	"github.com/julianstephens/ember/internal/constants"
	"github.com/julianstephens/ember/internal/logger"
	"github.com/julianstephens/ember/internal/models"
	"github.com/julianstephens/ember/internal/observable"
)

// Snapshot is what the engine publishes on every tick
type Snapshot struct {
	Profile    *models.Profile
	Metrics    models.DerivedMetrics
	Milestones []models.MilestoneProgress
	At         time.Time
}

// Active reports whether the snapshot was computed from a profile
func (s Snapshot) Active() bool {
	return s.Profile != nil
}

// Engine republishes metrics for the active profile once per interval
type Engine struct {
	catalog  []models.HealthMilestone
	repeater *Repeater
	state    *observable.Value[Snapshot]
}

func NewEngine(clock clockwork.Clock) *Engine {
	return NewEngineWithInterval(clock, constants.TickInterval)
}

func NewEngineWithInterval(clock clockwork.Clock, interval time.Duration) *Engine {
	return &Engine{
		catalog:  catalog.Milestones(),
		repeater: NewRepeater(clock, interval),
		state:    observable.New(Snapshot{}),
	}
}

// State is the published snapshot
func (e *Engine) State() *observable.Value[Snapshot] {
	return e.state
}

// Start begins publishing for p, replacing any previous profile. A nil
// profile is the same as Stop.
func (e *Engine) Start(p *models.Profile) {
	if p == nil {
		e.Stop()
		return
	}
	profile := *p
	logger.Debug("Progress engine started", "quit_at", profile.QuitAt)
	e.repeater.Start(func(now time.Time) {
		e.state.Set(e.snapshot(&profile, now))
	})
}

// Stop halts publishing and resets the published state to zero
func (e *Engine) Stop() {
	e.repeater.Stop()
	e.state.Set(Snapshot{})
}

// Running reports whether a profile is being tracked
func (e *Engine) Running() bool {
	return e.repeater.Running()
}

// Compute returns the snapshot for p at now without publishing it
func (e *Engine) Compute(p models.Profile, now time.Time) Snapshot {
	return e.snapshot(&p, now)
}

func (e *Engine) snapshot(p *models.Profile, now time.Time) Snapshot {
	return Snapshot{
		Profile:    p,
		Metrics:    ComputeMetrics(*p, now),
		Milestones: ComputeMilestoneProgress(p.QuitAt, e.catalog, now),
		At:         now,
	}
}
