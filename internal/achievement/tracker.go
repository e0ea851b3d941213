// Package achievement keeps the mission completion ledger for the signed-in
// user and answers milestone queries against the active quit timestamp.
package achievement

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/julianstephens/ember/internal/catalog"
	"github.com/julianstephens/ember/internal/constants"
	apperrors "github.com/julianstephens/ember/internal/errors"
	"github.com/julianstephens/ember/internal/logger"
	"github.com/julianstephens/ember/internal/models"
	"github.com/julianstephens/ember/internal/observable"
	"github.com/julianstephens/ember/internal/progress"
	"github.com/julianstephens/ember/internal/syncsvc"
)

var (
	ErrUnknownMission = fmt.Errorf("%w: unknown mission", apperrors.ErrInvalidInput)
	ErrOtherUser      = fmt.Errorf("%w: ledger belongs to another user", apperrors.ErrInvalidInput)
)

var ledgerKey = []string{"user_id", "mission_id"}

// State is the published view of the ledger
type State struct {
	UserID       string
	Completed    map[string]struct{}
	Loading      bool
	ErrorMessage string
}

// IsCompleted reports whether missionID is in the completed set
func (s State) IsCompleted(missionID string) bool {
	_, ok := s.Completed[missionID]
	return ok
}

// CompletedIDs returns the completed mission ids in sorted order
func (s State) CompletedIDs() []string {
	ids := make([]string, 0, len(s.Completed))
	for id := range s.Completed {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

func (s State) with(completed map[string]struct{}) State {
	s.Completed = completed
	return s
}

// Tracker owns the completed-mission set. Mutations run one at a time and
// the set only changes after the sync service confirms the write.
type Tracker struct {
	client syncsvc.Client
	clock  clockwork.Clock
	ops    sync.Mutex
	state  *observable.Value[State]

	quitMu sync.RWMutex
	quitAt *time.Time
}

func NewTracker(client syncsvc.Client, clock clockwork.Clock) *Tracker {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Tracker{
		client: client,
		clock:  clock,
		state:  observable.New(State{Completed: map[string]struct{}{}}),
	}
}

// State is the published ledger
func (t *Tracker) State() *observable.Value[State] {
	return t.state
}

// Load replaces the completed set with the missions stored for userID.
// A ledger table that does not exist yet counts as no completions.
func (t *Tracker) Load(ctx context.Context, userID string) error {
	if userID == "" {
		return apperrors.ErrNotAuthenticated
	}
	t.ops.Lock()
	defer t.ops.Unlock()

	t.state.Update(func(s State) State {
		s.Loading = true
		return s
	})

	var rows []models.MissionCompletion
	err := t.client.Select(ctx, syncsvc.Query{
		Table:   constants.TableMissionCompletions,
		Filters: []syncsvc.Filter{syncsvc.Eq("user_id", userID)},
	}, &rows)
	if errors.Is(err, syncsvc.ErrRelationNotFound) {
		logger.Debug("Mission ledger not created yet", "user", userID)
		rows, err = nil, nil
	}
	if err != nil {
		logger.Warn("Failed to load mission ledger", "user", userID, "error", err)
		t.state.Update(func(s State) State {
			s.Loading = false
			s.ErrorMessage = apperrors.Message(err)
			return s
		})
		return err
	}

	completed := make(map[string]struct{}, len(rows))
	for _, r := range rows {
		completed[r.MissionID] = struct{}{}
	}
	t.state.Set(State{UserID: userID, Completed: completed})
	logger.Debug("Mission ledger loaded", "user", userID, "completed", len(completed))
	return nil
}

// Toggle completes missionID if it is not completed and uncompletes it
// otherwise. It returns whether the mission is completed afterwards.
func (t *Tracker) Toggle(ctx context.Context, missionID, userID string) (bool, error) {
	t.ops.Lock()
	defer t.ops.Unlock()

	if t.state.Get().IsCompleted(missionID) {
		return false, t.uncomplete(ctx, missionID, userID)
	}
	if err := t.complete(ctx, missionID, userID); err != nil {
		return false, err
	}
	return true, nil
}

// Complete records missionID as done. Completing a completed mission is a no-op.
func (t *Tracker) Complete(ctx context.Context, missionID, userID string) error {
	t.ops.Lock()
	defer t.ops.Unlock()
	return t.complete(ctx, missionID, userID)
}

// Uncomplete removes the completion of missionID
func (t *Tracker) Uncomplete(ctx context.Context, missionID, userID string) error {
	t.ops.Lock()
	defer t.ops.Unlock()
	return t.uncomplete(ctx, missionID, userID)
}

// Reset forgets the loaded ledger, as on sign-out
func (t *Tracker) Reset() {
	t.ops.Lock()
	defer t.ops.Unlock()
	t.state.Set(State{Completed: map[string]struct{}{}})
}

func (t *Tracker) checkUser(userID string) error {
	if userID == "" {
		return apperrors.ErrNotAuthenticated
	}
	if owner := t.state.Get().UserID; owner != "" && owner != userID {
		return ErrOtherUser
	}
	return nil
}

func (t *Tracker) complete(ctx context.Context, missionID, userID string) error {
	if err := t.checkUser(userID); err != nil {
		return err
	}
	if _, ok := catalog.MissionByID(missionID); !ok {
		return fmt.Errorf("%w: %q", ErrUnknownMission, missionID)
	}
	if t.state.Get().IsCompleted(missionID) {
		return nil
	}

	record := models.MissionCompletion{
		UserID:      userID,
		MissionID:   missionID,
		CompletedAt: t.clock.Now().UTC(),
	}
	// upsert on the natural key so a row left behind by another client is not duplicated
	if err := t.client.Upsert(ctx, constants.TableMissionCompletions, record, ledgerKey, nil); err != nil {
		t.fail("complete", missionID, err)
		return err
	}

	t.state.Update(func(s State) State {
		next := cloneSet(s.Completed)
		next[missionID] = struct{}{}
		s = s.with(next)
		s.UserID = userID
		s.ErrorMessage = ""
		return s
	})
	logger.Info("Mission completed", "mission", missionID, "user", userID)
	return nil
}

func (t *Tracker) uncomplete(ctx context.Context, missionID, userID string) error {
	if err := t.checkUser(userID); err != nil {
		return err
	}

	err := t.client.Delete(ctx, constants.TableMissionCompletions,
		syncsvc.Eq("user_id", userID),
		syncsvc.Eq("mission_id", missionID),
	)
	if err != nil && !errors.Is(err, syncsvc.ErrRelationNotFound) {
		t.fail("uncomplete", missionID, err)
		return err
	}

	t.state.Update(func(s State) State {
		next := cloneSet(s.Completed)
		delete(next, missionID)
		s = s.with(next)
		s.UserID = userID
		s.ErrorMessage = ""
		return s
	})
	logger.Info("Mission uncompleted", "mission", missionID, "user", userID)
	return nil
}

func (t *Tracker) fail(op, missionID string, err error) {
	logger.Warn("Mission ledger write failed", "op", op, "mission", missionID, "error", err)
	t.state.Update(func(s State) State {
		s.ErrorMessage = apperrors.Message(err)
		return s
	})
}

// Counts returns the number of completed catalog missions and the catalog size
func (t *Tracker) Counts() (completed, total int) {
	s := t.state.Get()
	missions := catalog.Missions()
	for _, m := range missions {
		if s.IsCompleted(m.ID) {
			completed++
		}
	}
	return completed, len(missions)
}

// CategoryCounts is Counts restricted to one category
func (t *Tracker) CategoryCounts(category models.MissionCategory) (completed, total int) {
	s := t.state.Get()
	missions := catalog.MissionsFor(category)
	for _, m := range missions {
		if s.IsCompleted(m.ID) {
			completed++
		}
	}
	return completed, len(missions)
}

// SetQuitAt sets the timestamp milestone queries are measured from.
// nil clears it.
func (t *Tracker) SetQuitAt(quitAt *time.Time) {
	t.quitMu.Lock()
	defer t.quitMu.Unlock()
	if quitAt == nil {
		t.quitAt = nil
		return
	}
	q := *quitAt
	t.quitAt = &q
}

// MilestoneProgress returns the progress of every milestone at now. Without
// a quit timestamp every ratio is zero.
func (t *Tracker) MilestoneProgress(now time.Time) []models.MilestoneProgress {
	t.quitMu.RLock()
	quitAt := t.quitAt
	t.quitMu.RUnlock()

	if quitAt == nil {
		ms := catalog.Milestones()
		out := make([]models.MilestoneProgress, len(ms))
		for i, m := range ms {
			out[i] = models.MilestoneProgress{Milestone: m}
		}
		return out
	}
	return progress.ComputeMilestoneProgress(*quitAt, catalog.Milestones(), now)
}

// IsAchieved reports whether the milestone at index has been reached at now
func (t *Tracker) IsAchieved(index int, now time.Time) bool {
	m, ok := catalog.MilestoneAt(index)
	if !ok {
		return false
	}

	t.quitMu.RLock()
	quitAt := t.quitAt
	t.quitMu.RUnlock()
	if quitAt == nil {
		return false
	}
	return progress.Ratio(m, progress.Elapsed(*quitAt, now)) >= 1
}

func cloneSet(in map[string]struct{}) map[string]struct{} {
	out := make(map[string]struct{}, len(in)+1)
	for k := range in {
		out[k] = struct{}{}
	}
	return out
}
