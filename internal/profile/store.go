// Package profile reads and writes the per-user quit profile.
package profile

import (
	"context"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/julianstephens/ember/internal/constants"
	apperrors "github.com/julianstephens/ember/internal/errors"
	"github.com/julianstephens/ember/internal/logger"
	"github.com/julianstephens/ember/internal/models"
	"github.com/julianstephens/ember/internal/syncsvc"
)

var conflictKey = []string{"user_id"}

// Store fetches and upserts profiles through the sync service
type Store struct {
	client syncsvc.Client
	clock  clockwork.Clock
}

func NewStore(client syncsvc.Client, clock clockwork.Clock) *Store {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Store{client: client, clock: clock}
}

// Fetch returns the profile for userID, or nil when the user has none yet
func (s *Store) Fetch(ctx context.Context, userID string) (*models.Profile, error) {
	if userID == "" {
		return nil, apperrors.ErrNotAuthenticated
	}

	var p models.Profile
	err := s.client.Select(ctx, syncsvc.Query{
		Table:   constants.TableProfiles,
		Filters: []syncsvc.Filter{syncsvc.Eq("user_id", userID)},
		Single:  true,
	}, &p)
	if syncsvc.IsAbsent(err) {
		logger.Debug("No profile yet", "user", userID)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Upsert writes upd as the profile of userID and returns the stored row.
// An existing profile keeps its quit timestamp unless upd.ResetQuitAt is set.
func (s *Store) Upsert(ctx context.Context, userID string, upd models.ProfileUpdate) (*models.Profile, error) {
	if userID == "" {
		return nil, apperrors.ErrNotAuthenticated
	}
	if err := Validate(upd); err != nil {
		return nil, err
	}

	quitAt := upd.QuitAt
	if !upd.ResetQuitAt {
		existing, err := s.Fetch(ctx, userID)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			quitAt = existing.QuitAt
		}
	}

	now := s.clock.Now().UTC()
	record := models.Profile{
		UserID:           userID,
		QuitAt:           quitAt.UTC(),
		DailyConsumption: upd.DailyConsumption,
		UnitPrice:        upd.UnitPrice,
		Currency:         upd.Currency,
		UpdatedAt:        &now,
	}

	var stored models.Profile
	if err := s.client.Upsert(ctx, constants.TableProfiles, record, conflictKey, &stored); err != nil {
		logger.Warn("Profile upsert failed", "user", userID, "error", err)
		return nil, err
	}
	logger.Info("Profile saved", "user", userID, "quit_at", stored.QuitAt.Format(time.RFC3339), "habit", describe(&stored))
	return &stored, nil
}

// Validate rejects onboarding values that would make the derived metrics meaningless
func Validate(upd models.ProfileUpdate) error {
	if upd.QuitAt.IsZero() {
		return apperrors.Invalid("quit date is required")
	}
	if upd.DailyConsumption <= 0 {
		return apperrors.Invalid("cigarettes per day must be positive, got %d", upd.DailyConsumption)
	}
	if upd.UnitPrice <= 0 {
		return apperrors.Invalid("price per pack must be positive, got %.2f", upd.UnitPrice)
	}
	if upd.Currency != nil {
		if _, err := ParseCurrency(*upd.Currency); err != nil {
			return err
		}
	}
	return nil
}

func describe(p *models.Profile) string {
	if p == nil {
		return "none"
	}
	return fmt.Sprintf("%d/day at %.2f", p.DailyConsumption, p.UnitPrice)
}
