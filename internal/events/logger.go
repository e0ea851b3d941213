// Package events appends craving events to the sync service.
package events

import (
	"context"
	"strings"

	"github.com/jonboulle/clockwork"

	"github.com/julianstephens/ember/internal/constants"
	apperrors "github.com/julianstephens/ember/internal/errors"
	"github.com/julianstephens/ember/internal/logger"
	"github.com/julianstephens/ember/internal/models"
	"github.com/julianstephens/ember/internal/syncsvc"
)

// Craving is the user-entered part of a craving event. Every field is optional.
type Craving struct {
	Intensity *int
	Trigger   *string
	Note      *string
}

// Logger writes craving events. It keeps no state, so calls may run concurrently.
type Logger struct {
	client syncsvc.Client
	clock  clockwork.Clock
}

func NewLogger(client syncsvc.Client, clock clockwork.Clock) *Logger {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Logger{client: client, clock: clock}
}

// LogCraving inserts one craving event for userID, timestamped now.
// The write is not retried.
func (l *Logger) LogCraving(ctx context.Context, userID string, c Craving) (models.CravingEvent, error) {
	if userID == "" {
		return models.CravingEvent{}, apperrors.ErrNotAuthenticated
	}
	if c.Intensity != nil && (*c.Intensity < constants.MinIntensity || *c.Intensity > constants.MaxIntensity) {
		return models.CravingEvent{}, apperrors.Invalid("intensity must be between %d and %d, got %d",
			constants.MinIntensity, constants.MaxIntensity, *c.Intensity)
	}

	ev := models.CravingEvent{
		UserID:      userID,
		LoggedAt:    l.clock.Now().UTC(),
		Intensity:   c.Intensity,
		TriggerText: blankToNil(c.Trigger),
		Note:        blankToNil(c.Note),
	}
	if err := l.client.Insert(ctx, constants.TableCravings, ev); err != nil {
		logger.Warn("Failed to log craving", "user", userID, "error", err)
		return models.CravingEvent{}, err
	}
	logger.Debug("Craving logged", "user", userID)
	return ev, nil
}

func blankToNil(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
