// Package app wires ember's components together for one process.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/julianstephens/ember/internal/achievement"
	"github.com/julianstephens/ember/internal/config"
	"github.com/julianstephens/ember/internal/constants"
	apperrors "github.com/julianstephens/ember/internal/errors"
	"github.com/julianstephens/ember/internal/events"
	"github.com/julianstephens/ember/internal/keyring"
	"github.com/julianstephens/ember/internal/logger"
	"github.com/julianstephens/ember/internal/models"
	"github.com/julianstephens/ember/internal/profile"
	"github.com/julianstephens/ember/internal/progress"
	"github.com/julianstephens/ember/internal/session"
	"github.com/julianstephens/ember/internal/storage"
	"github.com/julianstephens/ember/internal/syncsvc"
	"github.com/julianstephens/ember/internal/syncsvc/localauth"
	"github.com/julianstephens/ember/internal/syncsvc/rest"
)

// App is the composition root. It owns every component and the
// subscriptions between them, and tears them down in Close.
type App struct {
	Config   *config.Config
	Clock    clockwork.Clock
	Backend  syncsvc.Backend
	Provider storage.Provider

	Session  *session.Bridge
	Profiles *profile.Store
	Progress *progress.Engine
	Missions *achievement.Tracker
	Cravings *events.Logger

	mu          sync.Mutex
	tracked     profileKey
	unsubscribe func()
}

type Option func(*options)

type options struct {
	clock    clockwork.Clock
	backend  syncsvc.Backend
	sessions keyring.SessionStore
}

// WithClock replaces the real clock
func WithClock(c clockwork.Clock) Option { return func(o *options) { o.clock = c } }

// WithBackend skips backend construction from the config
func WithBackend(b syncsvc.Backend) Option { return func(o *options) { o.backend = b } }

// WithSessionStore replaces the OS keyring session store
func WithSessionStore(s keyring.SessionStore) Option { return func(o *options) { o.sessions = s } }

func New(cfg *config.Config, opts ...Option) (*App, error) {
	o := options{clock: clockwork.NewRealClock(), sessions: keyring.Sessions{}}
	for _, opt := range opts {
		opt(&o)
	}

	a := &App{Config: cfg, Clock: o.clock}

	a.Backend = o.backend
	if a.Backend == nil {
		backend, provider, err := a.newBackend()
		if err != nil {
			return nil, err
		}
		a.Backend, a.Provider = backend, provider
	} else if b, ok := o.backend.(*storage.Backend); ok {
		a.Provider = b.Provider
	}

	a.Profiles = profile.NewStore(a.Backend, a.Clock)
	a.Session = session.NewBridge(a.Backend, a.Profiles, o.sessions,
		session.WithClock(a.Clock),
		session.WithProvider(cfg.IdentityProvider),
		session.WithRefreshMargin(cfg.Margin()),
	)
	a.Progress = progress.NewEngine(a.Clock)
	a.Missions = achievement.NewTracker(a.Backend, a.Clock)
	a.Cravings = events.NewLogger(a.Backend, a.Clock)

	a.unsubscribe = a.Session.State().Subscribe(a.onSession)
	return a, nil
}

func (a *App) newBackend() (syncsvc.Backend, storage.Provider, error) {
	auth := localauth.New(a.Clock, constants.LocalSessionLifetime)

	switch a.Config.Backend {
	case constants.BackendREST:
		client := rest.New(a.Config.SyncURL, a.Config.AnonKey,
			rest.WithClock(a.Clock),
			rest.WithTokenSource(func() string {
				if a.Session == nil {
					return ""
				}
				return a.Session.AccessToken()
			}),
		)
		return client, nil, nil
	case constants.BackendPostgres:
		connStr, trusted, err := PostgresConnString(a.Config)
		if err != nil {
			return nil, nil, err
		}
		b, err := storage.NewPostgres(connStr, trusted, auth)
		if err != nil {
			return nil, nil, err
		}
		return b, b.Provider, nil
	case constants.BackendSQLite:
		b := storage.NewSQLite(a.Config.Database, auth)
		return b, b.Provider, nil
	default:
		return nil, nil, fmt.Errorf("unknown backend %q", a.Config.Backend)
	}
}

// PostgresConnString picks the connection string from EMBER_DB_CONNECTION,
// then the OS keyring, then the config file. Only the config file value is
// untrusted and must not embed a password.
func PostgresConnString(cfg *config.Config) (connStr string, trusted bool, err error) {
	if v := os.Getenv(constants.EnvDBConnection); v != "" {
		return v, true, nil
	}
	v, err := keyring.GetConnectionString()
	switch {
	case err == nil:
		return v, true, nil
	case errors.Is(err, keyring.ErrNotFound), errors.Is(err, keyring.ErrKeyringUnavailable):
	default:
		return "", false, err
	}
	if cfg.Database == "" {
		return "", false, fmt.Errorf("no PostgreSQL connection string: set %s, store one with '%s keyring set' or set database in the config",
			constants.EnvDBConnection, constants.AppName)
	}
	return cfg.Database, false, nil
}

// Open loads local storage, restores the previous session and loads the
// mission ledger for the restored user. Profile and ledger load failures
// stay on the session and tracker state so commands can still run.
func (a *App) Open(ctx context.Context) error {
	if a.Provider != nil {
		if err := a.Provider.Load(); err != nil {
			return err
		}
	}
	if err := a.Session.RestoreSession(ctx); err != nil {
		logger.Warn("Profile not loaded on startup", "error", err)
	}
	if err := a.LoadLedger(ctx); err != nil {
		logger.Warn("Mission ledger not loaded on startup", "error", err)
	}
	return nil
}

// LoadLedger loads the mission ledger of the signed-in user, if any
func (a *App) LoadLedger(ctx context.Context) error {
	userID := a.Session.UserID()
	if userID == "" {
		return nil
	}
	return a.Missions.Load(ctx, userID)
}

// RequireUser returns the signed-in user id or ErrNotAuthenticated
func (a *App) RequireUser() (string, error) {
	id := a.Session.UserID()
	if id == "" {
		return "", apperrors.ErrNotAuthenticated
	}
	return id, nil
}

// Close stops background work and releases the backend
func (a *App) Close() error {
	if a.unsubscribe != nil {
		a.unsubscribe()
		a.unsubscribe = nil
	}
	if err := a.Session.StopAutoRefresh(); err != nil {
		logger.Warn("Stopping session refresh failed", "error", err)
	}
	a.Progress.Stop()
	return a.Backend.Close()
}

// profileKey identifies the inputs the progress engine depends on
type profileKey struct {
	set      bool
	userID   string
	quitAt   time.Time
	daily    int
	price    float64
	currency string
}

func keyOf(p *models.Profile) profileKey {
	if p == nil {
		return profileKey{}
	}
	return profileKey{
		set:      true,
		userID:   p.UserID,
		quitAt:   p.QuitAt,
		daily:    p.DailyConsumption,
		price:    p.UnitPrice,
		currency: p.CurrencyOr(""),
	}
}

// onSession restarts the progress engine whenever the active profile
// changes and clears the ledger on sign-out
func (a *App) onSession(s session.State) {
	if s.Phase == session.Unauthenticated && s.Session == nil {
		a.Missions.Reset()
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	next := keyOf(s.Profile)
	if next == a.tracked {
		return
	}
	a.tracked = next

	if s.Profile == nil {
		a.Progress.Stop()
		a.Missions.SetQuitAt(nil)
		return
	}
	a.Progress.Start(s.Profile)
	a.Missions.SetQuitAt(&s.Profile.QuitAt)
}
