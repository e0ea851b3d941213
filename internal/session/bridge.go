// Package session owns the authenticated session: restoring it on launch,
// exchanging an identity token for it, keeping it fresh and ending it.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/jonboulle/clockwork"

	"github.com/julianstephens/ember/internal/constants"
	apperrors "github.com/julianstephens/ember/internal/errors"
	"github.com/julianstephens/ember/internal/keyring"
	"github.com/julianstephens/ember/internal/logger"
	"github.com/julianstephens/ember/internal/models"
	"github.com/julianstephens/ember/internal/nonce"
	"github.com/julianstephens/ember/internal/observable"
	"github.com/julianstephens/ember/internal/profile"
	"github.com/julianstephens/ember/internal/syncsvc"
)

// ErrNoPendingExchange is returned when a token arrives with no nonce outstanding
var ErrNoPendingExchange = fmt.Errorf("%w: no identity exchange in progress", apperrors.ErrNotAuthenticated)

type Phase int

const (
	Unauthenticated Phase = iota
	Authenticating
	Authenticated
)

func (p Phase) String() string {
	switch p {
	case Authenticating:
		return "authenticating"
	case Authenticated:
		return "authenticated"
	default:
		return "unauthenticated"
	}
}

// State is the published session and profile
type State struct {
	Phase        Phase
	Session      *models.Session
	Profile      *models.Profile
	ErrorMessage string
}

// Bridge turns identity-provider tokens into sync service sessions.
// Operations that change the session run one at a time.
type Bridge struct {
	auth     syncsvc.Authenticator
	profiles *profile.Store
	store    keyring.SessionStore
	nonces   *nonce.Generator
	clock    clockwork.Clock
	provider string
	margin   time.Duration

	ops   sync.Mutex
	state *observable.Value[State]

	nonceMu sync.Mutex
	pending string

	schedMu sync.Mutex
	sched   gocron.Scheduler
}

type Option func(*Bridge)

func WithClock(c clockwork.Clock) Option { return func(b *Bridge) { b.clock = c } }

func WithNonceGenerator(g *nonce.Generator) Option { return func(b *Bridge) { b.nonces = g } }

func WithProvider(p string) Option { return func(b *Bridge) { b.provider = p } }

// WithRefreshMargin refreshes sessions this long before they expire
func WithRefreshMargin(d time.Duration) Option { return func(b *Bridge) { b.margin = d } }

func NewBridge(auth syncsvc.Authenticator, profiles *profile.Store, store keyring.SessionStore, opts ...Option) *Bridge {
	b := &Bridge{
		auth:     auth,
		profiles: profiles,
		store:    store,
		nonces:   nonce.NewGenerator(nil),
		clock:    clockwork.NewRealClock(),
		provider: constants.DefaultProvider,
		margin:   constants.DefaultRefreshMargin,
		state:    observable.New(State{}),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// State is the published session state
func (b *Bridge) State() *observable.Value[State] {
	return b.state
}

// RestoreSession recovers the session persisted by a previous run. A
// missing, unreadable or unrefreshable session leaves the bridge
// unauthenticated without an error. Profile load failures are returned.
func (b *Bridge) RestoreSession(ctx context.Context) error {
	b.ops.Lock()
	defer b.ops.Unlock()

	s, err := b.store.LoadSession()
	if err != nil {
		if !errors.Is(err, keyring.ErrNotFound) {
			logger.Warn("Stored session unreadable", "error", err)
		}
		b.state.Set(State{Phase: Unauthenticated})
		return nil
	}

	if s.ExpiresWithin(b.clock.Now(), b.margin) {
		refreshed, err := b.auth.Refresh(ctx, s)
		if err != nil {
			logger.Info("Stored session could not be refreshed", "error", err)
			b.forget()
			b.state.Set(State{Phase: Unauthenticated})
			return nil
		}
		s = refreshed
		b.persist(s)
	}

	b.state.Set(State{Phase: Authenticated, Session: s})
	logger.Info("Session restored", "user", userIDOf(s))
	_, err = b.loadProfile(ctx)
	return err
}

// BeginIdentityExchange creates the nonce for a sign-in attempt. The raw
// nonce stays here; hashed is sent to the identity provider. Any earlier
// pending nonce is discarded.
func (b *Bridge) BeginIdentityExchange() (raw, hashed string, err error) {
	raw, err = b.nonces.Generate(constants.NonceLength)
	if err != nil {
		return "", "", fmt.Errorf("generate nonce: %w", err)
	}

	b.nonceMu.Lock()
	b.pending = raw
	b.nonceMu.Unlock()

	b.state.Update(func(s State) State {
		s.Phase = Authenticating
		s.ErrorMessage = ""
		return s
	})
	return raw, nonce.Hash(raw), nil
}

// Pending reports whether a sign-in attempt is waiting for its token
func (b *Bridge) Pending() bool {
	b.nonceMu.Lock()
	defer b.nonceMu.Unlock()
	return b.pending != ""
}

// CompleteIdentityExchange trades the provider's identity token and the
// pending nonce for a session, then loads the user's profile.
func (b *Bridge) CompleteIdentityExchange(ctx context.Context, idToken string) error {
	b.ops.Lock()
	defer b.ops.Unlock()

	b.nonceMu.Lock()
	raw := b.pending
	b.nonceMu.Unlock()
	if raw == "" {
		return ErrNoPendingExchange
	}
	if idToken == "" {
		return b.exchangeFailed(errors.New("identity token is empty"))
	}

	s, err := b.auth.ExchangeIdentity(ctx, b.provider, idToken, raw)
	if err != nil {
		return b.exchangeFailed(err)
	}
	if s == nil || s.AccessToken == "" {
		return b.exchangeFailed(errors.New("sync service returned no session"))
	}

	b.nonceMu.Lock()
	if b.pending == raw {
		b.pending = ""
	}
	b.nonceMu.Unlock()

	b.persist(s)
	b.state.Set(State{Phase: Authenticated, Session: s})
	logger.Info("Signed in", "provider", b.provider, "user", userIDOf(s))

	_, err = b.loadProfile(ctx)
	return err
}

func (b *Bridge) exchangeFailed(cause error) error {
	err := fmt.Errorf("%w: %v", apperrors.ErrIdentityExchangeFailed, cause)
	logger.Warn("Identity exchange failed", "provider", b.provider, "error", cause)
	b.state.Update(func(s State) State {
		if s.Session == nil {
			s.Phase = Unauthenticated
		} else {
			s.Phase = Authenticated
		}
		s.ErrorMessage = apperrors.Message(err)
		return s
	})
	return err
}

// SignOut ends the session locally even when the sync service cannot be
// reached. The remote error, if any, is returned.
func (b *Bridge) SignOut(ctx context.Context) error {
	b.ops.Lock()
	defer b.ops.Unlock()

	var remoteErr error
	if s := b.state.Get().Session; s != nil {
		if remoteErr = b.auth.SignOut(ctx, s); remoteErr != nil {
			logger.Warn("Remote sign-out failed", "error", remoteErr)
		}
	}

	b.nonceMu.Lock()
	b.pending = ""
	b.nonceMu.Unlock()

	b.forget()
	b.state.Set(State{Phase: Unauthenticated})
	logger.Info("Signed out")
	return remoteErr
}

// UserID returns the signed-in user's id, or "" when unauthenticated
func (b *Bridge) UserID() string {
	return userIDOf(b.state.Get().Session)
}

// AccessToken returns the bearer token for sync service requests
func (b *Bridge) AccessToken() string {
	if s := b.state.Get().Session; s != nil {
		return s.AccessToken
	}
	return ""
}

// Profile returns the last loaded profile
func (b *Bridge) Profile() *models.Profile {
	return b.state.Get().Profile
}

// LoadProfile fetches the signed-in user's profile. A user without a
// profile yields nil and no error.
func (b *Bridge) LoadProfile(ctx context.Context) (*models.Profile, error) {
	b.ops.Lock()
	defer b.ops.Unlock()
	return b.loadProfile(ctx)
}

func (b *Bridge) loadProfile(ctx context.Context) (*models.Profile, error) {
	userID := b.UserID()
	if userID == "" {
		return nil, apperrors.ErrNotAuthenticated
	}

	p, err := b.profiles.Fetch(ctx, userID)
	if err != nil {
		logger.Warn("Profile load failed", "user", userID, "error", err)
		b.state.Update(func(s State) State {
			s.ErrorMessage = apperrors.Message(err)
			return s
		})
		return nil, err
	}

	b.state.Update(func(s State) State {
		s.Profile = p
		s.ErrorMessage = ""
		return s
	})
	return p, nil
}

// UpsertProfile writes the signed-in user's profile and publishes the stored row
func (b *Bridge) UpsertProfile(ctx context.Context, upd models.ProfileUpdate) (*models.Profile, error) {
	b.ops.Lock()
	defer b.ops.Unlock()

	userID := b.UserID()
	if userID == "" {
		return nil, apperrors.ErrNotAuthenticated
	}

	p, err := b.profiles.Upsert(ctx, userID, upd)
	if err != nil {
		b.state.Update(func(s State) State {
			s.ErrorMessage = apperrors.Message(err)
			return s
		})
		return nil, err
	}

	b.state.Update(func(s State) State {
		s.Profile = p
		s.ErrorMessage = ""
		return s
	})
	return p, nil
}

// RefreshIfNeeded renews the session when it is within the refresh margin
// of expiry. A failed refresh of an already expired session signs out.
func (b *Bridge) RefreshIfNeeded(ctx context.Context) error {
	b.ops.Lock()
	defer b.ops.Unlock()

	cur := b.state.Get()
	if cur.Session == nil {
		return nil
	}
	now := b.clock.Now()
	if !cur.Session.ExpiresWithin(now, b.margin) {
		return nil
	}

	refreshed, err := b.auth.Refresh(ctx, cur.Session)
	if err != nil {
		if cur.Session.ExpiresWithin(now, 0) {
			logger.Warn("Session expired and could not be refreshed", "error", err)
			b.forget()
			b.state.Set(State{Phase: Unauthenticated, ErrorMessage: apperrors.Message(err)})
			return err
		}
		logger.Warn("Session refresh failed, will retry", "error", err)
		return err
	}

	b.persist(refreshed)
	b.state.Update(func(s State) State {
		s.Session = refreshed
		s.Phase = Authenticated
		return s
	})
	logger.Debug("Session refreshed", "expires_at", refreshed.ExpiresAt)
	return nil
}

// StartAutoRefresh checks the session every interval and refreshes it when due
func (b *Bridge) StartAutoRefresh(interval time.Duration) error {
	b.schedMu.Lock()
	defer b.schedMu.Unlock()
	if b.sched != nil {
		return nil
	}

	sched, err := gocron.NewScheduler(gocron.WithClock(b.clock))
	if err != nil {
		return fmt.Errorf("create refresh scheduler: %w", err)
	}
	_, err = sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), constants.HTTPTimeout)
			defer cancel()
			_ = b.RefreshIfNeeded(ctx)
		}),
		gocron.WithName("session-refresh"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = sched.Shutdown()
		return fmt.Errorf("schedule session refresh: %w", err)
	}

	sched.Start()
	b.sched = sched
	return nil
}

// StopAutoRefresh stops the refresh job started by StartAutoRefresh
func (b *Bridge) StopAutoRefresh() error {
	b.schedMu.Lock()
	defer b.schedMu.Unlock()
	if b.sched == nil {
		return nil
	}
	err := b.sched.Shutdown()
	b.sched = nil
	return err
}

func (b *Bridge) persist(s *models.Session) {
	if err := b.store.SaveSession(s); err != nil {
		logger.Warn("Failed to persist session", "error", err)
	}
}

func (b *Bridge) forget() {
	if err := b.store.ClearSession(); err != nil {
		logger.Warn("Failed to clear stored session", "error", err)
	}
}

// userIDOf returns the session's user id, falling back to the subject of
// the access token
func userIDOf(s *models.Session) string {
	if s == nil {
		return ""
	}
	if s.User.ID != "" {
		return s.User.ID
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(s.AccessToken, claims); err != nil {
		return ""
	}
	sub, _ := claims.GetSubject()
	return sub
}
