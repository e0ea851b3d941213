package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/julianstephens/ember/internal/errors"
	"github.com/julianstephens/ember/internal/keyring"
	"github.com/julianstephens/ember/internal/models"
	"github.com/julianstephens/ember/internal/nonce"
	"github.com/julianstephens/ember/internal/profile"
	"github.com/julianstephens/ember/internal/syncsvc/synctest"
)

var base = time.Date(2025, 4, 2, 7, 0, 0, 0, time.UTC)

type memStore struct {
	mu      sync.Mutex
	session *models.Session
	saves   int
}

func (m *memStore) LoadSession() (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return nil, keyring.ErrNotFound
	}
	cp := *m.session
	return &cp, nil
}

func (m *memStore) SaveSession(s *models.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	m.session = &cp
	m.saves++
	return nil
}

func (m *memStore) ClearSession() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session = nil
	return nil
}

func (m *memStore) current() *models.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session
}

type fixture struct {
	bridge  *Bridge
	backend *synctest.Backend
	store   *memStore
	clock   *clockwork.FakeClock
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	clock := clockwork.NewFakeClockAt(base)
	backend := synctest.New()
	backend.SetNow(clock.Now)
	store := &memStore{}
	opts = append([]Option{WithClock(clock)}, opts...)
	return &fixture{
		bridge:  NewBridge(backend, profile.NewStore(backend, clock), store, opts...),
		backend: backend,
		store:   store,
		clock:   clock,
	}
}

func (f *fixture) signIn(t *testing.T, userID string) {
	t.Helper()
	f.backend.AcceptToken("token-"+userID, userID)
	_, _, err := f.bridge.BeginIdentityExchange()
	require.NoError(t, err)
	require.NoError(t, f.bridge.CompleteIdentityExchange(context.Background(), "token-"+userID))
}

func TestRestoreWithoutStoredSession(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.bridge.RestoreSession(context.Background()))
	assert.Equal(t, Unauthenticated, f.bridge.State().Get().Phase)
	assert.Empty(t, f.bridge.UserID())
	assert.Zero(t, f.backend.Calls("refresh"))
}

func TestRestoreValidSessionLoadsProfile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.backend.IssueSession("user-1")
	require.NoError(t, f.store.SaveSession(s))
	_, err := profile.NewStore(f.backend, f.clock).Upsert(ctx, "user-1", models.ProfileUpdate{
		QuitAt: base.Add(-time.Hour), DailyConsumption: 10, UnitPrice: 7,
	})
	require.NoError(t, err)

	require.NoError(t, f.bridge.RestoreSession(ctx))
	state := f.bridge.State().Get()
	assert.Equal(t, Authenticated, state.Phase)
	assert.Equal(t, "user-1", f.bridge.UserID())
	assert.Equal(t, s.AccessToken, f.bridge.AccessToken())
	require.NotNil(t, state.Profile)
	assert.Equal(t, 10, state.Profile.DailyConsumption)
	assert.Zero(t, f.backend.Calls("refresh"))
}

func TestRestoreRefreshesExpiringSession(t *testing.T) {
	f := newFixture(t)
	s := f.backend.IssueSession("user-1")
	require.NoError(t, f.store.SaveSession(s))
	f.clock.Advance(58 * time.Minute)

	require.NoError(t, f.bridge.RestoreSession(context.Background()))
	assert.Equal(t, Authenticated, f.bridge.State().Get().Phase)
	assert.Equal(t, 1, f.backend.Calls("refresh"))
	assert.NotEqual(t, s.AccessToken, f.bridge.AccessToken())
	assert.Equal(t, f.bridge.AccessToken(), f.store.current().AccessToken)
}

func TestRestoreWithFailedRefreshSignsOut(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.store.SaveSession(f.backend.IssueSession("user-1")))
	f.backend.Fail("refresh", errors.New("refresh token revoked"))
	f.clock.Advance(2 * time.Hour)

	require.NoError(t, f.bridge.RestoreSession(context.Background()))
	assert.Equal(t, Unauthenticated, f.bridge.State().Get().Phase)
	assert.Nil(t, f.store.current())
}

func TestIdentityExchange(t *testing.T) {
	f := newFixture(t)
	f.backend.AcceptToken("apple-token", "user-1")

	raw, hashed, err := f.bridge.BeginIdentityExchange()
	require.NoError(t, err)
	assert.Len(t, raw, 32)
	assert.Equal(t, nonce.Hash(raw), hashed)
	assert.True(t, nonce.Matches(raw, hashed))
	assert.Equal(t, Authenticating, f.bridge.State().Get().Phase)
	assert.True(t, f.bridge.Pending())

	require.NoError(t, f.bridge.CompleteIdentityExchange(context.Background(), "apple-token"))
	assert.Equal(t, []string{raw}, f.backend.ExchangedNonces)
	assert.Equal(t, Authenticated, f.bridge.State().Get().Phase)
	assert.Equal(t, "user-1", f.bridge.UserID())
	assert.False(t, f.bridge.Pending())
	assert.NotNil(t, f.store.current())

	err = f.bridge.CompleteIdentityExchange(context.Background(), "apple-token")
	assert.ErrorIs(t, err, ErrNoPendingExchange)
}

func TestBeginInvalidatesPreviousNonce(t *testing.T) {
	f := newFixture(t)
	f.backend.AcceptToken("apple-token", "user-1")

	first, _, err := f.bridge.BeginIdentityExchange()
	require.NoError(t, err)
	second, _, err := f.bridge.BeginIdentityExchange()
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	require.NoError(t, f.bridge.CompleteIdentityExchange(context.Background(), "apple-token"))
	assert.Equal(t, []string{second}, f.backend.ExchangedNonces)
}

func TestCompleteWithoutPendingNonce(t *testing.T) {
	f := newFixture(t)

	err := f.bridge.CompleteIdentityExchange(context.Background(), "apple-token")
	assert.ErrorIs(t, err, apperrors.ErrNotAuthenticated)
	assert.Zero(t, f.backend.Calls("exchange"))
}

func TestRejectedExchange(t *testing.T) {
	f := newFixture(t)
	_, _, err := f.bridge.BeginIdentityExchange()
	require.NoError(t, err)

	err = f.bridge.CompleteIdentityExchange(context.Background(), "forged-token")
	assert.ErrorIs(t, err, apperrors.ErrIdentityExchangeFailed)
	state := f.bridge.State().Get()
	assert.Equal(t, Unauthenticated, state.Phase)
	assert.Contains(t, state.ErrorMessage, "identity exchange failed")
	assert.Nil(t, f.store.current())

	err = f.bridge.CompleteIdentityExchange(context.Background(), "")
	assert.ErrorIs(t, err, apperrors.ErrIdentityExchangeFailed)
}

func TestProfileRoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.bridge.UpsertProfile(ctx, models.ProfileUpdate{QuitAt: base, DailyConsumption: 5, UnitPrice: 6})
	assert.ErrorIs(t, err, apperrors.ErrNotAuthenticated)
	_, err = f.bridge.LoadProfile(ctx)
	assert.ErrorIs(t, err, apperrors.ErrNotAuthenticated)

	f.signIn(t, "user-1")
	assert.Nil(t, f.bridge.Profile())

	currency := "GBP"
	written, err := f.bridge.UpsertProfile(ctx, models.ProfileUpdate{
		QuitAt: base.Add(-36 * time.Hour), DailyConsumption: 12, UnitPrice: 11.2, Currency: &currency,
	})
	require.NoError(t, err)
	assert.Equal(t, written, f.bridge.Profile())

	loaded, err := f.bridge.LoadProfile(ctx)
	require.NoError(t, err)
	assert.Equal(t, written.ID, loaded.ID)
	assert.True(t, written.QuitAt.Equal(loaded.QuitAt))
	assert.Equal(t, written.DailyConsumption, loaded.DailyConsumption)
	assert.Equal(t, written.UnitPrice, loaded.UnitPrice)
	assert.Equal(t, "GBP", loaded.CurrencyOr(""))
}

func TestLoadProfileFailureIsSurfaced(t *testing.T) {
	f := newFixture(t)
	f.signIn(t, "user-1")
	boom := errors.New("503 service unavailable")
	f.backend.Fail("select", boom)

	_, err := f.bridge.LoadProfile(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, f.bridge.State().Get().ErrorMessage, "503")
}

func TestSignOut(t *testing.T) {
	f := newFixture(t)
	f.signIn(t, "user-1")
	f.backend.Fail("signout", errors.New("offline"))

	err := f.bridge.SignOut(context.Background())
	assert.Error(t, err)
	assert.Equal(t, Unauthenticated, f.bridge.State().Get().Phase)
	assert.Empty(t, f.bridge.UserID())
	assert.Nil(t, f.store.current())
	assert.Equal(t, 1, f.backend.Calls("signout"))
}

func TestUserIDFromAccessToken(t *testing.T) {
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "jwt-user"}).SignedString([]byte("k"))
	require.NoError(t, err)

	assert.Equal(t, "jwt-user", userIDOf(&models.Session{AccessToken: tok}))
	assert.Equal(t, "explicit", userIDOf(&models.Session{AccessToken: tok, User: models.SessionUser{ID: "explicit"}}))
	assert.Empty(t, userIDOf(&models.Session{AccessToken: "opaque"}))
	assert.Empty(t, userIDOf(nil))
}

func TestRefreshIfNeeded(t *testing.T) {
	f := newFixture(t, WithRefreshMargin(5*time.Minute))
	ctx := context.Background()
	require.NoError(t, f.bridge.RefreshIfNeeded(ctx))

	f.signIn(t, "user-1")
	before := f.bridge.AccessToken()

	require.NoError(t, f.bridge.RefreshIfNeeded(ctx))
	assert.Zero(t, f.backend.Calls("refresh"))

	f.clock.Advance(56 * time.Minute)
	require.NoError(t, f.bridge.RefreshIfNeeded(ctx))
	assert.Equal(t, 1, f.backend.Calls("refresh"))
	assert.NotEqual(t, before, f.bridge.AccessToken())
}

func TestRefreshFailureBeforeExpiryKeepsSession(t *testing.T) {
	f := newFixture(t)
	f.signIn(t, "user-1")
	f.backend.Fail("refresh", errors.New("timeout"))

	f.clock.Advance(57 * time.Minute)
	assert.Error(t, f.bridge.RefreshIfNeeded(context.Background()))
	assert.Equal(t, Authenticated, f.bridge.State().Get().Phase)

	f.clock.Advance(10 * time.Minute)
	assert.Error(t, f.bridge.RefreshIfNeeded(context.Background()))
	assert.Equal(t, Unauthenticated, f.bridge.State().Get().Phase)
	assert.Nil(t, f.store.current())
}

func TestAutoRefresh(t *testing.T) {
	backend := synctest.New()
	store := &memStore{}
	bridge := NewBridge(backend, profile.NewStore(backend, nil), store, WithRefreshMargin(2*time.Hour))

	require.NoError(t, store.SaveSession(backend.IssueSession("user-1")))
	require.NoError(t, bridge.RestoreSession(context.Background()))
	refreshesAfterRestore := backend.Calls("refresh")

	require.NoError(t, bridge.StartAutoRefresh(20*time.Millisecond))
	require.NoError(t, bridge.StartAutoRefresh(20*time.Millisecond))
	assert.Eventually(t, func() bool {
		return backend.Calls("refresh") > refreshesAfterRestore
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, bridge.StopAutoRefresh())
	require.NoError(t, bridge.StopAutoRefresh())
	assert.Equal(t, Authenticated, bridge.State().Get().Phase)
}
