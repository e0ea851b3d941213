// Package clitest builds command contexts over an in-memory sync service
package clitest

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"

	"github.com/julianstephens/ember/internal/app"
	"github.com/julianstephens/ember/internal/cli"
	"github.com/julianstephens/ember/internal/config"
	"github.com/julianstephens/ember/internal/keyring"
	"github.com/julianstephens/ember/internal/syncsvc/synctest"
)

// Now is the fake clock's starting time
var Now = time.Date(2025, 8, 1, 9, 0, 0, 0, time.UTC)

type Env struct {
	Ctx      *cli.Context
	App      *app.App
	Backend  *synctest.Backend
	Clock    *clockwork.FakeClock
	Sessions *keyring.MemorySessions
}

// New opens an app over a fresh in-memory backend. A non-empty userID
// starts the app signed in as that user. setup runs against the backend
// before the app is opened.
func New(t *testing.T, userID string, setup ...func(*synctest.Backend)) *Env {
	t.Helper()

	clock := clockwork.NewFakeClockAt(Now)
	backend := synctest.New()
	backend.SetNow(clock.Now)

	sessions := &keyring.MemorySessions{}
	if userID != "" {
		require.NoError(t, sessions.SaveSession(backend.IssueSession(userID)))
	}

	for _, fn := range setup {
		fn(backend)
	}

	cfg := config.Default(t.TempDir())
	cfg.Locale = "en-US"
	a, err := app.New(cfg, app.WithClock(clock), app.WithBackend(backend), app.WithSessionStore(sessions))
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	require.NoError(t, a.Open(context.Background()))

	ctx := cli.NewContext(a)
	ctx.Stdin = strings.NewReader("")
	return &Env{Ctx: ctx, App: a, Backend: backend, Clock: clock, Sessions: sessions}
}

// WithInput replaces the context's stdin with input
func (e *Env) WithInput(input string) *Env {
	e.Ctx.Stdin = strings.NewReader(input)
	return e
}
