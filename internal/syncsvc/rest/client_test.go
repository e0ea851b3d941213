package rest

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/julianstephens/ember/internal/errors"
	"github.com/julianstephens/ember/internal/models"
	"github.com/julianstephens/ember/internal/syncsvc"
)

func newTestClient(t *testing.T, h http.HandlerFunc, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(srv.URL, "anon-key", opts...)
}

func TestSelectBuildsPostgrestQuery(t *testing.T) {
	var got *http.Request
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = r
		_, _ = io.WriteString(w, `[{"id":"1","user_id":"u-1","mission_id":"first-coffee","completed_at":"2025-01-01T00:00:00Z"}]`)
	}, WithTokenSource(func() string { return "access-1" }))

	var rows []models.MissionCompletion
	err := c.Select(context.Background(), syncsvc.Query{
		Table:   "mission_completions",
		Filters: []syncsvc.Filter{syncsvc.Eq("user_id", "u-1")},
		Order:   &syncsvc.Order{Column: "completed_at", Descending: true},
		Limit:   10,
	}, &rows)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "first-coffee", rows[0].MissionID)

	require.NotNil(t, got)
	assert.Equal(t, http.MethodGet, got.Method)
	assert.Equal(t, "/rest/v1/mission_completions", got.URL.Path)
	assert.Equal(t, "eq.u-1", got.URL.Query().Get("user_id"))
	assert.Equal(t, "completed_at.desc", got.URL.Query().Get("order"))
	assert.Equal(t, "10", got.URL.Query().Get("limit"))
	assert.Equal(t, "anon-key", got.Header.Get("apikey"))
	assert.Equal(t, "Bearer access-1", got.Header.Get("Authorization"))
}

func TestSelectSingle(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/vnd.pgrst.object+json", r.Header.Get("Accept"))
		_, _ = io.WriteString(w, `{"user_id":"u-1","quit_at":"2025-01-01T00:00:00Z","cigarettes_per_day":20,"price_per_pack":10}`)
	})

	var p models.Profile
	err := c.Select(context.Background(), syncsvc.Query{Table: "profiles", Single: true}, &p)
	require.NoError(t, err)
	assert.Equal(t, 20, p.DailyConsumption)
	assert.InDelta(t, 10.0, p.UnitPrice, 1e-9)
}

func TestErrorClassification(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantIs  error
		wantErr string
	}{
		{"undefined table", http.StatusNotFound, `{"code":"42P01","message":"relation \"public.cravings\" does not exist"}`, syncsvc.ErrRelationNotFound, ""},
		{"schema cache miss", http.StatusNotFound, `{"code":"PGRST205","message":"Could not find the table"}`, syncsvc.ErrRelationNotFound, ""},
		{"no single row", http.StatusNotAcceptable, `{"code":"PGRST116","message":"JSON object requested, multiple (or no) rows returned"}`, syncsvc.ErrRowNotFound, ""},
		{"zero rows detail", http.StatusNotAcceptable, `{"code":"PGRST116","details":"The result contains 0 rows","message":"Cannot coerce the result to a single JSON object"}`, syncsvc.ErrRowNotFound, ""},
		{"several rows", http.StatusNotAcceptable, `{"code":"PGRST116","details":"The result contains 2 rows","message":"Cannot coerce the result to a single JSON object"}`, nil, "Cannot coerce"},
		{"permission denied", http.StatusForbidden, `{"code":"42501","message":"permission denied"}`, nil, "permission denied"},
		{"plain text body", http.StatusBadGateway, `upstream down`, nil, "upstream down"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			})

			var rows []models.CravingEvent
			err := c.Select(context.Background(), syncsvc.Query{Table: "cravings"}, &rows)
			require.Error(t, err)
			if tt.wantIs != nil {
				assert.ErrorIs(t, err, tt.wantIs)
				assert.True(t, syncsvc.IsAbsent(err))
				return
			}
			var rf *apperrors.RemoteFailure
			require.True(t, errors.As(err, &rf))
			assert.Equal(t, tt.status, rf.Status)
			assert.Contains(t, rf.Message, tt.wantErr)
			assert.False(t, syncsvc.IsAbsent(err))
		})
	}
}

func TestInsertSendsRecord(t *testing.T) {
	var body map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/rest/v1/cravings", r.URL.Path)
		assert.Equal(t, "return=minimal", r.Header.Get("Prefer"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.WriteHeader(http.StatusCreated)
	})

	intensity := 6
	err := c.Insert(context.Background(), "cravings", models.CravingEvent{
		UserID:    "u-1",
		LoggedAt:  time.Date(2025, 2, 1, 8, 0, 0, 0, time.UTC),
		Intensity: &intensity,
	})
	require.NoError(t, err)
	assert.Equal(t, "u-1", body["user_id"])
	assert.EqualValues(t, 6, body["intensity"])
	assert.Equal(t, "2025-02-01T08:00:00Z", body["logged_at"])
}

func TestUpsertReturnsRepresentation(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "user_id", r.URL.Query().Get("on_conflict"))
		assert.Equal(t, "resolution=merge-duplicates,return=representation", r.Header.Get("Prefer"))
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `[{"id":"p-1","user_id":"u-1","quit_at":"2025-01-01T00:00:00Z","cigarettes_per_day":15,"price_per_pack":12.5,"currency":"EUR"}]`)
	})

	var p models.Profile
	err := c.Upsert(context.Background(), "profiles", models.Profile{UserID: "u-1"}, []string{"user_id"}, &p)
	require.NoError(t, err)
	assert.Equal(t, "p-1", p.ID)
	require.NotNil(t, p.Currency)
	assert.Equal(t, "EUR", *p.Currency)
}

func TestDeleteRequiresFilter(t *testing.T) {
	calls := 0
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "eq.first-coffee", r.URL.Query().Get("mission_id"))
		w.WriteHeader(http.StatusNoContent)
	})

	assert.Error(t, c.Delete(context.Background(), "mission_completions"))
	require.NoError(t, c.Delete(context.Background(), "mission_completions",
		syncsvc.Eq("user_id", "u-1"), syncsvc.Eq("mission_id", "first-coffee")))
	assert.Equal(t, 1, calls)
}

func TestRejectsUnsafeIdentifiers(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("request should not be sent")
	})

	assert.Error(t, c.Select(context.Background(), syncsvc.Query{Table: "profiles;drop"}, nil))
	assert.Error(t, c.Delete(context.Background(), "cravings", syncsvc.Eq("user id", "x")))
}

func TestExchangeIdentity(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC))
	var payload map[string]string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/v1/token", r.URL.Path)
		assert.Equal(t, "id_token", r.URL.Query().Get("grant_type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		_, _ = io.WriteString(w, `{"access_token":"at","token_type":"bearer","expires_in":3600,"refresh_token":"rt","user":{"id":"user-9","email":"a@b.c"}}`)
	}, WithClock(clock))

	s, err := c.ExchangeIdentity(context.Background(), "apple", "id-token", "raw-nonce")
	require.NoError(t, err)
	assert.Equal(t, "apple", payload["provider"])
	assert.Equal(t, "id-token", payload["id_token"])
	assert.Equal(t, "raw-nonce", payload["nonce"])
	assert.Equal(t, "user-9", s.User.ID)
	assert.Equal(t, "rt", s.RefreshToken)
	assert.Equal(t, clock.Now().Add(time.Hour), s.ExpiresAt)
}

func TestExchangeIdentityRejected(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"error":"invalid_grant","error_description":"Nonces mismatch"}`)
	})

	_, err := c.ExchangeIdentity(context.Background(), "apple", "bad", "n")
	var rf *apperrors.RemoteFailure
	require.True(t, errors.As(err, &rf))
	assert.Equal(t, "invalid_grant", rf.Code)
	assert.Equal(t, "Nonces mismatch", rf.Message)
}

func TestRefreshAndSignOut(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/v1/token":
			assert.Equal(t, "refresh_token", r.URL.Query().Get("grant_type"))
			_, _ = io.WriteString(w, `{"access_token":"at2","refresh_token":"rt2","expires_at":1767225600,"user":{"id":"u"}}`)
		case "/auth/v1/logout":
			assert.Equal(t, "Bearer at2", r.Header.Get("Authorization"))
			w.WriteHeader(http.StatusNoContent)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	})

	_, err := c.Refresh(context.Background(), &models.Session{})
	assert.Error(t, err)

	s, err := c.Refresh(context.Background(), &models.Session{RefreshToken: "rt"})
	require.NoError(t, err)
	assert.Equal(t, "at2", s.AccessToken)
	assert.Equal(t, time.Unix(1767225600, 0).UTC(), s.ExpiresAt)

	require.NoError(t, c.SignOut(context.Background(), s))
	require.NoError(t, c.SignOut(context.Background(), nil))
}
