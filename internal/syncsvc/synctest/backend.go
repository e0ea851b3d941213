// Package synctest provides an in-memory Sync Service for tests.
package synctest

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/julianstephens/ember/internal/models"
	"github.com/julianstephens/ember/internal/syncsvc"
)

// Backend is an in-memory syncsvc.Backend. Tables must be created before use;
// operations on unknown tables fail with syncsvc.ErrRelationNotFound.
type Backend struct {
	mu      sync.Mutex
	tables  map[string][]map[string]any
	unique  map[string][][]string
	failing map[string]error
	calls   map[string]int

	// Gate, when set, is received from before every data operation
	Gate chan struct{}

	tokens   map[string]string
	sessions map[string]*models.Session
	now      func() time.Time
	// ExchangedNonces records the raw nonces presented to ExchangeIdentity
	ExchangedNonces []string
}

// New returns a backend with the three ember tables created
func New() *Backend {
	b := &Backend{
		tables:   map[string][]map[string]any{},
		unique:   map[string][][]string{},
		failing:  map[string]error{},
		calls:    map[string]int{},
		tokens:   map[string]string{},
		sessions: map[string]*models.Session{},
		now:      time.Now,
	}
	b.CreateTable("profiles", []string{"user_id"})
	b.CreateTable("mission_completions", []string{"user_id", "mission_id"})
	b.CreateTable("cravings")
	return b
}

// SetNow overrides the clock used for session expiry
func (b *Backend) SetNow(now func() time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.now = now
}

// CreateTable registers a table with optional unique column sets
func (b *Backend) CreateTable(name string, unique ...[]string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.tables[name]; !ok {
		b.tables[name] = []map[string]any{}
	}
	b.unique[name] = unique
}

// DropTable removes a table so later operations report a missing relation
func (b *Backend) DropTable(name string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.tables, name)
}

// Fail makes every subsequent op ("select", "insert", "upsert", "delete",
// "exchange", "refresh", "signout") return err until cleared with a nil err.
func (b *Backend) Fail(op string, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err == nil {
		delete(b.failing, op)
		return
	}
	b.failing[op] = err
}

// Calls returns how many times op was invoked
func (b *Backend) Calls(op string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[op]
}

// Rows returns a copy of the rows stored in table
func (b *Backend) Rows(table string) []map[string]any {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]map[string]any, 0, len(b.tables[table]))
	for _, r := range b.tables[table] {
		out = append(out, copyRow(r))
	}
	return out
}

// AcceptToken registers an identity token that exchanges into a session for userID
func (b *Backend) AcceptToken(idToken, userID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tokens[idToken] = userID
}

func (b *Backend) enter(ctx context.Context, op string) error {
	if b.Gate != nil {
		select {
		case <-b.Gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls[op]++
	return b.failing[op]
}

func (b *Backend) Select(ctx context.Context, q syncsvc.Query, dest any) error {
	if err := b.enter(ctx, "select"); err != nil {
		return err
	}

	b.mu.Lock()
	rows, ok := b.tables[q.Table]
	if !ok {
		b.mu.Unlock()
		return syncsvc.RelationNotFound(q.Table)
	}
	var matched []map[string]any
	for _, r := range rows {
		if matches(r, q.Filters) {
			matched = append(matched, copyRow(r))
		}
	}
	b.mu.Unlock()

	if q.Order != nil {
		col, desc := q.Order.Column, q.Order.Descending
		sort.SliceStable(matched, func(i, j int) bool {
			x, y := fmt.Sprint(matched[i][col]), fmt.Sprint(matched[j][col])
			if desc {
				return x > y
			}
			return x < y
		})
	}
	if q.Limit > 0 && len(matched) > q.Limit {
		matched = matched[:q.Limit]
	}
	if q.Single {
		if err := syncsvc.CheckSingle(q.Table, len(matched)); err != nil {
			return err
		}
	}
	return syncsvc.DecodeRows(q.Table, matched, dest)
}

func (b *Backend) Insert(ctx context.Context, table string, record any) error {
	if err := b.enter(ctx, "insert"); err != nil {
		return err
	}
	cols, err := syncsvc.Columns(record)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	rows, ok := b.tables[table]
	if !ok {
		return syncsvc.RelationNotFound(table)
	}
	for _, key := range b.unique[table] {
		if idx := indexOf(rows, cols, key); idx >= 0 {
			return syncsvc.Remote("insert", table, fmt.Errorf("duplicate key on (%s)", strings.Join(key, ", ")))
		}
	}
	b.tables[table] = append(rows, withDefaults(cols))
	return nil
}

func (b *Backend) Upsert(ctx context.Context, table string, record any, onConflict []string, dest any) error {
	if err := b.enter(ctx, "upsert"); err != nil {
		return err
	}
	cols, err := syncsvc.Columns(record)
	if err != nil {
		return err
	}

	b.mu.Lock()
	rows, ok := b.tables[table]
	if !ok {
		b.mu.Unlock()
		return syncsvc.RelationNotFound(table)
	}
	var stored map[string]any
	if idx := indexOf(rows, cols, onConflict); idx >= 0 {
		for k, v := range cols {
			if k == "id" || k == "created_at" {
				continue
			}
			rows[idx][k] = v
		}
		stored = copyRow(rows[idx])
	} else {
		row := withDefaults(cols)
		b.tables[table] = append(rows, row)
		stored = copyRow(row)
	}
	b.mu.Unlock()

	return syncsvc.DecodeRows(table, []map[string]any{stored}, dest)
}

func (b *Backend) Delete(ctx context.Context, table string, filters ...syncsvc.Filter) error {
	if err := b.enter(ctx, "delete"); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	rows, ok := b.tables[table]
	if !ok {
		return syncsvc.RelationNotFound(table)
	}
	kept := rows[:0]
	for _, r := range rows {
		if !matches(r, filters) {
			kept = append(kept, r)
		}
	}
	b.tables[table] = kept
	return nil
}

func (b *Backend) ExchangeIdentity(ctx context.Context, provider, idToken, rawNonce string) (*models.Session, error) {
	if err := b.enter(ctx, "exchange"); err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.ExchangedNonces = append(b.ExchangedNonces, rawNonce)
	userID, ok := b.tokens[idToken]
	if !ok {
		return nil, errors.New("invalid id token")
	}
	if rawNonce == "" {
		return nil, errors.New("missing nonce")
	}
	return b.issue(userID), nil
}

func (b *Backend) Refresh(ctx context.Context, session *models.Session) (*models.Session, error) {
	if err := b.enter(ctx, "refresh"); err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	prev, ok := b.sessions[session.RefreshToken]
	if !ok {
		return nil, errors.New("invalid refresh token")
	}
	delete(b.sessions, session.RefreshToken)
	return b.issue(prev.User.ID), nil
}

func (b *Backend) SignOut(ctx context.Context, session *models.Session) error {
	if err := b.enter(ctx, "signout"); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.sessions, session.RefreshToken)
	return nil
}

// IssueSession creates a valid session for userID without an exchange
func (b *Backend) IssueSession(userID string) *models.Session {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.issue(userID)
}

func (b *Backend) issue(userID string) *models.Session {
	s := &models.Session{
		AccessToken:  uuid.NewString(),
		RefreshToken: uuid.NewString(),
		TokenType:    "bearer",
		ExpiresAt:    b.now().Add(time.Hour).UTC(),
		User:         models.SessionUser{ID: userID},
	}
	b.sessions[s.RefreshToken] = s
	cp := *s
	return &cp
}

func (b *Backend) Close() error { return nil }

func matches(row map[string]any, filters []syncsvc.Filter) bool {
	for _, f := range filters {
		if fmt.Sprint(row[f.Column]) != fmt.Sprint(f.Value) {
			return false
		}
	}
	return true
}

func indexOf(rows []map[string]any, cols map[string]any, key []string) int {
	if len(key) == 0 {
		return -1
	}
	filters := make([]syncsvc.Filter, 0, len(key))
	for _, k := range key {
		filters = append(filters, syncsvc.Eq(k, cols[k]))
	}
	for i, r := range rows {
		if matches(r, filters) {
			return i
		}
	}
	return -1
}

func withDefaults(cols map[string]any) map[string]any {
	row := copyRow(cols)
	if _, ok := row["id"]; !ok {
		row["id"] = uuid.NewString()
	}
	if _, ok := row["created_at"]; !ok {
		row["created_at"] = time.Now().UTC().Format(time.RFC3339)
	}
	return row
}

func copyRow(r map[string]any) map[string]any {
	out := make(map[string]any, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

var _ syncsvc.Backend = (*Backend)(nil)
