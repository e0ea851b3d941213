// Package sqlclient implements the Sync Service data contract on top of
// database/sql, for the SQLite and PostgreSQL backends.
package sqlclient

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/julianstephens/ember/internal/syncsvc"
)

// Dialect captures the SQL differences between backends
type Dialect struct {
	Name string
	// Placeholder returns the bind parameter for the n-th (1-based) argument
	Placeholder func(n int) string
}

var (
	SQLite = Dialect{
		Name:        "sqlite",
		Placeholder: func(int) string { return "?" },
	}
	Postgres = Dialect{
		Name:        "postgres",
		Placeholder: func(n int) string { return "$" + strconv.Itoa(n) },
	}
)

// ErrorMapper translates a driver error into the sync service taxonomy
type ErrorMapper func(op, table string, err error) error

// Client runs Sync Service operations against a *sql.DB
type Client struct {
	DB       *sql.DB
	Dialect  Dialect
	MapError ErrorMapper
}

// New returns a client for db
func New(db *sql.DB, dialect Dialect, mapErr ErrorMapper) *Client {
	if mapErr == nil {
		mapErr = func(op, table string, err error) error { return syncsvc.Remote(op, table, err) }
	}
	return &Client{DB: db, Dialect: dialect, MapError: mapErr}
}

type args struct {
	d    Dialect
	vals []any
}

func (a *args) add(v any) string {
	a.vals = append(a.vals, v)
	return a.d.Placeholder(len(a.vals))
}

func (a *args) where(filters []syncsvc.Filter) (string, error) {
	if len(filters) == 0 {
		return "", nil
	}
	parts := make([]string, 0, len(filters))
	for _, f := range filters {
		if err := syncsvc.CheckIdentifier(f.Column); err != nil {
			return "", err
		}
		parts = append(parts, f.Column+" = "+a.add(f.Value))
	}
	return " WHERE " + strings.Join(parts, " AND "), nil
}

// BuildSelect renders q as a SELECT statement
func (c *Client) BuildSelect(q syncsvc.Query) (string, []any, error) {
	if err := syncsvc.CheckIdentifier(q.Table); err != nil {
		return "", nil, err
	}
	a := &args{d: c.Dialect}
	where, err := a.where(q.Filters)
	if err != nil {
		return "", nil, err
	}

	var b strings.Builder
	b.WriteString("SELECT * FROM " + q.Table + where)
	if q.Order != nil {
		if err := syncsvc.CheckIdentifier(q.Order.Column); err != nil {
			return "", nil, err
		}
		b.WriteString(" ORDER BY " + q.Order.Column)
		if q.Order.Descending {
			b.WriteString(" DESC")
		}
	}
	if q.Limit > 0 {
		b.WriteString(" LIMIT " + strconv.Itoa(q.Limit))
	}
	return b.String(), a.vals, nil
}

// BuildInsert renders an INSERT of cols. When onConflict is set the
// statement upserts, updating every non-key column, and returns the row.
func (c *Client) BuildInsert(table string, cols map[string]any, onConflict []string) (string, []any, error) {
	if err := syncsvc.CheckIdentifier(table); err != nil {
		return "", nil, err
	}
	keys := syncsvc.SortedKeys(cols)
	a := &args{d: c.Dialect}
	holders := make([]string, len(keys))
	for i, k := range keys {
		holders[i] = a.add(cols[k])
	}

	stmt := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table, strings.Join(keys, ", "), strings.Join(holders, ", "))
	if len(onConflict) == 0 {
		return stmt, a.vals, nil
	}

	conflict := map[string]bool{}
	for _, k := range onConflict {
		if err := syncsvc.CheckIdentifier(k); err != nil {
			return "", nil, err
		}
		conflict[k] = true
	}
	var sets []string
	for _, k := range keys {
		if conflict[k] || k == "id" || k == "created_at" {
			continue
		}
		sets = append(sets, k+" = excluded."+k)
	}
	if len(sets) == 0 {
		stmt += fmt.Sprintf(" ON CONFLICT (%s) DO NOTHING", strings.Join(onConflict, ", "))
	} else {
		stmt += fmt.Sprintf(" ON CONFLICT (%s) DO UPDATE SET %s", strings.Join(onConflict, ", "), strings.Join(sets, ", "))
	}
	return stmt + " RETURNING *", a.vals, nil
}

// BuildDelete renders a DELETE restricted by filters
func (c *Client) BuildDelete(table string, filters []syncsvc.Filter) (string, []any, error) {
	if err := syncsvc.CheckIdentifier(table); err != nil {
		return "", nil, err
	}
	if len(filters) == 0 {
		return "", nil, fmt.Errorf("delete from %s requires at least one filter", table)
	}
	a := &args{d: c.Dialect}
	where, err := a.where(filters)
	if err != nil {
		return "", nil, err
	}
	return "DELETE FROM " + table + where, a.vals, nil
}

func (c *Client) Select(ctx context.Context, q syncsvc.Query, dest any) error {
	stmt, vals, err := c.BuildSelect(q)
	if err != nil {
		return err
	}
	rows, err := c.DB.QueryContext(ctx, stmt, vals...)
	if err != nil {
		return c.MapError("select", q.Table, err)
	}
	defer rows.Close()

	out, err := ScanRows(rows)
	if err != nil {
		return c.MapError("select", q.Table, err)
	}
	if q.Single {
		if err := syncsvc.CheckSingle(q.Table, len(out)); err != nil {
			return err
		}
	}
	return syncsvc.DecodeRows(q.Table, out, dest)
}

func (c *Client) Insert(ctx context.Context, table string, record any) error {
	cols, err := recordColumns(record)
	if err != nil {
		return err
	}
	stmt, vals, err := c.BuildInsert(table, cols, nil)
	if err != nil {
		return err
	}
	if _, err := c.DB.ExecContext(ctx, stmt, vals...); err != nil {
		return c.MapError("insert", table, err)
	}
	return nil
}

func (c *Client) Upsert(ctx context.Context, table string, record any, onConflict []string, dest any) error {
	if len(onConflict) == 0 {
		return fmt.Errorf("upsert into %s requires conflict columns", table)
	}
	cols, err := recordColumns(record)
	if err != nil {
		return err
	}
	stmt, vals, err := c.BuildInsert(table, cols, onConflict)
	if err != nil {
		return err
	}
	rows, err := c.DB.QueryContext(ctx, stmt, vals...)
	if err != nil {
		return c.MapError("upsert", table, err)
	}
	defer rows.Close()

	out, err := ScanRows(rows)
	if err != nil {
		return c.MapError("upsert", table, err)
	}
	return syncsvc.DecodeRows(table, out, dest)
}

func (c *Client) Delete(ctx context.Context, table string, filters ...syncsvc.Filter) error {
	stmt, vals, err := c.BuildDelete(table, filters)
	if err != nil {
		return err
	}
	if _, err := c.DB.ExecContext(ctx, stmt, vals...); err != nil {
		return c.MapError("delete", table, err)
	}
	return nil
}

// recordColumns flattens record and assigns a fresh id when it has none
func recordColumns(record any) (map[string]any, error) {
	cols, err := syncsvc.Columns(record)
	if err != nil {
		return nil, err
	}
	if id, ok := cols["id"]; !ok || id == nil || id == "" {
		cols["id"] = uuid.NewString()
	}
	return cols, nil
}

// ScanRows reads every row into a column-name keyed map. Byte slices are
// returned as strings and times in RFC3339 so rows decode like JSON.
func ScanRows(rows *sql.Rows) ([]map[string]any, error) {
	names, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	out := []map[string]any{}
	for rows.Next() {
		vals := make([]any, len(names))
		ptrs := make([]any, len(names))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}

		row := make(map[string]any, len(names))
		for i, name := range names {
			switch v := vals[i].(type) {
			case []byte:
				row[name] = string(v)
			case time.Time:
				row[name] = v.UTC().Format(time.RFC3339Nano)
			default:
				row[name] = v
			}
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

var _ syncsvc.Client = (*Client)(nil)
