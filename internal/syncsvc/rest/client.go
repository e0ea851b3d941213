// Package rest talks to a hosted Sync Service exposing a PostgREST data API
// under /rest/v1 and a GoTrue identity API under /auth/v1.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/jonboulle/clockwork"

	"github.com/julianstephens/ember/internal/constants"
	apperrors "github.com/julianstephens/ember/internal/errors"
	"github.com/julianstephens/ember/internal/logger"
	"github.com/julianstephens/ember/internal/syncsvc"
)

// TokenSource returns the access token of the current session, or "" when signed out
type TokenSource func() string

// Client implements syncsvc.Backend over HTTP
type Client struct {
	BaseURL string
	AnonKey string
	HTTP    *http.Client

	clock  clockwork.Clock
	tokens TokenSource
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.HTTP = hc }
}

// WithClock sets the clock used to compute session expiry
func WithClock(clock clockwork.Clock) Option {
	return func(c *Client) { c.clock = clock }
}

// WithTokenSource supplies the bearer token for data requests
func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) { c.tokens = ts }
}

// New creates a client for the service rooted at baseURL
func New(baseURL, anonKey string, opts ...Option) *Client {
	c := &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		AnonKey: anonKey,
		HTTP:    &http.Client{Timeout: constants.HTTPTimeout},
		clock:   clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// apiError is the error body shared by PostgREST and GoTrue
type apiError struct {
	Code             json.RawMessage `json:"code"`
	ErrorCode        string          `json:"error_code"`
	Message          string          `json:"message"`
	Msg              string          `json:"msg"`
	Error            string          `json:"error"`
	ErrorDescription string          `json:"error_description"`
	Details          string          `json:"details"`
	Hint             string          `json:"hint"`
}

func (e apiError) code() string {
	if e.ErrorCode != "" {
		return e.ErrorCode
	}
	var s string
	if err := json.Unmarshal(e.Code, &s); err == nil {
		return s
	}
	if e.Error != "" {
		return e.Error
	}
	return ""
}

func (e apiError) message() string {
	for _, m := range []string{e.Message, e.Msg, e.ErrorDescription, e.Error} {
		if m != "" {
			return m
		}
	}
	return ""
}

const (
	codeUndefinedTable = "42P01"
	codeSchemaCache    = "PGRST205"
	codeSingularRow    = "PGRST116"
)

// classify maps an error response onto the sync service error taxonomy
func classify(op, table string, status int, body []byte) error {
	var ae apiError
	_ = json.Unmarshal(body, &ae)

	code := ae.code()
	switch code {
	case codeUndefinedTable, codeSchemaCache:
		return syncsvc.RelationNotFound(table)
	case codeSingularRow:
		if ae.Details == "" || strings.Contains(ae.Details, " 0 rows") {
			return syncsvc.RowNotFound(table)
		}
	}

	msg := ae.message()
	if msg == "" {
		msg = strings.TrimSpace(string(body))
	}
	if msg == "" {
		msg = http.StatusText(status)
	}
	return &apperrors.RemoteFailure{Op: op, Table: table, Status: status, Code: code, Message: msg}
}

type request struct {
	op      string
	table   string
	method  string
	path    string
	query   url.Values
	body    any
	headers map[string]string
	bearer  string
}

func (c *Client) do(ctx context.Context, r request) ([]byte, error) {
	endpoint := c.BaseURL + r.path
	if len(r.query) > 0 {
		endpoint += "?" + r.query.Encode()
	}

	var payload io.Reader
	if r.body != nil {
		data, err := json.Marshal(r.body)
		if err != nil {
			return nil, fmt.Errorf("encode %s request: %w", r.op, err)
		}
		payload = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, r.method, endpoint, payload)
	if err != nil {
		return nil, err
	}
	req.Header.Set("apikey", c.AnonKey)
	req.Header.Set("Accept", "application/json")
	if r.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	bearer := r.bearer
	if bearer == "" {
		bearer = c.AnonKey
	}
	req.Header.Set("Authorization", "Bearer "+bearer)
	for k, v := range r.headers {
		req.Header.Set(k, v)
	}

	logger.Debug("Sync request", "op", r.op, "method", r.method, "path", r.path)
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, syncsvc.Remote(r.op, r.table, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, syncsvc.Remote(r.op, r.table, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		err := classify(r.op, r.table, resp.StatusCode, body)
		if !syncsvc.IsAbsent(err) {
			logger.Warn("Sync request failed", "op", r.op, "table", r.table, "status", resp.StatusCode, "error", err)
		}
		return nil, err
	}
	return body, nil
}

func (c *Client) bearer() string {
	if c.tokens == nil {
		return ""
	}
	return c.tokens()
}

func filterValues(filters []syncsvc.Filter) (url.Values, error) {
	q := url.Values{}
	for _, f := range filters {
		if err := syncsvc.CheckIdentifier(f.Column); err != nil {
			return nil, err
		}
		q.Set(f.Column, "eq."+fmt.Sprint(f.Value))
	}
	return q, nil
}

func decodeBody(table string, body []byte, dest any) error {
	if dest == nil {
		return nil
	}
	body = bytes.TrimSpace(body)
	if len(body) > 0 && body[0] == '{' {
		body = append(append([]byte{'['}, body...), ']')
	}
	var rows []map[string]any
	if len(body) > 0 {
		if err := json.Unmarshal(body, &rows); err != nil {
			return fmt.Errorf("decode %s response: %w", table, err)
		}
	}
	return syncsvc.DecodeRows(table, rows, dest)
}

func (c *Client) Select(ctx context.Context, q syncsvc.Query, dest any) error {
	if err := syncsvc.CheckIdentifier(q.Table); err != nil {
		return err
	}
	values, err := filterValues(q.Filters)
	if err != nil {
		return err
	}
	values.Set("select", "*")
	if q.Order != nil {
		if err := syncsvc.CheckIdentifier(q.Order.Column); err != nil {
			return err
		}
		dir := "asc"
		if q.Order.Descending {
			dir = "desc"
		}
		values.Set("order", q.Order.Column+"."+dir)
	}
	if q.Limit > 0 {
		values.Set("limit", fmt.Sprint(q.Limit))
	}

	headers := map[string]string{}
	if q.Single {
		headers["Accept"] = "application/vnd.pgrst.object+json"
	}

	body, err := c.do(ctx, request{
		op: "select", table: q.Table, method: http.MethodGet,
		path: "/rest/v1/" + q.Table, query: values, headers: headers, bearer: c.bearer(),
	})
	if err != nil {
		return err
	}
	return decodeBody(q.Table, body, dest)
}

func (c *Client) Insert(ctx context.Context, table string, record any) error {
	if err := syncsvc.CheckIdentifier(table); err != nil {
		return err
	}
	cols, err := syncsvc.Columns(record)
	if err != nil {
		return err
	}
	_, err = c.do(ctx, request{
		op: "insert", table: table, method: http.MethodPost,
		path: "/rest/v1/" + table, body: cols,
		headers: map[string]string{"Prefer": "return=minimal"}, bearer: c.bearer(),
	})
	return err
}

func (c *Client) Upsert(ctx context.Context, table string, record any, onConflict []string, dest any) error {
	if err := syncsvc.CheckIdentifier(table); err != nil {
		return err
	}
	for _, col := range onConflict {
		if err := syncsvc.CheckIdentifier(col); err != nil {
			return err
		}
	}
	cols, err := syncsvc.Columns(record)
	if err != nil {
		return err
	}

	values := url.Values{}
	if len(onConflict) > 0 {
		values.Set("on_conflict", strings.Join(onConflict, ","))
	}
	body, err := c.do(ctx, request{
		op: "upsert", table: table, method: http.MethodPost,
		path: "/rest/v1/" + table, query: values, body: cols,
		headers: map[string]string{"Prefer": "resolution=merge-duplicates,return=representation"},
		bearer:  c.bearer(),
	})
	if err != nil {
		return err
	}
	return decodeBody(table, body, dest)
}

func (c *Client) Delete(ctx context.Context, table string, filters ...syncsvc.Filter) error {
	if err := syncsvc.CheckIdentifier(table); err != nil {
		return err
	}
	if len(filters) == 0 {
		return fmt.Errorf("delete from %s requires at least one filter", table)
	}
	values, err := filterValues(filters)
	if err != nil {
		return err
	}
	_, err = c.do(ctx, request{
		op: "delete", table: table, method: http.MethodDelete,
		path: "/rest/v1/" + table, query: values, bearer: c.bearer(),
	})
	return err
}

// Close releases idle connections
func (c *Client) Close() error {
	c.HTTP.CloseIdleConnections()
	return nil
}

var _ syncsvc.Backend = (*Client)(nil)
