// Package syncsvc defines the contract the client uses to talk to the remote
// Sync Service, plus the helpers its backends share.
package syncsvc

import (
	"context"

	"github.com/julianstephens/ember/internal/models"
)

// Filter is an equality condition on one column
type Filter struct {
	Column string
	Value  any
}

// Eq builds an equality filter
func Eq(column string, value any) Filter {
	return Filter{Column: column, Value: value}
}

// Order sorts a selection by one column
type Order struct {
	Column     string
	Descending bool
}

// Query describes a selection from one table
type Query struct {
	Table   string
	Filters []Filter
	Order   *Order
	Limit   int
	// Single requires exactly one row; zero rows yields ErrRowNotFound.
	Single bool
}

// Client is the data surface of the Sync Service. Records are structs with
// json tags naming their columns; dest is a pointer to a struct or slice.
type Client interface {
	Select(ctx context.Context, q Query, dest any) error
	Insert(ctx context.Context, table string, record any) error
	// Upsert inserts record or updates the row matching onConflict, and
	// decodes the stored row into dest when dest is non-nil.
	Upsert(ctx context.Context, table string, record any, onConflict []string, dest any) error
	Delete(ctx context.Context, table string, filters ...Filter) error
}

// Authenticator is the identity surface of the Sync Service
type Authenticator interface {
	// ExchangeIdentity trades an identity provider token plus the raw nonce
	// whose hash the token was issued for into a session.
	ExchangeIdentity(ctx context.Context, provider, idToken, rawNonce string) (*models.Session, error)
	Refresh(ctx context.Context, session *models.Session) (*models.Session, error)
	SignOut(ctx context.Context, session *models.Session) error
}

// Backend bundles the data and identity surfaces of one deployment
type Backend interface {
	Client
	Authenticator
	Close() error
}
