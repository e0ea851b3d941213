package storage

import (
	"database/sql"
	"fmt"

	"github.com/julianstephens/ember/internal/migration"
	"github.com/julianstephens/ember/internal/storage/postgres"
	"github.com/julianstephens/ember/internal/storage/sqlite"
	"github.com/julianstephens/ember/internal/syncsvc"
	"github.com/julianstephens/ember/internal/syncsvc/localauth"
)

// Provider is a SQL database serving the Sync Service data contract
type Provider interface {
	syncsvc.Client

	// Lifecycle
	Init() error
	Load() error
	Close() error

	// Utils
	GetConfigPath() string
	GetDB() *sql.DB
	MigrationRunner() (*migration.Runner, error)
}

// Backend pairs a Provider with the local identity exchange so a SQL
// database can stand in for the hosted Sync Service
type Backend struct {
	Provider
	*localauth.Authenticator
}

var _ syncsvc.Backend = (*Backend)(nil)

// NewSQLite returns a backend stored in the SQLite file at path
func NewSQLite(path string, auth *localauth.Authenticator) *Backend {
	return &Backend{Provider: sqlite.NewStore(path), Authenticator: auth}
}

// NewPostgres returns a backend on the PostgreSQL database at connStr.
// Connection strings with embedded passwords are only accepted when they
// come from the keyring, signalled by trusted.
func NewPostgres(connStr string, trusted bool, auth *localauth.Authenticator) (*Backend, error) {
	if !trusted {
		if _, err := postgres.ValidateConnString(connStr); err != nil {
			return nil, fmt.Errorf("postgres connection string rejected: %w", err)
		}
	}
	return &Backend{Provider: postgres.New(connStr), Authenticator: auth}, nil
}
