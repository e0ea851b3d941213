package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/julianstephens/ember/internal/constants"
	"github.com/julianstephens/ember/internal/logger"
	"github.com/julianstephens/ember/internal/migration"
	"github.com/julianstephens/ember/internal/storage/sqlclient"
	"github.com/julianstephens/ember/internal/syncsvc"
	"github.com/julianstephens/ember/migrations"
)

// ErrNotInitialized is returned when the database file does not exist yet
var ErrNotInitialized = errors.New("storage not initialized, run '" + constants.AppName + " init' first")

// Store is a local, single-user Sync Service kept in a SQLite file
type Store struct {
	path   string
	db     *sql.DB
	client *sqlclient.Client
}

func NewStore(path string) *Store {
	return &Store{
		path: path,
	}
}

func (s *Store) open() error {
	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	// One connection keeps pragmas and write locks on a single handle
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return fmt.Errorf("failed to apply %q: %w", p, err)
		}
	}

	s.db = db
	s.client = sqlclient.New(db, sqlclient.SQLite, mapError)
	return nil
}

func (s *Store) Init() error {
	// Create config directory if it doesn't exist
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if s.db == nil {
		if err := s.open(); err != nil {
			return err
		}
	}

	if err := s.runMigrations(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

func (s *Store) Load() error {
	if s.db != nil {
		return nil
	}

	if _, err := os.Stat(s.path); os.IsNotExist(err) {
		return ErrNotInitialized
	}

	if err := s.open(); err != nil {
		return err
	}

	// Validate schema version using embedded migrations
	runner, err := s.MigrationRunner()
	if err != nil {
		return err
	}
	return runner.ValidateVersion()
}

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	s.client = nil
	return err
}

// TableExists checks if a table exists in the SQLite database.
// The check is case-insensitive to match SQLite's behavior.
func (s *Store) TableExists(tableName string) (bool, error) {
	if s.db == nil {
		return false, ErrNotInitialized
	}
	var count int
	row := s.db.QueryRow("SELECT count(*) FROM sqlite_master WHERE type='table' AND name COLLATE NOCASE = ?", tableName)
	if err := row.Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

// MigrationRunner returns a runner over the embedded SQLite migrations
func (s *Store) MigrationRunner() (*migration.Runner, error) {
	if s.db == nil {
		return nil, ErrNotInitialized
	}
	subFS, err := fs.Sub(migrations.FS, "sqlite")
	if err != nil {
		return nil, fmt.Errorf("failed to access sqlite migrations: %w", err)
	}
	return migration.NewRunner(s.db, subFS, migration.DriverSQLite), nil
}

func (s *Store) runMigrations() error {
	runner, err := s.MigrationRunner()
	if err != nil {
		return err
	}
	_, err = runner.ApplyMigrations(func(msg string) {
		logger.Info(msg, "backend", constants.BackendSQLite)
	})
	return err
}

func (s *Store) GetConfigPath() string {
	return s.path
}

// GetDB returns the underlying database connection.
// Returns nil if the database has not been initialized or loaded.
func (s *Store) GetDB() *sql.DB {
	return s.db
}

func (s *Store) Select(ctx context.Context, q syncsvc.Query, dest any) error {
	if s.client == nil {
		return ErrNotInitialized
	}
	return s.client.Select(ctx, q, dest)
}

func (s *Store) Insert(ctx context.Context, table string, record any) error {
	if s.client == nil {
		return ErrNotInitialized
	}
	return s.client.Insert(ctx, table, record)
}

func (s *Store) Upsert(ctx context.Context, table string, record any, onConflict []string, dest any) error {
	if s.client == nil {
		return ErrNotInitialized
	}
	return s.client.Upsert(ctx, table, record, onConflict, dest)
}

func (s *Store) Delete(ctx context.Context, table string, filters ...syncsvc.Filter) error {
	if s.client == nil {
		return ErrNotInitialized
	}
	return s.client.Delete(ctx, table, filters...)
}

// mapError turns "no such table" into a missing relation; everything else is a remote failure
func mapError(op, table string, err error) error {
	if strings.Contains(err.Error(), "no such table") {
		return syncsvc.RelationNotFound(table)
	}
	return syncsvc.Remote(op, table, err)
}
