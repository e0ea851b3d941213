package system

import (
	"errors"
	"fmt"
	"strings"

	"github.com/julianstephens/ember/internal/cli"
	"github.com/julianstephens/ember/internal/constants"
	"github.com/julianstephens/ember/internal/keyring"
	"github.com/julianstephens/ember/internal/storage/postgres"
)

// KeyringSetCmd saves the postgres backend's connection string in the OS keyring
type KeyringSetCmd struct {
	ConnectionString string `arg:"" help:"PostgreSQL connection string (URL or key=value DSN)."`
}

func (cmd *KeyringSetCmd) Run(ctx *cli.Context) error {
	connStr := strings.TrimSpace(cmd.ConnectionString)
	if !postgres.IsURL(connStr) && !strings.Contains(connStr, "host=") {
		return errors.New("expected a postgres:// URL or a DSN with host=")
	}

	_, err := postgres.ValidateConnString(connStr)
	switch {
	case errors.Is(err, postgres.ErrEmbeddedCredentials):
		// the keyring is the one place a password may live
		fmt.Println("ℹ The connection string includes a password; it is kept only in the OS keyring.")
	case err != nil:
		return fmt.Errorf("invalid connection string: %w", err)
	}

	if err := keyring.SetConnectionString(connStr); err != nil {
		return fmt.Errorf("failed to save connection string: %w", err)
	}
	fmt.Println("✓ Connection string saved to the OS keyring")
	fmt.Printf("  Used by the postgres backend unless %s is set\n", constants.EnvDBConnection)
	return nil
}

// KeyringGetCmd prints the stored connection string with its password hidden
type KeyringGetCmd struct{}

func (cmd *KeyringGetCmd) Run(ctx *cli.Context) error {
	connStr, err := keyring.GetConnectionString()
	switch {
	case errors.Is(err, keyring.ErrNotFound):
		return fmt.Errorf("no connection string saved; run '%s keyring set' first", constants.AppName)
	case err != nil:
		return fmt.Errorf("failed to read connection string: %w", err)
	}
	fmt.Println(maskPassword(connStr))
	return nil
}

// KeyringDeleteCmd forgets the stored connection string
type KeyringDeleteCmd struct{}

func (cmd *KeyringDeleteCmd) Run(ctx *cli.Context) error {
	err := keyring.DeleteConnectionString()
	switch {
	case errors.Is(err, keyring.ErrNotFound):
		return errors.New("no connection string saved")
	case err != nil:
		return fmt.Errorf("failed to delete connection string: %w", err)
	}
	fmt.Println("✓ Connection string removed from the OS keyring")
	return nil
}

// KeyringStatusCmd reports whether the keyring works and what ember keeps in it
type KeyringStatusCmd struct{}

func (cmd *KeyringStatusCmd) Run(ctx *cli.Context) error {
	if !keyring.IsAvailable() {
		fmt.Println("❌ No OS keyring on this system; sessions last for a single run")
		return errors.New("keyring unavailable")
	}
	fmt.Println("✓ OS keyring available")

	if _, err := keyring.GetConnectionString(); err == nil {
		fmt.Println("✓ Connection string saved")
	} else if errors.Is(err, keyring.ErrNotFound) {
		fmt.Println("ℹ No connection string saved")
	}

	s, err := keyring.Sessions{}.LoadSession()
	switch {
	case err == nil:
		fmt.Printf("✓ Signed-in session for %s, expires %s\n", s.User.ID, s.ExpiresAt.Local().Format(constants.DateTimeFormat))
	case errors.Is(err, keyring.ErrNotFound):
		fmt.Println("ℹ No session saved")
	default:
		fmt.Printf("⚠ Saved session is unreadable: %v\n", err)
	}
	return nil
}

// KeyringClearCmd drops the saved session without contacting the sync service
type KeyringClearCmd struct{}

func (cmd *KeyringClearCmd) Run(ctx *cli.Context) error {
	if err := (keyring.Sessions{}).ClearSession(); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	fmt.Println("✓ Saved session cleared")
	return nil
}

// maskPassword hides the password of a URL or key=value connection string
func maskPassword(connStr string) string {
	if postgres.IsURL(connStr) {
		scheme := strings.Index(connStr, "://") + len("://")
		rest := connStr[scheme:]
		at := strings.LastIndex(rest, "@")
		if at < 0 {
			return connStr
		}
		user, _, hasPassword := strings.Cut(rest[:at], ":")
		if !hasPassword {
			return connStr
		}
		return connStr[:scheme] + user + ":****" + rest[at:]
	}

	fields := strings.Fields(connStr)
	for i, f := range fields {
		if key, _, ok := strings.Cut(f, "="); ok && strings.EqualFold(key, "password") {
			fields[i] = key + "=****"
		}
	}
	return strings.Join(fields, " ")
}
