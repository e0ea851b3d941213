package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/julianstephens/ember/internal/constants"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		constants.EnvBackend, constants.EnvSyncURL, constants.EnvAnonKey, constants.EnvDatabase,
		constants.EnvProvider, constants.EnvLocale, constants.EnvRefreshMargin, constants.EnvDebug,
	} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
	t.Setenv(constants.EnvSystemLanguage, "")
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()

	cfg, err := Load(filepath.Join(dir, constants.DefaultConfigFile))
	require.NoError(t, err)
	assert.Equal(t, constants.BackendSQLite, cfg.Backend)
	assert.Equal(t, filepath.Join(dir, constants.DefaultSQLiteFile), cfg.Database)
	assert.Equal(t, constants.DefaultProvider, cfg.IdentityProvider)
	assert.Equal(t, "en-US", cfg.Locale)
	assert.Equal(t, constants.DefaultRefreshMargin, cfg.Margin())
	assert.Equal(t, dir, cfg.Dir())
}

func TestLoadFileAndEnvPrecedence(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, constants.DefaultConfigFile)
	require.NoError(t, os.WriteFile(path, []byte(`
backend: rest
sync_url: https://example.supabase.co
anon_key: from-file
locale: en-GB
refresh_margin: 2m
`), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("EMBER_ANON_KEY=from-dotenv\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, constants.BackendREST, cfg.Backend)
	assert.Equal(t, "from-dotenv", cfg.AnonKey)
	assert.Equal(t, "en-GB", cfg.Locale)
	assert.Equal(t, 2*time.Minute, cfg.Margin())

	t.Setenv(constants.EnvAnonKey, "from-env")
	t.Setenv(constants.EnvDebug, "true")
	cfg, err = Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.AnonKey)
	assert.True(t, cfg.Debug)
}

func TestLoadSystemLocale(t *testing.T) {
	clearEnv(t)
	t.Setenv(constants.EnvSystemLanguage, "de_DE.UTF-8")

	cfg, err := Load(filepath.Join(t.TempDir(), constants.DefaultConfigFile))
	require.NoError(t, err)
	assert.Equal(t, "de-DE", cfg.Locale)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"sqlite ok", Config{Backend: constants.BackendSQLite, Database: "/tmp/ember.db"}, false},
		{"sqlite without path", Config{Backend: constants.BackendSQLite}, true},
		{"postgres ok", Config{Backend: constants.BackendPostgres}, false},
		{"rest ok", Config{Backend: constants.BackendREST, SyncURL: "https://x.supabase.co", AnonKey: "k"}, false},
		{"rest without url", Config{Backend: constants.BackendREST, AnonKey: "k"}, true},
		{"rest bad url", Config{Backend: constants.BackendREST, SyncURL: "ftp://x", AnonKey: "k"}, true},
		{"rest without key", Config{Backend: constants.BackendREST, SyncURL: "https://x.supabase.co"}, true},
		{"unknown backend", Config{Backend: "mongo"}, true},
		{"bad margin", Config{Backend: constants.BackendPostgres, RefreshMargin: "soon"}, true},
		{"negative margin", Config{Backend: constants.BackendPostgres, RefreshMargin: "-1m"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSaveThenLoad(t *testing.T) {
	clearEnv(t)
	dir := filepath.Join(t.TempDir(), "nested")
	cfg := Default(dir)
	cfg.Backend = constants.BackendPostgres
	cfg.Locale = "fr-FR"
	require.NoError(t, cfg.Save())

	info, err := os.Stat(cfg.Path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	loaded, err := Load(cfg.Path)
	require.NoError(t, err)
	assert.Equal(t, constants.BackendPostgres, loaded.Backend)
	assert.Equal(t, "fr-FR", loaded.Locale)
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	got, err := ExpandHome("~/.config/ember")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".config/ember"), got)

	got, err = ExpandHome("/abs/path")
	require.NoError(t, err)
	assert.Equal(t, "/abs/path", got)
}
