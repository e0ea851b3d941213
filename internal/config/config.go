// Package config loads ember's settings from the config file, a .env file
// and EMBER_* environment variables, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/julianstephens/ember/internal/constants"
)

type Config struct {
	Backend          constants.Backend `yaml:"backend"`
	SyncURL          string            `yaml:"sync_url,omitempty"`
	AnonKey          string            `yaml:"anon_key,omitempty"`
	Database         string            `yaml:"database,omitempty"`
	IdentityProvider string            `yaml:"identity_provider,omitempty"`
	Locale           string            `yaml:"locale,omitempty"`
	RefreshMargin    string            `yaml:"refresh_margin,omitempty"`
	Debug            bool              `yaml:"debug,omitempty"`

	// Path is the file the config was read from
	Path string `yaml:"-"`
}

// Default returns the settings used when no config file exists
func Default(dir string) *Config {
	return &Config{
		Backend:          constants.BackendSQLite,
		Database:         filepath.Join(dir, constants.DefaultSQLiteFile),
		IdentityProvider: constants.DefaultProvider,
		RefreshMargin:    constants.DefaultRefreshMargin.String(),
		Path:             filepath.Join(dir, constants.DefaultConfigFile),
	}
}

// ExpandHome resolves a leading ~ to the current user's home directory
func ExpandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}

// Load reads the config at path. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	path, err := ExpandHome(path)
	if err != nil {
		return nil, err
	}
	dir := filepath.Dir(path)

	cfg := Default(dir)
	cfg.Path = path

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	if err := loadDotEnv(dir); err != nil {
		return nil, err
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if cfg.Backend == constants.BackendSQLite {
		if cfg.Database == "" {
			cfg.Database = filepath.Join(dir, constants.DefaultSQLiteFile)
		}
		if cfg.Database, err = ExpandHome(cfg.Database); err != nil {
			return nil, err
		}
	}
	if cfg.IdentityProvider == "" {
		cfg.IdentityProvider = constants.DefaultProvider
	}
	if cfg.Locale == "" {
		cfg.Locale = systemLocale()
	}

	return cfg, cfg.Validate()
}

// loadDotEnv loads .env from the working directory and then the config
// directory. Variables already set in the environment win.
func loadDotEnv(dir string) error {
	for _, p := range []string{".env", filepath.Join(dir, ".env")} {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}

func (c *Config) applyEnv() error {
	strs := map[string]*string{
		constants.EnvSyncURL:       &c.SyncURL,
		constants.EnvAnonKey:       &c.AnonKey,
		constants.EnvDatabase:      &c.Database,
		constants.EnvProvider:      &c.IdentityProvider,
		constants.EnvLocale:        &c.Locale,
		constants.EnvRefreshMargin: &c.RefreshMargin,
	}
	for key, dst := range strs {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}
	if v, ok := os.LookupEnv(constants.EnvBackend); ok && v != "" {
		c.Backend = constants.Backend(strings.ToLower(v))
	}
	if v, ok := os.LookupEnv(constants.EnvDebug); ok && v != "" {
		debug, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", constants.EnvDebug, err)
		}
		c.Debug = debug
	}
	return nil
}

func systemLocale() string {
	lang := os.Getenv(constants.EnvSystemLanguage)
	if i := strings.IndexAny(lang, ".@"); i >= 0 {
		lang = lang[:i]
	}
	if lang == "" || lang == "C" || lang == "POSIX" {
		return "en-US"
	}
	return strings.ReplaceAll(lang, "_", "-")
}

// Margin is the parsed refresh margin
func (c *Config) Margin() time.Duration {
	d, err := time.ParseDuration(c.RefreshMargin)
	if err != nil || d < 0 {
		return constants.DefaultRefreshMargin
	}
	return d
}

// Dir is the directory holding the config file, logs and the default database
func (c *Config) Dir() string {
	return filepath.Dir(c.Path)
}

func (c *Config) Validate() error {
	switch c.Backend {
	case constants.BackendREST:
		if c.SyncURL == "" {
			return errors.New("backend rest requires sync_url")
		}
		u, err := url.Parse(c.SyncURL)
		if err != nil || u.Host == "" || (u.Scheme != "https" && u.Scheme != "http") {
			return fmt.Errorf("sync_url %q is not an http(s) URL", c.SyncURL)
		}
		if c.AnonKey == "" {
			return errors.New("backend rest requires anon_key")
		}
	case constants.BackendPostgres:
	case constants.BackendSQLite:
		if c.Database == "" {
			return errors.New("backend sqlite requires a database path")
		}
	default:
		return fmt.Errorf("unknown backend %q (want rest, postgres or sqlite)", c.Backend)
	}

	if c.RefreshMargin != "" {
		d, err := time.ParseDuration(c.RefreshMargin)
		if err != nil {
			return fmt.Errorf("invalid refresh_margin: %w", err)
		}
		if d < 0 {
			return errors.New("refresh_margin cannot be negative")
		}
	}
	return nil
}

// Save writes the config back to its Path
func (c *Config) Save() error {
	if err := c.Validate(); err != nil {
		return err
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.MkdirAll(c.Dir(), 0o700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(c.Path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}
