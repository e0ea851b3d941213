package constants

import "time"

// Backend identifies which Sync Service implementation the client talks to
type Backend string

const (
	AppName           = "ember"
	Version           = "v0.1.0"
	DefaultConfigFile = "config.yaml"
	DefaultSQLiteFile = "ember.db"
	DefaultProvider   = "apple"
	DefaultCurrency   = "USD"

	// Keyring entries
	SessionKeyringUser    = "session"
	ConnectionKeyringUser = "database-connection"

	// Backends
	BackendREST     Backend = "rest"
	BackendPostgres Backend = "postgres"
	BackendSQLite   Backend = "sqlite"

	// Remote tables
	TableProfiles           = "profiles"
	TableMissionCompletions = "mission_completions"
	TableCravings           = "cravings"

	// Progress formula
	UnitsPerPack   = 20.0
	MinutesPerUnit = 11.0
	SecondsPerDay  = 86400.0

	// Identity exchange
	NonceLength = 32

	// Craving intensity bounds
	MinIntensity = 1
	MaxIntensity = 10

	TickInterval         = time.Second
	DefaultRefreshMargin = 5 * time.Minute
	RefreshCheckInterval = time.Minute
	HTTPTimeout          = 15 * time.Second
	LocalSessionLifetime = 24 * time.Hour
)
