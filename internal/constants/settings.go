package constants

const (
	// Environment overrides, applied after the config file and .env
	EnvBackend        = "EMBER_BACKEND"
	EnvSyncURL        = "EMBER_SYNC_URL"
	EnvAnonKey        = "EMBER_ANON_KEY"
	EnvDatabase       = "EMBER_DATABASE"
	EnvProvider       = "EMBER_IDENTITY_PROVIDER"
	EnvLocale         = "EMBER_LOCALE"
	EnvRefreshMargin  = "EMBER_REFRESH_MARGIN"
	EnvDebug          = "EMBER_DEBUG"
	EnvDBConnection   = "EMBER_DB_CONNECTION"
	EnvSystemLanguage = "LANG"
)
