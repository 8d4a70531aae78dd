package constants

const (
	AppName           = "suppcheck"
	DefaultConfigPath = "~/.config/suppcheck/suppcheck.db"
	Version           = "v0.1.0"

	// RecordKey is the single key the daily record is stored under
	RecordKey = "supplement-check-data"

	// KeyringPrefix selects the OS keyring store in --config
	KeyringPrefix = "keyring:"

	// DefaultKeyringUser is the keyring account holding a PostgreSQL connection string
	DefaultKeyringUser = "database-connection"

	// Env overrides
	EnvConfig       = "SUPPCHECK_CONFIG"
	EnvTimezone     = "SUPPCHECK_TIMEZONE"
	EnvDBConnection = "SUPPCHECK_DB_CONNECTION"

	// Lockfile
	LockfileName = "suppcheck.lock"

	// DefaultTimezone uses the system local timezone
	DefaultTimezone = "Local"
)
