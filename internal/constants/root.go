package constants

const (
	AppName            = "tally"
	DefaultKeyringUser = "database-connection"
	SessionKeyringUser = "session-refresh-token"
	DefaultConfigDir   = "~/.config/tally"
	DefaultDBName      = "tally.db"
	DefaultServerAddr  = ":8080"
	ServerLockName     = "serve.lock"
	Version            = "v0.3.0"

	// DateFormat is the standard date format used throughout the application (YYYY-MM-DD)
	DateFormat = "2006-01-02"

	// Session constants
	DefaultSessionTTLMin  = 60
	RefreshTokenTTLDays   = 30
	SessionRefreshLeadSec = 60

	// DefaultLogQuantity is logged when a habit has no default quantity
	DefaultLogQuantity = 1.0

	// OAuth providers
	OAuthProviderGoogle = "google"
)
