package constants

import "time"

const (
	AppName            = "cadence"
	DefaultKeyringUser = "database-connection"
	DefaultConfigPath  = "~/.config/cadence/cadence.db"
	Version            = "v0.3.0"

	// DateFormat is the standard date format used throughout the application (YYYY-MM-DD)
	DateFormat = "2006-01-02"

	// TimeFormat is the standard time format used throughout the application (HH:MM)
	TimeFormat = "15:04"

	// DateTimeFormat is accepted for instants given without a zone (YYYY-MM-DD HH:MM)
	DateTimeFormat = "2006-01-02 15:04"

	// Backup constants
	MaxBackups       = 14
	BackupDirName    = "backups"
	BackupFilePrefix = "cadence-"
	BackupFileSuffix = ".db"

	// Expansion constants
	DefaultExpandCount    = 10
	MaxWindowOccurrences  = 5000
	MaxCalendarIterations = 100000
	// MaxOccurrenceIndex bounds indices accepted for completions and exceptions
	MaxOccurrenceIndex = 1_000_000

	// Completion toggles retry on version conflicts
	DefaultMaxRetries = 5
	RetryBaseDelay    = 10 * time.Millisecond

	// Stride modes
	StrideFixed    = "fixed"
	StrideCalendar = "calendar"

	// VirtualIDPrefix prefixes ids of generated occurrences
	VirtualIDPrefix = "virtual-"

	// EnvPrefix is the prefix for configuration environment variables
	EnvPrefix = "CADENCE"
	// EnvDBConnection overrides the database location for PostgreSQL setups
	EnvDBConnection = "CADENCE_DB_CONNECTION"
)
