package config

import "time"

// Application constants
const (
	AppName   = "mktyield"
	EnvPrefix = "MKTYIELD"

	// Deployment values stamped on every snapshot row
	DefaultSystemLocation = "PARIS"
	DefaultApplication    = "SUMMIT"
	DefaultCurveType      = "YCURVE"
	DefaultCurveID        = "MSSEOD"

	// Sink
	DriverPostgres        = "postgres"
	DriverSQLite          = "sqlite"
	DefaultTable          = "mkt_yeild_pc"
	DefaultPassphraseEnv  = "MKTYIELD_SECRET_KEY"
	DefaultConnectTimeout = 30 * time.Second

	// Previous business day resolution
	BusinessDaySourceSQL      = "sql"
	BusinessDaySourceCalendar = "calendar"
	DefaultMaxLookback        = 10

	// DefaultPrevBusinessDayQuery takes (location, system location, business date)
	DefaultPrevBusinessDayQuery = "SELECT GETPREVIOUSBUSINESSDAY($1, $2, $3)"

	// Per-record failure policies
	RecordErrorAbort = "abort"
	RecordErrorSkip  = "skip"

	DefaultDateLayout = "2006-01-02"

	// File paths (relative to the working directory)
	DefaultDocumentPath = "xds/transformedXML.xml"
	DefaultLogsDir      = "logs"
	DefaultLogFile      = "logs/mktyield.log"
)
