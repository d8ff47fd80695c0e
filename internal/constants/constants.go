package constants

import "time"

const (
	IngestTimeout   = 2 * time.Minute
	DatabaseTimeout = 5 * time.Second
	RequestTimeout  = 30 * time.Second
	WebhookTimeout  = 10 * time.Second
)

const (
	DBMaxOpenConns    = 1
	DBMaxIdleConns    = 1
	DBConnMaxLifetime = 1 * time.Hour
	DBMaxIdleTime     = 10 * time.Minute
	DBBatchSize       = 100
)

const (
	ShutdownTimeout = 5 * time.Second
)

const (
	DefaultDepartureCutoffDays = 14
	DefaultMaxUploadBytes      = 50 << 20
	DefaultInboxSchedule       = "@every 15m"
	DefaultImportConcurrency   = 4
)

const (
	SnapshotListLimit = 50
	ChangeListLimit   = 200
	MaxListLimit      = 1000
)
