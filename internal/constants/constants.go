package constants

import "time"

const (
	DatabaseTimeout = 5 * time.Second
	RequestTimeout  = 30 * time.Second
	// A full rebuild folds the entire match history in one transaction.
	RebuildTimeout = 2 * time.Minute
)

const (
	DBMaxOpenConns    = 100
	DBMaxIdleConns    = 10
	DBConnMaxLifetime = 1 * time.Hour
	DBMaxIdleTime     = 10 * time.Minute
)

const (
	ShutdownTimeout = 5 * time.Second
)

const (
	LeaderboardDefaultLimit = 50
	LeaderboardMaxLimit     = 200
	HistoryDefaultLimit     = 20
	SummaryRecentMatches    = 5
	AuditLogDefaultLimit    = 100
)

const (
	AdminTokenLength = 32
)
