package domain

import (
	"time"
)

// Format is the closed set of match formats. Only 1v1 and 2v2 feed the
// rating engine; 3v3 and 1v2 matches are recorded but never rated.
type Format string

const (
	Format1v1 Format = "1v1"
	Format2v2 Format = "2v2"
	Format3v3 Format = "3v3"
	Format1v2 Format = "1v2"
)

// SideSizes returns the expected participant counts for each side.
// The second return is false for unknown formats.
func (f Format) SideSizes() (int, int, bool) {
	switch f {
	case Format1v1:
		return 1, 1, true
	case Format2v2:
		return 2, 2, true
	case Format3v3:
		return 3, 3, true
	case Format1v2:
		return 1, 2, true
	}
	return 0, 0, false
}

// Rated reports whether matches of this format update ratings.
func (f Format) Rated() bool {
	return f == Format1v1 || f == Format2v2
}

type Side string

const (
	SideA Side = "A"
	SideB Side = "B"
)

type Player struct {
	ID        int64
	Name      string
	IsGuest   bool
	CreatedAt time.Time
}

type Team struct {
	ID        int64
	Key       string // canonical sorted-pair key, e.g. "12-34"
	Name      string
	CreatedAt time.Time
}

type Match struct {
	ID             int64
	Format         Format
	PlayedAt       time.Time
	BallsRemaining int // 0-7
	WinnerSide     Side
	FoulBlack      bool
	Ranked         bool
	TeamIDA        *int64 // 2v2 only
	TeamIDB        *int64
	PlayersA       []int64
	PlayersB       []int64
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Key returns the composite ordering key that defines this match's
// position in history.
func (m *Match) Key() MatchKey {
	return MatchKey{PlayedAt: m.PlayedAt, ID: m.ID}
}

// MatchKey is the total order over match history: ascending played_at,
// with the creation id as tie-break so that coinciding timestamps still
// order deterministically.
type MatchKey struct {
	PlayedAt time.Time
	ID       int64
}

// Compare returns -1, 0 or 1 ordering k before, equal to, or after other.
func (k MatchKey) Compare(other MatchKey) int {
	if k.PlayedAt.Before(other.PlayedAt) {
		return -1
	}
	if k.PlayedAt.After(other.PlayedAt) {
		return 1
	}
	switch {
	case k.ID < other.ID:
		return -1
	case k.ID > other.ID:
		return 1
	}
	return 0
}

// RatingAggregate holds the mutable, fully derived rating state shared by
// player and team ratings. A missing row and a zero-valued aggregate are
// the same state: counters always start at zero, the rating at the
// configured seed.
type RatingAggregate struct {
	Rating     float64
	Games      int
	Wins       int
	Losses     int
	Streak     int // positive = consecutive wins, negative = consecutive losses
	LastPlayed *time.Time
}

type Rating struct {
	PlayerID int64
	Format   Format
	RatingAggregate
}

type TeamRating struct {
	TeamID int64
	Format Format
	RatingAggregate
}

// AggregateKey addresses one rating aggregate during a rebuild fold.
type AggregateKey struct {
	EntityID int64
	Format   Format
}

type Setting struct {
	Key       string
	Value     string
	UpdatedAt time.Time
}

type AuditLog struct {
	ID         int64
	Action     string // "create", "update", "delete"
	EntityType string // "match", "settings", ...
	EntityID   *int64
	OldValue   *string
	NewValue   *string
	UserInfo   *string
	CreatedAt  time.Time
}

type LeaderboardEntry struct {
	Rank       int
	EntityName string
	EntityID   int64
	EntityType string // "player" or "team"
	Rating     float64
	Games      int
	Wins       int
	Losses     int
	WinRate    float64
	Streak     int
	LastPlayed *time.Time
}

type HeadToHeadStats struct {
	TotalGames        int
	SideAWins         int
	SideBWins         int
	Last5Results      []string // "W"/"L" from side A's perspective, newest first
	AvgBallsRemaining float64
	LastMatchDate     *time.Time
}
