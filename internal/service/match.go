package service

import (
	"context"
	"fmt"

	"github.com/FitchII-cod/billiard-tracker/internal/constants"
	"github.com/FitchII-cod/billiard-tracker/internal/domain"
	"github.com/FitchII-cod/billiard-tracker/internal/repository"

	"github.com/rs/zerolog"
)

// StatsService serves the read-only projections over matches and rating
// aggregates: leaderboards, match history, head-to-head. None of these
// mutate rating state.
type StatsService struct {
	matches *repository.MatchRepository
	ratings *repository.RatingRepository
	logger  zerolog.Logger
}

func NewStatsService(matches *repository.MatchRepository, ratings *repository.RatingRepository, logger zerolog.Logger) *StatsService {
	return &StatsService{matches: matches, ratings: ratings, logger: logger}
}

// Leaderboard returns the ranked aggregates for a format: players for
// 1v1, teams for 2v2. "global" falls back to the 1v1 board; a proper
// cross-format aggregation would have to account for the win bonus
// inflating ratings over time.
func (s *StatsService) Leaderboard(ctx context.Context, format string, limit int) ([]domain.LeaderboardEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	if limit <= 0 || limit > constants.LeaderboardMaxLimit {
		limit = constants.LeaderboardDefaultLimit
	}

	switch format {
	case string(domain.Format1v1), "global":
		return s.ratings.ListPlayerLeaderboard(ctx, domain.Format1v1, limit)
	case string(domain.Format2v2):
		return s.ratings.ListTeamLeaderboard(ctx, domain.Format2v2, limit)
	}
	return nil, fmt.Errorf("no leaderboard for format %q", format)
}

// MatchHistory is one page of matches, newest first.
type MatchHistory struct {
	Total   int
	Matches []*domain.Match
}

func (s *StatsService) History(ctx context.Context, filter repository.HistoryFilter) (*MatchHistory, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	if filter.Limit <= 0 {
		filter.Limit = constants.HistoryDefaultLimit
	}

	matches, total, err := s.matches.ListHistory(ctx, filter)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to load match history")
		return nil, err
	}
	return &MatchHistory{Total: total, Matches: matches}, nil
}

// HeadToHead summarizes all matches of the format between two specific
// sides, regardless of which side of the table each pair was recorded
// on. Side membership is an unordered set, so matching happens in
// memory over the format's matches.
func (s *StatsService) HeadToHead(ctx context.Context, format domain.Format, playersA, playersB []int64) (*domain.HeadToHeadStats, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	setA := toSet(playersA)
	setB := toSet(playersB)

	all, err := s.matches.ListByFormat(ctx, format)
	if err != nil {
		return nil, err
	}

	stats := &domain.HeadToHeadStats{Last5Results: []string{}}
	totalBalls := 0

	// Matches arrive newest first.
	for _, m := range all {
		matchA := toSet(m.PlayersA)
		matchB := toSet(m.PlayersB)

		var aWasSideA bool
		switch {
		case setsEqual(matchA, setA) && setsEqual(matchB, setB):
			aWasSideA = true
		case setsEqual(matchA, setB) && setsEqual(matchB, setA):
			aWasSideA = false
		default:
			continue
		}

		won := (m.WinnerSide == domain.SideA) == aWasSideA
		if won {
			stats.SideAWins++
		} else {
			stats.SideBWins++
		}
		if len(stats.Last5Results) < 5 {
			if won {
				stats.Last5Results = append(stats.Last5Results, "W")
			} else {
				stats.Last5Results = append(stats.Last5Results, "L")
			}
		}
		if stats.TotalGames == 0 {
			t := m.PlayedAt
			stats.LastMatchDate = &t
		}
		stats.TotalGames++
		totalBalls += m.BallsRemaining
	}

	if stats.TotalGames > 0 {
		stats.AvgBallsRemaining = float64(totalBalls) / float64(stats.TotalGames)
	}
	return stats, nil
}

func toSet(ids []int64) map[int64]struct{} {
	set := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

func setsEqual(a, b map[int64]struct{}) bool {
	if len(a) != len(b) {
		return false
	}
	for id := range a {
		if _, ok := b[id]; !ok {
			return false
		}
	}
	return true
}
