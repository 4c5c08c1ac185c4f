package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/FitchII-cod/billiard-tracker/internal/domain"
	"github.com/FitchII-cod/billiard-tracker/internal/repository"

	"github.com/rs/zerolog"
)

// ErrTeamSize is returned when a team is resolved with anything other
// than two distinct players.
var ErrTeamSize = errors.New("a team requires exactly two distinct players")

// TeamResolver maps an unordered pair of players to its canonical team,
// creating the team on first encounter. Because the key is a pure
// function of the sorted player ids, resolving the same pair in either
// order always yields the same team, which is what lets a replay
// reconstruct team identities from match history alone.
type TeamResolver struct {
	players *repository.PlayerRepository
	teams   *repository.TeamRepository
	logger  zerolog.Logger
}

func NewTeamResolver(players *repository.PlayerRepository, teams *repository.TeamRepository, logger zerolog.Logger) *TeamResolver {
	return &TeamResolver{players: players, teams: teams, logger: logger}
}

// Resolve runs inside the caller's transaction so that team creation
// commits or rolls back together with the match that needed it.
func (s *TeamResolver) Resolve(ctx context.Context, tx *sql.Tx, playerIDs []int64) (*domain.Team, error) {
	if len(playerIDs) != 2 || playerIDs[0] == playerIDs[1] {
		return nil, ErrTeamSize
	}

	lo, hi := playerIDs[0], playerIDs[1]
	if lo > hi {
		lo, hi = hi, lo
	}
	key := fmt.Sprintf("%d-%d", lo, hi)

	teams := s.teams.WithTx(tx)

	team, err := teams.GetByKey(ctx, key)
	if err == nil {
		return team, nil
	}
	if !errors.Is(err, repository.ErrTeamNotFound) {
		return nil, err
	}

	// First encounter: both players must exist before a team can be
	// derived from them.
	members, err := s.players.WithTx(tx).GetByIDs(ctx, []int64{lo, hi})
	if err != nil {
		return nil, err
	}
	if len(members) != 2 {
		return nil, fmt.Errorf("team %s: %w", key, repository.ErrPlayerNotFound)
	}

	name := members[0].Name + " + " + members[1].Name
	team, err = teams.Create(ctx, key, name, []int64{lo, hi})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("key", key).Str("name", name).Int64("team_id", team.ID).Msg("team resolved")
	return team, nil
}
