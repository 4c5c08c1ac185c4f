package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/FitchII-cod/billiard-tracker/internal/constants"
	"github.com/FitchII-cod/billiard-tracker/internal/domain"
	"github.com/FitchII-cod/billiard-tracker/internal/repository"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

type PlayerService struct {
	players *repository.PlayerRepository
	ratings *repository.RatingRepository
	matches *repository.MatchRepository
	logger  zerolog.Logger
}

func NewPlayerService(players *repository.PlayerRepository, ratings *repository.RatingRepository, matches *repository.MatchRepository, logger zerolog.Logger) *PlayerService {
	return &PlayerService{players: players, ratings: ratings, matches: matches, logger: logger}
}

func (s *PlayerService) Create(ctx context.Context, name string, isGuest bool) (*domain.Player, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: empty name", ErrInvalidPlayer)
	}

	player, err := s.players.Create(ctx, name, isGuest)
	if err != nil {
		s.logger.Error().Err(err).Str("name", name).Msg("failed to create player")
		return nil, err
	}
	return player, nil
}

var ErrInvalidPlayer = errors.New("invalid player")

func (s *PlayerService) Get(ctx context.Context, id int64) (*domain.Player, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()
	return s.players.GetByID(ctx, id)
}

func (s *PlayerService) List(ctx context.Context, includeGuests bool) ([]domain.Player, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()
	return s.players.List(ctx, includeGuests)
}

// PlayerSummary is the presentation view of one player: the 1v1
// aggregate plus recent form.
type PlayerSummary struct {
	Player        domain.Player
	Rating        *domain.Rating // nil until the first ranked 1v1 match
	RecentMatches []*domain.Match
}

// Summary fetches the player's rating and recent match history
// concurrently; both are pure projections of stored state.
func (s *PlayerService) Summary(ctx context.Context, id int64) (*PlayerSummary, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.RequestTimeout)
	defer cancel()

	player, err := s.players.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	summary := &PlayerSummary{Player: *player}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		r, err := s.ratings.GetPlayer(gctx, id, domain.Format1v1)
		if errors.Is(err, repository.ErrRatingNotFound) {
			// Not an error: the player has no ranked 1v1 match yet.
			return nil
		}
		if err != nil {
			return err
		}
		summary.Rating = r
		return nil
	})
	g.Go(func() error {
		recent, _, err := s.matches.ListHistory(gctx, repository.HistoryFilter{
			PlayerID: id,
			Limit:    constants.SummaryRecentMatches,
		})
		if err != nil {
			return err
		}
		summary.RecentMatches = recent
		return nil
	})
	if err := g.Wait(); err != nil {
		s.logger.Error().Err(err).Int64("player_id", id).Msg("failed to build player summary")
		return nil, err
	}

	return summary, nil
}
