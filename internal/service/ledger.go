package service

import (
	"context"
	"errors"

	"github.com/FitchII-cod/billiard-tracker/internal/domain"
	"github.com/FitchII-cod/billiard-tracker/internal/rating"
	"github.com/FitchII-cod/billiard-tracker/internal/repository"
)

// ratingLedger caches rating aggregates by composite (entity, format)
// key for the duration of one transaction. Aggregates are materialized
// through a single idempotent seed-if-missing path, mutated in memory by
// the engine, and written back in one flush. The same ledger serves a
// one-match incremental update and a full-history replay.
type ratingLedger struct {
	engine  *rating.Engine
	ratings *repository.RatingRepository // transaction-scoped

	players map[domain.AggregateKey]*domain.Rating
	teams   map[domain.AggregateKey]*domain.TeamRating
}

func newRatingLedger(engine *rating.Engine, ratings *repository.RatingRepository) *ratingLedger {
	return &ratingLedger{
		engine:  engine,
		ratings: ratings,
		players: map[domain.AggregateKey]*domain.Rating{},
		teams:   map[domain.AggregateKey]*domain.TeamRating{},
	}
}

func (l *ratingLedger) player(ctx context.Context, playerID int64, format domain.Format) (*domain.Rating, error) {
	key := domain.AggregateKey{EntityID: playerID, Format: format}
	if agg, ok := l.players[key]; ok {
		return agg, nil
	}
	agg, err := l.ratings.EnsurePlayer(ctx, playerID, format, l.engine.Params().SeedFor(false))
	if err != nil {
		return nil, err
	}
	l.players[key] = agg
	return agg, nil
}

func (l *ratingLedger) team(ctx context.Context, teamID int64, format domain.Format) (*domain.TeamRating, error) {
	key := domain.AggregateKey{EntityID: teamID, Format: format}
	if agg, ok := l.teams[key]; ok {
		return agg, nil
	}
	agg, err := l.ratings.EnsureTeam(ctx, teamID, format, l.engine.Params().SeedFor(true))
	if err != nil {
		return nil, err
	}
	l.teams[key] = agg
	return agg, nil
}

// flush writes every touched aggregate back. Called once, right before
// the owning transaction commits.
func (l *ratingLedger) flush(ctx context.Context) error {
	var errs []error
	for _, agg := range l.players {
		if err := l.ratings.UpsertPlayer(ctx, agg); err != nil {
			errs = append(errs, err)
		}
	}
	for _, agg := range l.teams {
		if err := l.ratings.UpsertTeam(ctx, agg); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
