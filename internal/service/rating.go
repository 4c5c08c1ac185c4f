package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/FitchII-cod/billiard-tracker/internal/constants"
	"github.com/FitchII-cod/billiard-tracker/internal/domain"
	"github.com/FitchII-cod/billiard-tracker/internal/rating"
	"github.com/FitchII-cod/billiard-tracker/internal/repository"

	"github.com/rs/zerolog"
)

var (
	ErrInvalidMatch = errors.New("invalid match")
	// ErrMalformedMatch marks a stored match whose participant counts do
	// not fit its declared format. Replay skips these instead of aborting.
	ErrMalformedMatch = errors.New("match participants do not fit declared format")
)

// RatingService owns every rating-mutating path: incremental updates on
// match creation, and full rebuilds after retroactive history changes.
// A single mutex serializes them; interleaving an insertion mid-rebuild
// would leave the new match missing or double-counted.
type RatingService struct {
	mu sync.Mutex

	db       *sql.DB
	players  *repository.PlayerRepository
	matches  *repository.MatchRepository
	ratings  *repository.RatingRepository
	settings *repository.SettingRepository
	audit    *repository.AuditRepository
	resolver *TeamResolver
	logger   zerolog.Logger
}

func NewRatingService(
	db *sql.DB,
	players *repository.PlayerRepository,
	matches *repository.MatchRepository,
	ratings *repository.RatingRepository,
	settings *repository.SettingRepository,
	audit *repository.AuditRepository,
	resolver *TeamResolver,
	logger zerolog.Logger,
) *RatingService {
	return &RatingService{
		db:       db,
		players:  players,
		matches:  matches,
		ratings:  ratings,
		settings: settings,
		audit:    audit,
		resolver: resolver,
		logger:   logger,
	}
}

type CreateMatchInput struct {
	Format         domain.Format
	PlayedAt       *time.Time
	BallsRemaining int
	WinnerSide     domain.Side
	FoulBlack      bool
	Ranked         bool
	PlayersA       []int64
	PlayersB       []int64
}

// MatchDeltas reports the rating change each side received from one
// incremental update. Nil deltas mean the match was not rated.
type MatchDeltas struct {
	DeltaA float64
	DeltaB float64
}

// CreateMatch records a match and, for ranked 1v1/2v2 matches, applies
// the incremental rating update in the same transaction.
func (s *RatingService) CreateMatch(ctx context.Context, input CreateMatchInput) (*domain.Match, *MatchDeltas, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.RequestTimeout)
	defer cancel()

	if err := s.validate(ctx, &input); err != nil {
		return nil, nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	playedAt := time.Now().UTC()
	if input.PlayedAt != nil {
		playedAt = input.PlayedAt.UTC()
	}

	match := &domain.Match{
		Format:         input.Format,
		PlayedAt:       playedAt,
		BallsRemaining: input.BallsRemaining,
		WinnerSide:     input.WinnerSide,
		FoulBlack:      input.FoulBlack,
		Ranked:         input.Ranked,
		PlayersA:       input.PlayersA,
		PlayersB:       input.PlayersB,
	}

	if match.Format == domain.Format2v2 {
		teamA, err := s.resolver.Resolve(ctx, tx, match.PlayersA)
		if err != nil {
			return nil, nil, err
		}
		teamB, err := s.resolver.Resolve(ctx, tx, match.PlayersB)
		if err != nil {
			return nil, nil, err
		}
		match.TeamIDA = &teamA.ID
		match.TeamIDB = &teamB.ID
	}

	if err := s.matches.WithTx(tx).Insert(ctx, match); err != nil {
		return nil, nil, err
	}

	var deltas *MatchDeltas
	if match.Ranked && match.Format.Rated() {
		engine, err := s.buildEngine(ctx, tx)
		if err != nil {
			return nil, nil, err
		}
		ledger := newRatingLedger(engine, s.ratings.WithTx(tx))

		// Incremental updates stamp processing time, not the (possibly
		// backdated) match timestamp.
		deltaA, deltaB, err := s.applyMatch(ctx, tx, ledger, match, time.Now().UTC())
		if err != nil {
			return nil, nil, err
		}
		if err := ledger.flush(ctx); err != nil {
			return nil, nil, err
		}
		deltas = &MatchDeltas{DeltaA: deltaA, DeltaB: deltaB}
	}

	if err := s.writeAudit(ctx, tx, "create", match.ID, nil, match); err != nil {
		return nil, nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("failed to commit match: %w", err)
	}

	event := s.logger.Info().
		Int64("match_id", match.ID).
		Str("format", string(match.Format)).
		Bool("ranked", match.Ranked)
	if deltas != nil {
		event = event.Float64("delta_a", deltas.DeltaA).Float64("delta_b", deltas.DeltaB)
	}
	event.Msg("match created")

	return match, deltas, nil
}

type UpdateMatchInput struct {
	PlayedAt       *time.Time
	BallsRemaining *int
	WinnerSide     *domain.Side
	FoulBlack      *bool
	Ranked         *bool
}

// UpdateMatch edits a match's outcome fields and rebuilds all aggregates
// from history inside the same transaction: an edit invalidates every
// aggregate computed after that match in history order.
func (s *RatingService) UpdateMatch(ctx context.Context, id int64, input UpdateMatchInput) (*domain.Match, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.RebuildTimeout)
	defer cancel()

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	matches := s.matches.WithTx(tx)
	match, err := matches.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	old := *match

	if input.PlayedAt != nil {
		match.PlayedAt = input.PlayedAt.UTC()
	}
	if input.BallsRemaining != nil {
		if *input.BallsRemaining < 0 || *input.BallsRemaining > rating.MaxBallsRemaining {
			return nil, fmt.Errorf("%w: balls_remaining must be between 0 and %d", ErrInvalidMatch, rating.MaxBallsRemaining)
		}
		match.BallsRemaining = *input.BallsRemaining
	}
	if input.WinnerSide != nil {
		if *input.WinnerSide != domain.SideA && *input.WinnerSide != domain.SideB {
			return nil, fmt.Errorf("%w: winner side must be A or B", ErrInvalidMatch)
		}
		match.WinnerSide = *input.WinnerSide
	}
	if input.FoulBlack != nil {
		match.FoulBlack = *input.FoulBlack
	}
	if input.Ranked != nil {
		match.Ranked = *input.Ranked
	}

	if err := matches.Update(ctx, match); err != nil {
		return nil, err
	}
	if err := s.writeAudit(ctx, tx, "update", match.ID, &old, match); err != nil {
		return nil, err
	}
	if err := s.rebuildTx(ctx, tx); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit match update: %w", err)
	}

	s.logger.Info().Int64("match_id", id).Msg("match updated, ratings rebuilt")
	return match, nil
}

// DeleteMatch removes a match from history and rebuilds all aggregates
// in the same transaction.
func (s *RatingService) DeleteMatch(ctx context.Context, id int64) error {
	ctx, cancel := context.WithTimeout(ctx, constants.RebuildTimeout)
	defer cancel()

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	matches := s.matches.WithTx(tx)
	match, err := matches.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := matches.Delete(ctx, id); err != nil {
		return err
	}
	if err := s.writeAudit(ctx, tx, "delete", id, match, nil); err != nil {
		return err
	}
	if err := s.rebuildTx(ctx, tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit match deletion: %w", err)
	}

	s.logger.Info().Int64("match_id", id).Msg("match deleted, ratings rebuilt")
	return nil
}

// RebuildAll discards every rating aggregate and recomputes them from the
// full match history. Idempotent: with no intervening history change,
// running it twice produces identical state, and that state equals the
// fold of incremental updates over the same matches in the same order.
func (s *RatingService) RebuildAll(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, constants.RebuildTimeout)
	defer cancel()

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.rebuildTx(ctx, tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit rebuild: %w", err)
	}
	return nil
}

// rebuildTx runs the full replay inside the given transaction: reset all
// aggregates, then fold the rating rule over every ranked match in
// ascending (played_at, id) order, re-resolving team identities from the
// recorded participants.
func (s *RatingService) rebuildTx(ctx context.Context, tx *sql.Tx) error {
	start := time.Now()

	ratings := s.ratings.WithTx(tx)
	if err := ratings.ResetAll(ctx); err != nil {
		return err
	}

	engine, err := s.buildEngine(ctx, tx)
	if err != nil {
		return err
	}
	ledger := newRatingLedger(engine, ratings)

	matches, err := s.matches.WithTx(tx).ListAllOrdered(ctx)
	if err != nil {
		return err
	}

	applied, skipped := 0, 0
	var prev domain.MatchKey
	for i, match := range matches {
		// The fold is only correct over the (played_at, id) total order.
		key := match.Key()
		if i > 0 && key.Compare(prev) < 0 {
			return fmt.Errorf("match %d out of history order", match.ID)
		}
		prev = key
		if !match.Ranked || !match.Format.Rated() {
			continue
		}
		// Replay stamps the match's own timestamp.
		_, _, err := s.applyMatch(ctx, tx, ledger, match, match.PlayedAt)
		if errors.Is(err, ErrMalformedMatch) {
			skipped++
			s.logger.Warn().
				Int64("match_id", match.ID).
				Str("format", string(match.Format)).
				Int("players_a", len(match.PlayersA)).
				Int("players_b", len(match.PlayersB)).
				Msg("skipping malformed match during rebuild")
			continue
		}
		if err != nil {
			return err
		}
		applied++
	}

	if err := ledger.flush(ctx); err != nil {
		return err
	}

	s.logger.Info().
		Int("matches", len(matches)).
		Int("applied", applied).
		Int("skipped", skipped).
		Dur("duration", time.Since(start)).
		Msg("rating rebuild completed")
	return nil
}

// applyMatch folds one ranked match into the ledger. The two aggregates
// are looked up (or seeded) through the ledger's single upsert path, so
// the same code serves incremental updates and full replays.
func (s *RatingService) applyMatch(ctx context.Context, tx *sql.Tx, ledger *ratingLedger, match *domain.Match, lastPlayed time.Time) (float64, float64, error) {
	winnerIsA := match.WinnerSide == domain.SideA

	switch match.Format {
	case domain.Format1v1:
		if len(match.PlayersA) != 1 || len(match.PlayersB) != 1 {
			return 0, 0, ErrMalformedMatch
		}
		a, err := ledger.player(ctx, match.PlayersA[0], match.Format)
		if err != nil {
			return 0, 0, err
		}
		b, err := ledger.player(ctx, match.PlayersB[0], match.Format)
		if err != nil {
			return 0, 0, err
		}
		deltaA, deltaB := ledger.engine.UpdatePair(&a.RatingAggregate, &b.RatingAggregate, winnerIsA, match.BallsRemaining, lastPlayed)
		return deltaA, deltaB, nil

	case domain.Format2v2:
		if len(match.PlayersA) != 2 || len(match.PlayersB) != 2 {
			return 0, 0, ErrMalformedMatch
		}
		// Team identity is a pure function of the sorted player pair, so
		// these resolve to the same teams the match had originally.
		teamA, err := s.resolver.Resolve(ctx, tx, match.PlayersA)
		if err != nil {
			return 0, 0, err
		}
		teamB, err := s.resolver.Resolve(ctx, tx, match.PlayersB)
		if err != nil {
			return 0, 0, err
		}
		a, err := ledger.team(ctx, teamA.ID, match.Format)
		if err != nil {
			return 0, 0, err
		}
		b, err := ledger.team(ctx, teamB.ID, match.Format)
		if err != nil {
			return 0, 0, err
		}
		deltaA, deltaB := ledger.engine.UpdatePair(&a.RatingAggregate, &b.RatingAggregate, winnerIsA, match.BallsRemaining, lastPlayed)
		return deltaA, deltaB, nil
	}

	return 0, 0, fmt.Errorf("format %s is not rated", match.Format)
}

// buildEngine loads one settings snapshot and constructs the engine from
// it. The snapshot stays fixed for the lifetime of the engine, which is
// at most one transaction.
func (s *RatingService) buildEngine(ctx context.Context, tx *sql.Tx) (*rating.Engine, error) {
	values, err := s.settings.WithTx(tx).GetAll(ctx)
	if err != nil {
		return nil, err
	}
	params, err := rating.ParamsFromSettings(values)
	if err != nil {
		return nil, err
	}
	return rating.NewEngine(params), nil
}

func (s *RatingService) validate(ctx context.Context, input *CreateMatchInput) error {
	sizeA, sizeB, ok := input.Format.SideSizes()
	if !ok {
		return fmt.Errorf("%w: unknown format %q", ErrInvalidMatch, input.Format)
	}
	fits := len(input.PlayersA) == sizeA && len(input.PlayersB) == sizeB
	if input.Format == domain.Format1v2 {
		// Either orientation of the handicap format is accepted.
		fits = fits || (len(input.PlayersA) == sizeB && len(input.PlayersB) == sizeA)
	}
	if !fits {
		return fmt.Errorf("%w: format %s requires %d player(s) on side A and %d on side B",
			ErrInvalidMatch, input.Format, sizeA, sizeB)
	}

	if input.WinnerSide != domain.SideA && input.WinnerSide != domain.SideB {
		return fmt.Errorf("%w: winner side must be A or B", ErrInvalidMatch)
	}
	if input.BallsRemaining < 0 || input.BallsRemaining > rating.MaxBallsRemaining {
		return fmt.Errorf("%w: balls_remaining must be between 0 and %d", ErrInvalidMatch, rating.MaxBallsRemaining)
	}

	all := append(append([]int64{}, input.PlayersA...), input.PlayersB...)
	seen := make(map[int64]struct{}, len(all))
	for _, id := range all {
		if _, dup := seen[id]; dup {
			return fmt.Errorf("%w: player %d appears more than once", ErrInvalidMatch, id)
		}
		seen[id] = struct{}{}
	}

	players, err := s.players.GetByIDs(ctx, all)
	if err != nil {
		return err
	}
	if len(players) != len(all) {
		return fmt.Errorf("%w: %v", repository.ErrPlayerNotFound, all)
	}
	return nil
}

func (s *RatingService) writeAudit(ctx context.Context, tx *sql.Tx, action string, matchID int64, before, after *domain.Match) error {
	entry := &domain.AuditLog{
		Action:     action,
		EntityType: "match",
		EntityID:   &matchID,
	}
	if before != nil {
		raw, err := json.Marshal(before)
		if err != nil {
			return fmt.Errorf("failed to encode audit old value: %w", err)
		}
		v := string(raw)
		entry.OldValue = &v
	}
	if after != nil {
		raw, err := json.Marshal(after)
		if err != nil {
			return fmt.Errorf("failed to encode audit new value: %w", err)
		}
		v := string(raw)
		entry.NewValue = &v
	}
	return s.audit.WithTx(tx).Insert(ctx, entry)
}
