package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/FitchII-cod/billiard-tracker/internal/domain"

	"github.com/rs/zerolog"
)

var ErrRatingNotFound = errors.New("rating not found")

// RatingRepository persists the derived rating aggregates for players and
// teams. Every write path is an idempotent upsert keyed by the composite
// (entity, format) key, so a missing row and a zero-valued aggregate are
// interchangeable.
type RatingRepository struct {
	db     DBTX
	logger zerolog.Logger
}

func NewRatingRepository(sqlDB *sql.DB, logger zerolog.Logger) *RatingRepository {
	return &RatingRepository{db: sqlDB, logger: logger}
}

func (r *RatingRepository) WithTx(tx *sql.Tx) *RatingRepository {
	return &RatingRepository{db: tx, logger: r.logger}
}

// EnsurePlayer returns the player's aggregate for the format, creating it
// seeded at the given rating with zero counters if absent.
func (r *RatingRepository) EnsurePlayer(ctx context.Context, playerID int64, format domain.Format, seed float64) (*domain.Rating, error) {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO ratings (player_id, format, rating, games, wins, losses, streak)
		 VALUES (?, ?, ?, 0, 0, 0, 0)
		 ON CONFLICT (player_id, format) DO NOTHING`,
		playerID, string(format), seed)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure rating for player %d: %w", playerID, err)
	}
	return r.GetPlayer(ctx, playerID, format)
}

func (r *RatingRepository) GetPlayer(ctx context.Context, playerID int64, format domain.Format) (*domain.Rating, error) {
	rating := domain.Rating{PlayerID: playerID, Format: format}
	var lastPlayed sql.NullTime
	err := r.db.QueryRowContext(ctx,
		`SELECT rating, games, wins, losses, streak, last_played
		 FROM ratings WHERE player_id = ? AND format = ?`,
		playerID, string(format)).
		Scan(&rating.Rating, &rating.Games, &rating.Wins, &rating.Losses, &rating.Streak, &lastPlayed)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRatingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get rating for player %d: %w", playerID, err)
	}
	if lastPlayed.Valid {
		rating.LastPlayed = &lastPlayed.Time
	}
	return &rating, nil
}

func (r *RatingRepository) UpsertPlayer(ctx context.Context, rating *domain.Rating) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO ratings (player_id, format, rating, games, wins, losses, streak, last_played)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (player_id, format) DO UPDATE SET
		   rating = excluded.rating, games = excluded.games, wins = excluded.wins,
		   losses = excluded.losses, streak = excluded.streak, last_played = excluded.last_played`,
		rating.PlayerID, string(rating.Format), rating.Rating,
		rating.Games, rating.Wins, rating.Losses, rating.Streak, toNullTime(rating.LastPlayed))
	if err != nil {
		return fmt.Errorf("failed to upsert rating for player %d: %w", rating.PlayerID, err)
	}
	return nil
}

func (r *RatingRepository) EnsureTeam(ctx context.Context, teamID int64, format domain.Format, seed float64) (*domain.TeamRating, error) {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO team_ratings (team_id, format, rating, games, wins, losses, streak)
		 VALUES (?, ?, ?, 0, 0, 0, 0)
		 ON CONFLICT (team_id, format) DO NOTHING`,
		teamID, string(format), seed)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure rating for team %d: %w", teamID, err)
	}
	return r.GetTeam(ctx, teamID, format)
}

func (r *RatingRepository) GetTeam(ctx context.Context, teamID int64, format domain.Format) (*domain.TeamRating, error) {
	rating := domain.TeamRating{TeamID: teamID, Format: format}
	var lastPlayed sql.NullTime
	err := r.db.QueryRowContext(ctx,
		`SELECT rating, games, wins, losses, streak, last_played
		 FROM team_ratings WHERE team_id = ? AND format = ?`,
		teamID, string(format)).
		Scan(&rating.Rating, &rating.Games, &rating.Wins, &rating.Losses, &rating.Streak, &lastPlayed)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRatingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get rating for team %d: %w", teamID, err)
	}
	if lastPlayed.Valid {
		rating.LastPlayed = &lastPlayed.Time
	}
	return &rating, nil
}

func (r *RatingRepository) UpsertTeam(ctx context.Context, rating *domain.TeamRating) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO team_ratings (team_id, format, rating, games, wins, losses, streak, last_played)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (team_id, format) DO UPDATE SET
		   rating = excluded.rating, games = excluded.games, wins = excluded.wins,
		   losses = excluded.losses, streak = excluded.streak, last_played = excluded.last_played`,
		rating.TeamID, string(rating.Format), rating.Rating,
		rating.Games, rating.Wins, rating.Losses, rating.Streak, toNullTime(rating.LastPlayed))
	if err != nil {
		return fmt.Errorf("failed to upsert rating for team %d: %w", rating.TeamID, err)
	}
	return nil
}

// ResetAll wipes every player and team aggregate across all formats. Only
// the replay engine calls this, inside its rebuild transaction.
func (r *RatingRepository) ResetAll(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM ratings`); err != nil {
		return fmt.Errorf("failed to reset player ratings: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, `DELETE FROM team_ratings`); err != nil {
		return fmt.Errorf("failed to reset team ratings: %w", err)
	}
	r.logger.Debug().Msg("rating aggregates reset")
	return nil
}

// ListPlayerLeaderboard returns player aggregates for the format, best
// rating first, with names joined in.
func (r *RatingRepository) ListPlayerLeaderboard(ctx context.Context, format domain.Format, limit int) ([]domain.LeaderboardEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT p.id, p.name, r.rating, r.games, r.wins, r.losses, r.streak, r.last_played
		 FROM ratings r JOIN players p ON p.id = r.player_id
		 WHERE r.format = ? ORDER BY r.rating DESC LIMIT ?`,
		string(format), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list player leaderboard: %w", err)
	}
	return scanLeaderboard(rows, "player")
}

func (r *RatingRepository) ListTeamLeaderboard(ctx context.Context, format domain.Format, limit int) ([]domain.LeaderboardEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT t.id, t.name, r.rating, r.games, r.wins, r.losses, r.streak, r.last_played
		 FROM team_ratings r JOIN teams t ON t.id = r.team_id
		 WHERE r.format = ? ORDER BY r.rating DESC LIMIT ?`,
		string(format), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list team leaderboard: %w", err)
	}
	return scanLeaderboard(rows, "team")
}

func scanLeaderboard(rows *sql.Rows, entityType string) ([]domain.LeaderboardEntry, error) {
	defer rows.Close()

	entries := []domain.LeaderboardEntry{}
	for rows.Next() {
		var e domain.LeaderboardEntry
		var lastPlayed sql.NullTime
		if err := rows.Scan(&e.EntityID, &e.EntityName, &e.Rating, &e.Games, &e.Wins, &e.Losses, &e.Streak, &lastPlayed); err != nil {
			return nil, fmt.Errorf("failed to scan leaderboard entry: %w", err)
		}
		e.EntityType = entityType
		e.Rank = len(entries) + 1
		if e.Games > 0 {
			e.WinRate = float64(e.Wins) / float64(e.Games) * 100
		}
		if lastPlayed.Valid {
			e.LastPlayed = &lastPlayed.Time
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func toNullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
