package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/FitchII-cod/billiard-tracker/internal/domain"

	"github.com/rs/zerolog"
)

var ErrTeamNotFound = errors.New("team not found")

type TeamRepository struct {
	db     DBTX
	logger zerolog.Logger
}

func NewTeamRepository(sqlDB *sql.DB, logger zerolog.Logger) *TeamRepository {
	return &TeamRepository{db: sqlDB, logger: logger}
}

func (r *TeamRepository) WithTx(tx *sql.Tx) *TeamRepository {
	return &TeamRepository{db: tx, logger: r.logger}
}

func (r *TeamRepository) GetByKey(ctx context.Context, key string) (*domain.Team, error) {
	var t domain.Team
	err := r.db.QueryRowContext(ctx,
		`SELECT id, key, name, created_at FROM teams WHERE key = ?`, key).
		Scan(&t.ID, &t.Key, &t.Name, &t.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTeamNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get team by key %q: %w", key, err)
	}
	return &t, nil
}

func (r *TeamRepository) GetByID(ctx context.Context, id int64) (*domain.Team, error) {
	var t domain.Team
	err := r.db.QueryRowContext(ctx,
		`SELECT id, key, name, created_at FROM teams WHERE id = ?`, id).
		Scan(&t.ID, &t.Key, &t.Name, &t.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTeamNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get team %d: %w", id, err)
	}
	return &t, nil
}

// Create inserts the team and its two memberships.
func (r *TeamRepository) Create(ctx context.Context, key, name string, memberIDs []int64) (*domain.Team, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO teams (key, name) VALUES (?, ?)`, key, name)
	if err != nil {
		return nil, fmt.Errorf("failed to insert team: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to read team id: %w", err)
	}

	for _, playerID := range memberIDs {
		if _, err := r.db.ExecContext(ctx,
			`INSERT INTO team_members (team_id, player_id) VALUES (?, ?)`, id, playerID); err != nil {
			return nil, fmt.Errorf("failed to insert team member %d: %w", playerID, err)
		}
	}

	r.logger.Info().Int64("team_id", id).Str("key", key).Str("name", name).Msg("team created")
	return r.GetByID(ctx, id)
}
