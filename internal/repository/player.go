package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/FitchII-cod/billiard-tracker/internal/domain"

	"github.com/rs/zerolog"
)

var (
	ErrPlayerNotFound = errors.New("player not found")
	ErrNameTaken      = errors.New("player name already taken")
)

type PlayerRepository struct {
	db     DBTX
	logger zerolog.Logger
}

func NewPlayerRepository(sqlDB *sql.DB, logger zerolog.Logger) *PlayerRepository {
	return &PlayerRepository{db: sqlDB, logger: logger}
}

// WithTx returns a copy of the repository whose queries run inside tx.
func (r *PlayerRepository) WithTx(tx *sql.Tx) *PlayerRepository {
	return &PlayerRepository{db: tx, logger: r.logger}
}

func (r *PlayerRepository) Create(ctx context.Context, name string, isGuest bool) (*domain.Player, error) {
	var exists int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM players WHERE name = ?`, name).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("failed to check player name: %w", err)
	}
	if exists > 0 {
		return nil, ErrNameTaken
	}

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO players (name, is_guest) VALUES (?, ?)`, name, isGuest)
	if err != nil {
		return nil, fmt.Errorf("failed to insert player: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to read player id: %w", err)
	}

	r.logger.Info().Int64("player_id", id).Str("name", name).Bool("is_guest", isGuest).Msg("player created")
	return r.GetByID(ctx, id)
}

func (r *PlayerRepository) GetByID(ctx context.Context, id int64) (*domain.Player, error) {
	var p domain.Player
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, is_guest, created_at FROM players WHERE id = ?`, id).
		Scan(&p.ID, &p.Name, &p.IsGuest, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPlayerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get player %d: %w", id, err)
	}
	return &p, nil
}

// GetByIDs returns the players for the given ids, ordered by id ascending.
// Missing ids are simply absent from the result.
func (r *PlayerRepository) GetByIDs(ctx context.Context, ids []int64) ([]domain.Player, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query := `SELECT id, name, is_guest, created_at FROM players WHERE id IN (?` +
		strings.Repeat(",?", len(ids)-1) + `) ORDER BY id`
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query players: %w", err)
	}
	defer rows.Close()

	var players []domain.Player
	for rows.Next() {
		var p domain.Player
		if err := rows.Scan(&p.ID, &p.Name, &p.IsGuest, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan player: %w", err)
		}
		players = append(players, p)
	}
	return players, rows.Err()
}

func (r *PlayerRepository) List(ctx context.Context, includeGuests bool) ([]domain.Player, error) {
	query := `SELECT id, name, is_guest, created_at FROM players`
	if !includeGuests {
		query += ` WHERE is_guest = 0`
	}
	query += ` ORDER BY name`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list players: %w", err)
	}
	defer rows.Close()

	players := []domain.Player{}
	for rows.Next() {
		var p domain.Player
		if err := rows.Scan(&p.ID, &p.Name, &p.IsGuest, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan player: %w", err)
		}
		players = append(players, p)
	}
	return players, rows.Err()
}
