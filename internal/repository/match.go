package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/FitchII-cod/billiard-tracker/internal/domain"

	"github.com/rs/zerolog"
)

var ErrMatchNotFound = errors.New("match not found")

type MatchRepository struct {
	db     DBTX
	logger zerolog.Logger
}

func NewMatchRepository(sqlDB *sql.DB, logger zerolog.Logger) *MatchRepository {
	return &MatchRepository{db: sqlDB, logger: logger}
}

func (r *MatchRepository) WithTx(tx *sql.Tx) *MatchRepository {
	return &MatchRepository{db: tx, logger: r.logger}
}

// HistoryFilter narrows ListHistory. Zero values mean no filtering.
type HistoryFilter struct {
	Format   domain.Format
	PlayerID int64
	TeamID   int64
	Limit    int
	Offset   int
}

func (r *MatchRepository) Insert(ctx context.Context, m *domain.Match) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO matches (format, played_at, balls_remaining, winner_side, foul_black, ranked, team_id_a, team_id_b)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		string(m.Format), m.PlayedAt, m.BallsRemaining, string(m.WinnerSide),
		m.FoulBlack, m.Ranked, m.TeamIDA, m.TeamIDB)
	if err != nil {
		return fmt.Errorf("failed to insert match: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read match id: %w", err)
	}
	m.ID = id

	for _, playerID := range m.PlayersA {
		if err := r.addParticipant(ctx, id, playerID, domain.SideA); err != nil {
			return err
		}
	}
	for _, playerID := range m.PlayersB {
		if err := r.addParticipant(ctx, id, playerID, domain.SideB); err != nil {
			return err
		}
	}
	return nil
}

func (r *MatchRepository) addParticipant(ctx context.Context, matchID, playerID int64, side domain.Side) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO match_players (match_id, player_id, side) VALUES (?, ?, ?)`,
		matchID, playerID, string(side))
	if err != nil {
		return fmt.Errorf("failed to insert match participant %d: %w", playerID, err)
	}
	return nil
}

func (r *MatchRepository) GetByID(ctx context.Context, id int64) (*domain.Match, error) {
	m, err := r.scanOne(r.db.QueryRowContext(ctx,
		`SELECT id, format, played_at, balls_remaining, winner_side, foul_black, ranked,
		        team_id_a, team_id_b, created_at, updated_at
		 FROM matches WHERE id = ?`, id))
	if err != nil {
		return nil, err
	}
	if err := r.attachParticipants(ctx, []*domain.Match{m}); err != nil {
		return nil, err
	}
	return m, nil
}

// ListAllOrdered returns the full match history, participants attached,
// in ascending (played_at, id) order. This is the replay order.
func (r *MatchRepository) ListAllOrdered(ctx context.Context) ([]*domain.Match, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, format, played_at, balls_remaining, winner_side, foul_black, ranked,
		        team_id_a, team_id_b, created_at, updated_at
		 FROM matches ORDER BY played_at ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list matches: %w", err)
	}
	matches, err := r.scanAll(rows)
	if err != nil {
		return nil, err
	}
	if err := r.attachParticipants(ctx, matches); err != nil {
		return nil, err
	}
	return matches, nil
}

// ListHistory returns a page of matches, newest first, plus the total
// count matching the filter.
func (r *MatchRepository) ListHistory(ctx context.Context, filter HistoryFilter) ([]*domain.Match, int, error) {
	where := ` WHERE 1=1`
	args := []any{}
	if filter.Format != "" {
		where += ` AND m.format = ?`
		args = append(args, string(filter.Format))
	}
	if filter.PlayerID != 0 {
		where += ` AND m.id IN (SELECT match_id FROM match_players WHERE player_id = ?)`
		args = append(args, filter.PlayerID)
	}
	if filter.TeamID != 0 {
		where += ` AND (m.team_id_a = ? OR m.team_id_b = ?)`
		args = append(args, filter.TeamID, filter.TeamID)
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM matches m`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count matches: %w", err)
	}

	query := `SELECT m.id, m.format, m.played_at, m.balls_remaining, m.winner_side, m.foul_black, m.ranked,
	                 m.team_id_a, m.team_id_b, m.created_at, m.updated_at
	          FROM matches m` + where + ` ORDER BY m.played_at DESC, m.id DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, filter.Limit, filter.Offset)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list match history: %w", err)
	}
	matches, err := r.scanAll(rows)
	if err != nil {
		return nil, 0, err
	}
	if err := r.attachParticipants(ctx, matches); err != nil {
		return nil, 0, err
	}
	return matches, total, nil
}

// ListByFormat returns every match of the format, participants attached,
// newest first. Head-to-head narrows the set in memory because side
// membership is unordered.
func (r *MatchRepository) ListByFormat(ctx context.Context, format domain.Format) ([]*domain.Match, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, format, played_at, balls_remaining, winner_side, foul_black, ranked,
		        team_id_a, team_id_b, created_at, updated_at
		 FROM matches WHERE format = ? ORDER BY played_at DESC, id DESC`, string(format))
	if err != nil {
		return nil, fmt.Errorf("failed to list matches by format: %w", err)
	}
	matches, err := r.scanAll(rows)
	if err != nil {
		return nil, err
	}
	if err := r.attachParticipants(ctx, matches); err != nil {
		return nil, err
	}
	return matches, nil
}

// Update rewrites the mutable columns of a match. Participants are fixed
// at creation; edits change outcome fields only.
func (r *MatchRepository) Update(ctx context.Context, m *domain.Match) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE matches
		 SET played_at = ?, balls_remaining = ?, winner_side = ?, foul_black = ?, ranked = ?, updated_at = ?
		 WHERE id = ?`,
		m.PlayedAt, m.BallsRemaining, string(m.WinnerSide), m.FoulBlack, m.Ranked, time.Now().UTC(), m.ID)
	if err != nil {
		return fmt.Errorf("failed to update match %d: %w", m.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		return ErrMatchNotFound
	}
	return nil
}

func (r *MatchRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM matches WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete match %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		return ErrMatchNotFound
	}
	r.logger.Info().Int64("match_id", id).Msg("match deleted")
	return nil
}

func (r *MatchRepository) scanOne(row *sql.Row) (*domain.Match, error) {
	var m domain.Match
	var teamA, teamB sql.NullInt64
	err := row.Scan(&m.ID, &m.Format, &m.PlayedAt, &m.BallsRemaining, &m.WinnerSide,
		&m.FoulBlack, &m.Ranked, &teamA, &teamB, &m.CreatedAt, &m.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrMatchNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan match: %w", err)
	}
	if teamA.Valid {
		m.TeamIDA = &teamA.Int64
	}
	if teamB.Valid {
		m.TeamIDB = &teamB.Int64
	}
	return &m, nil
}

func (r *MatchRepository) scanAll(rows *sql.Rows) ([]*domain.Match, error) {
	defer rows.Close()

	var matches []*domain.Match
	for rows.Next() {
		var m domain.Match
		var teamA, teamB sql.NullInt64
		err := rows.Scan(&m.ID, &m.Format, &m.PlayedAt, &m.BallsRemaining, &m.WinnerSide,
			&m.FoulBlack, &m.Ranked, &teamA, &teamB, &m.CreatedAt, &m.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan match: %w", err)
		}
		if teamA.Valid {
			m.TeamIDA = &teamA.Int64
		}
		if teamB.Valid {
			m.TeamIDB = &teamB.Int64
		}
		matches = append(matches, &m)
	}
	return matches, rows.Err()
}

func (r *MatchRepository) attachParticipants(ctx context.Context, matches []*domain.Match) error {
	if len(matches) == 0 {
		return nil
	}

	byID := make(map[int64]*domain.Match, len(matches))
	args := make([]any, 0, len(matches))
	for _, m := range matches {
		byID[m.ID] = m
		args = append(args, m.ID)
	}

	placeholders := "?" + strings.Repeat(",?", len(args)-1)
	rows, err := r.db.QueryContext(ctx,
		`SELECT match_id, player_id, side FROM match_players
		 WHERE match_id IN (`+placeholders+`) ORDER BY match_id, player_id`, args...)
	if err != nil {
		return fmt.Errorf("failed to query match participants: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var matchID, playerID int64
		var side string
		if err := rows.Scan(&matchID, &playerID, &side); err != nil {
			return fmt.Errorf("failed to scan match participant: %w", err)
		}
		m, ok := byID[matchID]
		if !ok {
			continue
		}
		if domain.Side(side) == domain.SideA {
			m.PlayersA = append(m.PlayersA, playerID)
		} else {
			m.PlayersB = append(m.PlayersB, playerID)
		}
	}
	return rows.Err()
}
