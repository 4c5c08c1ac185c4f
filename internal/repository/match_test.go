package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/FitchII-cod/billiard-tracker/internal/database"
	"github.com/FitchII-cod/billiard-tracker/internal/domain"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	// a second pool connection would see a different empty :memory: db
	db.SetMaxOpenConns(1)
	_, err = db.Exec("PRAGMA foreign_keys = ON")
	require.NoError(t, err)

	require.NoError(t, database.Migrate(db, zerolog.Nop()))
	return db
}

func TestMatchParticipantsScopedToFetchedMatches(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	log := zerolog.Nop()

	players := NewPlayerRepository(db, log)
	matches := NewMatchRepository(db, log)

	var ids []int64
	for _, name := range []string{"Alice", "Bob", "Carol", "Dave"} {
		p, err := players.Create(ctx, name, false)
		require.NoError(t, err)
		ids = append(ids, p.ID)
	}

	at := time.Date(2025, 5, 10, 19, 0, 0, 0, time.UTC)
	stored := []*domain.Match{
		{Format: domain.Format1v1, PlayedAt: at, WinnerSide: domain.SideA, Ranked: true,
			PlayersA: []int64{ids[0]}, PlayersB: []int64{ids[1]}},
		{Format: domain.Format1v1, PlayedAt: at.Add(time.Hour), WinnerSide: domain.SideB, Ranked: true,
			PlayersA: []int64{ids[2]}, PlayersB: []int64{ids[3]}},
		{Format: domain.Format2v2, PlayedAt: at.Add(2 * time.Hour), WinnerSide: domain.SideA, Ranked: true,
			PlayersA: []int64{ids[0], ids[1]}, PlayersB: []int64{ids[2], ids[3]}},
	}
	for _, m := range stored {
		require.NoError(t, matches.Insert(ctx, m))
	}

	// Single fetch gets exactly its own participants.
	got, err := matches.GetByID(ctx, stored[1].ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{ids[2]}, got.PlayersA)
	assert.Equal(t, []int64{ids[3]}, got.PlayersB)

	// A page that excludes some matches still attaches full participant
	// lists to the matches it does return.
	page, total, err := matches.ListHistory(ctx, HistoryFilter{Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, page, 1)
	assert.Equal(t, stored[2].ID, page[0].ID)
	assert.Equal(t, []int64{ids[0], ids[1]}, page[0].PlayersA)
	assert.Equal(t, []int64{ids[2], ids[3]}, page[0].PlayersB)

	all, err := matches.ListAllOrdered(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	for i, m := range all {
		assert.Equal(t, stored[i].PlayersA, m.PlayersA, "match %d side A", i)
		assert.Equal(t, stored[i].PlayersB, m.PlayersB, "match %d side B", i)
	}
}
