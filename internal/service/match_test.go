package service

import (
	"context"
	"testing"
	"time"

	"github.com/FitchII-cod/billiard-tracker/internal/domain"
	"github.com/FitchII-cod/billiard-tracker/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLeaderboardByFormat(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	ids := []int64{
		env.addPlayer(t, "Alice"),
		env.addPlayer(t, "Bob"),
		env.addPlayer(t, "Carol"),
		env.addPlayer(t, "Dave"),
	}
	playHistory(t, env, ids)

	board, err := env.stats.Leaderboard(ctx, "1v1", 10)
	require.NoError(t, err)
	require.NotEmpty(t, board)
	for i := 1; i < len(board); i++ {
		assert.GreaterOrEqual(t, board[i-1].Rating, board[i].Rating, "board is sorted by rating desc")
	}

	global, err := env.stats.Leaderboard(ctx, "global", 10)
	require.NoError(t, err)
	assert.Equal(t, board, global, "global falls back to the 1v1 board")

	teams, err := env.stats.Leaderboard(ctx, "2v2", 10)
	require.NoError(t, err)
	assert.Len(t, teams, 2)

	_, err = env.stats.Leaderboard(ctx, "3v3", 10)
	assert.Error(t, err, "unrated formats have no leaderboard")
}

func TestHistoryPagination(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	ids := []int64{
		env.addPlayer(t, "Alice"),
		env.addPlayer(t, "Bob"),
		env.addPlayer(t, "Carol"),
		env.addPlayer(t, "Dave"),
	}
	playHistory(t, env, ids)

	page, err := env.stats.History(ctx, repository.HistoryFilter{Limit: 3})
	require.NoError(t, err)
	assert.Equal(t, 7, page.Total)
	require.Len(t, page.Matches, 3)
	for i := 1; i < len(page.Matches); i++ {
		a, b := page.Matches[i-1], page.Matches[i]
		assert.False(t, a.PlayedAt.Before(b.PlayedAt), "history is newest first")
	}

	only1v1, err := env.stats.History(ctx, repository.HistoryFilter{Format: domain.Format1v1, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 5, only1v1.Total)

	carol, err := env.stats.History(ctx, repository.HistoryFilter{PlayerID: ids[2], Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 4, carol.Total)
}

func TestHeadToHeadIgnoresSideAssignment(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	alice := env.addPlayer(t, "Alice")
	bob := env.addPlayer(t, "Bob")
	carol := env.addPlayer(t, "Carol")

	at := baseTime()
	env.play(t, domain.Format1v1, at, domain.SideA, 3, []int64{alice}, []int64{bob})
	env.play(t, domain.Format1v1, at.Add(time.Hour), domain.SideA, 5, []int64{bob}, []int64{alice})
	env.play(t, domain.Format1v1, at.Add(2*time.Hour), domain.SideB, 0, []int64{alice}, []int64{bob})
	// different pairing, must not count
	env.play(t, domain.Format1v1, at.Add(3*time.Hour), domain.SideA, 2, []int64{alice}, []int64{carol})

	stats, err := env.stats.HeadToHead(ctx, domain.Format1v1, []int64{alice}, []int64{bob})
	require.NoError(t, err)

	assert.Equal(t, 3, stats.TotalGames)
	assert.Equal(t, 1, stats.SideAWins, "alice won only the first match")
	assert.Equal(t, 2, stats.SideBWins)
	assert.Equal(t, []string{"L", "L", "W"}, stats.Last5Results, "newest first, from alice's side")
	assert.InDelta(t, 8.0/3.0, stats.AvgBallsRemaining, 1e-9)
	require.NotNil(t, stats.LastMatchDate)
	assert.True(t, stats.LastMatchDate.Equal(at.Add(2*time.Hour)))
}

func TestHeadToHeadNoMatches(t *testing.T) {
	env := newTestEnv(t)

	alice := env.addPlayer(t, "Alice")
	bob := env.addPlayer(t, "Bob")

	stats, err := env.stats.HeadToHead(context.Background(), domain.Format1v1, []int64{alice}, []int64{bob})
	require.NoError(t, err)
	assert.Equal(t, 0, stats.TotalGames)
	assert.Empty(t, stats.Last5Results)
	assert.Nil(t, stats.LastMatchDate)
}
