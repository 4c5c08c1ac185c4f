package service

import (
	"context"
	"testing"

	"github.com/FitchII-cod/billiard-tracker/internal/domain"
	"github.com/FitchII-cod/billiard-tracker/internal/repository"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPlayerService(env *testEnv) *PlayerService {
	return NewPlayerService(env.players, env.ratings, env.matches, zerolog.Nop())
}

func TestPlayerCreate(t *testing.T) {
	env := newTestEnv(t)
	svc := newPlayerService(env)
	ctx := context.Background()

	p, err := svc.Create(ctx, "  Alice  ", false)
	require.NoError(t, err)
	assert.Equal(t, "Alice", p.Name, "names are trimmed")

	_, err = svc.Create(ctx, "   ", false)
	assert.ErrorIs(t, err, ErrInvalidPlayer)

	_, err = svc.Create(ctx, "Alice", false)
	assert.ErrorIs(t, err, repository.ErrNameTaken)

	guest, err := svc.Create(ctx, "Walk-in", true)
	require.NoError(t, err)
	assert.True(t, guest.IsGuest)
}

func TestPlayerSummary(t *testing.T) {
	env := newTestEnv(t)
	svc := newPlayerService(env)
	ctx := context.Background()

	alice := env.addPlayer(t, "Alice")
	bob := env.addPlayer(t, "Bob")

	fresh, err := svc.Summary(ctx, alice)
	require.NoError(t, err)
	assert.Nil(t, fresh.Rating, "no ranked match yet")
	assert.Empty(t, fresh.RecentMatches)

	env.play(t, domain.Format1v1, baseTime(), domain.SideA, 4, []int64{alice}, []int64{bob})

	summary, err := svc.Summary(ctx, alice)
	require.NoError(t, err)
	require.NotNil(t, summary.Rating)
	assert.Equal(t, 1, summary.Rating.Games)
	assert.Len(t, summary.RecentMatches, 1)

	_, err = svc.Summary(ctx, 9999)
	assert.ErrorIs(t, err, repository.ErrPlayerNotFound)
}
