package rating

import (
	"testing"
	"time"

	"github.com/FitchII-cod/billiard-tracker/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpectedScoreSymmetry(t *testing.T) {
	engine := NewEngine(DefaultParams())

	tests := []struct {
		name     string
		ratingA  float64
		ratingB  float64
		expected float64 // expected score for A
	}{
		{"equal ratings", 1000, 1000, 0.5},
		{"400 point favorite", 1400, 1000, 1.0 / 1.1},
		{"400 point underdog", 1000, 1400, 0.1 / 1.1},
		{"extreme gap", 2400, 1000, 0.9996859},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ea := engine.ExpectedScore(tt.ratingA, tt.ratingB)
			eb := engine.ExpectedScore(tt.ratingB, tt.ratingA)

			assert.InDelta(t, tt.expected, ea, 1e-6)
			assert.InDelta(t, 1.0, ea+eb, 1e-12, "expected scores must sum to 1")
		})
	}
}

func TestMarginFactor(t *testing.T) {
	engine := NewEngine(DefaultParams())

	tests := []struct {
		balls    int
		expected float64
	}{
		{0, 1.0},
		{3, 1 + 0.5*(3.0/7.0)},
		{7, 1.5},
	}

	for _, tt := range tests {
		assert.InDelta(t, tt.expected, engine.MarginFactor(tt.balls), 1e-12)
	}
}

func TestEffectiveKAntiFarm(t *testing.T) {
	params := DefaultParams()
	engine := NewEngine(params)

	t.Run("underdog always gets full K", func(t *testing.T) {
		assert.Equal(t, params.KBase, engine.EffectiveK(1000, 1400, true))
		assert.Equal(t, params.KBase, engine.EffectiveK(1000, 1400, false))
	})

	t.Run("favorite winner is non-increasing in the gap", func(t *testing.T) {
		prev := params.KBase
		for gap := 0.0; gap <= 800; gap += 50 {
			k := engine.EffectiveK(1000+gap, 1000, true)
			assert.LessOrEqual(t, k, prev, "gap %.0f", gap)
			prev = k
		}
	})

	t.Run("reduction saturates at delta", func(t *testing.T) {
		floor := params.KBase * (1 - params.Beta)
		assert.InDelta(t, floor, engine.EffectiveK(1400, 1000, true), 1e-12)
		assert.InDelta(t, floor, engine.EffectiveK(2000, 1000, true), 1e-12)
	})

	t.Run("half the gap, half the reduction", func(t *testing.T) {
		expected := params.KBase * (1 - params.Beta*0.5)
		assert.InDelta(t, expected, engine.EffectiveK(1200, 1000, true), 1e-12)
	})

	t.Run("losing favorite keeps full K", func(t *testing.T) {
		// The reduction orients the rating difference by the is-winner
		// branch, so a favorite who loses is never dampened.
		assert.Equal(t, params.KBase, engine.EffectiveK(1400, 1000, false))
	})
}

func TestUpdatePairEqualRatings(t *testing.T) {
	engine := NewEngine(DefaultParams())
	playedAt := time.Date(2025, 6, 1, 18, 0, 0, 0, time.UTC)

	a := &domain.RatingAggregate{Rating: 1000}
	b := &domain.RatingAggregate{Rating: 1000}

	deltaA, deltaB := engine.UpdatePair(a, b, true, 3, playedAt)

	// E = 0.5 both sides, M = 1 + 0.5*(3/7), K = 24 with no favorite.
	margin := 1 + 0.5*(3.0/7.0)
	raw := 24 * margin * 0.5
	assert.InDelta(t, raw+1, deltaA, 1e-9, "winner delta includes the win bonus")
	assert.InDelta(t, -raw, deltaB, 1e-9)

	assert.InDelta(t, 1015.5714285, a.Rating, 1e-4)
	assert.InDelta(t, 984.4285714, b.Rating, 1e-4)

	assert.Equal(t, 1, a.Games)
	assert.Equal(t, 1, a.Wins)
	assert.Equal(t, 0, a.Losses)
	assert.Equal(t, 1, a.Streak)

	assert.Equal(t, 1, b.Games)
	assert.Equal(t, 0, b.Wins)
	assert.Equal(t, 1, b.Losses)
	assert.Equal(t, -1, b.Streak)

	require.NotNil(t, a.LastPlayed)
	require.NotNil(t, b.LastPlayed)
	assert.True(t, a.LastPlayed.Equal(playedAt))
	assert.True(t, b.LastPlayed.Equal(playedAt))
}

func TestUpdatePairWinBonusBreaksZeroSum(t *testing.T) {
	engine := NewEngine(DefaultParams())

	a := &domain.RatingAggregate{Rating: 1000}
	b := &domain.RatingAggregate{Rating: 1000}

	deltaA, deltaB := engine.UpdatePair(a, b, true, 0, time.Now())
	assert.InDelta(t, engine.Params().WinBonus, deltaA+deltaB, 1e-9,
		"the flat bonus is the only deviation from zero-sum")
}

func TestUpdatePairWinnerSideB(t *testing.T) {
	engine := NewEngine(DefaultParams())

	a := &domain.RatingAggregate{Rating: 1000}
	b := &domain.RatingAggregate{Rating: 1000}

	deltaA, deltaB := engine.UpdatePair(a, b, false, 7, time.Now())

	assert.Negative(t, deltaA)
	assert.Positive(t, deltaB)
	assert.Equal(t, -1, a.Streak)
	assert.Equal(t, 1, b.Streak)
}

func TestStreakTransitions(t *testing.T) {
	tests := []struct {
		name     string
		streak   int
		won      bool
		expected int
	}{
		{"losing streak flips to 1 on a win", -2, true, 1},
		{"winning streak flips to -1 on a loss", 3, false, -1},
		{"winning streak extends", 3, true, 4},
		{"losing streak extends", -2, false, -3},
		{"fresh aggregate win", 0, true, 1},
		{"fresh aggregate loss", 0, false, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := NewEngine(DefaultParams())

			side := &domain.RatingAggregate{Rating: 1000, Streak: tt.streak}
			other := &domain.RatingAggregate{Rating: 1000}

			engine.UpdatePair(side, other, tt.won, 0, time.Now())
			assert.Equal(t, tt.expected, side.Streak)
		})
	}
}

func TestUpdatePairFavoriteGainCapped(t *testing.T) {
	params := DefaultParams()
	engine := NewEngine(params)

	// A heavy favorite winning gains less than an even winner would.
	fav := &domain.RatingAggregate{Rating: 1800}
	dog := &domain.RatingAggregate{Rating: 1000}
	deltaFav, _ := engine.UpdatePair(fav, dog, true, 0, time.Now())

	even1 := &domain.RatingAggregate{Rating: 1000}
	even2 := &domain.RatingAggregate{Rating: 1000}
	deltaEven, _ := engine.UpdatePair(even1, even2, true, 0, time.Now())

	assert.Less(t, deltaFav, deltaEven)
	assert.Greater(t, deltaFav, 0.0, "the win bonus guarantees a minimum gain")
}
