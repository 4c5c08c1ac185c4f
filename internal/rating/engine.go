// Package rating implements the ELO-style update rule for billiard
// matches: logistic expected score, a margin factor scaled by balls
// remaining, an anti-farm reduction of the favorite's K, and a flat win
// bonus that intentionally breaks zero-sum.
package rating

import (
	"math"
	"time"

	"github.com/FitchII-cod/billiard-tracker/internal/domain"
)

// MaxBallsRemaining is the largest meaningful margin in 8-ball: the
// winner can leave at most seven of the loser's balls on the table.
const MaxBallsRemaining = 7

// Engine applies the rating update rule. It holds no state beyond the
// parameter snapshot it was constructed with, and is agnostic to whether
// the two aggregates it updates belong to players or teams.
type Engine struct {
	params Params
}

func NewEngine(params Params) *Engine {
	return &Engine{params: params}
}

func (e *Engine) Params() Params {
	return e.params
}

// ExpectedScore is the standard logistic ELO curve, 400 points per
// decade of odds.
func (e *Engine) ExpectedScore(ratingA, ratingB float64) float64 {
	return 1 / (1 + math.Pow(10, (ratingB-ratingA)/400))
}

// MarginFactor amplifies K for decisive wins: more balls left for the
// winner means a bigger margin.
func (e *Engine) MarginFactor(ballsRemaining int) float64 {
	return 1 + e.params.Alpha*(float64(ballsRemaining)/MaxBallsRemaining)
}

// EffectiveK dampens the K-factor for a favorite. The rating difference
// is oriented winner-minus-loser from this side's own perspective, so
// the reduction only ever applies to a favorite in its winning branch.
// This asymmetry (dampen gains, never dampen losses) is intentional.
func (e *Engine) EffectiveK(own, opponent float64, isWinner bool) float64 {
	diff := opponent - own
	if isWinner {
		diff = own - opponent
	}
	if diff <= 0 {
		return e.params.KBase
	}
	reduction := math.Min(diff/e.params.Delta, 1)
	return e.params.KBase * (1 - e.params.Beta*reduction)
}

// UpdatePair applies one match outcome to both aggregates in place and
// returns the two rating deltas (win bonus included). Both aggregates
// must already exist, seeded by the caller. ballsRemaining is expected
// to be clamped to [0, MaxBallsRemaining] before it reaches the engine.
func (e *Engine) UpdatePair(a, b *domain.RatingAggregate, winnerIsA bool, ballsRemaining int, playedAt time.Time) (deltaA, deltaB float64) {
	oldA, oldB := a.Rating, b.Rating

	expectedA := e.ExpectedScore(oldA, oldB)
	expectedB := 1 - expectedA

	scoreA, scoreB := 0.0, 1.0
	if winnerIsA {
		scoreA, scoreB = 1.0, 0.0
	}

	margin := e.MarginFactor(ballsRemaining)
	kA := e.EffectiveK(oldA, oldB, winnerIsA)
	kB := e.EffectiveK(oldB, oldA, !winnerIsA)

	deltaA = kA * margin * (scoreA - expectedA)
	deltaB = kB * margin * (scoreB - expectedB)

	if winnerIsA {
		deltaA += e.params.WinBonus
	} else {
		deltaB += e.params.WinBonus
	}

	a.Rating = oldA + deltaA
	b.Rating = oldB + deltaB

	a.Games++
	b.Games++
	if winnerIsA {
		a.Wins++
		b.Losses++
		a.Streak = nextWinStreak(a.Streak)
		b.Streak = nextLossStreak(b.Streak)
	} else {
		a.Losses++
		b.Wins++
		a.Streak = nextLossStreak(a.Streak)
		b.Streak = nextWinStreak(b.Streak)
	}

	tA, tB := playedAt, playedAt
	a.LastPlayed = &tA
	b.LastPlayed = &tB

	return deltaA, deltaB
}

// A win on a non-negative streak extends it; on a losing streak it
// resets to 1 (the magnitude does not carry across the sign flip).
func nextWinStreak(streak int) int {
	if streak < 0 {
		return 1
	}
	return streak + 1
}

func nextLossStreak(streak int) int {
	if streak > 0 {
		return -1
	}
	return streak - 1
}
