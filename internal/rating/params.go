package rating

import (
	"fmt"
	"strconv"
)

// Setting keys recognized by the engine. Values live in the settings
// table as strings and are parsed once per engine construction.
const (
	KeyKBase         = "k_base"
	KeyAlpha         = "alpha"
	KeyBeta          = "beta"
	KeyDelta         = "delta"
	KeyInitialRating = "initial_rating"
	KeyTeam2v2Seed   = "team_2v2_seed"
	KeyWinBonus      = "win_bonus"
)

// Params is one immutable snapshot of the rating knobs. An engine is
// constructed from exactly one snapshot; no knob changes mid-replay.
type Params struct {
	KBase         float64 // max points exchanged before margin/anti-farm scaling
	Alpha         float64 // margin-of-victory weight
	Beta          float64 // anti-farm reduction weight
	Delta         float64 // rating gap at which anti-farm reduction saturates
	InitialRating float64 // seed for new player aggregates
	Team2v2Seed   float64 // seed for new team aggregates
	WinBonus      float64 // flat bonus added to the winner's delta
}

func DefaultParams() Params {
	return Params{
		KBase:         24,
		Alpha:         0.5,
		Beta:          0.5,
		Delta:         400,
		InitialRating: 1000,
		Team2v2Seed:   1000,
		WinBonus:      1,
	}
}

// DefaultSettings returns the string form of the defaults, used to seed
// the settings table on first startup.
func DefaultSettings() map[string]string {
	return map[string]string{
		KeyKBase:         "24",
		KeyAlpha:         "0.5",
		KeyBeta:          "0.5",
		KeyDelta:         "400",
		KeyInitialRating: "1000",
		KeyTeam2v2Seed:   "1000",
		KeyWinBonus:      "1",
	}
}

// ParamsFromSettings builds a snapshot from raw settings values, falling
// back to the defaults for absent keys. A present but non-numeric value
// is a configuration error and fails the whole load.
func ParamsFromSettings(values map[string]string) (Params, error) {
	p := DefaultParams()
	fields := map[string]*float64{
		KeyKBase:         &p.KBase,
		KeyAlpha:         &p.Alpha,
		KeyBeta:          &p.Beta,
		KeyDelta:         &p.Delta,
		KeyInitialRating: &p.InitialRating,
		KeyTeam2v2Seed:   &p.Team2v2Seed,
		KeyWinBonus:      &p.WinBonus,
	}
	for key, dst := range fields {
		raw, ok := values[key]
		if !ok {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return Params{}, fmt.Errorf("setting %s: invalid numeric value %q: %w", key, raw, err)
		}
		*dst = v
	}
	return p, nil
}

// SeedFor returns the initial rating for the given entity kind.
func (p Params) SeedFor(team bool) float64 {
	if team {
		return p.Team2v2Seed
	}
	return p.InitialRating
}
