package rating

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParamsFromSettingsDefaults(t *testing.T) {
	p, err := ParamsFromSettings(nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultParams(), p)
}

func TestParamsFromSettingsOverrides(t *testing.T) {
	p, err := ParamsFromSettings(map[string]string{
		KeyKBase:    "32",
		KeyAlpha:    "0.25",
		KeyWinBonus: "0",
	})
	require.NoError(t, err)

	assert.Equal(t, 32.0, p.KBase)
	assert.Equal(t, 0.25, p.Alpha)
	assert.Equal(t, 0.0, p.WinBonus)
	// untouched keys keep their defaults
	assert.Equal(t, 0.5, p.Beta)
	assert.Equal(t, 400.0, p.Delta)
	assert.Equal(t, 1000.0, p.InitialRating)
}

func TestParamsFromSettingsIgnoresUnknownKeys(t *testing.T) {
	p, err := ParamsFromSettings(map[string]string{
		"admin_pin_hash": "not-a-number",
	})
	require.NoError(t, err)
	assert.Equal(t, DefaultParams(), p)
}

func TestParamsFromSettingsRejectsNonNumeric(t *testing.T) {
	_, err := ParamsFromSettings(map[string]string{KeyKBase: "fast"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "k_base")
}

func TestSeedFor(t *testing.T) {
	p := Params{InitialRating: 1000, Team2v2Seed: 1100}
	assert.Equal(t, 1000.0, p.SeedFor(false))
	assert.Equal(t, 1100.0, p.SeedFor(true))
}
