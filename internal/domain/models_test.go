package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMatchKeyCompare(t *testing.T) {
	at := time.Date(2025, 5, 10, 19, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		a, b MatchKey
		want int
	}{
		{"earlier timestamp first", MatchKey{at, 5}, MatchKey{at.Add(time.Second), 1}, -1},
		{"later timestamp last", MatchKey{at.Add(time.Second), 1}, MatchKey{at, 5}, 1},
		{"id breaks timestamp tie", MatchKey{at, 1}, MatchKey{at, 2}, -1},
		{"id tie-break reversed", MatchKey{at, 2}, MatchKey{at, 1}, 1},
		{"equal", MatchKey{at, 3}, MatchKey{at, 3}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.a.Compare(tt.b))
		})
	}
}

func TestMatchKey(t *testing.T) {
	at := time.Date(2025, 5, 10, 19, 0, 0, 0, time.UTC)
	m := &Match{ID: 42, PlayedAt: at}
	assert.Equal(t, MatchKey{PlayedAt: at, ID: 42}, m.Key())
}

func TestFormatSideSizes(t *testing.T) {
	tests := []struct {
		format Format
		a, b   int
		ok     bool
		rated  bool
	}{
		{Format1v1, 1, 1, true, true},
		{Format2v2, 2, 2, true, true},
		{Format3v3, 3, 3, true, false},
		{Format1v2, 1, 2, true, false},
		{Format("5v5"), 0, 0, false, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.format), func(t *testing.T) {
			a, b, ok := tt.format.SideSizes()
			assert.Equal(t, tt.a, a)
			assert.Equal(t, tt.b, b)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.rated, tt.format.Rated())
		})
	}
}
