package game

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pompin/gameserver/pkg/game/types"
)

func TestEndConditionForVariant(t *testing.T) {
	timed := EndConditionForVariant(types.VariantWhack, 2)
	assert.False(t, timed.DecisiveScore(100, 0))
	assert.False(t, timed.DecisiveScore(0, 100))

	firstTo := EndConditionForVariant(types.VariantPong, 2)
	assert.False(t, firstTo.DecisiveScore(0, 0))
	assert.False(t, firstTo.DecisiveScore(1, 1))
	assert.True(t, firstTo.DecisiveScore(2, 0))
	assert.True(t, firstTo.DecisiveScore(1, 2))
}

func TestWinnerTag(t *testing.T) {
	tests := []struct {
		name         string
		strikerScore int
		targetScore  int
		want         string
	}{
		{name: "striker wins", strikerScore: 5, targetScore: 3, want: "striker"},
		{name: "target controller wins", strikerScore: 2, targetScore: 4, want: "target-controller"},
		{name: "tie", strikerScore: 3, targetScore: 3, want: "tie"},
		{name: "scoreless tie", strikerScore: 0, targetScore: 0, want: "tie"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, winnerTag(tt.strikerScore, tt.targetScore))
		})
	}
}
