package game

import "github.com/pompin/gameserver/pkg/game/types"

// EndCondition is the per-variant policy deciding whether the current score
// ends a session before its countdown expires.
type EndCondition interface {
	// DecisiveScore reports whether the score alone makes the outcome final.
	DecisiveScore(strikerScore, targetScore int) bool
}

// timedEndCondition never ends on score; only the countdown ends the whack
// variant.
type timedEndCondition struct{}

func (timedEndCondition) DecisiveScore(_, _ int) bool {
	return false
}

// firstToEndCondition ends the session the moment either side reaches the
// winning score (the pong variant).
type firstToEndCondition struct {
	winningScore int
}

func (c firstToEndCondition) DecisiveScore(strikerScore, targetScore int) bool {
	return strikerScore >= c.winningScore || targetScore >= c.winningScore
}

// EndConditionForVariant returns the policy a session of the given variant
// runs under.
func EndConditionForVariant(variant types.Variant, winningScore int) EndCondition {
	if variant == types.VariantPong {
		return firstToEndCondition{winningScore: winningScore}
	}
	return timedEndCondition{}
}

// winnerTag computes the session-ended winner label from the final scores.
func winnerTag(strikerScore, targetScore int) string {
	switch {
	case strikerScore > targetScore:
		return types.RoleStriker.String()
	case targetScore > strikerScore:
		return types.RoleTargetController.String()
	default:
		return "tie"
	}
}
