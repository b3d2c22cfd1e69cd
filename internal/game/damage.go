package game

import "math"

type Outcome string

const (
	OutcomeHit     Outcome = "hit"
	OutcomeCounter Outcome = "countered"
	OutcomeDodge   Outcome = "dodged"
)

const (
	hitThreshold     = 0.2
	counterThreshold = -0.2
	hitScale         = 15
	counterScale     = 10
)

// ExchangeResult is one turn's resolution: the outcome category and the
// signed health deltas to apply to each role.
type ExchangeResult struct {
	Outcome       Outcome
	Multiplier    float64
	AttackerDelta int
	DefenderDelta int
}

// ResolveExchange scores one attack/defense exchange. The multiplier is the
// defender's slowdown normalized by the attacker's own typing time; a zero or
// absent attacker time can never land a hit (the multiplier collapses to 0).
// Negative elapsed deltas are valid inputs, clock skew is tolerated.
func ResolveExchange(attackerElapsed, defenderElapsed float64) ExchangeResult {
	var multiplier float64
	if attackerElapsed != 0 {
		multiplier = (defenderElapsed - attackerElapsed) / attackerElapsed
	}

	res := ExchangeResult{Outcome: OutcomeDodge, Multiplier: multiplier}
	switch {
	case multiplier > hitThreshold:
		res.Outcome = OutcomeHit
		res.DefenderDelta = -int(math.Floor(hitScale * multiplier))
	case multiplier < counterThreshold:
		res.Outcome = OutcomeCounter
		// multiplier is negative here, so this is a loss for the attacker.
		res.AttackerDelta = int(math.Floor(counterScale * multiplier))
	}
	return res
}
