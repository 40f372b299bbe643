package sampler

import (
	"math/rand"

	"github.com/hailam/hyperplay/internal/rules"
)

// opponentRolloutValue estimates how much the non-agent roles collectively
// "prefer" joint by averaging numProbes random playouts that start by
// applying joint and then continue with uniformly random joint moves for
// every remaining role until the game terminates. The resulting value is
// the sum of terminal goal values across every non-agent role — the
// conservative "aggregate opponents into one effective opponent" reading
// spec §9 calls for when there are more than two roles (spec §4.4.1 step
// 3).
func opponentRolloutValue(eng rules.Engine, state rules.State, joint rules.JointMove, roleOrder []rules.Role, agentRole rules.Role, rnd *rand.Rand, numProbes int) float64 {
	if numProbes <= 0 {
		numProbes = 1
	}
	total := 0.0
	for i := 0; i < numProbes; i++ {
		total += singleRollout(eng, state, joint, roleOrder, agentRole, rnd)
	}
	return total / float64(numProbes)
}

func singleRollout(eng rules.Engine, state rules.State, joint rules.JointMove, roleOrder []rules.Role, agentRole rules.Role, rnd *rand.Rand) float64 {
	cur := eng.Successor(state, joint)
	for !eng.IsTerminal(cur) {
		randomJoint := make(rules.JointMove, len(roleOrder))
		for _, role := range roleOrder {
			moves := eng.LegalMoves(cur, role)
			if len(moves) == 0 {
				continue
			}
			randomJoint[role] = moves[rnd.Intn(len(moves))]
		}
		cur = eng.Successor(cur, randomJoint)
	}
	sum := 0.0
	for _, role := range roleOrder {
		if role == agentRole {
			continue
		}
		sum += eng.GoalValue(cur, role)
	}
	return sum
}

// weightedSelect performs weighted random selection over candidates
// using weight: accumulate weights and draw a uniform float against the
// running total, the accumulate/draw shape of a Polyglot opening-book
// probe (without its sort: candidates keep their given order), applied
// here to likelihood values instead of book weights. Returns false only
// when candidates is empty.
func weightedSelect(rnd *rand.Rand, candidates []rules.JointMove, weight func(rules.JointMove) float64) (rules.JointMove, bool) {
	if len(candidates) == 0 {
		return nil, false
	}
	total := 0.0
	weights := make([]float64, len(candidates))
	for i, c := range candidates {
		w := weight(c)
		if w < 0 {
			w = 0
		}
		weights[i] = w
		total += w
	}
	if total <= 0 {
		// Degenerate fallback: uniform draw, matching book.go's
		// "all weights are 0, just pick" behaviour.
		return candidates[rnd.Intn(len(candidates))], true
	}
	draw := rnd.Float64() * total
	cumulative := 0.0
	for i, w := range weights {
		cumulative += w
		if draw < cumulative {
			return candidates[i], true
		}
	}
	return candidates[len(candidates)-1], true
}
