package sampler

import "github.com/hailam/hyperplay/internal/rules"

// enumerateJointMoves returns every joint move reachable from state in
// which agentRole plays agentMove, i.e. the cross product of every other
// role's legal moves (spec §4.4.1 step 1). For more than two roles this
// is the literal per-role cross product; the "aggregate all non-agent
// roles into a single effective opponent move" reading from spec §9's
// open question is applied later, when the Likelihood Tree groups these
// full joint moves by their combined non-agent-role signature rather
// than by any individual role's move.
func enumerateJointMoves(eng rules.Engine, state rules.State, roleOrder []rules.Role, agentRole rules.Role, agentMove rules.Move) []rules.JointMove {
	others := make([]rules.Role, 0, len(roleOrder))
	moveSets := make([][]rules.Move, 0, len(roleOrder))
	for _, role := range roleOrder {
		if role == agentRole {
			continue
		}
		moves := eng.LegalMoves(state, role)
		if len(moves) == 0 {
			// A role with no legal move contributes nothing to the
			// cross product, which would otherwise collapse to zero
			// joint moves; treat it as a single implicit no-op choice
			// so the remaining roles' combinations still enumerate.
			moves = []rules.Move{nil}
		}
		others = append(others, role)
		moveSets = append(moveSets, moves)
	}

	var joints []rules.JointMove
	var recurse func(i int, acc rules.JointMove)
	recurse = func(i int, acc rules.JointMove) {
		if i == len(others) {
			full := make(rules.JointMove, len(acc)+1)
			for k, v := range acc {
				full[k] = v
			}
			full[agentRole] = agentMove
			joints = append(joints, full)
			return
		}
		for _, mv := range moveSets[i] {
			next := make(rules.JointMove, len(acc)+1)
			for k, v := range acc {
				next[k] = v
			}
			if mv != nil {
				next[others[i]] = mv
			}
			recurse(i+1, next)
		}
	}
	recurse(0, rules.JointMove{})
	return joints
}
