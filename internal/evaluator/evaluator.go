// Package evaluator implements the anytime, hypergame-weighted
// Monte-Carlo Move Evaluator (spec §4.6): for each legal candidate move,
// repeatedly sample a terminal outcome per hypergame in the population,
// weight it by that hypergame's posterior, and track a running mean
// until the play clock (minus a fixed end-of-turn buffer) runs out or a
// configured depth cap is reached.
package evaluator

import (
	"math"
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/hailam/hyperplay/internal/likelihood"
	"github.com/hailam/hyperplay/internal/model"
	"github.com/hailam/hyperplay/internal/population"
	"github.com/hailam/hyperplay/internal/rules"
)

// stopPollInterval mirrors the teacher's node-count polling idiom: check
// the stop flag / deadline only every N samples instead of on every
// inner iteration, to keep the hot loop cheap.
const stopPollInterval = 1 << 9

// Evaluator runs the anytime rollout search for one agent turn.
type Evaluator struct {
	eng       rules.Engine
	roleOrder []rules.Role
	agentRole rules.Role
	rnd       *rand.Rand

	// MaxNumProbes bounds the outer depth loop (spec §4.6 step 3).
	MaxNumProbes int
	// LikelihoodPowerFactor exponentiates a hypergame's posterior before
	// it weights that hypergame's contribution (spec §4.6 step 1c).
	LikelihoodPowerFactor float64
	// EndOfTurnBuffer is subtracted from the play-clock deadline so the
	// Agent Controller always has time left to record and return a move.
	EndOfTurnBuffer time.Duration
	// IncludeZeroPosterior resolves spec §9's open question: when false
	// (the default), a hypergame whose posterior is 0 contributes nothing
	// to a candidate's running mean and is skipped entirely rather than
	// diluting it with a guaranteed-zero sample.
	IncludeZeroPosterior bool

	samples  uint64
	depth    int
	stopFlag atomic.Bool
}

// New creates an Evaluator bound to eng, drawing rollout randomness from
// rnd (the same per-agent seeded source the Sampler uses, per Design
// Note §9).
func New(eng rules.Engine, roleOrder []rules.Role, agentRole rules.Role, rnd *rand.Rand) *Evaluator {
	return &Evaluator{
		eng:                   eng,
		roleOrder:             roleOrder,
		agentRole:             agentRole,
		rnd:                   rnd,
		MaxNumProbes:          1,
		LikelihoodPowerFactor: 1.0,
		EndOfTurnBuffer:       50 * time.Millisecond,
	}
}

// Stop signals Evaluate to return as soon as it next polls. Nothing in
// this module calls it; the Agent Controller relies on the deadline.
func (e *Evaluator) Stop() { e.stopFlag.Store(true) }

// Samples returns the number of (move, model, depth) triples visited
// during the last Evaluate call. The count includes triples skipped for
// a zero posterior and triples whose move was illegal in that model, so
// it is an upper bound on the number of rollouts run.
func (e *Evaluator) Samples() uint64 { return e.samples }

// Depths returns the number of outer probe-depth iterations completed
// during the last Evaluate call, for the output log's rollout_depth
// column (spec §6).
func (e *Evaluator) Depths() int { return e.depth }

// Result is one candidate move's running-mean contribution.
type Result struct {
	Move        rules.Move
	RunningMean float64
	Samples     int
}

// Evaluate implements spec §4.6. candidates is the agent's own set of
// legal moves at currentStep; models is the current hypergame
// population; tree supplies each hypergame's posterior via
// population.Posterior. Returns the candidate with the greatest running
// mean, or nil if candidates is empty.
func (e *Evaluator) Evaluate(models []*model.Model, tree *likelihood.Tree, currentStep int, candidates []rules.Move, deadline time.Time) (rules.Move, []Result) {
	e.samples = 0
	e.depth = 0
	e.stopFlag.Store(false)
	cutoff := deadline.Add(-e.EndOfTurnBuffer)

	if len(candidates) == 0 {
		return nil, nil
	}

	posteriors := make([]float64, len(models))
	for i, m := range models {
		posteriors[i] = population.Posterior(m, tree, models)
	}

	sums := make([]float64, len(candidates))
	counts := make([]int, len(candidates))

	for depth := 0; depth < e.MaxNumProbes || e.MaxNumProbes <= 0; depth++ {
		for ci, move := range candidates {
			for mi, m := range models {
				e.samples++
				if e.samples%stopPollInterval == 0 {
					if e.stopFlag.Load() || !time.Now().Before(cutoff) {
						e.depth = depth
						return e.bestOf(candidates, sums, counts)
					}
				}
				if posteriors[mi] <= 0 && !e.IncludeZeroPosterior {
					continue
				}
				legal := m.LegalMovesAt(currentStep)
				if legal == nil {
					legal = m.ComputeLegalMoves(e.eng, e.agentRole)
				}
				if !containsMove(legal, move) {
					counts[ci]++
					continue
				}
				goal := e.rollout(m, move)
				contribution := goal * math.Pow(posteriors[mi], e.LikelihoodPowerFactor)
				sums[ci] += contribution
				counts[ci]++
			}
		}
		e.depth = depth + 1
		if !time.Now().Before(cutoff) {
			break
		}
	}
	return e.bestOf(candidates, sums, counts)
}

func (e *Evaluator) bestOf(candidates []rules.Move, sums []float64, counts []int) (rules.Move, []Result) {
	results := make([]Result, len(candidates))
	bestIdx := -1
	bestMean := math.Inf(-1)
	for i, move := range candidates {
		mean := 0.0
		if counts[i] > 0 {
			mean = sums[i] / float64(counts[i])
		}
		results[i] = Result{Move: move, RunningMean: mean, Samples: counts[i]}
		if mean > bestMean {
			bestMean = mean
			bestIdx = i
		}
	}
	if bestIdx < 0 {
		return nil, results
	}
	return candidates[bestIdx], results
}

// rollout implements spec §4.6 step 1b: apply a joint move whose agent
// component is move and every other role's component is a uniformly
// random legal move, then continue with uniformly random joint moves
// until the game terminates, returning the agent's own terminal goal
// value.
func (e *Evaluator) rollout(m *model.Model, move rules.Move) float64 {
	state := e.eng.Successor(m.CurrentState(), e.randomJointFixingAgent(m.CurrentState(), move))
	for !e.eng.IsTerminal(state) {
		state = e.eng.Successor(state, e.randomJoint(state))
	}
	return e.eng.GoalValue(state, e.agentRole)
}

func (e *Evaluator) randomJointFixingAgent(state rules.State, move rules.Move) rules.JointMove {
	joint := make(rules.JointMove, len(e.roleOrder))
	for _, role := range e.roleOrder {
		if role == e.agentRole {
			joint[role] = move
			continue
		}
		moves := e.eng.LegalMoves(state, role)
		if len(moves) == 0 {
			continue
		}
		joint[role] = moves[e.rnd.Intn(len(moves))]
	}
	return joint
}

func (e *Evaluator) randomJoint(state rules.State) rules.JointMove {
	joint := make(rules.JointMove, len(e.roleOrder))
	for _, role := range e.roleOrder {
		moves := e.eng.LegalMoves(state, role)
		if len(moves) == 0 {
			continue
		}
		joint[role] = moves[e.rnd.Intn(len(moves))]
	}
	return joint
}

func containsMove(moves []rules.Move, target rules.Move) bool {
	if target == nil {
		return false
	}
	for _, m := range moves {
		if m.String() == target.String() {
			return true
		}
	}
	return false
}
