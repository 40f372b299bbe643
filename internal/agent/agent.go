// Package agent implements the Agent Controller (spec §4.7): the
// per-match façade that owns a hypergame population, a Likelihood Tree,
// a Sampler and an Evaluator, and drives them through one turn per
// Controller callback.
package agent

import (
	"math/rand"
	"time"

	"github.com/hailam/hyperplay/internal/config"
	"github.com/hailam/hyperplay/internal/evaluator"
	"github.com/hailam/hyperplay/internal/likelihood"
	"github.com/hailam/hyperplay/internal/model"
	"github.com/hailam/hyperplay/internal/population"
	"github.com/hailam/hyperplay/internal/rules"
	"github.com/hailam/hyperplay/internal/sampler"
)

// Controller is the seam the agent is driven through (spec §6). A
// transport layer — a line protocol, an RPC handler, a test harness —
// implements nothing; it calls these methods on an *Agent.
type Controller interface {
	// GameStart supplies the game, the agent's role, and the play/start
	// clocks for the match about to begin.
	GameStart(eng rules.Engine, role rules.Role, playClock, startClock time.Duration)
	// GamePlay returns the chosen move within the play clock.
	GamePlay(percept rules.Percept, priorMove rules.Move) rules.Move
	// GameStop is the final, optional notification.
	GameStop(percept rules.Percept, priorMove rules.Move)
}

// hyperState is the per-hypergame lifecycle state (spec §4.7.1).
type hyperState int

const (
	stateAlive hyperState = iota
	stateRetired
	stateRootBlocked
)

// Agent implements Controller. One Agent is used for exactly one match.
type Agent struct {
	cfg config.Config
	eng rules.Engine
	log Logger

	role      rules.Role
	roleOrder []rules.Role
	playClock time.Duration

	tree    *likelihood.Tree
	sampler *sampler.Sampler
	eval    *evaluator.Evaluator
	rnd     *rand.Rand

	population []*model.Model
	states     map[*model.Model]hyperState

	step                  int
	actionTracker         []rules.Move
	expectedActionTracker []rules.Move
	perceptTracker        []rules.Percept
	blacklist             map[int]rules.Move
	whitelist             map[int]rules.Move
	lastKnownLegal        []rules.Move
	timedOut              bool
	lastMoveWasIllegal    bool
	updateElapsed         time.Duration
	selectElapsed         time.Duration
}

// Logger is the minimal structured-logging seam Agent needs. A
// *zerolog.Logger does not satisfy it directly; cmd/hyperplay-agent
// implements it with an adapter that writes zerolog events.
type Logger interface {
	TurnStarted(step int, populationSize int)
	TurnFinished(step int, chosenMove rules.Move, populationSize int, forwardCalls int)
}

// NewAgent constructs an Agent from cfg, seeding its single shared
// random source (Design Note §9) from seed.
func NewAgent(cfg config.Config, eng rules.Engine, role rules.Role, seed int64, log Logger) *Agent {
	roleOrder := eng.OrderedRoles()
	rnd := rand.New(rand.NewSource(seed))
	tree := likelihood.New(model.RootNodeID())
	s := sampler.New(eng, roleOrder, role, tree, rnd, cfg.NumOPProbes, cfg.BacktrackingDepth)
	ev := evaluator.New(eng, roleOrder, role, rnd)
	ev.MaxNumProbes = cfg.MaxNumProbes
	ev.LikelihoodPowerFactor = cfg.LikelihoodPowerFactor
	ev.IncludeZeroPosterior = cfg.IncludeZeroPosterior

	return &Agent{
		cfg:       cfg,
		eng:       eng,
		log:       log,
		role:      role,
		roleOrder: roleOrder,
		tree:      tree,
		sampler:   s,
		eval:      ev,
		rnd:       rnd,
		states:    make(map[*model.Model]hyperState),
		blacklist: make(map[int]rules.Move),
		whitelist: make(map[int]rules.Move),
	}
}

// GameStart implements Controller.
func (a *Agent) GameStart(eng rules.Engine, role rules.Role, playClock, startClock time.Duration) {
	a.eng = eng
	a.role = role
	a.playClock = playClock
}

// GamePlay implements Controller and spec §4.7's turn loop.
func (a *Agent) GamePlay(percept rules.Percept, priorMove rules.Move) rules.Move {
	budget := NewTimeBudget(a.playClock, 50*time.Millisecond, a.cfg.InvPlaytimeFactor)
	forwardCalls := 0

	if a.log != nil {
		a.log.TurnStarted(a.step, len(a.population))
	}

	updateStart := time.Now()
	a.recordObservation(percept, priorMove)
	a.recoverFromTimeout()
	a.applyRetroactiveConsistency()

	forwardCalls += a.advancePopulation(budget)
	a.branchPopulation(budget)
	a.seedIfThin(budget)

	if len(a.population) > a.cfg.NumHyperGames {
		a.population = population.FilterByVariance(a.population, a.tree, a.cfg.NumHyperGames)
	}
	a.updateElapsed = time.Since(updateStart)

	selectStart := time.Now()
	move := a.selectMove(budget)
	a.selectElapsed = time.Since(selectStart)

	a.expectedActionTracker = growMoves(a.expectedActionTracker, a.step+1)
	a.expectedActionTracker[a.step] = move
	if a.log != nil {
		a.log.TurnFinished(a.step, move, len(a.population), forwardCalls)
	}
	a.step++

	if budget.ShouldStopTurn() {
		a.timedOut = true
	}
	return move
}

// GameStop implements Controller.
func (a *Agent) GameStop(percept rules.Percept, priorMove rules.Move) {
	a.recordObservation(percept, priorMove)
}

func (a *Agent) recordObservation(percept rules.Percept, priorMove rules.Move) {
	a.perceptTracker = growPercepts(a.perceptTracker, a.step+1)
	a.perceptTracker[a.step] = percept

	if a.step > 0 && priorMove != nil {
		a.actionTracker = growMoves(a.actionTracker, a.step)
		a.actionTracker[a.step-1] = priorMove
		if a.step-1 < len(a.expectedActionTracker) {
			a.whitelist[a.step-1] = priorMove
		}
	}

	if a.step == 0 {
		initial := model.New(a.role, a.roleOrder, a.eng.InitialState(), percept, len(a.roleOrder))
		initial.RecordLegalMoves(0, a.eng.LegalMoves(initial.CurrentState(), a.role))
		a.population = []*model.Model{initial}
		a.states[initial] = stateAlive
	}
}

// recoverFromTimeout implements spec §7's Timeout recovery: clear
// currentlyInUseMoves and the previous expected move before continuing.
func (a *Agent) recoverFromTimeout() {
	if !a.timedOut {
		return
	}
	a.sampler.ResetInUseMoves()
	if a.step > 0 && a.step-1 < len(a.expectedActionTracker) {
		a.expectedActionTracker[a.step-1] = nil
	}
	a.timedOut = false
}

// applyRetroactiveConsistency implements spec §4.4.2, run before
// forward-sampling per §5's ordering rule.
func (a *Agent) applyRetroactiveConsistency() {
	a.lastMoveWasIllegal = false
	if a.step == 0 || a.step-1 >= len(a.expectedActionTracker) || a.step-1 >= len(a.actionTracker) {
		return
	}
	expected := a.expectedActionTracker[a.step-1]
	actual := a.actionTracker[a.step-1]
	if expected != nil && actual != nil && expected.String() != actual.String() {
		a.lastMoveWasIllegal = true
	}
	a.population = sampler.RetroactiveConsistency(a.population, a.step, expected, actual, a.blacklist, a.whitelist)
}

// advancePopulation runs the Sampler forward for every live hypergame
// until it reaches the current step or is retired (spec §4.4.1's
// termination rule, §4.7.1's state machine).
func (a *Agent) advancePopulation(budget *TimeBudget) int {
	obs := &sampler.Observations{
		AgentRole:      a.role,
		ActionTracker:  a.actionTracker,
		PerceptTracker: a.perceptTracker,
		Blacklist:      a.blacklist,
		Whitelist:      a.whitelist,
	}

	forwardCalls := 0
	live := make([]*model.Model, 0, len(a.population))
	for _, m := range a.population {
		if a.step == 0 {
			live = append(live, m)
			continue
		}
		for m.Step() < a.step {
			if budget.ShouldStopTurn() {
				break
			}
			forwardCalls++
			a.sampler.Forward(m, m.Step()+1, a.step, obs)
			floor := a.step - a.cfg.BacktrackingDepth
			if floor < 0 {
				floor = 0
			}
			if m.Step() < floor {
				a.states[m] = stateRetired
				break
			}
		}
		if a.states[m] != stateRetired && m.Step() == a.step {
			live = append(live, m)
		}
	}
	a.population = live
	return forwardCalls
}

// seedIfThin implements spec §4.4.3. On the very first turn the
// population is exactly the initial model (spec §8 scenario 1): there
// is nothing yet to diverge a seed from, so no replenishment runs.
func (a *Agent) seedIfThin(budget *TimeBudget) {
	if a.step == 0 {
		return
	}
	if len(a.population) >= a.cfg.NumHyperGames {
		return
	}
	obs := &sampler.Observations{
		AgentRole:      a.role,
		ActionTracker:  a.actionTracker,
		PerceptTracker: a.perceptTracker,
		Blacklist:      a.blacklist,
		Whitelist:      a.whitelist,
	}
	a.population = a.sampler.SeedMore(a.population, a.cfg.NumHyperGames, budget.StateUpdateDeadline(), obs, a.step, func() *model.Model {
		m := model.New(a.role, a.roleOrder, a.eng.InitialState(), a.perceptTracker[0], len(a.roleOrder))
		m.RecordLegalMoves(0, a.eng.LegalMoves(m.CurrentState(), a.role))
		return m
	})
}

// branchPopulation implements spec §4.4.3 / §9 configurable variant (b):
// when cfg.ShouldBranch is set, every surviving hypergame is cloned
// cfg.NumHyperBranches-1 additional times and each clone is pushed down
// a different surviving candidate at the same node, using InUseMoves to
// keep the original's edge reserved so the weighted draw diverges.
func (a *Agent) branchPopulation(budget *TimeBudget) {
	if !a.cfg.ShouldBranch || a.cfg.NumHyperBranches <= 1 || a.step == 0 {
		return
	}
	obs := &sampler.Observations{
		AgentRole:      a.role,
		ActionTracker:  a.actionTracker,
		PerceptTracker: a.perceptTracker,
		Blacklist:      a.blacklist,
		Whitelist:      a.whitelist,
	}

	floor := a.step - a.cfg.BacktrackingDepth
	if floor < 0 {
		floor = 0
	}

	branched := make([]*model.Model, 0, len(a.population)*a.cfg.NumHyperBranches)
	for _, m := range a.population {
		branched = append(branched, m)
		edge := m.LastAction()
		if edge == nil {
			continue
		}
		parent := m.PreviousActionPathHash()
		a.sampler.InUseMoves.Add(parent, edge)

		for i := 1; i < a.cfg.NumHyperBranches; i++ {
			clone := m.Clone()
			clone.Backtrack()
			for clone.Step() < a.step && clone.Step() >= floor {
				if budget.ShouldStopTurn() {
					break
				}
				a.sampler.Forward(clone, clone.Step()+1, a.step, obs)
			}
			if clone.Step() == a.step {
				branched = append(branched, clone)
				a.states[clone] = stateAlive
			}
		}
	}
	a.population = branched
}

// selectMove runs the Evaluator, falling back to the last-known legal
// set (spec §7's ConsistencyExhausted error kind) when the population is
// empty.
func (a *Agent) selectMove(budget *TimeBudget) rules.Move {
	if len(a.population) == 0 {
		return a.consistencyExhaustedFallback()
	}

	candidates := a.candidateMoves()
	a.lastKnownLegal = candidates
	if len(candidates) == 0 {
		return a.consistencyExhaustedFallback()
	}

	move, _ := a.eval.Evaluate(a.population, a.tree, a.step, candidates, budget.TurnDeadline())
	if move == nil {
		return candidates[0]
	}
	return move
}

func (a *Agent) candidateMoves() []rules.Move {
	seen := make(map[string]bool)
	var out []rules.Move
	for _, m := range a.population {
		for _, mv := range m.ComputeLegalMoves(a.eng, a.role) {
			if !seen[mv.String()] {
				seen[mv.String()] = true
				out = append(out, mv)
			}
		}
	}
	return out
}

// consistencyExhaustedFallback implements spec §7's ConsistencyExhausted
// recovery: pick from the last-known legal set, or fall back to a root
// query through the Rules Engine as a last resort.
func (a *Agent) consistencyExhaustedFallback() rules.Move {
	if len(a.lastKnownLegal) > 0 {
		return a.lastKnownLegal[0]
	}
	root := a.eng.LegalMoves(a.eng.InitialState(), a.role)
	if len(root) > 0 {
		return root[0]
	}
	return nil
}

// Samples returns the Evaluator's visit count (evaluator.Evaluator.Samples)
// from the most recent GamePlay call, for the output log's
// simulations_run column (spec §6).
func (a *Agent) Samples() uint64 { return a.eval.Samples() }

// UpdateMS returns the wall-clock time spent advancing, branching,
// seeding and trimming the population during the most recent GamePlay
// call, for the output log's update_ms column (spec §6).
func (a *Agent) UpdateMS() int64 { return a.updateElapsed.Milliseconds() }

// SelectMS returns the wall-clock time spent in the Evaluator during
// the most recent GamePlay call, for the output log's select_ms column.
func (a *Agent) SelectMS() int64 { return a.selectElapsed.Milliseconds() }

// RolloutDepth returns the Evaluator's last completed probe depth, for
// the output log's rollout_depth column.
func (a *Agent) RolloutDepth() int { return a.eval.Depths() }

// WasIllegalLastTurn reports whether the controller's most recently
// reported prior move diverged from what this agent expected, for the
// output log's was_illegal_last_turn column.
func (a *Agent) WasIllegalLastTurn() bool { return a.lastMoveWasIllegal }

func growMoves(s []rules.Move, n int) []rules.Move {
	for len(s) < n {
		s = append(s, nil)
	}
	return s
}

func growPercepts(s []rules.Percept, n int) []rules.Percept {
	for len(s) < n {
		s = append(s, nil)
	}
	return s
}
