package sampler

import (
	"time"

	"github.com/hailam/hyperplay/internal/model"
)

// SeedMore implements spec §4.4.3: seed new hypergames from the root and
// advance them to currentGameStep, stopping when the population reaches
// 2×cap, the deadline passes, or the root admits no surviving joint
// move for step 1. newModel builds a fresh root-anchored Model (the
// caller owns the Rules Engine call to get the initial state/percept).
func (s *Sampler) SeedMore(existing []*model.Model, cap int, deadline time.Time, obs *Observations, currentGameStep int, newModel func() *model.Model) []*model.Model {
	population := append([]*model.Model(nil), existing...)
	for len(population) < 2*cap {
		if !time.Now().Before(deadline) {
			break
		}
		if s.rootBlocked(obs) {
			break
		}
		m := newModel()
		if !s.advanceToStep(m, currentGameStep, obs, deadline) {
			continue // discarded below the backtracking floor; try another seed
		}
		population = append(population, m)
	}
	return population
}

// rootBlocked reports whether the root node admits no joint move that
// isn't already bad or in-use for the agent's first real move (spec
// §4.4.3's third stop condition).
func (s *Sampler) rootBlocked(obs *Observations) bool {
	if len(obs.ActionTracker) == 0 {
		return false
	}
	rootID := model.RootNodeID()
	state := s.eng.InitialState()
	candidates := enumerateJointMoves(s.eng, state, s.roleOrder, obs.AgentRole, obs.ActionTracker[0])
	for _, c := range candidates {
		if !s.BadMoves.Contains(rootID, c) && !s.InUseMoves.Contains(rootID, c) {
			return false
		}
	}
	return len(candidates) > 0
}

// advanceToStep repeatedly calls Forward until m reaches currentGameStep
// or is discarded (spec §4.4.1's termination rule): discarded if
// backtracking returns it below currentGameStep-BacktrackingDepth, if a
// Forward call from the root leaves it at the root, or if the deadline
// passes. Returns false if the model was discarded.
func (s *Sampler) advanceToStep(m *model.Model, currentGameStep int, obs *Observations, deadline time.Time) bool {
	floor := currentGameStep - s.BacktrackingDepth
	if floor < 0 {
		floor = 0
	}
	for m.Step() < currentGameStep {
		if !time.Now().Before(deadline) {
			return false
		}
		startStep := m.Step()
		s.Forward(m, startStep+1, currentGameStep, obs)
		if m.Step() < floor {
			return false
		}
		if m.Step() == 0 && startStep == 0 {
			// Forward made no progress from the root: either the root
			// has no surviving candidate, or the candidate it pushed was
			// rejected (and is now in BadMoves). The seed is discarded in
			// both cases; SeedMore starts a fresh one.
			return false
		}
	}
	return true
}
