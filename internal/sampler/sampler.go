// Package sampler implements the Sampler (spec §4.4): the component that
// advances each hypergame Model forward so its percept sequence matches
// the agent's observations, backtracking and retrying when a candidate
// joint move turns out to be inconsistent, and seeding fresh hypergames
// from the root when the population runs thin.
package sampler

import (
	"math/rand"

	"github.com/hailam/hyperplay/internal/likelihood"
	"github.com/hailam/hyperplay/internal/model"
	"github.com/hailam/hyperplay/internal/rules"
)

// Observations bundles the per-turn bookkeeping the Sampler consults:
// the agent's own actual move history, its observed percept history,
// and the retroactive blacklist/whitelist derived from controller
// feedback (spec §4.7, §4.4.2).
type Observations struct {
	AgentRole      rules.Role
	ActionTracker  []rules.Move   // ActionTracker[i] = agent's actual move played at step i (producing frame i+1)
	PerceptTracker []rules.Percept // PerceptTracker[i] = agent's observed percept at step i
	Blacklist      map[int]rules.Move
	Whitelist      map[int]rules.Move
}

// Sampler holds the per-agent BadMoves/InUseMoves registries and the
// random source used for opponent-rollout probing and weighted
// selection (Design Note §9: one seedable source for reproducibility).
type Sampler struct {
	eng               rules.Engine
	roleOrder         []rules.Role
	agentRole         rules.Role
	tree              *likelihood.Tree
	rnd               *rand.Rand
	BadMoves          *registry
	InUseMoves        *registry
	NumOPProbes       int
	BacktrackingDepth int
}

// New creates a Sampler bound to eng and tree, drawing all randomness
// from rnd.
func New(eng rules.Engine, roleOrder []rules.Role, agentRole rules.Role, tree *likelihood.Tree, rnd *rand.Rand, numOPProbes, backtrackingDepth int) *Sampler {
	return &Sampler{
		eng:               eng,
		roleOrder:         roleOrder,
		agentRole:         agentRole,
		tree:              tree,
		rnd:               rnd,
		BadMoves:          newRegistry(roleOrder),
		InUseMoves:        newRegistry(roleOrder),
		NumOPProbes:       numOPProbes,
		BacktrackingDepth: backtrackingDepth,
	}
}

// ResetInUseMoves clears every InUseMoves reservation (spec §7's timeout
// recovery: "the agent... clears currentlyInUseMoves"). BadMoves is
// untouched, matching I5's monotonicity.
func (s *Sampler) ResetInUseMoves() {
	s.InUseMoves = newRegistry(s.roleOrder)
}

// Forward advances m by one step toward currentGameStep (spec §4.4.1).
// m's top frame must be at step-1. Returns the next step to advance to:
// step+1 on success (the top frame is now at step), step-1 on a dead end
// (the model popped its top frame, or was already at the root), or step
// again when a push was tried and rejected (the caller should call
// Forward again, which will try a different candidate).
func (s *Sampler) Forward(m *model.Model, step, currentGameStep int, obs *Observations) int {
	state := m.CurrentState()
	nodeID := m.ActionPathHash()
	agentMove := obs.ActionTracker[step-1]

	allCandidates := enumerateJointMoves(s.eng, state, s.roleOrder, obs.AgentRole, agentMove)
	survivors := make([]rules.JointMove, 0, len(allCandidates))
	for _, c := range allCandidates {
		if s.BadMoves.Contains(nodeID, c) || s.InUseMoves.Contains(nodeID, c) {
			continue
		}
		survivors = append(survivors, c)
	}

	node := s.tree.Node(m.HashPath())
	if !node.Expanded() && len(survivors) > 0 {
		s.expand(node, state, survivors)
	}

	selected, ok := s.selectCandidate(node, nodeID, survivors)
	if !ok {
		return s.deadEnd(m, nodeID, allCandidates)
	}

	if err := m.Update(s.eng, step, selected, len(allCandidates)); err != nil {
		// DuplicateFrame (spec §7): recovered by ignoring the redundant
		// push and reporting no progress this call.
		return step
	}

	if !m.LatestPercepts().Equal(obs.PerceptTracker[step]) {
		m.Backtrack()
		s.BadMoves.Add(nodeID, selected)
		s.zeroOutChild(node, nodeID, selected)
		return step
	}

	if step < currentGameStep {
		legal := m.ComputeLegalMoves(s.eng, obs.AgentRole)
		m.RecordLegalMoves(step, legal)
		if bl, ok := obs.Blacklist[step]; ok && containsMove(legal, bl) {
			m.Backtrack()
			s.BadMoves.Add(nodeID, selected)
			s.zeroOutChild(node, nodeID, selected)
			return step
		}
		if wl, ok := obs.Whitelist[step]; ok && !containsMove(legal, wl) {
			m.Backtrack()
			s.BadMoves.Add(nodeID, selected)
			s.zeroOutChild(node, nodeID, selected)
			return step
		}
	}

	s.InUseMoves.Add(nodeID, selected)
	return step + 1
}

// deadEnd implements spec §4.4.1 step 5: no candidate survives. The
// model pops one frame; whether the discarded edge is blamed on
// BadMoves or InUseMoves at the newly-exposed parent node depends on
// why every original candidate was excluded.
func (s *Sampler) deadEnd(m *model.Model, nodeID model.NodeID, allCandidates []rules.JointMove) int {
	poppedMove := m.LastAction()
	before := m.Step()
	wasAllBad := true
	for _, c := range allCandidates {
		if !s.BadMoves.Contains(nodeID, c) {
			wasAllBad = false
			break
		}
	}
	m.Backtrack()
	if poppedMove == nil {
		// At the root already; nothing to blame upward, just report the
		// regression.
		return before
	}
	parentNode := m.ActionPathHash()
	if wasAllBad && len(allCandidates) > 0 {
		s.BadMoves.Add(parentNode, poppedMove)
	} else {
		s.InUseMoves.Add(parentNode, poppedMove)
	}
	return before
}

// expand runs numOPProbes opponent rollouts per surviving candidate and
// installs the resulting values into the Likelihood Tree (spec §4.4.1
// step 3).
func (s *Sampler) expand(node *likelihood.Node, state rules.State, survivors []rules.JointMove) {
	values := make(map[model.NodeID]float64, len(survivors))
	for _, c := range survivors {
		childID := model.ChildNodeID(node.ID, c, s.roleOrder)
		values[childID] = opponentRolloutValue(s.eng, state, c, s.roleOrder, s.agentRole, s.rnd, s.NumOPProbes)
	}
	s.tree.Expand(node, values)
}

// selectCandidate performs the weighted draw (spec §4.4.1 step 4): pick
// among survivors proportionally to the Likelihood Tree's per-child
// value, skipping anything already claimed in InUseMoves at this node.
func (s *Sampler) selectCandidate(node *likelihood.Node, nodeID model.NodeID, survivors []rules.JointMove) (rules.JointMove, bool) {
	usable := survivors[:0:0]
	for _, c := range survivors {
		if s.InUseMoves.Contains(nodeID, c) {
			continue
		}
		usable = append(usable, c)
	}
	if len(usable) == 0 {
		return nil, false
	}
	return weightedSelect(s.rnd, usable, func(c rules.JointMove) float64 {
		childID := model.ChildNodeID(node.ID, c, s.roleOrder)
		for _, child := range node.Children() {
			if child.ID == childID {
				return child.Value
			}
		}
		return 0
	})
}

func (s *Sampler) zeroOutChild(node *likelihood.Node, nodeID model.NodeID, joint rules.JointMove) {
	childID := model.ChildNodeID(node.ID, joint, s.roleOrder)
	for _, child := range node.Children() {
		if child.ID == childID {
			s.tree.ZeroOut(node, child)
			return
		}
	}
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
