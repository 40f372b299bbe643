// Package model implements the hypergame Model (spec §3, §4.2): one
// candidate perfect-information trajectory consistent so far with the
// agent's private observations, represented as parallel stacks that grow
// and shrink together under push (update) and pop (backtrack).
package model

import (
	"errors"
	"fmt"

	"github.com/cespare/xxhash/v2"

	"github.com/hailam/hyperplay/internal/rules"
)

// ErrDuplicateFrame is returned by Update when the model's stack already
// has a frame at the requested step (spec §4.2, "DuplicateFrame").
var ErrDuplicateFrame = errors.New("model: duplicate frame")

// NodeID is the Action-Path hash: the node identifier used by every
// side-index in the kernel (BadMoves, InUseMoves, Likelihood Tree nodes).
// It is computed as two independent 64-bit xxhash digests over the
// serialized action path, matching Design Note §9's recommendation to
// fall back to a 128-bit-class hash when collisions on a single 64-bit
// digest would be unacceptable across an unbounded key space.
type NodeID struct {
	Hi, Lo uint64
}

// rootNodeID is the Action-Path hash of the empty path (step 0, before
// any joint move has been played).
var rootNodeID = hashPathBytes(nil)

// RootNodeID returns the Action-Path hash every Model and Likelihood
// Tree in a given agent instance shares at step 0.
func RootNodeID() NodeID { return rootNodeID }

// lowSalt is prepended before computing the second digest so Hi and Lo
// are independent even though both go through the same xxhash function;
// cespare/xxhash/v2 exposes no seeded variant, so two differently-salted
// inputs stand in for two independent seeds.
var lowSalt = []byte{0x5c, 0xa1, 0xab, 0x1e}

func hashPathBytes(b []byte) NodeID {
	salted := make([]byte, 0, len(b)+len(lowSalt))
	salted = append(salted, lowSalt...)
	salted = append(salted, b...)
	return NodeID{
		Hi: xxhash.Sum64(b),
		Lo: xxhash.Sum64(salted),
	}
}

// frame is one step of a Model's trajectory.
type frame struct {
	action    rules.JointMove // nil for the root frame (step 0)
	state     rules.State
	percept   rules.Percept
	branching int
	legal     []rules.Move // player's legal moves recorded at this step, if any
	hash      NodeID
}

// Model is one hypergame: a stack of frames anchored at the game's
// initial state, plus the role this model tracks the trajectory for.
type Model struct {
	role      rules.Role
	roleOrder []rules.Role
	frames    []frame
}

// New creates a Model anchored at the initial state, already populated
// with the root frame (step 0). role is the agent's own role, used when
// recording legalMovesAtStep.
func New(role rules.Role, roleOrder []rules.Role, initialState rules.State, initialPercept rules.Percept, branching int) *Model {
	m := &Model{role: role, roleOrder: append([]rules.Role(nil), roleOrder...)}
	m.frames = append(m.frames, frame{
		action:    nil,
		state:     initialState,
		percept:   initialPercept,
		branching: branching,
		hash:      rootNodeID,
	})
	return m
}

// Update pushes one frame onto the model (spec §4.2). step must equal
// the model's current length (i.e. one past the top frame); any other
// value is a DuplicateFrame error. joint is nil only for step 0, which
// Update rejects since the root frame is installed by New.
func (m *Model) Update(eng rules.Engine, step int, joint rules.JointMove, branching int) error {
	if step != len(m.frames) {
		return fmt.Errorf("%w: step %d, stack length %d", ErrDuplicateFrame, step, len(m.frames))
	}
	top := m.frames[len(m.frames)-1]
	state := eng.Successor(top.state, joint)
	percept := eng.SeesTerms(state, m.role, joint)
	m.frames = append(m.frames, frame{
		action:    joint,
		state:     state,
		percept:   percept,
		branching: branching,
		hash:      m.nextHash(top.hash, joint),
	})
	return nil
}

// nextHash derives a child NodeID deterministically from the parent
// NodeID and the joint move that labels the edge.
func (m *Model) nextHash(parent NodeID, joint rules.JointMove) NodeID {
	return ChildNodeID(parent, joint, m.roleOrder)
}

// ChildNodeID computes the Action-Path hash of the node reached by
// playing joint from the node identified by parent, under roleOrder.
// Exported so the Sampler can precompute a candidate joint move's node
// id before committing it to a Model (needed to look up the
// Likelihood Tree child and the BadMoves/InUseMoves registries ahead of
// the speculative push).
func ChildNodeID(parent NodeID, joint rules.JointMove, roleOrder []rules.Role) NodeID {
	key := joint.Key(roleOrder)
	buf := make([]byte, 0, 16+len(key))
	buf = appendUint64(buf, parent.Hi)
	buf = appendUint64(buf, parent.Lo)
	buf = append(buf, key...)
	return hashPathBytes(buf)
}

func appendUint64(b []byte, v uint64) []byte {
	for i := 0; i < 8; i++ {
		b = append(b, byte(v>>(56-8*i)))
	}
	return b
}

// Backtrack pops the top frame, unless the model is already at the root
// (length 1), in which case it is a no-op (the root is never emptied).
func (m *Model) Backtrack() {
	if len(m.frames) > 1 {
		m.frames = m.frames[:len(m.frames)-1]
	}
}

// Len returns the number of frames (current step + 1).
func (m *Model) Len() int { return len(m.frames) }

// Step returns the index of the top frame (0 at the root).
func (m *Model) Step() int { return len(m.frames) - 1 }

// CurrentState returns the state at the top frame.
func (m *Model) CurrentState() rules.State { return m.frames[len(m.frames)-1].state }

// LatestPercepts returns the expected percept recorded at the top frame.
func (m *Model) LatestPercepts() rules.Percept { return m.frames[len(m.frames)-1].percept }

// PerceptAt returns the expected percept recorded at step i.
func (m *Model) PerceptAt(i int) rules.Percept { return m.frames[i].percept }

// LastAction returns the joint move that produced the top frame, or nil
// at the root.
func (m *Model) LastAction() rules.JointMove { return m.frames[len(m.frames)-1].action }

// ActionPathHash returns the NodeID of the top frame.
func (m *Model) ActionPathHash() NodeID { return m.frames[len(m.frames)-1].hash }

// PreviousActionPathHash returns the NodeID of the frame below the top,
// or the top's own hash at the root (there is nothing below it).
func (m *Model) PreviousActionPathHash() NodeID {
	if len(m.frames) < 2 {
		return m.frames[0].hash
	}
	return m.frames[len(m.frames)-2].hash
}

// HashPath returns the full sequence of NodeIDs from the root to the top
// frame, inclusive, used to navigate the Likelihood Tree.
func (m *Model) HashPath() []NodeID {
	path := make([]NodeID, len(m.frames))
	for i, f := range m.frames {
		path[i] = f.hash
	}
	return path
}

// BranchingProduct returns the product of branching counts recorded at
// every frame, representing the uniform-opponent choice factor (§4.2).
func (m *Model) BranchingProduct() uint64 {
	product := uint64(1)
	for _, f := range m.frames {
		if f.branching > 0 {
			product *= uint64(f.branching)
		}
	}
	return product
}

// RecordLegalMoves records the player's legal-move set observed at step.
func (m *Model) RecordLegalMoves(step int, moves []rules.Move) {
	m.frames[step].legal = append(make([]rules.Move, 0, len(moves)), moves...)
}

// LegalMovesAt returns the player's legal-move set recorded at step, or
// nil if none was recorded.
func (m *Model) LegalMovesAt(step int) []rules.Move {
	if step < 0 || step >= len(m.frames) {
		return nil
	}
	return m.frames[step].legal
}

// ComputeLegalMoves proxies the Rules Engine for the model's current
// state.
func (m *Model) ComputeLegalMoves(eng rules.Engine, role rules.Role) []rules.Move {
	return eng.LegalMoves(m.CurrentState(), role)
}

// Clone deep-copies every stack so the returned Model can be mutated
// independently of the receiver.
func (m *Model) Clone() *Model {
	clone := &Model{
		role:      m.role,
		roleOrder: append([]rules.Role(nil), m.roleOrder...),
		frames:    make([]frame, len(m.frames)),
	}
	for i, f := range m.frames {
		var legal []rules.Move
		if f.legal != nil {
			legal = append(make([]rules.Move, 0, len(f.legal)), f.legal...)
		}
		clone.frames[i] = frame{
			action:    f.action,
			state:     f.state,
			percept:   append(rules.Percept(nil), f.percept...),
			branching: f.branching,
			legal:     legal,
			hash:      f.hash,
		}
	}
	return clone
}

// Role returns the role this model tracks.
func (m *Model) Role() rules.Role { return m.role }
