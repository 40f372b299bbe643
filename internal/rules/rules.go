// Package rules defines the abstract Rules Engine boundary the HyperPlay
// kernel is built against. The engine itself — parsing a declarative game
// description, computing legal moves, successors, percepts, terminality
// and goal values — lives outside this module entirely; this package only
// pins down the shapes every other package depends on.
package rules

// Role identifies a player in the game. Role values are compared by
// equality and used as map keys, so any comparable concrete type the
// engine chooses to use works.
type Role string

// Move is a single role's action in one step. Its representation is
// opaque to the kernel; the kernel never inspects a Move except to
// compare it for equality or to pass it back through the Engine.
type Move interface {
	// String returns a stable, human-readable form, used for logging and
	// for the Action-Path hash.
	String() string
}

// JointMove maps every role to the move it plays in a single step. A
// JointMove is immutable once constructed.
type JointMove map[Role]Move

// Equal reports whether two joint moves agree on every role present in
// either map.
func (j JointMove) Equal(other JointMove) bool {
	if len(j) != len(other) {
		return false
	}
	for role, move := range j {
		om, ok := other[role]
		if !ok || om.String() != move.String() {
			return false
		}
	}
	return true
}

// Key returns a deterministic string encoding of the joint move, ordered
// by role, suitable for use as a map key or as an Action-Path hash input.
func (j JointMove) Key(order []Role) string {
	buf := make([]byte, 0, 64)
	for _, role := range order {
		m, ok := j[role]
		buf = append(buf, []byte(string(role))...)
		buf = append(buf, '=')
		if ok {
			buf = append(buf, []byte(m.String())...)
		} else {
			buf = append(buf, '?')
		}
		buf = append(buf, ';')
	}
	return string(buf)
}

// Percept is one role's ordered observation terms after a joint move.
// Two percepts are equal iff their term slices are equal element-wise;
// order matters, matching the spec's "ordered collection of observation
// terms."
type Percept []string

// Equal reports whether two percepts carry the same ordered terms.
func (p Percept) Equal(other Percept) bool {
	if len(p) != len(other) {
		return false
	}
	for i := range p {
		if p[i] != other[i] {
			return false
		}
	}
	return true
}

// State is an opaque game position handed back by the Engine. The kernel
// never inspects a State directly except through Engine methods and
// Fluents (used only by the Population Manager's variance filter).
type State interface {
	// Fluents returns the set of ground fluent terms true in this state,
	// as stable strings. Used only for the Population Manager's
	// diversity metric (§4.5); an Engine that cannot cheaply decompose
	// its state into fluents may return a single-element slice
	// containing a canonical serialization of the whole state — the
	// variance filter still degrades gracefully (everything looks
	// maximally different, so it behaves like round-robin selection).
	Fluents() []string
}

// Engine is the abstract Rules Engine interface consumed by the kernel
// (spec §4.1). All operations are pure and side-effect free and report
// no errors. The kernel does not recover from a panic raised inside an
// Engine method: it propagates out of the Agent call that triggered it.
type Engine interface {
	// InitialState returns the game's starting position.
	InitialState() State

	// LegalMoves returns the legal moves for role in state.
	LegalMoves(state State, role Role) []Move

	// Successor returns the state reached by applying joint in state.
	Successor(state State, joint JointMove) State

	// SeesTerms returns the percept role receives after joint is played
	// from state.
	SeesTerms(state State, role Role, joint JointMove) Percept

	// IsTerminal reports whether state ends the game.
	IsTerminal(state State) bool

	// GoalValue returns role's payoff in a terminal state. Behaviour on
	// a non-terminal state is Engine-defined; the kernel only calls this
	// after IsTerminal returns true.
	GoalValue(state State, role Role) float64

	// OrderedRoles returns every role in the game, in a stable order
	// used throughout the kernel for deterministic hashing and
	// iteration.
	OrderedRoles() []Role
}
