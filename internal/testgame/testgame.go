// Package testgame is a minimal reference Rules Engine implementation
// (spec §4.1) used by the agent, evaluator, model, population and
// sampler tests and by cmd/hyperplay-agent's -selftest mode. It is deliberately small but
// genuinely imperfect-information and non-deterministic: a sealed bid
// ("guess the coin") game where a hidden die roll governs whether the
// guessing role's hint is accurate or noise.
//
// Roles: Hider picks a sealed coin face; Nature (the environment) rolls
// a die that decides whether Guesser's hint about the coin is truthful;
// Guesser then calls the coin and is scored on whether the call matches
// Hider's original pick.
package testgame

import (
	"fmt"
	"math/rand"

	"github.com/hailam/hyperplay/internal/rules"
)

// Roles in the game.
const (
	Guesser rules.Role = "guesser"
	Hider   rules.Role = "hider"
	Nature  rules.Role = "nature"
)

// Move is the game's concrete move representation: a small closed set of
// named atoms.
type Move string

// String implements rules.Move.
func (m Move) String() string { return string(m) }

// The full move vocabulary.
const (
	Noop       Move = "noop"
	Heads      Move = "heads"
	Tails      Move = "tails"
	RollLow    Move = "roll_low"
	RollHigh   Move = "roll_high"
	GuessHeads Move = "guess_heads"
	GuessTails Move = "guess_tails"
)

// phase identifies which half of the two-step game a State belongs to.
type phase int

const (
	phaseDeal phase = iota
	phaseGuess
	phaseDone
)

// State is the engine's opaque position type.
type State struct {
	ph         phase
	hiderMove  Move
	natureRoll Move
	guess      Move
}

// Fluents implements rules.State.
func (s State) Fluents() []string {
	return []string{
		fmt.Sprintf("phase(%d)", s.ph),
		fmt.Sprintf("hider(%s)", s.hiderMove),
		fmt.Sprintf("nature(%s)", s.natureRoll),
		fmt.Sprintf("guess(%s)", s.guess),
	}
}

// Engine implements rules.Engine for the guess-the-coin game.
type Engine struct {
	rnd *rand.Rand
}

// New creates an Engine holding a random source seeded from seed. No
// Engine method draws from it: every method is deterministic, and the
// Engine never makes move choices on a role's behalf.
func New(seed int64) *Engine {
	return &Engine{rnd: rand.New(rand.NewSource(seed))}
}

// InitialState implements rules.Engine.
func (e *Engine) InitialState() rules.State {
	return State{ph: phaseDeal}
}

// OrderedRoles implements rules.Engine.
func (e *Engine) OrderedRoles() []rules.Role {
	return []rules.Role{Guesser, Hider, Nature}
}

// LegalMoves implements rules.Engine.
func (e *Engine) LegalMoves(state rules.State, role rules.Role) []rules.Move {
	s := state.(State)
	switch s.ph {
	case phaseDeal:
		switch role {
		case Hider:
			return []rules.Move{Heads, Tails}
		case Nature:
			return []rules.Move{RollLow, RollHigh}
		default: // Guesser has nothing to do yet
			return []rules.Move{Noop}
		}
	case phaseGuess:
		switch role {
		case Guesser:
			return []rules.Move{GuessHeads, GuessTails}
		default:
			return []rules.Move{Noop}
		}
	default: // phaseDone
		return nil
	}
}

// Successor implements rules.Engine.
func (e *Engine) Successor(state rules.State, joint rules.JointMove) rules.State {
	s := state.(State)
	switch s.ph {
	case phaseDeal:
		return State{
			ph:         phaseGuess,
			hiderMove:  moveOf(joint, Hider),
			natureRoll: moveOf(joint, Nature),
		}
	case phaseGuess:
		s.ph = phaseDone
		s.guess = moveOf(joint, Guesser)
		return s
	default:
		return s
	}
}

func moveOf(joint rules.JointMove, role rules.Role) Move {
	m, ok := joint[role]
	if !ok {
		return Noop
	}
	return m.(Move)
}

// SeesTerms implements rules.Engine. Only Guesser receives a nontrivial
// percept: when Nature rolls high the hint is truthful, when it rolls
// low the hint is the opposite of Hider's real move — Guesser cannot
// tell which case it is in from the percept alone, which is exactly the
// imperfect-information structure the kernel is built to handle.
func (e *Engine) SeesTerms(state rules.State, role rules.Role, joint rules.JointMove) rules.Percept {
	if role != Guesser {
		return rules.Percept{"noop"}
	}
	if joint == nil {
		return rules.Percept{"start"}
	}
	hider := moveOf(joint, Hider)
	nature := moveOf(joint, Nature)
	hint := hider
	if nature == RollLow {
		hint = opposite(hider)
	}
	return rules.Percept{"hint(" + string(hint) + ")"}
}

func opposite(m Move) Move {
	if m == Heads {
		return Tails
	}
	return Heads
}

// IsTerminal implements rules.Engine.
func (e *Engine) IsTerminal(state rules.State) bool {
	return state.(State).ph == phaseDone
}

// GoalValue implements rules.Engine. Guesser scores 100 for a correct
// call, 0 otherwise; Hider's payoff is the complement (zero-sum);
// Nature, as the environment, always scores 0.
func (e *Engine) GoalValue(state rules.State, role rules.Role) float64 {
	s := state.(State)
	correct := (s.guess == GuessHeads && s.hiderMove == Heads) || (s.guess == GuessTails && s.hiderMove == Tails)
	switch role {
	case Guesser:
		if correct {
			return 100
		}
		return 0
	case Hider:
		if correct {
			return 0
		}
		return 100
	default:
		return 0
	}
}

// JointMove builds the phase-0 joint move: Hider's sealed pick and
// Nature's die roll; Guesser's phase-0 move is always Noop.
func JointMove(hider, nature Move) rules.JointMove {
	return rules.JointMove{
		Guesser: Noop,
		Hider:   hider,
		Nature:  nature,
	}
}

// GuessJointMove builds the phase-1 joint move: Guesser's call; Hider
// and Nature have nothing left to play.
func GuessJointMove(guess Move) rules.JointMove {
	return rules.JointMove{
		Guesser: guess,
		Hider:   Noop,
		Nature:  Noop,
	}
}
