package evaluator

import (
	"math/rand"
	"testing"
	"time"

	"github.com/hailam/hyperplay/internal/likelihood"
	"github.com/hailam/hyperplay/internal/model"
	"github.com/hailam/hyperplay/internal/rules"
	"github.com/hailam/hyperplay/internal/testgame"
)

func TestEvaluatePrefersLegalOverIllegalMove(t *testing.T) {
	eng := testgame.New(7)
	roleOrder := eng.OrderedRoles()
	rnd := rand.New(rand.NewSource(3))
	e := New(eng, roleOrder, testgame.Guesser, rnd)
	e.MaxNumProbes = 50

	st := eng.InitialState()
	joint := testgame.JointMove(testgame.Heads, testgame.RollHigh)
	next := eng.Successor(st, joint)
	percept := eng.SeesTerms(next, testgame.Guesser, joint)

	m := model.New(testgame.Guesser, roleOrder, st, rules.Percept{"start"}, 4)
	if err := m.Update(eng, 1, joint, 4); err != nil {
		t.Fatalf("Update: %v", err)
	}
	_ = percept
	m.RecordLegalMoves(1, []rules.Move{testgame.GuessHeads, testgame.GuessTails})

	tree := likelihood.New(model.RootNodeID())
	models := []*model.Model{m}

	// An illegal "move" never in legalMovesAt(1) must always contribute
	// 0 and therefore lose to a real legal candidate whenever the legal
	// one ever wins its rollout.
	candidates := []rules.Move{testgame.GuessHeads, Move("not-a-real-move")}
	deadline := time.Now().Add(200 * time.Millisecond)
	best, results := e.Evaluate(models, tree, 1, candidates, deadline)

	if best == nil {
		t.Fatalf("expected a best move, got nil")
	}
	if best.String() != testgame.GuessHeads.String() {
		t.Errorf("best move = %v, want %v", best, testgame.GuessHeads)
	}
	for _, r := range results {
		if r.Move.String() == "not-a-real-move" && r.RunningMean != 0 {
			t.Errorf("illegal move contributed non-zero mean %f", r.RunningMean)
		}
	}
}

func TestEvaluateReturnsNilForNoCandidates(t *testing.T) {
	eng := testgame.New(1)
	roleOrder := eng.OrderedRoles()
	e := New(eng, roleOrder, testgame.Guesser, rand.New(rand.NewSource(1)))
	best, results := e.Evaluate(nil, likelihood.New(model.RootNodeID()), 0, nil, time.Now().Add(time.Second))
	if best != nil || results != nil {
		t.Errorf("expected nil/nil for empty candidates, got %v, %v", best, results)
	}
}

// TestEvaluateExcludesZeroPosteriorByDefault covers spec §9's open
// question: a hypergame proven inconsistent (its node zeroed out in the
// Likelihood Tree) must not dilute a candidate's running mean with a
// guaranteed-zero sample unless IncludeZeroPosterior is set.
func TestEvaluateExcludesZeroPosteriorByDefault(t *testing.T) {
	eng := testgame.New(7)
	roleOrder := eng.OrderedRoles()
	rnd := rand.New(rand.NewSource(3))

	st := eng.InitialState()
	jointA := testgame.JointMove(testgame.Heads, testgame.RollHigh)
	jointB := testgame.JointMove(testgame.Tails, testgame.RollLow)

	mLive := model.New(testgame.Guesser, roleOrder, st, rules.Percept{"start"}, 4)
	if err := mLive.Update(eng, 1, jointA, 4); err != nil {
		t.Fatalf("Update: %v", err)
	}
	mLive.RecordLegalMoves(1, []rules.Move{testgame.GuessHeads, testgame.GuessTails})

	mZero := model.New(testgame.Guesser, roleOrder, st, rules.Percept{"start"}, 4)
	if err := mZero.Update(eng, 1, jointB, 4); err != nil {
		t.Fatalf("Update: %v", err)
	}
	mZero.RecordLegalMoves(1, []rules.Move{testgame.GuessHeads, testgame.GuessTails})

	tree := likelihood.New(model.RootNodeID())
	tree.Expand(tree.Root(), map[model.NodeID]float64{mLive.ActionPathHash(): 1.0, mZero.ActionPathHash(): 1.0})
	var childZero *likelihood.Node
	for _, c := range tree.Root().Children() {
		if c.ID == mZero.ActionPathHash() {
			childZero = c
		}
	}
	tree.ZeroOut(tree.Root(), childZero)

	models := []*model.Model{mLive, mZero}
	candidates := []rules.Move{testgame.GuessHeads}
	deadline := time.Now().Add(200 * time.Millisecond)

	e := New(eng, roleOrder, testgame.Guesser, rnd)
	e.MaxNumProbes = 3
	_, results := e.Evaluate(models, tree, 1, candidates, deadline)
	if results[0].Samples != 3 {
		t.Errorf("Samples = %d, want 3 (the zero-posterior model excluded by default)", results[0].Samples)
	}

	e2 := New(eng, roleOrder, testgame.Guesser, rnd)
	e2.MaxNumProbes = 3
	e2.IncludeZeroPosterior = true
	_, results2 := e2.Evaluate(models, tree, 1, candidates, deadline)
	if results2[0].Samples != 6 {
		t.Errorf("Samples = %d, want 6 with IncludeZeroPosterior set", results2[0].Samples)
	}
}

// Move adapts a bare string into a rules.Move for constructing an
// intentionally-illegal candidate in the test above.
type Move string

func (m Move) String() string { return string(m) }
