package population

import (
	"testing"

	"github.com/hailam/hyperplay/internal/likelihood"
	"github.com/hailam/hyperplay/internal/model"
	"github.com/hailam/hyperplay/internal/rules"
	"github.com/hailam/hyperplay/internal/testgame"
)

type fluentState struct {
	fluents []string
}

func (s fluentState) Fluents() []string { return s.fluents }

func newModelWithState(t *testing.T, fluents ...string) *model.Model {
	t.Helper()
	eng := testgame.New(1)
	roleOrder := eng.OrderedRoles()
	m := model.New(testgame.Guesser, roleOrder, fluentState{fluents: fluents}, rules.Percept{"start"}, 1)
	return m
}

func TestPosteriorFallsBackToUniformWhenSumIsZero(t *testing.T) {
	// Both models sit under root children whose values are 0, so every
	// relative likelihood (and therefore the sum) is zero.
	eng := testgame.New(1)
	roleOrder := eng.OrderedRoles()
	st := eng.InitialState()
	m1 := model.New(testgame.Guesser, roleOrder, st, rules.Percept{"start"}, 4)
	if err := m1.Update(eng, 1, testgame.JointMove(testgame.Heads, testgame.RollHigh), 4); err != nil {
		t.Fatalf("Update: %v", err)
	}
	m2 := model.New(testgame.Guesser, roleOrder, st, rules.Percept{"start"}, 4)
	if err := m2.Update(eng, 1, testgame.JointMove(testgame.Tails, testgame.RollLow), 4); err != nil {
		t.Fatalf("Update: %v", err)
	}
	tree := likelihood.New(model.RootNodeID())
	tree.Expand(tree.Root(), map[model.NodeID]float64{m1.ActionPathHash(): 0, m2.ActionPathHash(): 0})
	models := []*model.Model{m1, m2}

	if got := Posterior(m1, tree, models); got != 1.0 {
		t.Errorf("Posterior = %f, want 1.0 (degenerate fallback)", got)
	}
}

func TestFilterByVarianceKeepsAllUnderCap(t *testing.T) {
	m1 := newModelWithState(t, "a")
	m2 := newModelWithState(t, "b")
	tree := likelihood.New(model.RootNodeID())
	out := FilterByVariance([]*model.Model{m1, m2}, tree, 5)
	if len(out) != 2 {
		t.Fatalf("expected both models kept under cap, got %d", len(out))
	}
}

func TestFilterByVariancePrefersDiverseStates(t *testing.T) {
	// a and b share every fluent; c is maximally different from both.
	a := newModelWithState(t, "x", "y")
	b := newModelWithState(t, "x", "y")
	c := newModelWithState(t, "p", "q", "r")

	tree := likelihood.New(model.RootNodeID())
	out := FilterByVariance([]*model.Model{a, b, c}, tree, 2)
	if len(out) != 2 {
		t.Fatalf("expected 2 models retained, got %d", len(out))
	}
	found := map[*model.Model]bool{}
	for _, m := range out {
		found[m] = true
	}
	if !found[c] {
		t.Errorf("expected the maximally-diverse model to survive the cap, it did not")
	}
}
