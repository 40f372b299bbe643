package model

import (
	"testing"

	"github.com/hailam/hyperplay/internal/testgame"
)

func newTestModel(t *testing.T) (*Model, *testgame.Engine) {
	t.Helper()
	eng := testgame.New(7)
	st := eng.InitialState()
	percept := eng.SeesTerms(st, testgame.Guesser, nil)
	m := New(testgame.Guesser, eng.OrderedRoles(), st, percept, len(eng.LegalMoves(st, testgame.Guesser)))
	return m, eng
}

func TestUpdateBacktrackRoundTrip(t *testing.T) {
	m, eng := newTestModel(t)
	beforeHash := m.ActionPathHash()
	beforeLen := m.Len()

	joint := testgame.JointMove(testgame.Heads, testgame.RollLow)
	if err := m.Update(eng, 1, joint, 4); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if m.Len() != beforeLen+1 {
		t.Fatalf("expected length %d, got %d", beforeLen+1, m.Len())
	}

	m.Backtrack()
	if m.Len() != beforeLen {
		t.Fatalf("expected length %d after backtrack, got %d", beforeLen, m.Len())
	}
	if m.ActionPathHash() != beforeHash {
		t.Errorf("hash not restored: got %+v, want %+v", m.ActionPathHash(), beforeHash)
	}
}

func TestUpdateDuplicateFrame(t *testing.T) {
	m, eng := newTestModel(t)
	joint := testgame.JointMove(testgame.Heads, testgame.RollLow)
	if err := m.Update(eng, 1, joint, 4); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if err := m.Update(eng, 1, joint, 4); err == nil {
		t.Fatal("expected ErrDuplicateFrame, got nil")
	}
}

func TestBacktrackNeverEmptiesRoot(t *testing.T) {
	m, _ := newTestModel(t)
	m.Backtrack()
	m.Backtrack()
	if m.Len() != 1 {
		t.Fatalf("expected root frame to survive, got length %d", m.Len())
	}
}

func TestCloneIsIndependentAndStructurallyEqual(t *testing.T) {
	m, eng := newTestModel(t)
	joint := testgame.JointMove(testgame.Heads, testgame.RollLow)
	if err := m.Update(eng, 1, joint, 4); err != nil {
		t.Fatalf("Update: %v", err)
	}

	clone := m.Clone()
	if clone.Len() != m.Len() {
		t.Fatalf("clone length %d != original %d", clone.Len(), m.Len())
	}
	if clone.ActionPathHash() != m.ActionPathHash() {
		t.Fatalf("clone hash != original hash")
	}
	if clone.BranchingProduct() != m.BranchingProduct() {
		t.Fatalf("clone branching product != original")
	}

	clone.Backtrack()
	if m.Len() == clone.Len() {
		t.Fatalf("expected clone to be independently mutable, both report length %d", m.Len())
	}
}
