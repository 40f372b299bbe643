package sampler

import (
	"math/rand"
	"testing"

	"github.com/hailam/hyperplay/internal/likelihood"
	"github.com/hailam/hyperplay/internal/model"
	"github.com/hailam/hyperplay/internal/rules"
	"github.com/hailam/hyperplay/internal/testgame"
)

func newTestSampler(t *testing.T) (*Sampler, *testgame.Engine, *model.Model, *Observations) {
	t.Helper()
	eng := testgame.New(1)
	roleOrder := eng.OrderedRoles()
	tree := likelihood.New(model.RootNodeID())
	rnd := rand.New(rand.NewSource(42))
	s := New(eng, roleOrder, testgame.Guesser, tree, rnd, 4, 1)

	st := eng.InitialState()
	percept0 := eng.SeesTerms(st, testgame.Guesser, nil)
	m := model.New(testgame.Guesser, roleOrder, st, percept0, 4)

	obs := &Observations{
		AgentRole:      testgame.Guesser,
		ActionTracker:  []rules.Move{testgame.Noop, testgame.GuessHeads},
		PerceptTracker: []rules.Percept{percept0, nil, nil},
		Blacklist:      map[int]rules.Move{},
		Whitelist:      map[int]rules.Move{},
	}
	return s, eng, m, obs
}

func TestForwardAdvancesOnConsistentPercept(t *testing.T) {
	s, eng, m, obs := newTestSampler(t)

	// Force the percept the agent is known to have observed at step 1 to
	// whatever a Heads/RollHigh deal would have produced; Forward must
	// eventually settle on a surviving candidate that reproduces it.
	st := eng.InitialState()
	joint := testgame.JointMove(testgame.Heads, testgame.RollHigh)
	obs.PerceptTracker[1] = eng.SeesTerms(eng.Successor(st, joint), testgame.Guesser, joint)

	for i := 0; i < 10 && m.Step() < 1; i++ {
		s.Forward(m, 1, 2, obs)
	}
	if m.Step() < 1 {
		t.Fatalf("expected model to reach step 1, stuck at %d", m.Step())
	}
	if !m.LatestPercepts().Equal(obs.PerceptTracker[1]) {
		t.Errorf("model's recorded percept %v does not match observation %v", m.LatestPercepts(), obs.PerceptTracker[1])
	}
}

func TestForwardMismatchBlacklistsCandidateAtNode(t *testing.T) {
	s, eng, m, obs := newTestSampler(t)
	_ = eng

	// No real deal produces this percept, so every candidate at the root
	// mismatches and must end up in BadMoves without ever advancing m.
	obs.PerceptTracker[1] = rules.Percept{"hint(impossible)"}

	nodeID := m.ActionPathHash()
	allCandidates := enumerateJointMoves(s.eng, m.CurrentState(), s.roleOrder, obs.AgentRole, obs.ActionTracker[0])

	for i := 0; i < len(allCandidates)+1; i++ {
		s.Forward(m, 1, 2, obs)
	}
	if m.Step() != 0 {
		t.Fatalf("expected model to remain at root, got step %d", m.Step())
	}
	for _, c := range allCandidates {
		if !s.BadMoves.Contains(nodeID, c) {
			t.Errorf("candidate %v was never recorded as a bad move", c)
		}
	}
}

func TestDeadEndAtRootMakesNoProgressOnTotalFailure(t *testing.T) {
	s, _, m, obs := newTestSampler(t)
	st := m.CurrentState()
	candidates := enumerateJointMoves(s.eng, st, s.roleOrder, testgame.Guesser, testgame.Noop)
	nodeID := m.ActionPathHash()
	for _, c := range candidates {
		s.BadMoves.Add(nodeID, c)
	}
	before := m.Step()
	next := s.Forward(m, 1, 2, obs)
	if next != before {
		t.Fatalf("expected no net progress on total dead end, got step %d", next)
	}
}

func TestRetroactiveConsistencyDropsInconsistentModels(t *testing.T) {
	admitsBlacklisted := newTestModelForConsistency(t)
	admitsBlacklisted.RecordLegalMoves(0, []rules.Move{testgame.GuessHeads, testgame.GuessTails})

	lacksWhitelisted := newTestModelForConsistency(t)
	lacksWhitelisted.RecordLegalMoves(0, []rules.Move{})

	keptModel := newTestModelForConsistency(t)
	keptModel.RecordLegalMoves(0, []rules.Move{testgame.GuessTails})

	blacklist := map[int]rules.Move{}
	whitelist := map[int]rules.Move{}
	kept := RetroactiveConsistency(
		[]*model.Model{admitsBlacklisted, lacksWhitelisted, keptModel},
		1, testgame.GuessHeads, testgame.GuessTails, blacklist, whitelist,
	)

	if len(kept) != 1 || kept[0] != keptModel {
		t.Fatalf("expected only the model lacking the blacklisted move and holding the whitelisted one to survive, got %d models", len(kept))
	}
	if blacklist[0] != testgame.GuessHeads {
		t.Errorf("blacklist[0] = %v, want %v", blacklist[0], testgame.GuessHeads)
	}
	if whitelist[0] != testgame.GuessTails {
		t.Errorf("whitelist[0] = %v, want %v", whitelist[0], testgame.GuessTails)
	}
}

func newTestModelForConsistency(t *testing.T) *model.Model {
	t.Helper()
	eng := testgame.New(1)
	st := eng.InitialState()
	percept0 := eng.SeesTerms(st, testgame.Guesser, nil)
	return model.New(testgame.Guesser, eng.OrderedRoles(), st, percept0, 4)
}
