package likelihood

import (
	"testing"

	"github.com/hailam/hyperplay/internal/model"
)

func childID(b byte) model.NodeID {
	return model.NodeID{Hi: uint64(b), Lo: uint64(b) + 1}
}

func TestExpandNormalizesAndIsIdempotent(t *testing.T) {
	root := model.RootNodeID()
	tree := New(root)

	a, b, c := childID(1), childID(2), childID(3)
	values := map[model.NodeID]float64{a: 30, b: 10, c: 0}

	tree.Expand(tree.Root(), values)
	first := snapshot(tree.Root())

	// Re-expanding with the exact same values must reproduce the same
	// normalised shares (Testable Property §8.4).
	tree.Expand(tree.Root(), values)
	second := snapshot(tree.Root())

	if len(first) != len(second) {
		t.Fatalf("child count changed across idempotent re-expand: %d vs %d", len(first), len(second))
	}
	for id, v := range first {
		if second[id] != v {
			t.Errorf("relLikelihood for %+v changed across idempotent re-expand: %f -> %f", id, v, second[id])
		}
	}
	if got := first[a]; got != 0.75 {
		t.Errorf("rel likelihood for a = %f, want 0.75", got)
	}
	if got := first[b]; got != 0.25 {
		t.Errorf("rel likelihood for b = %f, want 0.25", got)
	}
	if got := first[c]; got != 0 {
		t.Errorf("rel likelihood for c = %f, want 0", got)
	}
}

func TestGetRelativeLikelihoodShortCircuitsOnZero(t *testing.T) {
	root := model.RootNodeID()
	tree := New(root)

	zero := childID(9)
	tree.Expand(tree.Root(), map[model.NodeID]float64{zero: 0})

	path := []model.NodeID{root, zero}
	if got := tree.GetRelativeLikelihood(path); got != 0 {
		t.Errorf("GetRelativeLikelihood = %f, want 0", got)
	}
}

func TestZeroOutRenormalizesSiblings(t *testing.T) {
	root := model.RootNodeID()
	tree := New(root)

	a, b := childID(4), childID(5)
	tree.Expand(tree.Root(), map[model.NodeID]float64{a: 50, b: 50})

	var childA *Node
	for _, c := range tree.Root().Children() {
		if c.ID == a {
			childA = c
		}
	}
	if childA == nil {
		t.Fatalf("child a not found")
	}
	tree.ZeroOut(tree.Root(), childA)

	snap := snapshot(tree.Root())
	if snap[a] != 0 {
		t.Errorf("zeroed child relLikelihood = %f, want 0", snap[a])
	}
	if snap[b] != 1 {
		t.Errorf("surviving sibling relLikelihood = %f, want 1 after renormalisation", snap[b])
	}
}

func snapshot(node *Node) map[model.NodeID]float64 {
	out := make(map[model.NodeID]float64)
	for _, c := range node.Children() {
		out[c.ID] = c.RelLikelihood
	}
	return out
}
