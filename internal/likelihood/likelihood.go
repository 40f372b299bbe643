// Package likelihood implements the opponent-likelihood tree (spec §3,
// §4.3): a memoized, per-agent model of opponent preferences shared
// across the hypergame population, used to weight each hypergame's
// Monte-Carlo contribution by posterior plausibility rather than raw
// enumeration count.
//
// The node store is a bounded LRU arena rather than a plain map — Design
// Note §9 asks for "an arena + stable indices" the way a non-GC'd port
// of this design would need; golang-lru/v2 gives that shape (a stable
// key → *Node index that drops its least recently used entries). Every
// node also stays linked from its parent's children map, so dropping an
// entry from the arena does not free the node: the tree's memory grows
// with the number of nodes created during the match.
package likelihood

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/hailam/hyperplay/internal/model"
)

// arenaCap bounds the number of entries in the arena index. Entries are
// dropped least recently used first; a dropped node is still reached
// through its parent's children map, so it is neither freed nor rebuilt.
const arenaCap = 1 << 16

// Node is one Likelihood Tree node (spec §3): the opponent-rollout value
// aggregate for this edge, its normalised share among siblings, and
// links for renormalising a parent after a child's value changes.
type Node struct {
	ID            model.NodeID
	Parent        *Node
	Value         float64
	RelLikelihood float64
	expanded      bool
	children      map[model.NodeID]*Node
	order         []model.NodeID // insertion order, for tie-break stability
}

// Expanded reports whether children values/likelihoods have been set.
func (n *Node) Expanded() bool { return n.expanded }

// Children returns the node's children in insertion order.
func (n *Node) Children() []*Node {
	out := make([]*Node, 0, len(n.order))
	for _, id := range n.order {
		out = append(out, n.children[id])
	}
	return out
}

// Tree is the arena-owned Likelihood Tree for one agent instance.
type Tree struct {
	root  *Node
	arena *lru.Cache[model.NodeID, *Node]
}

// New creates a Tree rooted at the initial action-path hash.
func New(rootID model.NodeID) *Tree {
	arena, err := lru.New[model.NodeID, *Node](arenaCap)
	if err != nil {
		// Only returns an error for a non-positive size, which arenaCap
		// never is.
		panic(err)
	}
	root := &Node{ID: rootID, RelLikelihood: 1.0, children: make(map[model.NodeID]*Node)}
	arena.Add(rootID, root)
	return &Tree{root: root, arena: arena}
}

// Root returns the tree's root node.
func (t *Tree) Root() *Node { return t.root }

// Node returns the node at the end of hashPath, creating intermediate
// unexpanded nodes as needed to materialise the path. hashPath must
// begin with the tree's root id.
func (t *Tree) Node(hashPath []model.NodeID) *Node {
	if len(hashPath) == 0 {
		return t.root
	}
	cur := t.root
	for _, id := range hashPath[1:] {
		child, ok := t.arena.Get(id)
		if !ok {
			child, ok = cur.children[id]
		}
		if !ok {
			child = &Node{ID: id, Parent: cur, children: make(map[model.NodeID]*Node)}
			cur.children[id] = child
			cur.order = append(cur.order, id)
			t.arena.Add(id, child)
		}
		cur = child
	}
	return cur
}

// GetRelativeLikelihood returns the product of RelLikelihood along
// hashPath, short-circuiting to 0.0 as soon as any node along the path
// carries a zero relative likelihood (spec §4.3).
func (t *Tree) GetRelativeLikelihood(hashPath []model.NodeID) float64 {
	if len(hashPath) == 0 {
		return 1.0
	}
	product := 1.0
	cur := t.root
	for _, id := range hashPath[1:] {
		child, ok := cur.children[id]
		if !ok {
			// Not yet expanded: treat as neutral (assume it will be
			// admitted at full weight until proven otherwise).
			return product
		}
		product *= child.RelLikelihood
		if product == 0 {
			return 0
		}
		cur = child
	}
	return product
}

// Expand installs children under node keyed by id with the given
// opponent-rollout values, then normalises their RelLikelihood shares
// (spec §4.3/§4.4.1 step 3). Re-expanding an already-expanded node with
// the same surviving set is idempotent: values and shares are simply
// recomputed to the same numbers (Testable Property §8.4).
func (t *Tree) Expand(node *Node, childValues map[model.NodeID]float64) {
	if node.children == nil {
		node.children = make(map[model.NodeID]*Node)
	}
	for id, value := range childValues {
		child, ok := node.children[id]
		if !ok {
			child = &Node{ID: id, Parent: node, children: make(map[model.NodeID]*Node)}
			node.children[id] = child
			node.order = append(node.order, id)
			t.arena.Add(id, child)
		}
		child.Value = value
	}
	node.expanded = true
	t.updateRelLikelihood(node)
}

// UpdateRelLikelihood recomputes node's children's normalised shares
// from their current values (spec §4.3), used when a child's value is
// zeroed out by an observed inconsistency (a bad move proven at that
// node). Exported so the Sampler can call it directly after mutating a
// child's Value.
func (t *Tree) UpdateRelLikelihood(node *Node) { t.updateRelLikelihood(node) }

func (t *Tree) updateRelLikelihood(node *Node) {
	total := 0.0
	for _, id := range node.order {
		total += node.children[id].Value
	}
	for _, id := range node.order {
		child := node.children[id]
		if total > 0 {
			child.RelLikelihood = child.Value / total
		} else {
			child.RelLikelihood = 0.0
		}
	}
}

// ZeroOut sets child's value to zero (it has been proven inconsistent)
// and renormalises its siblings under parent.
func (t *Tree) ZeroOut(parent, child *Node) {
	child.Value = 0
	t.updateRelLikelihood(parent)
}
