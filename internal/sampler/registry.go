package sampler

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/hailam/hyperplay/internal/model"
	"github.com/hailam/hyperplay/internal/rules"
)

// registryCap bounds the number of distinct nodes a BadMoves/InUseMoves
// registry tracks, mirroring the Likelihood Tree's arena sizing (Design
// Note §9).
const registryCap = 1 << 16

// registry maps a node id to the set of joint-move keys recorded against
// it (spec §3's BadMoves / InUseMoves). Keys are the joint move's
// deterministic Key() encoding so set membership doesn't depend on
// pointer identity.
type registry struct {
	cache *lru.Cache[model.NodeID, map[string]rules.JointMove]
	order []rules.Role
}

func newRegistry(order []rules.Role) *registry {
	c, err := lru.New[model.NodeID, map[string]rules.JointMove](registryCap)
	if err != nil {
		panic(err)
	}
	return &registry{cache: c, order: order}
}

// Add records joint at node. Once added, a joint move is never removed
// from a BadMoves registry (spec I5); InUseMoves entries are removed
// only by Release or wholesale by Sampler.ResetInUseMoves. The agent's
// turn loop does not call Release when a hypergame moves on or is
// retired, so its reservations stay until the next reset.
func (r *registry) Add(node model.NodeID, joint rules.JointMove) {
	set, ok := r.cache.Get(node)
	if !ok {
		set = make(map[string]rules.JointMove)
	}
	set[joint.Key(r.order)] = joint
	r.cache.Add(node, set)
}

// Release removes joint from node's set. No caller in this module uses
// it.
func (r *registry) Release(node model.NodeID, joint rules.JointMove) {
	set, ok := r.cache.Get(node)
	if !ok {
		return
	}
	delete(set, joint.Key(r.order))
}

// Contains reports whether joint is recorded at node.
func (r *registry) Contains(node model.NodeID, joint rules.JointMove) bool {
	set, ok := r.cache.Get(node)
	if !ok {
		return false
	}
	_, ok = set[joint.Key(r.order)]
	return ok
}

// Count returns the number of joint moves recorded at node.
func (r *registry) Count(node model.NodeID) int {
	set, ok := r.cache.Get(node)
	if !ok {
		return 0
	}
	return len(set)
}
