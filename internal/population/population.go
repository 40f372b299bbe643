// Package population implements the Population Manager (spec §4.5): cap
// enforcement and the diversity filter that keeps a hypergame population
// from collapsing onto near-duplicate trajectories once it outgrows its
// cap.
package population

import (
	"strings"

	"github.com/google/go-cmp/cmp"

	"github.com/hailam/hyperplay/internal/likelihood"
	"github.com/hailam/hyperplay/internal/model"
)

// Posterior returns model m's posterior probability: its relative
// likelihood normalised against the sum across models. If the sum is
// zero (every model's hash path runs through a node with a zero relative
// likelihood), the degenerate fallback is a uniform weight of 1.0 for
// every model rather than a divide-by-zero. Unexpanded path segments
// count as 1.0, so models on a fresh tree share the weight evenly.
func Posterior(m *model.Model, tree *likelihood.Tree, models []*model.Model) float64 {
	sum := 0.0
	for _, other := range models {
		sum += tree.GetRelativeLikelihood(other.HashPath())
	}
	if sum <= 0 {
		return 1.0
	}
	return tree.GetRelativeLikelihood(m.HashPath()) / sum
}

// FilterByVariance implements spec §4.5's diversity filter: keep the
// single highest-posterior model, then repeatedly add whichever
// remaining model's current-state fluent set has the greatest symmetric
// difference from the union of fluent sets already chosen, breaking
// ties by higher posterior and then by original insertion order, until
// cap models are retained.
func FilterByVariance(models []*model.Model, tree *likelihood.Tree, cap int) []*model.Model {
	if len(models) <= cap {
		return models
	}

	posteriors := make([]float64, len(models))
	for i, m := range models {
		posteriors[i] = Posterior(m, tree, models)
	}

	bestIdx := 0
	for i := 1; i < len(models); i++ {
		if posteriors[i] > posteriors[bestIdx] {
			bestIdx = i
		}
	}

	chosen := []int{bestIdx}
	chosenSet := map[int]bool{bestIdx: true}
	union := fluentSet(models[bestIdx])

	for len(chosen) < cap && len(chosen) < len(models) {
		next := -1
		nextDiff := -1
		for i, m := range models {
			if chosenSet[i] {
				continue
			}
			diff := symmetricDiffSize(union, fluentSet(m))
			if diff > nextDiff ||
				(diff == nextDiff && next >= 0 && posteriors[i] > posteriors[next]) {
				next = i
				nextDiff = diff
			}
		}
		if next < 0 {
			break
		}
		chosen = append(chosen, next)
		chosenSet[next] = true
		for f := range fluentSet(models[next]) {
			union[f] = struct{}{}
		}
	}

	out := make([]*model.Model, 0, len(chosen))
	for _, i := range chosen {
		out = append(out, models[i])
	}
	return out
}

func fluentSet(m *model.Model) map[string]struct{} {
	fluents := m.CurrentState().Fluents()
	set := make(map[string]struct{}, len(fluents))
	for _, f := range fluents {
		set[f] = struct{}{}
	}
	return set
}

// symmetricDiffSize counts entries present in exactly one of a or b by
// counting the added/removed lines in a go-cmp structural diff between
// the two sets, rather than hand-rolling a set-difference routine.
func symmetricDiffSize(a, b map[string]struct{}) int {
	diff := cmp.Diff(a, b)
	if diff == "" {
		return 0
	}
	count := 0
	for _, line := range strings.Split(diff, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "+") || strings.HasPrefix(trimmed, "-") {
			count++
		}
	}
	return count
}
