package sampler

import (
	"github.com/hailam/hyperplay/internal/model"
	"github.com/hailam/hyperplay/internal/rules"
)

// RetroactiveConsistency implements spec §4.4.2: at turn start, if the
// agent expected to play a different move at step-1 than the Controller
// actually allowed, the expected move becomes blacklisted for step-1,
// and every hypergame whose recorded legal-move set at step-1 admits the
// blacklisted move (or lacks the whitelisted one) is dropped.
//
// Only the immediately preceding step is inspected — the spec leaves
// open whether earlier mispredictions should cascade, and this
// implementation takes the conservative literal reading (see DESIGN.md,
// Open Question 2): no cascading.
func RetroactiveConsistency(models []*model.Model, step int, expected, actual rules.Move, blacklist, whitelist map[int]rules.Move) []*model.Model {
	if step <= 0 {
		return models
	}
	prevStep := step - 1
	if expected == nil || actual == nil || expected.String() == actual.String() {
		return models
	}
	blacklist[prevStep] = expected
	whitelist[prevStep] = actual

	kept := make([]*model.Model, 0, len(models))
	for _, m := range models {
		legal := m.LegalMovesAt(prevStep)
		if legal == nil {
			// No recorded legal-move set for this step yet; nothing to
			// check against, keep the model.
			kept = append(kept, m)
			continue
		}
		if containsMove(legal, expected) {
			continue // admits the blacklisted move
		}
		if !containsMove(legal, actual) {
			continue // lacks the whitelisted move
		}
		kept = append(kept, m)
	}
	return kept
}
