package agent

import "time"

// TimeBudget derives the two deadlines spec §5 requires every turn to
// poll against: the full-turn deadline (`timeLimit`) and the narrower
// deadline the Sampler's search-for-more step gets to work with
// (`stateUpdateTimeLimit`). Ported from the teacher's TimeManager
// (optimum/maximum time split), collapsed to the two-deadline shape §5
// actually calls for since there is no iterative-deepening stability
// signal to adjust against here.
type TimeBudget struct {
	startTime            time.Time
	timeLimit            time.Duration
	stateUpdateTimeLimit time.Duration
}

// NewTimeBudget computes both deadlines from the play clock: timeLimit =
// playClock - buffer; stateUpdateTimeLimit = playClock / invPlaytimeFactor.
// invPlaytimeFactor ≤ 0 is treated as 1 (the whole clock is available to
// state update).
func NewTimeBudget(playClock, buffer time.Duration, invPlaytimeFactor int) *TimeBudget {
	if invPlaytimeFactor <= 0 {
		invPlaytimeFactor = 1
	}
	limit := playClock - buffer
	if limit < 0 {
		limit = 0
	}
	return &TimeBudget{
		startTime:            time.Now(),
		timeLimit:            limit,
		stateUpdateTimeLimit: playClock / time.Duration(invPlaytimeFactor),
	}
}

// Elapsed returns the time elapsed since the turn started.
func (tb *TimeBudget) Elapsed() time.Duration { return time.Since(tb.startTime) }

// StateUpdateDeadline is the absolute deadline the Sampler's
// search-for-more step must stop seeding new hypergames by.
func (tb *TimeBudget) StateUpdateDeadline() time.Time {
	return tb.startTime.Add(tb.stateUpdateTimeLimit)
}

// TurnDeadline is the absolute deadline the whole turn — including the
// Evaluator — must return a move by.
func (tb *TimeBudget) TurnDeadline() time.Time {
	return tb.startTime.Add(tb.timeLimit)
}

// ShouldStopTurn reports whether the turn's total time budget is spent
// (spec I8).
func (tb *TimeBudget) ShouldStopTurn() bool {
	return tb.Elapsed() >= tb.timeLimit
}
