package voting

import "time"

// Tally counts votes per candidate within a single run. It records insertion
// order so that every tie — the max-other comparison and the plurality
// fallback — resolves to the first-inserted candidate instead of map
// iteration order. Not safe for concurrent use: the engine folds completions
// one at a time under the run's mutual exclusion.
type Tally struct {
	counts map[string]int
	order  []string
}

// NewTally creates an empty tally.
func NewTally() *Tally {
	return &Tally{counts: make(map[string]int)}
}

// Add counts one vote for candidate and returns its new total.
func (t *Tally) Add(candidate string) int {
	if _, ok := t.counts[candidate]; !ok {
		t.order = append(t.order, candidate)
	}
	t.counts[candidate]++
	return t.counts[candidate]
}

// Get returns the vote count for candidate, zero if absent. It never
// inserts, so a lookup cannot grow the tally with phantom candidates.
func (t *Tally) Get(candidate string) int {
	return t.counts[candidate]
}

// MaxOther returns the highest count among all candidates other than the
// given one, zero when there are no others.
func (t *Tally) MaxOther(candidate string) int {
	max := 0
	for _, c := range t.order {
		if c != candidate && t.counts[c] > max {
			max = t.counts[c]
		}
	}
	return max
}

// Leader returns the candidate with the most votes; among equals the
// first-inserted wins. Count is zero when the tally is empty.
func (t *Tally) Leader() (string, int) {
	leader, best := "", 0
	for _, c := range t.order {
		if t.counts[c] > best {
			leader, best = c, t.counts[c]
		}
	}
	return leader, best
}

// Len returns the number of distinct candidates.
func (t *Tally) Len() int { return len(t.counts) }

// Counts returns a copy of the candidate→count mapping.
func (t *Tally) Counts() map[string]int {
	out := make(map[string]int, len(t.counts))
	for c, n := range t.counts {
		out[c] = n
	}
	return out
}

// State is the per-run voting record. It is created at run start, mutated
// only by the owning run, and returned to the caller when the run finishes.
type State struct {
	RunID           string        `json:"run_id"`
	Tally           *Tally        `json:"-"`
	TotalSamples    int           `json:"total_samples"`
	ValidSamples    int           `json:"valid_samples"`
	RedFlagged      int           `json:"red_flagged"`
	BatchRounds     int           `json:"batch_rounds"`
	EarlyTerminated bool          `json:"early_terminated"`
	Elapsed         time.Duration `json:"elapsed"`
}

// Votes returns a snapshot of the vote distribution.
func (s *State) Votes() map[string]int {
	if s.Tally == nil {
		return map[string]int{}
	}
	return s.Tally.Counts()
}
