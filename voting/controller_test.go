package voting

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestControllerMarginRule(t *testing.T) {
	tests := []struct {
		name    string
		votes   map[string]int
		check   string
		k       int
		wantWin bool
	}{
		{
			name:    "sole candidate reaches k",
			votes:   map[string]int{"a": 3},
			check:   "a",
			k:       3,
			wantWin: true,
		},
		{
			name:    "sole candidate below k",
			votes:   map[string]int{"a": 2},
			check:   "a",
			k:       3,
			wantWin: false,
		},
		{
			name:    "k=1 first valid vote wins",
			votes:   map[string]int{"a": 1},
			check:   "a",
			k:       1,
			wantWin: true,
		},
		{
			name:    "ahead by exactly k",
			votes:   map[string]int{"a": 5, "b": 2},
			check:   "a",
			k:       3,
			wantWin: true,
		},
		{
			name:    "ahead by k-1",
			votes:   map[string]int{"a": 4, "b": 2},
			check:   "a",
			k:       3,
			wantWin: false,
		},
		{
			name:    "three to one wins at k=2",
			votes:   map[string]int{"4": 3, "3": 1},
			check:   "4",
			k:       2,
			wantWin: true,
		},
		{
			name:    "margin measured against strongest rival",
			votes:   map[string]int{"a": 5, "b": 1, "c": 3},
			check:   "a",
			k:       3,
			wantWin: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tally := NewTally()
			for cand, n := range tt.votes {
				for i := 0; i < n; i++ {
					tally.Add(cand)
				}
			}
			ctrl := NewController()

			won := ctrl.CheckAndSetWinner(tt.check, tally, tt.k)
			assert.Equal(t, tt.wantWin, won)

			winner, terminated := ctrl.Winner()
			assert.Equal(t, tt.wantWin, terminated)
			if tt.wantWin {
				assert.Equal(t, tt.check, winner)
			}
		})
	}
}

func TestControllerCheckAfterTermination(t *testing.T) {
	tally := NewTally()
	tally.Add("a")
	ctrl := NewController()

	require.True(t, ctrl.CheckAndSetWinner("a", tally, 1))

	// A candidate that would also satisfy the margin cannot displace the
	// existing winner.
	for i := 0; i < 10; i++ {
		tally.Add("b")
	}
	assert.False(t, ctrl.CheckAndSetWinner("b", tally, 1))

	winner, _ := ctrl.Winner()
	assert.Equal(t, "a", winner)
}

func TestControllerForceTerminateOnce(t *testing.T) {
	ctrl := NewController()

	assert.True(t, ctrl.ForceTerminate("fallback"))
	assert.False(t, ctrl.ForceTerminate("other"))
	assert.False(t, ctrl.CheckAndSetWinner("other", NewTally(), 0))

	winner, terminated := ctrl.Winner()
	assert.True(t, terminated)
	assert.Equal(t, "fallback", winner)
}

func TestControllerConcurrentAtMostOneWinner(t *testing.T) {
	const goroutines = 64

	ctrl := NewController()
	tally := NewTally()
	// Pre-fill so every candidate satisfies the margin on its own.
	for i := 0; i < goroutines; i++ {
		tally.Add(fmt.Sprintf("c%d", i))
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			var won bool
			if i%2 == 0 {
				mu.Lock()
				won = ctrl.CheckAndSetWinner(fmt.Sprintf("c%d", i), tally, 1)
				mu.Unlock()
			} else {
				won = ctrl.ForceTerminate(fmt.Sprintf("c%d", i))
			}
			if won {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, wins, "exactly one caller may claim the transition")
	_, terminated := ctrl.Winner()
	assert.True(t, terminated)
}

// The margin rule, checked after every vote: the first candidate to lead all
// rivals by k wins, and once set the winner never changes no matter how the
// tally evolves.
func TestControllerMarginProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		k := rapid.IntRange(1, 5).Draw(t, "k")
		numCandidates := rapid.IntRange(1, 4).Draw(t, "candidates")
		votes := rapid.SliceOfN(rapid.IntRange(0, numCandidates-1), 1, 60).Draw(t, "votes")

		tally := NewTally()
		ctrl := NewController()

		for _, v := range votes {
			cand := fmt.Sprintf("c%d", v)
			tally.Add(cand)
			if ctrl.CheckAndSetWinner(cand, tally, k) {
				// At the moment of victory the margin must hold.
				if tally.Get(cand) < k+tally.MaxOther(cand) {
					t.Fatalf("winner %q declared without margin: %d < %d+%d",
						cand, tally.Get(cand), k, tally.MaxOther(cand))
				}
			}
		}

		if winner, ok := ctrl.Winner(); ok {
			// Later votes may erode the margin; the decision must not flip.
			for _, v := range votes {
				if cand := fmt.Sprintf("c%d", v); cand != winner {
					ctrl.CheckAndSetWinner(cand, tally, k)
				}
			}
			final, _ := ctrl.Winner()
			if final != winner {
				t.Fatalf("winner changed from %q to %q", winner, final)
			}
		}
	})
}
