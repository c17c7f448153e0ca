package voting

import "sync"

// Controller holds a run's winner decision. Across arbitrarily many
// concurrent callers, exactly one CheckAndSetWinner or ForceTerminate call
// ever transitions terminated false→true; every later call is a no-op that
// returns false. Once terminated, the winner is immutable.
type Controller struct {
	mu         sync.Mutex
	winner     string
	terminated bool
}

// NewController creates an untriggered controller.
func NewController() *Controller {
	return &Controller{}
}

// CheckAndSetWinner applies the first-to-ahead-by-k margin rule: candidate
// wins when its count leads every rival by at least k. The check runs after
// every newly counted valid vote, so a winner is declared the moment it is
// mathematically certain.
func (c *Controller) CheckAndSetWinner(candidate string, tally *Tally, k int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.terminated {
		return false
	}

	if tally.Get(candidate) >= k+tally.MaxOther(candidate) {
		c.winner = candidate
		c.terminated = true
		return true
	}
	return false
}

// ForceTerminate installs a fallback winner without the margin check, used
// for the plurality fallback at exhaustion. Returns false if the run already
// has a winner.
func (c *Controller) ForceTerminate(winner string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.terminated {
		return false
	}
	c.winner = winner
	c.terminated = true
	return true
}

// Terminated reports whether a winner has been set.
func (c *Controller) Terminated() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.terminated
}

// Winner returns the winner and whether one has been set.
func (c *Controller) Winner() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.winner, c.terminated
}
