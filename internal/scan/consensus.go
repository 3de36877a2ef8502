package scan

// DefaultThreshold is the number of consecutive identical reads that
// confirm a label.
const DefaultThreshold = 3

// Consensus confirms a label once the same value has been read Threshold
// times in a row. A different value clears the streak and is discarded
// rather than adopted as the new candidate.
type Consensus struct {
	threshold int
	candidate string
	count     int
}

// NewConsensus creates a consensus with the given threshold; values below
// one fall back to DefaultThreshold.
func NewConsensus(threshold int) *Consensus {
	if threshold < 1 {
		threshold = DefaultThreshold
	}
	return &Consensus{threshold: threshold}
}

// Observe feeds one matched value and reports whether it confirmed the
// candidate. Frames without a match must not be fed at all; skipping them
// leaves the streak untouched.
func (c *Consensus) Observe(v string) bool {
	switch {
	case c.count == 0:
		c.candidate = v
		c.count = 1
	case v != c.candidate:
		c.candidate = ""
		c.count = 0
		return false
	default:
		c.count++
	}
	return c.count >= c.threshold
}

// Candidate returns the current candidate and its streak length.
func (c *Consensus) Candidate() (string, int) {
	return c.candidate, c.count
}

// Threshold returns the confirmation threshold.
func (c *Consensus) Threshold() int {
	return c.threshold
}

// Reset clears the streak.
func (c *Consensus) Reset() {
	c.candidate = ""
	c.count = 0
}
