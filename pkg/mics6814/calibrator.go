package mics6814

import "fmt"

// State is the phase of a Calibrator.
type State uint8

const (
	// Sampling waits for the next round of readings.
	Sampling State = iota
	// Evaluating is held while a round is folded into the windows.
	Evaluating
	// Continue means the last round left at least one channel unstable.
	Continue
	// Converged means all channels were stable in the same round.
	Converged
)

func (s State) String() string {
	switch s {
	case Sampling:
		return "sampling"
	case Evaluating:
		return "evaluating"
	case Continue:
		return "continue"
	case Converged:
		return "converged"
	}
	return fmt.Sprintf("State(%d)", uint8(s))
}

// window is the ring of the last readings of one channel.
type window struct {
	buf []accumulator
	sum accumulator
}

// Calibrator decides when the three channels reached clean-air equilibrium.
// It is fed one round of readings per tick and never samples by itself, so
// it can be driven by a blocking loop or by an external scheduler.
type Calibrator struct {
	size      int
	tolerance uint16

	windows [NumChannels]window
	pos     int
	stable  [NumChannels]bool
	rounds  int
	state   State
}

// NewCalibrator creates a calibrator over size readings per channel. The
// caller must make sure size*maxReading fits into 16 bits; New does this for
// the driver.
func NewCalibrator(size int, tolerance uint16) *Calibrator {
	if size <= 0 {
		size = 1
	}
	c := &Calibrator{size: size, tolerance: tolerance}
	for i := range c.windows {
		c.windows[i].buf = make([]accumulator, size)
	}
	return c
}

// Reset empties all windows and returns to Sampling.
func (c *Calibrator) Reset() {
	for i := range c.windows {
		clear(c.windows[i].buf)
		c.windows[i].sum = 0
	}
	c.pos = 0
	c.stable = [NumChannels]bool{}
	c.rounds = 0
	c.state = Sampling
}

// Observe folds one round of readings into the windows and returns the new
// state. After Converged further rounds keep being evaluated; the result
// reflects the latest round only.
func (c *Calibrator) Observe(r Readings) State {
	c.state = Evaluating

	all := true
	for ch := range c.windows {
		w := &c.windows[ch]
		cur := accumulator(r[ch])

		// Drop the reading about to be overwritten.
		w.sum = w.sum + cur - w.buf[c.pos]
		w.buf[c.pos] = cur

		avg := int(w.sum) / c.size
		diff := avg - int(cur)
		if diff < 0 {
			diff = -diff
		}
		c.stable[ch] = diff < int(c.tolerance)
		all = all && c.stable[ch]
	}
	c.pos = (c.pos + 1) % c.size
	c.rounds++

	if all {
		c.state = Converged
	} else {
		c.state = Continue
	}
	return c.state
}

// State returns the current phase.
func (c *Calibrator) State() State {
	return c.state
}

// Rounds returns the number of observed rounds.
func (c *Calibrator) Rounds() int {
	return c.rounds
}

// Stable reports whether ch was stable in the last round.
func (c *Calibrator) Stable(ch Channel) bool {
	if !ch.Valid() {
		return false
	}
	return c.stable[ch]
}

// Average returns the trailing average of ch.
func (c *Calibrator) Average(ch Channel) uint16 {
	if !ch.Valid() {
		return 0
	}
	return uint16(int(c.windows[ch].sum) / c.size)
}

// Baseline returns the trailing averages of all channels. It is meaningful
// once the state is Converged.
func (c *Calibrator) Baseline() BaselineSet {
	return BaselineSet{
		Reducing:  c.Average(Reducing),
		Oxidizing: c.Average(Oxidizing),
		Ammonia:   c.Average(Ammonia),
	}
}
