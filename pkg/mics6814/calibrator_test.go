package mics6814

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCalibrator_ConstantFillsWindow(t *testing.T) {
	c := NewCalibrator(10, 2)
	assert.Equal(t, Sampling, c.State())

	r := Readings{512, 300, 700}
	for i := 1; i < 10; i++ {
		assert.Equal(t, Continue, c.Observe(r), "round %d", i)
	}
	assert.Equal(t, Converged, c.Observe(r))
	assert.Equal(t, 10, c.Rounds())
	assert.Equal(t, BaselineSet{Reducing: 512, Oxidizing: 300, Ammonia: 700}, c.Baseline())
}

func TestCalibrator_AlternatingNeverStable(t *testing.T) {
	c := NewCalibrator(10, 2)

	const maxRounds = 5000
	for i := 0; i < maxRounds; i++ {
		v := uint16(400)
		if i%2 == 1 {
			v = 420
		}
		st := c.Observe(Readings{v, 300, 700})
		if !assert.NotEqual(t, Converged, st, "round %d", i) {
			return
		}
		assert.False(t, c.Stable(Reducing))
	}
	assert.True(t, c.Stable(Oxidizing))
	assert.True(t, c.Stable(Ammonia))
	assert.Equal(t, uint16(410), c.Average(Reducing))
}

func TestCalibrator_WaitsForAllChannels(t *testing.T) {
	c := NewCalibrator(4, 2)

	// OX keeps drifting for a while after RED and NH3 settled.
	ox := []uint16{100, 150, 200, 250, 300, 300, 300, 300}
	var states []State
	for _, v := range ox {
		states = append(states, c.Observe(Readings{500, v, 600}))
		if c.Rounds() >= 4 && c.Rounds() < 8 {
			assert.True(t, c.Stable(Reducing))
			assert.True(t, c.Stable(Ammonia))
		}
	}

	for _, st := range states[:7] {
		assert.Equal(t, Continue, st)
	}
	assert.Equal(t, Converged, states[7])
	assert.Equal(t, BaselineSet{Reducing: 500, Oxidizing: 300, Ammonia: 600}, c.Baseline())
}

func TestCalibrator_ToleranceIsStrict(t *testing.T) {
	c := NewCalibrator(2, 2)

	// Trailing average 101 against 100 and 102: difference 1 < 2.
	c.Observe(Readings{100, 100, 100})
	assert.Equal(t, Converged, c.Observe(Readings{102, 100, 100}))

	c = NewCalibrator(2, 2)
	// Trailing average 102 against 100 and 104: difference 2 is not < 2.
	c.Observe(Readings{100, 100, 100})
	assert.Equal(t, Continue, c.Observe(Readings{104, 100, 100}))
}

func TestCalibrator_FullScaleDoesNotOverflow(t *testing.T) {
	size := MaxWindow(DefaultMaxCode)
	c := NewCalibrator(size, 2)

	r := Readings{DefaultMaxCode, DefaultMaxCode, DefaultMaxCode}
	var st State
	for i := 0; i < 3*size; i++ {
		st = c.Observe(r)
	}
	assert.Equal(t, Converged, st)
	assert.Equal(t, uint16(DefaultMaxCode), c.Average(Reducing))
}

func TestCalibrator_Reset(t *testing.T) {
	c := NewCalibrator(2, 2)
	c.Observe(Readings{100, 100, 100})
	c.Observe(Readings{100, 100, 100})
	assert.Equal(t, Converged, c.State())

	c.Reset()
	assert.Equal(t, Sampling, c.State())
	assert.Zero(t, c.Rounds())
	assert.Equal(t, BaselineSet{}, c.Baseline())
	assert.False(t, c.Stable(Reducing))
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "sampling", Sampling.String())
	assert.Equal(t, "evaluating", Evaluating.String())
	assert.Equal(t, "continue", Continue.String())
	assert.Equal(t, "converged", Converged.String())
	assert.Equal(t, "State(9)", State(9).String())
}
