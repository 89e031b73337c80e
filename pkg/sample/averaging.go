package sample

import (
	"github.com/itohio/gomics/pkg/mics6814"
)

// NewAveragingFilter creates a filter replacing the concentrations of every
// sample with their mean over the last windowSize samples. Invalid values
// are left out of the mean; a gas without any valid value in the window
// stays Invalid. Resistances and ratios are passed through.
func NewAveragingFilter(windowSize int, bufSize int) func(in <-chan Sample) <-chan Sample {
	if windowSize <= 0 {
		windowSize = 1 // No averaging if invalid
	}
	if bufSize <= 0 {
		bufSize = 100
	}

	return func(in <-chan Sample) <-chan Sample {
		out := make(chan Sample, bufSize)

		go func() {
			defer close(out)

			var buffer []Sample
			for s := range in {
				buffer = append(buffer, s)
				if len(buffer) > windowSize {
					buffer = buffer[1:] // Remove oldest
				}
				out <- averageSamples(buffer)
			}
		}()

		return out
	}
}

// averageSamples averages concentrations over samples.
// Uses the most recent sample for everything else.
func averageSamples(samples []Sample) Sample {
	if len(samples) == 0 {
		return Sample{}
	}

	avg := samples[len(samples)-1]
	for _, g := range mics6814.Gases {
		var sum float32
		var n int
		for _, s := range samples {
			if s.Valid(g) {
				sum += s.Concentration[g]
				n++
			}
		}
		if n == 0 {
			avg.Concentration[g] = mics6814.Invalid
			continue
		}
		avg.Concentration[g] = sum / float32(n)
	}

	return avg
}
