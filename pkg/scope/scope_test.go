package scope

import (
	"testing"
	"time"

	"github.com/itohio/gomics/pkg/config"
	"github.com/itohio/gomics/pkg/mics6814"
	"github.com/itohio/gomics/pkg/sample"
	"github.com/stretchr/testify/assert"
)

func TestDecadeRange(t *testing.T) {
	now := time.Now()
	s := sample.Sample{Timestamp: now}
	s.Concentration = [mics6814.NumGases]float32{150, 0.005, mics6814.Invalid}

	tests := []struct {
		name       string
		samples    []sample.Sample
		thresholds config.Thresholds
		lo, hi     float32
	}{
		{"empty", nil, config.Thresholds{}, 0, 1},
		{"thresholds only", nil, config.Default().Measurement.Thresholds, 0, 2},
		{"samples clamp low values", []sample.Sample{s}, config.Thresholds{}, -2, 3},
		{"single decade", nil, config.Thresholds{CO: 10}, 1, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lo, hi := decadeRange(tt.samples, tt.thresholds)
			assert.Equal(t, tt.lo, lo)
			assert.Equal(t, tt.hi, hi)
		})
	}
}

func TestLogFraction(t *testing.T) {
	assert.InDelta(t, 0.0, logFraction(1, 0, 2), 1e-6)
	assert.InDelta(t, 0.5, logFraction(10, 0, 2), 1e-6)
	assert.InDelta(t, 1.0, logFraction(100, 0, 2), 1e-6)
	// Clamped to the plot
	assert.Equal(t, float32(1), logFraction(1e6, 0, 2))
	assert.Equal(t, float32(0), logFraction(0, 0, 2))
}

func TestFormatPPM(t *testing.T) {
	assert.Equal(t, "350 ppm", formatPPM(350))
	assert.Equal(t, "11.4 ppm", formatPPM(11.366))
	assert.Equal(t, "0.74 ppm", formatPPM(0.73766))
}

func TestFormatTime(t *testing.T) {
	assert.Equal(t, "30s", formatTime(30*time.Second))
	assert.Equal(t, "5.0m", formatTime(5*time.Minute))
}
