package sample

import (
	"testing"
	"time"

	"github.com/itohio/gomics/pkg/mics6814"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDownsampleSamples_NoDownsampling(t *testing.T) {
	now := time.Now()
	samples := []Sample{
		makeSample(now, 1.0, 0.1, 2.0),
		makeSample(now.Add(100*time.Millisecond), 1.1, 0.1, 2.0),
		makeSample(now.Add(200*time.Millisecond), 1.2, 0.1, 2.0),
	}

	// Test with nil dst
	result := DownsampleSamples(nil, samples, 10)
	require.Equal(t, 3, len(result))
	assert.Equal(t, samples, result)

	// Test with sufficient capacity dst
	dst := make([]Sample, 0, 10)
	result = DownsampleSamples(dst, samples, 10)
	require.Equal(t, 3, len(result))
	assert.Equal(t, samples, result)
	// Should reuse dst
	assert.Equal(t, cap(dst), cap(result))
}

func TestDownsampleSamples_WithDownsampling(t *testing.T) {
	now := time.Now()
	samples := make([]Sample, 100)
	for i := range samples {
		samples[i] = makeSample(now.Add(time.Duration(i)*time.Second), float32(i), 0, 0)
	}

	dst := make([]Sample, 0, 20)
	result := DownsampleSamples(dst, samples, 10)
	require.Equal(t, 10, len(result))

	// Points start their buckets and carry the bucket peak
	for i, p := range result {
		assert.Equal(t, samples[i*10].Timestamp, p.Timestamp)
		assert.Equal(t, float32(i*10+9), p.Concentration[mics6814.CO])
	}
	assert.Equal(t, 20, cap(result))
}

func TestDownsampleSamples_KeepsSpike(t *testing.T) {
	now := time.Now()
	samples := make([]Sample, 1000)
	for i := range samples {
		samples[i] = makeSample(now.Add(time.Duration(i)*time.Second), 1, 0.1, 0.5)
	}
	samples[537].Concentration[mics6814.NO2] = 8

	result := DownsampleSamples(nil, samples, 100)
	require.Len(t, result, 100)

	var spikes int
	for _, p := range result {
		if p.Concentration[mics6814.NO2] == 8 {
			spikes++
		}
		assert.Equal(t, float32(1), p.Concentration[mics6814.CO])
	}
	assert.Equal(t, 1, spikes)
	assert.Equal(t, float32(8), result[53].Concentration[mics6814.NO2])
}

func TestDownsampleSamples_InvalidValues(t *testing.T) {
	now := time.Now()
	samples := []Sample{
		makeSample(now, mics6814.Invalid, mics6814.Invalid, 3),
		makeSample(now.Add(time.Second), 2, mics6814.Invalid, mics6814.Invalid),
		makeSample(now.Add(2*time.Second), 5, 0.2, 1),
		makeSample(now.Add(3*time.Second), mics6814.Invalid, 0.4, 2),
	}

	result := DownsampleSamples(nil, samples, 2)
	require.Len(t, result, 2)

	// Invalid never wins over a valid value
	assert.Equal(t, float32(2), result[0].Concentration[mics6814.CO])
	assert.Equal(t, mics6814.Invalid, result[0].Concentration[mics6814.NO2])
	assert.Equal(t, float32(3), result[0].Concentration[mics6814.NH3])

	assert.Equal(t, float32(5), result[1].Concentration[mics6814.CO])
	assert.Equal(t, float32(0.4), result[1].Concentration[mics6814.NO2])
	assert.Equal(t, float32(2), result[1].Concentration[mics6814.NH3])
	assert.Equal(t, samples[2].Timestamp, result[1].Timestamp)
}

func TestDownsampleSamples_EmptyInput(t *testing.T) {
	result := DownsampleSamples(nil, nil, 10)
	assert.Empty(t, result)
}

func TestDownsampleSamples_ExactMaxPoints(t *testing.T) {
	now := time.Now()
	samples := make([]Sample, 10)
	for i := range samples {
		samples[i] = makeSample(now.Add(time.Duration(i)*time.Second), float32(i), 0, 0)
	}

	result := DownsampleSamples(nil, samples, 10)
	assert.Equal(t, samples, result)
}
