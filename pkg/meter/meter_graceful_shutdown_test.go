package meter

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/itohio/gomics/pkg/config"
	"github.com/itohio/gomics/pkg/sample"
	"github.com/stretchr/testify/assert"
)

// TestMeter_GracefulShutdown_NoCallbacksAfterClose tests that meter stops sending
// callbacks after the input channel is closed.
func TestMeter_GracefulShutdown_NoCallbacksAfterClose(t *testing.T) {
	m := newTestMeter(config.Default())

	var count atomic.Int32
	m.OnUpdate(func(samples []sample.Sample, alarms []Alarm) {
		count.Add(1)
	})

	input := make(chan sample.Sample, 10)
	done := make(chan struct{})
	go func() {
		m.ProcessSamples(input)
		close(done)
	}()

	now := time.Now()
	for i := range 3 {
		input <- makeSample(now.Add(time.Duration(i)*time.Second), float32(i), 0, 0)
	}
	close(input)

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("ProcessSamples did not return after input closed")
	}
	assert.Equal(t, int32(3), count.Load())

	// Samples processed after shutdown are stored but not reported
	assert.False(t, m.processSample(makeSample(now.Add(3*time.Second), 3, 0, 0)))
	assert.Len(t, m.Samples(), 4)
	assert.Equal(t, int32(3), count.Load())
}

// TestMeter_ResetShutdown tests that a new chain can be started after shutdown.
func TestMeter_ResetShutdown(t *testing.T) {
	m := newTestMeter(config.Default())

	var count atomic.Int32
	m.OnUpdate(func(samples []sample.Sample, alarms []Alarm) {
		count.Add(1)
	})

	first := make(chan sample.Sample)
	close(first)
	m.ProcessSamples(first)

	m.ResetShutdown()

	second := make(chan sample.Sample, 1)
	second <- makeSample(time.Now(), 1, 0, 0)
	close(second)
	m.ProcessSamples(second)

	assert.Equal(t, int32(1), count.Load())
}
