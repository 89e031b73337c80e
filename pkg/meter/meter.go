package meter

import (
	"sync"
	"time"

	"github.com/itohio/gomics/pkg/config"
	"github.com/itohio/gomics/pkg/mics6814"
	"github.com/itohio/gomics/pkg/sample"
	"github.com/rs/zerolog"
)

var _ GasMeter = (*Meter)(nil)

// Alarm is a run of consecutive samples where the concentration of a gas
// stayed at or above its threshold.
type Alarm struct {
	Gas        mics6814.Gas
	StartIndex int       // Start sample index in buffer (0 once the start left the window)
	EndIndex   int       // End sample index in buffer (updated while active)
	StartTime  time.Time // Start timestamp
	EndTime    time.Time // End timestamp (updated while active)
	Peak       float32   // Highest concentration seen, ppm
	Active     bool      // Concentration is still above threshold
}

// Duration returns the time between the first and last sample of the run.
func (a Alarm) Duration() time.Duration {
	return a.EndTime.Sub(a.StartTime)
}

// UpdateFunc receives the samples within the window and the alarms found in them.
type UpdateFunc func(samples []sample.Sample, alarms []Alarm)

// GasMeter processes samples, keeps a time window of history and detects alarms.
type GasMeter interface {
	ProcessSamples(input <-chan sample.Sample)
	Samples() []sample.Sample // Get current samples buffer (FIFO, ordered first to last)
	Alarms() []Alarm          // Get alarms within window
	OnUpdate(UpdateFunc)      // Register callback for updates
}

// Meter implements GasMeter.
// Samples are kept in a FIFO ordered first to last and removed by timestamp,
// not by count. Alarm indices always refer to that FIFO.
type Meter struct {
	log zerolog.Logger

	samples []sample.Sample
	alarms  []Alarm

	mu sync.RWMutex

	callbacks []UpdateFunc
	cbMu      sync.RWMutex

	windowDuration   time.Duration
	thresholds       config.Thresholds
	minAlarmDuration time.Duration

	// Set when the input channel closes, prevents further callbacks
	shutdown bool
}

// New creates a meter configured from cfg.Measurement.
func New(cfg *config.Config, log zerolog.Logger) *Meter {
	return &Meter{
		log:              log.With().Str("component", "meter").Logger(),
		samples:          make([]sample.Sample, 0),
		alarms:           make([]Alarm, 0),
		windowDuration:   time.Duration(cfg.Measurement.WindowSeconds * float64(time.Second)),
		thresholds:       cfg.Measurement.Thresholds,
		minAlarmDuration: cfg.Measurement.MinAlarmDuration,
	}
}

// ProcessSamples consumes input until it is closed.
// Once closed no more callbacks are made until ResetShutdown.
func (m *Meter) ProcessSamples(input <-chan sample.Sample) {
	for s := range input {
		if m.processSample(s) {
			m.notifyCallbacks()
		}
	}

	m.mu.Lock()
	m.shutdown = true
	m.mu.Unlock()
}

// processSample appends s, trims the window and updates alarms.
// Reports whether callbacks should be notified.
func (m *Meter) processSample(s sample.Sample) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.samples = append(m.samples, s)
	m.trim(s.Timestamp.Add(-m.windowDuration))
	m.updateAlarms()

	return !m.shutdown
}

// trim removes samples taken before cutoff and shifts alarm indices.
func (m *Meter) trim(cutoff time.Time) {
	cut := 0
	for cut < len(m.samples) && !m.samples[cut].Timestamp.After(cutoff) {
		cut++
	}
	if cut == 0 {
		return
	}
	if cut == len(m.samples) {
		// Keep the newest sample even with a zero window
		cut--
	}
	m.samples = m.samples[cut:]

	kept := m.alarms[:0]
	for _, a := range m.alarms {
		a.StartIndex -= cut
		a.EndIndex -= cut
		if a.EndIndex < 0 {
			continue
		}
		if a.StartIndex < 0 {
			a.StartIndex = 0
		}
		kept = append(kept, a)
	}
	m.alarms = kept
}

// updateAlarms extends, opens or closes the alarm of every gas using the
// newest sample.
func (m *Meter) updateAlarms() {
	last := len(m.samples) - 1
	s := m.samples[last]

	for _, g := range mics6814.Gases {
		threshold := m.thresholds.Get(g)
		idx := m.activeAlarm(g)
		above := threshold > 0 && s.Valid(g) && s.Concentration[g] >= threshold

		switch {
		case above && idx >= 0:
			a := &m.alarms[idx]
			a.EndIndex = last
			a.EndTime = s.Timestamp
			if s.Concentration[g] > a.Peak {
				a.Peak = s.Concentration[g]
			}
		case above:
			m.alarms = append(m.alarms, Alarm{
				Gas:        g,
				StartIndex: last,
				EndIndex:   last,
				StartTime:  s.Timestamp,
				EndTime:    s.Timestamp,
				Peak:       s.Concentration[g],
				Active:     true,
			})
			m.log.Warn().Stringer("gas", g).Float32("ppm", s.Concentration[g]).Float32("threshold", threshold).Msg("alarm raised")
		case idx >= 0:
			a := m.alarms[idx]
			if a.Duration() < m.minAlarmDuration {
				// Too short, treat as noise
				m.alarms = append(m.alarms[:idx], m.alarms[idx+1:]...)
				m.log.Debug().Stringer("gas", g).Dur("duration", a.Duration()).Msg("alarm discarded")
				continue
			}
			m.alarms[idx].Active = false
			m.log.Info().Stringer("gas", g).Float32("peak", a.Peak).Dur("duration", a.Duration()).Msg("alarm cleared")
		}
	}
}

// activeAlarm returns the index of the open alarm of g or -1.
func (m *Meter) activeAlarm(g mics6814.Gas) int {
	for i := len(m.alarms) - 1; i >= 0; i-- {
		if m.alarms[i].Gas == g && m.alarms[i].Active {
			return i
		}
	}
	return -1
}

// Samples returns a copy of the current samples buffer.
func (m *Meter) Samples() []sample.Sample {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]sample.Sample, len(m.samples))
	copy(result, m.samples)
	return result
}

// Alarms returns a copy of the current alarms.
func (m *Meter) Alarms() []Alarm {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]Alarm, len(m.alarms))
	copy(result, m.alarms)
	return result
}

// OnUpdate registers a callback that is called after every processed sample.
// The callback should copy what it needs and return quickly.
func (m *Meter) OnUpdate(callback UpdateFunc) {
	m.cbMu.Lock()
	defer m.cbMu.Unlock()
	m.callbacks = append(m.callbacks, callback)
}

// ResetShutdown allows callbacks again.
// Call it before starting a new measurement chain.
func (m *Meter) ResetShutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shutdown = false
}

// notifyCallbacks invokes all registered callbacks with copies of current data.
func (m *Meter) notifyCallbacks() {
	samples := m.Samples()
	alarms := m.Alarms()

	m.cbMu.RLock()
	callbacks := make([]UpdateFunc, len(m.callbacks))
	copy(callbacks, m.callbacks)
	m.cbMu.RUnlock()

	for _, cb := range callbacks {
		if cb != nil {
			cb(samples, alarms)
		}
	}
}
