package board

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/itohio/gomics/pkg/config"
	"github.com/itohio/gomics/pkg/mics6814"
)

// Mock simulates a MiCS-6814 behind a converter with maxCode steps for
// testing and development.
//
// Time is simulated: it advances only through Delay, so a calibration run
// is deterministic regardless of how fast the host is. With RealTime set,
// Delay also sleeps.
type Mock struct {
	cfg     *config.MockConfig
	pins    mics6814.Pins
	maxCode uint16

	mu        sync.Mutex
	connected bool
	heater    bool
	now       time.Duration // Simulated time
	heatedAt  time.Duration // Simulated time the heater was switched on
	ppm       [mics6814.NumGases]float32
	rnd       *rand.Rand
	err       error
}

// NewMock creates a simulated sensor wired to pins. maxCode is the divider
// asymptote the driver is configured with; 0 selects MaxCode.
func NewMock(cfg *config.MockConfig, pins mics6814.Pins, maxCode uint16) *Mock {
	if cfg == nil {
		def := config.Default().Mock
		cfg = &def
	}
	if maxCode == 0 {
		maxCode = MaxCode
	}

	seed := uint64(cfg.Seed)
	return &Mock{
		cfg:     cfg,
		pins:    pins,
		maxCode: maxCode,
		rnd:     rand.New(rand.NewPCG(seed, seed)),
	}
}

// Connect simulates connecting to the board. The heater starts on.
func (m *Mock) Connect() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.connected {
		return fmt.Errorf("already connected")
	}

	m.connected = true
	m.heater = true
	m.heatedAt = m.now

	return nil
}

// Close stops the simulated board.
func (m *Mock) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.connected = false
	m.heater = false

	return nil
}

// IsConnected returns whether the board is currently connected.
func (m *Mock) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

// SetHeater switches the simulated heater. Switching it on restarts the
// warm-up.
func (m *Mock) SetHeater(on bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.connected {
		return ErrNotConnected
	}
	if on && !m.heater {
		m.heatedAt = m.now
	}
	m.heater = on

	return nil
}

// SetConcentration exposes the sensor to ppm of g. Zero means clean air.
func (m *Mock) SetConcentration(g mics6814.Gas, ppm float32) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if g < mics6814.NumGases {
		m.ppm[g] = ppm
	}
}

// Now returns the simulated time since the mock was created.
func (m *Mock) Now() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Delay advances simulated time by d.
func (m *Mock) Delay(d time.Duration) {
	m.mu.Lock()
	m.now += d
	m.mu.Unlock()

	if m.cfg.RealTime {
		time.Sleep(d)
	}
}

// ReadAnalog returns the simulated code of the channel wired to pin.
func (m *Mock) ReadAnalog(pin mics6814.Pin) uint16 {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.connected {
		m.record(ErrNotConnected)
		return 0
	}

	ch, ok := m.channel(pin)
	if !ok {
		m.record(fmt.Errorf("%w %d", ErrUnknownPin, pin))
		return 0
	}

	v := m.level(ch)
	if m.cfg.NoiseLevel > 0 {
		v += (m.rnd.Float64()*2 - 1) * m.cfg.NoiseLevel
	}

	return clampCode(v, m.maxCode)
}

// Err returns the first sampling error since the previous call.
func (m *Mock) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	err := m.err
	m.err = nil
	return err
}

func (m *Mock) record(err error) {
	if m.err == nil {
		m.err = err
	}
}

func (m *Mock) channel(pin mics6814.Pin) (mics6814.Channel, bool) {
	for _, ch := range mics6814.Channels {
		if p, _ := m.pins.Pin(ch); p == pin {
			return ch, true
		}
	}
	return 0, false
}

// level returns the noiseless code of ch at the current simulated time.
func (m *Mock) level(ch mics6814.Channel) float64 {
	start := float64(m.cfg.Start.Get(ch))
	if !m.heater {
		return start
	}

	// Exponential warm-up from the cold reading towards clean air.
	clean := float64(m.cfg.CleanAir.Get(ch))
	v := clean
	if tau := m.cfg.WarmupTau.Seconds(); tau > 0 {
		t := (m.now - m.heatedAt).Seconds()
		v = clean + (start-clean)*math.Exp(-t/tau)
	}

	for _, g := range mics6814.Gases {
		if g.Channel() != ch || m.ppm[g] <= 0 {
			continue
		}
		curve, _ := mics6814.CurveFor(g)
		v = codeForRatio(float64(curve.Inverse(m.ppm[g])), v, float64(m.maxCode))
	}
	return v
}

// codeForRatio solves r/b * (M-b)/(M-r) = ratio for r, M being full.
func codeForRatio(ratio, base, full float64) float64 {
	return ratio * base * full / (full - base + ratio*base)
}

// clampCode rounds v into [0, maxCode).
func clampCode(v float64, maxCode uint16) uint16 {
	v = math.Round(v)
	if v < 0 {
		return 0
	}
	if v > float64(maxCode-1) {
		return maxCode - 1
	}
	return uint16(v)
}
