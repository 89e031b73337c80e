package board

import (
	"testing"
	"time"

	"github.com/itohio/gomics/pkg/config"
	"github.com/itohio/gomics/pkg/mics6814"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testPins = mics6814.Pins{Reducing: 1, Oxidizing: 0, Ammonia: 2}

func testMockConfig() *config.MockConfig {
	return &config.MockConfig{
		CleanAir:   mics6814.BaselineSet{Reducing: 520, Oxidizing: 180, Ammonia: 610},
		Start:      mics6814.BaselineSet{Reducing: 900, Oxidizing: 40, Ammonia: 950},
		WarmupTau:  3 * time.Second,
		NoiseLevel: 0,
		Seed:       1,
		RealTime:   false,
	}
}

func TestMock_NotConnected(t *testing.T) {
	m := NewMock(testMockConfig(), testPins, 0)

	assert.False(t, m.IsConnected())
	assert.Equal(t, uint16(0), m.ReadAnalog(1))
	assert.ErrorIs(t, m.Err(), ErrNotConnected)
	assert.ErrorIs(t, m.SetHeater(true), ErrNotConnected)
}

func TestMock_ConnectTwice(t *testing.T) {
	m := NewMock(testMockConfig(), testPins, 0)

	require.NoError(t, m.Connect())
	assert.Error(t, m.Connect())
	require.NoError(t, m.Close())
	assert.False(t, m.IsConnected())
}

func TestMock_UnknownPin(t *testing.T) {
	m := NewMock(testMockConfig(), testPins, 0)
	require.NoError(t, m.Connect())

	assert.Equal(t, uint16(0), m.ReadAnalog(7))
	assert.ErrorIs(t, m.Err(), ErrUnknownPin)
}

func TestMock_WarmUp(t *testing.T) {
	m := NewMock(testMockConfig(), testPins, 0)
	require.NoError(t, m.Connect())

	assert.Equal(t, uint16(900), m.ReadAnalog(1))
	assert.Equal(t, uint16(40), m.ReadAnalog(0))

	m.Delay(time.Minute)
	assert.Equal(t, time.Minute, m.Now())
	assert.Equal(t, uint16(520), m.ReadAnalog(1))
	assert.Equal(t, uint16(180), m.ReadAnalog(0))
	assert.Equal(t, uint16(610), m.ReadAnalog(2))
	assert.NoError(t, m.Err())
}

func TestMock_HeaterOff(t *testing.T) {
	m := NewMock(testMockConfig(), testPins, 0)
	require.NoError(t, m.Connect())
	m.Delay(time.Minute)

	require.NoError(t, m.SetHeater(false))
	assert.Equal(t, uint16(900), m.ReadAnalog(1))

	// Warm-up starts over.
	require.NoError(t, m.SetHeater(true))
	assert.Equal(t, uint16(900), m.ReadAnalog(1))
	m.Delay(time.Minute)
	assert.Equal(t, uint16(520), m.ReadAnalog(1))
}

func TestMock_Noise(t *testing.T) {
	cfg := testMockConfig()
	cfg.NoiseLevel = 3
	m := NewMock(cfg, testPins, 0)
	require.NoError(t, m.Connect())
	m.Delay(time.Minute)

	for range 100 {
		assert.InDelta(t, 520, m.ReadAnalog(1), 3)
	}
}

func TestMock_Calibrate(t *testing.T) {
	m := NewMock(testMockConfig(), testPins, 0)
	require.NoError(t, m.Connect())

	d, err := mics6814.New(m, testPins, mics6814.DefaultOptions())
	require.NoError(t, err)

	d.Calibrate()

	b := d.Baseline()
	assert.InDelta(t, 520, b.Reducing, 3)
	assert.InDelta(t, 180, b.Oxidizing, 3)
	assert.InDelta(t, 610, b.Ammonia, 3)
	assert.True(t, d.Calibrated())
	assert.NoError(t, m.Err())
}

func TestMock_Concentration(t *testing.T) {
	m := NewMock(testMockConfig(), testPins, 0)
	require.NoError(t, m.Connect())
	m.Delay(10 * time.Minute)

	d, err := mics6814.New(m, testPins, mics6814.DefaultOptions())
	require.NoError(t, err)
	d.LoadCalibration(520, 180, 610)

	for _, ch := range mics6814.Channels {
		assert.InDelta(t, 1.0, d.Ratio(ch), 1e-6, ch.String())
	}

	m.SetConcentration(mics6814.CO, 10)
	m.SetConcentration(mics6814.NO2, 1)
	m.SetConcentration(mics6814.NH3, 5)

	assert.InDelta(t, 10, d.Measure(mics6814.CO), 0.2)
	assert.InDelta(t, 1, d.Measure(mics6814.NO2), 0.05)
	assert.InDelta(t, 5, d.Measure(mics6814.NH3), 0.1)

	m.SetConcentration(mics6814.CO, 0)
	assert.InDelta(t, 4.385, d.Measure(mics6814.CO), 1e-3)
}

func TestCodeForRatio(t *testing.T) {
	assert.InDelta(t, 300, codeForRatio(1, 300, MaxCode), 1e-9)
	r := codeForRatio(0.445829, 200, MaxCode)
	assert.InDelta(t, 100, r, 0.01)
	assert.Equal(t, uint16(0), clampCode(-4, MaxCode))
	assert.Equal(t, uint16(MaxCode-1), clampCode(5000, MaxCode))
	assert.Equal(t, uint16(4094), clampCode(5000, 4095))
	assert.Equal(t, uint16(3000), clampCode(3000, 4095))
}

func TestMock_WideConverter(t *testing.T) {
	const maxCode = 4095
	cfg := testMockConfig()
	cfg.CleanAir = mics6814.BaselineSet{Reducing: 2080, Oxidizing: 720, Ammonia: 3000}
	m := NewMock(cfg, testPins, maxCode)
	require.NoError(t, m.Connect())
	m.Delay(10 * time.Minute)

	// Codes beyond the 10-bit range are not saturated
	assert.Equal(t, uint16(3000), m.ReadAnalog(2))

	opts := mics6814.DefaultOptions()
	opts.MaxCode = maxCode
	opts.Window = mics6814.MaxWindow(maxCode)
	d, err := mics6814.New(m, testPins, opts)
	require.NoError(t, err)
	d.LoadCalibration(2080, 720, 3000)

	for _, ch := range mics6814.Channels {
		assert.InDelta(t, 1.0, d.Ratio(ch), 1e-6, ch.String())
	}

	m.SetConcentration(mics6814.CO, 10)
	m.SetConcentration(mics6814.NO2, 1)
	m.SetConcentration(mics6814.NH3, 5)

	assert.InDelta(t, 10, d.Measure(mics6814.CO), 0.1)
	assert.InDelta(t, 1, d.Measure(mics6814.NO2), 0.02)
	assert.InDelta(t, 5, d.Measure(mics6814.NH3), 0.05)
	assert.NoError(t, m.Err())
}
