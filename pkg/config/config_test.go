package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/itohio/gomics/pkg/mics6814"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.NotNil(t, cfg)
	assert.Equal(t, "COM3", cfg.Serial.Port)
	assert.Equal(t, 115200, cfg.Serial.BaudRate)
	assert.Equal(t, uint16(1023), cfg.ADC.MaxCode)
	assert.Equal(t, 10, cfg.Calibration.Window)
	assert.Equal(t, uint16(2), cfg.Calibration.Tolerance)
	assert.Equal(t, time.Second, cfg.Calibration.Interval)
	assert.Equal(t, 50*time.Millisecond, cfg.Calibration.Settle)
	assert.Equal(t, 3, cfg.Calibration.Burst)
	assert.Equal(t, 100, cfg.Measurement.Burst)
	assert.Equal(t, 2*time.Millisecond, cfg.Measurement.Spacing)
	assert.Nil(t, cfg.Calibration.Baseline)
	assert.Equal(t, uint16(0x49), cfg.Enviro.Address)
}

func TestDefault_DriverOptions(t *testing.T) {
	cfg := Default()

	opts := cfg.DriverOptions()
	require.NoError(t, opts.Validate())
	assert.Equal(t, mics6814.DefaultOptions(), opts)

	assert.Equal(t, mics6814.Pins{Reducing: 1, Oxidizing: 0, Ammonia: 2}, cfg.DriverPins())
}

func TestLoad_FileNotExists(t *testing.T) {
	cfg, err := Load("nonexistent.yaml")
	require.NoError(t, err)
	assert.NotNil(t, cfg)
	assert.Equal(t, "COM3", cfg.Serial.Port)
}

func TestLoad_ValidYAML(t *testing.T) {
	tmpfile, err := os.CreateTemp("", "test_config_*.yaml")
	require.NoError(t, err)
	defer os.Remove(tmpfile.Name())

	yamlContent := `
serial:
  port: "/dev/ttyACM0"
  timeout: 250ms

pins:
  reducing: 5
  oxidizing: 6
  ammonia: 7

adc:
  max_code: 4095

calibration:
  window: 16
  tolerance: 4
  interval: 500ms
  timeout: 2m
  baseline:
    reducing: 2000
    oxidizing: 700
    ammonia: 2500

measurement:
  period: 2s
  average_samples: 5
  thresholds:
    co: 50
    no2: 2
    nh3: 30
`

	_, err = tmpfile.WriteString(yamlContent)
	require.NoError(t, err)
	require.NoError(t, tmpfile.Close())

	cfg, err := Load(tmpfile.Name())
	require.NoError(t, err)
	assert.NotNil(t, cfg)

	assert.Equal(t, "/dev/ttyACM0", cfg.Serial.Port)
	assert.Equal(t, 250*time.Millisecond, cfg.Serial.Timeout)
	assert.Equal(t, mics6814.Pins{Reducing: 5, Oxidizing: 6, Ammonia: 7}, cfg.DriverPins())
	assert.Equal(t, uint16(4095), cfg.ADC.MaxCode)
	assert.Equal(t, 16, cfg.Calibration.Window)
	assert.Equal(t, uint16(4), cfg.Calibration.Tolerance)
	assert.Equal(t, 500*time.Millisecond, cfg.Calibration.Interval)
	assert.Equal(t, 2*time.Minute, cfg.Calibration.Timeout)
	assert.Equal(t, 2*time.Second, cfg.Measurement.Period)
	assert.Equal(t, 5, cfg.Measurement.AverageSamples)
	assert.Equal(t, float32(50), cfg.Measurement.Thresholds.Get(mics6814.CO))
	assert.Equal(t, float32(2), cfg.Measurement.Thresholds.Get(mics6814.NO2))
	assert.Equal(t, float32(30), cfg.Measurement.Thresholds.Get(mics6814.NH3))

	b, ok := cfg.StoredBaseline()
	assert.True(t, ok)
	assert.Equal(t, mics6814.BaselineSet{Reducing: 2000, Oxidizing: 700, Ammonia: 2500}, b)

	require.NoError(t, cfg.DriverOptions().Validate())
}

func TestLoad_InvalidYAML(t *testing.T) {
	tmpfile, err := os.CreateTemp("", "test_config_*.yaml")
	require.NoError(t, err)
	defer os.Remove(tmpfile.Name())

	_, err = tmpfile.WriteString("invalid: yaml: content: [")
	require.NoError(t, err)
	require.NoError(t, tmpfile.Close())

	cfg, err := Load(tmpfile.Name())
	assert.Error(t, err)
	assert.Nil(t, cfg)
}

func TestLoad_PartialYAML(t *testing.T) {
	tmpfile, err := os.CreateTemp("", "test_config_*.yaml")
	require.NoError(t, err)
	defer os.Remove(tmpfile.Name())

	yamlContent := `
serial:
  port: "/dev/ttyACM0"
calibration:
  window: 0
`

	_, err = tmpfile.WriteString(yamlContent)
	require.NoError(t, err)
	require.NoError(t, tmpfile.Close())

	cfg, err := Load(tmpfile.Name())
	require.NoError(t, err)
	assert.NotNil(t, cfg)

	// Should use defaults for missing fields
	assert.Equal(t, "/dev/ttyACM0", cfg.Serial.Port)
	assert.Equal(t, 10, cfg.Calibration.Window)          // default
	assert.Equal(t, uint16(1023), cfg.ADC.MaxCode)       // default
	assert.Equal(t, time.Second, cfg.Measurement.Period) // default
}

func TestStoredBaseline(t *testing.T) {
	cfg := Default()

	_, ok := cfg.StoredBaseline()
	assert.False(t, ok)

	cfg.StoreBaseline(mics6814.BaselineSet{Reducing: 0, Oxidizing: 100, Ammonia: 200})
	b, ok := cfg.StoredBaseline()
	assert.False(t, ok, "zero baseline is not usable")
	assert.Equal(t, uint16(100), b.Oxidizing)

	cfg.StoreBaseline(mics6814.BaselineSet{Reducing: 510, Oxidizing: 170, Ammonia: 600})
	_, ok = cfg.StoredBaseline()
	assert.True(t, ok)
}

func TestSave(t *testing.T) {
	cfg := Default()
	cfg.Serial.Port = "/dev/ttyUSB0"
	cfg.Measurement.WindowSeconds = 15
	cfg.StoreBaseline(mics6814.BaselineSet{Reducing: 511, Oxidizing: 171, Ammonia: 601})

	filename := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, cfg.Save(filename))

	// Load it back and verify
	loaded, err := Load(filename)
	require.NoError(t, err)
	assert.Equal(t, "/dev/ttyUSB0", loaded.Serial.Port)
	assert.Equal(t, float64(15), loaded.Measurement.WindowSeconds)

	b, ok := loaded.StoredBaseline()
	require.True(t, ok)
	assert.Equal(t, mics6814.BaselineSet{Reducing: 511, Oxidizing: 171, Ammonia: 601}, b)
	assert.Equal(t, cfg.Mock, loaded.Mock)
}
