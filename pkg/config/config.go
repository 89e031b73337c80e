package config

import (
	"fmt"
	"os"
	"time"

	"github.com/itohio/gomics/pkg/mics6814"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Serial      SerialConfig      `yaml:"serial"`
	Enviro      EnviroConfig      `yaml:"enviro"`
	Pins        PinsConfig        `yaml:"pins"`
	ADC         ADCConfig         `yaml:"adc"`
	Calibration CalibrationConfig `yaml:"calibration"`
	Measurement MeasurementConfig `yaml:"measurement"`
	Mock        MockConfig        `yaml:"mock"`
}

// SerialConfig contains serial port configuration of the ADC bridge.
type SerialConfig struct {
	Port     string        `yaml:"port"`
	BaudRate int           `yaml:"baud_rate"`
	Timeout  time.Duration `yaml:"timeout"` // Reply timeout per command
}

// EnviroConfig describes an ADS1015 based board on I2C (Pimoroni Enviro+ wiring).
type EnviroConfig struct {
	Bus        string  `yaml:"bus"`         // I2C bus name, empty for the first one
	Address    uint16  `yaml:"address"`     // ADS1015 address
	HeaterPin  string  `yaml:"heater_pin"`  // GPIO enabling the sensor heater
	VRef       float64 `yaml:"vref"`        // Divider supply voltage (V)
	FullScale  float64 `yaml:"full_scale"`  // ADC input range (V)
	SampleRate float64 `yaml:"sample_rate"` // ADC data rate (Hz)
}

// PinsConfig maps sensor channels to analog inputs.
type PinsConfig struct {
	Reducing  uint8 `yaml:"reducing"`
	Oxidizing uint8 `yaml:"oxidizing"`
	Ammonia   uint8 `yaml:"ammonia"`
}

// ADCConfig describes the converter range.
type ADCConfig struct {
	MaxCode uint16 `yaml:"max_code"`
}

// CalibrationConfig contains baseline acquisition parameters and the stored
// baseline.
type CalibrationConfig struct {
	Window    int           `yaml:"window"`    // Readings that must agree
	Tolerance uint16        `yaml:"tolerance"` // Allowed deviation from the trailing average (codes)
	Interval  time.Duration `yaml:"interval"`
	Settle    time.Duration `yaml:"settle"`
	Burst     int           `yaml:"burst"`
	Spacing   time.Duration `yaml:"spacing"`
	Timeout   time.Duration `yaml:"timeout"` // 0 waits forever

	Baseline *mics6814.BaselineSet `yaml:"baseline,omitempty"`
}

// MeasurementConfig contains measurement parameters.
type MeasurementConfig struct {
	Burst            int           `yaml:"burst"`
	Spacing          time.Duration `yaml:"spacing"`
	Period           time.Duration `yaml:"period"`          // Time between readings
	WindowSeconds    float64       `yaml:"window_seconds"`  // History kept for display and alarms
	AverageSamples   int           `yaml:"average_samples"` // Number of readings to average (0 = disabled, default)
	MinAlarmDuration time.Duration `yaml:"min_alarm_duration"`
	Thresholds       Thresholds    `yaml:"thresholds"`
}

// Thresholds are alarm levels in ppm. Zero disables the alarm of a gas.
type Thresholds struct {
	CO  float32 `yaml:"co"`
	NO2 float32 `yaml:"no2"`
	NH3 float32 `yaml:"nh3"`
}

// Get returns the threshold of g.
func (t Thresholds) Get(g mics6814.Gas) float32 {
	switch g {
	case mics6814.CO:
		return t.CO
	case mics6814.NO2:
		return t.NO2
	case mics6814.NH3:
		return t.NH3
	}
	return 0
}

// MockConfig contains simulated sensor configuration.
type MockConfig struct {
	CleanAir   mics6814.BaselineSet `yaml:"clean_air"`   // Settled codes in clean air
	Start      mics6814.BaselineSet `yaml:"start"`       // Codes right after power up
	WarmupTau  time.Duration        `yaml:"warmup_tau"`  // Warm-up time constant
	NoiseLevel float64              `yaml:"noise_level"` // Noise amplitude (codes)
	Seed       int64                `yaml:"seed"`
	RealTime   bool                 `yaml:"real_time"` // Sleep on Delay besides advancing the simulated clock
}

// Default returns a default configuration with sensible values.
func Default() *Config {
	return &Config{
		Serial: SerialConfig{
			Port:     "COM3", // Default for Windows, should be "/dev/ttyACM0" on Linux/Mac
			BaudRate: 115200,
			Timeout:  100 * time.Millisecond,
		},
		Enviro: EnviroConfig{
			Address:    0x49,
			HeaterPin:  "GPIO24",
			VRef:       3.3,
			FullScale:  4.096,
			SampleRate: 1600,
		},
		Pins: PinsConfig{
			Reducing:  1,
			Oxidizing: 0,
			Ammonia:   2,
		},
		ADC: ADCConfig{
			MaxCode: mics6814.DefaultMaxCode,
		},
		Calibration: CalibrationConfig{
			Window:    mics6814.DefaultWindow,
			Tolerance: mics6814.DefaultTolerance,
			Interval:  mics6814.DefaultInterval,
			Settle:    mics6814.DefaultSettle,
			Burst:     mics6814.DefaultCalibrationBurst,
			Spacing:   mics6814.DefaultCalibrationSpacing,
			Timeout:   10 * time.Minute,
		},
		Measurement: MeasurementConfig{
			Burst:            mics6814.DefaultResistanceBurst,
			Spacing:          mics6814.DefaultResistanceSpacing,
			Period:           time.Second,
			WindowSeconds:    300,
			AverageSamples:   0, // No averaging by default
			MinAlarmDuration: 5 * time.Second,
			Thresholds: Thresholds{
				CO:  35,
				NO2: 1,
				NH3: 25,
			},
		},
		Mock: MockConfig{
			CleanAir:   mics6814.BaselineSet{Reducing: 520, Oxidizing: 180, Ammonia: 610},
			Start:      mics6814.BaselineSet{Reducing: 900, Oxidizing: 40, Ammonia: 950},
			WarmupTau:  20 * time.Second,
			NoiseLevel: 1,
			Seed:       1,
			RealTime:   true,
		},
	}
}

// Load loads configuration from a YAML file. If the file doesn't exist or
// fields are missing, it uses default values.
func Load(filename string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.ensureDefaults()

	return cfg, nil
}

// Save saves the configuration to a YAML file.
func (c *Config) Save(filename string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// DriverPins returns the channel to input mapping for the driver.
func (c *Config) DriverPins() mics6814.Pins {
	return mics6814.Pins{
		Reducing:  mics6814.Pin(c.Pins.Reducing),
		Oxidizing: mics6814.Pin(c.Pins.Oxidizing),
		Ammonia:   mics6814.Pin(c.Pins.Ammonia),
	}
}

// DriverOptions returns the driver tuning described by the configuration.
func (c *Config) DriverOptions() mics6814.Options {
	opts := mics6814.DefaultOptions()
	opts.MaxCode = c.ADC.MaxCode
	opts.Window = c.Calibration.Window
	opts.Tolerance = c.Calibration.Tolerance
	opts.Interval = c.Calibration.Interval
	opts.Settle = c.Calibration.Settle
	opts.CalibrationBurst = c.Calibration.Burst
	opts.CalibrationSpacing = c.Calibration.Spacing
	opts.ResistanceBurst = c.Measurement.Burst
	opts.ResistanceSpacing = c.Measurement.Spacing
	return opts
}

// StoredBaseline returns the persisted baseline if it is usable.
func (c *Config) StoredBaseline() (mics6814.BaselineSet, bool) {
	if c.Calibration.Baseline == nil {
		return mics6814.BaselineSet{}, false
	}
	b := *c.Calibration.Baseline
	return b, b.Valid(c.ADC.MaxCode)
}

// StoreBaseline records b for the next start.
func (c *Config) StoreBaseline(b mics6814.BaselineSet) {
	c.Calibration.Baseline = &b
}

// ensureDefaults ensures that all required fields have default values if missing.
func (c *Config) ensureDefaults() {
	def := Default()

	if c.Serial.Port == "" {
		c.Serial.Port = def.Serial.Port
	}
	if c.Serial.BaudRate == 0 {
		c.Serial.BaudRate = def.Serial.BaudRate
	}
	if c.Serial.Timeout == 0 {
		c.Serial.Timeout = def.Serial.Timeout
	}

	if c.Enviro.Address == 0 {
		c.Enviro.Address = def.Enviro.Address
	}
	if c.Enviro.VRef == 0 {
		c.Enviro.VRef = def.Enviro.VRef
	}
	if c.Enviro.FullScale == 0 {
		c.Enviro.FullScale = def.Enviro.FullScale
	}
	if c.Enviro.SampleRate == 0 {
		c.Enviro.SampleRate = def.Enviro.SampleRate
	}

	if c.ADC.MaxCode == 0 {
		c.ADC.MaxCode = def.ADC.MaxCode
	}

	if c.Calibration.Window == 0 {
		c.Calibration.Window = def.Calibration.Window
	}
	if c.Calibration.Tolerance == 0 {
		c.Calibration.Tolerance = def.Calibration.Tolerance
	}
	if c.Calibration.Interval == 0 {
		c.Calibration.Interval = def.Calibration.Interval
	}
	if c.Calibration.Burst == 0 {
		c.Calibration.Burst = def.Calibration.Burst
	}

	if c.Measurement.Burst == 0 {
		c.Measurement.Burst = def.Measurement.Burst
	}
	if c.Measurement.Period == 0 {
		c.Measurement.Period = def.Measurement.Period
	}
	if c.Measurement.WindowSeconds == 0 {
		c.Measurement.WindowSeconds = def.Measurement.WindowSeconds
	}

	if c.Mock.WarmupTau == 0 {
		c.Mock.WarmupTau = def.Mock.WarmupTau
	}
	if c.Mock.CleanAir == (mics6814.BaselineSet{}) {
		c.Mock.CleanAir = def.Mock.CleanAir
	}
}
