package board

import (
	"fmt"
	"sync"
	"time"

	"github.com/itohio/gomics/pkg/config"
	"github.com/itohio/gomics/pkg/mics6814"
	"github.com/rs/zerolog"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/devices/v3/ads1x15"
	"periph.io/x/host/v3"
)

// enviroChannels are the single ended ADS1015 inputs, indexed by pin.
var enviroChannels = []ads1x15.Channel{ads1x15.Channel0, ads1x15.Channel1, ads1x15.Channel2}

// Enviro samples the sensor through an ADS1015 on I2C, as wired on the
// Pimoroni Enviro+ (OX on A0, RED on A1, NH3 on A2, heater on GPIO24).
// Voltages are converted to codes of a maxCode converter referenced to the
// divider supply, so the driver sees the same scale as on a 10-bit MCU.
type Enviro struct {
	cfg     config.EnviroConfig
	maxCode uint16
	log     zerolog.Logger

	mu        sync.Mutex
	bus       i2c.BusCloser
	pins      []ads1x15.PinADC
	heater    gpio.PinIO
	connected bool
	err       error
}

// NewEnviro creates an I2C board. Nothing is opened before Connect.
func NewEnviro(cfg config.EnviroConfig, maxCode uint16, log zerolog.Logger) *Enviro {
	if maxCode == 0 {
		maxCode = MaxCode
	}
	return &Enviro{
		cfg:     cfg,
		maxCode: maxCode,
		log:     log.With().Str("board", "enviro").Logger(),
	}
}

// Connect initialises the host, opens the bus and configures the converter
// and the heater.
func (e *Enviro) Connect() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.connected {
		return fmt.Errorf("already connected")
	}

	if _, err := host.Init(); err != nil {
		return fmt.Errorf("failed to initialise host: %w", err)
	}

	bus, err := i2creg.Open(e.cfg.Bus)
	if err != nil {
		return fmt.Errorf("failed to open I2C bus %q: %w", e.cfg.Bus, err)
	}

	opts := ads1x15.DefaultOpts
	opts.I2cAddress = e.cfg.Address
	adc, err := ads1x15.NewADS1015(bus, &opts)
	if err != nil {
		bus.Close()
		return fmt.Errorf("failed to open ADS1015 at %#x: %w", e.cfg.Address, err)
	}

	fullScale := physic.ElectricPotential(e.cfg.FullScale * float64(physic.Volt))
	rate := physic.Frequency(e.cfg.SampleRate * float64(physic.Hertz))

	pins := make([]ads1x15.PinADC, 0, len(enviroChannels))
	for _, ch := range enviroChannels {
		pin, err := adc.PinForChannel(ch, fullScale, rate, ads1x15.BestQuality)
		if err != nil {
			haltAll(pins)
			bus.Close()
			return fmt.Errorf("failed to configure ADC channel %d: %w", ch, err)
		}
		pins = append(pins, pin)
	}

	var heater gpio.PinIO
	if e.cfg.HeaterPin != "" {
		heater = gpioreg.ByName(e.cfg.HeaterPin)
		if heater == nil {
			haltAll(pins)
			bus.Close()
			return fmt.Errorf("unknown heater pin %q", e.cfg.HeaterPin)
		}
		if err := heater.Out(gpio.High); err != nil {
			haltAll(pins)
			bus.Close()
			return fmt.Errorf("failed to enable heater: %w", err)
		}
	}

	e.bus = bus
	e.pins = pins
	e.heater = heater
	e.connected = true

	return nil
}

// Close turns the heater off and releases the bus.
func (e *Enviro) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.connected {
		return nil
	}
	e.connected = false

	haltAll(e.pins)
	e.pins = nil
	if e.heater != nil {
		if err := e.heater.Out(gpio.Low); err != nil {
			e.log.Error().Err(err).Msg("failed to switch heater off")
		}
	}
	if err := e.bus.Close(); err != nil {
		return fmt.Errorf("failed to close I2C bus: %w", err)
	}

	return nil
}

// IsConnected returns whether the bus is open.
func (e *Enviro) IsConnected() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.connected
}

// SetHeater drives the heater enable pin.
func (e *Enviro) SetHeater(on bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.connected {
		return ErrNotConnected
	}
	if e.heater == nil {
		return fmt.Errorf("no heater pin configured")
	}
	if err := e.heater.Out(gpio.Level(on)); err != nil {
		return fmt.Errorf("failed to set heater: %w", err)
	}
	return nil
}

// ReadAnalog converts the voltage on pin into a code.
func (e *Enviro) ReadAnalog(pin mics6814.Pin) uint16 {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.connected {
		e.record(ErrNotConnected)
		return 0
	}
	if int(pin) >= len(e.pins) {
		e.record(fmt.Errorf("%w %d", ErrUnknownPin, pin))
		return 0
	}

	s, err := e.pins[pin].Read()
	if err != nil {
		e.record(fmt.Errorf("read pin %d: %w", pin, err))
		return 0
	}
	return voltsToCode(float64(s.V)/float64(physic.Volt), e.cfg.VRef, e.maxCode)
}

// Delay sleeps for d.
func (e *Enviro) Delay(d time.Duration) {
	time.Sleep(d)
}

// Err returns the first sampling error since the previous call.
func (e *Enviro) Err() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	err := e.err
	e.err = nil
	return err
}

func (e *Enviro) record(err error) {
	if e.err == nil {
		e.err = err
		e.log.Error().Err(err).Msg("sampling failed")
	}
}

func haltAll(pins []ads1x15.PinADC) {
	for _, p := range pins {
		p.Halt()
	}
}

// voltsToCode maps v in [0, vref] onto [0, maxCode).
func voltsToCode(v, vref float64, maxCode uint16) uint16 {
	if vref <= 0 || v <= 0 {
		return 0
	}
	code := v / vref * float64(maxCode)
	if code >= float64(maxCode-1) {
		return maxCode - 1
	}
	return uint16(code + 0.5)
}
