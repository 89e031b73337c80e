package mics6814

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// HAL is the platform the driver samples through.
type HAL interface {
	// ReadAnalog returns an instantaneous code in [0, MaxCode) for pin.
	// Calibration clamps larger codes to MaxCode-1.
	ReadAnalog(pin Pin) uint16
	// Delay blocks for at least d.
	Delay(d time.Duration)
}

// Reading is a full snapshot of the sensor taken with one resistance burst
// per channel.
type Reading struct {
	Resistance    Readings
	Baseline      BaselineSet
	Ratio         [NumChannels]float32
	Concentration [NumGases]float32
}

// Driver estimates gas concentrations from a MiCS-6814.
type Driver struct {
	hal  HAL
	pins Pins
	opts Options
	log  zerolog.Logger

	baseline BaselineSet
}

// New creates a driver sampling the three channels on pins through hal.
func New(hal HAL, pins Pins, opts Options) (*Driver, error) {
	if hal == nil {
		return nil, fmt.Errorf("%w: nil HAL", ErrInvalidOptions)
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &Driver{
		hal:  hal,
		pins: pins,
		opts: opts,
		log:  opts.logger(),
	}, nil
}

// Options returns the tuning the driver was created with.
func (d *Driver) Options() Options {
	return d.opts
}

// Calibrate waits until all channels are stable in clean air and stores
// their trailing averages as baseline.
//
// It never gives up: on a sensor that never settles (for example a
// disconnected one) Calibrate blocks forever. Use CalibrateContext to bound
// it.
func (d *Driver) Calibrate() {
	_ = d.CalibrateContext(context.Background())
}

// CalibrateContext runs Calibrate until convergence or until ctx ends, in
// which case the baseline is left untouched and an error wrapping
// ErrCalibrationTimeout and ctx.Err() is returned. The context is checked
// once per round.
func (d *Driver) CalibrateContext(ctx context.Context) error {
	s := d.BeginCalibration()
	for {
		if err := ctx.Err(); err != nil {
			d.log.Warn().Int("rounds", s.cal.Rounds()).Msg("calibration aborted")
			return fmt.Errorf("%w after %d rounds: %w", ErrCalibrationTimeout, s.cal.Rounds(), err)
		}
		d.hal.Delay(d.opts.Interval)
		if s.Tick() == Converged {
			return nil
		}
	}
}

// Session is a calibration driven by an external tick, one round per Tick.
type Session struct {
	d   *Driver
	cal *Calibrator
}

// BeginCalibration starts a tick driven calibration. The caller decides the
// cadence (nominally one Tick per Options.Interval) and when to give up.
func (d *Driver) BeginCalibration() *Session {
	return &Session{
		d:   d,
		cal: NewCalibrator(d.opts.Window, d.opts.Tolerance),
	}
}

// Tick samples one round and evaluates it. On Converged the baseline of the
// driver is replaced.
func (s *Session) Tick() State {
	r := s.d.sampleRound()
	st := s.cal.Observe(r)

	s.d.log.Debug().
		Int("round", s.cal.Rounds()).
		Uints16("readings", r[:]).
		Bool("red", s.cal.Stable(Reducing)).
		Bool("ox", s.cal.Stable(Oxidizing)).
		Bool("nh3", s.cal.Stable(Ammonia)).
		Msg("calibration round")

	if st == Converged {
		s.d.baseline = s.cal.Baseline()
		s.d.log.Info().
			Int("rounds", s.cal.Rounds()).
			Uint16("red", s.d.baseline.Reducing).
			Uint16("ox", s.d.baseline.Oxidizing).
			Uint16("nh3", s.d.baseline.Ammonia).
			Msg("calibration converged")
	}
	return st
}

// Calibrator exposes the state machine for progress reporting.
func (s *Session) Calibrator() *Calibrator {
	return s.cal
}

// sampleRound takes one short averaged reading per channel.
func (d *Driver) sampleRound() Readings {
	var r Readings
	for _, ch := range [...]Channel{Ammonia, Reducing, Oxidizing} {
		pin, _ := d.pins.Pin(ch)
		d.hal.Delay(d.opts.Settle)

		var sum uint32
		for range d.opts.CalibrationBurst {
			d.hal.Delay(d.opts.CalibrationSpacing)
			sum += uint32(d.readCode(pin))
		}
		r[ch] = uint16(sum / uint32(d.opts.CalibrationBurst))
	}
	return r
}

// readCode reads pin and clamps the code below MaxCode. The calibration
// window sums codes in 16 bits and overflows on anything larger.
func (d *Driver) readCode(pin Pin) uint16 {
	v := d.hal.ReadAnalog(pin)
	if v >= d.opts.MaxCode {
		d.log.Debug().Uint16("code", v).Uint8("pin", uint8(pin)).Msg("code out of range, clamped")
		v = d.opts.MaxCode - 1
	}
	return v
}

// LoadCalibration installs previously measured baselines, producing the same
// state as a finished Calibrate.
func (d *Driver) LoadCalibration(co, no2, nh3 uint16) {
	d.baseline = BaselineSet{
		Reducing:  co,
		Oxidizing: no2,
		Ammonia:   nh3,
	}
}

// Baseline returns the current baselines.
func (d *Driver) Baseline() BaselineSet {
	return d.baseline
}

// Calibrated reports whether the baseline is usable.
func (d *Driver) Calibrated() bool {
	return d.baseline.Valid(d.opts.MaxCode)
}

// Resistance returns the mean of a long burst of reads on the pin of ch.
// Unknown channels and empty bursts read 0.
func (d *Driver) Resistance(ch Channel) uint16 {
	pin, ok := d.pins.Pin(ch)
	if !ok || d.opts.ResistanceBurst == 0 {
		return 0
	}

	var sum uint32
	for range d.opts.ResistanceBurst {
		sum += uint32(d.hal.ReadAnalog(pin))
		d.hal.Delay(d.opts.ResistanceSpacing)
	}
	return uint16(sum / uint32(d.opts.ResistanceBurst))
}

// BaseResistance returns the baseline of ch.
func (d *Driver) BaseResistance(ch Channel) uint16 {
	return d.baseline.Get(ch)
}

// Ratio samples ch and returns its resistance ratio. The value is raw: it
// may be zero, negative or non-finite.
func (d *Driver) Ratio(ch Channel) float32 {
	return ResistanceRatio(d.Resistance(ch), d.BaseResistance(ch), d.opts.MaxCode)
}

// Measure samples the channel of g and returns the concentration in ppm, or
// Invalid.
func (d *Driver) Measure(g Gas) float32 {
	if g >= NumGases {
		return Invalid
	}
	return Concentration(g, d.Ratio(g.Channel()))
}

// Read samples every channel once and derives ratios and concentrations
// from the same bursts.
func (d *Driver) Read() Reading {
	rd := Reading{Baseline: d.baseline}
	for _, ch := range Channels {
		rd.Resistance[ch] = d.Resistance(ch)
		rd.Ratio[ch] = ResistanceRatio(rd.Resistance[ch], rd.Baseline.Get(ch), d.opts.MaxCode)
	}
	for _, g := range Gases {
		rd.Concentration[g] = Concentration(g, rd.Ratio[g.Channel()])
	}
	return rd
}
