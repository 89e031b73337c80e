package mics6814

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"
)

const (
	// DefaultMaxCode is the asymptote of a 10-bit converter (readings 0-1022
	// are meaningful, 1023 means a saturated divider).
	DefaultMaxCode = 1023

	// DefaultWindow is the number of one second readings that must agree
	// before calibration finishes.
	DefaultWindow = 10

	// DefaultTolerance is the largest allowed difference between the trailing
	// average and the latest reading of a stable channel.
	DefaultTolerance = 2

	DefaultInterval           = time.Second
	DefaultSettle             = 50 * time.Millisecond
	DefaultCalibrationBurst   = 3
	DefaultCalibrationSpacing = time.Millisecond
	DefaultResistanceBurst    = 100
	DefaultResistanceSpacing  = 2 * time.Millisecond
)

// The running sum of a full window of saturated readings must fit the
// accumulator.
const _ accumulator = math.MaxUint16 - DefaultWindow*DefaultMaxCode

// accumulator is the storage type of the calibration running sums.
type accumulator = uint16

var (
	// ErrInvalidOptions is returned by New for unusable tuning values.
	ErrInvalidOptions = errors.New("mics6814: invalid options")
	// ErrWindowOverflow is returned by New when a full calibration window of
	// maximum readings would overflow the running sum.
	ErrWindowOverflow = errors.New("mics6814: calibration window overflows accumulator")
	// ErrCalibrationTimeout is returned by CalibrateContext when the context
	// ends before every channel became stable.
	ErrCalibrationTimeout = errors.New("mics6814: calibration timeout")
)

// Options tunes sampling and calibration.
type Options struct {
	// MaxCode is one past the largest code the sampler can report.
	MaxCode uint16

	// Window is the number of per-second readings kept per channel during
	// calibration. Window*MaxCode must fit into 16 bits.
	Window int
	// Tolerance is the stability threshold in codes.
	Tolerance uint16

	// Interval is the pause between calibration rounds.
	Interval time.Duration
	// Settle is the pause before every calibration burst.
	Settle time.Duration
	// CalibrationBurst is the number of raw reads averaged into one
	// calibration reading, CalibrationSpacing the pause before each of them.
	CalibrationBurst   int
	CalibrationSpacing time.Duration

	// ResistanceBurst is the number of raw reads averaged by Resistance,
	// ResistanceSpacing the pause after each of them.
	ResistanceBurst   int
	ResistanceSpacing time.Duration

	// Logger receives calibration progress. Nil disables logging.
	Logger *zerolog.Logger
}

// DefaultOptions returns the tuning used by the reference Arduino driver.
func DefaultOptions() Options {
	return Options{
		MaxCode:            DefaultMaxCode,
		Window:             DefaultWindow,
		Tolerance:          DefaultTolerance,
		Interval:           DefaultInterval,
		Settle:             DefaultSettle,
		CalibrationBurst:   DefaultCalibrationBurst,
		CalibrationSpacing: DefaultCalibrationSpacing,
		ResistanceBurst:    DefaultResistanceBurst,
		ResistanceSpacing:  DefaultResistanceSpacing,
	}
}

// MaxWindow returns the largest calibration window whose running sum cannot
// overflow for readings up to maxCode.
func MaxWindow(maxCode uint16) int {
	if maxCode == 0 {
		return math.MaxUint16
	}
	return math.MaxUint16 / int(maxCode)
}

// Validate checks the options for values the driver cannot work with.
func (o Options) Validate() error {
	if o.MaxCode < 2 {
		return fmt.Errorf("%w: max code %d", ErrInvalidOptions, o.MaxCode)
	}
	if o.Window <= 0 {
		return fmt.Errorf("%w: window %d", ErrInvalidOptions, o.Window)
	}
	if o.Window > MaxWindow(o.MaxCode) {
		return fmt.Errorf("%w: %d readings of %d exceed %d", ErrWindowOverflow, o.Window, o.MaxCode, math.MaxUint16)
	}
	if o.CalibrationBurst <= 0 {
		return fmt.Errorf("%w: calibration burst %d", ErrInvalidOptions, o.CalibrationBurst)
	}
	if o.ResistanceBurst < 0 {
		return fmt.Errorf("%w: resistance burst %d", ErrInvalidOptions, o.ResistanceBurst)
	}
	if o.Interval < 0 || o.Settle < 0 || o.CalibrationSpacing < 0 || o.ResistanceSpacing < 0 {
		return fmt.Errorf("%w: negative delay", ErrInvalidOptions)
	}
	return nil
}

func (o Options) logger() zerolog.Logger {
	if o.Logger == nil {
		return zerolog.Nop()
	}
	return *o.Logger
}
