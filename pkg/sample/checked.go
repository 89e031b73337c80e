package sample

import (
	"github.com/itohio/gomics/pkg/mics6814"
	"github.com/rs/zerolog"
)

// ErrorSource reports the first failure since the previous call and clears
// it. Boards implement it.
type ErrorSource interface {
	Err() error
}

// CheckedGauge marks a whole reading invalid when the board reported a
// failure while it was taken. A failed read yields code 0, which only skews
// the burst mean instead of invalidating it.
type CheckedGauge struct {
	gauge Gauge
	errs  ErrorSource
	log   zerolog.Logger
}

var _ Gauge = CheckedGauge{}

// NewCheckedGauge wraps g, consulting errs after every reading.
func NewCheckedGauge(g Gauge, errs ErrorSource, log zerolog.Logger) CheckedGauge {
	return CheckedGauge{gauge: g, errs: errs, log: log}
}

func (c CheckedGauge) Read() mics6814.Reading {
	r := c.gauge.Read()
	if err := c.errs.Err(); err != nil {
		c.log.Warn().Err(err).Msg("reading failed, discarding it")
		for ch := range r.Ratio {
			r.Ratio[ch] = mics6814.Invalid
		}
		for g := range r.Concentration {
			r.Concentration[g] = mics6814.Invalid
		}
	}
	return r
}
