package mics6814

import "github.com/chewxy/math32"

// Invalid is returned by Measure when no meaningful concentration can be
// computed: saturated or disconnected channel, missing baseline or a
// non-numeric curve result.
const Invalid float32 = -1

// Curve is an empirical power law ppm = ratio^Exponent * Factor, or
// ratio^Exponent / Factor when Divide is set.
type Curve struct {
	Exponent float32
	Factor   float32
	Divide   bool
}

var curves = [NumGases]Curve{
	CO:  {Exponent: -1.179, Factor: 4.385},
	NO2: {Exponent: 1.007, Factor: 6.855, Divide: true},
	NH3: {Exponent: -1.67, Factor: 1.47, Divide: true},
}

// CurveFor returns the datasheet curve of g.
func CurveFor(g Gas) (Curve, bool) {
	if g >= NumGases {
		return Curve{}, false
	}
	return curves[g], true
}

// Concentration evaluates the curve at ratio. It returns Invalid for a
// non-positive or non-finite ratio and for a non-finite result.
func (c Curve) Concentration(ratio float32) float32 {
	if !(ratio > 0) || math32.IsInf(ratio, 0) {
		return Invalid
	}
	v := math32.Pow(ratio, c.Exponent)
	if c.Divide {
		v /= c.Factor
	} else {
		v *= c.Factor
	}
	if math32.IsNaN(v) || math32.IsInf(v, 0) {
		return Invalid
	}
	return v
}

// Inverse returns the ratio at which the curve yields ppm.
func (c Curve) Inverse(ppm float32) float32 {
	if !(ppm > 0) {
		return 0
	}
	v := ppm
	if c.Divide {
		v *= c.Factor
	} else {
		v /= c.Factor
	}
	return math32.Pow(v, 1/c.Exponent)
}

// ResistanceRatio normalises resistance against baseline and corrects for the
// voltage divider in front of the converter:
//
//	ratio = r/b * (max - b) / (max - r)
//
// A ratio of 1 means clean air. Zero baselines and full scale readings yield
// non-finite values.
func ResistanceRatio(resistance, baseline, maxCode uint16) float32 {
	r := float32(resistance)
	b := float32(baseline)
	m := float32(maxCode)
	return r / b * (m - b) / (m - r)
}

// Concentration converts ratio into ppm of g, or Invalid.
func Concentration(g Gas, ratio float32) float32 {
	c, ok := CurveFor(g)
	if !ok {
		return Invalid
	}
	return c.Concentration(ratio)
}
