package mics6814

import "fmt"

// Channel identifies one sensing element of the sensor.
type Channel uint8

const (
	// Reducing is the RED element, sensitive to CO.
	Reducing Channel = iota
	// Oxidizing is the OX element, sensitive to NO2.
	Oxidizing
	// Ammonia is the NH3 element.
	Ammonia

	// NumChannels is the number of sensing elements.
	NumChannels = 3
)

// Channels lists every channel in sampling order.
var Channels = [NumChannels]Channel{Reducing, Oxidizing, Ammonia}

func (c Channel) String() string {
	switch c {
	case Reducing:
		return "RED"
	case Oxidizing:
		return "OX"
	case Ammonia:
		return "NH3"
	}
	return fmt.Sprintf("Channel(%d)", uint8(c))
}

// Valid reports whether c names one of the three elements.
func (c Channel) Valid() bool {
	return c < NumChannels
}

// Gas is a target gas with its own calibration curve.
type Gas uint8

const (
	CO Gas = iota
	NO2
	NH3

	// NumGases is the number of supported gases.
	NumGases = 3
)

// Gases lists every supported gas.
var Gases = [NumGases]Gas{CO, NO2, NH3}

func (g Gas) String() string {
	switch g {
	case CO:
		return "CO"
	case NO2:
		return "NO2"
	case NH3:
		return "NH3"
	}
	return fmt.Sprintf("Gas(%d)", uint8(g))
}

// Channel returns the sensing element used to estimate g.
func (g Gas) Channel() Channel {
	switch g {
	case CO:
		return Reducing
	case NO2:
		return Oxidizing
	case NH3:
		return Ammonia
	}
	return NumChannels
}

// Pin is an analog input line identifier understood by the HAL.
type Pin uint8

// Pins maps every channel to its analog input.
type Pins struct {
	Reducing  Pin
	Oxidizing Pin
	Ammonia   Pin
}

// Pin returns the input line for ch. The second result is false for an
// unknown channel.
func (p Pins) Pin(ch Channel) (Pin, bool) {
	switch ch {
	case Reducing:
		return p.Reducing, true
	case Oxidizing:
		return p.Oxidizing, true
	case Ammonia:
		return p.Ammonia, true
	}
	return 0, false
}
