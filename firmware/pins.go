//go:build tinygo

package main

import "machine"

const (
	// Serial configuration. Replies are ~8 bytes, so the link is never the
	// bottleneck; 115200 matches the host default.
	UART_BAUD_RATE = 115200

	// ADC configuration
	ADC_REFERENCE_MV = 3300 // Reference voltage in millivolts (3.3V)
	ADC_RESOLUTION   = 12   // Converter resolution, codes are reduced to 10 bits
	CODE_SHIFT       = 6    // machine.ADC.Get scales to 16 bits

	// Heater enable (drives the MICS6814 heater MOSFET)
	PIN_HEATER = machine.D7

	// Command line buffer length ("a255" or "h1" plus slack)
	LINE_BUFFER = 16
)

// Analog inputs addressed by "a<pin>". The host maps sensor channels to
// these indices (defaults: OX 0, RED 1, NH3 2).
var analogPins = [...]machine.Pin{machine.A0, machine.A1, machine.A2}
