//go:build tinygo

//go:generate tinygo flash -target=xiao

// Command firmware is a serial ADC bridge for the MICS6814 breakout.
//
// Protocol (one command per line):
//
//	a<pin>  ->  <pin>,<code>   one 10-bit conversion
//	h<0|1>  ->  h,<0|1>        heater off/on
//
// Anything else is answered with "e".
package main

import (
	"machine"
	"strconv"
)

var (
	uart = machine.Serial

	adcs [len(analogPins)]machine.ADC

	heaterOn bool

	// Serial buffer for reading lines
	serialBuffer [LINE_BUFFER]byte
	serialPos    int
)

func main() {
	PIN_HEATER.Configure(machine.PinConfig{Mode: machine.PinOutput})
	setHeater(false)

	machine.InitADC()
	adcConfig := machine.ADCConfig{
		Reference:  ADC_REFERENCE_MV,
		Resolution: ADC_RESOLUTION,
	}
	for i, pin := range analogPins {
		adcs[i] = machine.ADC{Pin: pin}
		adcs[i].Configure(adcConfig)
	}

	uart.Configure(machine.UARTConfig{
		BaudRate: UART_BAUD_RATE,
	})

	for {
		processSerial()
	}
}

// processSerial collects bytes until a line is complete and executes it.
func processSerial() {
	for uart.Buffered() > 0 {
		data, err := uart.ReadByte()
		if err != nil {
			break
		}

		if data == '\n' || data == '\r' {
			if serialPos > 0 {
				execute(serialBuffer[:serialPos])
			}
			serialPos = 0
			continue
		}

		// Ignore whitespace
		if data == ' ' || data == '\t' {
			continue
		}

		if serialPos < len(serialBuffer) {
			serialBuffer[serialPos] = data
			serialPos++
		}
	}
}

func execute(cmd []byte) {
	switch cmd[0] {
	case 'a':
		pin, err := strconv.ParseUint(string(cmd[1:]), 10, 8)
		if err != nil || int(pin) >= len(adcs) {
			reply("e")
			return
		}
		code := adcs[pin].Get() >> CODE_SHIFT
		reply(strconv.Itoa(int(pin)) + "," + strconv.Itoa(int(code)))
	case 'h':
		if len(cmd) != 2 || (cmd[1] != '0' && cmd[1] != '1') {
			reply("e")
			return
		}
		setHeater(cmd[1] == '1')
		if heaterOn {
			reply("h,1")
		} else {
			reply("h,0")
		}
	default:
		reply("e")
	}
}

func setHeater(on bool) {
	heaterOn = on
	if on {
		PIN_HEATER.High()
	} else {
		PIN_HEATER.Low()
	}
}

func reply(line string) {
	uart.Write([]byte(line))
	uart.Write([]byte{'\n'})
}
