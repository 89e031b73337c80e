package board

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/itohio/gomics/pkg/mics6814"
	"github.com/rs/zerolog"
	"go.bug.st/serial"
)

const (
	// DefaultBaudRate is the baud rate of the bridge firmware.
	DefaultBaudRate = 115200
	// DefaultTimeout bounds the wait for a single reply.
	DefaultTimeout = 100 * time.Millisecond
	// MaxCode is the largest code the bridge firmware reports (10-bit).
	MaxCode = 1023
)

// ErrTimeout is recorded when the bridge does not answer in time.
var ErrTimeout = errors.New("reply timeout")

// Port represents a serial port.
type Port struct {
	Name        string
	Description string
}

// Serial talks to the ADC bridge firmware over a serial line.
//
// Protocol, one command per line:
//
//	a<pin>   ->  <pin>,<code>
//	h<0|1>   ->  h,<0|1>
type Serial struct {
	port     string
	baudRate int
	timeout  time.Duration
	log      zerolog.Logger

	mu        sync.Mutex
	conn      io.ReadWriteCloser
	pending   []byte
	buf       [64]byte
	connected bool
	err       error
}

// NewSerial creates a bridge connection on port. Zero values select the
// defaults.
func NewSerial(port string, baudRate int, timeout time.Duration, log zerolog.Logger) *Serial {
	if baudRate == 0 {
		baudRate = DefaultBaudRate
	}
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	return &Serial{
		port:     port,
		baudRate: baudRate,
		timeout:  timeout,
		log:      log.With().Str("port", port).Logger(),
	}
}

// Ports returns a list of available serial ports.
func Ports() ([]Port, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to list serial ports: %w", err)
	}

	result := make([]Port, 0, len(ports))
	for _, name := range ports {
		result = append(result, Port{
			Name:        name,
			Description: name,
		})
	}

	return result, nil
}

// Connect opens the serial port.
func (s *Serial) Connect() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.connected {
		return fmt.Errorf("already connected")
	}

	port, err := serial.Open(s.port, &serial.Mode{BaudRate: s.baudRate})
	if err != nil {
		return fmt.Errorf("failed to open serial port %s: %w", s.port, err)
	}
	if err := port.SetReadTimeout(s.timeout); err != nil {
		port.Close()
		return fmt.Errorf("failed to set read timeout: %w", err)
	}
	if err := port.ResetInputBuffer(); err != nil {
		s.log.Warn().Err(err).Msg("failed to flush input")
	}

	s.conn = port
	s.pending = s.pending[:0]
	s.connected = true

	return nil
}

// Close closes the serial port.
func (s *Serial) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.connected {
		return nil
	}

	s.connected = false
	if err := s.conn.Close(); err != nil {
		s.log.Error().Err(err).Msg("error closing serial port")
	}
	s.conn = nil

	return nil
}

// IsConnected returns whether the port is open.
func (s *Serial) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

// ReadAnalog asks the bridge for one conversion on pin.
func (s *Serial) ReadAnalog(pin mics6814.Pin) uint16 {
	s.mu.Lock()
	defer s.mu.Unlock()

	code, err := s.readAnalog(pin)
	if err != nil {
		s.record(fmt.Errorf("read pin %d: %w", pin, err))
		return 0
	}
	return code
}

func (s *Serial) readAnalog(pin mics6814.Pin) (uint16, error) {
	if !s.connected {
		return 0, ErrNotConnected
	}
	if err := s.send("a" + strconv.Itoa(int(pin))); err != nil {
		return 0, err
	}

	deadline := time.Now().Add(s.timeout)
	for {
		line, err := s.readLine(deadline)
		if err != nil {
			return 0, err
		}
		if isStaleReply(line) {
			s.log.Debug().Str("line", line).Msg("skipping stale reply")
			continue
		}
		got, code, err := parseReading(line)
		if err != nil {
			return 0, err
		}
		if got != pin {
			// Late reply to an earlier request.
			s.log.Debug().Str("line", line).Msg("skipping stale reply")
			continue
		}
		return code, nil
	}
}

// Delay sleeps for d.
func (s *Serial) Delay(d time.Duration) {
	time.Sleep(d)
}

// SetHeater switches the sensor heater.
func (s *Serial) SetHeater(on bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.connected {
		return ErrNotConnected
	}

	cmd := "h0"
	if on {
		cmd = "h1"
	}
	if err := s.send(cmd); err != nil {
		return fmt.Errorf("failed to send heater command: %w", err)
	}

	deadline := time.Now().Add(s.timeout)
	for {
		line, err := s.readLine(deadline)
		if err != nil {
			return fmt.Errorf("no heater acknowledge: %w", err)
		}
		if !strings.HasPrefix(line, "h,") {
			continue
		}
		state, err := parseHeater(line)
		if err != nil {
			return err
		}
		if state != on {
			return fmt.Errorf("heater reported %t, want %t", state, on)
		}
		return nil
	}
}

// Err returns the first sampling error since the previous call.
func (s *Serial) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.err
	s.err = nil
	return err
}

func (s *Serial) record(err error) {
	if s.err == nil {
		s.err = err
		s.log.Error().Err(err).Msg("sampling failed")
	}
}

func (s *Serial) send(cmd string) error {
	if _, err := s.conn.Write([]byte(cmd + "\n")); err != nil {
		return fmt.Errorf("failed to write %q: %w", cmd, err)
	}
	return nil
}

// readLine returns the next non-empty line received before deadline.
func (s *Serial) readLine(deadline time.Time) (string, error) {
	for {
		if i := bytes.IndexByte(s.pending, '\n'); i >= 0 {
			line := strings.TrimSpace(string(s.pending[:i]))
			s.pending = s.pending[i+1:]
			if line == "" {
				continue
			}
			return line, nil
		}
		if time.Now().After(deadline) {
			return "", ErrTimeout
		}

		n, err := s.conn.Read(s.buf[:])
		if err != nil {
			return "", fmt.Errorf("failed to read reply: %w", err)
		}
		s.pending = append(s.pending, s.buf[:n]...)
	}
}

// isStaleReply reports whether line answers a command other than a
// conversion: a late heater acknowledge or a rejected command.
func isStaleReply(line string) bool {
	return line == "e" || strings.HasPrefix(line, "h,")
}

// parseReading parses a conversion reply.
// Format: pin,code
// Example: 2,517
func parseReading(line string) (mics6814.Pin, uint16, error) {
	parts := strings.Split(line, ",")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid reply format: expected 2 comma-separated values, got %d", len(parts))
	}

	pin, err := strconv.ParseUint(parts[0], 10, 8)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid pin: %w", err)
	}

	code, err := strconv.ParseUint(parts[1], 10, 16)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid code: %w", err)
	}
	if code > MaxCode {
		return 0, 0, fmt.Errorf("code out of range: %d (max %d)", code, MaxCode)
	}

	return mics6814.Pin(pin), uint16(code), nil
}

// parseHeater parses a heater acknowledge.
// Format: h,state
func parseHeater(line string) (bool, error) {
	switch line {
	case "h,1":
		return true, nil
	case "h,0":
		return false, nil
	}
	return false, fmt.Errorf("invalid heater reply %q", line)
}
