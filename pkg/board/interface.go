package board

import (
	"errors"

	"github.com/itohio/gomics/pkg/mics6814"
)

var (
	// ErrNotConnected is recorded when a board is used before Connect.
	ErrNotConnected = errors.New("not connected")
	// ErrUnknownPin is recorded for reads of an input the board does not have.
	ErrUnknownPin = errors.New("unknown pin")
)

// Board is a platform the driver can sample through (real or mocked).
//
// The mics6814.HAL methods cannot report failures; a failed ReadAnalog
// returns 0, which the driver turns into an invalid measurement, and the
// cause is kept until the next call to Err.
type Board interface {
	mics6814.HAL
	Connect() error
	Close() error
	IsConnected() bool
	SetHeater(on bool) error
	// Err returns the first sampling error since the previous call and
	// clears it.
	Err() error
}

// Ensure Serial implements Board.
var _ Board = (*Serial)(nil)

// Ensure Mock implements Board.
var _ Board = (*Mock)(nil)

// Ensure Enviro implements Board.
var _ Board = (*Enviro)(nil)
