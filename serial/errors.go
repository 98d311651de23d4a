package serial

import (
	"errors"
	"fmt"
)

// Predefined error types for robust error handling
var (
	ErrDeviceNotFound   = errors.New("serial device not found")
	ErrPermissionDenied = errors.New("permission denied accessing serial device")
	ErrInvalidBaudRate  = errors.New("invalid baud rate")
	ErrInvalidConfig    = errors.New("invalid serial configuration")
	ErrPortClosed       = errors.New("serial port is closed")
	ErrPortOpen         = errors.New("serial port is already open")
	ErrWriteTimeout     = errors.New("write operation timed out")
)

// TransportError reports a failed operation on a serial port. It unwraps to
// the underlying cause so callers can still match the sentinels above.
type TransportError struct {
	Op   string
	Port string
	Err  error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("serial %s %s: %v", e.Op, e.Port, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

func transportError(op, port string, err error) error {
	return &TransportError{Op: op, Port: port, Err: err}
}
