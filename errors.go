package sender

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidSample is returned before any network activity when a sample or batch cannot be formatted.
	ErrInvalidSample = errors.New("invalid sample")

	// ErrDisconnected is returned when sending on a client that was explicitly disconnected.
	ErrDisconnected = errors.New("client is disconnected")

	// ErrNotConnected is returned when the client believes it is connected but holds no socket.
	ErrNotConnected = errors.New("socket is not connected")
)

// ConnectionError reports a failure to open the socket to the carbon endpoint.
type ConnectionError struct {
	Network string
	Address string
	Err     error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("failed to connect to %s %s: %v", e.Network, e.Address, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// SendError is returned by every send operation that could not deliver its message.
type SendError struct {
	Op  string
	Err error
}

func (e *SendError) Error() string {
	return fmt.Sprintf("graphite send failed during %s: %v", e.Op, e.Err)
}

func (e *SendError) Unwrap() error {
	return e.Err
}

func invalidSample(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidSample, fmt.Sprintf(format, args...))
}
