package motor

import (
	"errors"
	"fmt"
)

// Sentinel errors for common conditions.
var (
	// ErrClosed is returned when commanding a controller after Close.
	ErrClosed = errors.New("motor: controller closed")

	// ErrNoTransport is returned when a controller is built without a transport.
	ErrNoTransport = errors.New("motor: transport required")
)

// ConfigReason classifies a configuration failure.
type ConfigReason string

const (
	// OutOfRange means a bounded parameter is outside its allowed interval.
	OutOfRange ConfigReason = "out of range"
)

// ConfigError is returned when actuator parameters are invalid.
// It is always produced before any transport I/O.
type ConfigError struct {
	Field  string
	Value  float64
	Reason ConfigReason
	Hint   string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	msg := fmt.Sprintf("motor: %s=%v %s", e.Field, e.Value, e.Reason)
	if e.Hint != "" {
		msg += " (" + e.Hint + ")"
	}
	return msg
}

// ConnectKind classifies a transport open failure.
type ConnectKind int

const (
	// Unreachable means the device could not be opened (missing path, busy, unplugged).
	Unreachable ConnectKind = iota
	// PermissionDenied means the device exists but access was refused.
	PermissionDenied
)

// String returns the kind name.
func (k ConnectKind) String() string {
	switch k {
	case Unreachable:
		return "unreachable"
	case PermissionDenied:
		return "permission denied"
	default:
		return fmt.Sprintf("ConnectKind(%d)", int(k))
	}
}

// ConnectError is returned when the transport cannot be opened.
// The controller does not retry.
type ConnectError struct {
	Kind ConnectKind
	Port string
	Err  error
}

// Error implements the error interface.
func (e *ConnectError) Error() string {
	return fmt.Sprintf("motor: connect %s: %s: %v", e.Port, e.Kind, e.Err)
}

// Unwrap returns the underlying error.
func (e *ConnectError) Unwrap() error {
	return e.Err
}

// Remediation returns an operator-facing hint for fixing the failure.
func (e *ConnectError) Remediation() string {
	switch e.Kind {
	case PermissionDenied:
		return fmt.Sprintf("to fix permission denied errors, run: sudo chmod a+rw %s "+
			"(or add your user to the dialout group and log in again)", e.Port)
	default:
		return fmt.Sprintf("check that the motor controller is plugged in and that %s is the right port "+
			"(ls /dev/ttyACM* /dev/ttyUSB*)", e.Port)
	}
}

// ActuationError is returned when a command could not be delivered to the actuator.
type ActuationError struct {
	Op  string
	Err error
}

// Error implements the error interface.
func (e *ActuationError) Error() string {
	return fmt.Sprintf("motor: %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *ActuationError) Unwrap() error {
	return e.Err
}
