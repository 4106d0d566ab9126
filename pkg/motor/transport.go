// Package motor maps normalized steering and throttle values to bounded
// actuator commands and forwards them to a hardware transport.
package motor

// Transport is the primitive link to an actuator.
// Implementations apply each command immediately; there is no queue,
// so a later command always supersedes an earlier one.
type Transport interface {
	SetServo(position float64) error
	SetDutyCycle(duty float64) error
	Close() error
}

// Opener opens a transport from its configuration.
type Opener func(cfg TransportConfig) (Transport, error)
