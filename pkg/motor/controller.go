package motor

import (
	"errors"
	"io/fs"
	"log/slog"
)

// Controller is the live handle to one actuator.
// It exclusively owns its Transport and releases it on Close.
//
// A Controller is driven from a single goroutine; it does no locking.
type Controller struct {
	transport Transport
	cfg       ActuatorConfig
	logger    *slog.Logger

	lastServo float64
	lastDuty  float64
	closed    bool
}

// Initialize validates cfg, then opens the transport described by tc.
// Configuration errors are returned before open is called. Open failures
// are returned as *ConnectError; the controller does not retry.
func Initialize(open Opener, tc TransportConfig, cfg ActuatorConfig) (*Controller, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if open == nil {
		return nil, ErrNoTransport
	}

	t, err := open(tc)
	if err != nil {
		return nil, classifyOpenError(tc.Port, err)
	}
	return New(t, cfg)
}

// New wraps an already opened transport.
func New(t Transport, cfg ActuatorConfig) (*Controller, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if t == nil {
		return nil, ErrNoTransport
	}
	return &Controller{
		transport: t,
		cfg:       cfg,
		logger:    slog.Default().With("component", "motor"),
		lastServo: cfg.SteeringOffset,
	}, nil
}

// classifyOpenError maps an open failure onto a ConnectError.
func classifyOpenError(port string, err error) error {
	var ce *ConnectError
	if errors.As(err, &ce) {
		return ce
	}
	kind := Unreachable
	if errors.Is(err, fs.ErrPermission) {
		kind = PermissionDenied
	}
	return &ConnectError{Kind: kind, Port: port, Err: err}
}

// Config returns the actuator configuration.
func (c *Controller) Config() ActuatorConfig {
	return c.cfg
}

// Run commands a normalized steering angle and throttle.
// The servo receives angle*scale+offset and the motor throttle*maxPower.
// Transport failures are returned as *ActuationError.
func (c *Controller) Run(angle, throttle float64) error {
	return c.send(c.cfg.Servo(angle), c.cfg.Duty(throttle))
}

// Neutral centers the steering and zeroes the duty cycle.
func (c *Controller) Neutral() error {
	return c.send(c.cfg.SteeringOffset, 0)
}

func (c *Controller) send(servo, duty float64) error {
	if c.closed {
		return ErrClosed
	}
	if err := c.transport.SetServo(servo); err != nil {
		return &ActuationError{Op: "set servo", Err: err}
	}
	c.lastServo = servo
	if err := c.transport.SetDutyCycle(duty); err != nil {
		return &ActuationError{Op: "set duty cycle", Err: err}
	}
	c.lastDuty = duty
	return nil
}

// Last returns the most recent servo and duty commands delivered to the transport.
func (c *Controller) Last() (servo, duty float64) {
	return c.lastServo, c.lastDuty
}

// Close commands the fail-safe state and releases the transport.
// The transport is released even when the fail-safe command fails.
// Calling Close more than once is a no-op.
func (c *Controller) Close() error {
	if c.closed {
		return nil
	}

	safeErr := c.Neutral()
	if safeErr != nil {
		c.logger.Warn("fail-safe command failed before release", "error", safeErr)
	}
	c.closed = true

	if err := c.transport.Close(); err != nil {
		return errors.Join(safeErr, err)
	}
	return safeErr
}
