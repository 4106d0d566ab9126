package vesc

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"sync"
	"time"

	"github.com/teslashibe/lanepilot/pkg/motor"
	"go.bug.st/serial"
)

// HeartbeatInterval is how often COMM_ALIVE is sent. The VESC firmware
// stops the motor when it stops hearing from the host.
const HeartbeatInterval = 100 * time.Millisecond

var (
	// ErrConnectionLost is returned once a write to the VESC has failed.
	ErrConnectionLost = errors.New("vesc: connection lost")

	// ErrClosed is returned when writing after Close.
	ErrClosed = errors.New("vesc: transport closed")
)

// openPort opens the serial device; replaced in tests.
var openPort = func(name string, mode *serial.Mode, timeout time.Duration) (io.WriteCloser, error) {
	p, err := serial.Open(name, mode)
	if err != nil {
		return nil, err
	}
	if timeout > 0 {
		if err := p.SetReadTimeout(timeout); err != nil {
			p.Close()
			return nil, err
		}
	}
	return p, nil
}

// Transport implements motor.Transport for a VESC on a serial port.
// Writes from the control loop and the heartbeat goroutine are serialized.
type Transport struct {
	port   io.WriteCloser
	name   string
	logger *slog.Logger

	mu     sync.Mutex
	lost   error
	closed bool

	stop chan struct{}
	done chan struct{}
}

var _ motor.Transport = (*Transport)(nil)

// Open opens the serial port and, if configured, starts the heartbeat.
// Open failures are returned as *motor.ConnectError.
func Open(cfg motor.TransportConfig) (motor.Transport, error) {
	baud := cfg.Baud
	if baud == 0 {
		baud = motor.DefaultTransportConfig().Baud
	}

	p, err := openPort(cfg.Port, &serial.Mode{BaudRate: baud}, cfg.Timeout)
	if err != nil {
		return nil, classify(cfg.Port, err)
	}

	t := newTransport(p, cfg.Port)
	t.logger.Info("serial port open", "baud", baud, "heartbeat", cfg.Heartbeat)

	if cfg.HasSensor {
		if err := t.write(DetectPayload(DispPosOff)); err != nil {
			p.Close()
			return nil, &motor.ConnectError{Kind: motor.Unreachable, Port: cfg.Port, Err: err}
		}
	}
	if cfg.Heartbeat {
		t.startHeartbeat(HeartbeatInterval)
	}
	return t, nil
}

func newTransport(p io.WriteCloser, name string) *Transport {
	return &Transport{
		port:   p,
		name:   name,
		logger: slog.Default().With("component", "vesc", "port", name),
	}
}

// classify maps serial open errors onto motor.ConnectError kinds.
func classify(port string, err error) error {
	kind := motor.Unreachable

	var pe *serial.PortError
	if errors.As(err, &pe) {
		switch pe.Code() {
		case serial.PermissionDenied:
			kind = motor.PermissionDenied
		case serial.PortNotFound, serial.PortBusy:
			kind = motor.Unreachable
		}
	} else if errors.Is(err, fs.ErrPermission) {
		kind = motor.PermissionDenied
	}
	return &motor.ConnectError{Kind: kind, Port: port, Err: err}
}

// SetServo sends COMM_SET_SERVO_POS.
func (t *Transport) SetServo(position float64) error {
	return t.write(ServoPayload(position))
}

// SetDutyCycle sends COMM_SET_DUTY.
func (t *Transport) SetDutyCycle(duty float64) error {
	return t.write(DutyPayload(duty))
}

// Alive sends a single COMM_ALIVE.
func (t *Transport) Alive() error {
	return t.write(AlivePayload())
}

func (t *Transport) write(payload []byte) error {
	frame, err := Encode(payload)
	if err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return ErrClosed
	}
	if t.lost != nil {
		return fmt.Errorf("%w: %v", ErrConnectionLost, t.lost)
	}
	if _, err := t.port.Write(frame); err != nil {
		t.lost = err
		return fmt.Errorf("%w: %v", ErrConnectionLost, err)
	}
	return nil
}

func (t *Transport) startHeartbeat(interval time.Duration) {
	t.stop = make(chan struct{})
	t.done = make(chan struct{})

	go func() {
		defer close(t.done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-t.stop:
				return
			case <-ticker.C:
				if err := t.Alive(); err != nil {
					if !errors.Is(err, ErrClosed) {
						t.logger.Error("heartbeat failed, actuator will fail safe", "error", err)
					}
					return
				}
			}
		}
	}()
}

// Close stops the heartbeat and closes the serial port.
func (t *Transport) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	t.mu.Unlock()

	if t.stop != nil {
		close(t.stop)
		<-t.done
	}

	t.logger.Info("serial port closed")
	return t.port.Close()
}
