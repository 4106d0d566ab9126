package motor

import (
	"log/slog"
	"sync"
)

// Mock implements Transport for testing and dry runs.
// Every command is recorded; errors can be injected per operation.
type Mock struct {
	// ServoErr is returned by SetServo when set.
	ServoErr error

	// DutyErr is returned by SetDutyCycle when set.
	DutyErr error

	// CloseErr is returned by Close when set.
	CloseErr error

	// Logger, when set, receives a debug line per command.
	Logger *slog.Logger

	mu     sync.Mutex
	calls  []MockCall
	closed bool
}

// MockCall records one transport invocation.
type MockCall struct {
	Method string
	Value  float64
}

// NewMock creates a mock transport.
func NewMock() *Mock {
	return &Mock{}
}

// OpenMock is an Opener that returns a logging mock transport.
func OpenMock(cfg TransportConfig) (Transport, error) {
	m := NewMock()
	m.Logger = slog.Default().With("component", "motor.mock", "port", cfg.Port)
	return m, nil
}

// SetServo records the servo position.
func (m *Mock) SetServo(position float64) error {
	m.record("SetServo", position)
	return m.ServoErr
}

// SetDutyCycle records the duty cycle.
func (m *Mock) SetDutyCycle(duty float64) error {
	m.record("SetDutyCycle", duty)
	return m.DutyErr
}

// Close marks the transport released.
func (m *Mock) Close() error {
	m.record("Close", 0)
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return m.CloseErr
}

func (m *Mock) record(method string, v float64) {
	m.mu.Lock()
	m.calls = append(m.calls, MockCall{Method: method, Value: v})
	m.mu.Unlock()
	if m.Logger != nil {
		m.Logger.Debug(method, "value", v)
	}
}

// Calls returns a copy of every recorded call.
func (m *Mock) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]MockCall, len(m.calls))
	copy(out, m.calls)
	return out
}

// Values returns the recorded values for one method, in order.
func (m *Mock) Values(method string) []float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []float64
	for _, c := range m.calls {
		if c.Method == method {
			out = append(out, c.Value)
		}
	}
	return out
}

// Closed reports whether Close was called.
func (m *Mock) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}
