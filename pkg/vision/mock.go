package vision

import (
	"context"
	"sync"
	"sync/atomic"
)

// MockFrame implements Frame for testing.
type MockFrame struct {
	W, H int
	Seq  int

	closed atomic.Bool
}

// NewMockFrame creates a mock frame of the given size.
func NewMockFrame(w, h, seq int) *MockFrame {
	return &MockFrame{W: w, H: h, Seq: seq}
}

// Width returns the frame width.
func (f *MockFrame) Width() int { return f.W }

// Height returns the frame height.
func (f *MockFrame) Height() int { return f.H }

// Close marks the frame released.
func (f *MockFrame) Close() error {
	f.closed.Store(true)
	return nil
}

// Closed reports whether Close was called.
func (f *MockFrame) Closed() bool {
	return f.closed.Load()
}

// EncodeJPEG returns a tiny placeholder payload.
func (f *MockFrame) EncodeJPEG(quality int) ([]byte, error) {
	return []byte{0xFF, 0xD8, byte(f.Seq), 0xFF, 0xD9}, nil
}

// MockStrategy implements Strategy for testing.
type MockStrategy struct {
	// StrategyName is returned by Name.
	StrategyName string

	// EstimateFunc is called when Estimate is invoked.
	EstimateFunc func(ctx context.Context, frame Frame) (Estimate, error)

	mu    sync.Mutex
	calls int
}

// NewMockStrategy creates a strategy that always returns line (nil means "no line").
func NewMockStrategy(name string, line *SteeringLine) *MockStrategy {
	return &MockStrategy{
		StrategyName: name,
		EstimateFunc: func(ctx context.Context, frame Frame) (Estimate, error) {
			return Estimate{
				Overlay: NewMockFrame(frame.Width(), frame.Height(), 0),
				Line:    line,
			}, nil
		},
	}
}

// MockWithError creates a strategy that always fails.
func MockWithError(name string, err error) *MockStrategy {
	return &MockStrategy{
		StrategyName: name,
		EstimateFunc: func(ctx context.Context, frame Frame) (Estimate, error) {
			return Estimate{}, err
		},
	}
}

// Name returns the strategy name.
func (m *MockStrategy) Name() string { return m.StrategyName }

// Estimate calls EstimateFunc and records the call.
func (m *MockStrategy) Estimate(ctx context.Context, frame Frame) (Estimate, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.EstimateFunc == nil {
		return Estimate{}, nil
	}
	return m.EstimateFunc(ctx, frame)
}

// Calls returns how many times Estimate ran.
func (m *MockStrategy) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// PassThrough is a Compositor that returns the frame unchanged, without taking ownership.
type PassThrough struct{}

// Compose returns a view with the frame's size.
func (PassThrough) Compose(frame, overlay Frame) (Frame, error) {
	return NewMockFrame(frame.Width(), frame.Height(), 0), nil
}
