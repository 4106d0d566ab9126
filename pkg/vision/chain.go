package vision

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// ErrNoStrategy is returned when a chain is built without a primary strategy.
var ErrNoStrategy = errors.New("vision: primary strategy required")

// StrategyError wraps an error with the failing strategy's name.
type StrategyError struct {
	Strategy string
	Err      error
}

// Error implements the error interface.
func (e *StrategyError) Error() string {
	return fmt.Sprintf("vision [%s]: %v", e.Strategy, e.Err)
}

// Unwrap returns the underlying error.
func (e *StrategyError) Unwrap() error {
	return e.Err
}

// Chain runs a primary strategy and, only when it finds no line, a fallback.
//
// A primary error does not trigger the fallback: the error is returned and
// the caller applies its no-line policy for that frame.
type Chain struct {
	primary  Strategy
	fallback Strategy
	logger   *slog.Logger
}

// NewChain creates a ranked chain. fallback may be nil.
func NewChain(primary, fallback Strategy) (*Chain, error) {
	if primary == nil {
		return nil, ErrNoStrategy
	}
	return &Chain{
		primary:  primary,
		fallback: fallback,
		logger:   slog.Default().With("component", "vision.chain"),
	}, nil
}

// Result is the outcome of running a chain on one frame.
type Result struct {
	Estimate

	// FallbackUsed is true when the fallback strategy ran.
	FallbackUsed bool
}

// Estimate runs the chain on frame. The returned estimate's overlay belongs
// to the caller; an overlay from a primary that found nothing is released
// before the fallback runs.
func (c *Chain) Estimate(ctx context.Context, frame Frame) (Result, error) {
	est, err := c.primary.Estimate(ctx, frame)
	if err != nil {
		est.Close()
		return Result{}, &StrategyError{Strategy: c.primary.Name(), Err: err}
	}
	est.Strategy = c.primary.Name()
	if est.Found() || c.fallback == nil {
		return Result{Estimate: est}, nil
	}

	fb, err := c.fallback.Estimate(ctx, frame)
	if err != nil {
		fb.Close()
		c.logger.Debug("fallback strategy failed, keeping primary result",
			"strategy", c.fallback.Name(),
			"error", err,
		)
		return Result{Estimate: est, FallbackUsed: true}, nil
	}

	est.Close()
	fb.Strategy = c.fallback.Name()
	return Result{Estimate: fb, FallbackUsed: true}, nil
}

// Names returns the strategy names in rank order.
func (c *Chain) Names() []string {
	names := []string{c.primary.Name()}
	if c.fallback != nil {
		names = append(names, c.fallback.Name())
	}
	return names
}
