// Package display renders the debug view and relays operator stop requests.
package display

import (
	"errors"
	"sync/atomic"

	"github.com/teslashibe/lanepilot/pkg/vision"
)

// Display is a debug view sink.
//
// Render does not take ownership of the frame. StopRequested reports
// whether an operator asked the loop to stop; it must not block.
type Display interface {
	Render(view vision.Frame) error
	StopRequested() bool
	Close() error
}

// Headless renders nothing. Stop is requested only through RequestStop.
type Headless struct {
	stop atomic.Bool
}

// NewHeadless creates a headless display.
func NewHeadless() *Headless {
	return &Headless{}
}

// Render discards the view.
func (h *Headless) Render(vision.Frame) error { return nil }

// StopRequested reports whether RequestStop was called.
func (h *Headless) StopRequested() bool { return h.stop.Load() }

// RequestStop asks the loop to stop at the end of the current cycle.
func (h *Headless) RequestStop() { h.stop.Store(true) }

// Close is a no-op.
func (h *Headless) Close() error { return nil }

// Multi fans rendering out to several displays. A stop requested by any
// member stops the loop.
type Multi []Display

// Render renders on every member and joins their errors.
func (m Multi) Render(view vision.Frame) error {
	var errs []error
	for _, d := range m {
		if err := d.Render(view); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// StopRequested polls every member; all members are polled so each can
// service its own event queue.
func (m Multi) StopRequested() bool {
	stop := false
	for _, d := range m {
		if d.StopRequested() {
			stop = true
		}
	}
	return stop
}

// Close closes every member.
func (m Multi) Close() error {
	var errs []error
	for _, d := range m {
		if err := d.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
