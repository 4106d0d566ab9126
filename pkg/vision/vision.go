// Package vision defines the steering estimation contract: a frame goes in,
// an overlay and an optional steering line come out.
//
// The concrete OpenCV strategies live in the opencv subpackage; this package
// stays free of cgo so the control loop can be tested without OpenCV.
package vision

import (
	"context"
	"math"
)

// Frame is an image buffer with known dimensions.
// The holder of a Frame must Close it when done.
type Frame interface {
	Width() int
	Height() int
	Close() error
}

// JPEGEncoder is implemented by frames that can be encoded for remote viewing.
type JPEGEncoder interface {
	EncodeJPEG(quality int) ([]byte, error)
}

// SteeringLine is a vision-derived estimate of the path direction.
type SteeringLine struct {
	// Segment endpoints in pixels; (X1, Y1) is the near end (bottom of frame).
	X1, Y1, X2, Y2 int

	// Offset is the normalized lateral offset of the lookahead point from
	// frame center: -1 is the left edge, +1 the right edge.
	Offset float64
}

// Estimate is the output of one strategy for one frame.
type Estimate struct {
	// Overlay is an annotated image the same size as the input, or nil.
	Overlay Frame

	// Line is nil when no steering line was found. That is a valid result, not an error.
	Line *SteeringLine

	// Strategy names the strategy that produced this estimate.
	Strategy string
}

// Found reports whether the estimate carries a steering line.
func (e Estimate) Found() bool {
	return e.Line != nil
}

// Close releases the overlay, if any.
func (e Estimate) Close() error {
	if e.Overlay == nil {
		return nil
	}
	return e.Overlay.Close()
}

// Strategy turns a frame into an estimate.
type Strategy interface {
	Name() string
	Estimate(ctx context.Context, frame Frame) (Estimate, error)
}

// Compositor blends a frame with an overlay into a debug view.
type Compositor interface {
	Compose(frame, overlay Frame) (Frame, error)
}

// OffsetAt returns the normalized lateral offset of pixel column x in a frame
// of the given width. Columns are clamped to the frame.
func OffsetAt(x float64, width int) float64 {
	if width <= 0 {
		return 0
	}
	half := float64(width) / 2
	return clamp((x-half)/half, -1, 1)
}

// LineFromSegment builds a SteeringLine from two endpoints, ordering them so
// (X1, Y1) is the one nearest the bottom of the frame. The offset is taken at
// the far end, which is the lookahead point.
func LineFromSegment(x1, y1, x2, y2, width int) SteeringLine {
	if y2 > y1 {
		x1, y1, x2, y2 = x2, y2, x1, y1
	}
	return SteeringLine{
		X1: x1, Y1: y1, X2: x2, Y2: y2,
		Offset: OffsetAt(float64(x2), width),
	}
}

func clamp(v, min, max float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
