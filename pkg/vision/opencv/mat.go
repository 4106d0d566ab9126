// Package opencv implements the vision strategies, compositor and frame type on GoCV.
package opencv

import (
	"fmt"
	"image"

	"github.com/teslashibe/lanepilot/pkg/vision"
	"gocv.io/x/gocv"
)

// Mat is a vision.Frame backed by a gocv.Mat. Closing it frees the native buffer.
type Mat struct {
	m gocv.Mat
}

var (
	_ vision.Frame       = (*Mat)(nil)
	_ vision.JPEGEncoder = (*Mat)(nil)
)

// Wrap takes ownership of m.
func Wrap(m gocv.Mat) *Mat {
	return &Mat{m: m}
}

// Mat returns the underlying matrix. It stays owned by the frame.
func (f *Mat) Mat() gocv.Mat {
	return f.m
}

// Width returns the number of columns.
func (f *Mat) Width() int { return f.m.Cols() }

// Height returns the number of rows.
func (f *Mat) Height() int { return f.m.Rows() }

// Size returns the frame size as a point.
func (f *Mat) Size() image.Point { return image.Pt(f.m.Cols(), f.m.Rows()) }

// Close frees the native buffer.
func (f *Mat) Close() error {
	return f.m.Close()
}

// EncodeJPEG encodes the frame at the given quality (1-100).
func (f *Mat) EncodeJPEG(quality int) ([]byte, error) {
	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, f.m, []int{int(gocv.IMWriteJpegQuality), quality})
	if err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	defer buf.Close()

	// GetBytes aliases native memory freed by Close.
	out := make([]byte, buf.Len())
	copy(out, buf.GetBytes())
	return out, nil
}

// matOf extracts the gocv.Mat behind a frame.
func matOf(f vision.Frame) (gocv.Mat, error) {
	m, ok := f.(*Mat)
	if !ok {
		return gocv.Mat{}, fmt.Errorf("opencv: unsupported frame type %T", f)
	}
	if m.m.Empty() {
		return gocv.Mat{}, fmt.Errorf("opencv: empty frame")
	}
	return m.m, nil
}
