// Package window shows the debug view in a native OpenCV window.
package window

import (
	"fmt"

	"github.com/teslashibe/lanepilot/pkg/display"
	"github.com/teslashibe/lanepilot/pkg/vision"
	"github.com/teslashibe/lanepilot/pkg/vision/opencv"
	"gocv.io/x/gocv"
)

// DefaultQuitKey stops the loop when pressed in the window.
const DefaultQuitKey = 'q'

// Window is a display.Display on a HighGUI window.
// It must be used from the goroutine that created it.
type Window struct {
	w       *gocv.Window
	quitKey int
	stop    bool
}

var _ display.Display = (*Window)(nil)

// New opens a window with the given title.
func New(title string) *Window {
	return &Window{
		w:       gocv.NewWindow(title),
		quitKey: DefaultQuitKey,
	}
}

// Render shows the view. Only gocv-backed frames can be shown.
func (w *Window) Render(view vision.Frame) error {
	m, ok := view.(*opencv.Mat)
	if !ok {
		return fmt.Errorf("window: cannot show %T", view)
	}
	w.w.IMShow(m.Mat())
	return nil
}

// StopRequested pumps the window event loop for 1ms and reports whether
// the quit key has been pressed.
func (w *Window) StopRequested() bool {
	if w.w.WaitKey(1) == w.quitKey {
		w.stop = true
	}
	return w.stop
}

// Close destroys the window.
func (w *Window) Close() error {
	return w.w.Close()
}
