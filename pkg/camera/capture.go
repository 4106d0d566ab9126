package camera

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/teslashibe/lanepilot/pkg/vision"
	"github.com/teslashibe/lanepilot/pkg/vision/opencv"
	"gocv.io/x/gocv"
)

// Capture reads frames from a gocv.VideoCapture on its own goroutine and
// hands them to the consumer through a bounded Queue.
type Capture struct {
	cfg    Config
	vc     *gocv.VideoCapture
	queue  *Queue
	logger *slog.Logger

	frames atomic.Uint64
	stop   chan struct{}
	done   chan struct{}
}

// Open opens the device, applies the resolution and starts reading.
func Open(cfg Config) (*Capture, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	vc, err := gocv.OpenVideoCapture(cfg.Device)
	if err != nil {
		return nil, fmt.Errorf("camera: open %s: %w", cfg.Device, err)
	}
	if !vc.IsOpened() {
		vc.Close()
		return nil, fmt.Errorf("camera: device %s did not open", cfg.Device)
	}

	vc.Set(gocv.VideoCaptureFrameWidth, float64(cfg.Width))
	vc.Set(gocv.VideoCaptureFrameHeight, float64(cfg.Height))
	vc.Set(gocv.VideoCaptureFPS, float64(cfg.FPS))

	c := &Capture{
		cfg:    cfg,
		vc:     vc,
		queue:  NewQueue(cfg.QueueSize),
		logger: slog.Default().With("component", "camera", "device", cfg.Device),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}

	c.logger.Info("camera opened",
		"preset", cfg.Preset,
		"width", int(vc.Get(gocv.VideoCaptureFrameWidth)),
		"height", int(vc.Get(gocv.VideoCaptureFrameHeight)),
		"fps", vc.Get(gocv.VideoCaptureFPS),
		"codec", vc.CodecString(),
		"queue_size", cfg.QueueSize,
	)

	go c.read()
	return c, nil
}

func (c *Capture) read() {
	defer close(c.done)

	for {
		select {
		case <-c.stop:
			c.queue.Finish()
			return
		default:
		}

		m := gocv.NewMat()
		if ok := c.vc.Read(&m); !ok {
			m.Close()
			c.queue.FinishErr(c.readFailure())
			return
		}
		if m.Empty() {
			m.Close()
			continue
		}

		c.frames.Add(1)
		c.queue.Push(opencv.Wrap(m))
	}
}

// readFailure maps a failed read to the queue's terminal error. Files and
// streams end with io.EOF; a live camera that stops reading has been lost.
func (c *Capture) readFailure() error {
	if !c.cfg.Live() {
		c.logger.Info("camera stream ended", "frames", c.frames.Load())
		return nil
	}
	c.logger.Error("camera read failed", "frames", c.frames.Load())
	return fmt.Errorf("%w: device %s", ErrDeviceLost, c.cfg.Device)
}

// Next blocks until the next frame is available. Frames arrive in capture
// order; frames older than the queue bound have been dropped.
// It returns io.EOF once a file or stream has ended, and an error wrapping
// ErrDeviceLost if a live camera stops delivering frames.
func (c *Capture) Next(ctx context.Context) (vision.Frame, error) {
	select {
	case <-c.stop:
		return nil, ErrClosed
	default:
	}
	return c.queue.Next(ctx)
}

// Stats returns frames read and frames dropped.
func (c *Capture) Stats() (read, dropped uint64) {
	return c.frames.Load(), c.queue.Dropped()
}

// Close stops the reader and releases the device.
func (c *Capture) Close() error {
	select {
	case <-c.stop:
		return nil
	default:
		close(c.stop)
	}

	<-c.done
	c.queue.Drain()

	read, dropped := c.Stats()
	c.logger.Info("camera closed", "frames", read, "dropped", dropped)
	return c.vc.Close()
}
