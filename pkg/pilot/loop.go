// Package pilot runs the vision-guided steering loop: acquire a frame,
// estimate a steering line, command the actuator, render the debug view.
package pilot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/teslashibe/lanepilot/pkg/display"
	"github.com/teslashibe/lanepilot/pkg/vision"
)

// FrameSource yields frames in capture order. Next blocks until a frame
// is available and returns io.EOF when the stream has ended.
type FrameSource interface {
	Next(ctx context.Context) (vision.Frame, error)
}

// Estimator turns a frame into a steering estimate. *vision.Chain implements it.
type Estimator interface {
	Estimate(ctx context.Context, frame vision.Frame) (vision.Result, error)
}

// Actuator receives one command per cycle. Close must leave the hardware in
// its fail-safe state and release it. *motor.Controller implements it.
type Actuator interface {
	Run(angle, throttle float64) error
	Close() error
}

// Deps are the loop's collaborators. The loop takes ownership of Actuator
// and Display and closes them on shutdown.
type Deps struct {
	Source    FrameSource
	Estimator Estimator
	Actuator  Actuator

	// Compositor builds the debug view. Nil renders the raw frame.
	Compositor vision.Compositor

	// Display receives the debug view. Nil means headless.
	Display display.Display

	// Metrics is optional.
	Metrics *Metrics

	// Logger defaults to slog.Default tagged component=pilot.
	Logger *slog.Logger
}

// Status is a point-in-time view of the loop for the dashboard.
type Status struct {
	State          string    `json:"state"`
	Cycles         uint64    `json:"cycles"`
	FallbackCycles uint64    `json:"fallback_cycles"`
	NoLineCycles   uint64    `json:"no_line_cycles"`
	EstimateErrors uint64    `json:"estimate_errors"`
	LastCommand    Command   `json:"last_command"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Loop is the control loop. Run drives it on the caller's goroutine.
type Loop struct {
	cfg  Config
	deps Deps
	log  *slog.Logger
	sm   stateMachine

	// consecutive primary errors; loop goroutine only
	failing int

	mu     sync.Mutex
	status Status
}

// NewLoop validates cfg and wires the collaborators.
func NewLoop(cfg Config, deps Deps) (*Loop, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch {
	case deps.Source == nil:
		return nil, fmt.Errorf("%w: frame source", ErrMissingDependency)
	case deps.Estimator == nil:
		return nil, fmt.Errorf("%w: estimator", ErrMissingDependency)
	case deps.Actuator == nil:
		return nil, fmt.Errorf("%w: actuator", ErrMissingDependency)
	}
	if deps.Display == nil {
		deps.Display = display.NewHeadless()
	}

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	l := &Loop{
		cfg:  cfg,
		deps: deps,
		log:  logger.With("component", "pilot"),
	}
	l.sm.onChange = l.transitioned
	l.status.State = Initializing.String()
	return l, nil
}

// OnTransition registers fn to be called on every state change, from the
// loop goroutine. Set it before Run.
func (l *Loop) OnTransition(fn func(from, to State)) {
	l.sm.onChange = func(from, to State) {
		l.transitioned(from, to)
		fn(from, to)
	}
}

func (l *Loop) transitioned(from, to State) {
	l.log.Info("state change", "from", from.String(), "to", to.String())
	l.mu.Lock()
	l.status.State = to.String()
	l.status.UpdatedAt = time.Now()
	l.mu.Unlock()
	if m := l.deps.Metrics; m != nil {
		m.LoopState.Set(float64(to))
	}
}

// State returns the current state. Safe from any goroutine.
func (l *Loop) State() State {
	return l.sm.get()
}

// Status returns a snapshot for the dashboard. Safe from any goroutine.
func (l *Loop) Status() Status {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.status
}

// Run streams until a stop is requested, ctx ends, the source ends, or a
// fatal error occurs. On every exit path it closes the display and then the
// actuator, which commands neutral before releasing the transport.
//
// Run returns nil for a requested stop, a cancelled ctx or the end of the
// stream. Fatal errors are returned joined with any shutdown error.
func (l *Loop) Run(ctx context.Context) error {
	if !l.sm.advance(Streaming) {
		return ErrAlreadyRun
	}

	l.log.Info("streaming",
		"throttle", l.cfg.Throttle,
		"no_line_policy", string(l.cfg.NoLine),
		"frame_timeout", l.cfg.FrameTimeout,
	)

	var err error
	for {
		var stop bool
		if stop, err = l.cycle(ctx); stop {
			break
		}
	}

	l.sm.advance(ShuttingDown)
	if err != nil {
		l.log.Error("stopping on fatal error", "error", err)
	}
	shutdownErr := l.shutdown()
	l.sm.advance(Terminated)

	st := l.Status()
	l.log.Info("terminated",
		"cycles", st.Cycles,
		"fallback_cycles", st.FallbackCycles,
		"no_line_cycles", st.NoLineCycles,
	)
	return errors.Join(err, shutdownErr)
}

// cycle runs one acquire, estimate, actuate, render, poll pass.
// It reports whether the loop should stop and any fatal error.
func (l *Loop) cycle(ctx context.Context) (bool, error) {
	frame, err := l.acquire(ctx)
	if err != nil {
		return true, err
	}
	if frame == nil {
		return true, nil
	}
	defer frame.Close()

	start := time.Now()
	res, estErr := l.deps.Estimator.Estimate(ctx, frame)
	defer res.Close()

	cmd := Derive(res.Estimate, l.cfg.Throttle, l.cfg.NoLine)
	if err := l.deps.Actuator.Run(cmd.Angle, cmd.Throttle); err != nil {
		if m := l.deps.Metrics; m != nil {
			m.ActuationErrors.Inc()
		}
		return true, fmt.Errorf("actuate: %w", err)
	}
	l.record(cmd, res, estErr, time.Since(start))

	l.render(frame, res.Overlay)

	if estErr != nil {
		l.failing++
		l.log.Warn("estimation failed, steering centered", "error", estErr, "consecutive", l.failing)
		if limit := l.cfg.MaxEstimateErrors; limit > 0 && l.failing >= limit {
			return true, fmt.Errorf("%w: %d consecutive errors: %w", ErrVisionFailing, l.failing, estErr)
		}
	} else {
		l.failing = 0
	}

	if l.deps.Display.StopRequested() {
		l.log.Info("stop requested")
		return true, nil
	}
	if ctx.Err() != nil {
		l.log.Info("context done", "reason", ctx.Err())
		return true, nil
	}
	return false, nil
}

// acquire returns the next frame. A nil frame with a nil error means the
// loop should stop cleanly.
func (l *Loop) acquire(ctx context.Context) (vision.Frame, error) {
	if ctx.Err() != nil {
		return nil, nil
	}

	actx := ctx
	if l.cfg.FrameTimeout > 0 {
		var cancel context.CancelFunc
		actx, cancel = context.WithTimeout(ctx, l.cfg.FrameTimeout)
		defer cancel()
	}

	frame, err := l.deps.Source.Next(actx)
	switch {
	case err == nil:
		return frame, nil
	case errors.Is(err, io.EOF):
		l.log.Info("frame source ended")
		return nil, nil
	case ctx.Err() != nil:
		return nil, nil
	case errors.Is(err, context.DeadlineExceeded):
		return nil, fmt.Errorf("%w after %s", ErrFrameTimeout, l.cfg.FrameTimeout)
	default:
		return nil, fmt.Errorf("acquire frame: %w", err)
	}
}

func (l *Loop) record(cmd Command, res vision.Result, estErr error, elapsed time.Duration) {
	l.log.Debug("steering",
		"angle", cmd.Angle,
		"throttle", cmd.Throttle,
		"source", cmd.Source,
		"fallback", res.FallbackUsed,
	)

	l.mu.Lock()
	l.status.Cycles++
	if res.FallbackUsed {
		l.status.FallbackCycles++
	}
	if cmd.Source == SourceNone {
		l.status.NoLineCycles++
	}
	if estErr != nil {
		l.status.EstimateErrors++
	}
	l.status.LastCommand = cmd
	l.status.UpdatedAt = time.Now()
	l.mu.Unlock()

	m := l.deps.Metrics
	if m == nil {
		return
	}
	m.Cycles.Inc()
	m.CycleSeconds.Observe(elapsed.Seconds())
	m.SteeringAngle.Set(cmd.Angle)
	m.ThrottleSetpoint.Set(cmd.Throttle)
	if res.FallbackUsed {
		m.FallbackCycles.Inc()
	}
	if cmd.Source == SourceNone {
		m.NoLineCycles.Inc()
	}
	if estErr != nil {
		m.EstimateErrors.Inc()
	}
}

// render composes and shows the debug view. Failures are logged only.
func (l *Loop) render(frame, overlay vision.Frame) {
	view := frame
	if c := l.deps.Compositor; c != nil {
		composed, err := c.Compose(frame, overlay)
		if err != nil {
			l.renderFailed("compose", err)
			return
		}
		defer composed.Close()
		view = composed
	}
	if err := l.deps.Display.Render(view); err != nil {
		l.renderFailed("render", err)
	}
}

func (l *Loop) renderFailed(op string, err error) {
	l.log.Warn("debug view failed", "op", op, "error", err)
	if m := l.deps.Metrics; m != nil {
		m.RenderErrors.Inc()
	}
}

func (l *Loop) shutdown() error {
	var errs []error
	if err := l.deps.Display.Close(); err != nil {
		l.log.Warn("display close failed", "error", err)
		errs = append(errs, fmt.Errorf("close display: %w", err))
	}
	if err := l.deps.Actuator.Close(); err != nil {
		l.log.Error("actuator shutdown failed", "error", err)
		errs = append(errs, fmt.Errorf("close actuator: %w", err))
	}
	return errors.Join(errs...)
}
