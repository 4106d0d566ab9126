// Package app wires the lanepilot components from a process config and owns
// their lifecycle.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/teslashibe/lanepilot/internal/config"
	"github.com/teslashibe/lanepilot/internal/log"
	"github.com/teslashibe/lanepilot/pkg/camera"
	"github.com/teslashibe/lanepilot/pkg/display"
	"github.com/teslashibe/lanepilot/pkg/display/window"
	"github.com/teslashibe/lanepilot/pkg/motor"
	"github.com/teslashibe/lanepilot/pkg/pilot"
	"github.com/teslashibe/lanepilot/pkg/vesc"
	"github.com/teslashibe/lanepilot/pkg/vision"
	"github.com/teslashibe/lanepilot/pkg/vision/opencv"
	"github.com/teslashibe/lanepilot/pkg/web"
)

// Transports maps transport.kind to its opener.
func Transports() map[string]motor.Opener {
	return map[string]motor.Opener{
		motor.KindVESC: vesc.Open,
		motor.KindMock: motor.OpenMock,
	}
}

// Strategies maps a strategy name to its constructor.
func Strategies() map[string]func() vision.Strategy {
	return map[string]func() vision.Strategy{
		config.StrategyYellow: func() vision.Strategy {
			return opencv.NewYellowSegmentation(opencv.DefaultYellowConfig())
		},
		config.StrategyLanes: func() vision.Strategy {
			return opencv.NewLaneDetection(opencv.DefaultLaneConfig())
		},
	}
}

// App owns every component of one run.
type App struct {
	cfg    config.Config
	runID  string
	base   *slog.Logger
	logger *slog.Logger

	transports map[string]motor.Opener

	controller *motor.Controller
	capture    *camera.Capture
	chain      *vision.Chain
	dashboard  *web.Server
	displays   display.Multi
	metrics    *pilot.Metrics
	loop       *pilot.Loop
}

// New validates cfg and prepares an App. Nothing is opened until Init.
func New(cfg config.Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	runID := uuid.NewString()
	base := log.With("run_id", runID)
	return &App{
		cfg:        cfg,
		runID:      runID,
		base:       base,
		logger:     base.With("component", "app"),
		transports: Transports(),
	}, nil
}

// RunID identifies this run in logs and on the dashboard.
func (a *App) RunID() string {
	return a.runID
}

// RegisterTransport replaces the opener for kind.
func (a *App) RegisterTransport(kind string, open motor.Opener) {
	a.transports[kind] = open
}

// Init opens the actuator first, then vision, camera and displays.
// Any failure releases what was already opened and is returned as is, so a
// *motor.ConnectError keeps its remediation.
func (a *App) Init() error {
	if err := a.init(); err != nil {
		a.release()
		return err
	}
	return nil
}

func (a *App) init() error {
	open, ok := a.transports[a.cfg.Transport.Kind]
	if !ok {
		return fmt.Errorf("app: no transport registered for %q", a.cfg.Transport.Kind)
	}
	ctrl, err := motor.Initialize(open, a.cfg.Transport, a.cfg.Actuator)
	if err != nil {
		return err
	}
	a.controller = ctrl
	a.logger.Info("actuator ready",
		"transport", a.cfg.Transport.Kind,
		"port", a.cfg.Transport.Port,
		"max_power_fraction", a.cfg.Actuator.MaxPowerFraction,
		"steering_scale", a.cfg.Actuator.SteeringScale,
		"steering_offset", a.cfg.Actuator.SteeringOffset,
	)

	chain, err := a.buildChain()
	if err != nil {
		return err
	}
	a.chain = chain

	camCfg, err := a.cameraConfig()
	if err != nil {
		return err
	}
	capture, err := camera.Open(camCfg)
	if err != nil {
		return err
	}
	a.capture = capture

	a.metrics = pilot.NewMetrics()
	if err := a.buildDisplays(); err != nil {
		return err
	}

	loop, err := pilot.NewLoop(a.cfg.Loop, pilot.Deps{
		Source:     a.capture,
		Estimator:  a.chain,
		Actuator:   a.controller,
		Compositor: opencv.DefaultBlend(),
		Display:    a.displays,
		Metrics:    a.metrics,
		Logger:     a.base,
	})
	if err != nil {
		return err
	}
	a.loop = loop
	return nil
}

func (a *App) buildChain() (*vision.Chain, error) {
	strategies := Strategies()
	primary := strategies[a.cfg.Vision.Primary]
	if primary == nil {
		return nil, fmt.Errorf("app: unknown strategy %q", a.cfg.Vision.Primary)
	}
	var fallback vision.Strategy
	if name := a.cfg.Vision.Fallback; name != "" {
		build := strategies[name]
		if build == nil {
			return nil, fmt.Errorf("app: unknown strategy %q", name)
		}
		fallback = build()
	}

	chain, err := vision.NewChain(primary(), fallback)
	if err != nil {
		return nil, err
	}
	a.logger.Info("vision ready", "strategies", strings.Join(chain.Names(), " > "))
	return chain, nil
}

func (a *App) cameraConfig() (camera.Config, error) {
	c := a.cfg.Camera
	preset := camera.GetPreset(c.Preset)
	if preset == nil {
		return camera.Config{}, fmt.Errorf("app: unknown camera preset %q (have %s)",
			c.Preset, strings.Join(camera.PresetNames(), ", "))
	}
	cfg := *preset
	cfg.Device = c.Device
	if c.Width > 0 {
		cfg.Width = c.Width
	}
	if c.Height > 0 {
		cfg.Height = c.Height
	}
	if c.FPS > 0 {
		cfg.FPS = c.FPS
	}
	return cfg, nil
}

func (a *App) buildDisplays() error {
	if a.cfg.Display.Window {
		a.displays = append(a.displays, window.New(a.cfg.Display.Title))
	}

	if a.cfg.Display.Dashboard.Port == "" {
		return nil
	}
	srv, err := web.NewServer(a.cfg.Display.Dashboard, a.status, a.metrics.Registry)
	if err != nil {
		return err
	}
	if err := srv.Start(); err != nil {
		srv.Close()
		return err
	}
	a.dashboard = srv
	a.displays = append(a.displays, srv)
	return nil
}

// Status is what the dashboard serves.
type Status struct {
	RunID      string   `json:"run_id"`
	Transport  string   `json:"transport"`
	Strategies []string `json:"strategies"`
	pilot.Status
}

func (a *App) status() any {
	st := Status{RunID: a.runID, Transport: a.cfg.Transport.Kind}
	if a.chain != nil {
		st.Strategies = a.chain.Names()
	}
	if a.loop != nil {
		st.Status = a.loop.Status()
	}
	return st
}

// Run drives the control loop until it terminates. The loop closes the
// displays and the actuator; Run then releases the camera.
func (a *App) Run(ctx context.Context) error {
	if a.loop == nil {
		return errors.New("app: Run called before Init")
	}
	a.logger.Info("lanepilot running")
	err := a.loop.Run(ctx)

	if a.capture != nil {
		if cerr := a.capture.Close(); cerr != nil {
			a.logger.Warn("camera close failed", "error", cerr)
		}
		a.capture = nil
	}
	return err
}

// Shutdown releases anything still open. It is safe after Run and after a
// failed Init.
func (a *App) Shutdown() {
	a.release()
}

func (a *App) release() {
	if a.loop != nil && a.loop.State() == pilot.Terminated {
		// The loop already closed the displays and the actuator.
		a.displays, a.dashboard, a.controller = nil, nil, nil
	}

	if len(a.displays) > 0 {
		if err := a.displays.Close(); err != nil {
			a.logger.Warn("display close failed", "error", err)
		}
		a.displays, a.dashboard = nil, nil
	}
	if a.capture != nil {
		if err := a.capture.Close(); err != nil {
			a.logger.Warn("camera close failed", "error", err)
		}
		a.capture = nil
	}
	if a.controller != nil {
		if err := a.controller.Close(); err != nil {
			a.logger.Error("actuator release failed", "error", err)
		}
		a.controller = nil
	}
}
