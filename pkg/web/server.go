// Package web serves the operator dashboard: loop status, an operator stop,
// prometheus metrics and the live debug view over websockets.
package web

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/teslashibe/lanepilot/pkg/display"
	"github.com/teslashibe/lanepilot/pkg/hub"
	"github.com/teslashibe/lanepilot/pkg/vision"
)

// Config holds dashboard settings.
type Config struct {
	// Port to listen on. Empty disables the dashboard.
	Port string `yaml:"port"`

	// JPEGQuality for the camera stream (1-100).
	JPEGQuality int `yaml:"jpeg_quality"`

	// MaxViewFPS caps how often views are encoded for the camera stream.
	MaxViewFPS int `yaml:"max_view_fps"`

	// StatusInterval is how often status is pushed to /ws/status.
	StatusInterval time.Duration `yaml:"status_interval"`
}

// DefaultConfig returns a dashboard on :8080 streaming at most 15 views a second.
func DefaultConfig() Config {
	return Config{
		Port:           "8080",
		JPEGQuality:    70,
		MaxViewFPS:     15,
		StatusInterval: 250 * time.Millisecond,
	}
}

// Validate checks the config values are within range.
func (c Config) Validate() error {
	if c.JPEGQuality < 1 || c.JPEGQuality > 100 {
		return fmt.Errorf("web: jpeg_quality %d outside [1, 100]", c.JPEGQuality)
	}
	if c.MaxViewFPS < 1 {
		return fmt.Errorf("web: max_view_fps must be positive")
	}
	if c.StatusInterval <= 0 {
		return fmt.Errorf("web: status_interval must be positive")
	}
	return nil
}

// StatusFunc returns the JSON-encodable status served by the dashboard.
type StatusFunc func() any

// Server is the dashboard. It is also a display.Display: Render streams the
// debug view and StopRequested reports an operator stop from POST /api/stop.
type Server struct {
	cfg    Config
	app    *fiber.App
	logger *slog.Logger

	status StatusFunc
	camera *hub.Hub
	state  *hub.Hub

	stop       atomic.Bool
	serving    atomic.Bool
	lastView   time.Time
	viewPeriod time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

var _ display.Display = (*Server)(nil)

// NewServer builds the dashboard. gatherer may be nil to omit /metrics.
func NewServer(cfg Config, status StatusFunc, gatherer prometheus.Gatherer) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if status == nil {
		status = func() any { return fiber.Map{} }
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		cfg:        cfg,
		logger:     slog.Default().With("component", "web"),
		status:     status,
		camera:     hub.New("camera", 2),
		state:      hub.New("status", 16),
		viewPeriod: time.Second / time.Duration(cfg.MaxViewFPS),
		ctx:        ctx,
		cancel:     cancel,
	}

	app := fiber.New(fiber.Config{
		AppName:               "lanepilot",
		DisableStartupMessage: true,
	})
	app.Use(cors.New())

	api := app.Group("/api")
	api.Get("/status", s.handleStatus)
	api.Post("/stop", s.handleStop)

	if gatherer != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/camera", websocket.New(s.handleCameraWS))
	app.Get("/ws/status", websocket.New(s.handleStatusWS))

	s.app = app

	s.wg.Add(3)
	go func() { defer s.wg.Done(); s.camera.Run(ctx) }()
	go func() { defer s.wg.Done(); s.state.Run(ctx) }()
	go func() { defer s.wg.Done(); s.publishStatus(ctx) }()
	return s, nil
}

// App exposes the fiber app, mainly for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Serve accepts connections on ln until Close.
func (s *Server) Serve(ln net.Listener) error {
	s.serving.Store(true)
	s.logger.Info("dashboard listening", "addr", ln.Addr().String())
	return s.app.Listener(ln)
}

// Start listens on the configured port in the background. Listen errors are logged.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", ":"+s.cfg.Port)
	if err != nil {
		return fmt.Errorf("web: listen :%s: %w", s.cfg.Port, err)
	}
	go func() {
		if err := s.Serve(ln); err != nil {
			s.logger.Warn("dashboard stopped", "error", err)
		}
	}()
	return nil
}

func (s *Server) publishStatus(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.StatusInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if s.state.Subscribers() == 0 {
				continue
			}
			if err := s.state.BroadcastJSON(s.status()); err != nil {
				s.logger.Warn("status encode failed", "error", err)
			}
		}
	}
}

// Render streams view to camera subscribers. It never blocks on clients and
// does not retain view. Views without a JPEG encoder are skipped.
func (s *Server) Render(view vision.Frame) error {
	if s.camera.Subscribers() == 0 {
		return nil
	}
	now := time.Now()
	if now.Sub(s.lastView) < s.viewPeriod {
		return nil
	}
	enc, ok := view.(vision.JPEGEncoder)
	if !ok {
		return nil
	}
	data, err := enc.EncodeJPEG(s.cfg.JPEGQuality)
	if err != nil {
		return err
	}
	s.lastView = now
	s.camera.BroadcastBinary(data)
	return nil
}

// StopRequested reports whether an operator posted to /api/stop.
func (s *Server) StopRequested() bool {
	return s.stop.Load()
}

// RequestStop sets the stop flag as if /api/stop had been called.
func (s *Server) RequestStop() {
	if s.stop.CompareAndSwap(false, true) {
		s.logger.Info("operator stop requested")
	}
}

// Close stops the hubs and the HTTP server.
func (s *Server) Close() error {
	var err error
	s.once.Do(func() {
		s.cancel()
		if s.serving.Load() {
			err = s.app.ShutdownWithTimeout(2 * time.Second)
		}
		s.wg.Wait()
	})
	if errors.Is(err, context.DeadlineExceeded) {
		s.logger.Warn("dashboard shutdown timed out")
		return nil
	}
	return err
}
