// Package config assembles the lanepilot process configuration.
//
// Sources, in increasing precedence: built-in defaults, a YAML file, a
// .env file plus LANEPILOT_* environment variables, and command-line flags
// (applied by the caller). The result is immutable once Validate passes.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/teslashibe/lanepilot/pkg/motor"
	"github.com/teslashibe/lanepilot/pkg/pilot"
	"github.com/teslashibe/lanepilot/pkg/web"
	"gopkg.in/yaml.v3"
)

// Strategy names accepted in the vision section.
const (
	StrategyYellow = "yellow-segmentation"
	StrategyLanes  = "lane-detection"
)

// Config is the full process configuration.
type Config struct {
	LogLevel  string               `yaml:"log_level"`
	Transport motor.TransportConfig `yaml:"transport"`
	Actuator  motor.ActuatorConfig  `yaml:"actuator"`
	Loop      pilot.Config          `yaml:"loop"`
	Vision    Vision                `yaml:"vision"`
	Camera    Camera                `yaml:"camera"`
	Display   Display               `yaml:"display"`
}

// Vision selects the ranked steering strategies.
type Vision struct {
	Primary string `yaml:"primary"`

	// Fallback runs only when the primary finds no line. Empty disables it.
	Fallback string `yaml:"fallback"`
}

// Camera selects a capture preset and device. Zero sizes keep the preset's.
type Camera struct {
	Preset string `yaml:"preset"`
	Device string `yaml:"device"`
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
	FPS    int    `yaml:"fps"`
}

// Display selects the debug view sinks.
type Display struct {
	// Window shows the view in a native window; 'q' stops the loop.
	Window bool   `yaml:"window"`
	Title  string `yaml:"title"`

	// Dashboard serves the web dashboard. An empty port disables it.
	Dashboard web.Config `yaml:"dashboard"`
}

// Default returns the configuration used when nothing is overridden.
func Default() Config {
	return Config{
		LogLevel:  "info",
		Transport: motor.DefaultTransportConfig(),
		Actuator:  motor.DefaultActuatorConfig(),
		Loop:      pilot.DefaultConfig(),
		Vision: Vision{
			Primary:  StrategyYellow,
			Fallback: StrategyLanes,
		},
		Camera: Camera{
			Preset: "default",
			Device: "0",
		},
		Display: Display{
			Window:    true,
			Title:     "frame",
			Dashboard: web.DefaultConfig(),
		},
	}
}

// Load builds a config from defaults, the YAML file at path (optional) and
// the environment. envFile, if non-empty and present, is loaded into the
// environment first without overriding variables already set.
func Load(path, envFile string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := Decode(bytes.NewReader(data), &cfg); err != nil {
			return Config{}, fmt.Errorf("config: %s: %w", path, err)
		}
	}

	if err := LoadEnvFile(envFile); err != nil {
		return Config{}, err
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Decode strictly decodes YAML over cfg. Unknown keys are errors.
func Decode(r io.Reader, cfg *Config) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// Validate checks every section. All problems are reported together.
func (c Config) Validate() error {
	var errs []error

	switch c.Transport.Kind {
	case motor.KindVESC, motor.KindMock:
	default:
		errs = append(errs, fmt.Errorf("config: transport.kind %q unknown (want %q or %q)",
			c.Transport.Kind, motor.KindVESC, motor.KindMock))
	}
	if c.Transport.Kind == motor.KindVESC {
		if strings.TrimSpace(c.Transport.Port) == "" {
			errs = append(errs, errors.New("config: transport.port is required for vesc"))
		}
		if c.Transport.Baud <= 0 {
			errs = append(errs, errors.New("config: transport.baud must be positive"))
		}
	}

	if err := c.Actuator.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := c.Loop.Validate(); err != nil {
		errs = append(errs, err)
	}

	if !knownStrategy(c.Vision.Primary) {
		errs = append(errs, fmt.Errorf("config: vision.primary %q unknown", c.Vision.Primary))
	}
	if c.Vision.Fallback != "" && !knownStrategy(c.Vision.Fallback) {
		errs = append(errs, fmt.Errorf("config: vision.fallback %q unknown", c.Vision.Fallback))
	}

	if strings.TrimSpace(c.Camera.Device) == "" {
		errs = append(errs, errors.New("config: camera.device is required"))
	}
	if c.Camera.Width < 0 || c.Camera.Height < 0 || c.Camera.FPS < 0 {
		errs = append(errs, errors.New("config: camera sizes must not be negative"))
	}

	if c.Display.Dashboard.Port != "" {
		if err := c.Display.Dashboard.Validate(); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func knownStrategy(name string) bool {
	return name == StrategyYellow || name == StrategyLanes
}
