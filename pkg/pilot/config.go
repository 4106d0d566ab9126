package pilot

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

// Config holds the control loop settings.
type Config struct {
	// Throttle is the fixed normalized throttle setpoint in [-1, 1].
	Throttle float64 `yaml:"throttle"`

	// NoLine selects the throttle when no steering line is found.
	NoLine NoLinePolicy `yaml:"no_line_policy"`

	// FrameTimeout bounds a single frame acquisition. Zero waits forever.
	FrameTimeout time.Duration `yaml:"frame_timeout"`

	// MaxEstimateErrors is how many consecutive cycles may fail estimation
	// before the loop shuts down. Zero never gives up.
	MaxEstimateErrors int `yaml:"max_estimate_errors"`
}

// DefaultConfig returns a slow cruise with a two second camera watchdog.
func DefaultConfig() Config {
	return Config{
		Throttle:          0.15,
		NoLine:            NoLineCenter,
		FrameTimeout:      2 * time.Second,
		MaxEstimateErrors: 30,
	}
}

// Validate checks the config values are within range.
func (c Config) Validate() error {
	var problems []string

	if math.IsNaN(c.Throttle) || c.Throttle < -1 || c.Throttle > 1 {
		problems = append(problems, fmt.Sprintf("throttle %v outside [-1, 1]", c.Throttle))
	}
	if err := c.NoLine.Validate(); err != nil {
		problems = append(problems, fmt.Sprintf("no_line_policy %q unknown", c.NoLine))
	}
	if c.FrameTimeout < 0 {
		problems = append(problems, "frame_timeout must not be negative")
	}
	if c.MaxEstimateErrors < 0 {
		problems = append(problems, "max_estimate_errors must not be negative")
	}

	if len(problems) > 0 {
		return errors.New("pilot: " + strings.Join(problems, "; "))
	}
	return nil
}
