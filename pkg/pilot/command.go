package pilot

import (
	"fmt"
	"math"

	"github.com/teslashibe/lanepilot/pkg/vision"
)

// NoLinePolicy decides the command when no strategy finds a line.
// The steering angle is always centered; the policy picks the throttle.
type NoLinePolicy string

const (
	// NoLineCenter centers the steering and keeps the throttle setpoint.
	NoLineCenter NoLinePolicy = "center"
	// NoLineStop centers the steering and zeroes the throttle.
	NoLineStop NoLinePolicy = "stop"
)

// Validate reports an unknown policy.
func (p NoLinePolicy) Validate() error {
	switch p {
	case NoLineCenter, NoLineStop:
		return nil
	default:
		return fmt.Errorf("pilot: unknown no-line policy %q (want %q or %q)", p, NoLineCenter, NoLineStop)
	}
}

// SourceNone marks a command derived without a steering line.
const SourceNone = "none"

// Command is one steering decision. It is computed fresh each cycle.
type Command struct {
	Angle    float64 `json:"angle"`
	Throttle float64 `json:"throttle"`

	// Source names the strategy whose line produced the angle, or SourceNone.
	Source string `json:"source"`
}

// Derive computes the command for one cycle from the chain's estimate.
// A nil line yields a centered angle with the throttle chosen by policy.
func Derive(est vision.Estimate, throttle float64, policy NoLinePolicy) Command {
	if est.Line == nil {
		if policy == NoLineStop {
			throttle = 0
		}
		return Command{Angle: 0, Throttle: throttle, Source: SourceNone}
	}
	return Command{
		Angle:    angleOf(est.Line.Offset),
		Throttle: throttle,
		Source:   est.Strategy,
	}
}

func angleOf(offset float64) float64 {
	if math.IsNaN(offset) {
		return 0
	}
	return math.Max(-1, math.Min(1, offset))
}
