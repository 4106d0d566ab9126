package motor

import (
	"fmt"
	"math"
	"time"
)

// ActuatorConfig holds the safety and calibration parameters applied to every command.
type ActuatorConfig struct {
	// MaxPowerFraction bounds the duty cycle, in [-1, 1].
	// Negative values flip the motor direction.
	MaxPowerFraction float64 `yaml:"max_power_fraction"`

	// SteeringScale and SteeringOffset map a normalized angle to a servo position:
	// servo = angle*SteeringScale + SteeringOffset.
	SteeringScale  float64 `yaml:"steering_scale"`
	SteeringOffset float64 `yaml:"steering_offset"`
}

// DefaultActuatorConfig returns conservative settings for a VESC driven car:
// 20% max duty cycle and a servo centered at 0.5.
func DefaultActuatorConfig() ActuatorConfig {
	return ActuatorConfig{
		MaxPowerFraction: 0.2,
		SteeringScale:    1.0,
		SteeringOffset:   0.5,
	}
}

// NewActuatorConfig builds and validates an ActuatorConfig.
func NewActuatorConfig(maxPower, scale, offset float64) (ActuatorConfig, error) {
	cfg := ActuatorConfig{
		MaxPowerFraction: maxPower,
		SteeringScale:    scale,
		SteeringOffset:   offset,
	}
	if err := cfg.Validate(); err != nil {
		return ActuatorConfig{}, err
	}
	return cfg, nil
}

// Validate checks the bounded parameters.
func (c ActuatorConfig) Validate() error {
	if math.IsNaN(c.MaxPowerFraction) || c.MaxPowerFraction < -1 || c.MaxPowerFraction > 1 {
		return &ConfigError{
			Field:  "max_power_fraction",
			Value:  c.MaxPowerFraction,
			Reason: OutOfRange,
			Hint:   "only fractions in [-1, 1] are allowed, about 0.2 is recommended; negative values flip motor direction",
		}
	}
	if math.IsNaN(c.SteeringScale) || math.IsInf(c.SteeringScale, 0) {
		return &ConfigError{Field: "steering_scale", Value: c.SteeringScale, Reason: OutOfRange}
	}
	if math.IsNaN(c.SteeringOffset) || math.IsInf(c.SteeringOffset, 0) {
		return &ConfigError{Field: "steering_offset", Value: c.SteeringOffset, Reason: OutOfRange}
	}
	if reach := math.Abs(c.SteeringScale) + math.Abs(c.SteeringOffset); reach > MaxServoPosition {
		return &ConfigError{
			Field:  "steering_scale",
			Value:  c.SteeringScale,
			Reason: OutOfRange,
			Hint:   fmt.Sprintf("|steering_scale|+|steering_offset| = %v exceeds the servo range %v", reach, MaxServoPosition),
		}
	}
	return nil
}

// MaxServoPosition is the largest servo command magnitude a transport can
// encode (int16 thousandths on the VESC wire). Run never exceeds
// |SteeringScale|+|SteeringOffset|, so Validate bounds that sum.
const MaxServoPosition = 32.767

// Servo maps a normalized steering angle to a servo command.
func (c ActuatorConfig) Servo(angle float64) float64 {
	return angle*c.SteeringScale + c.SteeringOffset
}

// Duty maps a normalized throttle to a duty-cycle command.
func (c ActuatorConfig) Duty(throttle float64) float64 {
	return throttle * c.MaxPowerFraction
}

// Transport kinds selectable by configuration.
const (
	KindVESC = "vesc"
	KindMock = "mock"
)

// TransportConfig describes how to reach the actuator.
type TransportConfig struct {
	Kind      string        `yaml:"kind"`
	Port      string        `yaml:"port"`
	Baud      int           `yaml:"baud"`
	Timeout   time.Duration `yaml:"timeout"`
	Heartbeat bool          `yaml:"heartbeat"`
	HasSensor bool          `yaml:"has_sensor"`
}

// DefaultTransportConfig returns the VESC serial defaults.
func DefaultTransportConfig() TransportConfig {
	return TransportConfig{
		Kind:      KindVESC,
		Port:      "/dev/ttyACM0",
		Baud:      115200,
		Timeout:   50 * time.Millisecond,
		Heartbeat: true,
	}
}
