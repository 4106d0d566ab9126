package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/teslashibe/lanepilot/pkg/pilot"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "LANEPILOT_"

// LoadEnvFile loads path into the process environment. A missing file is
// not an error; variables already set are not overridden.
func LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("config: load %s: %w", path, err)
	}
	return nil
}

// LookupFunc matches os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// ApplyEnv overrides fields from LANEPILOT_* variables.
func (c *Config) ApplyEnv(lookup LookupFunc) error {
	e := envReader{lookup: lookup}

	e.str("LOG_LEVEL", &c.LogLevel)

	e.str("TRANSPORT", &c.Transport.Kind)
	e.str("SERIAL_PORT", &c.Transport.Port)
	e.integer("BAUD", &c.Transport.Baud)
	e.duration("SERIAL_TIMEOUT", &c.Transport.Timeout)
	e.boolean("HEARTBEAT", &c.Transport.Heartbeat)
	e.boolean("HAS_SENSOR", &c.Transport.HasSensor)

	e.float("MAX_POWER", &c.Actuator.MaxPowerFraction)
	e.float("STEERING_SCALE", &c.Actuator.SteeringScale)
	e.float("STEERING_OFFSET", &c.Actuator.SteeringOffset)

	e.float("THROTTLE", &c.Loop.Throttle)
	var policy string
	if e.str("NO_LINE_POLICY", &policy) {
		c.Loop.NoLine = pilot.NoLinePolicy(policy)
	}
	e.duration("FRAME_TIMEOUT", &c.Loop.FrameTimeout)
	e.integer("MAX_ESTIMATE_ERRORS", &c.Loop.MaxEstimateErrors)

	e.str("VISION_PRIMARY", &c.Vision.Primary)
	e.str("VISION_FALLBACK", &c.Vision.Fallback)

	e.str("CAMERA_PRESET", &c.Camera.Preset)
	e.str("CAMERA_DEVICE", &c.Camera.Device)

	e.boolean("WINDOW", &c.Display.Window)
	e.str("WEB_PORT", &c.Display.Dashboard.Port)

	return errors.Join(e.errs...)
}

type envReader struct {
	lookup LookupFunc
	errs   []error
}

func (e *envReader) get(name string) (string, bool) {
	return e.lookup(EnvPrefix + name)
}

func (e *envReader) fail(name, v string, err error) {
	e.errs = append(e.errs, fmt.Errorf("config: %s%s=%q: %w", EnvPrefix, name, v, err))
}

func (e *envReader) str(name string, dst *string) bool {
	v, ok := e.get(name)
	if ok {
		*dst = v
	}
	return ok
}

func (e *envReader) float(name string, dst *float64) {
	v, ok := e.get(name)
	if !ok {
		return
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		e.fail(name, v, err)
		return
	}
	*dst = f
}

func (e *envReader) integer(name string, dst *int) {
	v, ok := e.get(name)
	if !ok {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.fail(name, v, err)
		return
	}
	*dst = n
}

func (e *envReader) boolean(name string, dst *bool) {
	v, ok := e.get(name)
	if !ok {
		return
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		e.fail(name, v, err)
		return
	}
	*dst = b
}

func (e *envReader) duration(name string, dst *time.Duration) {
	v, ok := e.get(name)
	if !ok {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		e.fail(name, v, err)
		return
	}
	*dst = d
}
