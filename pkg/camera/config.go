// Package camera acquires frames from a local camera or video file through GoCV.
package camera

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Config holds capture settings. They are applied once at open.
type Config struct {
	// Device is a camera index ("0") or a file path / stream URL.
	Device string `yaml:"device"`

	Width  int `yaml:"width"`
	Height int `yaml:"height"`
	FPS    int `yaml:"fps"`

	// QueueSize bounds the frames buffered between the reader and the consumer.
	// When full, the oldest frame is dropped.
	QueueSize int `yaml:"queue_size"`

	// Preset names the preset this config started from, for logging.
	Preset string `yaml:"preset"`
}

// Sensor limits accepted by Validate.
const (
	MaxWidth     = 4096
	MaxHeight    = 2160
	MaxFPS       = 120
	MaxQueueSize = 64
)

// DefaultConfig returns the forward camera preview: 960x540 at 30 FPS
// with a four frame queue.
func DefaultConfig() Config {
	return Config{
		Device:    "0",
		Width:     960,
		Height:    540,
		FPS:       30,
		QueueSize: 4,
		Preset:    PresetDefault,
	}
}

// Live reports whether Device names a camera index rather than a file or
// stream. A live camera never ends on its own, so a failed read is an error.
func (c *Config) Live() bool {
	_, err := strconv.Atoi(strings.TrimSpace(c.Device))
	return err == nil
}

// Validate checks the config values are within range.
func (c *Config) Validate() error {
	var problems []string

	if strings.TrimSpace(c.Device) == "" {
		problems = append(problems, "device is required")
	}
	if c.Width < 160 || c.Width > MaxWidth {
		problems = append(problems, fmt.Sprintf("width must be between 160 and %d", MaxWidth))
	}
	if c.Height < 120 || c.Height > MaxHeight {
		problems = append(problems, fmt.Sprintf("height must be between 120 and %d", MaxHeight))
	}
	if c.FPS < 1 || c.FPS > MaxFPS {
		problems = append(problems, fmt.Sprintf("fps must be between 1 and %d", MaxFPS))
	}
	if c.QueueSize < 1 || c.QueueSize > MaxQueueSize {
		problems = append(problems, fmt.Sprintf("queue_size must be between 1 and %d", MaxQueueSize))
	}

	if len(problems) > 0 {
		return errors.New("camera: " + strings.Join(problems, "; "))
	}
	return nil
}
