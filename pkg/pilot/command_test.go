package pilot

import (
	"math"
	"testing"

	"github.com/teslashibe/lanepilot/pkg/vision"
)

func TestDerive(t *testing.T) {
	tests := []struct {
		name         string
		est          vision.Estimate
		policy       NoLinePolicy
		wantAngle    float64
		wantThrottle float64
		wantSource   string
	}{
		{"line", vision.Estimate{Line: line(0.4), Strategy: "yellow"}, NoLineCenter, 0.4, 0.15, "yellow"},
		{"line ignores stop policy", vision.Estimate{Line: line(-0.2), Strategy: "lanes"}, NoLineStop, -0.2, 0.15, "lanes"},
		{"clamped high", vision.Estimate{Line: line(1.7)}, NoLineCenter, 1, 0.15, ""},
		{"clamped low", vision.Estimate{Line: line(-3)}, NoLineCenter, -1, 0.15, ""},
		{"nan offset", vision.Estimate{Line: line(math.NaN())}, NoLineCenter, 0, 0.15, ""},
		{"no line center", vision.Estimate{}, NoLineCenter, 0, 0.15, SourceNone},
		{"no line stop", vision.Estimate{}, NoLineStop, 0, 0, SourceNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Derive(tt.est, 0.15, tt.policy)
			if !floatEquals(got.Angle, tt.wantAngle) || !floatEquals(got.Throttle, tt.wantThrottle) {
				t.Errorf("Derive = %+v, want angle %v throttle %v", got, tt.wantAngle, tt.wantThrottle)
			}
			if got.Source != tt.wantSource {
				t.Errorf("Source = %q, want %q", got.Source, tt.wantSource)
			}
		})
	}
}

func TestConfigValidate(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}

	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"throttle high", func(c *Config) { c.Throttle = 1.01 }},
		{"throttle nan", func(c *Config) { c.Throttle = math.NaN() }},
		{"policy", func(c *Config) { c.NoLine = "hold" }},
		{"timeout", func(c *Config) { c.FrameTimeout = -1 }},
		{"errors", func(c *Config) { c.MaxEstimateErrors = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestStateString(t *testing.T) {
	want := map[State]string{
		Initializing: "initializing",
		Streaming:    "streaming",
		ShuttingDown: "shutting_down",
		Terminated:   "terminated",
		State(9):     "unknown",
	}
	for s, name := range want {
		if s.String() != name {
			t.Errorf("%d.String() = %q, want %q", s, s.String(), name)
		}
	}
}

func TestStateMachine_NeverGoesBack(t *testing.T) {
	var m stateMachine
	if !m.advance(ShuttingDown) {
		t.Fatal("advance forward failed")
	}
	if m.advance(Streaming) {
		t.Error("moved backwards")
	}
	if m.advance(ShuttingDown) {
		t.Error("re-entered same state")
	}
	if m.get() != ShuttingDown {
		t.Errorf("state = %v", m.get())
	}
}
