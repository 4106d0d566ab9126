package app

import (
	"errors"
	"path/filepath"
	"syscall"
	"testing"

	"github.com/teslashibe/lanepilot/internal/config"
	"github.com/teslashibe/lanepilot/pkg/motor"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Transport.Kind = motor.KindMock
	cfg.Camera.Device = filepath.Join(t.TempDir(), "missing.mp4")
	cfg.Display.Window = false
	cfg.Display.Dashboard.Port = ""
	return cfg
}

func TestNew_RejectsInvalidConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.Actuator.MaxPowerFraction = 1.3

	_, err := New(cfg)
	var ce *motor.ConfigError
	if !errors.As(err, &ce) {
		t.Fatalf("New = %v, want *motor.ConfigError", err)
	}
}

func TestNew_AssignsRunID(t *testing.T) {
	a, err := New(testConfig(t))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	b, _ := New(testConfig(t))
	if a.RunID() == "" || a.RunID() == b.RunID() {
		t.Errorf("run IDs %q and %q should be unique and non-empty", a.RunID(), b.RunID())
	}
}

func TestInit_PermissionDeniedKeepsRemediation(t *testing.T) {
	a, err := New(testConfig(t))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	a.RegisterTransport(motor.KindMock, func(tc motor.TransportConfig) (motor.Transport, error) {
		return nil, syscall.EACCES
	})

	err = a.Init()
	var ce *motor.ConnectError
	if !errors.As(err, &ce) {
		t.Fatalf("Init = %v, want *motor.ConnectError", err)
	}
	if ce.Kind != motor.PermissionDenied {
		t.Errorf("Kind = %v, want PermissionDenied", ce.Kind)
	}
	if ce.Remediation() == "" {
		t.Error("missing remediation")
	}
}

func TestInit_CameraFailureReleasesActuator(t *testing.T) {
	a, err := New(testConfig(t))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	mock := motor.NewMock()
	a.RegisterTransport(motor.KindMock, func(motor.TransportConfig) (motor.Transport, error) {
		return mock, nil
	})

	if err := a.Init(); err == nil {
		t.Fatal("expected camera error")
	}
	if !mock.Closed() {
		t.Fatal("actuator transport not released after failed init")
	}
	servo := mock.Values("SetServo")
	if len(servo) != 1 || servo[0] != 0.5 {
		t.Errorf("servo = %v, want one neutral command", servo)
	}

	// Shutdown after a failed Init is a no-op.
	a.Shutdown()
	if n := len(mock.Calls()); n != 3 {
		t.Errorf("calls after Shutdown = %d, want 3", n)
	}
}

func TestInit_UnknownPreset(t *testing.T) {
	cfg := testConfig(t)
	cfg.Camera.Preset = "fisheye"
	a, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	mock := motor.NewMock()
	a.RegisterTransport(motor.KindMock, func(motor.TransportConfig) (motor.Transport, error) {
		return mock, nil
	})

	if err := a.Init(); err == nil {
		t.Fatal("expected preset error")
	}
	if !mock.Closed() {
		t.Error("actuator not released")
	}
}

func TestTransportsRegistry(t *testing.T) {
	reg := Transports()
	for _, kind := range []string{motor.KindVESC, motor.KindMock} {
		if reg[kind] == nil {
			t.Errorf("no opener for %q", kind)
		}
	}
}

func TestStrategiesRegistry(t *testing.T) {
	reg := Strategies()
	for _, name := range []string{config.StrategyYellow, config.StrategyLanes} {
		build := reg[name]
		if build == nil {
			t.Fatalf("no strategy %q", name)
		}
		if got := build().Name(); got != name {
			t.Errorf("strategy %q reports name %q", name, got)
		}
	}
}

func TestRun_BeforeInit(t *testing.T) {
	a, err := New(testConfig(t))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := a.Run(t.Context()); err == nil {
		t.Error("expected error")
	}
}
