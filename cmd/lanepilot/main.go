// lanepilot steers a small vehicle along a yellow line or lane markings
// seen by a forward camera, driving a VESC over serial.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/teslashibe/lanepilot/internal/app"
	"github.com/teslashibe/lanepilot/internal/config"
	"github.com/teslashibe/lanepilot/internal/log"
	"github.com/teslashibe/lanepilot/pkg/camera"
	"github.com/teslashibe/lanepilot/pkg/motor"
	"github.com/teslashibe/lanepilot/pkg/pilot"
)

var (
	okString   = color.GreenString("[OK]")
	warnString = color.YellowString("[WARN]")
	failString = color.RedString("[FAIL]")
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, failString, err)
		return 2
	}
	log.Init(cfg.LogLevel)

	a, err := app.New(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, failString, "configuration:", err)
		return 2
	}

	if err := a.Init(); err != nil {
		fmt.Fprintln(os.Stderr, failString, "startup:", err)
		var ce *motor.ConnectError
		if errors.As(err, &ce) {
			fmt.Fprintln(os.Stderr, warnString, ce.Remediation())
		}
		return 1
	}
	defer a.Shutdown()
	fmt.Println(okString, "run", a.RunID(), "started")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := a.Run(ctx); err != nil {
		fmt.Fprintln(os.Stderr, failString, err)
		if errors.Is(err, pilot.ErrFrameTimeout) {
			fmt.Fprintln(os.Stderr, warnString, "no frames from the camera; check the device and cable")
		}
		if errors.Is(err, camera.ErrDeviceLost) {
			fmt.Fprintln(os.Stderr, warnString, "camera stopped responding; check it is still connected")
		}
		return 1
	}
	fmt.Println(okString, "stopped cleanly")
	return 0
}

// loadConfig applies defaults, the config file, the environment and finally
// any flags the user set explicitly.
func loadConfig() (config.Config, error) {
	def := config.Default()

	cfgPath := flag.String("config", "", "YAML config file")
	envFile := flag.String("env", ".env", "dotenv file loaded into the environment if present")
	logLevel := flag.String("log-level", def.LogLevel, "debug, info, warn or error")
	transport := flag.String("transport", def.Transport.Kind, "actuator transport: vesc or mock")
	dryRun := flag.Bool("dry-run", false, "use the mock transport (no hardware)")
	port := flag.String("port", def.Transport.Port, "VESC serial port")
	maxPower := flag.Float64("max-power", def.Actuator.MaxPowerFraction, "max duty cycle fraction [-1, 1]")
	throttle := flag.Float64("throttle", def.Loop.Throttle, "fixed throttle setpoint [-1, 1]")
	noLine := flag.String("no-line", string(def.Loop.NoLine), "when no line is found: center or stop")
	device := flag.String("camera", def.Camera.Device, "camera index, video file or stream URL")
	preset := flag.String("preset", def.Camera.Preset, "camera preset")
	headless := flag.Bool("headless", false, "do not open a window")
	webPort := flag.String("web-port", def.Display.Dashboard.Port, "dashboard port, empty to disable")
	flag.Parse()

	cfg, err := config.Load(*cfgPath, *envFile)
	if err != nil {
		return config.Config{}, err
	}

	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "log-level":
			cfg.LogLevel = *logLevel
		case "transport":
			cfg.Transport.Kind = *transport
		case "port":
			cfg.Transport.Port = *port
		case "max-power":
			cfg.Actuator.MaxPowerFraction = *maxPower
		case "throttle":
			cfg.Loop.Throttle = *throttle
		case "no-line":
			cfg.Loop.NoLine = pilot.NoLinePolicy(*noLine)
		case "camera":
			cfg.Camera.Device = *device
		case "preset":
			cfg.Camera.Preset = *preset
		case "web-port":
			cfg.Display.Dashboard.Port = *webPort
		}
	})
	if *dryRun {
		cfg.Transport.Kind = motor.KindMock
	}
	if *headless {
		cfg.Display.Window = false
	}

	return cfg, cfg.Validate()
}
