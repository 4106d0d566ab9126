// vescctl is a bench check for the steering actuator: it opens the VESC,
// sweeps the servo across its range, optionally pulses the motor, and
// leaves everything in neutral.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/teslashibe/lanepilot/internal/log"
	"github.com/teslashibe/lanepilot/pkg/motor"
	"github.com/teslashibe/lanepilot/pkg/vesc"
)

var (
	okString   = color.GreenString("[OK]")
	infoString = color.GreenString("[INFO]")
	warnString = color.YellowString("[WARN]")
	failString = color.RedString("[FAIL]")
)

func main() {
	tc := motor.DefaultTransportConfig()
	ac := motor.DefaultActuatorConfig()

	flag.StringVar(&tc.Port, "port", tc.Port, "VESC serial port")
	flag.IntVar(&tc.Baud, "baud", tc.Baud, "serial baud rate")
	flag.BoolVar(&tc.HasSensor, "has-sensor", tc.HasSensor, "motor has hall/encoder sensors")
	flag.Float64Var(&ac.MaxPowerFraction, "max-power", ac.MaxPowerFraction, "max duty cycle fraction [-1, 1]")
	flag.Float64Var(&ac.SteeringOffset, "offset", ac.SteeringOffset, "servo position for a straight wheel")
	flag.Float64Var(&ac.SteeringScale, "scale", ac.SteeringScale, "servo travel per unit of steering angle")
	pulse := flag.Float64("pulse", 0, "throttle to apply for one second after the sweep (0 skips)")
	step := flag.Duration("step", 300*time.Millisecond, "delay between sweep positions")
	debug := flag.Bool("debug", false, "verbose logging")
	flag.Parse()

	if *debug {
		log.Init("debug")
	} else {
		log.Init("warn")
	}

	ctrl, err := motor.Initialize(vesc.Open, tc, ac)
	if err != nil {
		fmt.Println(failString, err)
		var ce *motor.ConnectError
		if errors.As(err, &ce) {
			fmt.Println(warnString, ce.Remediation())
		}
		os.Exit(1)
	}
	fmt.Println(okString, "connected to", tc.Port)

	code := 0
	if err := bench(ctrl, *step, *pulse); err != nil {
		fmt.Println(failString, err)
		code = 1
	}
	if err := ctrl.Close(); err != nil {
		fmt.Println(failString, "release:", err)
		code = 1
	} else {
		fmt.Println(okString, "neutral and released")
	}
	os.Exit(code)
}

func bench(ctrl *motor.Controller, step time.Duration, pulse float64) error {
	for _, angle := range []float64{0, -1, -0.5, 0, 0.5, 1, 0} {
		if err := ctrl.Run(angle, 0); err != nil {
			return err
		}
		servo, _ := ctrl.Last()
		fmt.Printf("%s angle %+.1f -> servo %.3f\n", infoString, angle, servo)
		time.Sleep(step)
	}

	if pulse == 0 {
		return nil
	}
	if err := ctrl.Run(0, pulse); err != nil {
		return err
	}
	_, duty := ctrl.Last()
	fmt.Printf("%s throttle %+.2f -> duty %.3f for 1s\n", infoString, pulse, duty)
	time.Sleep(time.Second)
	return ctrl.Neutral()
}
