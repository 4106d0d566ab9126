package pilot

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Metrics are the loop's prometheus instruments, kept on a private registry
// so tests and multiple loops never collide on the global one.
type Metrics struct {
	Registry *prometheus.Registry

	Cycles           prometheus.Counter
	FallbackCycles   prometheus.Counter
	NoLineCycles     prometheus.Counter
	EstimateErrors   prometheus.Counter
	ActuationErrors  prometheus.Counter
	RenderErrors     prometheus.Counter
	CycleSeconds     prometheus.Histogram
	SteeringAngle    prometheus.Gauge
	ThrottleSetpoint prometheus.Gauge
	LoopState        prometheus.Gauge
}

// NewMetrics registers the instruments plus Go runtime collectors.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		Registry: reg,
		Cycles: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "lanepilot", Name: "cycles_total",
			Help: "Control cycles that commanded the actuator.",
		}),
		FallbackCycles: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "lanepilot", Name: "fallback_cycles_total",
			Help: "Cycles where the fallback strategy ran.",
		}),
		NoLineCycles: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "lanepilot", Name: "no_line_cycles_total",
			Help: "Cycles where no strategy found a steering line.",
		}),
		EstimateErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "lanepilot", Name: "estimate_errors_total",
			Help: "Cycles where the primary strategy returned an error.",
		}),
		ActuationErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "lanepilot", Name: "actuation_errors_total",
			Help: "Actuator commands that failed.",
		}),
		RenderErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "lanepilot", Name: "render_errors_total",
			Help: "Debug views that failed to compose or render.",
		}),
		CycleSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "lanepilot", Name: "cycle_seconds",
			Help:    "Time from frame arrival to actuation.",
			Buckets: []float64{.001, .0025, .005, .01, .02, .033, .05, .1, .25},
		}),
		SteeringAngle: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "lanepilot", Name: "steering_angle",
			Help: "Last commanded normalized steering angle.",
		}),
		ThrottleSetpoint: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "lanepilot", Name: "throttle",
			Help: "Last commanded normalized throttle.",
		}),
		LoopState: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "lanepilot", Name: "loop_state",
			Help: "Control loop state (0 initializing, 1 streaming, 2 shutting down, 3 terminated).",
		}),
	}

	reg.MustRegister(
		m.Cycles, m.FallbackCycles, m.NoLineCycles,
		m.EstimateErrors, m.ActuationErrors, m.RenderErrors,
		m.CycleSeconds, m.SteeringAngle, m.ThrottleSetpoint, m.LoopState,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}
