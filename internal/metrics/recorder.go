// Package metrics measures solver work and trajectory quality.
//
// Recorder exports Prometheus counters for what Solve did; the observers in
// observer.go score the trajectory it produced.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/san-kum/symode/internal/integrators"
)

const namespace = "symode"

// Recorder holds solver counters on its own registry so several recorders
// can coexist in one process.
type Recorder struct {
	registry *prometheus.Registry

	Solves        *prometheus.CounterVec
	Accepted      *prometheus.CounterVec
	Rejected      *prometheus.CounterVec
	RHSEvals      *prometheus.CounterVec
	JacobianEvals *prometheus.CounterVec
	NewtonIters   *prometheus.CounterVec
	Duration      *prometheus.HistogramVec
	FinalTime     *prometheus.GaugeVec
}

func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	counter := func(name, help string) *prometheus.CounterVec {
		return factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      name,
			Help:      help,
		}, []string{"method"})
	}

	return &Recorder{
		registry: reg,
		Solves: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "solves_total",
			Help:      "Number of solves by method and final status",
		}, []string{"method", "status"}),
		Accepted:      counter("steps_accepted_total", "Accepted integration steps"),
		Rejected:      counter("steps_rejected_total", "Rejected adaptive step attempts"),
		RHSEvals:      counter("rhs_evaluations_total", "Right-hand side evaluations"),
		JacobianEvals: counter("jacobian_evaluations_total", "Jacobian evaluations"),
		NewtonIters:   counter("newton_iterations_total", "Newton iterations in implicit steps"),
		Duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "solve_duration_seconds",
			Help:      "Wall time spent in Solve",
			Buckets:   []float64{.0001, .001, .01, .1, 1, 10, 60},
		}, []string{"method"}),
		FinalTime: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "final_time",
			Help:      "Last accepted time of the most recent solve",
		}, []string{"method"}),
	}
}

func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

// Observe adds one finished solve.
func (r *Recorder) Observe(res *integrators.Result, elapsed time.Duration) {
	m := string(res.Method)
	r.Solves.WithLabelValues(m, string(res.Status)).Inc()
	r.Accepted.WithLabelValues(m).Add(float64(res.Stats.Accepted))
	r.Rejected.WithLabelValues(m).Add(float64(res.Stats.Rejected))
	r.RHSEvals.WithLabelValues(m).Add(float64(res.Stats.RHSEvals))
	r.JacobianEvals.WithLabelValues(m).Add(float64(res.Stats.JacobianEvals))
	r.NewtonIters.WithLabelValues(m).Add(float64(res.Stats.NewtonIters))
	r.Duration.WithLabelValues(m).Observe(elapsed.Seconds())
	if t, _ := res.Final(); res.Len() > 0 {
		r.FinalTime.WithLabelValues(m).Set(t)
	}
}

// WriteTextfile dumps the registry in the text exposition format, for the
// node_exporter textfile collector.
func (r *Recorder) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.registry)
}
