package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"privflow/internal/ports"
)

// Recorder exports workflow metrics on its own registry so tests and
// multiple instances do not collide on the global one.
type Recorder struct {
	registry *prometheus.Registry

	submissions     *prometheus.CounterVec
	decisions       *prometheus.CounterVec
	escalations     *prometheus.CounterVec
	openEscalations prometheus.Gauge
}

var _ ports.WorkflowMetrics = (*Recorder)(nil)

func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		submissions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "privflow_submissions_total",
				Help: "Request submissions by result",
			},
			[]string{"result"},
		),
		decisions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "privflow_decisions_total",
				Help: "Reviewer decisions by decision and result",
			},
			[]string{"decision", "result"},
		),
		escalations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "privflow_escalation_events_total",
				Help: "Escalation warnings and escalations fired by sweeps",
			},
			[]string{"kind"},
		),
		openEscalations: factory.NewGauge(prometheus.GaugeOpts{
			Name: "privflow_open_escalation_records",
			Help: "Approval records currently waiting on a reviewer",
		}),
	}
}

func (r *Recorder) ObserveSubmission(result string) {
	r.submissions.WithLabelValues(result).Inc()
}

func (r *Recorder) ObserveDecision(decision string, result string) {
	if decision == "" {
		decision = "invalid"
	}
	r.decisions.WithLabelValues(decision, result).Inc()
}

func (r *Recorder) ObserveEscalation(kind string) {
	r.escalations.WithLabelValues(kind).Inc()
}

func (r *Recorder) SetOpenEscalations(n int) {
	r.openEscalations.Set(float64(n))
}

func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler returns the Prometheus metrics HTTP handler
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
