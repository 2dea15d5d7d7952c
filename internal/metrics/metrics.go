package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var ActiveSessions = prometheus.NewGauge(prometheus.GaugeOpts{
	Name: "publishing_ui_active_sessions",
	Help: "Current number of live browser publishing sessions",
})

var ValidationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "publishing_ui_validations_total",
	Help: "Archive validations by outcome",
}, []string{"outcome"})

var PublishRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "publishing_ui_publish_requests_total",
	Help: "Publish requests by outcome",
}, []string{"outcome"})

var StepTransitionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "publishing_ui_step_transitions_total",
	Help: "Workflow step transitions",
}, []string{"from", "to"})

var StatusPollsTotal = prometheus.NewCounter(prometheus.CounterOpts{
	Name: "publishing_ui_status_polls_total",
	Help: "Status poll ticks issued",
})

var DefaultMetrics = []prometheus.Collector{
	ActiveSessions,
	ValidationsTotal,
	PublishRequestsTotal,
	StepTransitionsTotal,
	StatusPollsTotal,
}

func RegisterMetrics(metrics ...prometheus.Collector) error {
	if metrics == nil {
		metrics = DefaultMetrics
	}
	for _, m := range metrics {
		if err := prometheus.Register(m); err != nil {
			return err
		}
	}
	return nil
}
