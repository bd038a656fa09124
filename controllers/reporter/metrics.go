package reporter

import (
	"context"
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	discoveryv1 "k8s.io/api/discovery/v1"

	"github.com/navikt/statusplattform-operator/model"
	"github.com/navikt/statusplattform-operator/statusplattform"
)

const (
	metricsNamespace = "statusplattform"
	reasonUnknown    = "Unknown"
)

// MetricsReporter counts reconciliation outcomes
type MetricsReporter struct {
	outcomes *prometheus.CounterVec
	statuses *prometheus.CounterVec
}

var _ OutcomeReporter = (*MetricsReporter)(nil)

// NewMetricsReporter registers outcome counters with reg.
// Counters already registered by a previous reporter are shared.
func NewMetricsReporter(reg prometheus.Registerer) (*MetricsReporter, error) {
	outcomes, err := registerCounterVec(reg, prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "reconcile_outcomes_total",
		Help:      "EndpointSlice reconciliations by terminal phase and reason",
	}, "phase", "reason")
	if err != nil {
		return nil, err
	}
	statuses, err := registerCounterVec(reg, prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "reported_status_total",
		Help:      "Status records written to the status registry",
	}, "status")
	if err != nil {
		return nil, err
	}
	return &MetricsReporter{outcomes: outcomes, statuses: statuses}, nil
}

func registerCounterVec(reg prometheus.Registerer, opts prometheus.CounterOpts, labels ...string) (*prometheus.CounterVec, error) {
	cv := prometheus.NewCounterVec(opts, labels)
	if err := reg.Register(cv); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
		}
		return nil, err
	}
	return cv, nil
}

func (r *MetricsReporter) count(out model.Outcome) {
	reason := out.Reason
	if reason == "" {
		reason = reasonUnknown
	}
	r.outcomes.WithLabelValues(string(out.Phase), reason).Inc()
}

// Reported counts the outcome and the reported status
func (r *MetricsReporter) Reported(_ context.Context, _ *discoveryv1.EndpointSlice, out model.Outcome) error {
	r.count(out)
	r.statuses.WithLabelValues(string(statusplattform.StatusFromReadiness(out.Ready))).Inc()
	return nil
}

// Skipped counts the outcome
func (r *MetricsReporter) Skipped(_ context.Context, _ *discoveryv1.EndpointSlice, out model.Outcome) error {
	r.count(out)
	return nil
}

// Failed counts the outcome
func (r *MetricsReporter) Failed(_ context.Context, _ *discoveryv1.EndpointSlice, out model.Outcome) error {
	r.count(out)
	return nil
}
