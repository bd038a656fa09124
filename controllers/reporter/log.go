package reporter

import (
	"context"

	"github.com/go-logr/logr"
	discoveryv1 "k8s.io/api/discovery/v1"
	"sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/navikt/statusplattform-operator/model"
)

// LogReporter reflects outcomes as log messages
type LogReporter struct {
	// V is target log level verbosity
	V int
	// Name is the name of the logger
	Name string
}

var _ OutcomeReporter = (*LogReporter)(nil)

func (r *LogReporter) logger(ctx context.Context, out model.Outcome) logr.Logger {
	return log.FromContext(ctx).
		WithName(r.Name).
		WithValues(out.Correlation.KeysAndValues()...)
}

// Reported readiness was written to the status registry
func (r *LogReporter) Reported(ctx context.Context, _ *discoveryv1.EndpointSlice, out model.Outcome) error {
	r.logger(ctx, out).V(r.V).Info("status reported", "ready", out.Ready, "description", out.Description)
	return nil
}

// Skipped the slice was disqualified
func (r *LogReporter) Skipped(ctx context.Context, _ *discoveryv1.EndpointSlice, out model.Outcome) error {
	r.logger(ctx, out).V(r.V).Info("skipped", "reason", out.Reason, "message", out.Message)
	return nil
}

// Failed the registry could not be updated
func (r *LogReporter) Failed(ctx context.Context, _ *discoveryv1.EndpointSlice, out model.Outcome) error {
	r.logger(ctx, out).Error(out.Err, "status not reported", "reason", out.Reason)
	return nil
}
