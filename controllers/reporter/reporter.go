// Package reporter contains various methods to report reconciliation outcomes
package reporter

import (
	"context"

	"github.com/hashicorp/go-multierror"
	discoveryv1 "k8s.io/api/discovery/v1"
	"sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/navikt/statusplattform-operator/model"
)

// OutcomeReporter receives the terminal outcome of an EndpointSlice reconciliation
type OutcomeReporter interface {
	// Reported readiness of the slice was written to the status registry
	Reported(ctx context.Context, slice *discoveryv1.EndpointSlice, out model.Outcome) error
	// Skipped the slice does not belong to a managed application
	Skipped(ctx context.Context, slice *discoveryv1.EndpointSlice, out model.Outcome) error
	// Failed the status registry could not be updated and the slice will be retried
	Failed(ctx context.Context, slice *discoveryv1.EndpointSlice, out model.Outcome) error
}

// MultiOutcomeReporter dispatches outcomes over multiple reporters
type MultiOutcomeReporter []OutcomeReporter

// Report dispatches the outcome according to its phase.
// Reporter errors are logged and never propagated.
func (r MultiOutcomeReporter) Report(ctx context.Context, slice *discoveryv1.EndpointSlice, out model.Outcome) {
	var errs *multierror.Error
	for _, u := range r {
		var err error
		switch out.Phase {
		case model.PhaseReported:
			err = u.Reported(ctx, slice, out)
		case model.PhaseSkipped:
			err = u.Skipped(ctx, slice, out)
		case model.PhaseFailed:
			err = u.Failed(ctx, slice, out)
		}
		if err != nil {
			errs = multierror.Append(errs, err)
		}
	}
	if err := errs.ErrorOrNil(); err != nil {
		log.FromContext(ctx).Error(err, "reporting outcome", append(out.Correlation.KeysAndValues(), "phase", out.Phase)...)
	}
}
