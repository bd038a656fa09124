package reporter

import (
	"context"

	corev1 "k8s.io/api/core/v1"
	discoveryv1 "k8s.io/api/discovery/v1"
	"k8s.io/client-go/tools/record"

	"github.com/navikt/statusplattform-operator/model"
	"github.com/navikt/statusplattform-operator/statusplattform"
)

// EventReporter posts outcomes as events on the EndpointSlice.
// Skipped slices are not evented.
type EventReporter struct {
	record.EventRecorder
}

var _ OutcomeReporter = (*EventReporter)(nil)

// Reported readiness was written to the status registry
func (r *EventReporter) Reported(_ context.Context, slice *discoveryv1.EndpointSlice, out model.Outcome) error {
	r.EventRecorder.Eventf(slice, corev1.EventTypeNormal, out.Reason, "status %s reported: %s", statusplattform.StatusFromReadiness(out.Ready), out.Description)
	return nil
}

// Skipped is a no-op
func (r *EventReporter) Skipped(context.Context, *discoveryv1.EndpointSlice, model.Outcome) error {
	return nil
}

// Failed the registry could not be updated
func (r *EventReporter) Failed(_ context.Context, slice *discoveryv1.EndpointSlice, out model.Outcome) error {
	r.EventRecorder.Event(slice, corev1.EventTypeWarning, out.Reason, out.Message)
	return nil
}
