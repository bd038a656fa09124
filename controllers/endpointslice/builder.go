// Package endpointslice reports readiness of platform applications to the status registry
package endpointslice

import (
	"fmt"

	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/metrics"

	"github.com/navikt/statusplattform-operator/controllers/authority"
	"github.com/navikt/statusplattform-operator/controllers/reporter"
	"github.com/navikt/statusplattform-operator/model"
	"github.com/navikt/statusplattform-operator/statusplattform"
)

// NewEndpointSliceController creates the controller and registers it with the manager
func NewEndpointSliceController(
	mgr ctrl.Manager,
	registry statusplattform.Registry,
	lookup authority.Lookup,
	opts ...Option,
) error {
	mr, err := reporter.NewMetricsReporter(metrics.Registry)
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}

	c := &endpointSliceController{
		Client:                  mgr.GetClient(),
		Scheme:                  mgr.GetScheme(),
		Registry:                registry,
		Lookup:                  lookup,
		Dependencies:            model.NewDependencies(),
		maxConcurrentReconciles: DefaultMaxConcurrentReconciles,
		MultiOutcomeReporter: []reporter.OutcomeReporter{
			&reporter.EventReporter{EventRecorder: mgr.GetEventRecorderFor(controllerName)},
			&reporter.LogReporter{V: 0, Name: "outcome"},
			mr,
		},
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.maxConcurrentReconciles < 1 {
		return fmt.Errorf("max concurrent reconciles must be positive, got %d", c.maxConcurrentReconciles)
	}
	if err := c.SetupWithManager(mgr); err != nil {
		return fmt.Errorf("unable to create controller: %w", err)
	}
	return nil
}
