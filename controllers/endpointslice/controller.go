package endpointslice

import (
	discoveryv1 "k8s.io/api/discovery/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/builder"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/controller"
	"sigs.k8s.io/controller-runtime/pkg/handler"
	"sigs.k8s.io/controller-runtime/pkg/predicate"

	"github.com/navikt/statusplattform-operator/controllers/authority"
	"github.com/navikt/statusplattform-operator/controllers/deps"
	"github.com/navikt/statusplattform-operator/controllers/reporter"
	"github.com/navikt/statusplattform-operator/model"
	"github.com/navikt/statusplattform-operator/statusplattform"
	"github.com/navikt/statusplattform-operator/util/generic"
)

const (
	controllerName = "statusplattform-endpointslice"

	// DefaultMaxConcurrentReconciles caps parallel reconciliations
	DefaultMaxConcurrentReconciles = 4
)

// endpointSliceController watches EndpointSlices of platform applications
// and mirrors their readiness into the status registry
type endpointSliceController struct {
	// Scheme keeps track between objects and their group/version/kinds
	*runtime.Scheme
	// Client is k8s apiserver client with object caching
	client.Client

	// Registry is the status registry
	statusplattform.Registry
	// Lookup confirms the application is managed by the platform
	authority.Lookup
	// Dependencies keeps track of Applications consulted for each slice
	model.Dependencies

	reporter.MultiOutcomeReporter

	// excludedNamespaces are never reported
	excludedNamespaces map[string]bool
	maxConcurrentReconciles int

	// object Kinds are frequently used, do not change and are cached
	endpointSliceKind string
	applicationKind   string
}

// Option customizes the controller
type Option func(c *endpointSliceController)

// WithExcludedNamespaces ignores EndpointSlices in the given namespaces
func WithExcludedNamespaces(ns []string) Option {
	return func(c *endpointSliceController) {
		c.excludedNamespaces = arrayToMap(ns)
	}
}

// WithMaxConcurrentReconciles sets the number of reconciliation workers
func WithMaxConcurrentReconciles(n int) Option {
	return func(c *endpointSliceController) {
		c.maxConcurrentReconciles = n
	}
}

// WithOutcomeReporter adds outcome reporting, multiple may be added
func WithOutcomeReporter(reporters ...reporter.OutcomeReporter) Option {
	return func(c *endpointSliceController) {
		c.MultiOutcomeReporter = append(c.MultiOutcomeReporter, reporters...)
	}
}

// SetupWithManager sets up the controller with the Manager
func (r *endpointSliceController) SetupWithManager(mgr ctrl.Manager) error {
	r.Client = mgr.GetClient()
	r.Scheme = mgr.GetScheme()
	r.setKinds()

	application := new(metav1.PartialObjectMetadata)
	application.SetGroupVersionKind(r.Lookup.GroupVersionKind())

	return ctrl.NewControllerManagedBy(mgr).
		Named(controllerName).
		For(
			&discoveryv1.EndpointSlice{},
			builder.WithPredicates(
				generic.NewPredicateFuncs(r.isWatching),
				generic.IgnoreDeletes(),
			),
		).
		Watches(
			application,
			handler.EnqueueRequestsFromMapFunc(deps.GetDependantMapFunc(r.Dependencies, r.applicationKind, r.endpointSliceKind)),
			builder.WithPredicates(predicate.ResourceVersionChangedPredicate{}),
		).
		WithOptions(controller.Options{MaxConcurrentReconciles: r.maxConcurrentReconciles}).
		Complete(r)
}

func (r *endpointSliceController) setKinds() {
	r.endpointSliceKind = generic.KindForType[*discoveryv1.EndpointSlice](r.Scheme)
	r.applicationKind = r.Lookup.GroupVersionKind().Kind
}

func (r *endpointSliceController) isWatching(slice *discoveryv1.EndpointSlice) bool {
	return !r.excludedNamespaces[slice.Namespace]
}

func arrayToMap(in []string) map[string]bool {
	out := make(map[string]bool, len(in))
	for _, k := range in {
		out[k] = true
	}
	return out
}
