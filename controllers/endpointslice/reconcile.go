package endpointslice

import (
	"context"
	"fmt"

	discoveryv1 "k8s.io/api/discovery/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/types"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/navikt/statusplattform-operator/controllers/deps"
	"github.com/navikt/statusplattform-operator/model"
	"github.com/navikt/statusplattform-operator/statusplattform"
)

// Reconcile reports readiness of a single EndpointSlice.
// Only registry failures are returned as errors, the workqueue retries those with backoff;
// slices that do not belong to a platform application are skipped.
func (r *endpointSliceController) Reconcile(ctx context.Context, req ctrl.Request) (ctrl.Result, error) {
	key := model.Key{Kind: r.endpointSliceKind, NamespacedName: req.NamespacedName}

	slice := new(discoveryv1.EndpointSlice)
	if err := r.Client.Get(ctx, req.NamespacedName, slice); err != nil {
		if !apierrors.IsNotFound(err) {
			return ctrl.Result{}, fmt.Errorf("get endpoint slice: %w", err)
		}
		r.DeleteCascade(key)
		return ctrl.Result{}, nil
	}

	out := r.reconcileEndpointSlice(ctx, slice)
	r.MultiOutcomeReporter.Report(ctx, slice, out)
	if out.Phase == model.PhaseFailed {
		return ctrl.Result{}, out.Err
	}
	return ctrl.Result{}, nil
}

func (r *endpointSliceController) reconcileEndpointSlice(ctx context.Context, slice *discoveryv1.EndpointSlice) model.Outcome {
	c := model.NewCorrelation(slice)
	logger := log.FromContext(ctx).WithValues(c.KeysAndValues()...)

	// drop links of a previous pass, labels may have changed
	r.DeleteCascade(model.ObjectKey(r.endpointSliceKind, slice))

	id, err := model.IdentifyEndpointSlice(slice)
	if err != nil {
		return model.Skipped(c, err)
	}
	c = c.WithIdentity(id)
	logger = logger.WithValues("app", id.App, "team", id.Team)
	ctx = log.IntoContext(ctx, logger)
	logger.V(1).Info("identity known")

	if id.Team != slice.Namespace {
		logger.Info("warning: team label differs from namespace")
	}

	if err := r.confirmAuthority(ctx, slice, id); err != nil {
		return model.Skipped(c, err)
	}
	logger.V(1).Info("authority confirmed")

	ready := model.EndpointSliceReady(slice)
	description := model.StatusDescription(slice)
	logger.V(1).Info("readiness known", "ready", ready)

	serviceID, err := r.Registry.ResolveOrCreate(ctx, id.App, id.Team)
	if err != nil {
		return model.Failed(c, model.ReasonRegistryResolve, fmt.Errorf("resolve service %s: %w", id.App, err))
	}

	status := statusplattform.StatusFromReadiness(ready)
	if err := r.Registry.ReportStatus(ctx, serviceID, status, description); err != nil {
		return model.Failed(c, model.ReasonRegistryReport, fmt.Errorf("report %s for service %s: %w", status, id.App, err))
	}
	return model.Reported(c, ready, description)
}

// confirmAuthority checks an Application named after the app exists in the slice namespace.
// Lookup failures other than not found are logged and disqualify the slice as well.
func (r *endpointSliceController) confirmAuthority(ctx context.Context, slice *discoveryv1.EndpointSlice, id model.Identity) error {
	name := types.NamespacedName{Namespace: slice.Namespace, Name: id.App}
	tc := deps.NewClient(r.Client, r.Dependencies, model.ObjectKey(r.endpointSliceKind, slice))

	found, err := r.Lookup.Exists(ctx, tc, name)
	if err != nil {
		log.FromContext(ctx).Error(err, "application lookup")
		return model.Disqualify(model.ReasonApplicationLookup, "lookup %s %s: %v", r.applicationKind, name, err)
	}
	if !found {
		return model.Disqualify(model.ReasonNoApplication, "no %s %s", r.applicationKind, name)
	}
	return nil
}
