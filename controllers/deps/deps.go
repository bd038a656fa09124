// Package deps tracks objects consulted during reconciliation
// so that changes to them trigger the dependent objects again
package deps

import (
	"context"

	"k8s.io/apimachinery/pkg/types"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/handler"
	"sigs.k8s.io/controller-runtime/pkg/log"
	"sigs.k8s.io/controller-runtime/pkg/reconcile"

	"github.com/navikt/statusplattform-operator/model"
)

// GetDependantMapFunc maps an object of srcKind to reconciliation requests
// for all objects of dstKind that consulted it
func GetDependantMapFunc(d model.Dependencies, srcKind, dstKind string) handler.MapFunc {
	return func(ctx context.Context, obj client.Object) []reconcile.Request {
		key := model.Key{
			Kind:           srcKind,
			NamespacedName: types.NamespacedName{Name: obj.GetName(), Namespace: obj.GetNamespace()},
		}
		deps := d.DepsOfKind(key, dstKind)
		reqs := make([]reconcile.Request, 0, len(deps))
		for _, k := range deps {
			reqs = append(reqs, reconcile.Request{NamespacedName: k.NamespacedName})
		}
		if len(reqs) > 0 {
			log.FromContext(ctx).V(1).Info("dependants changed", "src", key, "dst", reqs)
		}
		return reqs
	}
}
