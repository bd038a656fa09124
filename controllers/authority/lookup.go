// Package authority answers whether an application is managed by the platform
package authority

import (
	"context"
	"fmt"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/api/meta"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/apimachinery/pkg/types"
	"sigs.k8s.io/controller-runtime/pkg/client"
)

// DefaultApplicationGVK is the platform Application resource
var DefaultApplicationGVK = schema.GroupVersionKind{
	Group:   "nais.io",
	Version: "v1alpha1",
	Kind:    "Application",
}

// Lookup checks that an authoritative resource exists for an application
type Lookup interface {
	// Exists reports whether the resource named key exists.
	// A missing resource is not an error.
	Exists(ctx context.Context, c client.Reader, key types.NamespacedName) (bool, error)
	// GroupVersionKind of the resource being looked up
	GroupVersionKind() schema.GroupVersionKind
}

// ApplicationLookup fetches metadata of a namespaced custom resource
type ApplicationLookup struct {
	gvk schema.GroupVersionKind
}

var _ Lookup = (*ApplicationLookup)(nil)

// NewApplicationLookup resolves gvk through the mapper once,
// failing if the cluster does not serve the kind or it is not namespaced
func NewApplicationLookup(mapper meta.RESTMapper, gvk schema.GroupVersionKind) (*ApplicationLookup, error) {
	mapping, err := mapper.RESTMapping(gvk.GroupKind(), gvk.Version)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", gvk, err)
	}
	if mapping.Scope == nil || mapping.Scope.Name() != meta.RESTScopeNameNamespace {
		return nil, fmt.Errorf("%s is not a namespaced resource", gvk)
	}
	return &ApplicationLookup{gvk: mapping.GroupVersionKind}, nil
}

// GroupVersionKind of the Application resource
func (l *ApplicationLookup) GroupVersionKind() schema.GroupVersionKind {
	return l.gvk
}

// NewObject returns an empty metadata-only object of the Application kind
func (l *ApplicationLookup) NewObject() *metav1.PartialObjectMetadata {
	obj := new(metav1.PartialObjectMetadata)
	obj.SetGroupVersionKind(l.gvk)
	return obj
}

// Exists fetches the Application metadata
func (l *ApplicationLookup) Exists(ctx context.Context, c client.Reader, key types.NamespacedName) (bool, error) {
	obj := l.NewObject()
	if err := c.Get(ctx, key, obj); err != nil {
		if apierrors.IsNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("get %s %s: %w", l.gvk.Kind, key, err)
	}
	return true, nil
}
